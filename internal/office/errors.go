package office

import "errors"

var (
	// ErrInvalidIdentity 办公室名称为空
	ErrInvalidIdentity = errors.New("office: invalid identity")

	// ErrAlreadyStarted 重复启动
	ErrAlreadyStarted = errors.New("office: already started")

	// ErrEmptyListener 监听者句柄为空
	ErrEmptyListener = errors.New("office: empty listener")

	// ErrMissingDependency 缺少目录或解析器
	ErrMissingDependency = errors.New("office: missing dependency")
)
