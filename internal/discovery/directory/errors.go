package directory

import "errors"

// 预定义错误
var (
	// ErrAlreadyBound 名字已被绑定
	ErrAlreadyBound = errors.New("directory: name already bound")

	// ErrNotBound 名字未绑定
	ErrNotBound = errors.New("directory: name not bound")

	// ErrInvalidRecord 记录缺少必要字段
	ErrInvalidRecord = errors.New("directory: invalid record")

	// ErrClosed 目录已关闭
	ErrClosed = errors.New("directory: closed")
)
