package remote

import (
	"errors"

	"github.com/dep2p/go-gpsoffice/internal/core/eventhub"
	"github.com/dep2p/go-gpsoffice/internal/core/forward"
	"github.com/dep2p/go-gpsoffice/internal/core/rpc"
	"github.com/dep2p/go-gpsoffice/internal/discovery/directory"
)

var (
	// ErrUnknownListener 监听者 ID 未注册
	ErrUnknownListener = errors.New("remote: unknown listener")

	// ErrEmptyEndpoint 句柄缺少地址
	ErrEmptyEndpoint = errors.New("remote: empty endpoint")
)

// 应用错误码，跨进程后仍满足 errors.Is
const (
	CodeAlreadyBound    = rpc.CodeApplication + 1
	CodeNotBound        = rpc.CodeApplication + 2
	CodeInvalidRecord   = rpc.CodeApplication + 3
	CodeDirectoryClosed = rpc.CodeApplication + 4
	CodeOfficeClosed    = rpc.CodeApplication + 5
	CodeUnknownLease    = rpc.CodeApplication + 6
	CodeUnknownListener = rpc.CodeApplication + 7
)

func init() {
	rpc.RegisterError(CodeAlreadyBound, directory.ErrAlreadyBound)
	rpc.RegisterError(CodeNotBound, directory.ErrNotBound)
	rpc.RegisterError(CodeInvalidRecord, directory.ErrInvalidRecord)
	rpc.RegisterError(CodeDirectoryClosed, directory.ErrClosed)
	rpc.RegisterError(CodeOfficeClosed, forward.ErrClosed)
	rpc.RegisterError(CodeUnknownLease, eventhub.ErrUnknownLease)
	rpc.RegisterError(CodeUnknownListener, ErrUnknownListener)
}
