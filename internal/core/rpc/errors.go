package rpc

import (
	"errors"
	"fmt"
	"sync"
)

// 预定义错误
var (
	// ErrUnreachable 对端不可达
	ErrUnreachable = errors.New("rpc: peer unreachable")

	// ErrTimeout 调用超时
	ErrTimeout = errors.New("rpc: call timeout")

	// ErrFrameTooLarge 帧超过上限
	ErrFrameTooLarge = errors.New("rpc: frame too large")

	// ErrClientClosed 客户端已关闭
	ErrClientClosed = errors.New("rpc: client closed")

	// ErrServerClosed 服务端已关闭
	ErrServerClosed = errors.New("rpc: server closed")
)

// Code 错误码
type Code uint32

// 内置错误码，应用错误码从 CodeApplication 开始
const (
	CodeOK Code = iota
	CodeUnknown
	CodeMethodNotFound
	CodeInvalidArgument
	CodeResourceExhausted
	CodeUnavailable

	CodeApplication Code = 100
)

// String 返回错误码名称
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeUnknown:
		return "unknown"
	case CodeMethodNotFound:
		return "method_not_found"
	case CodeInvalidArgument:
		return "invalid_argument"
	case CodeResourceExhausted:
		return "resource_exhausted"
	case CodeUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("code(%d)", uint32(c))
	}
}

// 内置错误码的哨兵
var (
	// ErrMethodNotFound 方法未注册
	ErrMethodNotFound = errors.New("rpc: method not found")

	// ErrInvalidArgument 请求无法解码
	ErrInvalidArgument = errors.New("rpc: invalid argument")

	// ErrResourceExhausted 服务端限流
	ErrResourceExhausted = errors.New("rpc: resource exhausted")
)

// Error 远端返回的错误
type Error struct {
	Code    Code
	Message string
}

// Error 实现 error 接口
func (e *Error) Error() string {
	return e.Message
}

// Is 与注册在同一错误码下的哨兵错误匹配
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Code == e.Code
	}
	sentinel, ok := lookupSentinel(e.Code)
	return ok && sentinel == target
}

// ============================================================================
//                              错误码注册
// ============================================================================

var registry = struct {
	sync.RWMutex
	byCode map[Code]error
}{byCode: map[Code]error{
	CodeMethodNotFound:    ErrMethodNotFound,
	CodeInvalidArgument:   ErrInvalidArgument,
	CodeResourceExhausted: ErrResourceExhausted,
}}

// RegisterError 把哨兵错误绑定到应用错误码，通常在 init 中调用
//
// 同一错误码重复注册相同错误是幂等的；注册不同错误会 panic。
func RegisterError(code Code, sentinel error) {
	if code < CodeApplication {
		panic(fmt.Sprintf("rpc: code %d is reserved", code))
	}
	registry.Lock()
	defer registry.Unlock()
	if existing, ok := registry.byCode[code]; ok && existing != sentinel {
		panic(fmt.Sprintf("rpc: code %d already registered", code))
	}
	registry.byCode[code] = sentinel
}

func lookupSentinel(code Code) (error, bool) {
	registry.RLock()
	defer registry.RUnlock()
	err, ok := registry.byCode[code]
	return err, ok
}

// codeOf 把处理器返回的错误映射为错误码
func codeOf(err error) Code {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Code
	}

	registry.RLock()
	defer registry.RUnlock()
	for code, sentinel := range registry.byCode {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeUnknown
}
