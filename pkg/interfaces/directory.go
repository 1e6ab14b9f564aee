package interfaces

import (
	"context"

	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// Directory 目录/注册服务
//
// 办公室核心只消费该接口：绑定自身、按名称查询、按类型枚举、订阅变更。
type Directory interface {
	// Bind 绑定名称，名称已被绑定时失败
	Bind(ctx context.Context, record types.Record) error

	// Renew 续期带 TTL 的绑定
	Renew(ctx context.Context, name string) error

	// Unbind 解除绑定
	Unbind(ctx context.Context, name string) error

	// Lookup 按名称查询，未绑定时失败
	Lookup(ctx context.Context, name string) (types.Record, error)

	// List 按类型枚举名称（按绑定顺序）
	List(ctx context.Context, typ string) ([]string, error)

	// Subscribe 订阅变更通知
	//
	// 返回的 cancel 函数用于取消订阅，可重复调用。
	Subscribe(ctx context.Context, listener DirectoryListener, filter types.Filter) (cancel func(), err error)
}

// DirectoryListener 目录变更接收者
type DirectoryListener interface {
	OnDirectoryEvent(event types.DirectoryEvent)
}

// DirectoryListenerFunc 函数适配器
type DirectoryListenerFunc func(event types.DirectoryEvent)

// OnDirectoryEvent 实现 DirectoryListener
func (f DirectoryListenerFunc) OnDirectoryEvent(event types.DirectoryEvent) {
	f(event)
}

// DirectoryResubscriber 可选接口：订阅中断并恢复后回调
//
// 中断期间的通知已丢失，实现方应重新枚举目录。
type DirectoryResubscriber interface {
	OnResubscribed()
}
