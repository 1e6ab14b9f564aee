package interfaces

import (
	"context"

	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// Listener 包裹事件接收能力
//
// 客户、总部以及测试记录器都实现该接口。Notify 失败只影响该监听者本身。
type Listener interface {
	Notify(ctx context.Context, event types.Event) error
}

// ListenerFunc 函数适配器
type ListenerFunc func(ctx context.Context, event types.Event) error

// Notify 实现 Listener
func (f ListenerFunc) Notify(ctx context.Context, event types.Event) error {
	return f(ctx, event)
}
