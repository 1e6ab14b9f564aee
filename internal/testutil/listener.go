package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/dep2p/go-gpsoffice/pkg/interfaces"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// 确保 Recorder 实现 Listener 接口
var _ interfaces.Listener = (*Recorder)(nil)

// Recorder 记录收到的包裹事件
//
// Err 非 nil 时 Notify 在记录后返回该错误。
type Recorder struct {
	mu     sync.Mutex
	events []types.Event
	notify chan struct{}

	Err error
}

// NewRecorder 创建 Recorder
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

// Notify 实现 interfaces.Listener
func (r *Recorder) Notify(_ context.Context, ev types.Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	err := r.Err
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
	return err
}

// Events 返回事件副本
func (r *Recorder) Events() []types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds 返回事件类型序列
func (r *Recorder) Kinds() []types.EventKind {
	events := r.Events()
	out := make([]types.EventKind, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

// Offices 返回事件所在办公室序列
func (r *Recorder) Offices() []string {
	events := r.Events()
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Office)
	}
	return out
}

// Len 返回事件数
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// WaitTerminal 等待终止事件（Delivered 或 Lost）
func (r *Recorder) WaitTerminal(timeout time.Duration) (types.Event, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		for _, ev := range r.Events() {
			if ev.Terminal() {
				return ev, true
			}
		}
		select {
		case <-r.notify:
		case <-deadline.C:
			return types.Event{}, false
		}
	}
}

// DirectoryRecorder 记录目录通知
type DirectoryRecorder struct {
	mu     sync.Mutex
	events []types.DirectoryEvent
}

// OnDirectoryEvent 实现 interfaces.DirectoryListener
func (r *DirectoryRecorder) OnDirectoryEvent(ev types.DirectoryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events 返回通知副本
func (r *DirectoryRecorder) Events() []types.DirectoryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.DirectoryEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Len 返回通知数
func (r *DirectoryRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
