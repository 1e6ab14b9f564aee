package metrics

import (
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

// Reporter 记录办公室运行指标
type Reporter interface {
	// EventEmitted 记录一次发出的包裹事件
	EventEmitted(kind types.EventKind)

	// PacketCreated 记录一次包裹创建
	PacketCreated()

	// ForwardFailed 记录一次转发失败
	ForwardFailed()

	// SetNeighbors 设置当前邻居数
	SetNeighbors(n int)
}

// 确保 Collector 实现 Reporter 接口
var _ Reporter = (*Collector)(nil)

type nopReporter struct{}

func (nopReporter) EventEmitted(types.EventKind) {}
func (nopReporter) PacketCreated()               {}
func (nopReporter) ForwardFailed()               {}
func (nopReporter) SetNeighbors(int)             {}

// Nop 返回不记录任何内容的 Reporter
func Nop() Reporter {
	return nopReporter{}
}

// OrNop r 为 nil 时返回 Nop()
func OrNop(r Reporter) Reporter {
	if r == nil {
		return Nop()
	}
	return r
}
