package metrics

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
)

// Params Metrics 依赖参数
type Params struct {
	fx.In

	Clock clock.Clock `optional:"true"`
}

// Result Metrics 导出结果
type Result struct {
	fx.Out

	Collector *Collector
	Reporter  Reporter
}

// Module 是 metrics 的 Fx 模块
var Module = fx.Module("metrics",
	fx.Provide(ProvideCollector),
)

// ProvideCollector 从参数创建 Collector
func ProvideCollector(p Params) Result {
	c := NewCollectorWithClock(p.Clock)
	return Result{Collector: c, Reporter: c}
}
