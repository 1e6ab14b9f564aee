// Package metrics 提供办公室运行指标
//
// Collector 基于 prometheus client_golang，使用独立 Registry，不污染全局默认注册表：
//   - gpsoffice_events_total{kind}      已发出的包裹事件数，按事件类型
//   - gpsoffice_neighbors               当前邻居表大小
//   - gpsoffice_forward_failures_total  转发给邻居失败（包裹丢失）次数
//   - gpsoffice_packets_created_total   本办公室创建的包裹数
//
// 另有 RateMeter 计算最近 60 秒的转发速率，Stats 返回内存快照。
//
// # 快速开始
//
//	c := metrics.NewCollector()
//	c.EventEmitted(types.EventArrived)
//	c.SetNeighbors(3)
//	http.Handle("/metrics", c.Handler())
//
// # Fx 模块
//
//	app := fx.New(
//	    metrics.Module,
//	    fx.Invoke(func(r metrics.Reporter) { ... }),
//	)
//
// 调用方不需要判断 Reporter 是否为 nil：Nop() 返回空实现。
package metrics
