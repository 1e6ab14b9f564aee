package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-gpsoffice/pkg/types"
)

const namespace = "gpsoffice"

// Collector 基于 prometheus 的指标收集器
type Collector struct {
	registry *prometheus.Registry

	events    *prometheus.CounterVec
	neighbors prometheus.Gauge
	failures  prometheus.Counter
	created   prometheus.Counter

	// 内存镜像，供 Stats 读取
	arrived   atomic.Int64
	departed  atomic.Int64
	delivered atomic.Int64
	lost      atomic.Int64
	createdN  atomic.Int64
	failed    atomic.Int64
	neighborN atomic.Int64

	forwardRate *RateMeter
}

// NewCollector 创建指标收集器
func NewCollector() *Collector {
	return NewCollectorWithClock(nil)
}

// NewCollectorWithClock 使用指定时钟创建指标收集器
func NewCollectorWithClock(clk clock.Clock) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Packet tracking events emitted by this office.",
		}, []string{"kind"}),
		neighbors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "neighbors",
			Help:      "Current neighbor table size.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forward_failures_total",
			Help:      "Packets lost because the chosen neighbor could not be reached.",
		}),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_created_total",
			Help:      "Packets created at this office.",
		}),
		forwardRate: NewRateMeter(clk),
	}
	c.registry.MustRegister(c.events, c.neighbors, c.failures, c.created)
	return c
}

// EventEmitted 实现 Reporter
func (c *Collector) EventEmitted(kind types.EventKind) {
	c.events.WithLabelValues(kind.String()).Inc()
	switch kind {
	case types.EventArrived:
		c.arrived.Add(1)
	case types.EventDeparted:
		c.departed.Add(1)
		c.forwardRate.Add(1)
	case types.EventDelivered:
		c.delivered.Add(1)
	case types.EventLost:
		c.lost.Add(1)
	}
}

// PacketCreated 实现 Reporter
func (c *Collector) PacketCreated() {
	c.created.Inc()
	c.createdN.Add(1)
}

// ForwardFailed 实现 Reporter
func (c *Collector) ForwardFailed() {
	c.failures.Inc()
	c.failed.Add(1)
}

// SetNeighbors 实现 Reporter
func (c *Collector) SetNeighbors(n int) {
	c.neighbors.Set(float64(n))
	c.neighborN.Store(int64(n))
}

// Stats 返回内存快照
func (c *Collector) Stats() Stats {
	return Stats{
		Arrived:        c.arrived.Load(),
		Departed:       c.departed.Load(),
		Delivered:      c.delivered.Load(),
		Lost:           c.lost.Load(),
		Created:        c.createdN.Load(),
		ForwardFailure: c.failed.Load(),
		Neighbors:      int(c.neighborN.Load()),
		ForwardRate:    c.forwardRate.Rate(),
	}
}

// Registry 返回底层注册表
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回 /metrics HTTP 处理器
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
