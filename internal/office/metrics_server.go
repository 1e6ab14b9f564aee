package office

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dep2p/go-gpsoffice/internal/core/metrics"
)

// MetricsServer 在独立地址上提供 /metrics
type MetricsServer struct {
	addr     string
	server   *http.Server
	listener net.Listener
}

// NewMetricsServer 创建指标服务
func NewMetricsServer(addr string, collector *metrics.Collector) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	return &MetricsServer{
		addr: addr,
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start 开始监听
func (m *MetricsServer) Start() error {
	l, err := net.Listen("tcp", m.addr)
	if err != nil {
		return err
	}
	m.listener = l
	go func() {
		if err := m.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("指标服务退出", "addr", m.addr, "error", err)
		}
	}()
	logger.Info("指标服务已监听", "addr", l.Addr().String())
	return nil
}

// Addr 返回实际监听地址
func (m *MetricsServer) Addr() net.Addr {
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

// Stop 关闭服务
func (m *MetricsServer) Stop(ctx context.Context) error {
	if m.listener == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
