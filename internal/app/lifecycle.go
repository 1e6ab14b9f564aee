package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// App 运行中的应用
//
// App 提供应用级别的生命周期管理
type App struct {
	bootstrap *Bootstrap
	runtime   *Runtime
	stopOnce  sync.Once
	stopped   chan struct{}
	err       error
}

// RunApp 启动应用
//
// 这是一个便捷函数，用于运行一个常驻角色：
// - 构建并启动
// - 等待退出信号
// - 优雅关闭
//
// 示例:
//
//	a, err := app.RunApp(ctx, app.NewBootstrap(app.RoleDirectory, cfg))
//	if err != nil {
//	    return err
//	}
//	a.Wait()
func RunApp(ctx context.Context, bootstrap *Bootstrap) (*App, error) {
	rt, err := bootstrap.Start(ctx)
	if err != nil {
		return nil, err
	}

	return &App{
		bootstrap: bootstrap,
		runtime:   rt,
		stopped:   make(chan struct{}),
	}, nil
}

// Runtime 返回各角色的句柄
func (a *App) Runtime() *Runtime {
	return a.runtime
}

// Wait 等待退出信号或 Stop，返回停止时的错误
func (a *App) Wait() error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case sig := <-signals:
		logger.Info("收到信号，正在退出", "signal", sig.String())
		return a.Stop()
	case <-a.stopped:
		return a.err
	}
}

// Stop 停止应用，可重复调用
func (a *App) Stop() error {
	a.stopOnce.Do(func() {
		if err := a.bootstrap.Stop(context.Background()); err != nil {
			a.err = fmt.Errorf("停止应用失败: %w", err)
		}
		close(a.stopped)
	})
	return a.err
}
