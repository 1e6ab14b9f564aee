// Package log 提供统一日志接口
//
// 基于 Go 标准库 log/slog 封装。组件通过 Logger("core/forward") 获取
// LazyLogger，每条日志都带 component 属性，并在调用时取当前默认 handler，
// 因此 Setup 可以在 logger 创建之后再调用。
//
// 环境变量：
//   - GPSOFFICE_LOG_LEVEL: debug | info | warn | error
//   - GPSOFFICE_LOG_FORMAT: text | json
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	// EnvLevel 日志级别环境变量
	EnvLevel = "GPSOFFICE_LOG_LEVEL"
	// EnvFormat 日志格式环境变量
	EnvFormat = "GPSOFFICE_LOG_FORMAT"
)

// 日志级别常量（从 slog 导出，方便使用）
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Options 日志配置
type Options struct {
	// Level 日志级别名称，空表示 info
	Level string

	// Format text 或 json
	Format string

	// Output 输出目标，nil 表示 stderr
	Output io.Writer
}

// Setup 按配置安装默认 logger
//
// 环境变量优先于 opts 中的同名字段。
func Setup(opts Options) {
	if v := os.Getenv(EnvLevel); v != "" {
		opts.Level = v
	}
	if v := os.Getenv(EnvFormat); v != "" {
		opts.Format = v
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	level, ok := ParseLevel(opts.Level)
	if !ok {
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			// 简化时间键
			if a.Key == slog.TimeKey {
				a.Key = "ts"
			}
			return a
		},
	}

	var h slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		h = slog.NewJSONHandler(opts.Output, hopts)
	} else {
		h = slog.NewTextHandler(opts.Output, hopts)
	}
	slog.SetDefault(slog.New(h))
}

// ParseLevel 解析级别名称
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Discard 安装丢弃所有输出的默认 logger，测试中使用
func Discard() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// ============================================================================
//                              LazyLogger
// ============================================================================

// LazyLogger 懒加载 logger
//
// 每次日志调用时都从 slog.Default() 获取最新的 handler。
//
//	var logger = log.Logger("core/forward")
//	logger.Info("包裹已投递", "tracking_id", id)
type LazyLogger struct {
	component string
}

// Logger 返回带组件名的 LazyLogger
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

func (l *LazyLogger) current() *slog.Logger {
	return slog.Default().With("component", l.component)
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) {
	l.current().Debug(msg, args...)
}

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) {
	l.current().Info(msg, args...)
}

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) {
	l.current().Warn(msg, args...)
}

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) {
	l.current().Error(msg, args...)
}

// DebugContext 带 context 的 Debug 日志
func (l *LazyLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.current().DebugContext(ctx, msg, args...)
}

// WarnContext 带 context 的 Warn 日志
func (l *LazyLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.current().WarnContext(ctx, msg, args...)
}

// With 添加额外的属性
func (l *LazyLogger) With(args ...any) *slog.Logger {
	return l.current().With(args...)
}

// Component 返回组件名
func (l *LazyLogger) Component() string {
	return l.component
}
