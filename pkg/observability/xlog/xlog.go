package xlog

import (
	"context"
	"log/slog"
)

// Logger 日志接口
//
// 方法签名只接受 slog.Attr，避免隐式 key-value 转换。
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	// With 返回带额外属性的派生 Logger，派生 logger 共享父级的级别。
	With(attrs ...slog.Attr) Logger
}

// Leveler 级别控制接口，通过类型断言获取。
type Leveler interface {
	SetLevel(level Level)
	GetLevel() Level
	Enabled(ctx context.Context, level Level) bool
}

// LoggerWithLevel 组合接口，Build 返回此类型。
type LoggerWithLevel interface {
	Logger
	Leveler
}

// Discard 返回丢弃所有输出的 Logger。
func Discard() Logger {
	return discard{}
}

type discard struct{}

func (discard) Debug(context.Context, string, ...slog.Attr) {}
func (discard) Info(context.Context, string, ...slog.Attr)  {}
func (discard) Warn(context.Context, string, ...slog.Attr)  {}
func (discard) Error(context.Context, string, ...slog.Attr) {}
func (d discard) With(...slog.Attr) Logger                  { return d }
