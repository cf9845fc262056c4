package xrun

import (
	"os"
	"syscall"

	"github.com/omeyang/xbar/pkg/observability/xlog"
)

// Option 配置 Group。
type Option func(*groupOptions)

type groupOptions struct {
	logger  xlog.Logger
	name    string
	signals []os.Signal
	// sigCh 非 nil 时替代 signal.Notify，测试用
	sigCh <-chan os.Signal
}

func defaultOptions() *groupOptions {
	return &groupOptions{
		logger:  xlog.Discard(),
		name:    "xrun",
		signals: DefaultSignals(),
	}
}

// DefaultSignals SIGINT、SIGTERM、SIGQUIT。每次返回新切片。
func DefaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}
}

// WithLogger 记录服务启停。默认丢弃。
func WithLogger(l xlog.Logger) Option {
	return func(o *groupOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithName 日志里的 group 名，默认 "xrun"。
func WithName(name string) Option {
	return func(o *groupOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithSignals 覆盖 Run 监听的信号。传入空切片表示不监听信号。
func WithSignals(signals ...os.Signal) Option {
	copied := append([]os.Signal{}, signals...)
	return func(o *groupOptions) {
		o.signals = copied
	}
}

func withSignalChannel(ch <-chan os.Signal) Option {
	return func(o *groupOptions) {
		o.sigCh = ch
	}
}
