package xlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 轮转默认值
const (
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 7
	DefaultMaxAgeDays = 30
)

// Rotation 日志轮转配置，零值字段使用默认值。
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Builder 日志配置构建器
type Builder struct {
	output    io.Writer
	levelVar  *slog.LevelVar
	format    string
	addSource bool
	enrich    bool
	wrap      func(slog.Handler) slog.Handler
	rotator   *lumberjack.Logger
	onError   func(error)
	err       error
}

// New 创建配置构建器，默认 text 格式、Info 级别、输出到 stderr。
func New() *Builder {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)

	return &Builder{
		output:   os.Stderr,
		levelVar: levelVar,
		format:   "text",
		enrich:   true,
	}
}

// SetOutput 设置日志输出目标
func (b *Builder) SetOutput(w io.Writer) *Builder {
	b.output = w
	return b
}

// SetLevel 设置日志级别
func (b *Builder) SetLevel(level Level) *Builder {
	b.levelVar.Set(slog.Level(level))
	return b
}

// SetLevelString 通过字符串设置日志级别
func (b *Builder) SetLevelString(s string) *Builder {
	level, err := ParseLevel(s)
	if err != nil {
		b.err = err
		return b
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式：text 或 json，空值使用 text。
func (b *Builder) SetFormat(format string) *Builder {
	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case "":
		b.format = "text"
	case "text", "json":
		b.format = normalized
	default:
		b.err = fmt.Errorf("xlog: unknown format %q", format)
	}
	return b
}

// SetAddSource 是否记录源码位置
func (b *Builder) SetAddSource(enable bool) *Builder {
	b.addSource = enable
	return b
}

// SetEnrich 是否注入 trace_id/span_id，默认启用。
func (b *Builder) SetEnrich(enable bool) *Builder {
	b.enrich = enable
	return b
}

// SetRotation 输出到按大小轮转的文件（lumberjack）。
func (b *Builder) SetRotation(filename string, rotation ...Rotation) *Builder {
	if strings.TrimSpace(filename) == "" {
		b.err = fmt.Errorf("xlog: empty rotation filename")
		return b
	}

	r := Rotation{MaxSizeMB: DefaultMaxSizeMB, MaxBackups: DefaultMaxBackups, MaxAgeDays: DefaultMaxAgeDays}
	if len(rotation) > 0 {
		o := rotation[0]
		if o.MaxSizeMB > 0 {
			r.MaxSizeMB = o.MaxSizeMB
		}
		if o.MaxBackups > 0 {
			r.MaxBackups = o.MaxBackups
		}
		if o.MaxAgeDays > 0 {
			r.MaxAgeDays = o.MaxAgeDays
		}
		r.Compress = o.Compress
	}

	b.rotator = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    r.MaxSizeMB,
		MaxBackups: r.MaxBackups,
		MaxAge:     r.MaxAgeDays,
		Compress:   r.Compress,
	}
	b.output = b.rotator
	return b
}

// SetHandlerWrapper 在 Build 时包装底层 handler，包装发生在 trace 注入之后。
func (b *Builder) SetHandlerWrapper(wrap func(slog.Handler) slog.Handler) *Builder {
	b.wrap = wrap
	return b
}

// SetOnError 设置 Handler.Handle 失败时的回调，回调应保持轻量。
func (b *Builder) SetOnError(fn func(error)) *Builder {
	b.onError = fn
	return b
}

// Build 构建 Logger 实例，返回的 cleanup 关闭轮转文件，可重复调用。
func (b *Builder) Build() (LoggerWithLevel, func() error, error) {
	if b.err != nil {
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{Level: b.levelVar, AddSource: b.addSource}

	var handler slog.Handler
	if b.format == "json" {
		handler = slog.NewJSONHandler(b.output, opts)
	} else {
		handler = slog.NewTextHandler(b.output, opts)
	}
	if b.enrich {
		handler = newEnrichHandler(handler)
	}
	if b.wrap != nil {
		handler = b.wrap(handler)
	}

	logger := &xlogger{
		handler:    handler,
		levelVar:   b.levelVar,
		addSource:  b.addSource,
		onError:    b.onError,
		errorCount: new(atomic.Uint64),
	}

	var once sync.Once
	rotator := b.rotator
	cleanup := func() error {
		var err error
		once.Do(func() {
			if rotator != nil {
				err = rotator.Close()
			}
		})
		return err
	}
	return logger, cleanup, nil
}
