package xcollect

import (
	"strings"
	"time"
)

// Collector 采集器接口。
type Collector interface {
	// Name 返回采集器名称，在同一个调试栏实例内唯一。
	Name() string

	// Collect 返回当前数据的可 JSON 序列化副本。
	Collect() any
}

// MessageSource 以消息列表暴露数据的采集器。
type MessageSource interface {
	Collector
	Messages() []Message
}

// Aggregator 可以合并其它消息类采集器的采集器。
type Aggregator interface {
	Collector
	Aggregate(src MessageSource)
}

// Level 消息级别，取值固定。
type Level string

// 消息级别，与 PSR-3 / syslog 的级别名一致，另加通用的 log。
const (
	LevelEmergency Level = "emergency"
	LevelAlert     Level = "alert"
	LevelCritical  Level = "critical"
	LevelError     Level = "error"
	LevelWarning   Level = "warning"
	LevelNotice    Level = "notice"
	LevelInfo      Level = "info"
	LevelDebug     Level = "debug"
	LevelLog       Level = "log"
)

// Levels 返回全部级别，按严重程度从高到低。
func Levels() []Level {
	return []Level{
		LevelEmergency, LevelAlert, LevelCritical, LevelError,
		LevelWarning, LevelNotice, LevelInfo, LevelDebug, LevelLog,
	}
}

// Valid 判断是否为已知级别。
func (l Level) Valid() bool {
	switch l {
	case LevelEmergency, LevelAlert, LevelCritical, LevelError,
		LevelWarning, LevelNotice, LevelInfo, LevelDebug, LevelLog:
		return true
	default:
		return false
	}
}

// ParseLevel 解析级别名，大小写不敏感；未知名称返回 LevelInfo 与 false。
// 额外接受 slog 的 "warn"。
func ParseLevel(s string) (Level, bool) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if l == "warn" {
		return LevelWarning, true
	}
	if !l.Valid() {
		return LevelInfo, false
	}
	return l, true
}

// Option 采集器通用选项。
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock 替换时钟，用于测试。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// unixSeconds 返回带小数的 Unix 秒数。
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
