package xlog

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level 日志级别，与 slog.Level 兼容
type Level slog.Level

// 日志级别常量
const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

// String 返回大写级别名，非标准级别委托给 slog（如 "INFO+2"）。
func (l Level) String() string {
	return slog.Level(l).String()
}

// UnmarshalText 支持从配置文件直接解析级别。
func (l *Level) UnmarshalText(data []byte) error {
	parsed, err := ParseLevel(string(data))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel 解析级别名，大小写不敏感，空串视为 info。
//
// 除 debug/info/warn/warning/error 外，也接受 slog 的偏移写法（"INFO+2"、"DEBUG-4"）。
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "", "info":
		return LevelInfo, nil
	case "warning":
		return LevelWarn, nil
	}
	var sl slog.Level
	if err := sl.UnmarshalText([]byte(name)); err != nil {
		return LevelInfo, fmt.Errorf("xlog: unknown level %q", s)
	}
	return Level(sl), nil
}
