package xconf

import (
	"strconv"
	"strings"
	"time"
)

// Format 定义配置文件格式。
type Format string

// 支持的配置格式。
const (
	// FormatYAML YAML 格式（推荐用于 K8s ConfigMap）。
	FormatYAML Format = "yaml"

	// FormatJSON JSON 格式。
	FormatJSON Format = "json"
)

// Source 定义点分键配置源。
//
// 读取方法在键缺失或类型不匹配时返回 def，永不报错。
type Source interface {
	// Get 返回键对应的原始值，不存在时返回 def。
	Get(key string, def any) any

	// Bool 返回布尔值。支持 bool 与可解析的字符串（"true"/"1"/"false"/"0"）。
	Bool(key string, def bool) bool

	// Int 返回整数值。支持各整数类型、整值浮点数与数字字符串。
	Int(key string, def int) int

	// String 返回字符串值，非字符串标量会被格式化。
	String(key string, def string) string

	// Duration 返回时长，支持 time.Duration、"5m" 形式字符串与整数秒。
	Duration(key string, def time.Duration) time.Duration

	// Set 写入键值，点分键会展开为嵌套结构。
	Set(key string, value any) error

	// All 返回扁平化（点分键）的全部配置副本。
	All() map[string]any
}

// toBool 将任意值转换为布尔值。
func toBool(v any, def bool) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

// toInt 将任意值转换为整数。
func toInt(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint:
		return int(n)
	case uint32:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		if n == float64(int(n)) {
			return int(n)
		}
		return def
	case float32:
		if n == float32(int(n)) {
			return int(n)
		}
		return def
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

// toString 将标量值转换为字符串。
func toString(v any, def string) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return def
	}
}

// toDuration 将任意值转换为时长。
func toDuration(v any, def time.Duration) time.Duration {
	switch d := v.(type) {
	case time.Duration:
		return d
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(d))
		if err != nil {
			return def
		}
		return parsed
	default:
		// 整数按秒解释
		if n := toInt(v, -1); n >= 0 {
			return time.Duration(n) * time.Second
		}
		return def
	}
}
