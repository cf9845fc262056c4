package xlog

import (
	"log/slog"
	"time"
)

// 常用属性 key
const (
	KeyError     = "error"
	KeyDuration  = "duration"
	KeyRequestID = "request_id"
	KeyComponent = "component"
	KeyMethod    = "method"
	KeyPath      = "path"
	KeyStatus    = "status_code"
)

// Err 创建错误属性，err 为 nil 时返回空属性（被 slog 忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// RequestID 创建请求 ID 属性
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Method 创建 HTTP 方法属性
func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

// Path 创建请求路径属性
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Status 创建状态码属性
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}
