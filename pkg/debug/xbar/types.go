package xbar

import "github.com/omeyang/xbar/pkg/debug/xcollect"

// 采集器与事件类型定义在 xcollect 中，这里提供别名方便宿主只引用 xbar。
type (
	Collector  = xcollect.Collector
	Level      = xcollect.Level
	QueryEvent = xcollect.Query
	LogEvent   = xcollect.LogEvent
	ViewEvent  = xcollect.ViewEvent
	RouteEvent = xcollect.RouteEvent
	MailEvent  = xcollect.MailEvent
	AuthUser   = xcollect.AuthUser
)

// 消息级别。
const (
	LevelEmergency = xcollect.LevelEmergency
	LevelAlert     = xcollect.LevelAlert
	LevelCritical  = xcollect.LevelCritical
	LevelError     = xcollect.LevelError
	LevelWarning   = xcollect.LevelWarning
	LevelNotice    = xcollect.LevelNotice
	LevelInfo      = xcollect.LevelInfo
	LevelDebug     = xcollect.LevelDebug
	LevelLog       = xcollect.LevelLog
)
