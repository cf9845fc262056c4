package xcollect

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

// InvalidUTF8Sentinel 替换非法 UTF-8 日志内容的哨兵字符串。
const InvalidUTF8Sentinel = "[INVALID UTF-8 DATA]"

// LogEvent 应用写出的一条日志。
type LogEvent struct {
	Time    time.Time
	Level   Level
	Message any
	Context map[string]any
}

// FormatLogLine 把日志格式化为 "[HH:MM:SS] LOG.<level>: <message> <json-context>"。
//
// 消息不是合法 UTF-8 时以 [InvalidUTF8Sentinel] 代替并返回 *EncodingError；
// 格式化过程中的 panic 或上下文序列化失败以 "[Exception: <msg>]" 代替。
// 无论哪种情况都会返回可用的文本行。
func FormatLogLine(ev LogEvent) (line string, err error) {
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	level := ev.Level
	if level == "" {
		level = LevelInfo
	}
	prefix := "[" + ts.Format(time.TimeOnly) + "] LOG." + string(level) + ": "

	body, err := formatLogBody(ev)
	return prefix + body, err
}

func formatLogBody(ev LogEvent) (body string, err error) {
	defer func() {
		if r := recover(); r != nil {
			body = fmt.Sprintf("[Exception: %v]", r)
			err = nil
		}
	}()

	msg := stringify(ev.Message)
	if !utf8.ValidString(msg) {
		return InvalidUTF8Sentinel, &EncodingError{Field: "message"}
	}
	if len(ev.Context) == 0 {
		return msg, nil
	}

	data, jerr := json.Marshal(ev.Context)
	if jerr != nil {
		return "[Exception: " + jerr.Error() + "]", nil
	}
	return msg + " " + string(data), nil
}

func stringify(v any) string {
	switch m := v.(type) {
	case nil:
		return ""
	case string:
		return m
	case []byte:
		return string(m)
	case error:
		return m.Error()
	case fmt.Stringer:
		return m.String()
	default:
		return fmt.Sprint(m)
	}
}
