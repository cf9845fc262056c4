package xcollect

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"
)

const (
	// DefaultLogsTailLines logs 面板默认读取的行数
	DefaultLogsTailLines = 100
	// maxTailBytes 从文件末尾读取的最大字节数
	maxTailBytes = 256 * 1024
)

// LogsCollector 读取日志文件末尾若干行。
// 支持 slog 的 JSON 与 text 格式，其它格式的行整行作为消息。
type LogsCollector struct {
	path  string
	lines int
}

// NewLogs 创建 logs 采集器，lines <= 0 时使用 DefaultLogsTailLines。
func NewLogs(path string, lines int) (*LogsCollector, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyLogFile
	}
	if lines <= 0 {
		lines = DefaultLogsTailLines
	}
	return &LogsCollector{path: path, lines: lines}, nil
}

// Name 返回 "logs"。
func (c *LogsCollector) Name() string { return "logs" }

// Collect 返回 MessagesData；文件不可读时返回一条 error 消息。
func (c *LogsCollector) Collect() any {
	msgs, err := c.read()
	if err != nil {
		msgs = []Message{{Message: err.Error(), IsString: true, Label: LevelError}}
	}
	return MessagesData{Count: len(msgs), Messages: msgs}
}

func (c *LogsCollector) read() ([]Message, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	offset := max(info.Size()-maxTailBytes, 0)
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if offset > 0 {
		// 丢弃被截断的第一行
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			data = data[i+1:]
		}
	}

	raw := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(raw) > c.lines {
		raw = raw[len(raw)-c.lines:]
	}
	msgs := make([]Message, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		msgs = append(msgs, parseLogLine(line))
	}
	return msgs, nil
}

// parseLogLine 解析一行日志的级别与时间。
func parseLogLine(line string) Message {
	m := Message{Message: line, IsString: true, Label: LevelInfo}

	if strings.HasPrefix(line, "{") {
		var obj map[string]any
		if json.Unmarshal([]byte(line), &obj) == nil {
			if lv, ok := obj["level"].(string); ok {
				m.Label, _ = ParseLevel(lv)
			}
			if ts, ok := obj["time"].(string); ok {
				if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
					m.Time = unixSeconds(t)
				}
			}
			return m
		}
	}

	for field := range strings.FieldsSeq(line) {
		switch {
		case strings.HasPrefix(field, "level="):
			m.Label, _ = ParseLevel(strings.TrimPrefix(field, "level="))
		case strings.HasPrefix(field, "time="):
			if t, err := time.Parse(time.RFC3339Nano, strings.TrimPrefix(field, "time=")); err == nil {
				m.Time = unixSeconds(t)
			}
		}
	}
	return m
}
