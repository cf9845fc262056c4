package xcollect

// LogCollector 独立的 log 面板，没有 messages 面板可并入时使用。
type LogCollector struct {
	*MessagesCollector
}

// NewLog 创建名为 "log" 的日志采集器。
func NewLog(opts ...Option) *LogCollector {
	return &LogCollector{MessagesCollector: NewMessages("log", opts...)}
}

// AddLog 格式化并记录一条日志，返回格式化过程中的 *EncodingError（仅用于报告）。
func (c *LogCollector) AddLog(ev LogEvent) error {
	return AppendLog(c.MessagesCollector, ev)
}

// AppendLog 把日志格式化后追加到任意消息采集器。
func AppendLog(c *MessagesCollector, ev LogEvent) error {
	line, err := FormatLogLine(ev)
	level := ev.Level
	if !level.Valid() {
		level = LevelInfo
	}
	c.AddLine(line, level)
	return err
}
