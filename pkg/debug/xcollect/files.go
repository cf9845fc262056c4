package xcollect

import (
	"runtime/debug"
)

// FilesCollector 列出编译进二进制的模块（含版本与替换关系）。
type FilesCollector struct {
	buildInfo func() (*debug.BuildInfo, bool)
}

// NewFiles 创建 files 采集器。
func NewFiles() *FilesCollector {
	return &FilesCollector{buildInfo: debug.ReadBuildInfo}
}

// Name 返回 "files"。
func (c *FilesCollector) Name() string { return "files" }

// Collect 返回 MessagesData，每个模块一条消息。
func (c *FilesCollector) Collect() any {
	bi, ok := c.buildInfo()
	if !ok || bi == nil {
		return MessagesData{Messages: []Message{}}
	}

	msgs := make([]Message, 0, len(bi.Deps)+1)
	msgs = append(msgs, Message{Message: moduleLine(&bi.Main), IsString: true, Label: LevelInfo})
	for _, dep := range bi.Deps {
		msgs = append(msgs, Message{Message: moduleLine(dep), IsString: true, Label: LevelDebug})
	}
	return MessagesData{Count: len(msgs), Messages: msgs}
}

func moduleLine(m *debug.Module) string {
	line := m.Path
	if m.Version != "" {
		line += "@" + m.Version
	}
	if m.Replace != nil {
		line += " => " + moduleLine(m.Replace)
	}
	return line
}
