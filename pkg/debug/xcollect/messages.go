package xcollect

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"
)

// Message 消息面板中的一条记录。
type Message struct {
	// Message 为字符串或任意可序列化的值。
	Message any `json:"message"`
	// IsString 为 false 表示 Message 是结构化数据或预格式化文本。
	IsString  bool    `json:"is_string"`
	Label     Level   `json:"label"`
	Time      float64 `json:"time"`
	Collector string  `json:"collector,omitempty"`
}

// MessagesData 消息类面板数据。
type MessagesData struct {
	Count    int       `json:"count"`
	Messages []Message `json:"messages"`
}

// MessagesCollector 消息采集器，可以合并其它消息源。
type MessagesCollector struct {
	name string
	now  func() time.Time

	mu         sync.Mutex
	messages   []Message
	aggregates []MessageSource
}

// 编译时接口检查
var (
	_ Aggregator    = (*MessagesCollector)(nil)
	_ MessageSource = (*MessagesCollector)(nil)
)

// NewMessages 创建名为 name 的消息采集器，name 为空时使用 "messages"。
func NewMessages(name string, opts ...Option) *MessagesCollector {
	if name == "" {
		name = "messages"
	}
	o := applyOptions(opts)
	return &MessagesCollector{name: name, now: o.now}
}

// Name 返回采集器名称。
func (c *MessagesCollector) Name() string { return c.name }

// AddMessage 添加一条消息，非法级别按 info 处理。
// error 与 fmt.Stringer 会被转换为字符串。
func (c *MessagesCollector) AddMessage(msg any, level Level) {
	isString := true
	switch m := msg.(type) {
	case string:
	case error:
		msg = m.Error()
	case fmt.Stringer:
		msg = m.String()
	default:
		isString = false
	}
	c.add(msg, level, isString)
}

// AddLine 添加一条预格式化的文本行（IsString 为 false）。
func (c *MessagesCollector) AddLine(line string, level Level) {
	c.add(line, level, false)
}

// Info 添加一条 info 消息。
func (c *MessagesCollector) Info(msg any) { c.AddMessage(msg, LevelInfo) }

func (c *MessagesCollector) add(msg any, level Level, isString bool) {
	if !level.Valid() {
		level = LevelInfo
	}
	m := Message{Message: msg, IsString: isString, Label: level, Time: unixSeconds(c.now())}

	c.mu.Lock()
	c.messages = append(c.messages, m)
	c.mu.Unlock()
}

// Aggregate 合并另一个消息源，合并的消息带上来源名称。
// 合并自身会被忽略。
func (c *MessagesCollector) Aggregate(src MessageSource) {
	if src == nil || src == MessageSource(c) {
		return
	}
	c.mu.Lock()
	c.aggregates = append(c.aggregates, src)
	c.mu.Unlock()
}

// Messages 返回自身和所有合并来源的消息，按时间排序。
func (c *MessagesCollector) Messages() []Message {
	c.mu.Lock()
	own := slices.Clone(c.messages)
	aggregates := slices.Clone(c.aggregates)
	c.mu.Unlock()

	for _, src := range aggregates {
		for _, m := range src.Messages() {
			if m.Collector == "" {
				m.Collector = src.Name()
			}
			own = append(own, m)
		}
	}
	sort.SliceStable(own, func(i, j int) bool { return own[i].Time < own[j].Time })
	return own
}

// Collect 返回 MessagesData。
func (c *MessagesCollector) Collect() any {
	msgs := c.Messages()
	if msgs == nil {
		msgs = []Message{}
	}
	return MessagesData{Count: len(msgs), Messages: msgs}
}
