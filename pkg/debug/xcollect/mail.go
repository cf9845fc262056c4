package xcollect

import (
	"maps"
	"strings"
	"sync"
)

// MailEvent 一封已发送的邮件。
type MailEvent struct {
	From    string
	To      []string
	Subject string
	Headers map[string]string
	Body    string
}

// MailItem mail 面板中的一封邮件。
type MailItem struct {
	From    string            `json:"from,omitempty"`
	To      string            `json:"to"`
	Subject string            `json:"subject"`
	Headers map[string]string `json:"headers,omitempty"`
}

// MailData mail 面板数据。
type MailData struct {
	Count int        `json:"count"`
	Mails []MailItem `json:"mails"`
}

// MailCollector 记录发送的邮件，不保存正文。
type MailCollector struct {
	mu    sync.Mutex
	mails []MailItem
}

// NewMail 创建邮件采集器。
func NewMail() *MailCollector {
	return &MailCollector{}
}

// Name 返回 "mail"。
func (c *MailCollector) Name() string { return "mail" }

// AddMail 记录一封邮件。
func (c *MailCollector) AddMail(ev MailEvent) {
	item := MailItem{
		From:    ev.From,
		To:      strings.Join(ev.To, ", "),
		Subject: ev.Subject,
		Headers: maps.Clone(ev.Headers),
	}
	c.mu.Lock()
	c.mails = append(c.mails, item)
	c.mu.Unlock()
}

// Collect 返回 MailData。
func (c *MailCollector) Collect() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	mails := make([]MailItem, len(c.mails))
	copy(mails, c.mails)
	return MailData{Count: len(mails), Mails: mails}
}

// MailLogLine 返回 maillog 消息中的单行描述。
func MailLogLine(ev MailEvent) string {
	line := "Sent mail to " + strings.Join(ev.To, ", ") + ": " + ev.Subject
	if ev.From != "" {
		line += " (from " + ev.From + ")"
	}
	return line
}
