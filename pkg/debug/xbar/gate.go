package xbar

import "github.com/omeyang/xbar/pkg/config/xconf"

// Gate 从配置中读取采集器开关与选项。
type Gate struct {
	cfg xconf.Source
}

// NewGate 创建 Gate，cfg 为 nil 时所有读取都返回默认值。
func NewGate(cfg xconf.Source) Gate {
	return Gate{cfg: cfg}
}

// ShouldCollect 读取 collectors.<name>。
// 值为布尔或可解析为布尔的字符串时返回该值，否则返回 def。
func (g Gate) ShouldCollect(name string, def bool) bool {
	if g.cfg == nil {
		return def
	}
	return g.cfg.Bool("collectors."+name, def)
}

// Option 读取 options.<collector>.<option> 的原始值。
func (g Gate) Option(collector, option string, def any) any {
	if g.cfg == nil {
		return def
	}
	return g.cfg.Get(optionKey(collector, option), def)
}

// OptionBool 读取布尔选项。
func (g Gate) OptionBool(collector, option string, def bool) bool {
	if g.cfg == nil {
		return def
	}
	return g.cfg.Bool(optionKey(collector, option), def)
}

// OptionString 读取字符串选项。
func (g Gate) OptionString(collector, option, def string) string {
	if g.cfg == nil {
		return def
	}
	return g.cfg.String(optionKey(collector, option), def)
}

// OptionInt 读取整数选项。
func (g Gate) OptionInt(collector, option string, def int) int {
	if g.cfg == nil {
		return def
	}
	return g.cfg.Int(optionKey(collector, option), def)
}

func optionKey(collector, option string) string {
	return "options." + collector + "." + option
}
