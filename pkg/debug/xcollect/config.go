package xcollect

import "maps"

// ConfigCollector 展示扁平化的配置键值。
type ConfigCollector struct {
	name string
	data map[string]any
}

// NewConfig 创建配置采集器，name 为空时使用 "config"。
func NewConfig(name string, data map[string]any) *ConfigCollector {
	if name == "" {
		name = "config"
	}
	return &ConfigCollector{name: name, data: maps.Clone(data)}
}

// Name 返回采集器名称。
func (c *ConfigCollector) Name() string { return c.name }

// Collect 返回配置副本。
func (c *ConfigCollector) Collect() any {
	out := maps.Clone(c.data)
	if out == nil {
		out = map[string]any{}
	}
	return out
}
