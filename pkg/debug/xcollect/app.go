package xcollect

import "runtime/debug"

// AppInfo 应用基本信息。
type AppInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Environment string `json:"environment,omitempty"`
	Locale      string `json:"locale,omitempty"`
}

// AppCollector app 面板。
type AppCollector struct {
	info AppInfo
}

// NewApp 创建 app 采集器。Name 或 Version 为空时从构建信息补全。
func NewApp(info AppInfo) *AppCollector {
	if info.Name == "" || info.Version == "" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			if info.Name == "" {
				info.Name = bi.Main.Path
			}
			if info.Version == "" {
				info.Version = bi.Main.Version
			}
		}
	}
	return &AppCollector{info: info}
}

// Name 返回 "app"。
func (c *AppCollector) Name() string { return "app" }

// Collect 返回 AppInfo。
func (c *AppCollector) Collect() any { return c.info }
