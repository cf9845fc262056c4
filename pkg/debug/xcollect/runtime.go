package xcollect

import (
	"runtime"
	"runtime/debug"
)

// RuntimeData runtime 面板数据。
type RuntimeData struct {
	Version    string            `json:"version"`
	GOOS       string            `json:"goos"`
	GOARCH     string            `json:"goarch"`
	NumCPU     int               `json:"num_cpu"`
	GOMAXPROCS int               `json:"gomaxprocs"`
	Main       string            `json:"main,omitempty"`
	Settings   map[string]string `json:"settings,omitempty"`
}

// RuntimeCollector 报告 Go 运行时与构建设置。
type RuntimeCollector struct {
	buildInfo func() (*debug.BuildInfo, bool)
}

// NewRuntime 创建运行时采集器。
func NewRuntime() *RuntimeCollector {
	return &RuntimeCollector{buildInfo: debug.ReadBuildInfo}
}

// Name 返回 "runtime"。
func (c *RuntimeCollector) Name() string { return "runtime" }

// Collect 返回 RuntimeData。
func (c *RuntimeCollector) Collect() any {
	data := RuntimeData{
		Version:    runtime.Version(),
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
		NumCPU:     runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
	}
	if bi, ok := c.buildInfo(); ok && bi != nil {
		data.Main = bi.Main.Path
		if bi.Main.Version != "" {
			data.Main += "@" + bi.Main.Version
		}
		if len(bi.Settings) > 0 {
			data.Settings = make(map[string]string, len(bi.Settings))
			for _, s := range bi.Settings {
				data.Settings[s.Key] = s.Value
			}
		}
	}
	return data
}
