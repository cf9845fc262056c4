package xcollect

import (
	"runtime"
)

// MemoryData memory 面板数据。
type MemoryData struct {
	HeapAlloc    uint64 `json:"heap_alloc"`
	HeapAllocStr string `json:"heap_alloc_str"`
	PeakUsage    uint64 `json:"peak_usage"`
	PeakUsageStr string `json:"peak_usage_str"`
	NumGC        uint32 `json:"num_gc"`
	Goroutines   int    `json:"goroutines"`
}

// MemoryCollector 报告进程堆内存使用情况。
// Go 没有单请求的内存计量，这里报告的是采集时刻的进程级数值。
type MemoryCollector struct {
	read func(*runtime.MemStats)
}

// NewMemory 创建内存采集器。
func NewMemory() *MemoryCollector {
	return &MemoryCollector{read: runtime.ReadMemStats}
}

// Name 返回 "memory"。
func (c *MemoryCollector) Name() string { return "memory" }

// Collect 返回 MemoryData。
func (c *MemoryCollector) Collect() any {
	var ms runtime.MemStats
	c.read(&ms)
	return MemoryData{
		HeapAlloc:    ms.HeapAlloc,
		HeapAllocStr: FormatBytes(int64(ms.HeapAlloc)),
		PeakUsage:    ms.HeapSys,
		PeakUsageStr: FormatBytes(int64(ms.HeapSys)),
		NumGC:        ms.NumGC,
		Goroutines:   runtime.NumGoroutine(),
	}
}
