package xcollect

import (
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"
)

// Measure 一次已完成的测量。时间字段为 Unix 秒，Relative 字段相对请求开始。
type Measure struct {
	Label         string         `json:"label"`
	Start         float64        `json:"start"`
	RelativeStart float64        `json:"relative_start"`
	End           float64        `json:"end"`
	RelativeEnd   float64        `json:"relative_end"`
	Duration      float64        `json:"duration"`
	DurationStr   string         `json:"duration_str"`
	Params        map[string]any `json:"params"`
	Collector     string         `json:"collector,omitempty"`
	Running       bool           `json:"running,omitempty"`
}

// TimeData time 面板数据。
type TimeData struct {
	Start       float64   `json:"start"`
	End         float64   `json:"end"`
	Duration    float64   `json:"duration"`
	DurationStr string    `json:"duration_str"`
	Measures    []Measure `json:"measures"`
}

type runningMeasure struct {
	label     string
	start     time.Time
	collector string
}

type measureRecord struct {
	label     string
	start     time.Time
	end       time.Time
	params    map[string]any
	collector string
}

// TimeCollector 记录请求时间线。
type TimeCollector struct {
	mu           sync.Mutex
	now          func() time.Time
	requestStart time.Time
	running      map[string]runningMeasure
	measures     []measureRecord
}

// 编译时接口检查
var _ Collector = (*TimeCollector)(nil)

// NewTime 创建时间线采集器，requestStart 为零值时使用当前时间。
func NewTime(requestStart time.Time, opts ...Option) *TimeCollector {
	o := applyOptions(opts)
	if requestStart.IsZero() {
		requestStart = o.now()
	}
	return &TimeCollector{
		now:          o.now,
		requestStart: requestStart,
		running:      make(map[string]runningMeasure),
	}
}

// Name 返回 "time"。
func (c *TimeCollector) Name() string { return "time" }

// RequestStart 返回请求开始时间。
func (c *TimeCollector) RequestStart() time.Time { return c.requestStart }

// StartMeasure 开始一个测量，label 为空时使用 name。
// 同名测量已在运行时重新计时。
func (c *TimeCollector) StartMeasure(name, label, collector string) {
	if label == "" {
		label = name
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running[name] = runningMeasure{label: label, start: c.now(), collector: collector}
}

// HasStartedMeasure 判断测量是否在运行。
func (c *TimeCollector) HasStartedMeasure(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.running[name]
	return ok
}

// StopMeasure 停止测量。测量未运行时返回 ErrMeasureState。
func (c *TimeCollector) StopMeasure(name string, params map[string]any) error {
	end := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.running[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMeasureState, name)
	}
	delete(c.running, name)
	c.measures = append(c.measures, measureRecord{
		label:     m.label,
		start:     m.start,
		end:       end,
		params:    maps.Clone(params),
		collector: m.collector,
	})
	return nil
}

// AddMeasure 直接添加一个已完成的测量，end 早于 start 时按 start 处理。
func (c *TimeCollector) AddMeasure(label string, start, end time.Time, params map[string]any, collector string) {
	if end.Before(start) {
		end = start
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.measures = append(c.measures, measureRecord{
		label:     label,
		start:     start,
		end:       end,
		params:    maps.Clone(params),
		collector: collector,
	})
}

// Measure 测量 fn 的执行时间。
// fn 返回错误或 panic 时测量照常记录，随后错误返回、panic 继续向上传播。
func (c *TimeCollector) Measure(label string, fn func() error) error {
	start := c.now()
	defer func() {
		c.AddMeasure(label, start, c.now(), nil, "")
	}()
	return fn()
}

// Collect 返回时间线。仍在运行的测量以采集时刻为结束时间输出并标记 running，
// 运行状态本身不受影响。
func (c *TimeCollector) Collect() any {
	end := c.now()

	c.mu.Lock()
	records := make([]measureRecord, 0, len(c.measures)+len(c.running))
	records = append(records, c.measures...)
	running := len(records)
	for _, m := range c.running {
		records = append(records, measureRecord{label: m.label, start: m.start, end: end, collector: m.collector})
	}
	c.mu.Unlock()

	measures := make([]Measure, len(records))
	for i, r := range records {
		measures[i] = c.toMeasure(r, i >= running)
	}
	sort.SliceStable(measures, func(i, j int) bool {
		return measures[i].Start < measures[j].Start
	})

	total := end.Sub(c.requestStart)
	return TimeData{
		Start:       unixSeconds(c.requestStart),
		End:         unixSeconds(end),
		Duration:    total.Seconds(),
		DurationStr: FormatDuration(total),
		Measures:    measures,
	}
}

func (c *TimeCollector) toMeasure(r measureRecord, running bool) Measure {
	d := r.end.Sub(r.start)
	params := r.params
	if params == nil {
		params = map[string]any{}
	}
	return Measure{
		Label:         r.label,
		Start:         unixSeconds(r.start),
		RelativeStart: r.start.Sub(c.requestStart).Seconds(),
		End:           unixSeconds(r.end),
		RelativeEnd:   r.end.Sub(c.requestStart).Seconds(),
		Duration:      d.Seconds(),
		DurationStr:   FormatDuration(d),
		Params:        params,
		Collector:     r.collector,
		Running:       running,
	}
}
