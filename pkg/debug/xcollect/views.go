package xcollect

import (
	"maps"
	"sync"
)

// ViewEvent 一次模板渲染。
type ViewEvent struct {
	Name string
	Path string
	Data map[string]any
}

// ViewTemplate views 面板中的一个模板。
type ViewTemplate struct {
	Name       string         `json:"name"`
	Path       string         `json:"path,omitempty"`
	ParamCount int            `json:"param_count"`
	Params     map[string]any `json:"params,omitempty"`
	ParamKeys  []string       `json:"param_keys,omitempty"`
}

// ViewsData views 面板数据。
type ViewsData struct {
	NbTemplates int            `json:"nb_templates"`
	Templates   []ViewTemplate `json:"templates"`
}

// ViewCollector 记录渲染过的模板。
type ViewCollector struct {
	collectData bool

	mu    sync.Mutex
	views []ViewTemplate
}

// NewViews 创建模板采集器。collectData 为 false 时只记录参数名。
func NewViews(collectData bool) *ViewCollector {
	return &ViewCollector{collectData: collectData}
}

// Name 返回 "views"。
func (c *ViewCollector) Name() string { return "views" }

// AddView 记录一次模板渲染。
func (c *ViewCollector) AddView(ev ViewEvent) {
	t := ViewTemplate{Name: ev.Name, Path: ev.Path, ParamCount: len(ev.Data)}
	if c.collectData {
		t.Params = maps.Clone(ev.Data)
	} else if len(ev.Data) > 0 {
		t.ParamKeys = sortedKeys(ev.Data)
	}

	c.mu.Lock()
	c.views = append(c.views, t)
	c.mu.Unlock()
}

// Collect 返回 ViewsData。
func (c *ViewCollector) Collect() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	templates := make([]ViewTemplate, len(c.views))
	copy(templates, c.views)
	return ViewsData{NbTemplates: len(templates), Templates: templates}
}
