package xcollect

import (
	"maps"
	"net/http"
	"strings"
	"sync"
)

// RouteEvent 匹配到的路由。
type RouteEvent struct {
	Method  string
	Pattern string
	Name    string
	Handler string
	Params  map[string]string
}

// RouteData route 面板数据。
type RouteData struct {
	URI     string            `json:"uri"`
	Name    string            `json:"name,omitempty"`
	Handler string            `json:"handler,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
}

// RouteCollector 记录当前请求匹配的路由，多次上报时保留最后一次。
type RouteCollector struct {
	mu    sync.Mutex
	route *RouteEvent
}

// NewRoute 创建路由采集器。
func NewRoute() *RouteCollector {
	return &RouteCollector{}
}

// Name 返回 "route"。
func (c *RouteCollector) Name() string { return "route" }

// SetRoute 记录路由。
func (c *RouteCollector) SetRoute(ev RouteEvent) {
	ev.Params = maps.Clone(ev.Params)
	c.mu.Lock()
	c.route = &ev
	c.mu.Unlock()
}

// HasRoute 判断是否已经记录了路由。
func (c *RouteCollector) HasRoute() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.route != nil
}

// Collect 返回 RouteData，未匹配路由时 uri 为 "-"。
func (c *RouteCollector) Collect() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.route == nil {
		return RouteData{URI: "-"}
	}
	uri := c.route.Pattern
	if c.route.Method != "" && !strings.HasPrefix(uri, c.route.Method+" ") {
		uri = c.route.Method + " " + uri
	}
	return RouteData{
		URI:     uri,
		Name:    c.route.Name,
		Handler: c.route.Handler,
		Params:  maps.Clone(c.route.Params),
	}
}

// RouteFromRequest 从 http.ServeMux 设置的 r.Pattern 构造路由事件。
// 请求没有经过模式匹配时返回 false。
func RouteFromRequest(r *http.Request) (RouteEvent, bool) {
	if r == nil || r.Pattern == "" {
		return RouteEvent{}, false
	}
	ev := RouteEvent{Method: r.Method, Pattern: r.Pattern}
	for _, name := range patternWildcards(r.Pattern) {
		if v := r.PathValue(name); v != "" {
			if ev.Params == nil {
				ev.Params = make(map[string]string)
			}
			ev.Params[name] = v
		}
	}
	return ev, true
}

// patternWildcards 提取 "{name}" 与 "{name...}" 中的名称。
func patternWildcards(pattern string) []string {
	var names []string
	for {
		start := strings.IndexByte(pattern, '{')
		if start < 0 {
			return names
		}
		end := strings.IndexByte(pattern[start:], '}')
		if end < 0 {
			return names
		}
		name := strings.TrimSuffix(pattern[start+1:start+end], "...")
		if name != "" && name != "$" {
			names = append(names, name)
		}
		pattern = pattern[start+end+1:]
	}
}
