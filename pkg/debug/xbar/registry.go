package xbar

import (
	"fmt"
	"slices"
	"sync"
)

// Registry 按注册顺序保存采集器，名称唯一。并发安全。
type Registry struct {
	mu    sync.RWMutex
	names []string
	items map[string]Collector
}

// NewRegistry 创建空的注册表。
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Collector)}
}

// Add 注册采集器。同名采集器已存在时返回 ErrDuplicateCollector，注册表不变。
func (r *Registry) Add(c Collector) error {
	if c == nil {
		return ErrNilCollector
	}
	name := c.Name()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateCollector, name)
	}
	r.items[name] = c
	r.names = append(r.names, name)
	return nil
}

// Has 判断采集器是否存在。
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[name]
	return ok
}

// Get 返回采集器，不存在时返回 ErrNotFound。
func (r *Registry) Get(name string) (Collector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[name]
	if !ok {
		return nil, fmt.Errorf("%w: collector %q", ErrNotFound, name)
	}
	return c, nil
}

// Names 返回按注册顺序排列的名称副本。
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.names)
}

// Len 返回采集器数量。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// collectors 按注册顺序返回采集器。
func (r *Registry) collectors() []Collector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Collector, len(r.names))
	for i, name := range r.names {
		out[i] = r.items[name]
	}
	return out
}
