package xconf

import (
	"maps"
	"strings"
	"sync"
	"time"
)

// overlay 在只读的基础配置之上叠加私有写入层。
type overlay struct {
	base Source

	mu    sync.RWMutex
	local map[string]any
}

// Overlay 返回叠加在 base 之上的配置源。
//
// 读取优先命中覆盖层，未命中时回落到 base；Set 只写覆盖层，
// base 永远不会被修改。base 为 nil 时等价于空配置。
func Overlay(base Source) Source {
	if base == nil {
		base = NewFromMap(nil)
	}
	return &overlay{base: base, local: make(map[string]any)}
}

func (o *overlay) Get(key string, def any) any {
	o.mu.RLock()
	v, ok := o.local[key]
	o.mu.RUnlock()
	if ok {
		return v
	}
	return o.base.Get(key, def)
}

func (o *overlay) Bool(key string, def bool) bool {
	return toBool(o.Get(key, def), def)
}

func (o *overlay) Int(key string, def int) int {
	return toInt(o.Get(key, def), def)
}

func (o *overlay) String(key string, def string) string {
	return toString(o.Get(key, def), def)
}

func (o *overlay) Duration(key string, def time.Duration) time.Duration {
	return toDuration(o.Get(key, def), def)
}

func (o *overlay) Set(key string, value any) error {
	if key == "" {
		return ErrEmptyKey
	}
	o.mu.Lock()
	o.local[key] = value
	o.mu.Unlock()
	return nil
}

// All 合并 base 与覆盖层，覆盖层写入的父键会遮蔽 base 中的子键。
func (o *overlay) All() map[string]any {
	out := o.base.All()
	if out == nil {
		out = make(map[string]any)
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	for key := range o.local {
		prefix := key + delim
		for k := range out {
			if strings.HasPrefix(k, prefix) {
				delete(out, k)
			}
		}
	}
	maps.Copy(out, o.local)
	return out
}
