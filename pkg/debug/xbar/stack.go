package xbar

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// StackCookie 标识客户端暂存区的 cookie 名称。
const StackCookie = "xbar_stack"

const (
	defaultStackSize = 1024
	defaultStackTTL  = 10 * time.Minute
	// maxStackedPerClient 单个客户端最多暂存的快照数
	maxStackedPerClient = 16
)

// StackItem 一份暂存的快照。配置了存储时只保存 ID，Snapshot 为 nil。
type StackItem struct {
	ID       string
	Snapshot *Snapshot
}

// StackStore 暂存重定向前的快照，按客户端 key 分组。
type StackStore interface {
	Push(ctx context.Context, key string, item StackItem) error
	// Pop 取出并删除 key 下的全部暂存项，按暂存顺序。
	Pop(ctx context.Context, key string) ([]StackItem, error)
}

// MemoryStack 基于 expirable LRU 的进程内暂存区。
type MemoryStack struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, []StackItem]
}

// 编译时接口检查
var _ StackStore = (*MemoryStack)(nil)

// NewMemoryStack 创建暂存区。size <= 0 时使用 1024 个客户端；
// ttl < 0 时使用 10 分钟，ttl == 0 表示不过期（不启动清理 goroutine）。
func NewMemoryStack(size int, ttl time.Duration) *MemoryStack {
	if size <= 0 {
		size = defaultStackSize
	}
	if ttl < 0 {
		ttl = defaultStackTTL
	}
	return &MemoryStack{lru: expirable.NewLRU[string, []StackItem](size, nil, ttl)}
}

// Push 追加暂存项，超过单客户端上限时丢弃最早的项。
func (s *MemoryStack) Push(_ context.Context, key string, item StackItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, _ := s.lru.Peek(key)
	items = append(slices.Clone(items), item)
	if len(items) > maxStackedPerClient {
		items = items[len(items)-maxStackedPerClient:]
	}
	s.lru.Add(key, items)
	return nil
}

// Pop 取出并删除暂存项。
func (s *MemoryStack) Pop(_ context.Context, key string) ([]StackItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.lru.Peek(key)
	if !ok {
		return nil, nil
	}
	s.lru.Remove(key)
	return items, nil
}

// Len 返回有暂存项的客户端数。
func (s *MemoryStack) Len() int {
	return s.lru.Len()
}
