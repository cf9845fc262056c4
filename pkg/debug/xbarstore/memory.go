package xbarstore

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/omeyang/xbar/pkg/debug/xbar"
)

// DefaultMemorySize Memory 默认容量。
const DefaultMemorySize = 256

// Memory 进程内快照存储，超出容量时淘汰最久未使用的快照。
//
// ttl > 0 时 expirable 会启动一个后台清理 goroutine，随进程退出。
type Memory struct {
	lru *expirable.LRU[string, *xbar.Snapshot]
}

var _ Store = (*Memory)(nil)

// NewMemory 创建内存存储。size <= 0 使用 DefaultMemorySize，ttl <= 0 表示不过期。
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &Memory{lru: expirable.NewLRU[string, *xbar.Snapshot](size, nil, max(ttl, 0))}
}

// Save 保存快照。快照不可变，直接保存指针。
func (m *Memory) Save(_ context.Context, s *xbar.Snapshot) error {
	if s == nil {
		return ErrNilSnapshot
	}
	if err := validateID(s.ID()); err != nil {
		return err
	}
	m.lru.Add(s.ID(), s)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*xbar.Snapshot, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	s, ok := m.lru.Get(id)
	if !ok {
		return nil, notFound(id)
	}
	return s, nil
}

func (m *Memory) Find(_ context.Context, f xbar.Filter) ([]xbar.Meta, error) {
	metas := m.metas()
	newestFirst(metas)
	return page(metas, f), nil
}

func (m *Memory) Clear(context.Context) error {
	m.lru.Purge()
	return nil
}

func (m *Memory) Prune(_ context.Context, before time.Time) (int, error) {
	cutoff := unixSeconds(before)
	n := 0
	for _, meta := range m.metas() {
		if meta.Utime < cutoff && m.lru.Remove(meta.ID) {
			n++
		}
	}
	return n, nil
}

// Len 当前保存的快照数量。
func (m *Memory) Len() int { return m.lru.Len() }

func (m *Memory) Close(context.Context) error { return nil }

func (m *Memory) metas() []xbar.Meta {
	snaps := m.lru.Values()
	metas := make([]xbar.Meta, 0, len(snaps))
	for _, s := range slices.Backward(snaps) {
		metas = append(metas, s.Meta())
	}
	return metas
}
