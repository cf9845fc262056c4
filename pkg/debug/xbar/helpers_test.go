package xbar

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/omeyang/xbar/pkg/config/xconf"
)

// memStorage 测试用存储，实现 Storage、Finder 与 Clearer。
type memStorage struct {
	mu    sync.Mutex
	order []string
	snaps map[string]*Snapshot
	err   error
}

func newMemStorage() *memStorage {
	return &memStorage{snaps: make(map[string]*Snapshot)}
}

func (s *memStorage) Save(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.snaps[snap.ID()]; !ok {
		s.order = append(s.order, snap.ID())
	}
	s.snaps[snap.ID()] = snap
	return nil
}

func (s *memStorage) Get(_ context.Context, id string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[id]
	if !ok {
		return nil, fmt.Errorf("%w: snapshot %q", ErrNotFound, id)
	}
	return snap, nil
}

func (s *memStorage) Find(_ context.Context, f Filter) ([]Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Meta
	for _, id := range slices.Backward(s.order) {
		if m := s.snaps[id].Meta(); f.Match(m) {
			out = append(out, m)
		}
	}
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	return out[:min(f.Max, len(out))], nil
}

func (s *memStorage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.snaps = make(map[string]*Snapshot)
	return nil
}

func (s *memStorage) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

// getOnlyStorage 只实现 Storage。
type getOnlyStorage struct{ Storage }

var errStorageDown = errors.New("storage down")

// enabledConfig 返回 enabled=true 的配置，extra 覆盖其它键。
func enabledConfig(extra map[string]any) xconf.Source {
	values := map[string]any{"enabled": true}
	for k, v := range extra {
		values[k] = v
	}
	return xconf.NewFromMap(values)
}

// sequenceIDs 返回依次生成 id-1、id-2 … 的生成器。
func sequenceIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// stepClock 每次调用前进 step 的时钟。
func stepClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(step)
		return t
	}
}

func decodeEntry[T any](t *testing.T, snap *Snapshot, name string) T {
	t.Helper()
	var v T
	require.NoError(t, snap.Decode(name, &v))
	return v
}

func unixTime(sec int64) time.Time { return time.Unix(sec, 0) }
