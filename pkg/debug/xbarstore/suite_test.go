package xbarstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xbar/pkg/debug/xbar"
)

type stubCollector struct {
	name string
	data any
}

func (s stubCollector) Name() string { return s.name }
func (s stubCollector) Collect() any { return s.data }

var suiteBase = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// newSnap 构造 utime 为 suiteBase+offset 的快照。
func newSnap(id string, offset time.Duration, method, uri, ip string) *xbar.Snapshot {
	at := suiteBase.Add(offset)
	meta := xbar.Meta{
		ID:       id,
		Datetime: at.Format(time.DateTime),
		Utime:    unixSeconds(at),
		Method:   method,
		URI:      uri,
		IP:       ip,
	}
	return xbar.NewSnapshot(meta,
		stubCollector{name: "messages", data: map[string]any{"count": 1}},
		stubCollector{name: "time", data: map[string]any{"duration": 0.5}},
	)
}

func metaIDs(metas []xbar.Meta) []string {
	ids := make([]string, len(metas))
	for i, m := range metas {
		ids[i] = m.ID
	}
	return ids
}

type suiteOptions struct {
	// pruneByUtime 为 false 时跳过 Prune 检查（File 按修改时间清理）。
	pruneByUtime bool
}

// runStoreSuite 对任意 Store 实现执行同一组行为检查。
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store, o suiteOptions) {
	t.Helper()
	ctx := context.Background()

	t.Run("SaveGet", func(t *testing.T) {
		s := newStore(t)
		orig := newSnap("req-1", 0, "GET", "/users?page=2", "10.0.0.1")
		require.NoError(t, s.Save(ctx, orig))

		got, err := s.Get(ctx, "req-1")
		require.NoError(t, err)
		assert.Equal(t, orig.Meta(), got.Meta())
		assert.Equal(t, orig.Names(), got.Names())

		want, err := orig.MarshalJSON()
		require.NoError(t, err)
		data, err := got.MarshalJSON()
		require.NoError(t, err)
		assert.JSONEq(t, string(want), string(data))
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, newSnap("req-1", 0, "GET", "/a", "")))
		require.NoError(t, s.Save(ctx, newSnap("req-1", time.Second, "POST", "/b", "")))

		got, err := s.Get(ctx, "req-1")
		require.NoError(t, err)
		assert.Equal(t, "POST", got.Meta().Method)

		metas, err := s.Find(ctx, xbar.Filter{})
		require.NoError(t, err)
		assert.Len(t, metas, 1)
	})

	t.Run("NotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, err, xbar.ErrNotFound)
	})

	t.Run("InvalidID", func(t *testing.T) {
		s := newStore(t)
		for _, id := range []string{"", "../etc/passwd", "a b", "a:b"} {
			assert.ErrorIs(t, s.Save(ctx, newSnap(id, 0, "GET", "/", "")), ErrInvalidID, id)
			_, err := s.Get(ctx, id)
			assert.ErrorIs(t, err, ErrInvalidID, id)
		}
		assert.ErrorIs(t, s.Save(ctx, nil), ErrNilSnapshot)
	})

	t.Run("FindOrderFilterPage", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, newSnap("r1", 1*time.Second, "GET", "/users", "10.0.0.1")))
		require.NoError(t, s.Save(ctx, newSnap("r2", 2*time.Second, "POST", "/login", "10.0.0.2")))
		require.NoError(t, s.Save(ctx, newSnap("r3", 3*time.Second, "GET", "/users/7", "192.168.0.9")))
		require.NoError(t, s.Save(ctx, newSnap("r4", 4*time.Second, "CLI", "migrate", "")))

		metas, err := s.Find(ctx, xbar.Filter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"r4", "r3", "r2", "r1"}, metaIDs(metas))

		metas, err = s.Find(ctx, xbar.Filter{Method: "get"})
		require.NoError(t, err)
		assert.Equal(t, []string{"r3", "r1"}, metaIDs(metas))

		metas, err = s.Find(ctx, xbar.Filter{URI: "users"})
		require.NoError(t, err)
		assert.Equal(t, []string{"r3", "r1"}, metaIDs(metas))

		metas, err = s.Find(ctx, xbar.Filter{IP: "10.0.0."})
		require.NoError(t, err)
		assert.Equal(t, []string{"r2", "r1"}, metaIDs(metas))

		metas, err = s.Find(ctx, xbar.Filter{Max: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"r3", "r2"}, metaIDs(metas))

		metas, err = s.Find(ctx, xbar.Filter{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, metas)
	})

	t.Run("FindDefaultMax", func(t *testing.T) {
		s := newStore(t)
		for i := range xbar.DefaultFindMax + 5 {
			require.NoError(t, s.Save(ctx, newSnap(fmt.Sprintf("r%03d", i), time.Duration(i)*time.Second, "GET", "/", "")))
		}
		metas, err := s.Find(ctx, xbar.Filter{})
		require.NoError(t, err)
		require.Len(t, metas, xbar.DefaultFindMax)
		assert.Equal(t, fmt.Sprintf("r%03d", xbar.DefaultFindMax+4), metas[0].ID)
	})

	t.Run("Clear", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, newSnap("r1", 0, "GET", "/", "")))
		require.NoError(t, s.Save(ctx, newSnap("r2", time.Second, "GET", "/", "")))
		require.NoError(t, s.Clear(ctx))

		metas, err := s.Find(ctx, xbar.Filter{})
		require.NoError(t, err)
		assert.Empty(t, metas)
		_, err = s.Get(ctx, "r1")
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.Clear(ctx), "清空空存储")
	})

	if o.pruneByUtime {
		t.Run("Prune", func(t *testing.T) {
			s := newStore(t)
			require.NoError(t, s.Save(ctx, newSnap("old1", 0, "GET", "/", "")))
			require.NoError(t, s.Save(ctx, newSnap("old2", time.Minute, "GET", "/", "")))
			require.NoError(t, s.Save(ctx, newSnap("new", time.Hour, "GET", "/", "")))

			n, err := s.Prune(ctx, suiteBase.Add(30*time.Minute))
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			metas, err := s.Find(ctx, xbar.Filter{})
			require.NoError(t, err)
			assert.Equal(t, []string{"new"}, metaIDs(metas))

			n, err = s.Prune(ctx, suiteBase.Add(30*time.Minute))
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}
