package xbar

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xbar/pkg/config/xconf"
)

type stubCollector struct {
	name string
	data any
}

func (s stubCollector) Name() string { return s.name }
func (s stubCollector) Collect() any { return s.data }

type panicCollector struct{}

func (panicCollector) Name() string { return "broken" }
func (panicCollector) Collect() any { panic("collect exploded") }

// =============================================================================
// Registry
// =============================================================================

func TestRegistry_AddHasGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(stubCollector{name: "a"}))
	require.NoError(t, r.Add(stubCollector{name: "b"}))

	assert.True(t, r.Has("a"))
	assert.False(t, r.Has("c"))
	assert.Equal(t, []string{"a", "b"}, r.Names())
	assert.Equal(t, 2, r.Len())

	c, err := r.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "b", c.Name())

	_, err = r.Get("c")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), `"c"`)
}

func TestRegistry_Duplicate(t *testing.T) {
	r := NewRegistry()
	first := stubCollector{name: "a", data: 1}
	require.NoError(t, r.Add(first))

	err := r.Add(stubCollector{name: "a", data: 2})
	assert.ErrorIs(t, err, ErrDuplicateCollector)
	assert.Equal(t, 1, r.Len())

	c, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, first, c, "注册表保持原采集器")
}

func TestRegistry_Nil(t *testing.T) {
	assert.ErrorIs(t, NewRegistry().Add(nil), ErrNilCollector)
}

// =============================================================================
// Snapshot
// =============================================================================

func TestSnapshot_OrderAndMeta(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 500_000_000, time.UTC)
	meta := newMeta("abc", now)
	snap := NewSnapshot(meta,
		stubCollector{name: "zeta", data: 1},
		stubCollector{name: "alpha", data: map[string]string{"k": "v"}},
	)

	assert.Equal(t, []string{"zeta", "alpha"}, snap.Names())
	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, "2024-01-02 03:04:05", snap.Meta().Datetime)
	assert.InDelta(t, float64(now.Unix())+0.5, snap.Meta().Utime, 1e-6)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Equal(t,
		`{"__meta":{"id":"abc","datetime":"2024-01-02 03:04:05","utime":1704164645.5,"method":"","uri":null,"ip":null},"zeta":1,"alpha":{"k":"v"}}`,
		string(data))
}

func TestSnapshot_RoundTrip(t *testing.T) {
	meta := newMeta("id1", time.Unix(1700000000, 0))
	meta.Method, meta.URI, meta.IP = "GET", "/x?y=1", "10.0.0.1"
	snap := NewSnapshot(meta, stubCollector{name: "b", data: []int{1, 2}}, stubCollector{name: "a", data: "s"})

	data, err := snap.MarshalJSON()
	require.NoError(t, err)
	back, err := ParseSnapshot(data)
	require.NoError(t, err)

	assert.Equal(t, snap.Meta(), back.Meta())
	assert.Equal(t, []string{"b", "a"}, back.Names())
	assert.Equal(t, []int{1, 2}, decodeEntry[[]int](t, back, "b"))

	again, err := back.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestSnapshot_CollectorFailure(t *testing.T) {
	snap := NewSnapshot(newMeta("x", time.Now()),
		panicCollector{},
		stubCollector{name: "chan", data: make(chan int)},
		stubCollector{name: "ok", data: true},
	)
	assert.Equal(t, []string{"broken", "chan", "ok"}, snap.Names())

	broken := decodeEntry[map[string]string](t, snap, "broken")
	assert.Contains(t, broken["error"], "collect exploded")
	assert.NotEmpty(t, decodeEntry[map[string]string](t, snap, "chan")["error"])
	assert.True(t, decodeEntry[bool](t, snap, "ok"))
}

func TestSnapshot_DecodeMissing(t *testing.T) {
	snap := NewSnapshot(newMeta("x", time.Now()))
	var v any
	assert.ErrorIs(t, snap.Decode("nope", &v), ErrNotFound)
	_, ok := snap.Raw("nope")
	assert.False(t, ok)
}

func TestSnapshot_EntriesAreCopies(t *testing.T) {
	snap := NewSnapshot(newMeta("x", time.Now()), stubCollector{name: "a", data: "v"})
	entries := snap.Entries()
	entries["a"][1] = 'X'
	assert.Equal(t, "v", decodeEntry[string](t, snap, "a"))
}

func TestParseSnapshot_Invalid(t *testing.T) {
	for _, in := range []string{``, `[]`, `{"a":`, `{"__meta":"str"}`} {
		_, err := ParseSnapshot([]byte(in))
		assert.ErrorIs(t, err, ErrInvalidSnapshot, in)
	}
}

func TestMeta_Time(t *testing.T) {
	at := time.Unix(1700000000, 250_000_000)
	m := newMeta("x", at)
	assert.WithinDuration(t, at, m.Time(), time.Millisecond)
}

// =============================================================================
// Gate
// =============================================================================

func TestGate(t *testing.T) {
	g := NewGate(xconf.NewFromMap(map[string]any{
		"collectors.db":         false,
		"collectors.mail":       "true",
		"collectors.views":      "garbage",
		"options.db.timeline":   true,
		"options.logs.file":     "/tmp/app.log",
		"options.logs.lines":    50,
		"options.custom.object": map[string]any{"k": 1},
	}))

	assert.False(t, g.ShouldCollect("db", true))
	assert.True(t, g.ShouldCollect("mail", false))
	assert.True(t, g.ShouldCollect("views", true), "无法解析的值回落到默认值")
	assert.True(t, g.ShouldCollect("unknown", true))

	assert.True(t, g.OptionBool("db", "timeline", false))
	assert.Equal(t, "/tmp/app.log", g.OptionString("logs", "file", ""))
	assert.Equal(t, 50, g.OptionInt("logs", "lines", 0))
	assert.Equal(t, "def", g.Option("missing", "x", "def"))
}

func TestGate_NilConfig(t *testing.T) {
	var g Gate
	assert.True(t, g.ShouldCollect("db", true))
	assert.Equal(t, 3, g.OptionInt("a", "b", 3))
	assert.Equal(t, "x", g.Option("a", "b", "x"))
}

// =============================================================================
// Errors
// =============================================================================

func TestCollectorAttachError(t *testing.T) {
	err := error(&CollectorAttachError{Collector: "db", Err: hookUnavailable("QueryHook")})
	assert.ErrorIs(t, err, ErrHookUnavailable)
	assert.Equal(t, "xbar: cannot attach db collector: xbar: hook unavailable: QueryHook", err.Error())

	var ae *CollectorAttachError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "db", ae.Collector)
}
