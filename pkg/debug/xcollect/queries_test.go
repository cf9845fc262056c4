package xcollect

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolateSQL(t *testing.T) {
	ts := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

	tests := []struct {
		name     string
		sql      string
		bindings []any
		want     string
	}{
		{
			name:     "问号占位符",
			sql:      "select * from users where name = ? and age > ?",
			bindings: []any{"o'neil", 30},
			want:     "select * from users where name = 'o''neil' and age > 30",
		},
		{
			name:     "引号内的问号不替换",
			sql:      "select '?' from t where id = ?",
			bindings: []any{7},
			want:     "select '?' from t where id = 7",
		},
		{
			name:     "多余占位符保持原样",
			sql:      "insert into t values (?, ?)",
			bindings: []any{nil},
			want:     "insert into t values (NULL, ?)",
		},
		{
			name:     "序号占位符",
			sql:      "update t set a = $2 where id = $1 and c = $3",
			bindings: []any{int64(5), true},
			want:     "update t set a = 1 where id = 5 and c = $3",
		},
		{
			name:     "二进制与时间",
			sql:      "select ?, ?, ?",
			bindings: []any{[]byte{0xab, 0x01}, ts, 1.5},
			want:     "select 0xab01, '2026-05-06 07:08:09', 1.5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InterpolateSQL(tt.sql, tt.bindings))
		})
	}
}

func TestQueries_AddQuery(t *testing.T) {
	c := NewQueries(nil, true)
	assert.Equal(t, "db", c.Name())

	c.AddQuery(Query{SQL: "select ?", Bindings: []any{1}, Duration: 2 * time.Millisecond, Connection: "main"})
	c.AddQuery(Query{SQL: "select broken", Duration: time.Millisecond, Err: errors.New("syntax error")})

	data, ok := c.Collect().(QueriesData)
	require.True(t, ok)
	assert.Equal(t, 2, data.NbStatements)
	assert.Equal(t, 1, data.NbFailedStatements)
	assert.InDelta(t, 0.003, data.AccumulatedDuration, 1e-9)
	assert.Equal(t, "3.00ms", data.AccumulatedDurationStr)

	require.Len(t, data.Statements, 2)
	assert.Equal(t, "select 1", data.Statements[0].SQL)
	assert.Equal(t, []any{1}, data.Statements[0].Params)
	assert.True(t, data.Statements[0].IsSuccess)
	assert.Equal(t, "main", data.Statements[0].Connection)
	assert.False(t, data.Statements[1].IsSuccess)
	assert.Equal(t, "syntax error", data.Statements[1].ErrorMessage)
	assert.NotNil(t, data.Statements[1].Params)
}

func TestQueries_WithoutParams(t *testing.T) {
	c := NewQueries(nil, false)
	c.AddQuery(Query{SQL: "select ?", Bindings: []any{"x"}})

	data := c.Collect().(QueriesData)
	assert.Equal(t, "select ?", data.Statements[0].SQL)
	assert.Equal(t, []any{"x"}, data.Statements[0].Params)
}

func TestQueries_Timeline(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	timeline := NewTime(start)
	c := NewQueries(timeline, false)

	c.AddQuery(Query{SQL: "select 1", Duration: 500 * time.Millisecond, End: start.Add(2 * time.Second)})

	data := timeline.Collect().(TimeData)
	require.Len(t, data.Measures, 1)
	m := data.Measures[0]
	assert.Equal(t, "select 1", m.Label)
	assert.Equal(t, "db", m.Collector)
	assert.InDelta(t, 1.5, m.RelativeStart, 1e-9)
	assert.InDelta(t, 0.5, m.Duration, 1e-9)
}
