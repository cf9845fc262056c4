package xcollect

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Query 一条执行过的 SQL。
type Query struct {
	SQL        string
	Bindings   []any
	Duration   time.Duration
	Connection string
	// End 为零值时使用上报时刻。
	End time.Time
	Err error
}

// Statement db 面板中的一条语句。
type Statement struct {
	SQL          string  `json:"sql"`
	Params       []any   `json:"params"`
	Duration     float64 `json:"duration"`
	DurationStr  string  `json:"duration_str"`
	Connection   string  `json:"connection,omitempty"`
	IsSuccess    bool    `json:"is_success"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// QueriesData db 面板数据。
type QueriesData struct {
	NbStatements           int         `json:"nb_statements"`
	NbFailedStatements     int         `json:"nb_failed_statements"`
	AccumulatedDuration    float64     `json:"accumulated_duration"`
	AccumulatedDurationStr string      `json:"accumulated_duration_str"`
	Statements             []Statement `json:"statements"`
}

// QueryCollector 记录 SQL 语句。
type QueryCollector struct {
	timeline   *TimeCollector
	withParams bool
	now        func() time.Time

	mu         sync.Mutex
	statements []Statement
	total      time.Duration
	failed     int
}

// NewQueries 创建 SQL 采集器。
// timeline 非 nil 时每条语句同时作为测量加入时间线；
// withParams 为 true 时把绑定参数代入 SQL 文本。
func NewQueries(timeline *TimeCollector, withParams bool, opts ...Option) *QueryCollector {
	o := applyOptions(opts)
	return &QueryCollector{timeline: timeline, withParams: withParams, now: o.now}
}

// Name 返回 "db"。
func (c *QueryCollector) Name() string { return "db" }

// AddQuery 记录一条语句。
func (c *QueryCollector) AddQuery(q Query) {
	sql := q.SQL
	if c.withParams && len(q.Bindings) > 0 {
		sql = InterpolateSQL(q.SQL, q.Bindings)
	}
	st := Statement{
		SQL:         sql,
		Params:      append([]any(nil), q.Bindings...),
		Duration:    q.Duration.Seconds(),
		DurationStr: FormatDuration(q.Duration),
		Connection:  q.Connection,
		IsSuccess:   q.Err == nil,
	}
	if st.Params == nil {
		st.Params = []any{}
	}
	if q.Err != nil {
		st.ErrorMessage = q.Err.Error()
	}

	c.mu.Lock()
	c.statements = append(c.statements, st)
	c.total += q.Duration
	if q.Err != nil {
		c.failed++
	}
	c.mu.Unlock()

	if c.timeline != nil {
		end := q.End
		if end.IsZero() {
			end = c.now()
		}
		c.timeline.AddMeasure(sql, end.Add(-q.Duration), end, nil, "db")
	}
}

// Collect 返回 QueriesData。
func (c *QueryCollector) Collect() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	statements := make([]Statement, len(c.statements))
	copy(statements, c.statements)
	return QueriesData{
		NbStatements:           len(statements),
		NbFailedStatements:     c.failed,
		AccumulatedDuration:    c.total.Seconds(),
		AccumulatedDurationStr: FormatDuration(c.total),
		Statements:             statements,
	}
}

// InterpolateSQL 把绑定参数代入 SQL 文本，仅用于展示。
// 支持 "?" 顺序占位符与 "$N" 序号占位符，跳过单引号字符串内的内容；
// 多余的占位符保持原样。
func InterpolateSQL(sql string, bindings []any) string {
	var b strings.Builder
	b.Grow(len(sql) + 16*len(bindings))

	next := 0
	inQuote := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case ch == '\'':
			inQuote = !inQuote
			b.WriteByte(ch)
		case inQuote:
			b.WriteByte(ch)
		case ch == '?':
			if next < len(bindings) {
				b.WriteString(quoteSQL(bindings[next]))
				next++
			} else {
				b.WriteByte(ch)
			}
		case ch == '$' && i+1 < len(sql) && isDigit(sql[i+1]):
			j := i + 1
			for j < len(sql) && isDigit(sql[j]) {
				j++
			}
			n, _ := strconv.Atoi(sql[i+1 : j])
			if n >= 1 && n <= len(bindings) {
				b.WriteString(quoteSQL(bindings[n-1]))
			} else {
				b.WriteString(sql[i:j])
			}
			i = j - 1
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func quoteSQL(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case []byte:
		return "0x" + hex.EncodeToString(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case time.Time:
		return "'" + x.Format(time.DateTime) + "'"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(x)
	case fmt.Stringer:
		return "'" + strings.ReplaceAll(x.String(), "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(x), "'", "''") + "'"
	}
}
