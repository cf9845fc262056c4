package xbar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"time"
)

// MetaKey 快照中元数据项的键名。
const MetaKey = "__meta"

// DatetimeLayout 元数据中 datetime 字段的格式。
const DatetimeLayout = time.DateTime

// Meta 快照元数据。URI 与 IP 为空时序列化为 null。
type Meta struct {
	ID       string
	Datetime string
	Utime    float64
	Method   string
	URI      string
	IP       string
}

type metaJSON struct {
	ID       string  `json:"id"`
	Datetime string  `json:"datetime"`
	Utime    float64 `json:"utime"`
	Method   string  `json:"method"`
	URI      *string `json:"uri"`
	IP       *string `json:"ip"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// MarshalJSON 实现 json.Marshaler。
func (m Meta) MarshalJSON() ([]byte, error) {
	return json.Marshal(metaJSON{
		ID:       m.ID,
		Datetime: m.Datetime,
		Utime:    m.Utime,
		Method:   m.Method,
		URI:      nullable(m.URI),
		IP:       nullable(m.IP),
	})
}

// UnmarshalJSON 实现 json.Unmarshaler。
func (m *Meta) UnmarshalJSON(data []byte) error {
	var v metaJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Meta{ID: v.ID, Datetime: v.Datetime, Utime: v.Utime, Method: v.Method, URI: deref(v.URI), IP: deref(v.IP)}
	return nil
}

// Time 返回 Utime 对应的时间。
func (m Meta) Time() time.Time {
	sec, frac := math.Modf(m.Utime)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}

// newMeta 以 t 构造元数据的时间字段。
func newMeta(id string, t time.Time) Meta {
	return Meta{
		ID:       id,
		Datetime: t.Format(DatetimeLayout),
		Utime:    float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second),
	}
}

// Snapshot 一次请求的诊断数据：元数据加上每个采集器的输出。
// 生成后不可变，序列化时保持采集器的注册顺序。
type Snapshot struct {
	meta  Meta
	names []string
	data  map[string]json.RawMessage
}

// NewSnapshot 依次调用采集器的 Collect 生成快照。
// 单个采集器序列化失败或 panic 时，该项记为 {"error": "..."}，不影响其它采集器。
func NewSnapshot(meta Meta, collectors ...Collector) *Snapshot {
	s := &Snapshot{meta: meta, data: make(map[string]json.RawMessage, len(collectors))}
	for _, c := range collectors {
		if c == nil {
			continue
		}
		name := c.Name()
		if name == MetaKey {
			continue
		}
		if _, dup := s.data[name]; !dup {
			s.names = append(s.names, name)
		}
		s.data[name] = collectRaw(c)
	}
	return s
}

func collectRaw(c Collector) (raw json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			raw = errorRaw(fmt.Errorf("collect panic: %v", r))
		}
	}()
	data, err := json.Marshal(c.Collect())
	if err != nil {
		return errorRaw(err)
	}
	return data
}

func errorRaw(err error) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	return data
}

// Meta 返回元数据。
func (s *Snapshot) Meta() Meta { return s.meta }

// ID 返回快照 id。
func (s *Snapshot) ID() string { return s.meta.ID }

// Names 返回采集器名称（不含元数据），按注册顺序。
func (s *Snapshot) Names() []string { return slices.Clone(s.names) }

// Len 返回采集器项数（不含元数据）。
func (s *Snapshot) Len() int { return len(s.names) }

// Raw 返回某个采集器输出的 JSON 副本。
func (s *Snapshot) Raw(name string) (json.RawMessage, bool) {
	raw, ok := s.data[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(raw), true
}

// Decode 把某个采集器的输出解码到 v，不存在时返回 ErrNotFound。
func (s *Snapshot) Decode(name string, v any) error {
	raw, ok := s.data[name]
	if !ok {
		return fmt.Errorf("%w: snapshot entry %q", ErrNotFound, name)
	}
	return json.Unmarshal(raw, v)
}

// Entries 返回采集器输出的副本。
func (s *Snapshot) Entries() map[string]json.RawMessage {
	out := maps.Clone(s.data)
	for k, v := range out {
		out[k] = slices.Clone(v)
	}
	return out
}

// MarshalJSON 输出 {"__meta": {...}, "<name>": ...}，键顺序与注册顺序一致。
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	meta, err := json.Marshal(s.meta)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"` + MetaKey + `":`)
	buf.Write(meta)
	for _, name := range s.names {
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(s.data[name])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON 解析快照并保留键顺序。
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: expected object", ErrInvalidSnapshot)
	}

	out := Snapshot{data: make(map[string]json.RawMessage)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}
		if key == MetaKey {
			if err := json.Unmarshal(raw, &out.meta); err != nil {
				return fmt.Errorf("%w: meta: %w", ErrInvalidSnapshot, err)
			}
			continue
		}
		if _, dup := out.data[key]; !dup {
			out.names = append(out.names, key)
		}
		out.data[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	*s = out
	return nil
}

// ParseSnapshot 从 JSON 解析快照。
func ParseSnapshot(data []byte) (*Snapshot, error) {
	s := &Snapshot{}
	if err := s.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return s, nil
}
