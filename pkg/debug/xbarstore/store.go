package xbarstore

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/omeyang/xbar/pkg/debug/xbar"
)

// maxIDLen 快照 id 的最大长度。
const maxIDLen = 128

// Pruner 删除早于给定时间的快照。
type Pruner interface {
	// Prune 删除 utime 早于 before 的快照，返回删除数量。
	Prune(ctx context.Context, before time.Time) (int, error)
}

//go:generate mockgen -destination=mock_store_test.go -package=xbarstore . Store

// Store 本包所有实现提供的完整能力。
type Store interface {
	xbar.Storage
	xbar.Finder
	xbar.Clearer
	Pruner

	// Close 释放实现自己持有的资源。外部传入的客户端不会被关闭。
	Close(ctx context.Context) error
}

// validateID id 会成为文件名或键名的一部分，只接受 [A-Za-z0-9_-]。
func validateID(id string) error {
	if id == "" || len(id) > maxIDLen {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	for i := range len(id) {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
	}
	return nil
}

// encode 校验并序列化快照。
func encode(s *xbar.Snapshot) ([]byte, error) {
	if s == nil {
		return nil, ErrNilSnapshot
	}
	if err := validateID(s.ID()); err != nil {
		return nil, err
	}
	data, err := s.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("xbarstore: encode %q: %w", s.ID(), err)
	}
	return data, nil
}

// metaEnvelope 只解析快照中的 __meta 段。
type metaEnvelope struct {
	Meta xbar.Meta `json:"__meta"`
}

func decodeMeta(data []byte) (xbar.Meta, error) {
	var env metaEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return xbar.Meta{}, fmt.Errorf("%w: %w", xbar.ErrInvalidSnapshot, err)
	}
	return env.Meta, nil
}

// newestFirst 按 utime 倒序，相同时按 id 倒序保证稳定。
func newestFirst(metas []xbar.Meta) {
	slices.SortFunc(metas, func(a, b xbar.Meta) int {
		if c := cmp.Compare(b.Utime, a.Utime); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

// page 对已排序的元数据应用过滤、偏移与条数限制。
func page(metas []xbar.Meta, f xbar.Filter) []xbar.Meta {
	f = f.Normalize()
	out := make([]xbar.Meta, 0, min(f.Max, len(metas)))
	skipped := 0
	for _, m := range metas {
		if !f.Match(m) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, m)
		if len(out) == f.Max {
			break
		}
	}
	return out
}

// unixSeconds 与 Meta.Utime 同单位。
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
