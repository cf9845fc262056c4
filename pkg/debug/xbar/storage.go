package xbar

import (
	"context"
	"strings"
)

// Storage 快照持久化。
type Storage interface {
	// Save 保存快照，同 id 覆盖。
	Save(ctx context.Context, s *Snapshot) error

	// Get 读取快照，不存在时返回包装了 ErrNotFound 的错误。
	Get(ctx context.Context, id string) (*Snapshot, error)
}

// Finder 可选能力：按条件列出快照元数据，按时间倒序。
type Finder interface {
	Find(ctx context.Context, f Filter) ([]Meta, error)
}

// Clearer 可选能力：清空全部快照。
type Clearer interface {
	Clear(ctx context.Context) error
}

// DefaultFindMax Find 默认返回的最大条数。
const DefaultFindMax = 20

// Filter Find 的查询条件。字符串条件为空表示不过滤。
type Filter struct {
	Max    int
	Offset int
	Method string
	URI    string
	IP     string
}

// Normalize 返回填充默认值后的条件：Max <= 0 时使用 DefaultFindMax，Offset 不为负。
func (f Filter) Normalize() Filter {
	if f.Max <= 0 {
		f.Max = DefaultFindMax
	}
	f.Offset = max(f.Offset, 0)
	return f
}

// Match 判断元数据是否满足条件。Method 精确匹配（忽略大小写），URI 与 IP 为子串匹配。
func (f Filter) Match(m Meta) bool {
	if f.Method != "" && !strings.EqualFold(f.Method, m.Method) {
		return false
	}
	if f.URI != "" && !strings.Contains(m.URI, f.URI) {
		return false
	}
	if f.IP != "" && !strings.Contains(m.IP, f.IP) {
		return false
	}
	return true
}
