package xbarstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xbar/pkg/debug/xbar"
)

// DefaultRedisPrefix Redis 键前缀。
const DefaultRedisPrefix = "xbar"

// redisScanBatch Find 每次从索引读取的 id 数量。
const redisScanBatch = 100

// Redis 快照存储。
//
// 键布局（prefix 默认为 "xbar"）：
//   - <prefix>:data  哈希，id → 快照 JSON
//   - <prefix>:meta  哈希，id → __meta JSON
//   - <prefix>:index 有序集合，score 为 utime
type Redis struct {
	client redis.UniversalClient
	prefix string
	owned  bool
}

var _ Store = (*Redis)(nil)

// RedisOption 配置 Redis 存储。
type RedisOption func(*Redis)

// WithRedisPrefix 设置键前缀。空字符串被忽略。
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// withOwnedClient Close 时关闭客户端。仅用于 FromConfig 自建的客户端。
func withOwnedClient() RedisOption {
	return func(r *Redis) { r.owned = true }
}

// NewRedis 使用已有客户端创建存储。
func NewRedis(client redis.UniversalClient, opts ...RedisOption) (*Redis, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	r := &Redis{client: client, prefix: DefaultRedisPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Redis) dataKey() string  { return r.prefix + ":data" }
func (r *Redis) metaKey() string  { return r.prefix + ":meta" }
func (r *Redis) indexKey() string { return r.prefix + ":index" }

func (r *Redis) Save(ctx context.Context, s *xbar.Snapshot) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	m := s.Meta()
	meta, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("xbarstore: encode meta %q: %w", m.ID, err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.dataKey(), m.ID, data)
		pipe.HSet(ctx, r.metaKey(), m.ID, meta)
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: m.Utime, Member: m.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("xbarstore: save %q: %w", m.ID, err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, id string) (*xbar.Snapshot, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	data, err := r.client.HGet(ctx, r.dataKey(), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("xbarstore: get %q: %w", id, err)
	}
	return xbar.ParseSnapshot(data)
}

// Find 按索引从新到旧分批读取元数据直到凑满一页。
func (r *Redis) Find(ctx context.Context, f xbar.Filter) ([]xbar.Meta, error) {
	f = f.Normalize()
	out := make([]xbar.Meta, 0, f.Max)
	skipped := 0
	for start := int64(0); ; start += redisScanBatch {
		ids, err := r.client.ZRevRange(ctx, r.indexKey(), start, start+redisScanBatch-1).Result()
		if err != nil {
			return nil, fmt.Errorf("xbarstore: find: %w", err)
		}
		if len(ids) == 0 {
			return out, nil
		}
		vals, err := r.client.HMGet(ctx, r.metaKey(), ids...).Result()
		if err != nil {
			return nil, fmt.Errorf("xbarstore: find: %w", err)
		}
		for _, v := range vals {
			raw, ok := v.(string)
			if !ok {
				continue
			}
			var m xbar.Meta
			if json.Unmarshal([]byte(raw), &m) != nil || !f.Match(m) {
				continue
			}
			if skipped < f.Offset {
				skipped++
				continue
			}
			out = append(out, m)
			if len(out) == f.Max {
				return out, nil
			}
		}
	}
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.dataKey(), r.metaKey(), r.indexKey()).Err(); err != nil {
		return fmt.Errorf("xbarstore: clear: %w", err)
	}
	return nil
}

func (r *Redis) Prune(ctx context.Context, before time.Time) (int, error) {
	maxScore := "(" + strconv.FormatFloat(unixSeconds(before), 'f', -1, 64)
	ids, err := r.client.ZRangeByScore(ctx, r.indexKey(), &redis.ZRangeBy{Min: "-inf", Max: maxScore}).Result()
	if err != nil {
		return 0, fmt.Errorf("xbarstore: prune: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, r.dataKey(), ids...)
		pipe.HDel(ctx, r.metaKey(), ids...)
		pipe.ZRem(ctx, r.indexKey(), members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("xbarstore: prune: %w", err)
	}
	return len(ids), nil
}

// Client 返回底层客户端。
func (r *Redis) Client() redis.UniversalClient { return r.client }

func (r *Redis) Close(context.Context) error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}
