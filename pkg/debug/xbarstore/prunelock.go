package xbarstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// DefaultPruneLockExpiry 清理锁的过期时间，需长于一次清理的耗时。
const DefaultPruneLockExpiry = 5 * time.Minute

// PruneLocker 多个实例共享同一存储时，保证同一时刻只有一个实例执行定时清理。
type PruneLocker interface {
	// TryLock 非阻塞获取锁。锁被其它实例持有时返回 (nil, nil)。
	TryLock(ctx context.Context) (unlock func(ctx context.Context) error, err error)
}

// RedisPruneLock 基于 redsync 的清理锁。
type RedisPruneLock struct {
	rs     *redsync.Redsync
	name   string
	expiry time.Duration
}

var _ PruneLocker = (*RedisPruneLock)(nil)

// NewRedisPruneLock 创建清理锁，name 为锁的 Redis 键。
// expiry <= 0 使用 DefaultPruneLockExpiry。
func NewRedisPruneLock(client redis.UniversalClient, name string, expiry time.Duration) (*RedisPruneLock, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if name == "" {
		name = DefaultRedisPrefix + ":prune"
	}
	if expiry <= 0 {
		expiry = DefaultPruneLockExpiry
	}
	return &RedisPruneLock{
		rs:     redsync.New(goredis.NewPool(client)),
		name:   name,
		expiry: expiry,
	}, nil
}

// TryLock 实现 PruneLocker。
func (l *RedisPruneLock) TryLock(ctx context.Context) (func(ctx context.Context) error, error) {
	mutex := l.rs.NewMutex(l.name, redsync.WithExpiry(l.expiry), redsync.WithTries(1))
	if err := mutex.TryLockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.As(err, &taken) || errors.Is(err, redsync.ErrFailed) {
			return nil, nil
		}
		return nil, fmt.Errorf("xbarstore: prune lock %q: %w", l.name, err)
	}
	return func(ctx context.Context) error {
		if _, err := mutex.UnlockContext(ctx); err != nil && !errors.Is(err, redsync.ErrLockAlreadyExpired) {
			return fmt.Errorf("xbarstore: prune unlock %q: %w", l.name, err)
		}
		return nil
	}, nil
}

// pruneLockFor 为 Redis 存储（可能被 Resilient 包装）创建使用同一前缀的清理锁。
func pruneLockFor(store Pruner) (*RedisPruneLock, bool) {
	if r, ok := store.(*Resilient); ok {
		store = r.Unwrap()
	}
	rs, ok := store.(*Redis)
	if !ok {
		return nil, false
	}
	lock, err := NewRedisPruneLock(rs.Client(), rs.prefix+":prune", 0)
	if err != nil {
		return nil, false
	}
	return lock, true
}
