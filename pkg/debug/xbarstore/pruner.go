package xbarstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/omeyang/xbar/pkg/observability/xlog"
)

// 清理任务默认参数。
const (
	DefaultPruneSchedule = "@every 10m"
	DefaultPruneMaxAge   = 24 * time.Hour
)

// PruneJob 按 cron 表达式定期删除过期快照。
type PruneJob struct {
	cron   *cron.Cron
	store  Pruner
	maxAge time.Duration
	logger xlog.Logger
	now    func() time.Time
	lock   PruneLocker
}

// PruneOption 配置 PruneJob。
type PruneOption func(*PruneJob)

// WithPruneLogger 设置日志。默认丢弃。
func WithPruneLogger(l xlog.Logger) PruneOption {
	return func(p *PruneJob) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPruneClock 替换时钟，测试用。
func WithPruneClock(now func() time.Time) PruneOption {
	return func(p *PruneJob) {
		if now != nil {
			p.now = now
		}
	}
}

// WithPruneLock 定时清理前先获取 lock，未获取到时跳过本轮。RunOnce 不受影响。
func WithPruneLock(lock PruneLocker) PruneOption {
	return func(p *PruneJob) { p.lock = lock }
}

// NewPruneJob 创建清理任务。schedule 为标准五段 cron 表达式或 @every 描述符，
// 空字符串使用 DefaultPruneSchedule；maxAge <= 0 使用 DefaultPruneMaxAge。
func NewPruneJob(store Pruner, schedule string, maxAge time.Duration, opts ...PruneOption) (*PruneJob, error) {
	if store == nil {
		return nil, ErrNilClient
	}
	if schedule == "" {
		schedule = DefaultPruneSchedule
	}
	if maxAge <= 0 {
		maxAge = DefaultPruneMaxAge
	}
	p := &PruneJob{
		cron:   cron.New(),
		store:  store,
		maxAge: maxAge,
		logger: xlog.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if _, err := p.cron.AddFunc(schedule, p.tick); err != nil {
		return nil, fmt.Errorf("xbarstore: prune schedule %q: %w", schedule, err)
	}
	return p, nil
}

// Start 启动调度，非阻塞。
func (p *PruneJob) Start() { p.cron.Start() }

// Stop 停止调度并等待正在执行的清理结束，或 ctx 结束。
func (p *PruneJob) Stop(ctx context.Context) error {
	done := p.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce 立即执行一次清理。
func (p *PruneJob) RunOnce(ctx context.Context) (int, error) {
	return p.store.Prune(ctx, p.now().Add(-p.maxAge))
}

func (p *PruneJob) tick() {
	ctx := context.Background()
	if p.lock != nil {
		unlock, err := p.lock.TryLock(ctx)
		if unlock == nil {
			if err != nil {
				p.logger.Warn(ctx, "prune lock failed", xlog.Err(err))
			} else {
				p.logger.Debug(ctx, "prune skipped, lock held elsewhere")
			}
			return
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				p.logger.Warn(ctx, "prune unlock failed", xlog.Err(err))
			}
		}()
	}
	n, err := p.RunOnce(ctx)
	if err != nil {
		p.logger.Warn(ctx, "prune snapshots failed", xlog.Err(err))
		return
	}
	if n > 0 {
		p.logger.Debug(ctx, "pruned snapshots", slog.Int("count", n), xlog.Duration(p.maxAge))
	}
}
