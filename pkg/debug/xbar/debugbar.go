package xbar

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/omeyang/xbar/pkg/config/xconf"
	"github.com/omeyang/xbar/pkg/debug/xcollect"
	"github.com/omeyang/xbar/pkg/observability/xlog"
	"github.com/omeyang/xbar/pkg/observability/xmetrics"
)

// Debugbar 单个请求（或一次命令行调用）的调试栏实例。
//
// 所有方法对 nil 接收者安全：FromContext 在没有调试栏时返回 nil，
// 业务代码可以直接调用而无需判空。
type Debugbar struct {
	opts     *options
	cfg      xconf.Source
	gate     Gate
	ctx      context.Context
	registry *Registry

	mu     sync.Mutex
	booted bool
	id     string
}

// New 创建调试栏。cfg 是共享的基础配置，Enable/Disable 只写入本实例的覆盖层。
func New(cfg xconf.Source, opts ...Option) *Debugbar {
	return newDebugbar(cfg, applyOptions(opts))
}

func newDebugbar(cfg xconf.Source, o *options) *Debugbar {
	if cfg == nil {
		cfg = xconf.NewFromMap(nil)
	}
	overlay := xconf.Overlay(cfg)
	ctx := context.Background()
	if o.request != nil {
		ctx = o.request.Context()
	}
	return &Debugbar{
		opts:     o,
		cfg:      overlay,
		gate:     NewGate(overlay),
		ctx:      ctx,
		registry: NewRegistry(),
	}
}

// Config 返回请求级配置（覆盖层）。
func (d *Debugbar) Config() xconf.Source {
	if d == nil {
		return nil
	}
	return d.cfg
}

// Gate 返回采集器开关读取器。
func (d *Debugbar) Gate() Gate {
	if d == nil {
		return Gate{}
	}
	return d.gate
}

// IsEnabled 读取 enabled，默认 false。
func (d *Debugbar) IsEnabled() bool {
	return d != nil && d.cfg.Bool("enabled", false)
}

// Enable 在本实例内启用调试栏，尚未启动时随即 Boot。
func (d *Debugbar) Enable() {
	if d == nil {
		return
	}
	_ = d.cfg.Set("enabled", true)
	d.Boot()
}

// Disable 在本实例内禁用调试栏，已注册的采集器保持不变。
func (d *Debugbar) Disable() {
	if d == nil {
		return
	}
	_ = d.cfg.Set("enabled", false)
}

// IsBooted 判断是否已经启动。
func (d *Debugbar) IsBooted() bool {
	if d == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.booted
}

// Boot 按配置注册采集器并挂载钩子。只执行一次，重复调用无效果。
func (d *Debugbar) Boot() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if d.booted {
		d.mu.Unlock()
		return
	}
	d.booted = true
	d.mu.Unlock()

	start := d.opts.now()
	d.boot()
	d.opts.logger.Debug(internalContext(d.ctx), "debugbar booted",
		xlog.Component("xbar"),
		slog.Int("collectors", d.registry.Len()),
		xlog.Duration(d.opts.now().Sub(start)),
	)
}

// CurrentRequestID 返回本实例的快照 id，首次调用时生成。
func (d *Debugbar) CurrentRequestID() string {
	if d == nil {
		return ""
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.id == "" {
		d.id = d.opts.newID()
	}
	return d.id
}

// -----------------------------------------------------------------------------
// 采集器
// -----------------------------------------------------------------------------

// AddCollector 注册采集器，同名已存在时返回 ErrDuplicateCollector。
func (d *Debugbar) AddCollector(c Collector) error {
	if d == nil {
		return ErrNilCollector
	}
	return d.registry.Add(c)
}

// HasCollector 判断采集器是否存在。
func (d *Debugbar) HasCollector(name string) bool {
	return d != nil && d.registry.Has(name)
}

// Collector 返回采集器，不存在时返回 ErrNotFound。
func (d *Debugbar) Collector(name string) (Collector, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: collector %q", ErrNotFound, name)
	}
	return d.registry.Get(name)
}

// CollectorNames 返回按注册顺序排列的采集器名称。
func (d *Debugbar) CollectorNames() []string {
	if d == nil {
		return nil
	}
	return d.registry.Names()
}

// collectorAs 按名称取出采集器并断言为 T。
func collectorAs[T any](d *Debugbar, name string) (T, bool) {
	var zero T
	if d == nil {
		return zero, false
	}
	c, err := d.registry.Get(name)
	if err != nil {
		return zero, false
	}
	t, ok := c.(T)
	return t, ok
}

// -----------------------------------------------------------------------------
// 时间线
// -----------------------------------------------------------------------------

// StartMeasure 开始一个测量，没有 time 采集器时为空操作。
func (d *Debugbar) StartMeasure(name, label string) {
	if tc, ok := collectorAs[*xcollect.TimeCollector](d, "time"); ok {
		tc.StartMeasure(name, label, "")
	}
}

// StopMeasure 停止测量。测量未运行时静默忽略。
func (d *Debugbar) StopMeasure(name string) {
	if tc, ok := collectorAs[*xcollect.TimeCollector](d, "time"); ok {
		_ = tc.StopMeasure(name, nil)
	}
}

// AddMeasure 添加一个已完成的测量。
func (d *Debugbar) AddMeasure(label string, start, end time.Time) {
	if tc, ok := collectorAs[*xcollect.TimeCollector](d, "time"); ok {
		tc.AddMeasure(label, start, end, nil, "")
	}
}

// Measure 测量 fn 的执行时间。fn 的错误原样返回，panic 在测量记录后继续传播。
// 没有 time 采集器时直接执行 fn。
func (d *Debugbar) Measure(label string, fn func() error) error {
	if tc, ok := collectorAs[*xcollect.TimeCollector](d, "time"); ok {
		return tc.Measure(label, fn)
	}
	return fn()
}

// -----------------------------------------------------------------------------
// 错误与消息
// -----------------------------------------------------------------------------

// AddException 记录错误，没有 exceptions 采集器时丢弃。
func (d *Debugbar) AddException(err error) {
	if ec, ok := collectorAs[*xcollect.ExceptionsCollector](d, "exceptions"); ok {
		ec.AddException(err)
	}
}

type messageAdder interface {
	AddMessage(msg any, level Level)
}

// AddMessage 向 messages 面板添加消息，非法级别按 info 处理。
func (d *Debugbar) AddMessage(msg any, level Level) {
	if m, ok := collectorAs[messageAdder](d, "messages"); ok {
		m.AddMessage(msg, level)
	}
}

// Emergency 添加 emergency 级别消息。
func (d *Debugbar) Emergency(msg any) { d.AddMessage(msg, LevelEmergency) }

// Alert 添加 alert 级别消息。
func (d *Debugbar) Alert(msg any) { d.AddMessage(msg, LevelAlert) }

// Critical 添加 critical 级别消息。
func (d *Debugbar) Critical(msg any) { d.AddMessage(msg, LevelCritical) }

// Error 添加 error 级别消息。
func (d *Debugbar) Error(msg any) { d.AddMessage(msg, LevelError) }

// Warning 添加 warning 级别消息。
func (d *Debugbar) Warning(msg any) { d.AddMessage(msg, LevelWarning) }

// Notice 添加 notice 级别消息。
func (d *Debugbar) Notice(msg any) { d.AddMessage(msg, LevelNotice) }

// Info 添加 info 级别消息。
func (d *Debugbar) Info(msg any) { d.AddMessage(msg, LevelInfo) }

// Debug 添加 debug 级别消息。
func (d *Debugbar) Debug(msg any) { d.AddMessage(msg, LevelDebug) }

// Log 添加 log 级别消息。
func (d *Debugbar) Log(msg any) { d.AddMessage(msg, LevelLog) }

// -----------------------------------------------------------------------------
// 快照
// -----------------------------------------------------------------------------

// Collect 汇总全部采集器生成快照，配置了存储时同时保存。
// 每次调用都生成新的快照，之前的快照不受影响。
func (d *Debugbar) Collect() *Snapshot {
	if d == nil {
		return nil
	}
	snap, _ := d.collect(d.ctx)
	return snap
}

// collect 生成并保存快照，返回是否保存成功。
func (d *Debugbar) collect(ctx context.Context) (*Snapshot, bool) {
	_, span := xmetrics.Start(ctx, d.opts.observer, xmetrics.SpanOptions{
		Component: "xbar",
		Operation: "collect",
	})
	meta := newMeta(d.CurrentRequestID(), d.opts.now())
	if r := d.opts.request; r != nil {
		meta.Method = r.Method
		meta.URI = r.URL.RequestURI()
		meta.IP = d.opts.clientIP.ClientIP(r)
	}
	snap := NewSnapshot(meta, d.registry.collectors()...)
	span.End(xmetrics.Result{Attrs: []xmetrics.Attr{xmetrics.Int("collectors", snap.Len())}})

	d.recordSize(ctx, snap)
	return snap, d.save(ctx, snap)
}

func (d *Debugbar) recordSize(ctx context.Context, snap *Snapshot) {
	if _, ok := d.opts.observer.(xmetrics.SizeRecorder); !ok {
		return
	}
	if data, err := snap.MarshalJSON(); err == nil {
		xmetrics.RecordSize(ctx, d.opts.observer, "xbar", len(data))
	}
}

// save 在配置了存储时保存快照。保存失败只记录日志。
func (d *Debugbar) save(ctx context.Context, snap *Snapshot) bool {
	if d.opts.storage == nil {
		return false
	}
	ctx, span := xmetrics.Start(ctx, d.opts.observer, xmetrics.SpanOptions{
		Component: "xbar",
		Operation: "storage.save",
		Kind:      xmetrics.KindClient,
	})
	err := d.opts.storage.Save(ctx, snap)
	span.End(xmetrics.Result{Err: err})
	if err != nil {
		d.opts.logger.Warn(internalContext(ctx), "save snapshot failed", xlog.Component("xbar"), xlog.RequestID(snap.ID()), xlog.Err(err))
		return false
	}
	return true
}

// -----------------------------------------------------------------------------
// 钩子挂载
// -----------------------------------------------------------------------------

// attach 执行一次挂载，错误或 panic 被包装为 CollectorAttachError 记录到 exceptions。
func (d *Debugbar) attach(name string, fn func() error) {
	err := safeCall(fn)
	if err == nil {
		return
	}
	attachErr := &CollectorAttachError{Collector: name, Err: err}
	d.opts.logger.Debug(internalContext(d.ctx), "collector attach failed", xlog.Component(name), xlog.Err(err))
	d.AddException(attachErr)
}

// attachHook 与 attach 相同，但没有宿主时直接跳过（命令行模式）。
func (d *Debugbar) attachHook(name string, fn func(host any) error) {
	host := d.opts.host
	if host == nil {
		return
	}
	d.attach(name, func() error { return fn(host) })
}

// addBootCollector 注册采集器，失败时记录挂载错误并返回 false。
func (d *Debugbar) addBootCollector(c Collector) bool {
	added := false
	d.attach(c.Name(), func() error {
		if err := d.registry.Add(c); err != nil {
			return err
		}
		added = true
		return nil
	})
	return added
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", e)
				return
			}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// routePrefix 返回去掉首尾斜杠的路由前缀。
func routePrefix(cfg xconf.Source) string {
	p := strings.Trim(cfg.String("route_prefix", "_debugbar"), "/")
	if p == "" {
		return "_debugbar"
	}
	return p
}

