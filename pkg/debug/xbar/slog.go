package xbar

import (
	"context"
	"log/slog"
	"slices"
)

// slogHandler 把日志记录同时转发给 ctx 中 Dispatcher 的 LogHook。
type slogHandler struct {
	next   slog.Handler
	attrs  []slog.Attr
	groups []string
}

// SlogHandler 包装 next，使经过 ctx 的日志出现在 log 面板中。next 为 nil 时只转发给调试栏。
// 可以通过 xlog.Builder.SetHandlerWrapper 安装。
func SlogHandler(next slog.Handler) slog.Handler {
	return &slogHandler{next: next}
}

func (h *slogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if _, ok := DispatcherFromContext(ctx); ok {
		return true
	}
	return h.next != nil && h.next.Enabled(ctx, level)
}

func (h *slogHandler) Handle(ctx context.Context, r slog.Record) error {
	if d, ok := DispatcherFromContext(ctx); ok {
		d.Log(LogEvent{
			Time:    r.Time,
			Level:   levelFromSlog(r.Level),
			Message: r.Message,
			Context: h.recordContext(r),
		})
	}
	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := h.clone()
	for _, a := range attrs {
		c.attrs = append(c.attrs, qualify(h.groups, a))
	}
	if h.next != nil {
		c.next = h.next.WithAttrs(attrs)
	}
	return c
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.groups = append(c.groups, name)
	if h.next != nil {
		c.next = h.next.WithGroup(name)
	}
	return c
}

func (h *slogHandler) clone() *slogHandler {
	return &slogHandler{
		next:   h.next,
		attrs:  slices.Clip(h.attrs),
		groups: slices.Clip(h.groups),
	}
}

// recordContext 展开属性，分组以点号连接成键名。
func (h *slogHandler) recordContext(r slog.Record) map[string]any {
	if len(h.attrs) == 0 && r.NumAttrs() == 0 {
		return nil
	}
	out := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		flatten(out, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(out, "", qualify(h.groups, a))
		return true
	})
	return out
}

// qualify 给属性键加上当前分组前缀。
func qualify(groups []string, a slog.Attr) slog.Attr {
	for i := len(groups) - 1; i >= 0; i-- {
		a = slog.Attr{Key: groups[i], Value: slog.GroupValue(a)}
	}
	return a
}

func flatten(out map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if v.Kind() == slog.KindGroup {
		// 匿名分组的属性直接并入上层
		if a.Key == "" {
			key = prefix
		}
		for _, ga := range v.Group() {
			flatten(out, key, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	if err, ok := v.Any().(error); ok {
		out[key] = err.Error()
		return
	}
	out[key] = v.Any()
}

func levelFromSlog(l slog.Level) Level {
	switch {
	case l >= slog.LevelError:
		return LevelError
	case l >= slog.LevelWarn:
		return LevelWarning
	case l >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}
