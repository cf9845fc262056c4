package xbar

import (
	"github.com/omeyang/xbar/pkg/debug/xcollect"
	"github.com/omeyang/xbar/pkg/observability/xlog"
)

// boot 按固定顺序注册采集器。
func (d *Debugbar) boot() {
	g := d.gate
	clock := xcollect.WithClock(d.opts.now)

	if g.ShouldCollect("runtime", true) {
		d.addBootCollector(xcollect.NewRuntime())
	}

	var messages *xcollect.MessagesCollector
	if g.ShouldCollect("messages", true) {
		m := xcollect.NewMessages("messages", clock)
		if d.addBootCollector(m) {
			messages = m
		}
	}

	if g.ShouldCollect("time", true) {
		d.bootTime(clock)
	}

	if g.ShouldCollect("memory", true) {
		d.addBootCollector(xcollect.NewMemory())
	}

	if g.ShouldCollect("exceptions", true) {
		ec := xcollect.NewExceptions(g.OptionBool("exceptions", "chain", true))
		if d.addBootCollector(ec) {
			d.attachHook("exceptions", func(host any) error {
				h, ok := host.(ErrorHook)
				if !ok {
					return hookUnavailable("ErrorHook")
				}
				h.OnError(ec.AddException)
				return nil
			})
		}
	}

	if g.ShouldCollect("app", false) {
		d.addBootCollector(xcollect.NewApp(xcollect.AppInfo{
			Name:        d.cfg.String("app.name", ""),
			Version:     d.cfg.String("app.version", ""),
			Environment: d.cfg.String("app.env", ""),
			Locale:      d.cfg.String("app.locale", ""),
		}))
	}

	if g.ShouldCollect("default_request", false) && d.opts.request != nil {
		d.addBootCollector(xcollect.NewRequestInput(d.opts.request))
	}

	if g.ShouldCollect("events", false) {
		events := xcollect.NewMessages("events", clock)
		if d.addBootCollector(events) {
			d.attachHook("events", func(host any) error {
				h, ok := host.(EventHook)
				if !ok {
					return hookUnavailable("EventHook")
				}
				h.OnEvent(func(name string, _ any) {
					events.Info("Received event: " + name)
				})
				return nil
			})
		}
	}

	if g.ShouldCollect("views", true) {
		views := xcollect.NewViews(g.OptionBool("views", "data", true))
		if d.addBootCollector(views) {
			d.attachHook("views", func(host any) error {
				h, ok := host.(ViewHook)
				if !ok {
					return hookUnavailable("ViewHook")
				}
				h.OnView(views.AddView)
				return nil
			})
		}
	}

	if g.ShouldCollect("route", false) {
		route := xcollect.NewRoute()
		if d.addBootCollector(route) {
			d.attachHook("route", func(host any) error {
				h, ok := host.(RouteHook)
				if !ok {
					return hookUnavailable("RouteHook")
				}
				h.OnRoute(route.SetRoute)
				return nil
			})
		}
	}

	if g.ShouldCollect("log", true) {
		d.bootLog(messages, clock)
	}

	if g.ShouldCollect("db", true) {
		d.bootDB(clock)
	}

	if g.ShouldCollect("mail", true) {
		d.bootMail(messages, clock)
	}

	if g.ShouldCollect("logs", false) {
		d.attach("logs", func() error {
			lc, err := xcollect.NewLogs(g.OptionString("logs", "file", ""), g.OptionInt("logs", "lines", 0))
			if err != nil {
				return err
			}
			return d.registry.Add(lc)
		})
	}

	if g.ShouldCollect("files", false) {
		d.addBootCollector(xcollect.NewFiles())
	}

	if g.ShouldCollect("auth", false) {
		d.attachHook("auth", func(host any) error {
			h, ok := host.(AuthResolver)
			if !ok {
				return hookUnavailable("AuthResolver")
			}
			user := func() (AuthUser, bool) { return h.User(d.ctx) }
			return d.registry.Add(xcollect.NewAuth(user, g.OptionBool("auth", "show_name", false)))
		})
	}

	if g.ShouldCollect("trace", true) {
		d.addBootCollector(xcollect.NewTrace(d.ctx))
	}
}

// bootTime 注册时间线。已知启动时间时补一个 Booting 测量；
// application 测量在宿主已启动时立即开始，否则在 Before 时开始，After 时切换为 after。
func (d *Debugbar) bootTime(clock xcollect.Option) {
	start := d.opts.bootStart
	tc := xcollect.NewTime(start, clock)
	if !d.addBootCollector(tc) {
		return
	}
	if !start.IsZero() {
		tc.AddMeasure("Booting", start, d.opts.now(), nil, "")
	}

	d.attachHook("time", func(host any) error {
		startApp := func() { tc.StartMeasure("application", "Application", "") }
		if br, ok := host.(BootedReporter); ok && br.Booted() {
			startApp()
		} else if h, ok := host.(BeforeHook); ok {
			h.OnBefore(startApp)
		} else {
			return hookUnavailable("BeforeHook")
		}

		h, ok := host.(AfterHook)
		if !ok {
			return hookUnavailable("AfterHook")
		}
		h.OnAfter(func() {
			_ = tc.StopMeasure("application", nil)
			tc.StartMeasure("after", "After application", "")
		})
		return nil
	})
}

// bootLog 有 messages 面板时把日志并入其中，否则注册独立的 log 面板。
func (d *Debugbar) bootLog(messages *xcollect.MessagesCollector, clock xcollect.Option) {
	var sink *xcollect.MessagesCollector
	if messages != nil {
		sink = xcollect.NewMessages("log", clock)
		messages.Aggregate(sink)
	} else {
		lc := xcollect.NewLog(clock)
		if !d.addBootCollector(lc) {
			return
		}
		sink = lc.MessagesCollector
	}

	d.attachHook("log", func(host any) error {
		h, ok := host.(LogHook)
		if !ok {
			return hookUnavailable("LogHook")
		}
		h.OnLog(func(ev LogEvent) {
			if err := xcollect.AppendLog(sink, ev); err != nil {
				d.opts.logger.Debug(internalContext(d.ctx), "log line replaced", xlog.Component("log"), xlog.Err(err))
			}
		})
		return nil
	})
}

// bootDB 仅在宿主提供 QueryHook 时注册 db 面板。
// 连接实现 LoggingReporter 且关闭了记录时，该连接的语句被忽略。
func (d *Debugbar) bootDB(clock xcollect.Option) {
	h, ok := d.opts.host.(QueryHook)
	if !ok {
		return
	}
	var timeline *xcollect.TimeCollector
	if d.gate.OptionBool("db", "timeline", false) {
		timeline, _ = collectorAs[*xcollect.TimeCollector](d, "time")
	}
	qc := xcollect.NewQueries(timeline, d.gate.OptionBool("db", "with_params", true), clock)
	if !d.addBootCollector(qc) {
		return
	}

	resolver, _ := d.opts.host.(ConnectionResolver)
	d.attach("db", func() error {
		h.OnQuery(func(ev QueryEvent) {
			if !connectionLogging(resolver, ev.Connection) {
				return
			}
			qc.AddQuery(ev)
		})
		return nil
	})
}

func connectionLogging(resolver ConnectionResolver, name string) bool {
	if resolver == nil {
		return true
	}
	if lr, ok := resolver.Connection(name).(LoggingReporter); ok {
		return lr.Logging()
	}
	return true
}

// bootMail 仅在宿主提供 MailHook 时注册 mail 面板。
// options.mail.full_log 为 true 时，另把每封邮件的摘要写入并入 messages 的 maillog。
func (d *Debugbar) bootMail(messages *xcollect.MessagesCollector, clock xcollect.Option) {
	h, ok := d.opts.host.(MailHook)
	if !ok {
		return
	}
	mc := xcollect.NewMail()
	if !d.addBootCollector(mc) {
		return
	}

	var maillog *xcollect.MessagesCollector
	if messages != nil && d.gate.OptionBool("mail", "full_log", false) {
		maillog = xcollect.NewMessages("maillog", clock)
		messages.Aggregate(maillog)
	}
	d.attach("mail", func() error {
		h.OnMail(func(ev MailEvent) {
			mc.AddMail(ev)
			if maillog != nil {
				maillog.Info(xcollect.MailLogLine(ev))
			}
		})
		return nil
	})
}
