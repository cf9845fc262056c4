package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xbar/pkg/config/xconf"
	"github.com/omeyang/xbar/pkg/debug/xbar"
	"github.com/omeyang/xbar/pkg/debug/xbarstore"
	"github.com/omeyang/xbar/pkg/lifecycle/xrun"
	"github.com/omeyang/xbar/pkg/observability/xlog"
	"github.com/omeyang/xbar/pkg/observability/xmetrics"
)

const (
	defaultAddr     = "127.0.0.1:8080"
	shutdownTimeout = 10 * time.Second
)

// createServeCommand 创建 serve 子命令。
func createServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "启动演示 HTTP 服务，响应中注入调试栏",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Aliases: []string{"a"}, Usage: "监听地址", Value: defaultAddr},
			&cli.BoolFlag{Name: "enable", Usage: "忽略配置中的 enabled，强制启用调试栏"},
			&cli.StringSliceFlag{Name: "trusted-proxy", Usage: "受信任的代理地址或网段（可重复）"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Bool("enable") {
				_ = cfg.Set("enabled", true)
			}
			return cmdServe(ctx, cmd, cfg)
		},
	}
}

func cmdServe(ctx context.Context, cmd *cli.Command, cfg *xconf.Config) error {
	// 业务日志同时进入当前请求的 log 面板
	logger, cleanup, err := newLogger(cmd, xbar.SlogHandler)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	ips, err := xbar.NewClientIPResolver(cmd.StringSlice("trusted-proxy")...)
	if err != nil {
		return usagef("%v", err)
	}
	observer, err := xmetrics.NewOTelObserver(xmetrics.WithInstrumentationName("xbarctl"))
	if err != nil {
		return err
	}

	store, err := xbarstore.FromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	opts := []xbar.Option{
		xbar.WithLogger(logger),
		xbar.WithObserver(observer),
		xbar.WithClientIP(ips),
		xbar.WithUserResolver(demoUser),
	}
	var services []xrun.Service
	if store != nil {
		defer func() { _ = store.Close(context.WithoutCancel(ctx)) }()
		opts = append(opts, xbar.WithStorage(store))

		job, err := xbarstore.PruneJobFromConfig(store, cfg, xbarstore.WithPruneLogger(logger))
		if err != nil {
			return usagef("%v", err)
		}
		if job != nil {
			services = append(services, xrun.Named("prune", xrun.Background(job.Start, job.Stop, shutdownTimeout)))
		}
	}

	if cfg.Path() != "" {
		w, err := xconf.Watch(cfg, func(_ *xconf.Config, err error) {
			if err != nil {
				logger.Warn(ctx, "debugbar config reload failed", xlog.Err(err))
				return
			}
			logger.Info(ctx, "debugbar config reloaded", slog.String("path", cfg.Path()))
		})
		if err != nil {
			return err
		}
		services = append(services, xrun.Named("config-watch", xrun.Background(w.StartAsync, func(context.Context) error {
			return w.Stop()
		}, shutdownTimeout)))
	}

	srv := &http.Server{
		Addr:              cmd.String("addr"),
		Handler:           xbar.NewMiddleware(cfg, opts...)(newDemoMux(logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	services = append(services, xrun.Named("http", xrun.HTTPServer(srv, shutdownTimeout)))

	logger.Info(ctx, "xbarctl serving",
		slog.String("addr", srv.Addr),
		slog.Bool("debugbar", cfg.Bool("enabled", false)),
		slog.String("storage", storageDriver(cfg, store)),
	)
	err = xrun.Run(ctx, []xrun.Option{xrun.WithLogger(logger), xrun.WithName("xbarctl")}, services...)
	if errors.Is(err, xrun.ErrSignal) {
		return nil
	}
	return err
}

func storageDriver(cfg xconf.Source, store xbarstore.Store) string {
	if store == nil {
		return "disabled"
	}
	return cfg.String("storage.driver", xbarstore.DriverFile)
}
