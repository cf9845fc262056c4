package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xbar/pkg/config/xconf"
	"github.com/omeyang/xbar/pkg/debug/xbar"
	"github.com/omeyang/xbar/pkg/debug/xbarstore"
	"github.com/omeyang/xbar/pkg/observability/xlog"
)

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createServeCommand(),
		createListCommand(),
		createShowCommand(),
		createClearCommand(),
		createPruneCommand(),
		createConsoleCommand(),
		createDefaultsCommand(),
	}
}

// createListCommand 创建 list 子命令。
func createListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "按条件列出已保存的快照（新的在前）",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "max", Aliases: []string{"n"}, Usage: "最多返回条数", Value: xbar.DefaultFindMax},
			&cli.IntFlag{Name: "offset", Usage: "跳过的条数"},
			&cli.StringFlag{Name: "method", Usage: "HTTP 方法（忽略大小写）"},
			&cli.StringFlag{Name: "uri", Usage: "URI 子串"},
			&cli.StringFlag{Name: "ip", Usage: "客户端 IP 子串"},
			&cli.BoolFlag{Name: "json", Usage: "以 JSON 数组输出"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f := xbar.Filter{
				Max:    int(cmd.Int("max")),
				Offset: int(cmd.Int("offset")),
				Method: cmd.String("method"),
				URI:    cmd.String("uri"),
				IP:     cmd.String("ip"),
			}
			return withStore(ctx, cmd, func(store xbarstore.Store) error {
				return cmdList(ctx, cmd.Root().Writer, store, f, cmd.Bool("json"))
			})
		},
	}
}

// createShowCommand 创建 show 子命令。
func createShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Aliases:   []string{"get"},
		Usage:     "以 JSON 输出一个快照",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "collector", Aliases: []string{"C"}, Usage: "只输出指定采集器（可重复）"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return usagef("show 命令需要指定一个快照 id")
			}
			id := cmd.Args().First()
			return withStore(ctx, cmd, func(store xbarstore.Store) error {
				return cmdShow(ctx, cmd.Root().Writer, store, id, cmd.StringSlice("collector"))
			})
		},
	}
}

// createClearCommand 创建 clear 子命令。
func createClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "清空全部快照",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withStore(ctx, cmd, func(store xbarstore.Store) error {
				if err := store.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.Root().Writer, "cleared")
				return nil
			})
		},
	}
}

// createPruneCommand 创建 prune 子命令。
func createPruneCommand() *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "删除早于指定时长的快照",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "older-than", Usage: "保留时长，缺省读取 storage.ttl"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			age := cmd.Duration("older-than")
			if age == 0 {
				age = cfg.Duration("storage.ttl", xbarstore.DefaultPruneMaxAge)
			}
			if age <= 0 {
				return usagef("保留时长必须为正数: %s", age)
			}
			return withStore(ctx, cmd, func(store xbarstore.Store) error {
				n, err := store.Prune(ctx, time.Now().Add(-age))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.Root().Writer, "pruned %d snapshot(s) older than %s\n", n, age)
				return nil
			})
		},
	}
}

// createConsoleCommand 创建 console 子命令。
func createConsoleCommand() *cli.Command {
	return &cli.Command{
		Name:      "console",
		Usage:     "运行外部命令并把这次调用记录为快照",
		ArgsUsage: "-- <command> [args...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "enable", Usage: "忽略配置中的 enabled，强制记录快照"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) == 0 {
				return usagef("console 命令需要指定要运行的外部命令")
			}
			return withStore(ctx, cmd, func(store xbarstore.Store) error {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				if cmd.Bool("enable") {
					_ = cfg.Set("enabled", true)
				}
				return cmdConsole(ctx, cmd.Root().Writer, cmd.Root().ErrWriter, cfg, store, args)
			})
		},
	}
}

// createDefaultsCommand 创建 defaults 子命令。
func createDefaultsCommand() *cli.Command {
	return &cli.Command{
		Name:  "defaults",
		Usage: "输出默认配置（JSON）",
		Action: func(_ context.Context, cmd *cli.Command) error {
			return writeJSON(cmd.Root().Writer, xconf.NewFromMap(xconf.Defaults()).All())
		},
	}
}

// loadConfig 读取 --config 指定的配置文件，未指定时使用默认配置。
func loadConfig(cmd *cli.Command) (*xconf.Config, error) {
	path := cmd.String("config")
	if path == "" {
		return xconf.NewFromMap(xconf.Defaults()), nil
	}
	cfg, err := xconf.New(path)
	if err != nil {
		return nil, usagef("无法加载配置 %s: %v", path, err)
	}
	return cfg, nil
}

// newLogger 按 --log-level 创建 logger，默认输出到 ErrWriter，指定 --log-file 时写入轮转文件。
// wrap 非 nil 时包装底层 slog.Handler。
func newLogger(cmd *cli.Command, wrap func(next slog.Handler) slog.Handler) (xlog.LoggerWithLevel, func() error, error) {
	b := xlog.New().
		SetOutput(cmd.Root().ErrWriter).
		SetLevelString(cmd.String("log-level"))
	if path := cmd.String("log-file"); path != "" {
		b = b.SetRotation(path)
	}
	if wrap != nil {
		b = b.SetHandlerWrapper(wrap)
	}
	logger, cleanup, err := b.Build()
	if err != nil {
		return nil, nil, usagef("无法创建 logger: %v", err)
	}
	return logger, cleanup, nil
}

// openStore 按配置打开快照存储。存储被禁用时返回参数错误。
func openStore(ctx context.Context, cfg xconf.Source) (xbarstore.Store, error) {
	store, err := xbarstore.FromConfig(ctx, cfg)
	switch {
	case errors.Is(err, xbarstore.ErrUnknownDriver), errors.Is(err, xbarstore.ErrEmptyPath):
		return nil, usagef("%v", err)
	case err != nil:
		return nil, err
	case store == nil:
		return nil, usagef("快照存储已禁用 (storage.enabled=false)")
	}
	return store, nil
}

// withStore 打开存储，执行 fn 后关闭。
func withStore(ctx context.Context, cmd *cli.Command, fn func(store xbarstore.Store) error) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(store)
}

func cmdList(ctx context.Context, w io.Writer, store xbar.Finder, f xbar.Filter, asJSON bool) error {
	if f.Max < 0 || f.Offset < 0 {
		return usagef("max 与 offset 不能为负数")
	}
	metas, err := store.Find(ctx, f.Normalize())
	if err != nil {
		return err
	}
	if asJSON {
		if metas == nil {
			metas = []xbar.Meta{}
		}
		return writeJSON(w, metas)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATETIME\tMETHOD\tURI\tIP")
	for _, m := range metas {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Datetime, m.Method, dash(m.URI), dash(m.IP))
	}
	return tw.Flush()
}

func cmdShow(ctx context.Context, w io.Writer, store xbar.Storage, id string, collectors []string) error {
	snap, err := store.Get(ctx, id)
	if errors.Is(err, xbar.ErrNotFound) {
		return fmt.Errorf("快照 %q 不存在", id)
	}
	if errors.Is(err, xbarstore.ErrInvalidID) {
		return usagef("无效的快照 id %q", id)
	}
	if err != nil {
		return err
	}
	if len(collectors) == 0 {
		return writeJSON(w, snap)
	}

	out := make(map[string]json.RawMessage, len(collectors)+1)
	meta, err := json.Marshal(snap.Meta())
	if err != nil {
		return err
	}
	out[xbar.MetaKey] = meta
	for _, name := range collectors {
		raw, ok := snap.Raw(name)
		if !ok {
			return fmt.Errorf("快照 %q 中没有采集器 %q", id, name)
		}
		out[name] = raw
	}
	return writeJSON(w, out)
}

func cmdConsole(ctx context.Context, stdout, stderr io.Writer, cfg xconf.Source, store xbar.Storage, args []string) error {
	// 配置未启用时照常运行命令，但不记录快照
	bar := xbar.New(cfg, xbar.WithStorage(store), xbar.WithConsole(true))
	if bar.IsEnabled() {
		bar.Boot()
	}

	c := exec.CommandContext(ctx, args[0], args[1:]...)
	c.Stdout = stdout
	c.Stderr = stderr
	bar.Info("$ " + strings.Join(args, " "))
	runErr := bar.Measure(args[0], c.Run)
	if runErr != nil {
		bar.AddException(runErr)
	}

	snap := bar.CollectConsole(args)
	if snap != nil {
		fmt.Fprintf(stderr, "xbar: snapshot %s\n", snap.ID())
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return &exitError{code: exitErr.ExitCode()}
	}
	return runErr
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
