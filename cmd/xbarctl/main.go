// xbarctl 是调试栏的命令行工具：运行带调试栏的演示服务，并管理已保存的快照。
//
// 用法:
//
//	xbarctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config     配置文件路径（.yaml/.yml/.json），缺省使用内置默认值
//	-l, --log-level  日志级别 (debug/info/warn/error，默认: info)
//	--log-file       日志文件路径，按大小轮转
//
// 命令:
//
//	serve            启动演示 HTTP 服务，响应中注入调试栏
//	list             按条件列出已保存的快照
//	show <id>        以 JSON 输出一个快照
//	clear            清空全部快照
//	prune            删除早于指定时长的快照
//	console -- <cmd> 运行外部命令并把这次调用记录为快照
//	defaults         输出默认配置
//
// 退出码:
//
//	0: 成功
//	1: 执行失败（存储不可用、快照不存在、外部命令失败等）
//	2: 参数错误（缺少参数、未知命令、无效配置等）
//
// 示例:
//
//	xbarctl -c debugbar.yaml serve --addr :8080
//	xbarctl -c debugbar.yaml list --method GET --uri /api --max 50
//	xbarctl -c debugbar.yaml show 01HX3Q0V8ZC7
//	xbarctl -c debugbar.yaml prune --older-than 2h
//	xbarctl -c debugbar.yaml console -- go test ./...
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

// createApp 创建 CLI 应用，命令输出写到 stdout 与 stderr。
func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xbarctl",
		Usage:     "调试栏演示服务与快照管理工具",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（.yaml/.yml/.json）",
				Sources: cli.EnvVars("XBAR_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "日志级别 (debug/info/warn/error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "日志文件路径（按大小轮转），缺省输出到 stderr",
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "help",
		// 禁止 urfave/cli 直接调用 os.Exit，退出码统一由 run() 映射。
		ExitErrHandler: func(_ context.Context, cmd *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(cmd.Root().ErrWriter, err)
			}
		},
	}
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return exitCode(createApp(os.Stdout, os.Stderr).Run(ctx, os.Args), os.Stderr)
}

// exitCode 把命令错误映射为退出码，并输出尚未输出的错误信息。
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
		return 2
	}
	if isCLIUsageError(err) {
		// flag 解析器已输出错误详情
		return 2
	}
	fmt.Fprintf(stderr, "错误: %v\n", err)
	return 1
}

// usageError 参数错误，映射为退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// exitError 命令已完成输出，只需设置退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// isCLIUsageError 识别 urfave/cli 产生的参数错误（未知 flag、缺少 flag 值、未知命令）。
func isCLIUsageError(err error) bool {
	if _, ok := err.(cli.ExitCoder); ok {
		return true
	}
	msg := err.Error()
	for _, prefix := range []string{
		"flag provided but not defined",
		"flag needs an argument",
		"invalid value",
		"No help topic for",
	} {
		if strings.Contains(msg, prefix) {
			return true
		}
	}
	return false
}
