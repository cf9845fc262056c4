// Package xrun 管理一组长期运行的服务，任一服务失败或收到退出信号时统一关闭。
//
// xbarctl serve 用它同时运行 HTTP 服务、配置文件监听与快照清理任务：
//
//	err := xrun.Run(ctx, []xrun.Option{xrun.WithLogger(logger)},
//	    xrun.Named("http", xrun.HTTPServer(srv, 5*time.Second)),
//	    xrun.Named("prune", xrun.Background(job.Start, job.Stop, time.Second)),
//	)
//	if errors.Is(err, xrun.ErrSignal) {
//	    // 正常退出
//	}
package xrun
