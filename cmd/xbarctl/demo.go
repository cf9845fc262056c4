package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/omeyang/xbar/pkg/debug/xbar"
	"github.com/omeyang/xbar/pkg/observability/xlog"
)

const demoPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>xbar demo</title></head>
<body>
<h1>xbar demo</h1>
<ul>
<li><a href="/users/42">/users/42</a> 查询与视图</li>
<li><a href="/slow">/slow</a> 计时</li>
<li><a href="/fail">/fail</a> 异常</li>
<li><a href="/redirect">/redirect</a> 重定向后在下一页显示</li>
<li><a href="/api/users">/api/users</a> JSON 响应，数据通过响应头下发</li>
<li><a href="/stream">/stream</a> 流式响应，不注入</li>
</ul>
</body>
</html>
`

var errDemo = errors.New("demo: payment gateway timeout")

// newDemoMux 创建演示路由，每个处理函数演示一类上报方式。
func newDemoMux(logger xlog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		xbar.FromContext(r.Context()).Info("home page")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, demoPage)
	})

	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := r.PathValue("id")
		user := findUser(ctx, id)
		logger.Info(ctx, "user loaded", slog.String("id", id))
		xbar.ReportView(ctx, xbar.ViewEvent{Name: "users.show", Path: "views/users/show.html", Data: user})
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, "<html><body><h1>%s</h1></body></html>", user["name"])
	})

	mux.HandleFunc("GET /slow", func(w http.ResponseWriter, r *http.Request) {
		bar := xbar.FromContext(r.Context())
		_ = bar.Measure("render report", func() error {
			time.Sleep(120 * time.Millisecond)
			return nil
		})
		bar.StartMeasure("cache", "warm cache")
		time.Sleep(30 * time.Millisecond)
		bar.StopMeasure("cache")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, "<html><body>done</body></html>")
	})

	mux.HandleFunc("GET /fail", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger.Error(ctx, "charge failed", xlog.Err(errDemo))
		xbar.ReportError(ctx, fmt.Errorf("checkout: %w", errDemo))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = fmt.Fprint(w, "<html><body>payment failed</body></html>")
	})

	mux.HandleFunc("GET /redirect", func(w http.ResponseWriter, r *http.Request) {
		xbar.FromContext(r.Context()).Notice("redirecting to home")
		http.Redirect(w, r, "/", http.StatusFound)
	})

	mux.HandleFunc("GET /api/users", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		users := []map[string]any{findUser(ctx, "1"), findUser(ctx, "2")}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(users)
	})

	mux.HandleFunc("GET /stream", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		flusher, _ := w.(http.Flusher)
		for i := range 3 {
			_, _ = fmt.Fprintf(w, "chunk %d\n", i)
			if flusher != nil {
				flusher.Flush()
			}
			time.Sleep(50 * time.Millisecond)
		}
	})

	return mux
}

// findUser 模拟一次数据库查询并上报到 db 面板。
func findUser(ctx context.Context, id string) map[string]any {
	start := time.Now()
	user := map[string]any{"id": id, "name": "user-" + id}
	xbar.ReportQuery(ctx, xbar.QueryEvent{
		SQL:        "select * from users where id = ?",
		Bindings:   []any{id},
		Duration:   time.Since(start) + 2*time.Millisecond,
		Connection: "demo",
	})
	return user
}

func demoUser(context.Context) (xbar.AuthUser, bool) {
	return xbar.AuthUser{ID: "1", Name: "demo", Attributes: map[string]any{"role": "admin"}}, true
}
