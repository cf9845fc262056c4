package xrender

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed assets/*
var assetFS embed.FS

// Assets 返回内置静态资源的文件系统（xbar.js、xbar.css、vendor.css）。
func Assets() fs.FS {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		// embed 路径在编译期确定，这里不会失败
		panic(err)
	}
	return sub
}

// AssetHandler 提供静态资源。挂载时需要去掉路由前缀：
//
//	mux.Handle("/_debugbar/assets/", http.StripPrefix("/_debugbar/assets", xrender.AssetHandler()))
func AssetHandler() http.Handler {
	files := http.FileServerFS(Assets())
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}
