package xrender

import "errors"

var (
	// ErrEncode 表示数据无法序列化为 JSON。
	ErrEncode = errors.New("xrender: encode data")

	// ErrRender 表示模板执行失败。
	ErrRender = errors.New("xrender: render template")

	// ErrInvalidChunkSize 表示响应头切分长度不是正数。
	ErrInvalidChunkSize = errors.New("xrender: chunk size must be positive")
)
