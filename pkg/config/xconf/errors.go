package xconf

import "errors"

// 配置加载和解析相关错误。
var (
	// ErrEmptyPath 表示配置文件路径为空。
	ErrEmptyPath = errors.New("xconf: empty config path")

	// ErrUnsupportedFormat 表示不支持的配置格式。
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")

	// ErrLoadFailed 表示配置加载失败。
	ErrLoadFailed = errors.New("xconf: failed to load config")

	// ErrParseFailed 表示配置解析失败。
	ErrParseFailed = errors.New("xconf: failed to parse config")

	// ErrNotReloadable 表示配置不是从文件创建的，无法重载或监视。
	ErrNotReloadable = errors.New("xconf: config is not backed by a file")

	// ErrEmptyKey 表示写入时键为空。
	ErrEmptyKey = errors.New("xconf: empty key")
)

// 监视相关错误。
var (
	// ErrNilCallback 表示监视回调为 nil。
	ErrNilCallback = errors.New("xconf: nil watch callback")

	// ErrInvalidDebounce 表示防抖时间不为正数。
	ErrInvalidDebounce = errors.New("xconf: debounce must be positive")
)
