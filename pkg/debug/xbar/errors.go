package xbar

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateCollector 表示同名采集器已经注册。
	ErrDuplicateCollector = errors.New("xbar: collector already registered")

	// ErrNotFound 表示采集器或快照不存在。
	ErrNotFound = errors.New("xbar: not found")

	// ErrHookUnavailable 表示宿主没有提供采集器需要的钩子能力。
	ErrHookUnavailable = errors.New("xbar: hook unavailable")

	// ErrNilCollector 表示注册了 nil 采集器。
	ErrNilCollector = errors.New("xbar: nil collector")

	// ErrNoStorage 表示没有配置快照存储。
	ErrNoStorage = errors.New("xbar: storage not configured")

	// ErrUnsupported 表示存储不支持请求的操作（find/clear）。
	ErrUnsupported = errors.New("xbar: operation not supported by storage")

	// ErrInvalidSnapshot 表示快照 JSON 格式错误。
	ErrInvalidSnapshot = errors.New("xbar: invalid snapshot")
)

// CollectorAttachError 表示采集器挂载钩子时失败。
type CollectorAttachError struct {
	Collector string
	Err       error
}

// Error 实现 error 接口。
func (e *CollectorAttachError) Error() string {
	return fmt.Sprintf("xbar: cannot attach %s collector: %v", e.Collector, e.Err)
}

// Unwrap 返回底层错误。
func (e *CollectorAttachError) Unwrap() error {
	return e.Err
}

// hookUnavailable 构造缺少某个钩子能力的错误。
func hookUnavailable(hook string) error {
	return fmt.Errorf("%w: %s", ErrHookUnavailable, hook)
}
