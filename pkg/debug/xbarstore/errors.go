package xbarstore

import (
	"errors"
	"fmt"

	"github.com/omeyang/xbar/pkg/debug/xbar"
)

var (
	// ErrNotFound 快照不存在，可用 errors.Is 与 xbar.ErrNotFound 匹配。
	ErrNotFound = fmt.Errorf("xbarstore: snapshot %w", xbar.ErrNotFound)

	// ErrInvalidID 快照 id 为空或含有字母、数字、'-'、'_' 以外的字符。
	ErrInvalidID = errors.New("xbarstore: invalid snapshot id")

	// ErrNilClient 传入的客户端为 nil。
	ErrNilClient = errors.New("xbarstore: nil client")

	// ErrEmptyPath 文件或数据库路径为空。
	ErrEmptyPath = errors.New("xbarstore: empty path")

	// ErrUnknownDriver storage.driver 不是已知的实现。
	ErrUnknownDriver = errors.New("xbarstore: unknown driver")

	// ErrNilSnapshot 保存 nil 快照。
	ErrNilSnapshot = errors.New("xbarstore: nil snapshot")
)

func notFound(id string) error {
	return fmt.Errorf("%w: %q", ErrNotFound, id)
}
