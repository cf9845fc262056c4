package xcollect

import (
	"errors"
	"fmt"
)

var (
	// ErrMeasureState 表示停止一个未运行（未开始或已停止）的测量。
	ErrMeasureState = errors.New("xcollect: measure is not running")

	// ErrEmptyLogFile 表示 logs 采集器没有配置日志文件。
	ErrEmptyLogFile = errors.New("xcollect: empty log file path")
)

// EncodingError 表示格式化日志行时遇到非法编码的内容。
// 对应内容已被替换为哨兵字符串，错误仅用于报告。
type EncodingError struct {
	Field string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("xcollect: invalid UTF-8 in %s", e.Field)
}
