package xcollect

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
)

// maxStackFrames 每个错误记录的最大栈帧数
const maxStackFrames = 16

// ExceptionInfo exceptions 面板中的一项。
type ExceptionInfo struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	File    string   `json:"file,omitempty"`
	Line    int      `json:"line,omitempty"`
	Stack   []string `json:"stack_trace,omitempty"`
	// Depth 为错误链中的层级，0 表示直接记录的错误。
	Depth int `json:"depth"`
}

// ExceptionsData exceptions 面板数据。
type ExceptionsData struct {
	Count      int             `json:"count"`
	Exceptions []ExceptionInfo `json:"exceptions"`
}

type recordedError struct {
	err   error
	stack []runtime.Frame
}

// ExceptionsCollector 错误采集器。
type ExceptionsCollector struct {
	mu     sync.Mutex
	chain  bool
	errors []recordedError
}

// 编译时接口检查
var _ Collector = (*ExceptionsCollector)(nil)

// NewExceptions 创建错误采集器。chain 为 true 时同时展开错误链（Unwrap）。
func NewExceptions(chain bool) *ExceptionsCollector {
	return &ExceptionsCollector{chain: chain}
}

// Name 返回 "exceptions"。
func (c *ExceptionsCollector) Name() string { return "exceptions" }

// SetChain 设置是否展开错误链。
func (c *ExceptionsCollector) SetChain(chain bool) {
	c.mu.Lock()
	c.chain = chain
	c.mu.Unlock()
}

// AddException 记录一个错误并捕获调用栈，nil 被忽略。
func (c *ExceptionsCollector) AddException(err error) {
	if err == nil {
		return
	}
	rec := recordedError{err: err, stack: callerFrames(3)}

	c.mu.Lock()
	c.errors = append(c.errors, rec)
	c.mu.Unlock()
}

// Errors 返回已记录的错误。
func (c *ExceptionsCollector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.errors))
	for i, r := range c.errors {
		out[i] = r.err
	}
	return out
}

// Collect 返回 ExceptionsData。
func (c *ExceptionsCollector) Collect() any {
	c.mu.Lock()
	chain := c.chain
	recorded := make([]recordedError, len(c.errors))
	copy(recorded, c.errors)
	c.mu.Unlock()

	items := make([]ExceptionInfo, 0, len(recorded))
	for _, r := range recorded {
		top := describe(r.err, 0)
		if len(r.stack) > 0 {
			top.File = r.stack[0].File
			top.Line = r.stack[0].Line
			top.Stack = formatFrames(r.stack)
		}
		items = append(items, top)
		if chain {
			items = appendChain(items, r.err, 1)
		}
	}
	return ExceptionsData{Count: len(recorded), Exceptions: items}
}

// appendChain 深度优先展开 Unwrap() error 与 Unwrap() []error。
func appendChain(items []ExceptionInfo, err error, depth int) []ExceptionInfo {
	var causes []error
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		causes = u.Unwrap()
	default:
		if next := errors.Unwrap(err); next != nil {
			causes = []error{next}
		}
	}
	for _, cause := range causes {
		if cause == nil {
			continue
		}
		items = append(items, describe(cause, depth))
		items = appendChain(items, cause, depth+1)
	}
	return items
}

func describe(err error, depth int) ExceptionInfo {
	return ExceptionInfo{
		Type:    fmt.Sprintf("%T", err),
		Message: err.Error(),
		Depth:   depth,
	}
}

func callerFrames(skip int) []runtime.Frame {
	pcs := make([]uintptr, maxStackFrames)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	out := make([]runtime.Frame, 0, n)
	for {
		f, more := frames.Next()
		out = append(out, f)
		if !more {
			break
		}
	}
	return out
}

func formatFrames(frames []runtime.Frame) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.Function + " " + f.File + ":" + strconv.Itoa(f.Line)
	}
	return out
}
