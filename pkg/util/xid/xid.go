package xid

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/sonyflake/v2"
)

var (
	// ErrNilGenerator 生成器为 nil 或未通过 NewGenerator 创建。
	ErrNilGenerator = errors.New("xid: nil generator (use NewGenerator to create)")

	// ErrInvalidConfig 配置参数无效，或 sonyflake 初始化失败。
	ErrInvalidConfig = errors.New("xid: invalid config")

	// ErrInvalidID ID 字符串无法解析为正整数。
	ErrInvalidID = errors.New("xid: invalid id")
)

// Option 生成器配置选项。
type Option func(*options)

type options struct {
	machineID func() (int, error)
	startTime time.Time
}

// WithMachineID 设置机器 ID 获取函数。
// 未设置时使用 sonyflake 默认策略（私有 IPv4 的低 16 位）。
func WithMachineID(fn func() (int, error)) Option {
	return func(o *options) {
		o.machineID = fn
	}
}

// WithStartTime 设置 Sonyflake 纪元起点，零值表示使用库默认值。
func WithStartTime(t time.Time) Option {
	return func(o *options) {
		o.startTime = t
	}
}

// Generator 请求 ID 生成器，并发安全。
type Generator struct {
	sf *sonyflake.Sonyflake
}

// NewGenerator 创建独立的生成器实例。
func NewGenerator(opts ...Option) (*Generator, error) {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	sf, err := sonyflake.New(sonyflake.Settings{
		StartTime: o.startTime,
		MachineID: o.machineID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &Generator{sf: sf}, nil
}

// Next 生成下一个数值 ID。
func (g *Generator) Next() (int64, error) {
	if g == nil || g.sf == nil {
		return 0, ErrNilGenerator
	}
	return g.sf.NextID()
}

// NextString 生成下一个 base36 字符串 ID。
func (g *Generator) NextString() (string, error) {
	id, err := g.Next()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 36), nil
}

// Parse 将 base36 字符串还原为数值 ID。
func Parse(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 36, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id, nil
}

var (
	globalOnce sync.Once
	globalGen  *Generator
)

func defaultGenerator() *Generator {
	globalOnce.Do(func() {
		// 初始化失败时 globalGen 保持 nil，RequestID 走 UUID 回退
		globalGen, _ = NewGenerator()
	})
	return globalGen
}

// RequestID 返回一个新的请求 ID，永不返回空串。
func RequestID() string {
	if g := defaultGenerator(); g != nil {
		if id, err := g.NextString(); err == nil {
			return id
		}
	}
	return uuid.NewString()
}
