package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// delim 配置键分隔符。
const delim = "."

// 编译时接口检查
var _ Source = (*Config)(nil)

// Config 是 Source 的 koanf 实现，由 New、NewFromBytes 或 NewFromMap 创建。
type Config struct {
	mu     sync.RWMutex
	k      *koanf.Koanf
	path   string
	format Format
}

// New 从文件路径创建配置源。
// 根据文件扩展名自动检测格式（.yaml/.yml 或 .json）。
func New(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}

	k, err := loadFile(path, format)
	if err != nil {
		return nil, err
	}

	return &Config{k: k, path: path, format: format}, nil
}

// NewFromBytes 从字节数据创建配置源，需要显式指定格式。
// 空数据会创建一个空配置源。
func NewFromBytes(data []byte, format Format) (*Config, error) {
	if !isValidFormat(format) {
		return nil, ErrUnsupportedFormat
	}

	k := koanf.New(delim)
	if len(data) > 0 {
		if err := loadData(k, data, format); err != nil {
			return nil, err
		}
	}
	return &Config{k: k, format: format}, nil
}

// NewFromMap 从键值表创建配置源。
// 键可以是点分路径（"collectors.db"），也可以是嵌套的 map。
func NewFromMap(values map[string]any) *Config {
	k := koanf.New(delim)
	for key, v := range values {
		// koanf.Set 只在 key 为空时报错，这里的 key 来自 map，忽略错误即可
		_ = k.Set(key, v)
	}
	return &Config{k: k}
}

// Get 返回键对应的原始值，不存在时返回 def。
func (s *Config) Get(key string, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.k.Exists(key) {
		return def
	}
	return s.k.Get(key)
}

// Bool 返回布尔值。
func (s *Config) Bool(key string, def bool) bool {
	return toBool(s.Get(key, def), def)
}

// Int 返回整数值。
func (s *Config) Int(key string, def int) int {
	return toInt(s.Get(key, def), def)
}

// String 返回字符串值。
func (s *Config) String(key string, def string) string {
	return toString(s.Get(key, def), def)
}

// Duration 返回时长值。
func (s *Config) Duration(key string, def time.Duration) time.Duration {
	return toDuration(s.Get(key, def), def)
}

// Set 写入键值。
func (s *Config) Set(key string, value any) error {
	if key == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.k.Set(key, value)
}

// All 返回扁平化的全部配置副本。
func (s *Config) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.k.All()
}

// Path 返回配置文件路径，非文件来源返回空串。
func (s *Config) Path() string {
	return s.path
}

// Format 返回配置格式，NewFromMap 创建的配置源返回空串。
func (s *Config) Format() Format {
	return s.format
}

// Reload 重新加载配置文件。
// 解析失败时保留旧配置；运行期通过 Set 写入的值会被文件内容覆盖。
func (s *Config) Reload() error {
	if s.path == "" {
		return ErrNotReloadable
	}

	k, err := loadFile(s.path, s.format)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.k = k
	s.mu.Unlock()
	return nil
}

// =============================================================================
// 内部辅助函数
// =============================================================================

// detectFormat 根据文件扩展名检测配置格式。
func detectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %s", ErrUnsupportedFormat, ext)
	}
}

// isValidFormat 检查格式是否有效。
func isValidFormat(format Format) bool {
	switch format {
	case FormatYAML, FormatJSON:
		return true
	default:
		return false
	}
}

// loadFile 读取并解析配置文件。
func loadFile(path string, format Format) (*koanf.Koanf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	k := koanf.New(delim)
	if err := loadData(k, data, format); err != nil {
		return nil, err
	}
	return k, nil
}

// loadData 加载数据到 koanf 实例。
func loadData(k *koanf.Koanf, data []byte, format Format) error {
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return ErrUnsupportedFormat
	}

	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return nil
}
