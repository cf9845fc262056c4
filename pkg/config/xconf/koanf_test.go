package xconf

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// 测试数据
// =============================================================================

const testYAMLContent = `
enabled: true
route_prefix: _bar
collectors:
  db: false
  views: "true"
options:
  db:
    timeline: true
header:
  max_length: 1024
storage:
  ttl: 30m
`

const testJSONContent = `{
  "enabled": true,
  "route_prefix": "_bar",
  "collectors": {"db": false, "views": "true"},
  "options": {"db": {"timeline": true}},
  "header": {"max_length": 1024},
  "storage": {"ttl": 1800}
}`

func createTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func assertTestValues(t *testing.T, cfg Source) {
	t.Helper()
	assert.True(t, cfg.Bool("enabled", false))
	assert.Equal(t, "_bar", cfg.String("route_prefix", "_debugbar"))
	assert.False(t, cfg.Bool("collectors.db", true))
	assert.True(t, cfg.Bool("collectors.views", false), "字符串布尔值应被解析")
	assert.True(t, cfg.Bool("options.db.timeline", false))
	assert.Equal(t, 1024, cfg.Int("header.max_length", 4096))
	assert.Equal(t, 30*time.Minute, cfg.Duration("storage.ttl", time.Hour))
}

// =============================================================================
// 构造函数测试
// =============================================================================

func TestNew_YAML(t *testing.T) {
	path := createTempFile(t, "debugbar.yaml", testYAMLContent)

	cfg, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, FormatYAML, cfg.Format())
	assertTestValues(t, cfg)
}

func TestNew_JSON(t *testing.T) {
	path := createTempFile(t, "debugbar.json", testJSONContent)

	cfg, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, cfg.Format())
	assertTestValues(t, cfg)
}

func TestNew_Errors(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = New("/tmp/debugbar.toml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrLoadFailed)

	bad := createTempFile(t, "bad.json", "{not json")
	_, err = New(bad)
	assert.ErrorIs(t, err, ErrParseFailed)
}

func TestNewFromBytes(t *testing.T) {
	cfg, err := NewFromBytes([]byte(testYAMLContent), FormatYAML)
	require.NoError(t, err)
	assertTestValues(t, cfg)
	assert.Empty(t, cfg.Path())

	empty, err := NewFromBytes(nil, FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, empty.All())

	_, err = NewFromBytes([]byte("a: 1"), Format("toml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestNewFromMap(t *testing.T) {
	cfg := NewFromMap(map[string]any{
		"collectors.db": false,
		"options": map[string]any{
			"views": map[string]any{"data": false},
		},
	})

	assert.False(t, cfg.Bool("collectors.db", true))
	assert.False(t, cfg.Bool("options.views.data", true))
	assert.True(t, cfg.Bool("collectors.time", true))
}

// =============================================================================
// 读取与写入测试
// =============================================================================

func TestConfig_DefaultsOnMissingOrMismatch(t *testing.T) {
	cfg := NewFromMap(map[string]any{
		"name":  "x",
		"ratio": 1.5,
		"flag":  "maybe",
	})

	assert.Equal(t, "fallback", cfg.Get("missing", "fallback"))
	assert.Equal(t, 7, cfg.Int("name", 7))
	assert.Equal(t, 9, cfg.Int("ratio", 9))
	assert.True(t, cfg.Bool("flag", true))
	assert.Equal(t, "d", cfg.String("missing", "d"))
	assert.Equal(t, time.Second, cfg.Duration("name", time.Second))
}

func TestConfig_Set(t *testing.T) {
	cfg := NewFromMap(nil)

	require.NoError(t, cfg.Set("enabled", true))
	require.NoError(t, cfg.Set("options.db.timeline", true))
	assert.True(t, cfg.Bool("enabled", false))
	assert.True(t, cfg.Bool("options.db.timeline", false))

	assert.ErrorIs(t, cfg.Set("", 1), ErrEmptyKey)

	all := cfg.All()
	assert.Equal(t, true, all["options.db.timeline"])
}

func TestConfig_Reload(t *testing.T) {
	path := createTempFile(t, "debugbar.yaml", "enabled: false\n")
	cfg, err := New(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Set("inject", false))

	require.NoError(t, os.WriteFile(path, []byte("enabled: true\n"), 0o600))
	require.NoError(t, cfg.Reload())
	assert.True(t, cfg.Bool("enabled", false))
	assert.True(t, cfg.Bool("inject", true), "重载后运行期写入被文件内容覆盖")

	// 解析失败时保留旧配置
	require.NoError(t, os.WriteFile(path, []byte("enabled: [\n"), 0o600))
	assert.ErrorIs(t, cfg.Reload(), ErrParseFailed)
	assert.True(t, cfg.Bool("enabled", false))

	fromMap := NewFromMap(nil)
	assert.ErrorIs(t, fromMap.Reload(), ErrNotReloadable)
}

func TestConfig_ConcurrentAccess(t *testing.T) {
	cfg := NewFromMap(Defaults())

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = cfg.Bool("collectors.db", false)
				_ = cfg.Set("header.max_length", i)
				_ = cfg.All()
			}
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, cfg.Int("header.max_length", -1), 0)
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, false, d["enabled"])
	assert.Equal(t, "_debugbar", d["route_prefix"])
	assert.Equal(t, 4096, d["header.max_length"])

	// 每次返回独立副本
	d["enabled"] = true
	assert.Equal(t, false, Defaults()["enabled"])

	cfg := NewFromMap(Defaults())
	assert.True(t, cfg.Bool("collectors.runtime", false))
	assert.False(t, cfg.Bool("collectors.app", true))
}

func TestConverters(t *testing.T) {
	assert.True(t, toBool("1", false))
	assert.False(t, toBool(" false ", true))
	assert.False(t, toBool(3, false))

	assert.Equal(t, 3, toInt(int64(3), 0))
	assert.Equal(t, 4, toInt(float64(4), 0))
	assert.Equal(t, 12, toInt(" 12", 0))
	assert.Equal(t, 0, toInt(true, 0))

	assert.Equal(t, "true", toString(true, ""))
	assert.Equal(t, "42", toString(42, ""))
	assert.Equal(t, "1.5", toString(1.5, ""))
	assert.Equal(t, "def", toString([]int{1}, "def"))

	assert.Equal(t, 2*time.Second, toDuration(2, 0))
	assert.Equal(t, time.Minute, toDuration("1m", 0))
	assert.Equal(t, time.Hour, toDuration("soon", time.Hour))
	assert.Equal(t, time.Hour, toDuration(-5, time.Hour))
}
