package xconf

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// Watch 单元测试
// =============================================================================

func TestWatch_Reload(t *testing.T) {
	path := createTempFile(t, "debugbar.yaml", "enabled: false\n")
	cfg, err := New(path)
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		reloads int
		lastErr error
	)
	w, err := Watch(cfg, func(c *Config, err error) {
		mu.Lock()
		defer mu.Unlock()
		reloads++
		lastErr = err
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	w.StartAsync()
	defer func() { _ = w.Stop() }()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("enabled: true\n"), 0o600))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return reloads > 0 && lastErr == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, cfg.Bool("enabled", false))
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	path := createTempFile(t, "debugbar.yaml", "enabled: false\n")
	cfg, err := New(path)
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		reloads int
	)
	w, err := Watch(cfg, func(*Config, error) {
		mu.Lock()
		reloads++
		mu.Unlock()
	}, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)

	w.StartAsync()
	defer func() { _ = w.Stop() }()
	time.Sleep(30 * time.Millisecond)

	other := filepath.Join(filepath.Dir(path), "other.yaml")
	require.NoError(t, os.WriteFile(other, []byte("x: 1\n"), 0o600))
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, reloads)
}

func TestWatch_Errors(t *testing.T) {
	fromMap := NewFromMap(nil)
	_, err := Watch(fromMap, func(*Config, error) {})
	assert.ErrorIs(t, err, ErrNotReloadable)

	_, err = Watch(nil, func(*Config, error) {})
	assert.ErrorIs(t, err, ErrNotReloadable)

	path := createTempFile(t, "debugbar.yaml", "enabled: true\n")
	cfg, err := New(path)
	require.NoError(t, err)

	_, err = Watch(cfg, nil)
	assert.ErrorIs(t, err, ErrNilCallback)

	_, err = Watch(cfg, func(*Config, error) {}, WithDebounce(0))
	assert.ErrorIs(t, err, ErrInvalidDebounce)
}

func TestWatch_StopIdempotent(t *testing.T) {
	path := createTempFile(t, "debugbar.yaml", "enabled: true\n")
	cfg, err := New(path)
	require.NoError(t, err)

	w, err := Watch(cfg, func(*Config, error) {})
	require.NoError(t, err)

	w.StartAsync()
	w.StartAsync()
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
