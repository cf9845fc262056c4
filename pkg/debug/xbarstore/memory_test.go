package xbarstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Suite(t *testing.T) {
	runStoreSuite(t, func(*testing.T) Store { return NewMemory(0, 0) }, suiteOptions{pruneByUtime: true})
}

func TestMemory_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2, 0)
	require.NoError(t, m.Save(ctx, newSnap("a", 0, "GET", "/", "")))
	require.NoError(t, m.Save(ctx, newSnap("b", time.Second, "GET", "/", "")))

	_, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, m.Save(ctx, newSnap("c", 2*time.Second, "GET", "/", "")))

	assert.Equal(t, 2, m.Len())
	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound, "最久未使用的 b 被淘汰")
	_, err = m.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10, 20*time.Millisecond)
	require.NoError(t, m.Save(ctx, newSnap("a", 0, "GET", "/", "")))

	assert.Eventually(t, func() bool {
		_, err := m.Get(ctx, "a")
		return err != nil
	}, time.Second, 10*time.Millisecond)
}
