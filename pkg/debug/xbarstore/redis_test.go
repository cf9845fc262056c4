package xbarstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xbar/pkg/debug/xbar"
)

func newTestRedis(t *testing.T, opts ...RedisOption) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	r, err := NewRedis(client, opts...)
	require.NoError(t, err)
	return r, mr
}

func TestRedis_Suite(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		r, _ := newTestRedis(t)
		return r
	}, suiteOptions{pruneByUtime: true})
}

func TestNewRedis_NilClient(t *testing.T) {
	_, err := NewRedis(nil)
	assert.ErrorIs(t, err, ErrNilClient)
}

func TestRedis_KeyLayout(t *testing.T) {
	r, mr := newTestRedis(t, WithRedisPrefix("dbg"), WithRedisPrefix(""))
	require.NoError(t, r.Save(context.Background(), newSnap("k1", 0, "GET", "/", "")))

	assert.True(t, mr.Exists("dbg:data"))
	assert.True(t, mr.Exists("dbg:meta"))
	members, err := mr.ZMembers("dbg:index")
	require.NoError(t, err)
	assert.Equal(t, []string{"k1"}, members)
	assert.Equal(t, "dbg", r.prefix, "空前缀被忽略")
}

func TestRedis_FindAcrossBatches(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRedis(t)
	for i := range redisScanBatch + 10 {
		method := "GET"
		if i%2 == 0 {
			method = "POST"
		}
		require.NoError(t, r.Save(ctx, newSnap(fmt.Sprintf("r%03d", i), time.Duration(i)*time.Second, method, "/", "")))
	}

	metas, err := r.Find(ctx, xbar.Filter{Method: "GET", Max: 60})
	require.NoError(t, err)
	require.Len(t, metas, 55)
	assert.Equal(t, fmt.Sprintf("r%03d", redisScanBatch+9), metas[0].ID)
}

func TestRedis_FindSkipsDanglingIndex(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t)
	require.NoError(t, r.Save(ctx, newSnap("a", 0, "GET", "/", "")))
	_, err := mr.ZAdd("xbar:index", 1e12, "ghost")
	require.NoError(t, err)

	metas, err := r.Find(ctx, xbar.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, metaIDs(metas))
}

func TestRedis_ServerDown(t *testing.T) {
	r, mr := newTestRedis(t)
	mr.Close()

	err := r.Save(context.Background(), newSnap("a", 0, "GET", "/", ""))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidID)
}

func TestRedis_CloseOwnership(t *testing.T) {
	r, _ := newTestRedis(t)
	require.NoError(t, r.Close(context.Background()))
	assert.NoError(t, r.Client().Ping(context.Background()).Err(), "外部客户端不被关闭")
}
