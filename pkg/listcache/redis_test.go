package listcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/projecthub/pkg/projects"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), RedisConfig{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisCache(client)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "user-projects:42", Key(42))
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), RedisConfig{URL: "not a url"})
	assert.Error(t, err)
}

func TestRedisCache_GetPut(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedis(t)

	_, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, 7, sampleProjects(), 300*time.Second))
	assert.True(t, mr.Exists("user-projects:7"))
	assert.Equal(t, 300*time.Second, mr.TTL("user-projects:7"))

	got, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "alpha", got[0].Name)
	assert.Equal(t, int64(11), got[1].OwnerID)
}

func TestRedisCache_Expiry(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedis(t)

	require.NoError(t, c.Put(ctx, 7, sampleProjects(), time.Minute))
	mr.FastForward(time.Minute + time.Second)

	_, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_NilListStoredAsEmpty(t *testing.T) {
	ctx := context.Background()
	_, c := setupRedis(t)

	require.NoError(t, c.Put(ctx, 7, nil, time.Minute))
	got, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []*projects.Project{}, got)
}

func TestRedisCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedis(t)

	require.NoError(t, c.Put(ctx, 1, sampleProjects(), time.Minute))
	require.NoError(t, c.Put(ctx, 2, sampleProjects(), time.Minute))

	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Invalidate(ctx, 1, 5))

	assert.False(t, mr.Exists("user-projects:1"))
	assert.True(t, mr.Exists("user-projects:2"))
}

func TestRedisCache_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	mr, c := setupRedis(t)

	require.NoError(t, mr.Set("user-projects:3", "{not json"))
	_, ok, err := c.Get(ctx, 3)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisCache_ServerDown(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	c := NewRedisCache(client)
	mr.Close()

	_, _, err := c.Get(ctx, 1)
	assert.Error(t, err)
	assert.Error(t, c.Put(ctx, 1, sampleProjects(), time.Minute))
	assert.Error(t, c.Invalidate(ctx, 1))
}
