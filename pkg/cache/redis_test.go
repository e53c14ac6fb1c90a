package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a test Redis client using miniredis
func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestClient_SetGetJSON(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.SetJSON(ctx, "user:1", payload{Name: "Ada", Count: 2}, time.Minute))

	var got payload
	require.NoError(t, client.GetJSON(ctx, "user:1", &got))
	assert.Equal(t, payload{Name: "Ada", Count: 2}, got)

	ttl, err := client.TTL(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, client.GetJSON(ctx, "user:1", &got), ErrMiss)
}

func TestClient_GetJSON_Miss(t *testing.T) {
	client, _ := setupTestRedis(t)

	var got payload
	assert.ErrorIs(t, client.GetJSON(context.Background(), "nope", &got), ErrMiss)
}

func TestClient_MultiAndDelete(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.SetMultiJSON(ctx, map[string]any{
		"users:7:1": payload{Name: "a"},
		"users:7:2": payload{Name: "b"},
		"users:8:1": payload{Name: "c"},
	}, time.Minute))

	vals, err := client.GetMulti(ctx, "users:7:1", "users:7:3", "users:7:2")
	require.NoError(t, err)
	require.Len(t, vals, 3)
	assert.JSONEq(t, `{"name":"a","count":0}`, vals[0])
	assert.Equal(t, "", vals[1])
	assert.JSONEq(t, `{"name":"b","count":0}`, vals[2])

	require.NoError(t, client.DeletePattern(ctx, "users:7:*"))
	assert.False(t, mr.Exists("users:7:1"))
	assert.False(t, mr.Exists("users:7:2"))
	assert.True(t, mr.Exists("users:8:1"))

	require.NoError(t, client.Delete(ctx, "users:8:1"))
	assert.False(t, mr.Exists("users:8:1"))
}

func TestClient_GetMulti_Empty(t *testing.T) {
	client, _ := setupTestRedis(t)
	vals, err := client.GetMulti(context.Background())
	require.NoError(t, err)
	assert.Empty(t, vals)
}
