package cache

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/biosecurity-service/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type payload struct {
	Score float64 `json:"score"`
}

func newTestCache(t *testing.T) (CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, zap.NewNop()), mr
}

func TestRedisCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	var got payload
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", payload{Score: 42.5}, time.Minute))
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, 42.5, got.Score)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss, "expired")
}

func TestRedisCache_CorruptEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("k", "{not json"))

	var got payload
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
	assert.False(t, mr.Exists("k"))
}

func TestRedisCache_DeletePattern(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	scope := Scope("pig", "2", nil)

	require.NoError(t, c.Set(ctx, EvaluationKey(scope, models.Answers{"a": models.TextAnswer("x")}), payload{}, 0))
	require.NoError(t, c.Set(ctx, EvaluationKey(scope, models.Answers{"a": models.TextAnswer("y")}), payload{}, 0))
	require.NoError(t, c.Set(ctx, "other", payload{}, 0))

	require.NoError(t, c.DeletePattern(ctx, ScopePattern(scope)))
	assert.Equal(t, []string{"other"}, mr.Keys())
}

func TestEvaluationKey(t *testing.T) {
	scope := Scope("pig", "2", map[string]float64{"external": 0.61, "internal": 0.39})

	a := EvaluationKey(scope, models.Answers{"q1": models.TextAnswer("yes"), "q2": models.ListAnswer("a", "b")})
	b := EvaluationKey(scope, models.Answers{"q2": models.ListAnswer("a", "b"), "q1": models.TextAnswer("yes"), "q3": models.TextAnswer("")})
	assert.Equal(t, a, b, "order and empty answers do not matter")

	c := EvaluationKey(scope, models.Answers{"q1": models.TextAnswer("yes"), "q2": models.ListAnswer("b", "a")})
	assert.NotEqual(t, a, c)

	d := EvaluationKey(scope, models.Answers{"q1": models.NumberAnswer(1)})
	e := EvaluationKey(scope, models.Answers{"q1": models.TextAnswer("1")})
	assert.NotEqual(t, d, e, "answer kind is part of the key")

	other := Scope("pig", "2", map[string]float64{"external": 0.5, "internal": 0.5})
	assert.NotEqual(t, scope, other)
	assert.Equal(t, scope, Scope("pig", "2", map[string]float64{"internal": 0.39, "external": 0.61}))
}

func TestNoopCache(t *testing.T) {
	c := NewNoopCache()
	var got payload
	require.NoError(t, c.Set(context.Background(), "k", payload{}, time.Minute))
	assert.ErrorIs(t, c.Get(context.Background(), "k", &got), ErrCacheMiss)
}
