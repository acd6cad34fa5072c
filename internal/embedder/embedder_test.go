package embedder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	cache := NewCache(10)

	emb := &Embedding{
		Vector:    []float32{1, 2, 3},
		Dimension: 3,
		Provider:  ProviderLocal,
		Hash:      "abc",
	}
	cache.Set("abc", emb)

	got, ok := cache.Get("abc")
	require.True(t, ok)
	assert.Equal(t, emb.Vector, got.Vector)

	// Mutating the returned copy must not affect the cached value
	got.Vector[0] = 99
	again, ok := cache.Get("abc")
	require.True(t, ok)
	assert.Equal(t, float32(1), again.Vector[0])

	_, ok = cache.Get("missing")
	assert.False(t, ok)
}

func TestCacheEviction(t *testing.T) {
	cache := NewCache(2)
	cache.Set("a", &Embedding{Hash: "a"})
	cache.Set("b", &Embedding{Hash: "b"})
	cache.Set("c", &Embedding{Hash: "c"})

	assert.Equal(t, 2, cache.Len())
	_, ok := cache.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
}

func TestValidateRequest(t *testing.T) {
	assert.ErrorIs(t, ValidateRequest(EmbeddingRequest{}), ErrEmptyText)
	assert.NoError(t, ValidateRequest(EmbeddingRequest{Text: "hello"}))
}

func TestValidateBatchRequest(t *testing.T) {
	assert.ErrorIs(t, ValidateBatchRequest(BatchEmbeddingRequest{}), ErrInvalidInput)
	assert.ErrorIs(t, ValidateBatchRequest(BatchEmbeddingRequest{Texts: []string{"ok", ""}}), ErrEmptyText)
	assert.NoError(t, ValidateBatchRequest(BatchEmbeddingRequest{Texts: []string{"a", "b"}}))
}

func TestComputeHash(t *testing.T) {
	h1 := ComputeHash("hello")
	h2 := ComputeHash("hello")
	h3 := ComputeHash("world")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	config := RetryConfig{Attempts: 3, Base: time.Millisecond, Cap: 10 * time.Millisecond}

	attempts := 0
	result, err := retryWithBackoff(ctx, config, func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", assert.AnError
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_Exhausted(t *testing.T) {
	ctx := context.Background()
	config := RetryConfig{Attempts: 2, Base: time.Millisecond, Cap: 10 * time.Millisecond}

	attempts := 0
	_, err := retryWithBackoff(ctx, config, func() (string, error) {
		attempts++
		return "", assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 2, attempts)
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	config := DefaultRetryConfig()

	_, err := retryWithBackoff(ctx, config, func() (string, error) {
		return "", assert.AnError
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryDelayBounds(t *testing.T) {
	config := RetryConfig{Attempts: 5, Base: 100 * time.Millisecond, Cap: 300 * time.Millisecond, Jitter: 0.2}

	for n := 0; n < 8; n++ {
		d := config.delay(n)
		// Cap plus half the jitter spread is the worst case
		assert.LessOrEqual(t, d, 330*time.Millisecond, "retry %d", n)
		assert.Greater(t, d, time.Duration(0), "retry %d", n)
	}

	// Without jitter the schedule is exact: 100, 200, then capped
	exact := RetryConfig{Base: 100 * time.Millisecond, Cap: 300 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, exact.delay(0))
	assert.Equal(t, 200*time.Millisecond, exact.delay(1))
	assert.Equal(t, 300*time.Millisecond, exact.delay(2))
	assert.Equal(t, 300*time.Millisecond, exact.delay(5))
}
