package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProvider_Deterministic(t *testing.T) {
	provider, err := NewLocalProvider(nil)
	require.NoError(t, err)

	ctx := context.Background()
	a, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "parse the config file"})
	require.NoError(t, err)
	b, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "parse the config file"})
	require.NoError(t, err)

	assert.Equal(t, a.Vector, b.Vector)
	assert.Equal(t, LocalDimension, a.Dimension)
	assert.Len(t, a.Vector, LocalDimension)
}

func TestLocalProvider_SimilarTextsScoreHigher(t *testing.T) {
	provider, err := NewLocalProvider(nil)
	require.NoError(t, err)

	ctx := context.Background()
	query, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "authenticate user session token"})
	require.NoError(t, err)
	near, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "func authenticate(token string) validates the user session"})
	require.NoError(t, err)
	far, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "render the chart with d3 axes and svg margins"})
	require.NoError(t, err)

	simNear := dot(query.Vector, near.Vector)
	simFar := dot(query.Vector, far.Vector)
	assert.Greater(t, simNear, simFar, "shared vocabulary should score higher")
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestLocalProvider_Normalized(t *testing.T) {
	provider, err := NewLocalProvider(nil)
	require.NoError(t, err)

	emb, err := provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "normalize me please"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, dot(emb.Vector, emb.Vector), 1e-5)
}

func TestLocalProvider_Batch(t *testing.T) {
	provider, err := NewLocalProvider(NewCache(100))
	require.NoError(t, err)

	resp, err := provider.GenerateBatch(context.Background(), BatchEmbeddingRequest{
		Texts: []string{"first text", "second text"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 2)
	assert.Equal(t, ProviderLocal, resp.Provider)
	assert.NotEqual(t, resp.Embeddings[0].Vector, resp.Embeddings[1].Vector)
}

func TestOpenAIProvider_RequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider("", "", nil)
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestOpenAIProvider_CallAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := openAIResponse{}
		for i := range req.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float32{float32(i), 1, 2}, Index: i})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider("test-key", server.URL, NewCache(10))
	require.NoError(t, err)

	resp, err := provider.GenerateBatch(context.Background(), BatchEmbeddingRequest{
		Texts: []string{"alpha", "beta"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 2)
	assert.Equal(t, []float32{0, 1, 2}, resp.Embeddings[0].Vector)
	assert.Equal(t, []float32{1, 1, 2}, resp.Embeddings[1].Vector)

	// Second call for the same text must come from cache, not the server
	single, err := provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "alpha"})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 2}, single.Vector)
}

func TestOpenAIProvider_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider("test-key", server.URL, nil)
	require.NoError(t, err)

	_, err = provider.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"x"}})
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestFactoryNew(t *testing.T) {
	emb, err := New(Config{Provider: ProviderLocal, CacheSize: 10})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, emb.Provider())

	_, err = New(Config{Provider: "weird"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}
