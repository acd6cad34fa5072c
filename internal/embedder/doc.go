// Package embedder generates vector embeddings for index chunks.
//
// Two providers are available:
//
//   - local: deterministic hashed bag-of-words vectors, no network, used by
//     default so the index server works fully offline
//   - openai: any OpenAI-compatible embeddings endpoint (api.openai.com,
//     Ollama, vLLM), selected when an API key is configured
//
// # Basic Usage
//
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: chunk.FullContent(),
//	})
//
// # Caching
//
// Embeddings are cached in an LRU keyed by content hash, so re-indexing an
// unchanged workspace does not regenerate vectors. Cache reads return deep
// copies to keep cached vectors immutable.
//
// # Retry
//
// The HTTP provider wraps every batch call in exponential backoff retry
// (3 attempts, 100ms initial delay, capped at 5s), aborting immediately on
// context cancellation.
package embedder
