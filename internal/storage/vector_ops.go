package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// searchVector performs vector similarity search with Go-side cosine
// computation. Both drivers store vectors as little-endian float32 blobs;
// ranking in Go keeps the two build modes behaviorally identical.
func searchVector(ctx context.Context, exec executor, projectID int64, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	if limit <= 0 {
		return []VectorResult{}, nil
	}

	query := `
		SELECT c.id, e.vector
		FROM chunks c
		INNER JOIN embeddings e ON c.id = e.chunk_id
		INNER JOIN files f ON c.file_id = f.id
		WHERE f.project_id = ?`
	args := []any{projectID}
	query, args = applySearchFilters(query, args, filters)

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type candidate struct {
		chunkID int64
		score   float64
	}
	var candidates []candidate

	for rows.Next() {
		var chunkID int64
		var blob []byte
		if err := rows.Scan(&chunkID, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		score := cosineSimilarity(queryVector, deserializeVector(blob))
		if filters != nil && filters.MinRelevance > 0 && score < filters.MinRelevance {
			continue
		}
		candidates = append(candidates, candidate{chunkID: chunkID, score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	results := make([]VectorResult, len(candidates))
	for i, c := range candidates {
		results[i] = VectorResult{ChunkID: c.chunkID, SimilarityScore: c.score}
	}
	return results, nil
}

// searchText performs lexical search over chunk content using FTS5 bm25
func searchText(ctx context.Context, exec executor, projectID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	if limit <= 0 {
		return []TextResult{}, nil
	}

	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, fmt.Errorf("empty search query")
	}

	sqlQuery := `
		SELECT c.id, bm25(chunks_fts) AS rank
		FROM chunks_fts
		INNER JOIN chunks c ON chunks_fts.rowid = c.id
		INNER JOIN files f ON c.file_id = f.id
		WHERE chunks_fts MATCH ? AND f.project_id = ?`
	args := []any{sanitized, projectID}
	sqlQuery, args = applySearchFilters(sqlQuery, args, filters)

	// bm25 returns lower-is-better; sort ascending and invert when scoring
	sqlQuery += " ORDER BY rank LIMIT ?"
	args = append(args, limit)

	rows, err := exec.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute text search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []TextResult
	for rows.Next() {
		var r TextResult
		var rank float64
		if err := rows.Scan(&r.ChunkID, &rank); err != nil {
			return nil, fmt.Errorf("failed to scan text result: %w", err)
		}
		// Normalize bm25 rank into a 0..1 score
		r.Score = 1.0 / (1.0 + math.Abs(rank))
		results = append(results, r)
	}
	return results, rows.Err()
}

// applySearchFilters appends filter clauses shared by both search paths
func applySearchFilters(query string, args []any, filters *SearchFilters) (string, []any) {
	if filters == nil {
		return query, args
	}
	if filters.PathPrefix != "" {
		query += " AND f.file_path LIKE ?"
		args = append(args, filters.PathPrefix+"%")
	}
	if filters.Language != "" {
		query += " AND f.language = ?"
		args = append(args, filters.Language)
	}
	return query, args
}

// ftsToken matches characters safe to pass through to FTS5
var ftsToken = regexp.MustCompile(`[A-Za-z0-9_]+`)

// sanitizeFTSQuery strips FTS5 operators from user input and joins the
// remaining terms with OR so partial matches still rank
func sanitizeFTSQuery(query string) string {
	tokens := ftsToken.FindAllString(query, -1)
	if len(tokens) == 0 {
		return ""
	}
	for i, tok := range tokens {
		tokens[i] = `"` + tok + `"`
	}
	return strings.Join(tokens, " OR ")
}

// serializeVector encodes a float32 vector as a little-endian blob
func serializeVector(vector []float32) []byte {
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeVector decodes a little-endian blob into a float32 vector
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors.
// Mismatched dimensions or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
