package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVectorSerialization(t *testing.T) {
	vec := []float32{0.5, -1.25, 3.75, 0}
	blob := serializeVector(vec)
	assert.Len(t, blob, 16)

	got := deserializeVector(blob)
	assert.Equal(t, vec, got)
}

func TestVectorSerialization_Empty(t *testing.T) {
	assert.Empty(t, serializeVector(nil))
	assert.Empty(t, deserializeVector(nil))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"dimension mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0.0},
		{"empty", nil, nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSanitizeFTSQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello world", `"hello" OR "world"`},
		{`drop "table"; --`, `"drop" OR "table"`},
		{"snake_case ident", `"snake_case" OR "ident"`},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFTSQuery(tt.in), tt.in)
	}
}
