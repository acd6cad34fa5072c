package chunker

import (
	"fmt"
	"os"
	"strings"

	"github.com/semdexhq/semdex/pkg/types"
)

const (
	// MaxTokensPerChunk is the target maximum token count per chunk
	MaxTokensPerChunk = 1000

	// MaxLinesPerChunk caps a chunk even when token estimates stay low
	MaxLinesPerChunk = 60

	// ContextHeaderLines is how many leading lines of a file are kept as
	// chunk context (package line, imports, module docstring)
	ContextHeaderLines = 12
)

// Chunker divides workspace files into indexable sections. It is language
// agnostic: boundaries are blank-line separated blocks, capped by token and
// line budgets.
type Chunker struct{}

// New creates a new Chunker instance
func New() *Chunker {
	return &Chunker{}
}

// ChunkFile reads a file and divides it into chunks
func (c *Chunker) ChunkFile(filePath string, fileID int64) ([]*types.Chunk, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return c.ChunkContent(content, fileID), nil
}

// ChunkContent divides raw file content into chunks. Binary-looking content
// yields no chunks.
func (c *Chunker) ChunkContent(content []byte, fileID int64) []*types.Chunk {
	if len(content) == 0 || looksBinary(content) {
		return nil
	}

	lines := strings.Split(string(content), "\n")
	header := c.buildHeaderContext(lines)

	chunks := make([]*types.Chunk, 0)

	start := 0
	for start < len(lines) {
		end := c.blockEnd(lines, start)
		block := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(block) != "" {
			chunk := &types.Chunk{
				FileID:        fileID,
				Content:       block,
				ContextBefore: header,
				StartLine:     start + 1,
				EndLine:       end,
			}
			chunk.ComputeTokenCount()
			chunk.ComputeContentHash()
			chunks = append(chunks, chunk)
		}
		start = end
	}

	return chunks
}

// blockEnd finds the exclusive end index of the block starting at start.
// Blocks grow over blank-line boundaries until a budget is hit.
func (c *Chunker) blockEnd(lines []string, start int) int {
	chars := 0
	end := start
	for end < len(lines) {
		chars += len(lines[end]) + 1
		end++

		if end-start >= MaxLinesPerChunk {
			break
		}
		if chars/4 >= MaxTokensPerChunk {
			break
		}

		// Close the block at a blank line once it has real content
		if end < len(lines) && strings.TrimSpace(lines[end]) == "" && end-start >= 5 {
			// Consume trailing blank lines so the next block starts on content
			for end < len(lines) && strings.TrimSpace(lines[end]) == "" {
				end++
			}
			break
		}
	}
	return end
}

// buildHeaderContext extracts the leading lines of a file as shared context
func (c *Chunker) buildHeaderContext(lines []string) string {
	n := ContextHeaderLines
	if len(lines) < n {
		n = len(lines)
	}
	header := strings.Join(lines[:n], "\n")
	return strings.TrimRight(header, "\n ")
}

// looksBinary reports whether content appears to be non-text
func looksBinary(content []byte) bool {
	n := len(content)
	if n > 8000 {
		n = 8000
	}
	for i := 0; i < n; i++ {
		if content[i] == 0 {
			return true
		}
	}
	return false
}
