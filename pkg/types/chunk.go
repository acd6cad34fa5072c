package types

import (
	"crypto/sha256"
	"errors"
)

// Chunk represents an indexed section of a workspace file, the unit of
// storage, embedding and search inside the index server.
type Chunk struct {
	// Identification
	ID     int64
	FileID int64

	// Content
	Content       string
	ContentHash   [32]byte // SHA-256 hash for deduplication
	TokenCount    int
	ContextBefore string // Leading file context (package line, imports, module docstring)

	// Location
	StartLine int
	EndLine   int
}

// ValidateContent checks if the chunk content is valid
func (c *Chunk) ValidateContent() error {
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}

	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}

	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}

	return nil
}

// ComputeTokenCount estimates the number of tokens in the chunk
// Uses a simple heuristic: characters / 4
func (c *Chunk) ComputeTokenCount() int {
	// Average code token is ~4 chars; good enough for budgeting
	totalChars := len(c.Content) + len(c.ContextBefore)
	c.TokenCount = totalChars / 4
	return c.TokenCount
}

// ComputeContentHash computes the SHA-256 hash of the chunk content
func (c *Chunk) ComputeContentHash() {
	c.ContentHash = sha256.Sum256([]byte(c.Content))
}

// Validate performs comprehensive validation of the chunk
func (c *Chunk) Validate() error {
	if err := c.ValidateContent(); err != nil {
		return err
	}

	if c.FileID == 0 {
		return errors.New("file ID is required")
	}

	var zeroHash [32]byte
	if c.ContentHash == zeroHash {
		return errors.New("content hash must be computed")
	}

	return nil
}

// FullContent returns the complete content including leading context
func (c *Chunk) FullContent() string {
	if c.ContextBefore == "" {
		return c.Content
	}
	return c.ContextBefore + "\n\n" + c.Content
}
