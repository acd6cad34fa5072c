package types

// SearchResult represents a single engine-side search result with relevance
// information, before normalization into a ContextRecord.
type SearchResult struct {
	// Identification
	ChunkID int64
	Rank    int // Position in result set (1-based)

	// Scoring
	RelevanceScore float64 // Combined score from vector + keyword + RRF

	// Metadata
	File    *FileInfo
	Content string // Chunk content
	Context string // Leading file context for the chunk
}

// FileInfo contains file metadata for a search result
type FileInfo struct {
	Path         string // Absolute path on the host filesystem
	RelativePath string // Relative to the project root, if known
	Language     string // Detected language, LanguageUnknown when unrecognized
	StartLine    int
	EndLine      int
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.ChunkID == 0 {
		return ErrInvalidChunkID
	}

	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.RelevanceScore < 0 || sr.RelevanceScore > 1 {
		return ErrInvalidRelevanceScore
	}

	if sr.File == nil {
		return ErrMissingFileInfo
	}

	if sr.Content == "" {
		return ErrEmptyContent
	}

	return nil
}

// ContextRecord is the normalized query result handed to the editor host.
// Context is preferred over raw chunk content for the text payload, the
// relative path falls back to the basename of the absolute path, and the
// language tag is omitted when unknown.
type ContextRecord struct {
	Content             string `json:"content"`
	FilePath            string `json:"filePath"`
	RelativePath        string `json:"relativePath"`
	ProgrammingLanguage string `json:"programmingLanguage,omitempty"`
}
