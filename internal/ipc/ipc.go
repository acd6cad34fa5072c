package ipc

import (
	"encoding/json"
	"errors"
)

// Method names for the host <-> index server protocol.
const (
	MethodBuildIndex  = "index/build"
	MethodQueryVector = "query/vector"
	MethodQueryInline = "query/inline"
	MethodUsage       = "server/usage"
	MethodShutdown    = "server/shutdown"
)

// Response status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Inline query targets.
const (
	TargetBM25    = "bm25"
	TargetCodemap = "codemap"
	TargetDefault = "default"
)

// ErrEmptyServerOutput is returned when the index server replied with an
// ok status but no payload.
var ErrEmptyServerOutput = errors.New("index server returned empty output")

// Request/Response are the on-the-wire schema used over the unix socket.
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response carries the handler result as raw JSON to avoid double-encoding.
type Response struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Chunk is the wire form of an indexed content section returned by a
// vector query. Immutable once returned.
type Chunk struct {
	FilePath            string `json:"filePath"`
	Content             string `json:"content"`
	Context             string `json:"context,omitempty"`
	RelativePath        string `json:"relativePath,omitempty"`
	ProgrammingLanguage string `json:"programmingLanguage,omitempty"`
}

// BuildIndexParams are the arguments for MethodBuildIndex.
type BuildIndexParams struct {
	FilePaths   []string `json:"filePaths"`
	ProjectRoot string   `json:"projectRoot"`
	Mode        string   `json:"mode"` // "all" | "default"
}

// BuildIndexResult is the payload for MethodBuildIndex.
type BuildIndexResult struct {
	Success    bool `json:"success"`
	FileCount  int  `json:"fileCount"`
	ChunkCount int  `json:"chunkCount"`
}

// QueryVectorParams are the arguments for MethodQueryVector.
type QueryVectorParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// QueryVectorResult is the payload for MethodQueryVector.
type QueryVectorResult struct {
	Chunks []Chunk `json:"chunks"`
}

// QueryInlineParams are the arguments for MethodQueryInline.
type QueryInlineParams struct {
	Query  string `json:"query"`
	Path   string `json:"path"`
	Target string `json:"target"` // "bm25" | "codemap" | "default"
}

// InlineMatch is a single lexical/structural match.
type InlineMatch struct {
	FilePath  string  `json:"filePath"`
	Content   string  `json:"content"`
	StartLine int     `json:"startLine"`
	EndLine   int     `json:"endLine"`
	Score     float64 `json:"score"`
}

// QueryInlineResult is the payload for MethodQueryInline.
type QueryInlineResult struct {
	Matches []InlineMatch `json:"matches"`
}

// UsageResult is the payload for MethodUsage.
type UsageResult struct {
	CPUPercent  float64 `json:"cpuPercent"`
	MemoryBytes uint64  `json:"memoryBytes"`
}
