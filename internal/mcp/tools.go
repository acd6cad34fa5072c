package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/semdexhq/semdex/internal/controller"
	"github.com/semdexhq/semdex/internal/ipc"
	"github.com/semdexhq/semdex/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32002 // Another build is already running
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// handleBuildIndex handles the build_index tool invocation
func (s *Server) handleBuildIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	cfg := types.BuildIndexConfig{
		StartURL:           getStringDefault(args, "start_url", ""),
		VectorIndexEnabled: getBoolDefault(args, "vector_index", false),
		MaxIndexSizeBytes:  s.ctrl.MaxIndexSizeBytes(),
	}

	err := s.ctrl.BuildIndex(ctx, cfg)
	if errors.Is(err, controller.ErrBuildInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "an index build is already running", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "index build failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"built": true,
		"state": s.ctrl.State().String(),
		"mode":  string(cfg.Mode()),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleQuery handles the query tool invocation
func (s *Server) handleQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	records := s.ctrl.Query(ctx, query)

	response := map[string]interface{}{
		"state":   s.ctrl.State().String(),
		"results": records,
		"count":   len(records),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleInlineContext handles the inline_context tool invocation
func (s *Server) handleInlineContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	query := getStringDefault(args, "query", "")
	path := getStringDefault(args, "path", "")
	target := getStringDefault(args, "target", ipc.TargetDefault)

	switch target {
	case ipc.TargetBM25, ipc.TargetCodemap, ipc.TargetDefault:
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid target", map[string]interface{}{
			"param":   "target",
			"value":   target,
			"allowed": []string{ipc.TargetBM25, ipc.TargetCodemap, ipc.TargetDefault},
		})
	}

	matches := s.ctrl.QueryInlineProjectContext(ctx, query, path, target)

	response := map[string]interface{}{
		"matches": matches,
		"count":   len(matches),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	response := map[string]interface{}{
		"state":     s.ctrl.State().String(),
		"installed": s.ctrl.IsInstalled(),
		"indexing":  s.ctrl.IsIndexingInProgress(),
	}

	if sample := s.ctrl.Usage(); sample != nil {
		response["usage"] = map[string]interface{}{
			"cpu_percent": sample.CPUPercent,
			"memory_mb":   fmt.Sprintf("%.2f", float64(sample.MemoryBytes)/(1024*1024)),
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}
