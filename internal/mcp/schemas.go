package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// buildIndexTool returns the tool definition for build_index
func buildIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "build_index",
		Description: "Build or rebuild the semantic index for the configured workspace roots",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"vector_index": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, build the full index including vector embeddings; otherwise lexical only",
					"default":     false,
				},
				"start_url": map[string]interface{}{
					"type":        "string",
					"description": "Optional account/start-URL tag attached to the build telemetry event",
				},
			},
		},
	}
}

// queryTool returns the tool definition for query
func queryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "query",
		Description: "Semantic search over the indexed workspace; returns normalized context records",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language or keyword query",
				},
			},
			Required: []string{"query"},
		},
	}
}

// inlineContextTool returns the tool definition for inline_context
func inlineContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "inline_context",
		Description: "Lexical or structural search over the indexed workspace",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (ignored for the codemap target)",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Optional relative path prefix to restrict the search",
				},
				"target": map[string]interface{}{
					"type":        "string",
					"description": "Search target: bm25 (keyword), codemap (declaration outline), or default",
					"enum":        []string{"bm25", "codemap", "default"},
					"default":     "default",
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report index lifecycle state, install state, and latest resource usage",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
