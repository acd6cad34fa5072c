// Package mcp exposes the index controller as an MCP stdio server.
//
// Four tools are registered: build_index triggers a workspace collection
// and index build, query runs a semantic search and returns normalized
// context records, inline_context runs lexical or structural search, and
// get_status reports lifecycle state and resource usage. Handlers
// translate controller sentinel errors into MCP error codes; query
// results are returned as indented JSON text content.
package mcp
