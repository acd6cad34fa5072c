// Package types provides shared type definitions for the semdex workspace index.
//
// This package defines domain types used across both sides of the host/child
// split: the lifecycle controller, workspace collector and usage monitor on
// the host side, and the chunking, storage and search pipeline inside the
// index server.
//
// # Core Types
//
// Chunk represents an indexed section of a workspace file:
//
//	chunk := &types.Chunk{
//	    Content:       section,
//	    ContextBefore: fileHeader,
//	    StartLine:     120,
//	    EndLine:       160,
//	}
//
// FileDescriptor is the unit the workspace collector produces and the build
// pipeline consumes:
//
//	fd := types.FileDescriptor{Path: "/proj/a/main.py", SizeBytes: 2048}
//
// ContextRecord is the normalized form a semantic query returns to the
// editor host. SearchResult carries the raw engine-side scoring before
// normalization.
//
// # Index States
//
// IndexState models the lifecycle of the managed index server:
//
//	NotInstalled -> Installed -> Activating -> Indexing -> Ready
//
// Any state may move to Failed; Ready and Failed may re-enter Indexing when
// a re-index is requested.
//
// # Validation
//
// Chunk and SearchResult implement validation methods to ensure data
// integrity before persistence or transport:
//
//	if err := chunk.Validate(); err != nil {
//	    return err
//	}
package types
