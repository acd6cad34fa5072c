// Package chunker divides workspace files into indexable sections.
//
// Unlike a parser-backed chunker, this one is language agnostic: the index
// server handles whatever the workspace collector hands it, so boundaries
// are blank-line separated blocks capped by token and line budgets rather
// than AST nodes.
//
// # Basic Usage
//
//	c := chunker.New()
//	chunks, err := c.ChunkFile("/path/to/file.py", fileID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, chunk := range chunks {
//	    fmt.Printf("Chunk: %d tokens, lines %d-%d\n",
//	        chunk.TokenCount, chunk.StartLine, chunk.EndLine)
//	}
//
// # Context
//
// Each chunk carries the leading lines of its file (package clause, imports,
// module docstring) as ContextBefore, so a chunk embeds and searches with
// enough surrounding information to stand alone.
//
// # Language Detection and Outlines
//
// DetectLanguage maps file extensions to language tags, with "unknown" as
// the sentinel for unrecognized files. Outline extracts rough structural
// landmarks (functions, types, methods) for codemap queries using per-kind
// regular expressions; it is a navigation aid, not a parser.
package chunker
