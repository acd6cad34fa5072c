package chunker

import (
	"regexp"
	"strings"
)

// OutlineEntry is a structural landmark in a file, used by codemap queries.
type OutlineEntry struct {
	Name      string
	Kind      string
	Line      int // 1-based
	Signature string
}

// declPatterns are per-kind declaration matchers. They are intentionally
// rough: codemap is a navigation aid, not a parser.
var declPatterns = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"function", regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?(?:func|def|function|fn|sub)\s+([A-Za-z_][A-Za-z0-9_]*)`)},
	{"type", regexp.MustCompile(`^\s*(?:export\s+)?(?:type|class|struct|interface|enum|trait)\s+([A-Za-z_][A-Za-z0-9_]*)`)},
	{"method", regexp.MustCompile(`^\s*(?:public|private|protected|static)\s+[\w<>\[\]]+\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)},
}

// Outline extracts structural landmarks from file content
func Outline(content []byte) []OutlineEntry {
	if len(content) == 0 || looksBinary(content) {
		return nil
	}

	entries := make([]OutlineEntry, 0)
	for i, line := range strings.Split(string(content), "\n") {
		for _, p := range declPatterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			entries = append(entries, OutlineEntry{
				Name:      m[1],
				Kind:      p.kind,
				Line:      i + 1,
				Signature: strings.TrimSpace(line),
			})
			break
		}
	}
	return entries
}
