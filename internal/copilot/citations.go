package copilot

import (
	"regexp"
	"strings"

	"github.com/forgeline/linesight/internal/models"
)

var citationPattern = regexp.MustCompile(`\[([^\[\]]+)\]`)

// extractCitations scans the answer for [source] tokens and keeps those
// that name a retrieved source document, deduplicated and ordered by first
// appearance. A "#chunk" suffix inside the bracket is tolerated.
func extractCitations(answer string, chunks []*models.ScoredChunk) []string {
	known := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		known[c.Chunk.SourceDocument] = true
	}

	citations := make([]string, 0, len(known))
	seen := make(map[string]bool)
	for _, match := range citationPattern.FindAllStringSubmatch(answer, -1) {
		name := match[1]
		if i := strings.IndexByte(name, '#'); i >= 0 {
			name = name[:i]
		}
		if !known[name] || seen[name] {
			continue
		}
		seen[name] = true
		citations = append(citations, name)
	}
	return citations
}
