package cluster

import (
	"fmt"
	"strings"

	"github.com/paaalop/news-analyzer/internal/domain"
)

// Blocks renders clusters, in the given order, as labeled topic blocks for the summarizer.
// The label carries the member count so the model can rank by mention frequency.
func Blocks(clusters []*domain.Cluster) []string {
	out := make([]string, 0, len(clusters))
	for i, c := range clusters {
		var b strings.Builder
		fmt.Fprintf(&b, "[Topic %d | %d articles]\n", i+1, c.Count)
		for _, member := range c.Members() {
			b.WriteString("- ")
			b.WriteString(strings.TrimSpace(member))
			b.WriteByte('\n')
		}
		out = append(out, strings.TrimRight(b.String(), "\n"))
	}
	return out
}
