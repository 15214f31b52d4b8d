package mcp

import (
	"fmt"
	"strings"

	"github.com/versewright/versewright/pkg/models"
)

// formatSummary formats usage summaries as a text table.
func formatSummary(rows []models.UsageSummary) string {
	if len(rows) == 0 {
		return "No usage data found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-18s %-22s %8s %7s %10s %10s %10s %9s\n",
		"Operation", "Model", "Requests", "Failed", "Prompt", "Completion", "Total", "Avg ms")
	b.WriteString(strings.Repeat("-", 101) + "\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-18s %-22s %8d %7d %10d %10d %10d %9d\n",
			r.Operation, r.Model, r.RequestCount, r.FailedCount,
			r.TotalPrompt, r.TotalCompletion, r.TotalTokens, r.AvgLatencyMs)
	}
	return b.String()
}

// formatCacheStats formats per-tier cache stats as text.
func formatCacheStats(stats []models.CacheStats) string {
	var b strings.Builder
	b.WriteString("Cache Statistics\n")
	for _, st := range stats {
		total := st.Hits + st.Misses
		hitRate := float64(0)
		if total > 0 {
			hitRate = float64(st.Hits) / float64(total) * 100
		}
		fmt.Fprintf(&b, "  [%s]\n"+
			"    Entries:  %d\n"+
			"    Hits:     %d\n"+
			"    Misses:   %d\n"+
			"    Hit Rate: %.1f%%\n",
			st.Tier, st.Entries, st.Hits, st.Misses, hitRate)
	}
	return b.String()
}

// formatList numbers items one per line.
func formatList(items []string) string {
	if len(items) == 0 {
		return "No suggestions returned."
	}
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	return b.String()
}
