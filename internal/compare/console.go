package compare

import (
	"fmt"
	"io"
	"sort"
)

// PrintFinalScores renders the same fixed-width summary table the original
// scoring tool printed to stdout, plus a winner callout.
func PrintFinalScores(w io.Writer, finals map[string]FinalScore) {
	fmt.Fprintf(w, "%-15s %-15s %-12s %-12s %-10s %-20s %-6s\n",
		"Database", "Performance", "Curation", "Operational", "TOTAL", "Threshold", "Rank")
	fmt.Fprintln(w, "----------------------------------------------------------------------------------------------")

	names := make([]string, 0, len(finals))
	for db := range finals {
		names = append(names, db)
	}
	sort.Slice(names, func(i, j int) bool { return finals[names[i]].Rank < finals[names[j]].Rank })

	var winner FinalScore
	for _, db := range names {
		f := finals[db]
		if f.Rank == 1 {
			winner = f
		}
		fmt.Fprintf(w, "%-15s %7.1f/60     %6.1f/20   %6.1f/20    %7.1f/100  %-20s #%d\n",
			db, f.Performance.TotalPerformance, f.Curation.TotalCuration,
			f.Operational.TotalOperational, f.TotalScore, string(f.ThresholdStatus), f.Rank)
	}

	fmt.Fprintf(w, "\nWINNER: %s\n", winner.Database)
	fmt.Fprintf(w, "  Total Score: %.1f/100\n", winner.TotalScore)
	fmt.Fprintf(w, "  Threshold Status: %s\n", winner.ThresholdStatus)
	if winner.RequiresMitigation {
		fmt.Fprintf(w, "  Requires Mitigation: yes (never reached CONDITIONAL_PASS in any matrix cell)\n")
	}
	fmt.Fprintf(w, "  Recommendation: %s\n", winner.Recommendation)
}
