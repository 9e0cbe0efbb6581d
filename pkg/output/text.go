package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/depscope/depscope/pkg/analyzer"
)

// PrintTextReport writes the report in a tabular text format.
func PrintTextReport(w io.Writer, report *analyzer.Report) {
	const messageLimit = 100 // Max characters for the message column

	fmt.Fprintf(w, "depscope report for %s\n", report.ProjectRoot)
	fmt.Fprintf(w, "files scanned: %d", report.Summary.Files)
	if report.Summary.Degraded > 0 {
		fmt.Fprintf(w, " (%d degraded extractions)", report.Summary.Degraded)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "unused: %d  missing: %d  phantom: %d  cycles: %d  peer conflicts: %d  peer missing: %d\n\n",
		report.Summary.Unused, report.Summary.Missing, report.Summary.Phantom,
		report.Summary.Circular, report.Summary.PeerConflicts, report.Summary.PeerMissing)

	if len(report.Issues) == 0 {
		fmt.Fprintln(w, "No issues found.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "KIND\tSEVERITY\tCONF\tPACKAGE\tMESSAGE")
		fmt.Fprintln(tw, "----\t--------\t----\t-------\t-------")
		for _, issue := range report.Issues {
			msg := issue.Message
			if len(msg) > messageLimit {
				msg = msg[:messageLimit-3] + "..."
			}
			msg = strings.ReplaceAll(msg, "\t", " ")
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				issue.Kind, issue.Severity, issue.Confidence, issue.Name, msg)
		}
		tw.Flush()
	}

	if len(report.Latest) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Latest versions:")
		names := make([]string, 0, len(report.Latest))
		for name := range report.Latest {
			names = append(names, name)
		}
		sort.Strings(names)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, name := range names {
			info := report.Latest[name]
			deprecated := ""
			if info.Deprecated {
				deprecated = "(deprecated)"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", name, info.Latest, deprecated)
		}
		tw.Flush()
	}

	if len(report.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Warnings (%d):\n", len(report.Warnings))
		for _, warning := range report.Warnings {
			fmt.Fprintf(w, "  - %s\n", warning)
		}
	}
}
