package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/datasync-go/datasync/src/pipeline"
)

// printSummary 按完成顺序输出每个库的结果
func printSummary(w io.Writer, summary *pipeline.RunSummary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATABASE\tSTATE\tDURATION\tARTIFACT\tERROR")
	for _, r := range summary.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Database, r.State, r.Duration().Round(time.Millisecond), dash(r.Artifact), dash(r.ErrorMessage))
	}
	tw.Flush()

	counts := summary.Counts()
	fmt.Fprintf(w, "\nrun %s: %d databases, %d succeeded, %d backup failed, %d restore failed, %d cancelled\n",
		summary.RunID,
		len(summary.Results),
		counts[pipeline.StateSucceeded],
		counts[pipeline.StateBackupFailed],
		counts[pipeline.StateRestoreFailed],
		counts[pipeline.StateCancelled],
	)
}

// dash 把多行诊断压成一行，空值输出 "-"
func dash(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "-"
	}
	return s
}
