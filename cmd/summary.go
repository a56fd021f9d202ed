// cmd/summary.go
package cmd

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/aceteam-ai/skillcraft/internal/usage"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// summaryRows is how many trailing log rows the summary prints.
const summaryRows = 5

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	totalColor  = color.New(color.FgGreen, color.Bold)
	badColor    = color.New(color.FgRed)
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the latest usage rows and the running totals",
	Long: `Reads the whole usage log and prints its last five rows followed by the
total resource units (RU) and compute unit hours (CUH). A missing log counts as
empty. The command always exits 0; a log that cannot be read is reported.`,
	Example: `  # Summarize the default cost sheet
  skillcraft summary

  # Summarize another log without colors
  skillcraft summary --cost-file /tmp/cost_sheet.csv --no-color`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := costFile
		if path == "" {
			cfg, err := loadConfig()
			if err != nil {
				badColor.Fprintf(cmd.OutOrStdout(), "could not load config: %v\n", err)
				return
			}
			path = cfg.CostFile
		}
		printSummary(cmd.OutOrStdout(), usage.NewAggregator(usage.OpenLog(path)))
	},
}

// printSummary writes the summary and reports read failures inline.
func printSummary(out io.Writer, agg *usage.Aggregator) {
	snap, err := agg.Snapshot(summaryRows)
	if err != nil {
		logger.Warn("could not read usage log", zap.Error(err))
		badColor.Fprintf(out, "could not read usage log: %v\n", err)
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	headerColor.Fprintf(w, "--- Last %d calls ---\n", summaryRows)
	fmt.Fprintf(w, "%s\t%s\t%s\n", usage.ColumnTimestamp, usage.ColumnRU, usage.ColumnCUH)
	if len(snap.Recent) == 0 {
		fmt.Fprintln(w, "(no usage recorded)")
	}
	for _, r := range snap.Recent {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			r.Timestamp.UTC().Format(usage.TimestampLayout),
			strconv.FormatFloat(r.ResourceUnits, 'f', -1, 64),
			strconv.FormatFloat(r.ComputeUnitHours, 'f', -1, 64))
	}
	w.Flush()

	fmt.Fprintln(out)
	fmt.Fprint(out, "Total RU: ")
	totalColor.Fprintf(out, "%s\n", strconv.FormatFloat(snap.TotalResourceUnits, 'f', -1, 64))
	fmt.Fprint(out, "Total CUH: ")
	totalColor.Fprintf(out, "%s\n", strconv.FormatFloat(snap.TotalComputeUnitHours, 'f', -1, 64))
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}
