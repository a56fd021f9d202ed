// Package dashboard renders the usage log in the terminal.
package dashboard

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aceteam-ai/skillcraft/internal/usage"
	"github.com/rivo/tview"
)

const (
	// RecentRows is how many log rows the dashboard shows.
	RecentRows = 25

	// DefaultRefreshInterval is the auto-refresh period.
	DefaultRefreshInterval = 5 * time.Second
)

// TableHeader names the row table columns.
var TableHeader = []string{"timestamp", "ru", "cuh"}

// Data is what the dashboard last loaded.
type Data struct {
	Snapshot   usage.Snapshot
	LastUpdate time.Time
	Err        error
}

// TotalsLine formats the two metrics for the totals panel:
// RU with one decimal, CUH with two.
func TotalsLine(s usage.Snapshot) string {
	return fmt.Sprintf("Total RU: [green::b]%.1f[-::-]    Total CUH: [green::b]%.2f[-::-]    Calls: [white]%d[-]",
		s.TotalResourceUnits, s.TotalComputeUnitHours, s.Count)
}

// TableRows formats records as table cells, oldest first.
func TableRows(records []usage.Record) [][]string {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			r.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			strconv.FormatFloat(r.ResourceUnits, 'f', 3, 64),
			strconv.FormatFloat(r.ComputeUnitHours, 'f', 2, 64),
		}
	}
	return rows
}

// StatusLine renders the key help and the last update time or error.
func StatusLine(d Data, autoRefresh bool) string {
	autoStr := "[red]off[-]"
	if autoRefresh {
		autoStr = "[green]on[-]"
	}

	lastUpdate := "[gray]never[-]"
	if !d.LastUpdate.IsZero() {
		lastUpdate = "[gray]" + d.LastUpdate.Format("15:04:05") + "[-]"
	}
	if d.Err != nil {
		lastUpdate = "[red]" + tview.Escape(d.Err.Error()) + "[-]"
	}

	return fmt.Sprintf(
		" [yellow][r][-]efresh  [yellow][a][-]uto-refresh: %s  [yellow][q][-]uit  |  Last update: %s",
		autoStr, lastUpdate,
	)
}
