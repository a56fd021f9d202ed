package dashboard

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aceteam-ai/skillcraft/internal/usage"
)

func TestTotalsLine(t *testing.T) {
	line := TotalsLine(usage.Snapshot{TotalResourceUnits: 12.345, TotalComputeUnitHours: 0, Count: 7})

	for _, want := range []string{"Total RU: [green::b]12.3", "Total CUH: [green::b]0.00", "Calls: [white]7"} {
		if !strings.Contains(line, want) {
			t.Errorf("TotalsLine = %q, missing %q", line, want)
		}
	}
}

func TestTableRows(t *testing.T) {
	records := []usage.Record{
		{Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 999, time.UTC), ResourceUnits: 0.064},
		{Timestamp: time.Date(2025, 1, 2, 3, 5, 0, 0, time.UTC), ResourceUnits: 1, ComputeUnitHours: 0.5},
	}

	rows := TableRows(records)
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	want := []string{"2025-01-02 03:04:05", "0.064", "0.00"}
	for i := range want {
		if rows[0][i] != want[i] {
			t.Errorf("rows[0][%d] = %q, want %q", i, rows[0][i], want[i])
		}
	}
	if rows[1][2] != "0.50" {
		t.Errorf("rows[1][2] = %q, want 0.50", rows[1][2])
	}
	if len(rows[0]) != len(TableHeader) {
		t.Errorf("row width %d does not match header width %d", len(rows[0]), len(TableHeader))
	}
}

func TestStatusLine(t *testing.T) {
	never := StatusLine(Data{}, true)
	if !strings.Contains(never, "never") || !strings.Contains(never, "[green]on") {
		t.Errorf("StatusLine = %q", never)
	}

	updated := StatusLine(Data{LastUpdate: time.Date(2025, 1, 1, 13, 14, 15, 0, time.Local)}, false)
	if !strings.Contains(updated, "13:14:15") || !strings.Contains(updated, "[red]off") {
		t.Errorf("StatusLine = %q", updated)
	}

	failed := StatusLine(Data{Err: errors.New("malformed usage row")}, true)
	if !strings.Contains(failed, "malformed usage row") {
		t.Errorf("StatusLine = %q, want error text", failed)
	}
}

func TestNewTviewDashboardDefaults(t *testing.T) {
	d := NewTviewDashboard("SkillCraft", 0, func() (usage.Snapshot, error) { return usage.Snapshot{}, nil })
	if d.interval != DefaultRefreshInterval {
		t.Errorf("interval = %v, want %v", d.interval, DefaultRefreshInterval)
	}
	if !d.autoRefresh {
		t.Error("auto-refresh should start enabled")
	}
}

func TestLoadKeepsLastGoodSnapshotOnError(t *testing.T) {
	calls := 0
	d := NewTviewDashboard("t", time.Second, func() (usage.Snapshot, error) {
		calls++
		if calls == 1 {
			return usage.Snapshot{Count: 3}, nil
		}
		return usage.Snapshot{}, errors.New("read failed")
	})

	d.load()
	if d.data.Snapshot.Count != 3 || d.data.Err != nil {
		t.Fatalf("data after first load = %+v", d.data)
	}

	d.load()
	if d.data.Snapshot.Count != 3 {
		t.Errorf("snapshot replaced on error: %+v", d.data.Snapshot)
	}
	if d.data.Err == nil {
		t.Error("error not recorded")
	}
}
