package completion

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aceteam-ai/skillcraft/internal/usage"
	"github.com/aceteam-ai/skillcraft/internal/watsonx"
)

type fakeGenerator struct {
	gen       *watsonx.Generation
	err       error
	gotPrompt string
	gotMax    int
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, maxNewTokens int) (*watsonx.Generation, error) {
	f.gotPrompt = prompt
	f.gotMax = maxNewTokens
	if f.err != nil {
		return nil, f.err
	}
	return f.gen, nil
}

type failingAppender struct{ err error }

func (f failingAppender) Append(usage.Record) error { return f.err }

func TestCompleteLogsUsage(t *testing.T) {
	log := usage.OpenLog(filepath.Join(t.TempDir(), "cost_sheet.csv"))
	gen := &fakeGenerator{gen: &watsonx.Generation{Text: "plan listo", InputTokens: 900, GeneratedTokens: 600}}
	fixed := time.Date(2025, 5, 5, 5, 5, 5, 0, time.UTC)

	c := NewClient(gen, log, WithClock(func() time.Time { return fixed }))

	text, err := c.Complete(context.Background(), "haz un plan", 256)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "plan listo" {
		t.Errorf("text = %q, want %q", text, "plan listo")
	}
	if gen.gotPrompt != "haz un plan" || gen.gotMax != 256 {
		t.Errorf("generator got (%q, %d)", gen.gotPrompt, gen.gotMax)
	}

	records, err := log.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	want := usage.Record{Timestamp: fixed, ResourceUnits: 1.5, ComputeUnitHours: 0}
	if len(records) != 1 || records[0] != want {
		t.Errorf("records = %+v, want [%+v]", records, want)
	}
}

func TestCompleteFailureSkipsLogging(t *testing.T) {
	log := usage.OpenLog(filepath.Join(t.TempDir(), "cost_sheet.csv"))
	upstream := errors.New("503 from upstream")
	c := NewClient(&fakeGenerator{err: upstream}, log)

	_, err := c.Complete(context.Background(), "p", 64)
	if err != upstream {
		t.Errorf("error = %v, want the upstream error unmodified", err)
	}

	records, err := log.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records after failed completion, got %d", len(records))
	}
}

func TestCompleteDefaultMaxTokens(t *testing.T) {
	gen := &fakeGenerator{gen: &watsonx.Generation{Text: "x"}}
	c := NewClient(gen, usage.OpenLog(filepath.Join(t.TempDir(), "c.csv")))

	if _, err := c.Complete(context.Background(), "p", 0); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if gen.gotMax != DefaultMaxTokens {
		t.Errorf("max tokens = %d, want %d", gen.gotMax, DefaultMaxTokens)
	}
}

func TestCompleteAppendFailure(t *testing.T) {
	diskFull := errors.New("no space left on device")
	gen := &fakeGenerator{gen: &watsonx.Generation{Text: "x", InputTokens: 1}}
	c := NewClient(gen, failingAppender{err: diskFull})

	text, err := c.Complete(context.Background(), "p", 8)
	if !errors.Is(err, diskFull) {
		t.Errorf("error = %v, want wrapped %v", err, diskFull)
	}
	if text != "" {
		t.Errorf("text = %q, want empty on append failure", text)
	}
}
