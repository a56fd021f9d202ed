package usage

import "time"

// Record is one billed model invocation. Records are append-only; the log
// never rewrites one once written.
type Record struct {
	// Timestamp is UTC with microsecond precision, the precision the log
	// stores.
	Timestamp time.Time

	// ResourceUnits is (input tokens + generated tokens) / 1000.
	ResourceUnits float64

	// ComputeUnitHours is always logged as 0 for now.
	ComputeUnitHours float64
}

// NewRecord builds the record for a completion that consumed the given
// token counts.
func NewRecord(ts time.Time, inputTokens, generatedTokens int) Record {
	return Record{
		Timestamp:     ts.UTC().Truncate(time.Microsecond),
		ResourceUnits: float64(inputTokens+generatedTokens) / 1000.0,
	}
}
