package usage

// Aggregator computes totals and tail views over a usage log. It holds no
// state of its own; every call re-reads the log.
type Aggregator struct {
	src Reader
}

// Snapshot is everything a presentation surface needs from one read.
type Snapshot struct {
	TotalResourceUnits    float64
	TotalComputeUnitHours float64
	Count                 int
	Recent                []Record
}

// NewAggregator returns an Aggregator reading from src.
func NewAggregator(src Reader) *Aggregator {
	return &Aggregator{src: src}
}

// TotalResourceUnits sums ResourceUnits over the whole log.
func (a *Aggregator) TotalResourceUnits() (float64, error) {
	records, err := a.src.ReadAll()
	if err != nil {
		return 0, err
	}
	ru, _ := totals(records)
	return ru, nil
}

// TotalComputeUnitHours sums ComputeUnitHours over the whole log.
func (a *Aggregator) TotalComputeUnitHours() (float64, error) {
	records, err := a.src.ReadAll()
	if err != nil {
		return 0, err
	}
	_, cuh := totals(records)
	return cuh, nil
}

// Tail returns the last n records in append order.
func (a *Aggregator) Tail(n int) ([]Record, error) {
	records, err := a.src.ReadAll()
	if err != nil {
		return nil, err
	}
	return tail(records, n), nil
}

// Snapshot reads the log once and returns both totals, the record count and
// the last n records.
func (a *Aggregator) Snapshot(n int) (Snapshot, error) {
	records, err := a.src.ReadAll()
	if err != nil {
		return Snapshot{}, err
	}
	ru, cuh := totals(records)
	return Snapshot{
		TotalResourceUnits:    ru,
		TotalComputeUnitHours: cuh,
		Count:                 len(records),
		Recent:                tail(records, n),
	}, nil
}

func totals(records []Record) (ru, cuh float64) {
	for _, r := range records {
		ru += r.ResourceUnits
		cuh += r.ComputeUnitHours
	}
	return ru, cuh
}

func tail(records []Record, n int) []Record {
	if n <= 0 {
		return []Record{}
	}
	if n > len(records) {
		n = len(records)
	}
	out := make([]Record, n)
	copy(out, records[len(records)-n:])
	return out
}
