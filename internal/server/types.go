package server

import (
	"time"

	"github.com/aceteam-ai/skillcraft/internal/usage"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// HealthStatusOK is the only status the server currently reports.
const HealthStatusOK = "ok"

// UsageRow is one cost sheet row as served to dashboards.
type UsageRow struct {
	Timestamp time.Time `json:"timestamp"`
	RU        float64   `json:"ru"`
	CUH       float64   `json:"cuh"`
}

// UsageResponse is returned by GET /usage.
type UsageResponse struct {
	TotalRU  float64    `json:"total_ru"`
	TotalCUH float64    `json:"total_cuh"`
	Count    int        `json:"count"`
	Recent   []UsageRow `json:"recent"`
}

// NewUsageResponse converts an aggregator snapshot.
func NewUsageResponse(s usage.Snapshot) UsageResponse {
	rows := make([]UsageRow, len(s.Recent))
	for i, r := range s.Recent {
		rows[i] = UsageRow{Timestamp: r.Timestamp, RU: r.ResourceUnits, CUH: r.ComputeUnitHours}
	}
	return UsageResponse{
		TotalRU:  s.TotalResourceUnits,
		TotalCUH: s.TotalComputeUnitHours,
		Count:    s.Count,
		Recent:   rows,
	}
}
