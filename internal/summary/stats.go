package summary

import (
	"github.com/montanaflynn/stats"
)

// DurationStats describes the case durations of a run, in seconds.
type DurationStats struct {
	Count  int     `json:"count"`
	Total  float64 `json:"total"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

func NewDurationStats(durations []float64) DurationStats {
	ds := DurationStats{Count: len(durations)}
	if len(durations) == 0 {
		return ds
	}
	ds.Total, _ = stats.Sum(durations)
	ds.Mean, _ = stats.Mean(durations)
	ds.Median, _ = stats.Median(durations)
	ds.P95, _ = stats.Percentile(durations, 95)
	ds.Max, _ = stats.Max(durations)
	return ds
}
