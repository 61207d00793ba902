package proximity

import (
	"time"

	"github.com/google/uuid"
)

// summarize derives the distance statistics of a run. Mean/min/max stay nil
// when the run produced no computations.
func summarize(runID uuid.UUID, generatedAt time.Time, analyses []Analysis) *Report {
	r := &Report{
		ID:                runID,
		GeneratedAt:       generatedAt,
		TotalComputations: len(analyses),
		Status:            ReportStatusGenerated,
	}
	if len(analyses) == 0 {
		return r
	}

	lo, hi := analyses[0].DistanceKm, analyses[0].DistanceKm
	var sum float64
	for _, a := range analyses {
		sum += a.DistanceKm
		lo = min(lo, a.DistanceKm)
		hi = max(hi, a.DistanceKm)
	}
	mean := sum / float64(len(analyses))

	r.MeanKm, r.MinKm, r.MaxKm = &mean, &lo, &hi
	return r
}
