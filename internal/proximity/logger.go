package proximity

import (
	"log"
	"time"

	"github.com/google/uuid"
)

func logGeocodeMiss(kind Kind, referenceID uuid.UUID, query string) {
	log.Printf("[proximity] geocode miss kind=%s ref=%s address=%q", kind, referenceID, query)
}

func logEntitySkipped(kind Kind, referenceID uuid.UUID, err error) {
	log.Printf("[proximity] skipping %s %s this run: %v", kind, referenceID, err)
}

func logRecompute(r *Report, duration time.Duration) {
	log.Printf("[proximity] run=%s users=%d/%d shelters=%d/%d computations=%d in %dms",
		r.ID, r.UsersWithCoordinates, r.TotalUsers, r.SheltersWithCoordinates, r.TotalShelters,
		r.TotalComputations, duration.Milliseconds())
}

func logRecomputeError(err error, duration time.Duration) {
	log.Printf("[proximity] recompute failed after %dms: %v", duration.Milliseconds(), err)
}
