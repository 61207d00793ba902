package proximity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicate           = errors.New("duplicate coordinate")
	ErrInvalidCoordinate   = errors.New("invalid coordinate")
	ErrRecomputeInProgress = errors.New("proximity recomputation already in progress")
	ErrUpstreamUnavailable = errors.New("user/shelter data unavailable")
	ErrRunChanged          = errors.New("current run kept changing while reading")
)

// Store persists coordinates, analysis runs and reports.
type Store interface {
	FindCoordinate(ctx context.Context, kind Kind, referenceID uuid.UUID) (*Coordinate, error)
	CreateCoordinate(ctx context.Context, c *Coordinate) error
	UpdateCoordinate(ctx context.Context, c *Coordinate) error
	ListCoordinates(ctx context.Context, kind Kind) ([]Coordinate, error)

	// SaveRun stores a report together with its analysis set and drops the
	// analyses of every older run, all or nothing.
	SaveRun(ctx context.Context, report *Report, analyses []Analysis) error
	// LatestReport returns nil, nil when no run has completed yet.
	LatestReport(ctx context.Context) (*Report, error)
	ListReports(ctx context.Context, limit int) ([]Report, error)
	// ListAnalyses returns a run ordered by user then rank. An empty userIDs
	// slice means every user.
	ListAnalyses(ctx context.Context, runID uuid.UUID, userIDs []uuid.UUID) ([]Analysis, error)
	TopAnalyses(ctx context.Context, runID, userID uuid.UUID, n int) ([]Analysis, error)
}

const maxRunReadAttempts = 5

// readCurrentRun reads rows of the current run and confirms the run was still
// current afterwards. SaveRun drops a run's rows in the same commit that
// publishes its successor, so an unchanged latest report means the rows are
// complete. Returns a nil report when no run has completed yet.
func readCurrentRun(ctx context.Context, s Store, read func(runID uuid.UUID) ([]Analysis, error)) (*Report, []Analysis, error) {
	report, err := s.LatestReport(ctx)
	if err != nil || report == nil {
		return nil, nil, err
	}

	for range maxRunReadAttempts {
		rows, err := read(report.ID)
		if err != nil {
			return nil, nil, err
		}

		after, err := s.LatestReport(ctx)
		if err != nil {
			return nil, nil, err
		}
		if after == nil || after.ID == report.ID {
			return report, rows, nil
		}
		report = after
	}
	return nil, nil, fmt.Errorf("%w after %d attempts", ErrRunChanged, maxRunReadAttempts)
}
