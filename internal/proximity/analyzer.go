package proximity

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ConectaAbrigos/abrigos-backend/internal/geo"
	"github.com/ConectaAbrigos/abrigos-backend/internal/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RecomputeOptions tunes a single recompute run.
type RecomputeOptions struct {
	// ForceRefresh re-geocodes every entity instead of trusting the cache.
	ForceRefresh bool
	Notes        string
}

// Analyzer computes and serves user-to-shelter proximity rankings.
type Analyzer struct {
	source EntitySource
	store  Store
	cache  *CoordinateCache
	locker Locker
	cfg    Config
	now    func() time.Time
}

func NewAnalyzer(source EntitySource, store Store, cache *CoordinateCache, locker Locker, cfg Config) *Analyzer {
	return &Analyzer{
		source: source,
		store:  store,
		cache:  cache,
		locker: locker,
		cfg:    cfg,
		now:    time.Now,
	}
}

// RecomputeAll rebuilds every ranking from the current users and shelters
// and stores the result as a new run. Existing data is only replaced once
// the new run is complete; any earlier failure leaves it untouched.
func (a *Analyzer) RecomputeAll(ctx context.Context, opts RecomputeOptions) (*Report, error) {
	start := time.Now()

	unlock, ok, err := a.locker.TryLock(ctx, RecomputeLockKey)
	if err != nil {
		return nil, a.fail(fmt.Errorf("acquire recompute lock: %w", err), start)
	}
	if !ok {
		metrics.ObserveRecompute("busy", time.Since(start))
		return nil, ErrRecomputeInProgress
	}
	defer unlock()

	users, err := a.source.ListUsers(ctx)
	if err != nil {
		return nil, a.fail(fmt.Errorf("%w: list users: %w", ErrUpstreamUnavailable, err), start)
	}
	shelters, err := a.source.ListShelters(ctx)
	if err != nil {
		return nil, a.fail(fmt.Errorf("%w: list shelters: %w", ErrUpstreamUnavailable, err), start)
	}

	userIDs := make([]uuid.UUID, len(users))
	for i, u := range users {
		userIDs[i] = u.ID
	}
	shelterIDs := make([]uuid.UUID, len(shelters))
	for i, s := range shelters {
		shelterIDs[i] = s.ID
	}

	userCoords := a.resolveCoordinates(ctx, KindUser, userIDs, func(id uuid.UUID) AddressSupplier {
		return func(ctx context.Context) (*Address, error) { return a.source.UserAddress(ctx, id) }
	}, opts.ForceRefresh)
	shelterCoords := a.resolveCoordinates(ctx, KindShelter, shelterIDs, func(id uuid.UUID) AddressSupplier {
		return func(ctx context.Context) (*Address, error) { return a.source.ShelterAddress(ctx, id) }
	}, opts.ForceRefresh)

	// Nothing has been written to the analysis set yet, so cancelling here is safe.
	if err := ctx.Err(); err != nil {
		return nil, a.fail(err, start)
	}

	runID := uuid.New()
	computedAt := a.now()
	analyses := rankAll(runID, computedAt, users, userCoords, shelters, shelterCoords)

	report := summarize(runID, computedAt, analyses)
	report.TotalUsers = len(users)
	report.TotalShelters = len(shelters)
	report.UsersWithCoordinates = countUsable(userCoords)
	report.SheltersWithCoordinates = countUsable(shelterCoords)
	report.Notes = opts.Notes

	if err := a.store.SaveRun(ctx, report, analyses); err != nil {
		return nil, a.fail(fmt.Errorf("persist run: %w", err), start)
	}

	d := time.Since(start)
	metrics.ObserveRecompute("success", d)
	metrics.SetLastRunComputations(report.TotalComputations)
	logRecompute(report, d)
	return report, nil
}

func (a *Analyzer) fail(err error, start time.Time) error {
	d := time.Since(start)
	metrics.ObserveRecompute("error", d)
	logRecomputeError(err, d)
	return err
}

// resolveCoordinates looks up every entity with bounded concurrency and
// waits for all of them. Entities whose lookup fails are left out.
func (a *Analyzer) resolveCoordinates(ctx context.Context, kind Kind, ids []uuid.UUID, supplierFor func(uuid.UUID) AddressSupplier, force bool) map[uuid.UUID]*Coordinate {
	results := make([]*Coordinate, len(ids))

	var g errgroup.Group
	g.SetLimit(a.cfg.GeocodeConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			coord, err := a.cache.FindOrCreate(ctx, kind, id, supplierFor(id), force)
			if err != nil {
				logEntitySkipped(kind, id, err)
				return nil
			}
			results[i] = coord
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[uuid.UUID]*Coordinate, len(ids))
	for i, id := range ids {
		if results[i] != nil {
			out[id] = results[i]
		}
	}
	return out
}

// rankAll builds the analysis set: for each user with a usable point, every
// shelter with a usable point ordered by distance, ties by shelter id.
func rankAll(runID uuid.UUID, computedAt time.Time, users []UserRecord, userCoords map[uuid.UUID]*Coordinate, shelters []ShelterRecord, shelterCoords map[uuid.UUID]*Coordinate) []Analysis {
	var ranked []ShelterRecord
	for _, s := range shelters {
		if shelterCoords[s.ID].Usable() {
			ranked = append(ranked, s)
		}
	}
	if len(ranked) == 0 {
		return nil
	}

	ordered := slices.Clone(users)
	slices.SortFunc(ordered, func(x, y UserRecord) int {
		return strings.Compare(x.ID.String(), y.ID.String())
	})

	var out []Analysis
	for _, u := range ordered {
		uc := userCoords[u.ID]
		if !uc.Usable() {
			continue
		}

		rows := make([]Analysis, 0, len(ranked))
		for _, s := range ranked {
			sc := shelterCoords[s.ID]
			rows = append(rows, Analysis{
				ID:                  uuid.New(),
				RunID:               runID,
				UserID:              u.ID,
				ShelterID:           s.ID,
				DistanceKm:          geo.HaversineKm(*uc.Latitude, *uc.Longitude, *sc.Latitude, *sc.Longitude),
				ComputedAt:          computedAt,
				UserCoordinateID:    &uc.ID,
				ShelterCoordinateID: &sc.ID,
				UserName:            u.Name,
				UserEmail:           u.Email,
				UserAddress:         uc.FullAddress,
				ShelterName:         s.Name,
				ShelterAddress:      sc.FullAddress,
				ShelterCapacity:     s.Capacity,
				ShelterOccupancy:    s.Occupancy,
			})
		}

		slices.SortFunc(rows, func(x, y Analysis) int {
			if c := cmp.Compare(x.DistanceKm, y.DistanceKm); c != 0 {
				return c
			}
			return strings.Compare(x.ShelterID.String(), y.ShelterID.String())
		})
		for i := range rows {
			rows[i].Rank = i + 1
		}
		out = append(out, rows...)
	}
	return out
}

func countUsable(coords map[uuid.UUID]*Coordinate) int {
	n := 0
	for _, c := range coords {
		if c.Usable() {
			n++
		}
	}
	return n
}

// TopNForUser returns the user's n best-ranked shelters from the current run.
// n <= 0 uses the configured default.
func (a *Analyzer) TopNForUser(ctx context.Context, userID uuid.UUID, n int) ([]Analysis, error) {
	if n <= 0 {
		n = a.cfg.TopN
	}
	_, out, err := readCurrentRun(ctx, a.store, func(runID uuid.UUID) ([]Analysis, error) {
		return a.store.TopAnalyses(ctx, runID, userID, n)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Analysis{}
	}
	return out, nil
}

// Rankings returns the current run, optionally narrowed to one user.
func (a *Analyzer) Rankings(ctx context.Context, userID *uuid.UUID) ([]Analysis, error) {
	var filter []uuid.UUID
	if userID != nil {
		filter = []uuid.UUID{*userID}
	}
	_, out, err := readCurrentRun(ctx, a.store, func(runID uuid.UUID) ([]Analysis, error) {
		return a.store.ListAnalyses(ctx, runID, filter)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Analysis{}
	}
	return out, nil
}

// Reports returns the newest reports first.
func (a *Analyzer) Reports(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = a.cfg.ReportHistoryLimit
	}
	return a.store.ListReports(ctx, limit)
}
