package proximity

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// memStore is an in-memory Store with the same ordering rules as GormStore.
type memStore struct {
	mu        sync.Mutex
	coords    map[string]Coordinate
	reports   []Report
	analyses  []Analysis
	saveErr   error
	saveCalls int
}

func newMemStore() *memStore {
	return &memStore{coords: make(map[string]Coordinate)}
}

func coordKey(kind Kind, ref uuid.UUID) string { return string(kind) + "/" + ref.String() }

func (m *memStore) FindCoordinate(_ context.Context, kind Kind, ref uuid.UUID) (*Coordinate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coords[coordKey(kind, ref)]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *memStore) CreateCoordinate(_ context.Context, c *Coordinate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := coordKey(c.Kind, c.ReferenceID)
	if _, ok := m.coords[key]; ok {
		return ErrDuplicate
	}
	m.coords[key] = *c
	return nil
}

func (m *memStore) UpdateCoordinate(_ context.Context, c *Coordinate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, existing := range m.coords {
		if existing.ID == c.ID {
			existing.AddressID = c.AddressID
			existing.Latitude, existing.Longitude = c.Latitude, c.Longitude
			existing.FullAddress = c.FullAddress
			existing.UpdatedAt = c.UpdatedAt
			existing.Status = c.Status
			m.coords[key] = existing
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) ListCoordinates(_ context.Context, kind Kind) ([]Coordinate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Coordinate
	for _, c := range m.coords {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b Coordinate) int {
		return strings.Compare(a.ReferenceID.String(), b.ReferenceID.String())
	})
	return out, nil
}

func (m *memStore) SaveRun(_ context.Context, report *Report, analyses []Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.reports = append(m.reports, *report)
	m.analyses = slices.Clone(analyses)
	return nil
}

func (m *memStore) LatestReport(_ context.Context) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.reports) == 0 {
		return nil, nil
	}
	latest := m.reports[0]
	for _, r := range m.reports[1:] {
		if !r.GeneratedAt.Before(latest.GeneratedAt) {
			latest = r
		}
	}
	return &latest, nil
}

func (m *memStore) ListReports(_ context.Context, limit int) ([]Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.reports)
	slices.SortStableFunc(out, func(a, b Report) int { return b.GeneratedAt.Compare(a.GeneratedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListAnalyses(_ context.Context, runID uuid.UUID, userIDs []uuid.UUID) ([]Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Analysis
	for _, a := range m.analyses {
		if a.RunID != runID {
			continue
		}
		if len(userIDs) > 0 && !slices.Contains(userIDs, a.UserID) {
			continue
		}
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b Analysis) int {
		if c := strings.Compare(a.UserID.String(), b.UserID.String()); c != 0 {
			return c
		}
		return a.Rank - b.Rank
	})
	return out, nil
}

func (m *memStore) TopAnalyses(ctx context.Context, runID, userID uuid.UUID, n int) ([]Analysis, error) {
	rows, err := m.ListAnalyses(ctx, runID, []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}

func (m *memStore) coordinateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.coords)
}

func (m *memStore) allAnalyses() []Analysis {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.analyses)
}

// fakeGeocoder resolves addresses from a fixed table keyed by Address.Query.
type fakeGeocoder struct {
	mu     sync.Mutex
	points map[string][2]float64
	calls  int
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{points: make(map[string][2]float64)}
}

func (g *fakeGeocoder) set(a *Address, lat, lng float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.points[a.Query()] = [2]float64{lat, lng}
}

func (g *fakeGeocoder) unset(a *Address) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.points, a.Query())
}

func (g *fakeGeocoder) Resolve(_ context.Context, address string) (float64, float64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	p, ok := g.points[address]
	return p[0], p[1], ok
}

func (g *fakeGeocoder) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// fakeSource serves fixed users and shelters.
type fakeSource struct {
	mu         sync.Mutex
	users      []UserRecord
	shelters   []ShelterRecord
	listErr    error
	addressErr map[uuid.UUID]error
}

func (s *fakeSource) ListUsers(context.Context) ([]UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return slices.Clone(s.users), nil
}

func (s *fakeSource) ListShelters(context.Context) ([]ShelterRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return slices.Clone(s.shelters), nil
}

func (s *fakeSource) UserAddress(_ context.Context, id uuid.UUID) (*Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.addressErr[id]; err != nil {
		return nil, err
	}
	for _, u := range s.users {
		if u.ID == id {
			return u.Address, nil
		}
	}
	return nil, errors.New("user not found")
}

func (s *fakeSource) ShelterAddress(_ context.Context, id uuid.UUID) (*Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.addressErr[id]; err != nil {
		return nil, err
	}
	for _, sh := range s.shelters {
		if sh.ID == id {
			return sh.Address, nil
		}
	}
	return nil, errors.New("shelter not found")
}

func testID(n int) uuid.UUID {
	var u uuid.UUID
	u[15] = byte(n)
	u[14] = byte(n >> 8)
	return u
}

func streetAddress(street, city, state string) *Address {
	return &Address{Street: street, City: city, State: state}
}

const (
	spLat, spLng   = -23.5505, -46.6333
	rioLat, rioLng = -22.9068, -43.1729
)

// racyStore runs onLatest once, right after the first LatestReport call
// returns, to land a recompute between a reader's two statements.
type racyStore struct {
	*memStore
	mu       sync.Mutex
	onLatest func()
}

func (s *racyStore) LatestReport(ctx context.Context) (*Report, error) {
	r, err := s.memStore.LatestReport(ctx)

	s.mu.Lock()
	hook := s.onLatest
	s.onLatest = nil
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return r, err
}
