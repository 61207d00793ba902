package proximity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type UserView struct {
	ID         uuid.UUID   `json:"id"`
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Address    string      `json:"address"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
}

type ShelterView struct {
	ID         uuid.UUID   `json:"id"`
	Name       string      `json:"name"`
	Address    string      `json:"address"`
	Capacity   int         `json:"capacity"`
	Occupancy  int         `json:"occupancy"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
}

// Statistics mirrors the current report. Everything is zero/nil before the
// first run.
type Statistics struct {
	ReportID                *uuid.UUID `json:"report_id,omitempty"`
	GeneratedAt             *time.Time `json:"generated_at,omitempty"`
	TotalUsers              int        `json:"total_users"`
	TotalShelters           int        `json:"total_shelters"`
	UsersWithCoordinates    int        `json:"users_with_coordinates"`
	SheltersWithCoordinates int        `json:"shelters_with_coordinates"`
	TotalComputations       int        `json:"total_computations"`
	MeanKm                  *float64   `json:"mean_km"`
	MinKm                   *float64   `json:"min_km"`
	MaxKm                   *float64   `json:"max_km"`
}

type DashboardView struct {
	Users          []UserView    `json:"users"`
	Shelters       []ShelterView `json:"shelters"`
	Rankings       []Analysis    `json:"rankings"`
	Statistics     Statistics    `json:"statistics"`
	NeedsRecompute bool          `json:"needs_recompute"`
}

// Dashboard composes the read model. It never writes.
type Dashboard struct {
	source EntitySource
	store  Store
}

func NewDashboard(source EntitySource, store Store) *Dashboard {
	return &Dashboard{source: source, store: store}
}

// Build assembles the dashboard. topN == 0 returns every ranking of the
// current run; topN > 0 keeps only each user's first topN shelters.
func (d *Dashboard) Build(ctx context.Context, topN int) (*DashboardView, error) {
	users, err := d.source.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %w", ErrUpstreamUnavailable, err)
	}
	shelters, err := d.source.ListShelters(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list shelters: %w", ErrUpstreamUnavailable, err)
	}

	userCoords, err := d.coordinatesByRef(ctx, KindUser)
	if err != nil {
		return nil, err
	}
	shelterCoords, err := d.coordinatesByRef(ctx, KindShelter)
	if err != nil {
		return nil, err
	}

	view := &DashboardView{
		Users:    make([]UserView, 0, len(users)),
		Shelters: make([]ShelterView, 0, len(shelters)),
		Rankings: []Analysis{},
	}
	for _, u := range users {
		view.Users = append(view.Users, UserView{
			ID:         u.ID,
			Name:       u.Name,
			Email:      u.Email,
			Address:    u.Address.Format(),
			Coordinate: userCoords[u.ID],
		})
	}
	for _, s := range shelters {
		view.Shelters = append(view.Shelters, ShelterView{
			ID:         s.ID,
			Name:       s.Name,
			Address:    s.Address.Format(),
			Capacity:   s.Capacity,
			Occupancy:  s.Occupancy,
			Coordinate: shelterCoords[s.ID],
		})
	}

	report, rankings, err := readCurrentRun(ctx, d.store, func(runID uuid.UUID) ([]Analysis, error) {
		return d.store.ListAnalyses(ctx, runID, nil)
	})
	if err != nil {
		return nil, err
	}
	if report == nil {
		view.NeedsRecompute = true
		return view, nil
	}

	view.Statistics = Statistics{
		ReportID:                &report.ID,
		GeneratedAt:             &report.GeneratedAt,
		TotalUsers:              report.TotalUsers,
		TotalShelters:           report.TotalShelters,
		UsersWithCoordinates:    report.UsersWithCoordinates,
		SheltersWithCoordinates: report.SheltersWithCoordinates,
		TotalComputations:       report.TotalComputations,
		MeanKm:                  report.MeanKm,
		MinKm:                   report.MinKm,
		MaxKm:                   report.MaxKm,
	}
	for _, r := range rankings {
		if topN > 0 && r.Rank > topN {
			continue
		}
		view.Rankings = append(view.Rankings, r)
	}
	return view, nil
}

func (d *Dashboard) coordinatesByRef(ctx context.Context, kind Kind) (map[uuid.UUID]*Coordinate, error) {
	coords, err := d.store.ListCoordinates(ctx, kind)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*Coordinate, len(coords))
	for i := range coords {
		out[coords[i].ReferenceID] = &coords[i]
	}
	return out, nil
}
