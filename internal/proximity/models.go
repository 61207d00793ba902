package proximity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the owner of a coordinate.
type Kind string

const (
	KindUser    Kind = "usuario"
	KindShelter Kind = "abrigo"
)

// ParseKind validates a kind coming from a URL or query string.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindUser, KindShelter:
		return Kind(raw), nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidCoordinate, raw)
}

// Status soft-enables or soft-disables a coordinate.
type Status string

const (
	StatusActive   Status = "Ativo"
	StatusInactive Status = "Inativo"
)

const ReportStatusGenerated = "Generated"

// Coordinate is the cached geocoding result for one user or shelter.
// Latitude/Longitude are nil when geocoding failed.
type Coordinate struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Kind        Kind       `json:"kind" gorm:"type:text;not null;uniqueIndex:idx_coordinate_ref"`
	ReferenceID uuid.UUID  `json:"reference_id" gorm:"type:uuid;not null;uniqueIndex:idx_coordinate_ref"`
	AddressID   *uuid.UUID `json:"address_id,omitempty" gorm:"type:uuid"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	FullAddress string     `json:"full_address"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Status      Status     `json:"status" gorm:"type:text;not null;default:'Ativo'"`
}

func (Coordinate) TableName() string { return "proximity.coordinates" }

// HasPoint reports whether geocoding produced a point.
func (c *Coordinate) HasPoint() bool {
	return c != nil && c.Latitude != nil && c.Longitude != nil
}

// Usable reports whether the coordinate takes part in rankings.
func (c *Coordinate) Usable() bool {
	return c.HasPoint() && c.Status != StatusInactive
}

// Analysis is one user-to-shelter distance fact of a recompute run. The
// user and shelter fields are captured at computation time so a run can be
// served without re-reading the directory.
type Analysis struct {
	ID                  uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	RunID               uuid.UUID  `json:"run_id" gorm:"type:uuid;not null;index:idx_analysis_run_user"`
	UserID              uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index:idx_analysis_run_user"`
	ShelterID           uuid.UUID  `json:"shelter_id" gorm:"type:uuid;not null"`
	DistanceKm          float64    `json:"distance_km" gorm:"not null"`
	Rank                int        `json:"rank" gorm:"not null;index:idx_analysis_run_user"`
	ComputedAt          time.Time  `json:"computed_at" gorm:"not null"`
	UserCoordinateID    *uuid.UUID `json:"user_coordinate_id,omitempty" gorm:"type:uuid"`
	ShelterCoordinateID *uuid.UUID `json:"shelter_coordinate_id,omitempty" gorm:"type:uuid"`

	UserName         string `json:"user_name"`
	UserEmail        string `json:"user_email"`
	UserAddress      string `json:"user_address"`
	ShelterName      string `json:"shelter_name"`
	ShelterAddress   string `json:"shelter_address"`
	ShelterCapacity  int    `json:"shelter_capacity"`
	ShelterOccupancy int    `json:"shelter_occupancy"`
}

func (Analysis) TableName() string { return "proximity.analyses" }

// Report summarizes one recompute run. Its ID is the run id of the analyses
// it describes; the newest report by GeneratedAt is the current one.
type Report struct {
	ID                      uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	GeneratedAt             time.Time `json:"generated_at" gorm:"not null;index"`
	TotalUsers              int       `json:"total_users"`
	TotalShelters           int       `json:"total_shelters"`
	TotalComputations       int       `json:"total_computations"`
	UsersWithCoordinates    int       `json:"users_with_coordinates"`
	SheltersWithCoordinates int       `json:"shelters_with_coordinates"`
	MeanKm                  *float64  `json:"mean_km"`
	MinKm                   *float64  `json:"min_km"`
	MaxKm                   *float64  `json:"max_km"`
	Status                  string    `json:"status" gorm:"not null;default:'Generated'"`
	Notes                   string    `json:"notes,omitempty"`
}

func (Report) TableName() string { return "proximity.reports" }
