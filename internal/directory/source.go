package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/ConectaAbrigos/abrigos-backend/internal/proximity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Source serves directory records to the proximity engine.
type Source struct {
	db *gorm.DB
}

func NewSource(db *gorm.DB) *Source {
	return &Source{db: db}
}

func (s *Source) ListUsers(ctx context.Context) ([]proximity.UserRecord, error) {
	var users []User
	if err := s.db.WithContext(ctx).Preload("Address").Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]proximity.UserRecord, len(users))
	for i, u := range users {
		out[i] = proximity.UserRecord{
			ID:      u.ID,
			Name:    u.Name,
			Email:   u.Email,
			Address: toProximity(u.Address),
		}
	}
	return out, nil
}

func (s *Source) ListShelters(ctx context.Context) ([]proximity.ShelterRecord, error) {
	var shelters []Shelter
	if err := s.db.WithContext(ctx).Preload("Address").Order("id").Find(&shelters).Error; err != nil {
		return nil, fmt.Errorf("list shelters: %w", err)
	}

	out := make([]proximity.ShelterRecord, len(shelters))
	for i, sh := range shelters {
		out[i] = proximity.ShelterRecord{
			ID:        sh.ID,
			Name:      sh.Name,
			Capacity:  sh.Capacity,
			Occupancy: sh.Occupancy,
			Address:   toProximity(sh.Address),
		}
	}
	return out, nil
}

// UserAddress returns nil, nil for a user with no address on file.
func (s *Source) UserAddress(ctx context.Context, userID uuid.UUID) (*proximity.Address, error) {
	var u User
	err := s.db.WithContext(ctx).Preload("Address").First(&u, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", userID, proximity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("user address: %w", err)
	}
	return toProximity(u.Address), nil
}

func (s *Source) ShelterAddress(ctx context.Context, shelterID uuid.UUID) (*proximity.Address, error) {
	var sh Shelter
	err := s.db.WithContext(ctx).Preload("Address").First(&sh, "id = ?", shelterID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("shelter %s: %w", shelterID, proximity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("shelter address: %w", err)
	}
	return toProximity(sh.Address), nil
}

func toProximity(a *Address) *proximity.Address {
	if a == nil {
		return nil
	}
	id := a.ID
	return &proximity.Address{
		ID:         &id,
		Street:     a.Street,
		Number:     a.Number,
		Complement: a.Complement,
		District:   a.District,
		City:       a.City,
		State:      a.State,
		CEP:        a.CEP,
	}
}
