package proximity

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Address is the directory's address record as the proximity engine sees it.
// Any component may be empty.
type Address struct {
	ID         *uuid.UUID
	Street     string
	Number     string
	Complement string
	District   string
	City       string
	State      string
	CEP        string
}

// Format renders the address for display, skipping missing components.
func (a *Address) Format() string {
	if a == nil {
		return ""
	}

	var parts []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}

	add(a.Street)
	add(a.Number)
	add(a.Complement)
	add(a.District)
	city, state := strings.TrimSpace(a.City), strings.TrimSpace(a.State)
	switch {
	case city != "" && state != "":
		add(city + " - " + state)
	default:
		add(city)
		add(state)
	}
	add(a.CEP)
	return strings.Join(parts, ", ")
}

// Query is the string sent to the geocoder. Addresses that carry only a CEP
// are looked up by postal code.
func (a *Address) Query() string {
	if a == nil {
		return ""
	}
	if strings.TrimSpace(a.Street) == "" && strings.TrimSpace(a.City) == "" && strings.TrimSpace(a.CEP) != "" {
		return strings.TrimSpace(a.CEP)
	}
	return a.Format()
}

type UserRecord struct {
	ID      uuid.UUID
	Name    string
	Email   string
	Address *Address
}

type ShelterRecord struct {
	ID        uuid.UUID
	Name      string
	Capacity  int
	Occupancy int
	Address   *Address
}

// EntitySource supplies users, shelters and their addresses. A nil address
// with a nil error means the entity has no address on file.
type EntitySource interface {
	ListUsers(ctx context.Context) ([]UserRecord, error)
	ListShelters(ctx context.Context) ([]ShelterRecord, error)
	UserAddress(ctx context.Context, userID uuid.UUID) (*Address, error)
	ShelterAddress(ctx context.Context, shelterID uuid.UUID) (*Address, error)
}

// Geocoder resolves an address to a point. Misses and provider failures are
// reported as ok=false, never as errors.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (lat, lng float64, ok bool)
}
