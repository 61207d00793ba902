package proximity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ConectaAbrigos/abrigos-backend/internal/geo"
	"github.com/ConectaAbrigos/abrigos-backend/internal/metrics"
	"github.com/google/uuid"
)

// AddressSupplier fetches an entity's address only when the cache needs it.
type AddressSupplier func(ctx context.Context) (*Address, error)

// CoordinateCache keeps one coordinate per (kind, reference id) and only
// calls the geocoder for entities it has not seen, or on explicit refresh.
type CoordinateCache struct {
	store    Store
	geocoder Geocoder
	now      func() time.Time
}

func NewCoordinateCache(store Store, geocoder Geocoder) *CoordinateCache {
	return &CoordinateCache{store: store, geocoder: geocoder, now: time.Now}
}

// FindOrCreate returns the cached coordinate for the entity, creating it on
// first sight. Failed geocoding still creates a record with no point so the
// same address is not retried every run. forceRefresh re-geocodes an
// existing record in place.
func (c *CoordinateCache) FindOrCreate(ctx context.Context, kind Kind, referenceID uuid.UUID, supply AddressSupplier, forceRefresh bool) (*Coordinate, error) {
	existing, err := c.store.FindCoordinate(ctx, kind, referenceID)
	switch {
	case err == nil && !forceRefresh:
		metrics.IncCoordinateLookup("cached")
		return existing, nil
	case err == nil:
		return c.refresh(ctx, existing, supply)
	case !errors.Is(err, ErrNotFound):
		metrics.IncCoordinateLookup("error")
		return nil, err
	}

	addr, err := supply(ctx)
	if err != nil {
		metrics.IncCoordinateLookup("error")
		return nil, fmt.Errorf("address for %s %s: %w", kind, referenceID, err)
	}

	coord := &Coordinate{
		ID:          uuid.New(),
		Kind:        kind,
		ReferenceID: referenceID,
		Status:      StatusActive,
	}
	c.geocodeInto(ctx, coord, addr)

	if err := c.store.CreateCoordinate(ctx, coord); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// Lost a create race; the winner's record is the cached one.
			return c.store.FindCoordinate(ctx, kind, referenceID)
		}
		metrics.IncCoordinateLookup("error")
		return nil, err
	}
	return coord, nil
}

func (c *CoordinateCache) refresh(ctx context.Context, coord *Coordinate, supply AddressSupplier) (*Coordinate, error) {
	addr, err := supply(ctx)
	if err != nil {
		metrics.IncCoordinateLookup("error")
		return nil, fmt.Errorf("address for %s %s: %w", coord.Kind, coord.ReferenceID, err)
	}

	prevLat, prevLng, prevAddress := coord.Latitude, coord.Longitude, coord.FullAddress
	c.geocodeInto(ctx, coord, addr)

	// A miss on an unchanged address keeps the last good point.
	if !coord.HasPoint() && coord.FullAddress == prevAddress {
		coord.Latitude, coord.Longitude = prevLat, prevLng
	}

	if err := c.store.UpdateCoordinate(ctx, coord); err != nil {
		metrics.IncCoordinateLookup("error")
		return nil, err
	}
	return coord, nil
}

func (c *CoordinateCache) geocodeInto(ctx context.Context, coord *Coordinate, addr *Address) {
	coord.UpdatedAt = c.now()
	coord.Latitude, coord.Longitude = nil, nil
	if addr == nil {
		coord.AddressID = nil
		coord.FullAddress = ""
		metrics.IncCoordinateLookup("miss")
		return
	}

	coord.AddressID = addr.ID
	coord.FullAddress = addr.Format()

	query := addr.Query()
	if query == "" || c.geocoder == nil {
		metrics.IncCoordinateLookup("miss")
		return
	}
	lat, lng, ok := c.geocoder.Resolve(ctx, query)
	if !ok || !geo.ValidLatLng(lat, lng) {
		logGeocodeMiss(coord.Kind, coord.ReferenceID, query)
		metrics.IncCoordinateLookup("miss")
		return
	}
	coord.Latitude, coord.Longitude = &lat, &lng
	metrics.IncCoordinateLookup("resolved")
}

// Update overwrites the point of an existing coordinate identified by its
// kind and reference id. An empty FullAddress keeps the stored one.
func (c *CoordinateCache) Update(ctx context.Context, in *Coordinate) (*Coordinate, error) {
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return nil, fmt.Errorf("%w: latitude and longitude must be set together", ErrInvalidCoordinate)
	}
	if in.HasPoint() && !geo.ValidLatLng(*in.Latitude, *in.Longitude) {
		return nil, fmt.Errorf("%w: lat=%v lng=%v out of range", ErrInvalidCoordinate, *in.Latitude, *in.Longitude)
	}

	coord, err := c.store.FindCoordinate(ctx, in.Kind, in.ReferenceID)
	if err != nil {
		return nil, err
	}

	coord.Latitude, coord.Longitude = in.Latitude, in.Longitude
	if in.FullAddress != "" {
		coord.FullAddress = in.FullAddress
	}
	if in.AddressID != nil {
		coord.AddressID = in.AddressID
	}
	coord.UpdatedAt = c.now()

	if err := c.store.UpdateCoordinate(ctx, coord); err != nil {
		return nil, err
	}
	return coord, nil
}

// SetStatus soft-enables or soft-disables a coordinate. Inactive coordinates
// are left out of rankings but stay cached.
func (c *CoordinateCache) SetStatus(ctx context.Context, kind Kind, referenceID uuid.UUID, status Status) (*Coordinate, error) {
	if status != StatusActive && status != StatusInactive {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidCoordinate, status)
	}

	coord, err := c.store.FindCoordinate(ctx, kind, referenceID)
	if err != nil {
		return nil, err
	}
	coord.Status = status
	coord.UpdatedAt = c.now()

	if err := c.store.UpdateCoordinate(ctx, coord); err != nil {
		return nil, err
	}
	return coord, nil
}

func (c *CoordinateCache) ListByKind(ctx context.Context, kind Kind) ([]Coordinate, error) {
	return c.store.ListCoordinates(ctx, kind)
}
