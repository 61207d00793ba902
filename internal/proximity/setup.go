package proximity

import (
	"log"

	"github.com/ConectaAbrigos/abrigos-backend/internal/db"
	"github.com/ConectaAbrigos/abrigos-backend/internal/geocoding"
)

var service *Service

// Init migrates the proximity schema and wires the package service against
// db.DB. source supplies users, shelters and their addresses.
func Init(source EntitySource) {
	if err := db.EnsureSchema(db.DB, "proximity"); err != nil {
		log.Fatal("Failed to ensure schema proximity: ", err)
	}

	if err := db.DB.AutoMigrate(
		&Coordinate{},
		&Report{},
		&Analysis{},
	); err != nil {
		log.Fatal("Failed to auto-migrate tables", err)
	}

	cfg, err := LoadFromEnv().WithDefaults()
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			log.Printf("[proximity] WARNING: %v, using default", e)
		}
	}

	var geocoder Geocoder
	client, err := geocoding.NewClient()
	switch {
	case err != nil:
		log.Printf("[proximity] WARNING: geocoding disabled: %v", err)
	case client == nil:
		log.Println("[proximity] WARNING: GOOGLE_MAPS_API_KEY not set, new coordinates will have no point")
	default:
		geocoder = client
	}

	service = NewService(source, NewGormStore(db.DB), geocoder, AdvisoryLocker{DB: db.DB}, cfg)
	log.Printf("[proximity] ready (concurrency=%d top_n=%d)", cfg.GeocodeConcurrency, cfg.TopN)
}

// Default returns the service built by Init, for CLIs sharing its wiring.
func Default() *Service {
	return service
}
