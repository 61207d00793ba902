package directory

import (
	"log"

	"github.com/ConectaAbrigos/abrigos-backend/internal/db"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "directory"); err != nil {
		log.Fatal("Failed to ensure schema directory: ", err)
	}

	if err := db.DB.AutoMigrate(
		&Address{},
		&User{},
		&Shelter{},
	); err != nil {
		log.Fatal("Failed to auto-migrate tables", err)
	}
}
