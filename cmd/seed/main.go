package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ConectaAbrigos/abrigos-backend/internal/db"
	"github.com/ConectaAbrigos/abrigos-backend/internal/directory"
	"github.com/joho/godotenv"
)

func main() {
	var (
		file   = flag.String("file", "", "path to the YAML fixtures (required)")
		dryRun = flag.Bool("dry-run", false, "parse + validate only; no DB writes")
	)
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	fixtures, err := directory.LoadFixtures(*file)
	if err != nil {
		log.Fatal(err)
	}

	if *dryRun {
		recs := fixtures.Build()
		fmt.Printf("✓ %s is valid: %d users, %d shelters, %d addresses\n",
			*file, len(recs.Users), len(recs.Shelters), len(recs.Addresses))
		return
	}

	_ = godotenv.Load(".env.local")
	db.Connect()
	directory.Init()

	recs, err := directory.Seed(context.Background(), db.DB, fixtures)
	if err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	fmt.Printf("✓ Seeded %d users and %d shelters from %s\n", len(recs.Users), len(recs.Shelters), *file)
}
