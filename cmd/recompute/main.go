package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ConectaAbrigos/abrigos-backend/internal/db"
	"github.com/ConectaAbrigos/abrigos-backend/internal/directory"
	"github.com/ConectaAbrigos/abrigos-backend/internal/proximity"
	"github.com/joho/godotenv"
)

func main() {
	var (
		forceRefresh = flag.Bool("force-refresh", false, "re-geocode every user and shelter instead of trusting cached coordinates")
		notes        = flag.String("notes", "", "free text stored on the report")
	)
	flag.Parse()

	_ = godotenv.Load(".env.local")
	if os.Getenv("DATABASE_URL") == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db.Connect()

	directory.Init()
	proximity.Init(directory.NewSource(db.DB))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := proximity.Default().Analyzer.RecomputeAll(ctx, proximity.RecomputeOptions{
		ForceRefresh: *forceRefresh,
		Notes:        *notes,
	})
	if err != nil {
		log.Fatalf("recompute failed: %v", err)
	}

	fmt.Printf("✓ Run %s: %d users (%d located), %d shelters (%d located), %d distances\n",
		report.ID, report.TotalUsers, report.UsersWithCoordinates,
		report.TotalShelters, report.SheltersWithCoordinates, report.TotalComputations)
	if report.MeanKm != nil {
		fmt.Printf("  mean %.2f km, min %.2f km, max %.2f km\n", *report.MeanKm, *report.MinKm, *report.MaxKm)
	}
}
