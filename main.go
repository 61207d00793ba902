package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/ConectaAbrigos/abrigos-backend/internal/db"
	"github.com/ConectaAbrigos/abrigos-backend/internal/directory"
	"github.com/ConectaAbrigos/abrigos-backend/internal/metrics"
	"github.com/ConectaAbrigos/abrigos-backend/internal/middleware"
	"github.com/ConectaAbrigos/abrigos-backend/internal/proximity"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	_ = godotenv.Load(".env.local")
	db.Connect()
	metrics.Register()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5050"
	}

	directory.Init()
	proximity.Init(directory.NewSource(db.DB))

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Instrument)
	r.Use(middleware.CORSMiddleware(middleware.AllowedOriginsFromEnv()))
	r.Get("/", RootHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/proximity", proximity.SetupRoutes())

	fmt.Printf("Server listening on port :%s...\n", port)

	log.Fatal(http.ListenAndServe("0.0.0.0:"+port, r))
}
