package proximity

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Service bundles the proximity components behind the HTTP handlers.
type Service struct {
	Analyzer  *Analyzer
	Dashboard *Dashboard
	Cache     *CoordinateCache
}

func NewService(source EntitySource, store Store, geocoder Geocoder, locker Locker, cfg Config) *Service {
	cache := NewCoordinateCache(store, geocoder)
	return &Service{
		Analyzer:  NewAnalyzer(source, store, cache, locker, cfg),
		Dashboard: NewDashboard(source, store),
		Cache:     cache,
	}
}

type recomputeResponse struct {
	Success      bool    `json:"success"`
	ErrorMessage string  `json:"error_message,omitempty"`
	Report       *Report `json:"report,omitempty"`
}

// RecomputeHandler runs a full recomputation and reports the outcome as a
// success flag plus message.
func (s *Service) RecomputeHandler(w http.ResponseWriter, r *http.Request) {
	opts := RecomputeOptions{Notes: r.URL.Query().Get("notes")}
	if raw := r.URL.Query().Get("force_refresh"); raw != "" {
		force, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "Invalid force_refresh parameter", http.StatusBadRequest)
			return
		}
		opts.ForceRefresh = force
	}

	report, err := s.Analyzer.RecomputeAll(r.Context(), opts)
	if err != nil {
		writeJSONStatus(w, statusFor(err), recomputeResponse{
			Success:      false,
			ErrorMessage: err.Error(),
		})
		return
	}
	writeJSON(w, recomputeResponse{Success: true, Report: report})
}

// RankingsHandler lists the current rankings, optionally for one user.
func (s *Service) RankingsHandler(w http.ResponseWriter, r *http.Request) {
	var userID *uuid.UUID
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "Invalid user_id parameter", http.StatusBadRequest)
			return
		}
		userID = &id
	}

	rankings, err := s.Analyzer.Rankings(r.Context(), userID)
	if err != nil {
		readError(w, "rankings", err)
		return
	}
	writeJSON(w, rankings)
}

// TopForUserHandler returns a user's closest shelters (3 unless ?n is given).
func (s *Service) TopForUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		http.Error(w, "Invalid user_id", http.StatusBadRequest)
		return
	}
	n, err := intParam(r, "n", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	top, err := s.Analyzer.TopNForUser(r.Context(), userID, n)
	if err != nil {
		readError(w, "top", err)
		return
	}
	writeJSON(w, top)
}

func (s *Service) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	top, err := intParam(r, "top", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	view, err := s.Dashboard.Build(r.Context(), top)
	if err != nil {
		if errors.Is(err, ErrUpstreamUnavailable) {
			http.Error(w, "User/shelter data unavailable", http.StatusServiceUnavailable)
			return
		}
		readError(w, "dashboard", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, view)
}

func (s *Service) ReportsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reports, err := s.Analyzer.Reports(r.Context(), limit)
	if err != nil {
		internalError(w, "reports", err)
		return
	}
	if reports == nil {
		reports = []Report{}
	}
	writeJSON(w, reports)
}

func (s *Service) ListCoordinatesHandler(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		http.Error(w, "kind must be usuario or abrigo", http.StatusBadRequest)
		return
	}

	coords, err := s.Cache.ListByKind(r.Context(), kind)
	if err != nil {
		internalError(w, "coordinates", err)
		return
	}
	if coords == nil {
		coords = []Coordinate{}
	}
	writeJSON(w, coords)
}

// UpdateCoordinateHandler sets a point by hand, e.g. to fix a bad geocode.
func (s *Service) UpdateCoordinateHandler(w http.ResponseWriter, r *http.Request) {
	kind, refID, ok := coordinateRef(w, r)
	if !ok {
		return
	}

	var body struct {
		Latitude    *float64 `json:"latitude"`
		Longitude   *float64 `json:"longitude"`
		FullAddress string   `json:"full_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	coord, err := s.Cache.Update(r.Context(), &Coordinate{
		Kind:        kind,
		ReferenceID: refID,
		Latitude:    body.Latitude,
		Longitude:   body.Longitude,
		FullAddress: body.FullAddress,
	})
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, coord)
}

// DisableCoordinateHandler soft-disables a coordinate; it is never deleted.
func (s *Service) DisableCoordinateHandler(w http.ResponseWriter, r *http.Request) {
	kind, refID, ok := coordinateRef(w, r)
	if !ok {
		return
	}

	coord, err := s.Cache.SetStatus(r.Context(), kind, refID, StatusInactive)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, coord)
}

// --- Helpers ---------------------------------------------------------------

func coordinateRef(w http.ResponseWriter, r *http.Request) (Kind, uuid.UUID, bool) {
	kind, err := ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		http.Error(w, "kind must be usuario or abrigo", http.StatusBadRequest)
		return "", uuid.Nil, false
	}
	refID, err := uuid.Parse(chi.URLParam(r, "reference_id"))
	if err != nil {
		http.Error(w, "Invalid reference_id", http.StatusBadRequest)
		return "", uuid.Nil, false
	}
	return kind, refID, true
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return v, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrRecomputeInProgress):
		return http.StatusConflict
	case errors.Is(err, ErrUpstreamUnavailable), errors.Is(err, ErrRunChanged):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidCoordinate):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// readError reports a read of the current run. A run that kept changing
// underneath the read is retryable.
func readError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrRunChanged) {
		log.Printf("[proximity] %s: %v", op, err)
		http.Error(w, "Rankings are being replaced, retry", statusFor(err))
		return
	}
	internalError(w, op, err)
}

func internalError(w http.ResponseWriter, op string, err error) {
	log.Printf("[proximity] %s: %v", op, err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
