package proximity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func passthrough(next http.Handler) http.Handler { return next }

func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Forbidden", http.StatusForbidden)
	})
}

func newTestRouter(f *fixture, admin func(http.Handler) http.Handler) http.Handler {
	s := &Service{
		Analyzer:  f.analyzer,
		Dashboard: NewDashboard(f.src, f.store),
		Cache:     f.analyzer.cache,
	}
	return NewRouter(s, admin)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestRecomputeHandler(t *testing.T) {
	f := newFixture()
	f.user(1, spLat, spLng)
	f.shelter(10, rioLat, rioLng)
	h := newTestRouter(f, passthrough)

	rec := do(t, h, http.MethodPost, "/recompute", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[recomputeResponse](t, rec)
	if !got.Success || got.Report == nil || got.Report.TotalComputations != 1 {
		t.Errorf("unexpected response: %+v", got)
	}

	if rec := do(t, h, http.MethodPost, "/recompute?force_refresh=maybe", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad flag, got %d", rec.Code)
	}
}

func TestRecomputeHandler_Failures(t *testing.T) {
	f := newFixture()
	h := newTestRouter(f, passthrough)

	unlock, _, _ := f.locker.TryLock(t.Context(), RecomputeLockKey)
	rec := do(t, h, http.MethodPost, "/recompute", "")
	unlock()
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 while busy, got %d", rec.Code)
	}
	got := decode[recomputeResponse](t, rec)
	if got.Success || !strings.Contains(got.ErrorMessage, "in progress") {
		t.Errorf("unexpected body: %+v", got)
	}

	f.src.listErr = errors.New("timeout")
	rec = do(t, h, http.MethodPost, "/recompute", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 on upstream failure, got %d", rec.Code)
	}
	if got := decode[recomputeResponse](t, rec); got.Success || got.ErrorMessage == "" {
		t.Errorf("unexpected body: %+v", got)
	}
}

func TestAdminRoutesAreGuarded(t *testing.T) {
	f := newFixture()
	h := newTestRouter(f, denyAll)

	for _, tc := range []struct{ method, target string }{
		{http.MethodPost, "/recompute"},
		{http.MethodPut, "/coordinates/abrigo/" + testID(1).String()},
		{http.MethodDelete, "/coordinates/abrigo/" + testID(1).String()},
	} {
		if rec := do(t, h, tc.method, tc.target, "{}"); rec.Code != http.StatusForbidden {
			t.Errorf("%s %s: expected 403, got %d", tc.method, tc.target, rec.Code)
		}
	}
	if rec := do(t, h, http.MethodGet, "/rankings", ""); rec.Code != http.StatusOK {
		t.Errorf("reads must stay public, got %d", rec.Code)
	}
}

func TestReadHandlers(t *testing.T) {
	f := newFixture()
	f.user(1, spLat, spLng)
	f.user(2, rioLat, rioLng)
	for n := 10; n < 14; n++ {
		f.shelter(n, spLat+float64(n-10), spLng)
	}
	h := newTestRouter(f, passthrough)

	if rec := do(t, h, http.MethodGet, "/rankings", ""); rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("before any run expected empty list, got %d %q", rec.Code, rec.Body.String())
	}
	f.recompute(t, RecomputeOptions{})

	rows := decode[[]Analysis](t, do(t, h, http.MethodGet, "/rankings?user_id="+testID(2).String(), ""))
	if len(rows) != 4 {
		t.Errorf("expected 4 rows for user 2, got %d", len(rows))
	}

	top := decode[[]Analysis](t, do(t, h, http.MethodGet, "/users/"+testID(1).String()+"/top", ""))
	if len(top) != 3 || top[0].ShelterID != testID(10) {
		t.Errorf("unexpected top: %+v", top)
	}
	top = decode[[]Analysis](t, do(t, h, http.MethodGet, "/users/"+testID(1).String()+"/top?n=1", ""))
	if len(top) != 1 {
		t.Errorf("expected 1 row, got %d", len(top))
	}

	view := decode[DashboardView](t, do(t, h, http.MethodGet, "/dashboard?top=2", ""))
	if view.NeedsRecompute || len(view.Rankings) != 4 || view.Statistics.TotalComputations != 8 {
		t.Errorf("unexpected dashboard: needs=%v rankings=%d stats=%+v", view.NeedsRecompute, len(view.Rankings), view.Statistics)
	}

	reports := decode[[]Report](t, do(t, h, http.MethodGet, "/reports", ""))
	if len(reports) != 1 {
		t.Errorf("expected 1 report, got %d", len(reports))
	}

	coords := decode[[]Coordinate](t, do(t, h, http.MethodGet, "/coordinates?kind=abrigo", ""))
	if len(coords) != 4 {
		t.Errorf("expected 4 shelter coordinates, got %d", len(coords))
	}

	for _, target := range []string{
		"/rankings?user_id=nope",
		"/users/nope/top",
		"/users/" + testID(1).String() + "/top?n=-1",
		"/dashboard?top=x",
		"/reports?limit=x",
		"/coordinates?kind=carro",
	} {
		if rec := do(t, h, http.MethodGet, target, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestIntParamErrorMessage(t *testing.T) {
	f := newFixture()
	h := newTestRouter(f, passthrough)

	tests := []struct {
		target string
		want   string
	}{
		{"/users/" + testID(1).String() + "/top?n=-1", "invalid n parameter"},
		{"/dashboard?top=abc", "invalid top parameter"},
		{"/reports?limit=1.5", "invalid limit parameter"},
	}
	for _, tt := range tests {
		rec := do(t, h, http.MethodGet, tt.target, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tt.target, rec.Code)
		}
		if body := strings.TrimSpace(rec.Body.String()); body != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.target, tt.want, body)
		}
	}
}

func TestReadError_RunChanged(t *testing.T) {
	rec := httptest.NewRecorder()
	readError(rec, "rankings", fmt.Errorf("%w after 5 attempts", ErrRunChanged))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	readError(rec, "rankings", errors.New("boom"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestCoordinateAdminHandlers(t *testing.T) {
	f := newFixture()
	f.user(1, spLat, spLng)
	f.shelter(10, spLat, spLng)
	f.recompute(t, RecomputeOptions{})
	h := newTestRouter(f, passthrough)
	target := "/coordinates/abrigo/" + testID(10).String()

	rec := do(t, h, http.MethodPut, target, `{"latitude": -22.9068, "longitude": -43.1729}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[Coordinate](t, rec); *got.Latitude != rioLat {
		t.Errorf("unexpected coordinate: %+v", got)
	}

	cases := []struct {
		method, target, body string
		want                 int
	}{
		{http.MethodPut, target, `{"latitude": 1}`, http.StatusBadRequest},
		{http.MethodPut, target, `{"latitude": 100, "longitude": 0}`, http.StatusBadRequest},
		{http.MethodPut, target, `not json`, http.StatusBadRequest},
		{http.MethodPut, "/coordinates/carro/" + testID(10).String(), `{}`, http.StatusBadRequest},
		{http.MethodPut, "/coordinates/abrigo/nope", `{}`, http.StatusBadRequest},
		{http.MethodPut, "/coordinates/abrigo/" + testID(99).String(), `{}`, http.StatusNotFound},
		{http.MethodDelete, "/coordinates/usuario/" + testID(99).String(), ``, http.StatusNotFound},
	}
	for _, tc := range cases {
		if rec := do(t, h, tc.method, tc.target, tc.body); rec.Code != tc.want {
			t.Errorf("%s %s %s: expected %d, got %d", tc.method, tc.target, tc.body, tc.want, rec.Code)
		}
	}

	rec = do(t, h, http.MethodDelete, target, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[Coordinate](t, rec); got.Status != StatusInactive {
		t.Errorf("expected inactive, got %q", got.Status)
	}

	f.recompute(t, RecomputeOptions{})
	if rows := f.rows(t); len(rows) != 0 {
		t.Errorf("disabled shelter still ranked: %+v", rows)
	}
}
