package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vantagegames/magnate/internal/catalog"
	"github.com/vantagegames/magnate/internal/config"
	"github.com/vantagegames/magnate/internal/engine"
	"github.com/vantagegames/magnate/internal/persistence"
	"github.com/vantagegames/magnate/internal/sim"
)

func newTestServer(t *testing.T, adminKey string) *Server {
	t.Helper()
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	w := sim.NewWorld(cat, 5)
	w.CreateCity(0, 0, "Apiville", 400_000)
	w.CreateCompany(1_000_000, "Endpoint Corp", "ENDP", false)

	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.APIConfig{Addr: ":0", AdminKey: adminKey, RatePerMin: 1000}
	return New(cfg, nil, engine.New(w), db)
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t, "")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/v1/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	for _, want := range []string{`"tick"`, `"companies"`, `"fuel_price"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("status body missing %s: %s", want, body)
		}
	}
}

func TestCompanyDetailAndMissing(t *testing.T) {
	s := newTestServer(t, "")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/v1/companies/2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("detail = %d, body %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `"ENDP"`) {
		t.Fatalf("detail body missing symbol: %s", rec.Body)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/v1/companies/999", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing company = %d, want 404", rec.Code)
	}
}

func TestAdminSurfaceDisabledWithoutKey(t *testing.T) {
	s := newTestServer(t, "")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/speed", strings.NewReader(`{"speed":2}`))
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("disabled admin = %d, want 403", rec.Code)
	}
}

func TestAdminBearerAuth(t *testing.T) {
	s := newTestServer(t, "sesame")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/speed", strings.NewReader(`{"speed":2}`))
	req.Header.Set("Authorization", "Bearer wrong")
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad key = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/v1/speed", strings.NewReader(`{"speed":2}`))
	req.Header.Set("Authorization", "Bearer sesame")
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("good key = %d, body %s", rec.Code, rec.Body)
	}
	if s.eng.Speed != 2 {
		t.Fatalf("speed not applied: %v", s.eng.Speed)
	}
}

func TestSpeedValidation(t *testing.T) {
	s := newTestServer(t, "sesame")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/speed", strings.NewReader(`{"speed":5000}`))
	req.Header.Set("Authorization", "Bearer sesame")
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("speed 5000 = %d, want 400", rec.Code)
	}
}

func TestLoanCommandRoundTrip(t *testing.T) {
	s := newTestServer(t, "sesame")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/companies/2/loans",
		strings.NewReader(`{"principal":100000,"months":24}`))
	req.Header.Set("Authorization", "Bearer sesame")
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("loan = %d, body %s", rec.Code, rec.Body)
	}

	// Over the credit limit maps to a client error.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/v1/companies/2/loans",
		strings.NewReader(`{"principal":90000000,"months":24}`))
	req.Header.Set("Authorization", "Bearer sesame")
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized loan = %d, want 400", rec.Code)
	}
}

func TestRateLimiterBites(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatalf("first requests must pass")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatalf("third request inside the window must be limited")
	}
	// Other IPs have their own bucket.
	if !rl.Allow("10.0.0.2") {
		t.Fatalf("fresh IP was limited")
	}
	if rl.RetryAfter("10.0.0.1") <= 0 {
		t.Fatalf("limited IP must get a retry hint")
	}
}
