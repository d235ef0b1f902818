package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fairplayhq/nilguard/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Port:           "8080",
		Env:            "development",
		LogLevel:       "error",
		ScoringTimeout: 10,
		RateLimitRPS:   1000,
		OverdueDays:    7,
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from /health, got %d", w.Code)
	}

	w = doJSON(t, s, "GET", "/health/live", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from /health/live, got %d", w.Code)
	}

	// Not ready until Run() marks it
	w = doJSON(t, s, "GET", "/health/ready", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 from /health/ready before Run, got %d", w.Code)
	}
}

func TestDealLifecycleThroughRouter(t *testing.T) {
	s := newTestServer(t)

	// Create a deal
	w := doJSON(t, s, "POST", "/v1/deals", map[string]interface{}{
		"athleteId":    "ath_0123456789ab",
		"counterparty": "Local Dealership",
		"amount":       12000,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created struct {
		Deal struct {
			ID string `json:"id"`
		} `json:"deal"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to parse create response: %v", err)
	}
	dealID := created.Deal.ID

	// Pending until scored
	w = doJSON(t, s, "GET", "/v1/deals/"+dealID+"/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var status struct {
		EffectiveStatus string `json:"effectiveStatus"`
		StatusSource    string `json:"statusSource"`
	}
	json.Unmarshal(w.Body.Bytes(), &status)
	if status.EffectiveStatus != "pending" {
		t.Errorf("Expected pending before scoring, got %s", status.EffectiveStatus)
	}

	// Record an explicit low score
	score := 30.0
	w = doJSON(t, s, "POST", "/v1/deals/"+dealID+"/score", map[string]interface{}{
		"score": score,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 recording score, got %d: %s", w.Code, w.Body.String())
	}

	// Override red -> green
	w = doJSON(t, s, "POST", "/v1/deals/"+dealID+"/overrides", map[string]interface{}{
		"newStatus":     "green",
		"justification": "Verified through updated contract documentation showing compliant terms.",
		"officerId":     "off_0123456789ab",
		"officerName":   "Dana Reyes",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 applying override, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, "GET", "/v1/deals/"+dealID+"/status", nil)
	json.Unmarshal(w.Body.Bytes(), &status)
	if status.EffectiveStatus != "green" || status.StatusSource != "override" {
		t.Errorf("Expected green via override, got %s via %s", status.EffectiveStatus, status.StatusSource)
	}

	// The trail shows both actions
	w = doJSON(t, s, "GET", "/v1/deals/"+dealID+"/audit", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from audit, got %d", w.Code)
	}
	var trail struct {
		Entries []struct {
			Action string `json:"action"`
		} `json:"entries"`
	}
	json.Unmarshal(w.Body.Bytes(), &trail)
	if len(trail.Entries) != 2 {
		t.Fatalf("Expected 2 audit entries, got %d", len(trail.Entries))
	}
}

func TestAdminSecretGuardsProtectedRoutes(t *testing.T) {
	cfg := &config.Config{
		Port:           "8080",
		Env:            "development",
		LogLevel:       "error",
		ScoringTimeout: 10,
		RateLimitRPS:   1000,
		OverdueDays:    7,
		AdminSecret:    "s3cret",
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	body, _ := json.Marshal(map[string]interface{}{
		"athleteId":    "ath_0123456789ab",
		"counterparty": "Sponsor",
		"amount":       1000,
	})

	// Without the header
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/deals", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without admin secret, got %d", w.Code)
	}

	// Reads stay open
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest("GET", "/v1/deals", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for public read, got %d", w.Code)
	}

	// With the header
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/v1/deals", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Secret", "s3cret")
	s.Router().ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("Expected 201 with admin secret, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, "GET", "/v1/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var stats map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to parse stats: %v", err)
	}
	if _, ok := stats["realtime"]; !ok {
		t.Error("Expected realtime stats")
	}
	if _, ok := stats["appeals"]; !ok {
		t.Error("Expected appeal queue stats")
	}
}
