package deal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fairplayhq/nilguard/internal/decision"
)

func TestStatusForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  decision.Status
	}{
		{100, decision.StatusGreen},
		{80, decision.StatusGreen},
		{79.9, decision.StatusYellow},
		{50, decision.StatusYellow},
		{49.9, decision.StatusRed},
		{0, decision.StatusRed},
	}
	for _, tt := range tests {
		if got := StatusForScore(tt.score); got != tt.want {
			t.Errorf("StatusForScore(%.1f) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestHTTPProvider_Score(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if in["dealId"] != "deal_0123456789ab" {
			t.Errorf("Unexpected dealId: %v", in["dealId"])
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"score":  42.5,
			"status": "red",
		})
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, 5*time.Second)
	score, status, err := p.Score(context.Background(), &Deal{
		ID:           "deal_0123456789ab",
		AthleteID:    "ath_0123456789ab",
		Counterparty: "Sponsor",
		Amount:       5000,
	})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 42.5 || status != decision.StatusRed {
		t.Errorf("Expected 42.5/red, got %.1f/%s", score, status)
	}
}

func TestHTTPProvider_DerivesStatusWhenAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"score": 90.0})
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, 5*time.Second)
	_, status, err := p.Score(context.Background(), &Deal{ID: "deal_x"})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if status != decision.StatusGreen {
		t.Errorf("Expected derived green, got %s", status)
	}
}

func TestHTTPProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, 5*time.Second)
	_, _, err := p.Score(context.Background(), &Deal{ID: "deal_x"})
	if !errors.Is(err, ErrScoreUnavailable) {
		t.Errorf("Expected ErrScoreUnavailable, got %v", err)
	}
}

func TestHTTPProvider_RetriesTransientFailure(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"score": 85.0, "status": "green"})
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, 5*time.Second)
	score, status, err := p.Score(context.Background(), &Deal{ID: "deal_x"})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 85 || status != decision.StatusGreen {
		t.Errorf("Expected 85/green after retry, got %.1f/%s", score, status)
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}

func TestHTTPProvider_BadRequestNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, 5*time.Second)
	_, _, err := p.Score(context.Background(), &Deal{ID: "deal_x"})
	if !errors.Is(err, ErrScoreUnavailable) {
		t.Errorf("Expected ErrScoreUnavailable, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected single call for client error, got %d", calls)
	}
}

func TestHTTPProvider_OutOfRangeScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"score": 120.0})
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, 5*time.Second)
	_, _, err := p.Score(context.Background(), &Deal{ID: "deal_x"})
	if !errors.Is(err, ErrScoreUnavailable) {
		t.Errorf("Expected ErrScoreUnavailable, got %v", err)
	}
}

func TestHeuristicProvider_Deterministic(t *testing.T) {
	p := NewHeuristicProvider()
	d := &Deal{ID: "deal_x", Counterparty: "Car Dealership", Amount: 30000}

	s1, st1, err := p.Score(context.Background(), d)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	s2, st2, _ := p.Score(context.Background(), d)
	if s1 != s2 || st1 != st2 {
		t.Errorf("Expected deterministic scoring, got %.1f/%s then %.1f/%s", s1, st1, s2, st2)
	}
	if s1 < 0 || s1 > 100 {
		t.Errorf("Score out of range: %.1f", s1)
	}
}

func TestHeuristicProvider_LargerDealsScoreLower(t *testing.T) {
	p := NewHeuristicProvider()
	small, _, _ := p.Score(context.Background(), &Deal{Counterparty: "X", Amount: 100})
	large, _, _ := p.Score(context.Background(), &Deal{Counterparty: "X", Amount: 500000})
	if large >= small {
		t.Errorf("Expected larger deal to score lower: %.1f vs %.1f", large, small)
	}
}
