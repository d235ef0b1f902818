package deal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"time"

	"github.com/fairplayhq/nilguard/internal/circuitbreaker"
	"github.com/fairplayhq/nilguard/internal/decision"
	"github.com/fairplayhq/nilguard/internal/retry"
)

// ScoreProvider computes a compliance score and derived status for a deal.
// Score computation itself is external to the engine.
type ScoreProvider interface {
	Score(ctx context.Context, d *Deal) (float64, decision.Status, error)
}

// StatusForScore maps a 0-100 compliance score to a traffic-light status.
func StatusForScore(score float64) decision.Status {
	switch {
	case score >= 80:
		return decision.StatusGreen
	case score >= 50:
		return decision.StatusYellow
	default:
		return decision.StatusRed
	}
}

// HTTPProvider fetches scores from the external scoring service. Transient
// failures are retried with backoff; a circuit breaker sheds load while the
// service is down so score requests fail fast instead of piling up.
type HTTPProvider struct {
	url     string
	client  *http.Client
	breaker *circuitbreaker.Breaker
}

const scoringBreakerKey = "scoring"

// NewHTTPProvider creates a provider that POSTs deals to the scoring service.
func NewHTTPProvider(url string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
		breaker: circuitbreaker.New(5, 30*time.Second),
	}
}

func (p *HTTPProvider) Score(ctx context.Context, d *Deal) (float64, decision.Status, error) {
	if !p.breaker.Allow(scoringBreakerKey) {
		return 0, "", fmt.Errorf("%w: scoring service circuit open", ErrScoreUnavailable)
	}

	body, err := json.Marshal(map[string]interface{}{
		"dealId":       d.ID,
		"athleteId":    d.AthleteID,
		"counterparty": d.Counterparty,
		"amount":       d.Amount,
		"submittedAt":  d.SubmittedAt,
	})
	if err != nil {
		return 0, "", fmt.Errorf("marshal scoring request: %w", err)
	}

	var score float64
	var status decision.Status
	err = retry.Do(ctx, 3, 200*time.Millisecond, func() error {
		score, status, err = p.fetch(ctx, body)
		return err
	})
	if err != nil {
		p.breaker.RecordFailure(scoringBreakerKey)
		return 0, "", err
	}

	p.breaker.RecordSuccess(scoringBreakerKey)
	return score, status, nil
}

// fetch makes a single scoring call. Malformed responses are permanent
// errors; network failures and 5xx responses are retried.
func (p *HTTPProvider) fetch(ctx context.Context, body []byte) (float64, decision.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return 0, "", retry.Permanent(fmt.Errorf("create scoring request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrScoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("%w: scoring service returned %d", ErrScoreUnavailable, resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return 0, "", retry.Permanent(err)
		}
		return 0, "", err
	}

	var out struct {
		Score  float64         `json:"score"`
		Status decision.Status `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, "", retry.Permanent(fmt.Errorf("%w: decode response: %v", ErrScoreUnavailable, err))
	}

	if out.Score < 0 || out.Score > 100 {
		return 0, "", retry.Permanent(fmt.Errorf("%w: score %.2f out of range", ErrScoreUnavailable, out.Score))
	}
	if out.Status == "" {
		out.Status = StatusForScore(out.Score)
	}
	if !out.Status.Valid() || out.Status == decision.StatusPending {
		return 0, "", retry.Permanent(fmt.Errorf("%w: invalid status %q", ErrScoreUnavailable, out.Status))
	}

	return out.Score, out.Status, nil
}

// HeuristicProvider is a deterministic local scorer for demo/dev mode.
// Larger deals score lower; the counterparty name adds stable jitter so a
// roster of demo deals spreads across all three buckets.
type HeuristicProvider struct{}

// NewHeuristicProvider creates the demo scorer.
func NewHeuristicProvider() *HeuristicProvider {
	return &HeuristicProvider{}
}

func (p *HeuristicProvider) Score(ctx context.Context, d *Deal) (float64, decision.Status, error) {
	score := 95.0

	switch {
	case d.Amount >= 100000:
		score -= 50
	case d.Amount >= 25000:
		score -= 30
	case d.Amount >= 5000:
		score -= 15
	}

	h := fnv.New32a()
	h.Write([]byte(d.Counterparty))
	score -= float64(h.Sum32() % 10)

	if score < 0 {
		score = 0
	}
	return score, StatusForScore(score), nil
}

var (
	_ ScoreProvider = (*HTTPProvider)(nil)
	_ ScoreProvider = (*HeuristicProvider)(nil)
)
