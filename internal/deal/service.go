package deal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fairplayhq/nilguard/internal/audit"
	"github.com/fairplayhq/nilguard/internal/decision"
	"github.com/fairplayhq/nilguard/internal/metrics"
	"github.com/fairplayhq/nilguard/internal/traces"
)

// View is a deal together with its resolved effective status.
type View struct {
	*Deal
	EffectiveStatus decision.Status `json:"effectiveStatus"`
	StatusSource    string          `json:"statusSource"`
	OpenItem        bool            `json:"openItem"`
}

// Create discloses a new deal. The deal starts unscored (pending).
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Deal, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	now := time.Now()
	submittedAt := now
	if req.SubmittedAt != nil {
		submittedAt = *req.SubmittedAt
	}

	d := &Deal{
		ID:              generateDealID(),
		AthleteID:       req.AthleteID,
		Counterparty:    strings.TrimSpace(req.Counterparty),
		Amount:          req.Amount,
		SubmittedAt:     submittedAt,
		AutomatedStatus: decision.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create deal: %w", err)
	}

	return d, nil
}

// Get returns a deal with its effective status and open-item flag.
func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, d)
}

// List returns deals newest-first with effective statuses resolved.
func (s *Service) List(ctx context.Context, athleteID, status string, limit int, opts ...ListOption) ([]*View, error) {
	if limit <= 0 {
		limit = 50
	}

	deals, err := s.store.List(ctx, athleteID, status, limit, opts...)
	if err != nil {
		return nil, err
	}

	views := make([]*View, 0, len(deals))
	for _, d := range deals {
		v, err := s.view(ctx, d)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// RecordScore writes the automated score and status for a deal, along with
// the system audit entry, atomically. When req.Score is nil the configured
// ScoreProvider computes the score.
func (s *Service) RecordScore(ctx context.Context, dealID string, req RecordScoreRequest) (*View, error) {
	ctx, span := traces.StartSpan(ctx, "deal.RecordScore", traces.DealID(dealID))
	defer span.End()

	var score float64
	var status decision.Status

	if req.Score != nil {
		score = *req.Score
		if score < 0 || score > 100 {
			return nil, fmt.Errorf("score must be between 0 and 100")
		}
		status = req.Status
		if status == "" {
			status = StatusForScore(score)
		}
		if !status.Valid() || status == decision.StatusPending {
			return nil, fmt.Errorf("invalid status %q", status)
		}
	} else {
		if s.provider == nil {
			return nil, ErrScoreUnavailable
		}
		d, err := s.store.Get(ctx, dealID)
		if err != nil {
			return nil, err
		}
		score, status, err = s.provider.Score(ctx, d)
		if err != nil {
			metrics.ScoreLookupsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.ScoreLookupsTotal.WithLabelValues("ok").Inc()
	}

	entry := &audit.Entry{
		DealID:    dealID,
		Actor:     audit.System(),
		Action:    audit.ActionScoreRecorded,
		Detail:    fmt.Sprintf("automated score %.1f -> %s", score, status),
		CreatedAt: time.Now(),
	}

	d, err := s.store.SetAutomatedScore(ctx, dealID, score, status, entry)
	if err != nil {
		return nil, err
	}
	metrics.AuditEntriesTotal.WithLabelValues(audit.ActionScoreRecorded).Inc()

	v, err := s.view(ctx, d)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.ScoreRecorded(d, score, status)
		s.events.StatusChanged(d.ID, d.AthleteID, v.EffectiveStatus, v.StatusSource)
	}

	return v, nil
}

func (s *Service) view(ctx context.Context, d *Deal) (*View, error) {
	res, err := s.resolver.Resolve(ctx, d)
	if err != nil {
		return nil, err
	}
	open, err := s.resolver.OpenItem(ctx, d)
	if err != nil {
		return nil, err
	}
	return &View{
		Deal:            d,
		EffectiveStatus: res.Status,
		StatusSource:    res.Source,
		OpenItem:        open,
	}, nil
}
