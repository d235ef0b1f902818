package appeal

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/fairplayhq/nilguard/internal/audit"
	"github.com/fairplayhq/nilguard/internal/decision"
)

// PostgresStore persists appeal data in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed appeal store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const appealColumns = `id, deal_id, athlete_id, original_decision, reason,
	       documents, submitted_at, status, resolution, resolution_notes,
	       internal_notes, new_decision, resolved_by, resolved_at`

func (p *PostgresStore) CreateWithAudit(ctx context.Context, a *Appeal, entry *audit.Entry) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO appeals (
			id, deal_id, athlete_id, original_decision, reason,
			documents, submitted_at, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.DealID, a.AthleteID, string(a.OriginalDecision), a.Reason,
		pq.Array(a.Documents), a.SubmittedAt, string(a.Status),
	)
	if err != nil {
		return err
	}

	if err := audit.Insert(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Appeal, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+appealColumns+`
		FROM appeals WHERE id = $1`, id)

	a, err := scanAppeal(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return a, err
}

func (p *PostgresStore) Update(ctx context.Context, a *Appeal) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE appeals SET status = $1 WHERE id = $2`,
		string(a.Status), a.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) ResolveWithAudit(ctx context.Context, a *Appeal, entry *audit.Entry) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE appeals SET
			status = $1, resolution = $2, resolution_notes = $3,
			internal_notes = $4, new_decision = $5, resolved_by = $6,
			resolved_at = $7
		WHERE id = $8`,
		string(a.Status), string(a.Resolution),
		appealNullString(a.ResolutionNotes), appealNullString(a.InternalNotes),
		appealNullDecision(a.NewDecision), a.ResolvedBy, a.ResolvedAt,
		a.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	if err := audit.Insert(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

func (p *PostgresStore) OpenForDeal(ctx context.Context, dealID string) (*Appeal, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+appealColumns+`
		FROM appeals
		WHERE deal_id = $1 AND status != 'resolved'`, dealID)

	a, err := scanAppeal(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return a, err
}

func (p *PostgresStore) LatestResolvedForDeal(ctx context.Context, dealID string) (*Appeal, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+appealColumns+`
		FROM appeals
		WHERE deal_id = $1 AND status = 'resolved' AND new_decision IS NOT NULL
		ORDER BY resolved_at DESC
		LIMIT 1`, dealID)

	a, err := scanAppeal(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return a, err
}

func (p *PostgresStore) ListOpen(ctx context.Context, limit int) ([]*Appeal, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+appealColumns+`
		FROM appeals
		WHERE status != 'resolved'
		ORDER BY submitted_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppeals(rows)
}

func (p *PostgresStore) ListByDeal(ctx context.Context, dealID string, limit int) ([]*Appeal, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+appealColumns+`
		FROM appeals
		WHERE deal_id = $1
		ORDER BY submitted_at DESC
		LIMIT $2`, dealID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppeals(rows)
}

func collectAppeals(rows *sql.Rows) ([]*Appeal, error) {
	var result []*Appeal
	for rows.Next() {
		a, err := scanAppeal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAppeal(s scanner) (*Appeal, error) {
	var a Appeal
	var original, status string
	var resolution, resolutionNotes, internalNotes, newDecision, resolvedBy sql.NullString
	var resolvedAt sql.NullTime
	var docs pq.StringArray

	err := s.Scan(
		&a.ID, &a.DealID, &a.AthleteID, &original, &a.Reason,
		&docs, &a.SubmittedAt, &status, &resolution, &resolutionNotes,
		&internalNotes, &newDecision, &resolvedBy, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	a.OriginalDecision = decision.Status(original)
	a.Status = Status(status)
	a.Documents = docs
	a.Resolution = Resolution(resolution.String)
	a.ResolutionNotes = resolutionNotes.String
	a.InternalNotes = internalNotes.String
	a.ResolvedBy = resolvedBy.String
	if newDecision.Valid {
		d := decision.Decision(newDecision.String)
		a.NewDecision = &d
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	return &a, nil
}

func appealNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func appealNullDecision(d *decision.Decision) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*d), Valid: true}
}

var _ Store = (*PostgresStore)(nil)
