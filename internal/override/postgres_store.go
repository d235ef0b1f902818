package override

import (
	"context"
	"database/sql"
	"time"

	"github.com/fairplayhq/nilguard/internal/audit"
	"github.com/fairplayhq/nilguard/internal/decision"
)

// PostgresStore persists override data in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed override store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const overrideColumns = `id, deal_id, prior_status, new_status, justification,
	       officer_id, officer_name, created_at, superseded_at`

func (p *PostgresStore) CreateSuperseding(ctx context.Context, ov *Override, entry *audit.Entry) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE overrides SET superseded_at = $1
		WHERE deal_id = $2 AND superseded_at IS NULL`,
		time.Now(), ov.DealID,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO overrides (
			id, deal_id, prior_status, new_status, justification,
			officer_id, officer_name, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ov.ID, ov.DealID, string(ov.PriorStatus), string(ov.NewStatus),
		ov.Justification, ov.OfficerID, overrideNullString(ov.OfficerName),
		ov.CreatedAt,
	)
	if err != nil {
		return err
	}

	if err := audit.Insert(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

func (p *PostgresStore) ActiveForDeal(ctx context.Context, dealID string) (*Override, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+overrideColumns+`
		FROM overrides
		WHERE deal_id = $1 AND superseded_at IS NULL`, dealID)

	ov, err := scanOverride(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return ov, err
}

func (p *PostgresStore) ListByDeal(ctx context.Context, dealID string, limit int) ([]*Override, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+overrideColumns+`
		FROM overrides
		WHERE deal_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, dealID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Override
	for rows.Next() {
		ov, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ov)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOverride(s scanner) (*Override, error) {
	var ov Override
	var prior, next string
	var officerName sql.NullString
	var supersededAt sql.NullTime

	err := s.Scan(
		&ov.ID, &ov.DealID, &prior, &next, &ov.Justification,
		&ov.OfficerID, &officerName, &ov.CreatedAt, &supersededAt,
	)
	if err != nil {
		return nil, err
	}

	ov.PriorStatus = decision.Status(prior)
	ov.NewStatus = decision.Status(next)
	ov.OfficerName = officerName.String
	if supersededAt.Valid {
		t := supersededAt.Time
		ov.SupersededAt = &t
	}
	return &ov, nil
}

func overrideNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*PostgresStore)(nil)
