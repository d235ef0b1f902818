package deal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fairplayhq/nilguard/internal/audit"
	"github.com/fairplayhq/nilguard/internal/decision"
)

// PostgresStore persists deal data in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed deal store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const dealColumns = `id, athlete_id, counterparty, amount, submitted_at,
	       automated_score, automated_status, created_at, updated_at`

func (p *PostgresStore) Create(ctx context.Context, d *Deal) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO deals (
			id, athlete_id, counterparty, amount, submitted_at,
			automated_score, automated_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4::NUMERIC(14,2), $5, $6, $7, $8, $9)`,
		d.ID, d.AthleteID, d.Counterparty, d.Amount, d.SubmittedAt,
		dealNullFloat(d.AutomatedScore), string(d.AutomatedStatus),
		d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Deal, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+dealColumns+`
		FROM deals WHERE id = $1`, id)

	d, err := scanDeal(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return d, err
}

func (p *PostgresStore) Update(ctx context.Context, d *Deal) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE deals SET
			counterparty = $1, amount = $2::NUMERIC(14,2),
			automated_score = $3, automated_status = $4, updated_at = $5
		WHERE id = $6`,
		d.Counterparty, d.Amount,
		dealNullFloat(d.AutomatedScore), string(d.AutomatedStatus), d.UpdatedAt,
		d.ID,
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

func (p *PostgresStore) List(ctx context.Context, athleteID string, status string, limit int, opts ...ListOption) ([]*Deal, error) {
	o := applyListOpts(opts)

	query := `SELECT ` + dealColumns + ` FROM deals WHERE 1=1`
	var args []interface{}

	if athleteID != "" {
		args = append(args, athleteID)
		query += fmt.Sprintf(` AND athlete_id = $%d`, len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(` AND automated_status = $%d`, len(args))
	}
	if o.cursor != nil {
		args = append(args, o.cursor.CreatedAt, o.cursor.ID)
		query += fmt.Sprintf(` AND (created_at, id) < ($%d, $%d)`, len(args)-1, len(args))
	}

	args = append(args, limit+1)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []*Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

// SetAutomatedScore writes the automated fields and the audit entry in one
// transaction.
func (p *PostgresStore) SetAutomatedScore(ctx context.Context, id string, score float64, status decision.Status, entry *audit.Entry) (*Deal, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		UPDATE deals SET
			automated_score = $1, automated_status = $2, updated_at = $3
		WHERE id = $4
		RETURNING `+dealColumns,
		score, string(status), time.Now(), id,
	)
	d, err := scanDeal(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := audit.Insert(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return d, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDeal(s scanner) (*Deal, error) {
	var d Deal
	var status string
	var score sql.NullFloat64

	err := s.Scan(
		&d.ID, &d.AthleteID, &d.Counterparty, &d.Amount, &d.SubmittedAt,
		&score, &status, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if score.Valid {
		v := score.Float64
		d.AutomatedScore = &v
	}
	d.AutomatedStatus = decision.Status(status)
	return &d, nil
}

func dealNullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

var _ Store = (*PostgresStore)(nil)
