package assignment

import (
	"context"
	"database/sql"
	"time"
)

// PostgresStore persists assignment records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed assignment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const assignmentColumns = `id, item_id, member_id, assigned_by, priority, notes,
	       due_at, status, created_at, superseded_at, completed_at`

func (p *PostgresStore) CreateSuperseding(ctx context.Context, rec *Record) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE assignments SET status = 'superseded', superseded_at = $1
		WHERE item_id = $2 AND status = 'active'`,
		time.Now(), rec.ItemID,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO assignments (
			id, item_id, member_id, assigned_by, priority, notes,
			due_at, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.ItemID, rec.MemberID, assignmentNullString(rec.AssignedBy),
		string(rec.Priority), assignmentNullString(rec.Notes),
		rec.DueAt, string(rec.Status), rec.CreatedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (p *PostgresStore) ActiveForItem(ctx context.Context, itemID string) (*Record, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments
		WHERE item_id = $1 AND status = 'active'`, itemID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotAssigned
	}
	return rec, err
}

func (p *PostgresStore) Supersede(ctx context.Context, itemID string) (*Record, error) {
	row := p.db.QueryRowContext(ctx, `
		UPDATE assignments SET status = 'superseded', superseded_at = $1
		WHERE item_id = $2 AND status = 'active'
		RETURNING `+assignmentColumns,
		time.Now(), itemID,
	)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotAssigned
	}
	return rec, err
}

func (p *PostgresStore) Complete(ctx context.Context, itemID string) (*Record, error) {
	row := p.db.QueryRowContext(ctx, `
		UPDATE assignments SET status = 'completed', completed_at = $1
		WHERE item_id = $2 AND status = 'active'
		RETURNING `+assignmentColumns,
		time.Now(), itemID,
	)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotAssigned
	}
	return rec, err
}

func (p *PostgresStore) ListByMember(ctx context.Context, memberID string, limit int) ([]*Record, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE member_id = $1
		ORDER BY created_at DESC
	`
	args := []interface{}{memberID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (p *PostgresStore) Members(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT member_id FROM assignments ORDER BY member_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*Record, error) {
	var rec Record
	var priority, status string
	var assignedBy, notes sql.NullString
	var supersededAt, completedAt sql.NullTime

	err := s.Scan(
		&rec.ID, &rec.ItemID, &rec.MemberID, &assignedBy, &priority, &notes,
		&rec.DueAt, &status, &rec.CreatedAt, &supersededAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.AssignedBy = assignedBy.String
	rec.Notes = notes.String
	rec.Priority = Priority(priority)
	rec.Status = Status(status)
	if supersededAt.Valid {
		t := supersededAt.Time
		rec.SupersededAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		rec.CompletedAt = &t
	}
	return &rec, nil
}

func assignmentNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*PostgresStore)(nil)
