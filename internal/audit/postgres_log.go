package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// Queryer is the subset of database/sql used to insert audit entries. Both
// *sql.DB and *sql.Tx satisfy it, so domain stores can write their audit
// entry inside the same transaction as the change it records.
type Queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Insert validates and persists a single entry via q, assigning its ID.
func Insert(ctx context.Context, q Queryer, e *Entry) error {
	done := observeOp("append")
	defer done()

	if err := e.Validate(); err != nil {
		return err
	}

	err := q.QueryRowContext(ctx, `
		INSERT INTO audit_log (deal_id, actor_kind, actor_id, actor_name, action, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, e.DealID, string(e.Actor.Kind), nullString(e.Actor.ID), nullString(e.Actor.Name),
		e.Action, nullString(e.Detail), e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// PostgresLog is a PostgreSQL-backed audit log.
type PostgresLog struct {
	db *sql.DB
}

// NewPostgresLog creates a PostgreSQL-backed audit log.
func NewPostgresLog(db *sql.DB) *PostgresLog {
	return &PostgresLog{db: db}
}

func (p *PostgresLog) Append(ctx context.Context, e *Entry) error {
	return Insert(ctx, p.db, e)
}

func (p *PostgresLog) ListByDeal(ctx context.Context, dealID string, limit int) ([]*Entry, error) {
	done := observeOp("list_by_deal")
	defer done()

	query := `
		SELECT id, deal_id, actor_kind, actor_id, actor_name, action, detail, created_at
		FROM audit_log
		WHERE deal_id = $1
		ORDER BY id ASC
	`
	args := []interface{}{dealID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (*Entry, error) {
	var e Entry
	var kind string
	var actorID, actorName, detail sql.NullString

	err := s.Scan(&e.ID, &e.DealID, &kind, &actorID, &actorName, &e.Action, &detail, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan audit entry: %w", err)
	}

	e.Actor = Actor{Kind: ActorKind(kind), ID: actorID.String, Name: actorName.String}
	e.Detail = detail.String
	return &e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Log = (*PostgresLog)(nil)
