package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"headcount/pkg/platform/sentinel"
)

// PostgresStore persists identity summaries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, summary Summary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (token, region, birth_year, initials, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (token) DO UPDATE
		SET region = EXCLUDED.region,
		    birth_year = EXCLUDED.birth_year,
		    initials = EXCLUDED.initials,
		    last_seen_at = EXCLUDED.last_seen_at
	`,
		string(summary.Token),
		summary.Region,
		summary.BirthYear,
		summary.Initials,
		summary.FirstSeen,
		summary.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("upsert identity: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, token Token) (*Summary, error) {
	var summary Summary
	var rawToken string
	err := s.db.QueryRowContext(ctx, `
		SELECT token, region, birth_year, initials, first_seen_at, last_seen_at
		FROM identities
		WHERE token = $1
	`, string(token)).Scan(
		&rawToken,
		&summary.Region,
		&summary.BirthYear,
		&summary.Initials,
		&summary.FirstSeen,
		&summary.LastSeen,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	summary.Token = Token(rawToken)
	return &summary, nil
}
