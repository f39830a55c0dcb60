package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "headcount/pkg/domain"
	"headcount/pkg/platform/sentinel"
)

// PostgresStore persists business policies in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Find(ctx context.Context, businessID id.BusinessID) (*Policy, error) {
	var (
		p   Policy
		bid uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT business_id, min_age, auto_increment, updated_at
		FROM business_policies
		WHERE business_id = $1
	`, uuid.UUID(businessID)).Scan(&bid, &p.MinAge, &p.AutoIncrement, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find business policy: %w", err)
	}
	p.BusinessID = id.BusinessID(bid)
	return &p, nil
}

func (s *PostgresStore) Save(ctx context.Context, p Policy) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO business_policies (business_id, min_age, auto_increment, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (business_id) DO UPDATE
		SET min_age = EXCLUDED.min_age,
		    auto_increment = EXCLUDED.auto_increment,
		    updated_at = EXCLUDED.updated_at
	`, uuid.UUID(p.BusinessID), p.MinAge, p.AutoIncrement, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save business policy: %w", err)
	}
	return nil
}
