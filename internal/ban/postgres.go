package ban

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"headcount/internal/identity"
	id "headcount/pkg/domain"
	"headcount/pkg/platform/sentinel"
	"headcount/pkg/requestcontext"
)

// PostgresStore persists ban records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const banColumns = `id, business_id, venue_id, identity_token, reason_code, notes, created_at, end_at, active, revoked_at`

func (s *PostgresStore) Create(ctx context.Context, record *Record) error {
	var venueID *uuid.UUID
	if record.VenueID != nil {
		vid := uuid.UUID(*record.VenueID)
		venueID = &vid
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ban_records (`+banColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		uuid.UUID(record.ID),
		uuid.UUID(record.BusinessID),
		venueID,
		string(record.IdentityToken),
		record.ReasonCode,
		record.Notes,
		record.CreatedAt,
		record.EndAt,
		record.Active,
		record.RevokedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ban record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, banID id.BanID) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+banColumns+`
		FROM ban_records
		WHERE id = $1
	`, uuid.UUID(banID))

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find ban record: %w", err)
	}
	return record, nil
}

// FindActive returns bans in force at the request time: active flag set and
// end time null or still in the future.
func (s *PostgresStore) FindActive(ctx context.Context, businessID id.BusinessID, token identity.Token) ([]Record, error) {
	now := requestcontext.Now(ctx)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+banColumns+`
		FROM ban_records
		WHERE business_id = $1
		  AND identity_token = $2
		  AND active
		  AND (end_at IS NULL OR end_at > $3)
		ORDER BY created_at
	`, uuid.UUID(businessID), string(token), now)
	if err != nil {
		return nil, fmt.Errorf("query active bans: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ban record: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ban records: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Update(ctx context.Context, record *Record) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE ban_records
		SET active = $2, revoked_at = $3, end_at = $4, notes = $5
		WHERE id = $1
	`,
		uuid.UUID(record.ID),
		record.Active,
		record.RevokedAt,
		record.EndAt,
		record.Notes,
	)
	if err != nil {
		return fmt.Errorf("update ban record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ban record: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		record  Record
		banID   uuid.UUID
		bizID   uuid.UUID
		venueID *uuid.UUID
		token   string
	)
	err := row.Scan(
		&banID,
		&bizID,
		&venueID,
		&token,
		&record.ReasonCode,
		&record.Notes,
		&record.CreatedAt,
		&record.EndAt,
		&record.Active,
		&record.RevokedAt,
	)
	if err != nil {
		return nil, err
	}
	record.ID = id.BanID(banID)
	record.BusinessID = id.BusinessID(bizID)
	if venueID != nil {
		vid := id.VenueID(*venueID)
		record.VenueID = &vid
	}
	record.IdentityToken = identity.Token(token)
	return &record, nil
}
