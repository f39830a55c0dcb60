package scan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"headcount/internal/identity"
	id "headcount/pkg/domain"
	"headcount/pkg/platform/sentinel"
	txcontext "headcount/pkg/platform/tx"
)

const eventColumns = `id, business_id, venue_id, area_id, device_id, user_id, identity_token, outcome, denial_reason, age, gender, zip, created_at`

// PostgresStore persists the scan ledger in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) executor(ctx context.Context) execer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, event *Event) error {
	var areaID, deviceID *uuid.UUID
	if event.AreaID != nil {
		aid := uuid.UUID(*event.AreaID)
		areaID = &aid
	}
	if event.DeviceID != nil {
		did := uuid.UUID(*event.DeviceID)
		deviceID = &did
	}

	var denialReason *string
	if event.DenialReason != "" {
		reason := string(event.DenialReason)
		denialReason = &reason
	}

	_, err := s.executor(ctx).ExecContext(ctx, `
		INSERT INTO scan_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		uuid.UUID(event.ID),
		uuid.UUID(event.BusinessID),
		uuid.UUID(event.VenueID),
		areaID,
		deviceID,
		uuid.UUID(event.UserID),
		string(event.IdentityToken),
		string(event.Outcome),
		denialReason,
		event.Age,
		event.Gender,
		event.Zip,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append scan event: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, scanID id.ScanID) (*Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM scan_events WHERE id = $1
	`, uuid.UUID(scanID))
	event, err := scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find scan event: %w", err)
	}
	return event, nil
}

func (s *PostgresStore) IdentityToken(ctx context.Context, scanID id.ScanID) (identity.Token, error) {
	var token string
	err := s.db.QueryRowContext(ctx, `
		SELECT identity_token FROM scan_events WHERE id = $1
	`, uuid.UUID(scanID)).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("resolve scan identity token: %w", err)
	}
	return identity.Token(token), nil
}

func (s *PostgresStore) ListByBusiness(ctx context.Context, businessID id.BusinessID, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM scan_events
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, uuid.UUID(businessID), limit)
	if err != nil {
		return nil, fmt.Errorf("list scan events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		event, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scan event: %w", err)
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scan events: %w", err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*Event, error) {
	var (
		event        Event
		eventID      uuid.UUID
		business     uuid.UUID
		venue        uuid.UUID
		areaID       *uuid.UUID
		deviceID     *uuid.UUID
		userID       uuid.UUID
		token        string
		outcome      string
		denialReason sql.NullString
		age          sql.NullInt64
		gender       sql.NullString
		zip          sql.NullString
	)
	if err := row.Scan(
		&eventID,
		&business,
		&venue,
		&areaID,
		&deviceID,
		&userID,
		&token,
		&outcome,
		&denialReason,
		&age,
		&gender,
		&zip,
		&event.CreatedAt,
	); err != nil {
		return nil, err
	}
	event.ID = id.ScanID(eventID)
	event.BusinessID = id.BusinessID(business)
	event.VenueID = id.VenueID(venue)
	if areaID != nil {
		aid := id.AreaID(*areaID)
		event.AreaID = &aid
	}
	if deviceID != nil {
		did := id.DeviceID(*deviceID)
		event.DeviceID = &did
	}
	event.UserID = id.UserID(userID)
	event.IdentityToken = identity.Token(token)
	event.Outcome = Outcome(outcome)
	event.DenialReason = DenialReason(denialReason.String)
	event.Age = int(age.Int64)
	event.Gender = gender.String
	event.Zip = zip.String
	return &event, nil
}
