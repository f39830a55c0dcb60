package occupancy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "headcount/pkg/domain"
	"headcount/pkg/platform/sentinel"
	txcontext "headcount/pkg/platform/tx"
	"headcount/pkg/requestcontext"
)

// PostgresStore persists the occupancy ledger and snapshots in PostgreSQL.
//
// Atomicity model: the ledger append and the snapshot change always run in
// one transaction that takes the area's snapshot row lock before the event
// insert. Holding the lock across insert and update serializes concurrent
// deltas per area and keeps the ledger's seq order identical to the order
// deltas hit the snapshot, so a replay reproduces the live value even when
// the clamp engages. The clamp itself is GREATEST(0, current + delta)
// computed inside the database.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// inTx runs fn inside the context transaction when one is present, or a
// dedicated one otherwise.
func (s *PostgresStore) inTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if tx, ok := txcontext.From(ctx); ok {
		return fn(ctx, tx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(ctx, tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) ApplyDelta(ctx context.Context, in ApplyInput) (ApplyResult, error) {
	var result ApplyResult
	err := s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		result, err = applyDeltaTx(ctx, tx, in)
		return err
	})
	return result, err
}

// applyDeltaTx appends one event and applies the clamped delta to the
// snapshot. The row lock is taken before the event insert: the event's seq
// is assigned while the lock is held, so ledger order cannot diverge from
// the order the snapshot absorbed the deltas.
func applyDeltaTx(ctx context.Context, tx *sql.Tx, in ApplyInput) (ApplyResult, error) {
	if _, err := lockSnapshot(ctx, tx, in); err != nil {
		return ApplyResult{}, err
	}

	eventID := uuid.New()
	now := requestcontext.Now(ctx)

	var deviceID, userID *uuid.UUID
	if in.DeviceID != nil {
		did := uuid.UUID(*in.DeviceID)
		deviceID = &did
	}
	if in.UserID != nil {
		uid := uuid.UUID(*in.UserID)
		userID = &uid
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO occupancy_events (id, business_id, venue_id, area_id, device_id, user_id, delta, event_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		eventID,
		uuid.UUID(in.BusinessID),
		uuid.UUID(in.VenueID),
		uuid.UUID(in.AreaID),
		deviceID,
		userID,
		in.Delta,
		string(in.Type),
		now,
	)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("append occupancy event: %w", err)
	}

	// lockSnapshot created the row if needed, so a plain update suffices.
	var occupancy int
	err = tx.QueryRowContext(ctx, `
		UPDATE occupancy_snapshots
		SET current_occupancy = GREATEST(0, current_occupancy + $2),
		    last_event_id = $3,
		    updated_at = $4
		WHERE area_id = $1
		RETURNING current_occupancy
	`,
		uuid.UUID(in.AreaID),
		in.Delta,
		eventID,
		now,
	).Scan(&occupancy)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("update occupancy snapshot: %w", err)
	}

	return ApplyResult{EventID: id.EventID(eventID), CurrentOccupancy: occupancy}, nil
}

// lockSnapshot ensures the area's snapshot row exists and locks it for the
// rest of the transaction, returning the current occupancy. Lazy creation
// plus the lock closes the race where two read-compute-write callers both
// start from a missing row.
func lockSnapshot(ctx context.Context, tx *sql.Tx, in ApplyInput) (int, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO occupancy_snapshots (area_id, business_id, venue_id, current_occupancy, updated_at)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (area_id) DO NOTHING
	`,
		uuid.UUID(in.AreaID),
		uuid.UUID(in.BusinessID),
		uuid.UUID(in.VenueID),
		requestcontext.Now(ctx),
	)
	if err != nil {
		return 0, fmt.Errorf("ensure occupancy snapshot: %w", err)
	}

	var occupancy int
	err = tx.QueryRowContext(ctx, `
		SELECT current_occupancy FROM occupancy_snapshots WHERE area_id = $1 FOR UPDATE
	`, uuid.UUID(in.AreaID)).Scan(&occupancy)
	if err != nil {
		return 0, fmt.Errorf("lock occupancy snapshot: %w", err)
	}
	return occupancy, nil
}

func (s *PostgresStore) GetSnapshot(ctx context.Context, areaID id.AreaID) (*Snapshot, error) {
	var (
		snap        Snapshot
		area        uuid.UUID
		business    uuid.UUID
		venue       uuid.UUID
		lastEventID *uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT area_id, business_id, venue_id, current_occupancy, last_event_id, updated_at
		FROM occupancy_snapshots
		WHERE area_id = $1
	`, uuid.UUID(areaID)).Scan(&area, &business, &venue, &snap.CurrentOccupancy, &lastEventID, &snap.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get occupancy snapshot: %w", err)
	}
	snap.AreaID = id.AreaID(area)
	snap.BusinessID = id.BusinessID(business)
	snap.VenueID = id.VenueID(venue)
	if lastEventID != nil {
		snap.LastEventID = id.EventID(*lastEventID)
	}
	return &snap, nil
}

func (s *PostgresStore) SetAbsolute(ctx context.Context, in ApplyInput, target int) (ApplyResult, bool, error) {
	if target < 0 {
		target = 0
	}

	var (
		result  ApplyResult
		applied bool
	)
	err := s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		current, err := lockSnapshot(ctx, tx, in)
		if err != nil {
			return err
		}
		if current == target {
			result = ApplyResult{CurrentOccupancy: current}
			return nil
		}
		in.Delta = target - current
		result, err = applyDeltaTx(ctx, tx, in)
		applied = err == nil
		return err
	})
	return result, applied, err
}

func (s *PostgresStore) ResetArea(ctx context.Context, in ApplyInput) (int, error) {
	var cleared int
	err := s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// An area without a snapshot has never seen an event; nothing to
		// reset. Business and venue come from the row so business-wide
		// resets need not carry them per area.
		var (
			current  int
			business uuid.UUID
			venue    uuid.UUID
		)
		err := tx.QueryRowContext(ctx, `
			SELECT current_occupancy, business_id, venue_id
			FROM occupancy_snapshots
			WHERE area_id = $1
			FOR UPDATE
		`, uuid.UUID(in.AreaID)).Scan(&current, &business, &venue)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("lock occupancy snapshot: %w", err)
		}
		if current == 0 {
			return nil
		}
		cleared = current
		in.BusinessID = id.BusinessID(business)
		in.VenueID = id.VenueID(venue)
		in.Delta = -current
		in.Type = TypeReset
		_, err = applyDeltaTx(ctx, tx, in)
		return err
	})
	return cleared, err
}

func (s *PostgresStore) RebuildSnapshot(ctx context.Context, areaID id.AreaID) (int, error) {
	var occupancy int
	err := s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the snapshot row so no delta lands between the replay and
		// the overwrite. Missing row means no events ever touched the area.
		var current int
		err := tx.QueryRowContext(ctx, `
			SELECT current_occupancy FROM occupancy_snapshots WHERE area_id = $1 FOR UPDATE
		`, uuid.UUID(areaID)).Scan(&current)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock occupancy snapshot: %w", err)
		}

		// seq is the application order; created_at comes from the request
		// clock and can invert even between serialized writers.
		rows, err := tx.QueryContext(ctx, `
			SELECT id, delta FROM occupancy_events
			WHERE area_id = $1
			ORDER BY seq
		`, uuid.UUID(areaID))
		if err != nil {
			return fmt.Errorf("replay occupancy events: %w", err)
		}
		defer rows.Close()

		var lastEventID *uuid.UUID
		for rows.Next() {
			var (
				eventID uuid.UUID
				delta   int
			)
			if err := rows.Scan(&eventID, &delta); err != nil {
				return fmt.Errorf("scan occupancy event: %w", err)
			}
			occupancy += delta
			if occupancy < 0 {
				occupancy = 0
			}
			lastEventID = &eventID
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate occupancy events: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE occupancy_snapshots
			SET current_occupancy = $2, last_event_id = $3, updated_at = $4
			WHERE area_id = $1
		`, uuid.UUID(areaID), occupancy, lastEventID, requestcontext.Now(ctx))
		if err != nil {
			return fmt.Errorf("overwrite occupancy snapshot: %w", err)
		}
		return nil
	})
	return occupancy, err
}

func (s *PostgresStore) AreasForVenue(ctx context.Context, venueID id.VenueID) ([]id.AreaID, error) {
	return s.listAreas(ctx, `SELECT area_id FROM occupancy_snapshots WHERE venue_id = $1 ORDER BY area_id`, uuid.UUID(venueID))
}

func (s *PostgresStore) AreasForBusiness(ctx context.Context, businessID id.BusinessID) ([]id.AreaID, error) {
	return s.listAreas(ctx, `SELECT area_id FROM occupancy_snapshots WHERE business_id = $1 ORDER BY area_id`, uuid.UUID(businessID))
}

func (s *PostgresStore) listAreas(ctx context.Context, query string, arg any) ([]id.AreaID, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	defer rows.Close()

	var areas []id.AreaID
	for rows.Next() {
		var areaID uuid.UUID
		if err := rows.Scan(&areaID); err != nil {
			return nil, fmt.Errorf("scan area id: %w", err)
		}
		areas = append(areas, id.AreaID(areaID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate areas: %w", err)
	}
	return areas, nil
}

const eventColumns = `id, seq, business_id, venue_id, area_id, device_id, user_id, delta, event_type, created_at`

func (s *PostgresStore) EventsForArea(ctx context.Context, areaID id.AreaID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM occupancy_events
		WHERE area_id = $1
		ORDER BY seq
	`, uuid.UUID(areaID))
	if err != nil {
		return nil, fmt.Errorf("query occupancy events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *PostgresStore) EventsForRange(ctx context.Context, businessID id.BusinessID, start, end time.Time) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM occupancy_events
		WHERE business_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at, seq
	`, uuid.UUID(businessID), start, end)
	if err != nil {
		return nil, fmt.Errorf("query occupancy events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var (
			event     Event
			eventID   uuid.UUID
			business  uuid.UUID
			venue     uuid.UUID
			area      uuid.UUID
			deviceID  *uuid.UUID
			userID    *uuid.UUID
			eventType string
		)
		if err := rows.Scan(
			&eventID,
			&event.Seq,
			&business,
			&venue,
			&area,
			&deviceID,
			&userID,
			&event.Delta,
			&eventType,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan occupancy event: %w", err)
		}
		event.ID = id.EventID(eventID)
		event.BusinessID = id.BusinessID(business)
		event.VenueID = id.VenueID(venue)
		event.AreaID = id.AreaID(area)
		if deviceID != nil {
			did := id.DeviceID(*deviceID)
			event.DeviceID = &did
		}
		if userID != nil {
			uid := id.UserID(*userID)
			event.UserID = &uid
		}
		event.Type = EventType(eventType)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate occupancy events: %w", err)
	}
	return events, nil
}
