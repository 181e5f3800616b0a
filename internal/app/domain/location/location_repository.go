package location

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-lookup/internal/app/models"
)

var _ Repository = (*RepositoryImpl)(nil)

// DB is the slice of pgxpool.Pool this repository needs. Narrow so tests can
// substitute a mock pool.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the append-only store of location pings. Pings are never
// updated or deduplicated; retention cleanup is an external batch concern.
type Repository interface {
	// RecordPing appends one ping row.
	RecordPing(ctx context.Context, ping *models.LocationPing) error
	// FindCandidates returns other users' pings whose zone is in zoneSet and
	// whose timestamp is at or after since. Several rows per user may come
	// back; callers dedupe by user id. Users with visibility disabled or
	// deactivated accounts are filtered out here.
	FindCandidates(ctx context.Context, excludeUser uuid.UUID, zoneSet []string, since time.Time) ([]models.PingCandidate, error)
}

type RepositoryImpl struct {
	db     DB
	logger *zap.Logger
}

func NewRepository(db DB, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{db: db, logger: logger}
}

// RecordPing appends a new ping row.
func (r *RepositoryImpl) RecordPing(ctx context.Context, ping *models.LocationPing) error {
	if ping.ID == uuid.Nil {
		ping.ID = uuid.New()
	}
	if ping.Timestamp.IsZero() {
		ping.Timestamp = time.Now()
	}

	query := `
		INSERT INTO location_pings (id, user_id, latitude, longitude, zone_id, accuracy, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		ping.ID,
		ping.UserID,
		ping.Latitude,
		ping.Longitude,
		ping.ZoneID,
		ping.Accuracy,
		ping.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to insert location ping",
			zap.String("user_id", ping.UserID.String()),
			zap.Error(err))
		return fmt.Errorf("database error recording ping: %w", err)
	}

	return nil
}

// FindCandidates retrieves recent pings from other users inside the zone set.
func (r *RepositoryImpl) FindCandidates(ctx context.Context, excludeUser uuid.UUID, zoneSet []string, since time.Time) ([]models.PingCandidate, error) {
	query := `
		SELECT lp.user_id, lp.zone_id, lp.timestamp
		FROM location_pings lp
		JOIN users u ON u.id = lp.user_id
		WHERE lp.user_id != $1
		  AND lp.zone_id = ANY($2)
		  AND lp.timestamp >= $3
		  AND u.is_active = TRUE
		  AND u.is_visible = TRUE
		ORDER BY lp.timestamp DESC
	`

	rows, err := r.db.Query(ctx, query, excludeUser, zoneSet, since)
	if err != nil {
		return nil, fmt.Errorf("database error querying ping candidates: %w", err)
	}
	defer rows.Close()

	var candidates []models.PingCandidate
	for rows.Next() {
		var c models.PingCandidate
		if err := rows.Scan(&c.UserID, &c.ZoneID, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("database error scanning ping candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// InsertPingTx appends a ping inside an existing transaction. Shared with the
// crossing detector, which commits the ping and any new crossings as one unit.
func InsertPingTx(ctx context.Context, tx pgx.Tx, ping *models.LocationPing) error {
	if ping.ID == uuid.Nil {
		ping.ID = uuid.New()
	}
	if ping.Timestamp.IsZero() {
		ping.Timestamp = time.Now()
	}

	query := `
		INSERT INTO location_pings (id, user_id, latitude, longitude, zone_id, accuracy, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.Exec(ctx, query,
		ping.ID,
		ping.UserID,
		ping.Latitude,
		ping.Longitude,
		ping.ZoneID,
		ping.Accuracy,
		ping.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("database error recording ping: %w", err)
	}
	return nil
}
