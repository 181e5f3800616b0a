package crossing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-lookup/internal/app/domain/location"
	"github.com/FACorreiaa/go-lookup/internal/app/models"
	"github.com/FACorreiaa/go-lookup/internal/app/observability/metrics"
)

var _ Repository = (*RepositoryImpl)(nil)

// DB is the slice of pgxpool.Pool this repository needs. Narrow so tests can
// substitute a mock pool, in particular for the conflict-recovery path.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists crossings and their engagement state.
type Repository interface {
	// CommitDetection writes the ping and any newly detected crossings as one
	// transaction. When a concurrent detection already created a crossing for
	// the same pair in the same hour bucket, the whole batch is abandoned, the
	// ping is committed alone and the returned count is 0.
	CommitDetection(ctx context.Context, ping *models.LocationPing, crossings []*models.Crossing) (int, error)
	// HasRecentCrossing reports whether the pair already has a crossing at or
	// after since, in either stored order.
	HasRecentCrossing(ctx context.Context, a, b uuid.UUID, since time.Time) (bool, error)
	// ListForUser returns the user's crossings at or after since, most recent
	// first. Pairs where either side blocks the other are excluded here;
	// per-counterpart visibility rules are applied by the service.
	ListForUser(ctx context.Context, userID uuid.UUID, since time.Time) ([]models.Crossing, error)
	// GetCrossing fetches one crossing row.
	GetCrossing(ctx context.Context, crossingID uuid.UUID) (*models.Crossing, error)
	// MarkViewed stamps the participant's first-view timestamp and counts the
	// view once. Returns true on the first view, false on repeats.
	MarkViewed(ctx context.Context, crossingID, userID uuid.UUID) (bool, error)
	// ToggleLike flips the (crossing, user) like membership and returns the
	// resulting state and counter.
	ToggleLike(ctx context.Context, crossingID, userID uuid.UUID) (*models.ToggleResult, error)
	// ToggleSave flips the (crossing, user) save membership. Saves carry no
	// counter on the crossing row; Count reports the user's total saves.
	ToggleSave(ctx context.Context, crossingID, userID uuid.UUID) (*models.ToggleResult, error)
	// GetStats returns the engagement counters plus the caller's own
	// liked/saved state.
	GetStats(ctx context.Context, crossingID, userID uuid.UUID) (*models.CrossingStats, error)
}

type RepositoryImpl struct {
	db     DB
	logger *zap.Logger
}

func NewRepository(db DB, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{db: db, logger: logger}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const crossingColumns = `id, user1_id, user2_id, zone_id, latitude, longitude, location_name,
	user1_look_id, user2_look_id, crossed_at, user1_viewed, user2_viewed, likes_count, views_count`

// CommitDetection writes the ping plus the detected crossings atomically. A
// unique index on (LEAST(user1), GREATEST(user2), hour bucket) backstops
// concurrent detections of the same pair: on that conflict the transaction is
// abandoned and only the ping is retried, reporting zero new crossings.
func (r *RepositoryImpl) CommitDetection(ctx context.Context, ping *models.LocationPing, crossings []*models.Crossing) (int, error) {
	created, err := r.commitBatch(ctx, ping, crossings)
	if err == nil {
		return created, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		metrics.Get().CrossingConflictTotal.Add(ctx, 1)
		r.logger.Warn("Concurrent crossing detection conflict, committing ping alone",
			zap.String("user_id", ping.UserID.String()),
			zap.String("zone_id", ping.ZoneID))
		if err := r.RecordPing(ctx, ping); err != nil {
			return 0, err
		}
		return 0, nil
	}

	return 0, err
}

func (r *RepositoryImpl) commitBatch(ctx context.Context, ping *models.LocationPing, crossings []*models.Crossing) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("database error starting detection commit: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := location.InsertPingTx(ctx, tx, ping); err != nil {
		return 0, err
	}

	insert := `
		INSERT INTO crossings (id, user1_id, user2_id, zone_id, latitude, longitude, location_name,
			user1_look_id, user2_look_id, crossed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, c := range crossings {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		_, err := tx.Exec(ctx, insert,
			c.ID,
			c.User1ID,
			c.User2ID,
			c.ZoneID,
			c.Latitude,
			c.Longitude,
			c.LocationName,
			c.User1LookID,
			c.User2LookID,
			c.CrossedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("database error inserting crossing: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("database error committing detection: %w", err)
	}
	return len(crossings), nil
}

// RecordPing appends the ping outside any detection transaction. Used on the
// conflict retry path.
func (r *RepositoryImpl) RecordPing(ctx context.Context, ping *models.LocationPing) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database error starting ping commit: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := location.InsertPingTx(ctx, tx, ping); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *RepositoryImpl) HasRecentCrossing(ctx context.Context, a, b uuid.UUID, since time.Time) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM crossings
			WHERE ((user1_id = $1 AND user2_id = $2) OR (user1_id = $2 AND user2_id = $1))
			  AND crossed_at >= $3
		)
	`
	if err := r.db.QueryRow(ctx, query, a, b, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("database error checking recent crossing: %w", err)
	}
	return exists, nil
}

// ListForUser pulls the raw rows; block exclusion happens in SQL so blocked
// pairs never even reach the service's filters.
func (r *RepositoryImpl) ListForUser(ctx context.Context, userID uuid.UUID, since time.Time) ([]models.Crossing, error) {
	query, args, err := psql.
		Select(crossingColumns).
		From("crossings c").
		Where(squirrel.Or{
			squirrel.Eq{"c.user1_id": userID},
			squirrel.Eq{"c.user2_id": userID},
		}).
		Where(squirrel.GtOrEq{"c.crossed_at": since}).
		Where(`NOT EXISTS (
			SELECT 1 FROM blocked_users b
			WHERE (b.blocker_id = c.user1_id AND b.blocked_id = c.user2_id)
			   OR (b.blocker_id = c.user2_id AND b.blocked_id = c.user1_id)
		)`).
		OrderBy("c.crossed_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building crossing list query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("database error listing crossings: %w", err)
	}
	defer rows.Close()

	var crossings []models.Crossing
	for rows.Next() {
		c, err := scanCrossing(rows)
		if err != nil {
			return nil, err
		}
		crossings = append(crossings, *c)
	}

	return crossings, rows.Err()
}

func (r *RepositoryImpl) GetCrossing(ctx context.Context, crossingID uuid.UUID) (*models.Crossing, error) {
	query := fmt.Sprintf(`SELECT %s FROM crossings WHERE id = $1`, crossingColumns)
	c, err := scanCrossing(r.db.QueryRow(ctx, query, crossingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("crossing %s not found: %w", crossingID, models.ErrNotFound)
		}
		return nil, err
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCrossing(row rowScanner) (*models.Crossing, error) {
	var c models.Crossing
	err := row.Scan(
		&c.ID,
		&c.User1ID,
		&c.User2ID,
		&c.ZoneID,
		&c.Latitude,
		&c.Longitude,
		&c.LocationName,
		&c.User1LookID,
		&c.User2LookID,
		&c.CrossedAt,
		&c.User1Viewed,
		&c.User2Viewed,
		&c.LikesCount,
		&c.ViewsCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("database error scanning crossing: %w", err)
	}
	return &c, nil
}

// MarkViewed stamps the caller's side once. The WHERE guard on the NULL
// timestamp makes repeats no-ops and keeps the counter from double-counting.
func (r *RepositoryImpl) MarkViewed(ctx context.Context, crossingID, userID uuid.UUID) (bool, error) {
	query := `
		UPDATE crossings
		SET user1_viewed = CASE WHEN user1_id = $2 THEN NOW() ELSE user1_viewed END,
		    user2_viewed = CASE WHEN user2_id = $2 THEN NOW() ELSE user2_viewed END,
		    views_count = views_count + 1
		WHERE id = $1
		  AND ((user1_id = $2 AND user1_viewed IS NULL) OR (user2_id = $2 AND user2_viewed IS NULL))
	`
	tag, err := r.db.Exec(ctx, query, crossingID, userID)
	if err != nil {
		return false, fmt.Errorf("database error marking crossing viewed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ToggleLike flips membership and moves the counter relative to the stored
// value inside one transaction.
func (r *RepositoryImpl) ToggleLike(ctx context.Context, crossingID, userID uuid.UUID) (*models.ToggleResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("database error starting crossing like toggle: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO crossing_likes (crossing_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT uq_crossing_like DO NOTHING
	`
	tag, err := tx.Exec(ctx, insert, crossingID, userID)
	if err != nil {
		return nil, fmt.Errorf("database error inserting crossing like: %w", err)
	}
	liked := tag.RowsAffected() > 0

	update := `UPDATE crossings SET likes_count = likes_count + 1 WHERE id = $1 RETURNING likes_count`
	if !liked {
		if _, err := tx.Exec(ctx, `DELETE FROM crossing_likes WHERE crossing_id = $1 AND user_id = $2`, crossingID, userID); err != nil {
			return nil, fmt.Errorf("database error deleting crossing like: %w", err)
		}
		update = `UPDATE crossings SET likes_count = GREATEST(likes_count - 1, 0) WHERE id = $1 RETURNING likes_count`
	}

	var count int
	if err := tx.QueryRow(ctx, update, crossingID).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("crossing %s not found: %w", crossingID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("database error adjusting crossing likes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("database error committing crossing like toggle: %w", err)
	}
	return &models.ToggleResult{Active: liked, Count: count}, nil
}

// ToggleSave flips the saved membership. Count reports how many crossings the
// user has saved in total, which is what the client shows.
func (r *RepositoryImpl) ToggleSave(ctx context.Context, crossingID, userID uuid.UUID) (*models.ToggleResult, error) {
	insert := `
		INSERT INTO saved_crossings (crossing_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT uq_saved_crossing DO NOTHING
	`
	tag, err := r.db.Exec(ctx, insert, crossingID, userID)
	if err != nil {
		return nil, fmt.Errorf("database error inserting saved crossing: %w", err)
	}
	saved := tag.RowsAffected() > 0

	if !saved {
		if _, err := r.db.Exec(ctx, `DELETE FROM saved_crossings WHERE crossing_id = $1 AND user_id = $2`, crossingID, userID); err != nil {
			return nil, fmt.Errorf("database error deleting saved crossing: %w", err)
		}
	}

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM saved_crossings WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return nil, fmt.Errorf("database error counting saved crossings: %w", err)
	}
	return &models.ToggleResult{Active: saved, Count: count}, nil
}

func (r *RepositoryImpl) GetStats(ctx context.Context, crossingID, userID uuid.UUID) (*models.CrossingStats, error) {
	var stats models.CrossingStats
	query := `
		SELECT c.likes_count,
		       c.views_count,
		       EXISTS (SELECT 1 FROM crossing_likes cl WHERE cl.crossing_id = c.id AND cl.user_id = $2),
		       EXISTS (SELECT 1 FROM saved_crossings sc WHERE sc.crossing_id = c.id AND sc.user_id = $2)
		FROM crossings c
		WHERE c.id = $1
	`
	err := r.db.QueryRow(ctx, query, crossingID, userID).Scan(
		&stats.LikesCount,
		&stats.ViewsCount,
		&stats.UserLiked,
		&stats.UserSaved,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("crossing %s not found: %w", crossingID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("database error fetching crossing stats: %w", err)
	}
	return &stats, nil
}
