package look

import (
	"context"
	"errors"
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
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the crossings core's read/engagement surface over looks.
// Look creation, editing and photo storage are owned by the looks service.
type Repository interface {
	// GetLook fetches a look with its tagged items.
	GetLook(ctx context.Context, lookID uuid.UUID) (*models.Look, error)
	// MostRecentLook returns the user's latest look created at or after
	// since, or ErrNotFound when the user posted nothing in that window.
	MostRecentLook(ctx context.Context, userID uuid.UUID, since time.Time) (*models.Look, error)
	// IsLookEligible reports whether lookID still exists and was created at
	// or after since.
	IsLookEligible(ctx context.Context, lookID uuid.UUID, since time.Time) (bool, error)
	// SetLiked drives the (look, user) like membership to the desired state
	// and adjusts the counter atomically; already-in-state calls are no-ops.
	// Crossing like toggles propagate through this.
	SetLiked(ctx context.Context, lookID, userID uuid.UUID, liked bool) error
	// RecordView counts at most one view per (look, user), never counting
	// the owner's own views.
	RecordView(ctx context.Context, lookID, userID uuid.UUID) error
}

type RepositoryImpl struct {
	db     DB
	logger *zap.Logger
}

func NewRepository(db DB, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{db: db, logger: logger}
}

func (r *RepositoryImpl) GetLook(ctx context.Context, lookID uuid.UUID) (*models.Look, error) {
	var l models.Look
	query := `
		SELECT id, user_id, title, description, photo_url, created_at, likes_count, views_count
		FROM looks
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, lookID).Scan(
		&l.ID,
		&l.UserID,
		&l.Title,
		&l.Description,
		&l.PhotoURL,
		&l.CreatedAt,
		&l.LikesCount,
		&l.ViewsCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("look %s not found: %w", lookID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("database error fetching look: %w", err)
	}

	items, err := r.getItems(ctx, lookID)
	if err != nil {
		return nil, err
	}
	l.Items = items

	return &l, nil
}

func (r *RepositoryImpl) getItems(ctx context.Context, lookID uuid.UUID) ([]models.LookItem, error) {
	query := `
		SELECT id, look_id, category, brand, product_name, product_reference, product_url, color
		FROM look_items
		WHERE look_id = $1
	`
	rows, err := r.db.Query(ctx, query, lookID)
	if err != nil {
		return nil, fmt.Errorf("database error fetching look items: %w", err)
	}
	defer rows.Close()

	var items []models.LookItem
	for rows.Next() {
		var it models.LookItem
		err := rows.Scan(
			&it.ID,
			&it.LookID,
			&it.Category,
			&it.Brand,
			&it.ProductName,
			&it.ProductReference,
			&it.ProductURL,
			&it.Color,
		)
		if err != nil {
			return nil, fmt.Errorf("database error scanning look item: %w", err)
		}
		// The schema CHECK enforces the category enum; a row failing here
		// means the migration and the code disagree about the allowed set.
		if err := models.ValidateLookItemCategory(it.Category); err != nil {
			return nil, fmt.Errorf("look %s item %s: %w", lookID, it.ID, err)
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

func (r *RepositoryImpl) MostRecentLook(ctx context.Context, userID uuid.UUID, since time.Time) (*models.Look, error) {
	var lookID uuid.UUID
	query := `
		SELECT id
		FROM looks
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	err := r.db.QueryRow(ctx, query, userID, since).Scan(&lookID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no recent look for user %s: %w", userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("database error fetching most recent look: %w", err)
	}

	return r.GetLook(ctx, lookID)
}

func (r *RepositoryImpl) IsLookEligible(ctx context.Context, lookID uuid.UUID, since time.Time) (bool, error) {
	var eligible bool
	query := `SELECT EXISTS (SELECT 1 FROM looks WHERE id = $1 AND created_at >= $2)`
	if err := r.db.QueryRow(ctx, query, lookID, since).Scan(&eligible); err != nil {
		return false, fmt.Errorf("database error checking look eligibility: %w", err)
	}
	return eligible, nil
}

// SetLiked drives the like membership to the desired state. The counter
// moves with an update expression relative to the stored value, and only when
// the membership row actually changed, so racing calls cannot lose updates or
// double-count.
func (r *RepositoryImpl) SetLiked(ctx context.Context, lookID, userID uuid.UUID, liked bool) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database error starting like update: %w", err)
	}
	defer tx.Rollback(ctx)

	var tag pgconn.CommandTag
	if liked {
		insert := `
			INSERT INTO look_likes (look_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT ON CONSTRAINT uq_look_like DO NOTHING
		`
		tag, err = tx.Exec(ctx, insert, lookID, userID)
	} else {
		tag, err = tx.Exec(ctx, `DELETE FROM look_likes WHERE look_id = $1 AND user_id = $2`, lookID, userID)
	}
	if err != nil {
		return fmt.Errorf("database error updating look like membership: %w", err)
	}

	if tag.RowsAffected() > 0 {
		update := `UPDATE looks SET likes_count = likes_count + 1 WHERE id = $1`
		if !liked {
			update = `UPDATE looks SET likes_count = GREATEST(likes_count - 1, 0) WHERE id = $1`
		}
		if _, err := tx.Exec(ctx, update, lookID); err != nil {
			return fmt.Errorf("database error adjusting look likes: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// RecordView counts one view per user per look. The insert's uniqueness
// constraint makes repeat views no-ops.
func (r *RepositoryImpl) RecordView(ctx context.Context, lookID, userID uuid.UUID) error {
	var ownerID uuid.UUID
	if err := r.db.QueryRow(ctx, `SELECT user_id FROM looks WHERE id = $1`, lookID).Scan(&ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("look %s not found: %w", lookID, models.ErrNotFound)
		}
		return fmt.Errorf("database error fetching look owner: %w", err)
	}
	if ownerID == userID {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database error starting view record: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO look_views (look_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT uq_look_view DO NOTHING
	`
	tag, err := tx.Exec(ctx, insert, lookID, userID)
	if err != nil {
		return fmt.Errorf("database error inserting look view: %w", err)
	}
	if tag.RowsAffected() > 0 {
		if _, err := tx.Exec(ctx, `UPDATE looks SET views_count = views_count + 1 WHERE id = $1`, lookID); err != nil {
			return fmt.Errorf("database error incrementing look views: %w", err)
		}
	}
	return tx.Commit(ctx)
}
