package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-lookup/internal/app/models"
)

var _ Repository = (*RepositoryImpl)(nil)

// DB is the slice of pgxpool.Pool this repository needs. Narrow so tests can
// substitute a mock pool.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository answers the social-graph questions the crossings read path needs.
// Follow/block mutations live in the social service.
type Repository interface {
	// GetUser fetches the public slice of a user record.
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	// IsBlockedEither reports whether either user blocks the other.
	IsBlockedEither(ctx context.Context, a, b uuid.UUID) (bool, error)
	// IsMutualFollow reports whether both follow edges exist and are accepted.
	IsMutualFollow(ctx context.Context, a, b uuid.UUID) (bool, error)
}

type RepositoryImpl struct {
	db     DB
	logger *zap.Logger
}

func NewRepository(db DB, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{db: db, logger: logger}
}

func (r *RepositoryImpl) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var u models.User
	query := `
		SELECT id, username, avatar_url, is_active, is_visible, is_private, created_at
		FROM users
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&u.ID,
		&u.Username,
		&u.AvatarURL,
		&u.IsActive,
		&u.IsVisible,
		&u.IsPrivate,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s not found: %w", userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}
	return &u, nil
}

func (r *RepositoryImpl) IsBlockedEither(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var blocked bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM blocked_users
			WHERE (blocker_id = $1 AND blocked_id = $2)
			   OR (blocker_id = $2 AND blocked_id = $1)
		)
	`
	if err := r.db.QueryRow(ctx, query, a, b).Scan(&blocked); err != nil {
		return false, fmt.Errorf("database error checking block relation: %w", err)
	}
	return blocked, nil
}

func (r *RepositoryImpl) IsMutualFollow(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var mutual bool
	query := `
		SELECT (
			SELECT EXISTS (
				SELECT 1 FROM follows
				WHERE follower_id = $1 AND followed_id = $2 AND status = 'accepted'
			)
		) AND (
			SELECT EXISTS (
				SELECT 1 FROM follows
				WHERE follower_id = $2 AND followed_id = $1 AND status = 'accepted'
			)
		)
	`
	if err := r.db.QueryRow(ctx, query, a, b).Scan(&mutual); err != nil {
		return false, fmt.Errorf("database error checking mutual follow: %w", err)
	}
	return mutual, nil
}
