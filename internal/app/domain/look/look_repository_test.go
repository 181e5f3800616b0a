package look

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-lookup/internal/app/models"
)

func newMockRepo(t *testing.T) (*RepositoryImpl, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewRepository(mockPool, zap.NewNop()), mockPool
}

func expectLookRow(mockPool pgxmock.PgxPoolIface, lookID, userID uuid.UUID) {
	mockPool.ExpectQuery(`SELECT id, user_id, title, description, photo_url`).
		WithArgs(lookID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "title", "description", "photo_url", "created_at", "likes_count", "views_count",
		}).AddRow(lookID, userID, nil, nil, "https://cdn.example/p.jpg", time.Now(), 2, 7))
}

func TestGetLookWithItems(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	lookID := uuid.New()
	userID := uuid.New()
	expectLookRow(mockPool, lookID, userID)

	mockPool.ExpectQuery(`SELECT id, look_id, category`).
		WithArgs(lookID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "look_id", "category", "brand", "product_name", "product_reference", "product_url", "color",
		}).
			AddRow(uuid.New(), lookID, models.CategoryTop, nil, nil, nil, nil, nil).
			AddRow(uuid.New(), lookID, models.CategoryShoes, nil, nil, nil, nil, nil))

	l, err := repo.GetLook(context.Background(), lookID)
	require.NoError(t, err)
	assert.Equal(t, userID, l.UserID)
	assert.Equal(t, 2, l.LikesCount)
	require.Len(t, l.Items, 2)
	assert.Equal(t, models.CategoryTop, l.Items[0].Category)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

// An item category outside the enum means the migration and the code disagree;
// surface it instead of passing the row through.
func TestGetLookRejectsUnknownItemCategory(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	lookID := uuid.New()
	expectLookRow(mockPool, lookID, uuid.New())

	mockPool.ExpectQuery(`SELECT id, look_id, category`).
		WithArgs(lookID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "look_id", "category", "brand", "product_name", "product_reference", "product_url", "color",
		}).AddRow(uuid.New(), lookID, "hat", nil, nil, nil, nil, nil))

	_, err := repo.GetLook(context.Background(), lookID)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestMostRecentLookNotFound(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	userID := uuid.New()
	mockPool.ExpectQuery(`SELECT id`).
		WithArgs(userID, pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.MostRecentLook(context.Background(), userID, time.Now().Add(-24*time.Hour))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSetLikedIsIdempotent(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	lookID := uuid.New()
	userID := uuid.New()

	// Fresh like: membership row inserted, counter moves.
	mockPool.ExpectBegin()
	mockPool.ExpectExec(`INSERT INTO look_likes`).
		WithArgs(lookID, userID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec(`UPDATE looks SET likes_count`).
		WithArgs(lookID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectCommit()

	require.NoError(t, repo.SetLiked(context.Background(), lookID, userID, true))

	// Already liked: no membership change, counter untouched.
	mockPool.ExpectBegin()
	mockPool.ExpectExec(`INSERT INTO look_likes`).
		WithArgs(lookID, userID).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mockPool.ExpectCommit()

	require.NoError(t, repo.SetLiked(context.Background(), lookID, userID, true))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
