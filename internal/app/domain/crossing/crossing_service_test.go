package crossing

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-lookup/internal/app/models"
	"github.com/FACorreiaa/go-lookup/internal/app/observability/metrics"
	"github.com/FACorreiaa/go-lookup/internal/pkg/config"
)

func TestMain(m *testing.M) {
	metrics.InitAppMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type MockCrossingRepo struct {
	mock.Mock
}

func (m *MockCrossingRepo) CommitDetection(ctx context.Context, ping *models.LocationPing, crossings []*models.Crossing) (int, error) {
	args := m.Called(ctx, ping, crossings)
	return args.Int(0), args.Error(1)
}
func (m *MockCrossingRepo) HasRecentCrossing(ctx context.Context, a, b uuid.UUID, since time.Time) (bool, error) {
	args := m.Called(ctx, a, b, since)
	return args.Bool(0), args.Error(1)
}
func (m *MockCrossingRepo) ListForUser(ctx context.Context, userID uuid.UUID, since time.Time) ([]models.Crossing, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Crossing), args.Error(1)
}
func (m *MockCrossingRepo) GetCrossing(ctx context.Context, crossingID uuid.UUID) (*models.Crossing, error) {
	args := m.Called(ctx, crossingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Crossing), args.Error(1)
}
func (m *MockCrossingRepo) MarkViewed(ctx context.Context, crossingID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, crossingID, userID)
	return args.Bool(0), args.Error(1)
}
func (m *MockCrossingRepo) ToggleLike(ctx context.Context, crossingID, userID uuid.UUID) (*models.ToggleResult, error) {
	args := m.Called(ctx, crossingID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ToggleResult), args.Error(1)
}
func (m *MockCrossingRepo) ToggleSave(ctx context.Context, crossingID, userID uuid.UUID) (*models.ToggleResult, error) {
	args := m.Called(ctx, crossingID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ToggleResult), args.Error(1)
}
func (m *MockCrossingRepo) GetStats(ctx context.Context, crossingID, userID uuid.UUID) (*models.CrossingStats, error) {
	args := m.Called(ctx, crossingID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CrossingStats), args.Error(1)
}

type MockLocationRepo struct {
	mock.Mock
}

func (m *MockLocationRepo) RecordPing(ctx context.Context, ping *models.LocationPing) error {
	args := m.Called(ctx, ping)
	return args.Error(0)
}
func (m *MockLocationRepo) FindCandidates(ctx context.Context, excludeUser uuid.UUID, zoneSet []string, since time.Time) ([]models.PingCandidate, error) {
	args := m.Called(ctx, excludeUser, zoneSet, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PingCandidate), args.Error(1)
}

type MockLookRepo struct {
	mock.Mock
}

func (m *MockLookRepo) GetLook(ctx context.Context, lookID uuid.UUID) (*models.Look, error) {
	args := m.Called(ctx, lookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Look), args.Error(1)
}
func (m *MockLookRepo) MostRecentLook(ctx context.Context, userID uuid.UUID, since time.Time) (*models.Look, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Look), args.Error(1)
}
func (m *MockLookRepo) IsLookEligible(ctx context.Context, lookID uuid.UUID, since time.Time) (bool, error) {
	args := m.Called(ctx, lookID, since)
	return args.Bool(0), args.Error(1)
}
func (m *MockLookRepo) SetLiked(ctx context.Context, lookID, userID uuid.UUID, liked bool) error {
	args := m.Called(ctx, lookID, userID, liked)
	return args.Error(0)
}
func (m *MockLookRepo) RecordView(ctx context.Context, lookID, userID uuid.UUID) error {
	args := m.Called(ctx, lookID, userID)
	return args.Error(0)
}

type MockSocialRepo struct {
	mock.Mock
}

func (m *MockSocialRepo) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockSocialRepo) IsBlockedEither(ctx context.Context, a, b uuid.UUID) (bool, error) {
	args := m.Called(ctx, a, b)
	return args.Bool(0), args.Error(1)
}
func (m *MockSocialRepo) IsMutualFollow(ctx context.Context, a, b uuid.UUID) (bool, error) {
	args := m.Called(ctx, a, b)
	return args.Bool(0), args.Error(1)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) ResolvePlaceName(ctx context.Context, lat, lon float64) (string, error) {
	args := m.Called(ctx, lat, lon)
	return args.String(0), args.Error(1)
}

type serviceMocks struct {
	crossings *MockCrossingRepo
	locations *MockLocationRepo
	looks     *MockLookRepo
	social    *MockSocialRepo
	geocoder  *MockResolver
}

func newTestService(mode config.ListingMode) (*ServiceImpl, *serviceMocks) {
	m := &serviceMocks{
		crossings: new(MockCrossingRepo),
		locations: new(MockLocationRepo),
		looks:     new(MockLookRepo),
		social:    new(MockSocialRepo),
		geocoder:  new(MockResolver),
	}
	cfg := config.CrossingsConfig{
		ZoneSizeMeters:   50,
		CoLocationWindow: 10 * time.Minute,
		DedupWindow:      time.Hour,
		RetentionHorizon: 24 * time.Hour,
		ListingMode:      mode,
	}
	svc := NewService(m.crossings, m.locations, m.looks, m.social, m.geocoder, cfg, zap.NewNop())
	return svc, m
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, models.ErrNotFound)
}

func pingReq(lat, lon float64) models.PingRequest {
	return models.PingRequest{Latitude: &lat, Longitude: &lon}
}

// --- RecordPing ---

func TestRecordPingCreatesCrossing(t *testing.T) {
	svc, m := newTestService(config.ListingPerLook)
	ctx := context.Background()

	me := uuid.New()
	other := uuid.New()
	otherLook := &models.Look{ID: uuid.New(), UserID: other}

	m.locations.On("FindCandidates", mock.Anything, me, mock.Anything, mock.Anything).
		Return([]models.PingCandidate{{UserID: other, ZoneID: "108461:5220", Timestamp: time.Now()}}, nil)
	m.crossings.On("HasRecentCrossing", mock.Anything, me, other, mock.Anything).Return(false, nil)
	m.social.On("IsBlockedEither", mock.Anything, me, other).Return(false, nil)
	m.looks.On("MostRecentLook", mock.Anything, me, mock.Anything).Return(nil, notFound("no look"))
	m.looks.On("MostRecentLook", mock.Anything, other, mock.Anything).Return(otherLook, nil)
	m.geocoder.On("ResolvePlaceName", mock.Anything, 48.8566, 2.3522).Return("Le Marais", nil)

	var committed []*models.Crossing
	m.crossings.On("CommitDetection", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			committed = args.Get(2).([]*models.Crossing)
		}).
		Return(1, nil)

	resp, err := svc.RecordPing(ctx, me, pingReq(48.8566, 2.3522))
	require.NoError(t, err)

	assert.True(t, resp.PingSaved)
	assert.NotEmpty(t, resp.Zone)
	assert.Equal(t, 1, resp.NewCrossingsCount)

	require.Len(t, committed, 1)
	c := committed[0]
	assert.Equal(t, me, c.User1ID)
	assert.Equal(t, other, c.User2ID)
	assert.Equal(t, resp.Zone, c.ZoneID)
	assert.Nil(t, c.User1LookID)
	require.NotNil(t, c.User2LookID)
	assert.Equal(t, otherLook.ID, *c.User2LookID)
	require.NotNil(t, c.LocationName)
	assert.Equal(t, "Le Marais", *c.LocationName)
}

func TestRecordPingSuppressedByDedupWindow(t *testing.T) {
	svc, m := newTestService(config.ListingPerLook)

	me := uuid.New()
	other := uuid.New()

	m.locations.On("FindCandidates", mock.Anything, me, mock.Anything, mock.Anything).
		Return([]models.PingCandidate{{UserID: other}}, nil)
	m.crossings.On("HasRecentCrossing", mock.Anything, me, other, mock.Anything).Return(true, nil)
	m.crossings.On("CommitDetection", mock.Anything, mock.Anything, mock.Anything).Return(0, nil)

	resp, err := svc.RecordPing(context.Background(), me, pingReq(48.8566, 2.3522))
	require.NoError(t, err)

	assert.True(t, resp.PingSaved)
	assert.Equal(t, 0, resp.NewCrossingsCount)
	m.social.AssertNotCalled(t, "IsBlockedEither", mock.Anything, mock.Anything, mock.Anything)
	m.geocoder.AssertNotCalled(t, "ResolvePlaceName", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordPingSkipsBlockedPair(t *testing.T) {
	svc, m := newTestService(config.ListingPerLook)

	me := uuid.New()
	other := uuid.New()

	m.locations.On("FindCandidates", mock.Anything, me, mock.Anything, mock.Anything).
		Return([]models.PingCandidate{{UserID: other}}, nil)
	m.crossings.On("HasRecentCrossing", mock.Anything, me, other, mock.Anything).Return(false, nil)
	m.social.On("IsBlockedEither", mock.Anything, me, other).Return(true, nil)
	m.crossings.On("CommitDetection", mock.Anything, mock.Anything, mock.Anything).Return(0, nil)

	resp, err := svc.RecordPing(context.Background(), me, pingReq(48.8566, 2.3522))
	require.NoError(t, err)
	assert.Equal(t, 0, resp.NewCrossingsCount)
}

func TestRecordPingCollapsesRepeatedCandidatePings(t *testing.T) {
	svc, m := newTestService(config.ListingPerLook)

	me := uuid.New()
	other := uuid.New()

	m.locations.On("FindCandidates", mock.Anything, me, mock.Anything, mock.Anything).
		Return([]models.PingCandidate{
			{UserID: other, ZoneID: "1:1"},
			{UserID: other, ZoneID: "1:2"},
		}, nil)
	m.crossings.On("HasRecentCrossing", mock.Anything, me, other, mock.Anything).Return(false, nil).Once()
	m.social.On("IsBlockedEither", mock.Anything, me, other).Return(false, nil)
	m.looks.On("MostRecentLook", mock.Anything, mock.Anything, mock.Anything).Return(nil, notFound("no look"))
	m.geocoder.On("ResolvePlaceName", mock.Anything, mock.Anything, mock.Anything).Return("Somewhere", nil)

	var committed []*models.Crossing
	m.crossings.On("CommitDetection", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { committed = args.Get(2).([]*models.Crossing) }).
		Return(1, nil)

	_, err := svc.RecordPing(context.Background(), me, pingReq(48.8566, 2.3522))
	require.NoError(t, err)

	require.Len(t, committed, 1)
	m.crossings.AssertExpectations(t)
}

func TestRecordPingRejectsInvalidCoordinates(t *testing.T) {
	svc, m := newTestService(config.ListingPerLook)

	_, err := svc.RecordPing(context.Background(), uuid.New(), pingReq(95, 2.3522))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
	m.locations.AssertNotCalled(t, "FindCandidates", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordPingRejectsMissingCoordinates(t *testing.T) {
	svc, m := newTestService(config.ListingPerLook)

	lat := 48.8566
	_, err := svc.RecordPing(context.Background(), uuid.New(), models.PingRequest{Latitude: &lat})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
	m.locations.AssertNotCalled(t, "FindCandidates", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordPingAcceptsZeroCoordinates(t *testing.T) {
	svc, m := newTestService(config.ListingPerLook)

	me := uuid.New()
	m.locations.On("FindCandidates", mock.Anything, me, mock.Anything, mock.Anything).
		Return([]models.PingCandidate{}, nil)
	m.crossings.On("CommitDetection", mock.Anything, mock.Anything, mock.Anything).Return(0, nil)

	// Equator and prime meridian are legitimate coordinates.
	resp, err := svc.RecordPing(context.Background(), me, pingReq(0, 0))
	require.NoError(t, err)
	assert.True(t, resp.PingSaved)
}

func TestRecordPingGeocodeFailureDegradesToPlaceholder(t *testing.T) {
	svc, m := newTestService(config.ListingPerLook)

	me := uuid.New()
	other := uuid.New()

	m.locations.On("FindCandidates", mock.Anything, me, mock.Anything, mock.Anything).
		Return([]models.PingCandidate{{UserID: other}}, nil)
	m.crossings.On("HasRecentCrossing", mock.Anything, me, other, mock.Anything).Return(false, nil)
	m.social.On("IsBlockedEither", mock.Anything, me, other).Return(false, nil)
	m.looks.On("MostRecentLook", mock.Anything, mock.Anything, mock.Anything).Return(nil, notFound("no look"))
	m.geocoder.On("ResolvePlaceName", mock.Anything, mock.Anything, mock.Anything).
		Return("Somewhere nearby", fmt.Errorf("reverse geocoding failed: %w", models.ErrUpstreamUnavailable))

	var committed []*models.Crossing
	m.crossings.On("CommitDetection", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { committed = args.Get(2).([]*models.Crossing) }).
		Return(1, nil)

	resp, err := svc.RecordPing(context.Background(), me, pingReq(48.8566, 2.3522))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.NewCrossingsCount)

	require.Len(t, committed, 1)
	require.NotNil(t, committed[0].LocationName)
	assert.Equal(t, "Somewhere nearby", *committed[0].LocationName)
}

// --- ListCrossings ---

func activeUser(id uuid.UUID, private bool) *models.User {
	return &models.User{ID: id, Username: "u-" + id.String()[:8], IsActive: true, IsVisible: true, IsPrivate: private}
}

func TestListCrossingsAppliesVisibilityRules(t *testing.T) {
	svc, m := newTestService(config.ListingPerLook)
	ctx := context.Background()

	me := uuid.New()
	visible := uuid.New()
	inactive := uuid.New()
	private := uuid.New()
	mutual := uuid.New()

	visibleLookID := uuid.New()
	mutualLookID := uuid.New()

	raw := []models.Crossing{
		{ID: uuid.New(), User1ID: me, User2ID: visible, Latitude: 48.85661, Longitude: 2.35224, User2LookID: &visibleLookID, CrossedAt: time.Now()},
		{ID: uuid.New(), User1ID: inactive, User2ID: me, CrossedAt: time.Now().Add(-time.Hour)},
		{ID: uuid.New(), User1ID: me, User2ID: private, CrossedAt: time.Now().Add(-2 * time.Hour)},
		{ID: uuid.New(), User1ID: mutual, User2ID: me, User1LookID: &mutualLookID, CrossedAt: time.Now().Add(-3 * time.Hour)},
	}

	m.crossings.On("ListForUser", mock.Anything, me, mock.Anything).Return(raw, nil)

	m.social.On("GetUser", mock.Anything, visible).Return(activeUser(visible, false), nil)
	m.social.On("GetUser", mock.Anything, inactive).Return(&models.User{ID: inactive, IsActive: false}, nil)
	m.social.On("GetUser", mock.Anything, private).Return(activeUser(private, true), nil)
	m.social.On("GetUser", mock.Anything, mutual).Return(activeUser(mutual, true), nil)
	m.social.On("IsMutualFollow", mock.Anything, me, private).Return(false, nil)
	m.social.On("IsMutualFollow", mock.Anything, me, mutual).Return(true, nil)

	m.looks.On("IsLookEligible", mock.Anything, visibleLookID, mock.Anything).Return(true, nil)
	m.looks.On("GetLook", mock.Anything, visibleLookID).Return(&models.Look{ID: visibleLookID, UserID: visible}, nil)

	// The mutual follower's captured look aged out; fall back to their newest.
	fallbackLook := &models.Look{ID: uuid.New(), UserID: mutual}
	m.looks.On("IsLookEligible", mock.Anything, mutualLookID, mock.Anything).Return(false, nil)
	m.looks.On("MostRecentLook", mock.Anything, mutual, mock.Anything).Return(fallbackLook, nil)

	summaries, err := svc.ListCrossings(ctx, me, 0, 20)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, visible, summaries[0].OtherUserID)
	assert.Equal(t, 48.857, summaries[0].Latitude)
	assert.Equal(t, 2.352, summaries[0].Longitude)
	require.NotNil(t, summaries[0].OtherLookID)
	assert.Equal(t, visibleLookID, *summaries[0].OtherLookID)

	assert.Equal(t, mutual, summaries[1].OtherUserID)
	require.NotNil(t, summaries[1].OtherLookID)
	assert.Equal(t, fallbackLook.ID, *summaries[1].OtherLookID)
}

func TestListCrossingsDropsRowsWithNothingToShow(t *testing.T) {
	svc, m := newTestService(config.ListingPerLook)

	me := uuid.New()
	other := uuid.New()

	raw := []models.Crossing{
		{ID: uuid.New(), User1ID: me, User2ID: other, CrossedAt: time.Now()},
	}
	m.crossings.On("ListForUser", mock.Anything, me, mock.Anything).Return(raw, nil)
	m.social.On("GetUser", mock.Anything, other).Return(activeUser(other, false), nil)
	m.looks.On("MostRecentLook", mock.Anything, other, mock.Anything).Return(nil, notFound("no look"))

	summaries, err := svc.ListCrossings(context.Background(), me, 0, 20)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestListCrossingsPerUserCollapse(t *testing.T) {
	me := uuid.New()
	other := uuid.New()
	lookA := uuid.New()
	lookB := uuid.New()

	raw := []models.Crossing{
		{ID: uuid.New(), User1ID: me, User2ID: other, User2LookID: &lookA, CrossedAt: time.Now()},
		{ID: uuid.New(), User1ID: me, User2ID: other, User2LookID: &lookB, CrossedAt: time.Now().Add(-time.Hour)},
	}

	setup := func(svc *ServiceImpl, m *serviceMocks) {
		m.crossings.On("ListForUser", mock.Anything, me, mock.Anything).Return(raw, nil)
		m.social.On("GetUser", mock.Anything, other).Return(activeUser(other, false), nil)
		m.looks.On("IsLookEligible", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
		m.looks.On("GetLook", mock.Anything, lookA).Return(&models.Look{ID: lookA, UserID: other}, nil)
		m.looks.On("GetLook", mock.Anything, lookB).Return(&models.Look{ID: lookB, UserID: other}, nil)
	}

	perLook, mocksA := newTestService(config.ListingPerLook)
	setup(perLook, mocksA)
	summaries, err := perLook.ListCrossings(context.Background(), me, 0, 20)
	require.NoError(t, err)
	assert.Len(t, summaries, 2)

	perUser, mocksB := newTestService(config.ListingPerUser)
	setup(perUser, mocksB)
	summaries, err = perUser.ListCrossings(context.Background(), me, 0, 20)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, lookA, *summaries[0].OtherLookID)
}

func TestListCrossingsPagination(t *testing.T) {
	svc, m := newTestService(config.ListingPerLook)

	me := uuid.New()
	var raw []models.Crossing
	lookIDs := make([]uuid.UUID, 3)
	for i := 0; i < 3; i++ {
		other := uuid.New()
		lookIDs[i] = uuid.New()
		lookID := lookIDs[i]
		raw = append(raw, models.Crossing{
			ID: uuid.New(), User1ID: me, User2ID: other, User2LookID: &lookID,
			CrossedAt: time.Now().Add(-time.Duration(i) * time.Hour),
		})
		m.social.On("GetUser", mock.Anything, other).Return(activeUser(other, false), nil)
		m.looks.On("GetLook", mock.Anything, lookID).Return(&models.Look{ID: lookID}, nil)
	}
	m.crossings.On("ListForUser", mock.Anything, me, mock.Anything).Return(raw, nil)
	m.looks.On("IsLookEligible", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

	page, err := svc.ListCrossings(context.Background(), me, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, lookIDs[1], *page[0].OtherLookID)

	empty, err := svc.ListCrossings(context.Background(), me, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// --- Detail / engagement ---

func TestGetCrossingDetailNonParticipant(t *testing.T) {
	svc, m := newTestService(config.ListingPerLook)

	crossingID := uuid.New()
	m.crossings.On("GetCrossing", mock.Anything, crossingID).
		Return(&models.Crossing{ID: crossingID, User1ID: uuid.New(), User2ID: uuid.New()}, nil)

	_, err := svc.GetCrossingDetail(context.Background(), uuid.New(), crossingID)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
	m.crossings.AssertNotCalled(t, "MarkViewed", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetCrossingDetailMarksViewedAndRecordsLookView(t *testing.T) {
	svc, m := newTestService(config.ListingPerLook)

	me := uuid.New()
	other := uuid.New()
	lookID := uuid.New()
	crossingID := uuid.New()

	m.crossings.On("GetCrossing", mock.Anything, crossingID).
		Return(&models.Crossing{
			ID: crossingID, User1ID: me, User2ID: other,
			ZoneID: "1:1", Latitude: 48.85661, Longitude: 2.35224,
			User2LookID: &lookID, CrossedAt: time.Now(),
		}, nil)
	m.social.On("IsBlockedEither", mock.Anything, me, other).Return(false, nil)
	m.social.On("GetUser", mock.Anything, other).Return(activeUser(other, false), nil)
	m.crossings.On("MarkViewed", mock.Anything, crossingID, me).Return(true, nil)
	m.looks.On("IsLookEligible", mock.Anything, lookID, mock.Anything).Return(true, nil)
	m.looks.On("GetLook", mock.Anything, lookID).Return(&models.Look{ID: lookID, UserID: other}, nil)
	m.looks.On("RecordView", mock.Anything, lookID, me).Return(nil)

	detail, err := svc.GetCrossingDetail(context.Background(), me, crossingID)
	require.NoError(t, err)

	assert.Equal(t, 48.857, detail.Crossing.Latitude)
	assert.Equal(t, 2.352, detail.Crossing.Longitude)
	require.NotNil(t, detail.OtherUser)
	assert.Equal(t, other, detail.OtherUser.ID)
	require.NotNil(t, detail.OtherLook)
	assert.Equal(t, lookID, detail.OtherLook.ID)
	m.crossings.AssertCalled(t, "MarkViewed", mock.Anything, crossingID, me)
	m.looks.AssertCalled(t, "RecordView", mock.Anything, lookID, me)
}

func TestToggleLikePropagatesToLook(t *testing.T) {
	svc, m := newTestService(config.ListingPerLook)

	me := uuid.New()
	other := uuid.New()
	lookID := uuid.New()
	crossingID := uuid.New()

	m.crossings.On("GetCrossing", mock.Anything, crossingID).
		Return(&models.Crossing{ID: crossingID, User1ID: me, User2ID: other, User2LookID: &lookID}, nil)
	m.social.On("IsBlockedEither", mock.Anything, me, other).Return(false, nil)
	m.social.On("GetUser", mock.Anything, other).Return(activeUser(other, false), nil)
	m.crossings.On("ToggleLike", mock.Anything, crossingID, me).
		Return(&models.ToggleResult{Active: true, Count: 1}, nil)
	m.looks.On("SetLiked", mock.Anything, lookID, me, true).Return(nil)

	result, err := svc.ToggleLike(context.Background(), me, crossingID)
	require.NoError(t, err)
	assert.True(t, result.Active)
	assert.Equal(t, 1, result.Count)
	m.looks.AssertCalled(t, "SetLiked", mock.Anything, lookID, me, true)
}

func TestToggleLikeWithoutAttachedLook(t *testing.T) {
	svc, m := newTestService(config.ListingPerLook)

	me := uuid.New()
	other := uuid.New()
	crossingID := uuid.New()

	m.crossings.On("GetCrossing", mock.Anything, crossingID).
		Return(&models.Crossing{ID: crossingID, User1ID: me, User2ID: other}, nil)
	m.social.On("IsBlockedEither", mock.Anything, me, other).Return(false, nil)
	m.social.On("GetUser", mock.Anything, other).Return(activeUser(other, false), nil)
	m.crossings.On("ToggleLike", mock.Anything, crossingID, me).
		Return(&models.ToggleResult{Active: false, Count: 0}, nil)

	result, err := svc.ToggleLike(context.Background(), me, crossingID)
	require.NoError(t, err)
	assert.False(t, result.Active)
	m.looks.AssertNotCalled(t, "SetLiked", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetStatsHiddenForBlockedPair(t *testing.T) {
	svc, m := newTestService(config.ListingPerLook)

	me := uuid.New()
	other := uuid.New()
	crossingID := uuid.New()

	m.crossings.On("GetCrossing", mock.Anything, crossingID).
		Return(&models.Crossing{ID: crossingID, User1ID: me, User2ID: other}, nil)
	m.social.On("IsBlockedEither", mock.Anything, me, other).Return(true, nil)

	_, err := svc.GetStats(context.Background(), me, crossingID)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
	m.crossings.AssertNotCalled(t, "GetStats", mock.Anything, mock.Anything, mock.Anything)
}
