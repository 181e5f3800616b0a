package crossing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-lookup/internal/app/domain/geocode"
	"github.com/FACorreiaa/go-lookup/internal/app/domain/location"
	"github.com/FACorreiaa/go-lookup/internal/app/domain/look"
	"github.com/FACorreiaa/go-lookup/internal/app/domain/social"
	"github.com/FACorreiaa/go-lookup/internal/app/domain/zone"
	"github.com/FACorreiaa/go-lookup/internal/app/models"
	"github.com/FACorreiaa/go-lookup/internal/app/observability/metrics"
	"github.com/FACorreiaa/go-lookup/internal/pkg/config"
)

var _ Service = (*ServiceImpl)(nil)

// Service is the crossings core: ping-driven detection, the visibility-filtered
// read path, and engagement.
type Service interface {
	// RecordPing stores the ping and synchronously detects new crossings.
	RecordPing(ctx context.Context, userID uuid.UUID, req models.PingRequest) (*models.PingResponse, error)
	// ListCrossings returns the caller's visible crossings, most recent first.
	ListCrossings(ctx context.Context, userID uuid.UUID, skip, limit int) ([]models.CrossingSummary, error)
	// GetCrossingDetail returns the full view of one crossing and marks it
	// viewed. Non-participants get ErrNotFound, never ErrForbidden.
	GetCrossingDetail(ctx context.Context, userID, crossingID uuid.UUID) (*models.CrossingDetail, error)
	// ToggleLike flips the caller's like on the crossing and propagates the
	// resulting state to the counterpart's attached look.
	ToggleLike(ctx context.Context, userID, crossingID uuid.UUID) (*models.ToggleResult, error)
	// ToggleSave flips the caller's save on the crossing.
	ToggleSave(ctx context.Context, userID, crossingID uuid.UUID) (*models.ToggleResult, error)
	// GetStats returns engagement counters plus the caller's own state.
	GetStats(ctx context.Context, userID, crossingID uuid.UUID) (*models.CrossingStats, error)
}

type ServiceImpl struct {
	repo         Repository
	locationRepo location.Repository
	lookRepo     look.Repository
	socialRepo   social.Repository
	geocoder     geocode.Resolver
	zones        *zone.Indexer
	cfg          config.CrossingsConfig
	logger       *zap.Logger
}

func NewService(
	repo Repository,
	locationRepo location.Repository,
	lookRepo look.Repository,
	socialRepo social.Repository,
	geocoder geocode.Resolver,
	cfg config.CrossingsConfig,
	logger *zap.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		repo:         repo,
		locationRepo: locationRepo,
		lookRepo:     lookRepo,
		socialRepo:   socialRepo,
		geocoder:     geocoder,
		zones:        zone.NewIndexer(cfg.ZoneSizeMeters),
		cfg:          cfg,
		logger:       logger,
	}
}

// RecordPing indexes the ping into its zone, searches the 9-cell neighborhood
// for recent candidates, dedupes against the pair window and commits the ping
// together with any new crossings as one unit.
func (s *ServiceImpl) RecordPing(ctx context.Context, userID uuid.UUID, req models.PingRequest) (*models.PingResponse, error) {
	ctx, span := otel.Tracer("CrossingService").Start(ctx, "RecordPing")
	defer span.End()
	l := s.logger.With(zap.String("method", "RecordPing"), zap.String("user_id", userID.String()))

	if req.Latitude == nil || req.Longitude == nil {
		return nil, fmt.Errorf("latitude and longitude are required: %w", models.ErrValidation)
	}
	lat, lon := *req.Latitude, *req.Longitude
	if err := zone.ValidateCoordinates(lat, lon, req.Accuracy); err != nil {
		return nil, err
	}

	now := time.Now()
	zoneID := s.zones.FromCoordinates(lat, lon)
	span.SetAttributes(attribute.String("zone.id", zoneID))

	neighborhood, err := s.zones.Neighbors(zoneID)
	if err != nil {
		return nil, err
	}

	ping := &models.LocationPing{
		UserID:    userID,
		Latitude:  lat,
		Longitude: lon,
		ZoneID:    zoneID,
		Accuracy:  req.Accuracy,
		Timestamp: now,
	}

	candidates, err := s.locationRepo.FindCandidates(ctx, userID, neighborhood, now.Add(-s.cfg.CoLocationWindow))
	if err != nil {
		return nil, err
	}

	counterparts, err := s.filterCounterparts(ctx, userID, candidates, now)
	if err != nil {
		return nil, err
	}

	crossings, err := s.buildCrossings(ctx, userID, counterparts, ping, now)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CommitDetection(ctx, ping, crossings)
	if err != nil {
		return nil, err
	}

	metrics.Get().PingsTotal.Add(ctx, 1)
	if created > 0 {
		metrics.Get().CrossingsCreatedTotal.Add(ctx, int64(created))
		l.Info("Ping produced new crossings",
			zap.String("zone_id", zoneID),
			zap.Int("new_crossings", created))
	}

	return &models.PingResponse{
		PingSaved:         true,
		Zone:              zoneID,
		NewCrossingsCount: created,
	}, nil
}

// filterCounterparts collapses candidate pings to one entry per user and drops
// pairs that already crossed inside the dedup window or that block each other.
func (s *ServiceImpl) filterCounterparts(ctx context.Context, userID uuid.UUID, candidates []models.PingCandidate, now time.Time) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool, len(candidates))
	dedupSince := now.Add(-s.cfg.DedupWindow)

	var counterparts []uuid.UUID
	for _, c := range candidates {
		if seen[c.UserID] {
			continue
		}
		seen[c.UserID] = true

		recent, err := s.repo.HasRecentCrossing(ctx, userID, c.UserID, dedupSince)
		if err != nil {
			return nil, err
		}
		if recent {
			continue
		}

		blocked, err := s.socialRepo.IsBlockedEither(ctx, userID, c.UserID)
		if err != nil {
			return nil, err
		}
		if blocked {
			continue
		}

		counterparts = append(counterparts, c.UserID)
	}

	return counterparts, nil
}

// buildCrossings attaches each side's most recent look within the horizon and
// a best-effort place name. Either side's look may be nil.
func (s *ServiceImpl) buildCrossings(ctx context.Context, userID uuid.UUID, counterparts []uuid.UUID, ping *models.LocationPing, now time.Time) ([]*models.Crossing, error) {
	if len(counterparts) == 0 {
		return nil, nil
	}

	lookSince := now.Add(-s.cfg.RetentionHorizon)
	lookIDs := make([]*uuid.UUID, len(counterparts))
	var callerLookID *uuid.UUID

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		id, err := s.resolveLookID(gctx, userID, lookSince)
		if err != nil {
			return err
		}
		callerLookID = id
		return nil
	})
	for i, counterpart := range counterparts {
		g.Go(func() error {
			id, err := s.resolveLookID(gctx, counterpart, lookSince)
			if err != nil {
				return err
			}
			lookIDs[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Geocoding failures degrade to a placeholder name; they never block
	// crossing creation.
	name, err := s.geocoder.ResolvePlaceName(ctx, ping.Latitude, ping.Longitude)
	if err != nil && !errors.Is(err, models.ErrUpstreamUnavailable) {
		return nil, err
	}

	crossings := make([]*models.Crossing, 0, len(counterparts))
	for i, counterpart := range counterparts {
		crossings = append(crossings, &models.Crossing{
			ID:           uuid.New(),
			User1ID:      userID,
			User2ID:      counterpart,
			ZoneID:       ping.ZoneID,
			Latitude:     ping.Latitude,
			Longitude:    ping.Longitude,
			LocationName: &name,
			User1LookID:  callerLookID,
			User2LookID:  lookIDs[i],
			CrossedAt:    now,
		})
	}

	return crossings, nil
}

func (s *ServiceImpl) resolveLookID(ctx context.Context, userID uuid.UUID, since time.Time) (*uuid.UUID, error) {
	recent, err := s.lookRepo.MostRecentLook(ctx, userID, since)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &recent.ID, nil
}

// ListCrossings applies the visibility rules on top of the raw rows: the
// retention horizon, counterpart account state, privacy/mutual-follow, and
// look re-resolution. Rows with nothing to show are dropped, then collapsed
// per the configured listing mode and paginated.
func (s *ServiceImpl) ListCrossings(ctx context.Context, userID uuid.UUID, skip, limit int) ([]models.CrossingSummary, error) {
	ctx, span := otel.Tracer("CrossingService").Start(ctx, "ListCrossings")
	defer span.End()

	now := time.Now()
	horizon := now.Add(-s.cfg.RetentionHorizon)

	raw, err := s.repo.ListForUser(ctx, userID, horizon)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.CrossingSummary, 0, len(raw))
	seen := make(map[string]bool)
	for i := range raw {
		c := &raw[i]
		summary, err := s.summarize(ctx, userID, c, horizon)
		if err != nil {
			return nil, err
		}
		if summary == nil {
			continue
		}

		key := s.collapseKey(summary)
		if seen[key] {
			continue
		}
		seen[key] = true
		summaries = append(summaries, *summary)
	}

	if skip >= len(summaries) {
		return []models.CrossingSummary{}, nil
	}
	end := skip + limit
	if end > len(summaries) {
		end = len(summaries)
	}
	return summaries[skip:end], nil
}

// collapseKey picks what "one entry" means: per counterpart look by default,
// or per counterpart when the listing mode collapses harder.
func (s *ServiceImpl) collapseKey(summary *models.CrossingSummary) string {
	if s.cfg.ListingMode == config.ListingPerUser {
		return summary.OtherUserID.String()
	}
	key := summary.OtherUserID.String()
	if summary.OtherLookID != nil {
		key += ":" + summary.OtherLookID.String()
	}
	return key
}

// summarize applies the per-counterpart visibility rules and resolves the look
// to show. Returns nil when the row must be hidden from this caller.
func (s *ServiceImpl) summarize(ctx context.Context, userID uuid.UUID, c *models.Crossing, horizon time.Time) (*models.CrossingSummary, error) {
	counterpart, ok := c.Counterpart(userID)
	if !ok {
		return nil, nil
	}

	other, err := s.socialRepo.GetUser(ctx, counterpart)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	visible, err := s.counterpartVisible(ctx, userID, other)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, nil
	}

	otherLook, err := s.resolveCounterpartLook(ctx, c, userID, counterpart, horizon)
	if err != nil {
		return nil, err
	}
	if otherLook == nil {
		// Nothing to show: the stored look aged out and the counterpart has
		// no newer one.
		return nil, nil
	}

	items := otherLook.Items
	if items == nil {
		items = []models.LookItem{}
	}

	return &models.CrossingSummary{
		ID:                c.ID,
		CrossedAt:         c.CrossedAt,
		Latitude:          zone.RoundForPrivacy(c.Latitude),
		Longitude:         zone.RoundForPrivacy(c.Longitude),
		LocationName:      c.LocationName,
		OtherUserID:       other.ID,
		OtherUsername:     other.Username,
		OtherAvatarURL:    other.AvatarURL,
		OtherLookID:       &otherLook.ID,
		OtherLookPhotoURL: &otherLook.PhotoURL,
		OtherLookItems:    items,
		LikesCount:        c.LikesCount,
		ViewsCount:        c.ViewsCount,
	}, nil
}

// counterpartVisible enforces account state and privacy. Blocks are already
// excluded at the store level.
func (s *ServiceImpl) counterpartVisible(ctx context.Context, userID uuid.UUID, other *models.User) (bool, error) {
	if !other.IsActive {
		return false, nil
	}
	if other.IsPrivate {
		mutual, err := s.socialRepo.IsMutualFollow(ctx, userID, other.ID)
		if err != nil {
			return false, err
		}
		return mutual, nil
	}
	return true, nil
}

// resolveCounterpartLook prefers the look captured at detection time while it
// is still inside the horizon, then falls back to the counterpart's most
// recent eligible look. Returns nil when neither exists.
func (s *ServiceImpl) resolveCounterpartLook(ctx context.Context, c *models.Crossing, userID, counterpart uuid.UUID, horizon time.Time) (*models.Look, error) {
	if stored := c.CounterpartLookID(userID); stored != nil {
		eligible, err := s.lookRepo.IsLookEligible(ctx, *stored, horizon)
		if err != nil {
			return nil, err
		}
		if eligible {
			return s.lookRepo.GetLook(ctx, *stored)
		}
	}

	recent, err := s.lookRepo.MostRecentLook(ctx, counterpart, horizon)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return recent, nil
}

// GetCrossingDetail returns the full view for a participant and records the
// first view on both the crossing and the shown look. The detail itself is not
// horizon-limited; only the look attachment is.
func (s *ServiceImpl) GetCrossingDetail(ctx context.Context, userID, crossingID uuid.UUID) (*models.CrossingDetail, error) {
	ctx, span := otel.Tracer("CrossingService").Start(ctx, "GetCrossingDetail")
	defer span.End()

	c, other, err := s.crossingForParticipant(ctx, userID, crossingID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.MarkViewed(ctx, crossingID, userID); err != nil {
		return nil, err
	}

	counterpart, _ := c.Counterpart(userID)
	horizon := time.Now().Add(-s.cfg.RetentionHorizon)
	otherLook, err := s.resolveCounterpartLook(ctx, c, userID, counterpart, horizon)
	if err != nil {
		return nil, err
	}
	if otherLook != nil {
		// At most one view per user per look; repeats are no-ops in the store.
		if err := s.lookRepo.RecordView(ctx, otherLook.ID, userID); err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
	}

	return &models.CrossingDetail{
		Crossing: models.CrossingSummaryHeader{
			ID:           c.ID,
			CrossedAt:    c.CrossedAt,
			ZoneID:       c.ZoneID,
			Latitude:     zone.RoundForPrivacy(c.Latitude),
			Longitude:    zone.RoundForPrivacy(c.Longitude),
			LocationName: c.LocationName,
		},
		OtherUser: other,
		OtherLook: otherLook,
	}, nil
}

// ToggleLike flips the caller's like and drives the counterpart's attached
// look to the same liked state, so both counters agree on whether the caller
// liked this content.
func (s *ServiceImpl) ToggleLike(ctx context.Context, userID, crossingID uuid.UUID) (*models.ToggleResult, error) {
	ctx, span := otel.Tracer("CrossingService").Start(ctx, "ToggleLike")
	defer span.End()

	c, _, err := s.crossingForParticipant(ctx, userID, crossingID)
	if err != nil {
		return nil, err
	}

	result, err := s.repo.ToggleLike(ctx, crossingID, userID)
	if err != nil {
		return nil, err
	}

	if stored := c.CounterpartLookID(userID); stored != nil {
		if err := s.lookRepo.SetLiked(ctx, *stored, userID, result.Active); err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("propagating like to look: %w", err)
		}
	}

	return result, nil
}

func (s *ServiceImpl) ToggleSave(ctx context.Context, userID, crossingID uuid.UUID) (*models.ToggleResult, error) {
	if _, _, err := s.crossingForParticipant(ctx, userID, crossingID); err != nil {
		return nil, err
	}
	return s.repo.ToggleSave(ctx, crossingID, userID)
}

func (s *ServiceImpl) GetStats(ctx context.Context, userID, crossingID uuid.UUID) (*models.CrossingStats, error) {
	if _, _, err := s.crossingForParticipant(ctx, userID, crossingID); err != nil {
		return nil, err
	}
	return s.repo.GetStats(ctx, crossingID, userID)
}

// crossingForParticipant loads the crossing and checks the caller may see it.
// Every failure mode is ErrNotFound so the endpoint never reveals whether the
// id exists.
func (s *ServiceImpl) crossingForParticipant(ctx context.Context, userID, crossingID uuid.UUID) (*models.Crossing, *models.User, error) {
	c, err := s.repo.GetCrossing(ctx, crossingID)
	if err != nil {
		return nil, nil, err
	}

	counterpart, ok := c.Counterpart(userID)
	if !ok {
		return nil, nil, fmt.Errorf("crossing %s not found: %w", crossingID, models.ErrNotFound)
	}

	blocked, err := s.socialRepo.IsBlockedEither(ctx, userID, counterpart)
	if err != nil {
		return nil, nil, err
	}
	if blocked {
		return nil, nil, fmt.Errorf("crossing %s not found: %w", crossingID, models.ErrNotFound)
	}

	other, err := s.socialRepo.GetUser(ctx, counterpart)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, fmt.Errorf("crossing %s not found: %w", crossingID, models.ErrNotFound)
		}
		return nil, nil, err
	}
	visible, err := s.counterpartVisible(ctx, userID, other)
	if err != nil {
		return nil, nil, err
	}
	if !visible {
		return nil, nil, fmt.Errorf("crossing %s not found: %w", crossingID, models.ErrNotFound)
	}

	return c, other, nil
}
