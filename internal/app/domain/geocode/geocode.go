// Package geocode resolves a best-effort human-readable place name for a
// coordinate pair. Results are cached on privacy-rounded coordinates and any
// upstream failure degrades to a placeholder name; crossing creation never
// waits on or fails because of this package.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-lookup/internal/app/domain/zone"
	"github.com/FACorreiaa/go-lookup/internal/app/models"
	"github.com/FACorreiaa/go-lookup/internal/app/observability/metrics"
	"github.com/FACorreiaa/go-lookup/internal/pkg/config"
)

// PlaceholderName is returned whenever the upstream is unavailable or gives
// an unusable answer.
const PlaceholderName = "Somewhere nearby"

// Resolver looks up place names.
type Resolver interface {
	// ResolvePlaceName never returns an empty string; it degrades to
	// PlaceholderName together with an ErrUpstreamUnavailable-wrapped error.
	ResolvePlaceName(ctx context.Context, lat, lon float64) (string, error)
}

var _ Resolver = (*HTTPResolver)(nil)

// HTTPResolver queries a Nominatim-style reverse endpoint.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
	cache   *gocache.Cache
	logger  *zap.Logger
}

func NewHTTPResolver(cfg config.GeocodeConfig, logger *zap.Logger) *HTTPResolver {
	return &HTTPResolver{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		cache:   gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		logger:  logger,
	}
}

type reverseResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Address     struct {
		Amenity      string `json:"amenity"`
		Road         string `json:"road"`
		Suburb       string `json:"suburb"`
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
	} `json:"address"`
}

// ResolvePlaceName resolves a coarse place name for the coordinates. The
// cache key uses the same ~100m rounding as the public API, so nearby
// crossings share an entry and raw GPS never reaches the upstream.
func (r *HTTPResolver) ResolvePlaceName(ctx context.Context, lat, lon float64) (string, error) {
	roundedLat := zone.RoundForPrivacy(lat)
	roundedLon := zone.RoundForPrivacy(lon)
	key := fmt.Sprintf("%.3f:%.3f", roundedLat, roundedLon)

	if cached, ok := r.cache.Get(key); ok {
		return cached.(string), nil
	}

	name, err := r.lookup(ctx, roundedLat, roundedLon)
	if err != nil {
		metrics.Get().GeocodeFailuresTotal.Add(ctx, 1)
		r.logger.Warn("Reverse geocoding failed, using placeholder",
			zap.String("key", key),
			zap.Error(err))
		return PlaceholderName, fmt.Errorf("reverse geocoding failed: %w", models.ErrUpstreamUnavailable)
	}

	r.cache.SetDefault(key, name)
	return name, nil
}

func (r *HTTPResolver) lookup(ctx context.Context, lat, lon float64) (string, error) {
	endpoint := fmt.Sprintf("%s/reverse?%s", r.baseURL, url.Values{
		"lat":    {fmt.Sprintf("%f", lat)},
		"lon":    {fmt.Sprintf("%f", lon)},
		"format": {"jsonv2"},
		"zoom":   {"17"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "lookup-api/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocoder returned status %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}

	name := pickName(body)
	if name == "" {
		return "", fmt.Errorf("reverse geocoder returned no usable name")
	}
	return name, nil
}

// pickName prefers the most local component available. Deliberately coarse:
// the full display_name would leak more location detail than the product
// exposes elsewhere.
func pickName(body reverseResponse) string {
	candidates := []string{
		body.Address.Amenity,
		body.Name,
		body.Address.Road,
		body.Address.Suburb,
		body.Address.Village,
		body.Address.Town,
		body.Address.City,
		body.Address.Municipality,
	}
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
