// Package zone maps GPS coordinates onto a fixed-size grid used as a coarse
// spatial index. Two users are considered near each other when their pings
// fall into the same or adjacent cells, which avoids any per-pair distance
// computation at ping time.
package zone

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/FACorreiaa/go-lookup/internal/app/models"
)

const (
	// DefaultCellSizeMeters is the edge length of a grid cell.
	DefaultCellSizeMeters = 50.0

	// metersPerDegreeLat approximates one degree of latitude. The same
	// constant scaled by cos(lat) is used for longitude, so the physical
	// cell width shrinks toward the poles. That distortion is accepted;
	// it is not corrected for.
	metersPerDegreeLat = 111_000.0

	// privacyPrecision rounds coordinates to 3 decimals (~100m) before
	// they are returned to clients.
	privacyPrecision = 1000.0
)

// Indexer converts coordinates to zone ids for a given cell size.
type Indexer struct {
	cellSizeMeters float64
}

// NewIndexer returns an Indexer; a non-positive cell size falls back to the
// 50m default.
func NewIndexer(cellSizeMeters float64) *Indexer {
	if cellSizeMeters <= 0 {
		cellSizeMeters = DefaultCellSizeMeters
	}
	return &Indexer{cellSizeMeters: cellSizeMeters}
}

// FromCoordinates converts a coordinate pair into its zone id. Deterministic,
// no I/O.
func (i *Indexer) FromCoordinates(lat, lon float64) string {
	zoneLat := int(lat * metersPerDegreeLat / i.cellSizeMeters)
	metersPerDegreeLon := metersPerDegreeLat * math.Cos(lat*math.Pi/180)
	zoneLon := int(lon * metersPerDegreeLon / i.cellSizeMeters)
	return fmt.Sprintf("%d:%d", zoneLat, zoneLon)
}

// Neighbors returns the 3x3 block of zone ids around zoneID, including zoneID
// itself. Always 9 cells.
func (i *Indexer) Neighbors(zoneID string) ([]string, error) {
	zoneLat, zoneLon, err := split(zoneID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, 9)
	for dlat := -1; dlat <= 1; dlat++ {
		for dlon := -1; dlon <= 1; dlon++ {
			out = append(out, fmt.Sprintf("%d:%d", zoneLat+dlat, zoneLon+dlon))
		}
	}
	return out, nil
}

// Center converts a zone id back to the approximate coordinates of its
// south-west corner. Display helper only; it is never on the detection path.
// Near the poles the longitude scale degenerates (cos -> 0), in which case the
// longitude is reported as 0 rather than dividing by ~zero.
func (i *Indexer) Center(zoneID string) (lat, lon float64, err error) {
	zoneLat, zoneLon, err := split(zoneID)
	if err != nil {
		return 0, 0, err
	}
	lat = float64(zoneLat) * i.cellSizeMeters / metersPerDegreeLat
	scale := metersPerDegreeLat * math.Cos(lat*math.Pi/180)
	if math.Abs(scale) < 1e-6 {
		return lat, 0, nil
	}
	lon = float64(zoneLon) * i.cellSizeMeters / scale
	return lat, lon, nil
}

// RoundForPrivacy degrades a coordinate to ~100m precision.
func RoundForPrivacy(v float64) float64 {
	return math.Round(v*privacyPrecision) / privacyPrecision
}

// ValidateCoordinates rejects out-of-range latitude/longitude and negative
// accuracy.
func ValidateCoordinates(lat, lon float64, accuracy *float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %f out of range: %w", lat, models.ErrValidation)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %f out of range: %w", lon, models.ErrValidation)
	}
	if accuracy != nil && *accuracy < 0 {
		return fmt.Errorf("accuracy must be >= 0: %w", models.ErrValidation)
	}
	return nil
}

func split(zoneID string) (int, int, error) {
	parts := strings.SplitN(zoneID, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed zone id %q: %w", zoneID, models.ErrValidation)
	}
	zoneLat, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed zone id %q: %w", zoneID, models.ErrValidation)
	}
	zoneLon, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed zone id %q: %w", zoneID, models.ErrValidation)
	}
	return zoneLat, zoneLon, nil
}
