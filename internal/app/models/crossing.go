package models

import (
	"time"

	"github.com/google/uuid"
)

// LocationPing is one GPS report from a client. Rows are append-only; only
// pings inside the co-location window are ever queried, old rows are purged by
// an external batch job.
type LocationPing struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	ZoneID    string    `json:"zone_id"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PingCandidate is another user's recent ping inside the searched zone set.
// The store may return several rows per user; callers dedupe by UserID.
type PingCandidate struct {
	UserID    uuid.UUID
	ZoneID    string
	Timestamp time.Time
}

// Crossing records two users having been in the same or adjacent zones within
// the co-location window. The pair is stored ordered (user1, user2) but is
// logically symmetric. Rows are never deleted by this service.
type Crossing struct {
	ID           uuid.UUID  `json:"id"`
	User1ID      uuid.UUID  `json:"user1_id"`
	User2ID      uuid.UUID  `json:"user2_id"`
	ZoneID       string     `json:"zone_id"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	LocationName *string    `json:"location_name,omitempty"`
	User1LookID  *uuid.UUID `json:"user1_look_id,omitempty"`
	User2LookID  *uuid.UUID `json:"user2_look_id,omitempty"`
	CrossedAt    time.Time  `json:"crossed_at"`
	User1Viewed  *time.Time `json:"user1_viewed,omitempty"`
	User2Viewed  *time.Time `json:"user2_viewed,omitempty"`
	LikesCount   int        `json:"likes_count"`
	ViewsCount   int        `json:"views_count"`
}

// Counterpart returns the other participant's id, or false when userID is not
// a participant at all.
func (c *Crossing) Counterpart(userID uuid.UUID) (uuid.UUID, bool) {
	switch userID {
	case c.User1ID:
		return c.User2ID, true
	case c.User2ID:
		return c.User1ID, true
	}
	return uuid.Nil, false
}

// CounterpartLookID returns the stored look reference for the other side.
func (c *Crossing) CounterpartLookID(userID uuid.UUID) *uuid.UUID {
	if userID == c.User1ID {
		return c.User2LookID
	}
	return c.User1LookID
}

// PingRequest is the body of POST /crossings/ping. Latitude and longitude are
// pointers so a coordinate of exactly 0 (equator, prime meridian) still passes
// the required-field binding.
type PingRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// PingResponse reports the caller's zone and how many crossings the ping
// produced. Clients re-query the listing endpoint for detail.
type PingResponse struct {
	PingSaved         bool   `json:"ping_saved"`
	Zone              string `json:"zone"`
	NewCrossingsCount int    `json:"new_crossings_count"`
}

// CrossingSummary is one row of GET /crossings: the counterpart and their
// eligible look, with privacy-degraded coordinates.
type CrossingSummary struct {
	ID                uuid.UUID  `json:"id"`
	CrossedAt         time.Time  `json:"crossed_at"`
	Latitude          float64    `json:"latitude"`
	Longitude         float64    `json:"longitude"`
	LocationName      *string    `json:"location_name,omitempty"`
	OtherUserID       uuid.UUID  `json:"other_user_id"`
	OtherUsername     string     `json:"other_username"`
	OtherAvatarURL    *string    `json:"other_avatar_url,omitempty"`
	OtherLookID       *uuid.UUID `json:"other_look_id,omitempty"`
	OtherLookPhotoURL *string    `json:"other_look_photo_url,omitempty"`
	OtherLookItems    []LookItem `json:"other_look_items"`
	LikesCount        int        `json:"likes_count"`
	ViewsCount        int        `json:"views_count"`
}

// CrossingDetail is the full view returned by GET /crossings/:id.
type CrossingDetail struct {
	Crossing  CrossingSummaryHeader `json:"crossing"`
	OtherUser *User                 `json:"other_user,omitempty"`
	OtherLook *Look                 `json:"other_look,omitempty"`
}

// CrossingSummaryHeader carries the crossing-level fields of a detail view.
type CrossingSummaryHeader struct {
	ID           uuid.UUID `json:"id"`
	CrossedAt    time.Time `json:"crossed_at"`
	ZoneID       string    `json:"zone_id"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	LocationName *string   `json:"location_name,omitempty"`
}

// CrossingStats backs GET /crossings/:id/stats.
type CrossingStats struct {
	LikesCount int  `json:"likes_count"`
	ViewsCount int  `json:"views_count"`
	UserLiked  bool `json:"user_liked"`
	UserSaved  bool `json:"user_saved"`
}

// ToggleResult is the outcome of a like/save toggle.
type ToggleResult struct {
	Active bool `json:"active"`
	Count  int  `json:"count"`
}
