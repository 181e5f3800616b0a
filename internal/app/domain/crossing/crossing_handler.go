package crossing

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-lookup/internal/app/middleware"
	"github.com/FACorreiaa/go-lookup/internal/app/models"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the crossings endpoints on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ping", h.Ping)
	rg.GET("", h.List)
	rg.GET("/:id", h.Detail)
	rg.POST("/:id/like", h.ToggleLike)
	rg.POST("/:id/save", h.ToggleSave)
	rg.GET("/:id/stats", h.Stats)
}

// Ping handles POST /crossings/ping.
func (h *Handler) Ping(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req models.PingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := h.service.RecordPing(c.Request.Context(), userID, req)
	if err != nil {
		h.respondError(c, err, "RecordPing")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List handles GET /crossings.
func (h *Handler) List(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	skip := parseIntQuery(c, "skip", 0, 0, 10_000)
	limit := parseIntQuery(c, "limit", 20, 1, 100)

	summaries, err := h.service.ListCrossings(c.Request.Context(), userID, skip, limit)
	if err != nil {
		h.respondError(c, err, "ListCrossings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"crossings": summaries, "skip": skip, "limit": limit})
}

// Detail handles GET /crossings/:id.
func (h *Handler) Detail(c *gin.Context) {
	userID, crossingID, ok := h.idParams(c)
	if !ok {
		return
	}

	detail, err := h.service.GetCrossingDetail(c.Request.Context(), userID, crossingID)
	if err != nil {
		h.respondError(c, err, "GetCrossingDetail")
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ToggleLike handles POST /crossings/:id/like.
func (h *Handler) ToggleLike(c *gin.Context) {
	userID, crossingID, ok := h.idParams(c)
	if !ok {
		return
	}

	result, err := h.service.ToggleLike(c.Request.Context(), userID, crossingID)
	if err != nil {
		h.respondError(c, err, "ToggleLike")
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": result.Active, "likes_count": result.Count})
}

// ToggleSave handles POST /crossings/:id/save.
func (h *Handler) ToggleSave(c *gin.Context) {
	userID, crossingID, ok := h.idParams(c)
	if !ok {
		return
	}

	result, err := h.service.ToggleSave(c.Request.Context(), userID, crossingID)
	if err != nil {
		h.respondError(c, err, "ToggleSave")
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": result.Active, "saved_count": result.Count})
}

// Stats handles GET /crossings/:id/stats.
func (h *Handler) Stats(c *gin.Context) {
	userID, crossingID, ok := h.idParams(c)
	if !ok {
		return
	}

	stats, err := h.service.GetStats(c.Request.Context(), userID, crossingID)
	if err != nil {
		h.respondError(c, err, "GetStats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) idParams(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID := middleware.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return uuid.Nil, uuid.Nil, false
	}

	crossingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid crossing id"})
		return uuid.Nil, uuid.Nil, false
	}
	return userID, crossingID, true
}

// respondError maps domain sentinels to status codes. Existence of crossings
// the caller may not see is never revealed: the service reports those as
// not-found and the handler keeps it that way.
func (h *Handler) respondError(c *gin.Context, err error, method string) {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	default:
		h.logger.Error("Unhandled crossing error",
			zap.String("method", method),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parseIntQuery(c *gin.Context, name string, def, min, max int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
