package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-lookup/internal/app/domain/crossing"
	"github.com/FACorreiaa/go-lookup/internal/app/domain/geocode"
	"github.com/FACorreiaa/go-lookup/internal/app/domain/location"
	"github.com/FACorreiaa/go-lookup/internal/app/domain/look"
	"github.com/FACorreiaa/go-lookup/internal/app/domain/social"
	"github.com/FACorreiaa/go-lookup/internal/app/middleware"
	"github.com/FACorreiaa/go-lookup/internal/pkg/config"
)

// AppHandlers bundles the HTTP handlers mounted on the router.
type AppHandlers struct {
	Crossings *crossing.Handler
}

// SetupDependencies wires repositories and services onto the pool.
func SetupDependencies(dbPool *pgxpool.Pool, cfg *config.Config, logger *zap.Logger) *AppHandlers {
	locationRepo := location.NewRepository(dbPool, logger)
	lookRepo := look.NewRepository(dbPool, logger)
	socialRepo := social.NewRepository(dbPool, logger)
	crossingRepo := crossing.NewRepository(dbPool, logger)
	geocoder := geocode.NewHTTPResolver(cfg.Geocode, logger)

	crossingService := crossing.NewService(
		crossingRepo,
		locationRepo,
		lookRepo,
		socialRepo,
		geocoder,
		cfg.Crossings,
		logger,
	)

	return &AppHandlers{
		Crossings: crossing.NewHandler(crossingService, logger),
	}
}

// Setup mounts all routes on the router.
func Setup(r *gin.Engine, dbPool *pgxpool.Pool, cfg *config.Config, logger *zap.Logger) {
	handlers := SetupDependencies(dbPool, cfg, logger)

	r.GET("/health", func(c *gin.Context) {
		if err := dbPool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg.JWT))

	handlers.Crossings.RegisterRoutes(api.Group("/crossings"))
}
