package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/FACorreiaa/tripflow/internal/app/domain/itineraries"
	"github.com/FACorreiaa/tripflow/internal/app/domain/planner"
	"github.com/FACorreiaa/tripflow/internal/app/llm"
	"github.com/FACorreiaa/tripflow/internal/app/middleware"
	"github.com/FACorreiaa/tripflow/internal/pkg/config"
)

type AppHandlers struct {
	Itineraries *itineraries.HandlerImpl
	Planner     *planner.HandlerImpl
}

// Setup wires repositories and handlers and registers every route.
func Setup(r *gin.Engine, dbPool *pgxpool.Pool, client llm.Client, cfg *config.Config, log *zap.Logger) {
	handlers := setupDependencies(dbPool, client, cfg, log)
	setupRouter(r, handlers, cfg, log)
}

func setupDependencies(dbPool *pgxpool.Pool, client llm.Client, cfg *config.Config, log *zap.Logger) *AppHandlers {
	itineraryRepo := itineraries.NewRepositoryImpl(dbPool, log)

	return &AppHandlers{
		Itineraries: itineraries.NewHandlerImpl(itineraryRepo, log),
		Planner:     planner.NewHandlerImpl(client, itineraryRepo, cfg.Relay, log),
	}
}

func setupRouter(r *gin.Engine, h *AppHandlers, cfg *config.Config, log *zap.Logger) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	jwtConfig := middleware.JWTConfig{
		SecretKey:       cfg.Auth.JWTSecret,
		TokenExpiration: 24 * time.Hour,
		Logger:          log,
	}

	api := r.Group("/api")
	{
		// Generation is open to anonymous users; nothing is persisted
		// until they save.
		api.POST("/itineraries/generate", h.Planner.GenerateItinerary)

		protected := api.Group("/itineraries")
		protected.Use(middleware.JWTAuthMiddleware(jwtConfig))
		{
			protected.POST("/save", h.Itineraries.SaveItinerary)
			protected.GET("/:id", h.Itineraries.GetItinerary)
			protected.PUT("/:id", h.Itineraries.UpdateItinerary)
			protected.POST("/:id/chat", h.Planner.ItineraryChat)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		log.Info("404 - Route not found",
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.String("ip", c.ClientIP()),
		)
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}
