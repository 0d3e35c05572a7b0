package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sgunnelsporter/VirtualTourist/internal/api/handlers"
	"github.com/sgunnelsporter/VirtualTourist/internal/api/ws"
	"github.com/sgunnelsporter/VirtualTourist/internal/auth"
	"github.com/sgunnelsporter/VirtualTourist/internal/projection"
	"github.com/sgunnelsporter/VirtualTourist/internal/storage"
)

type RouterConfig struct {
	APIKey   string
	Store    storage.Store
	Commands handlers.CommandPublisher
	Registry *projection.Registry
	Hub      *ws.Hub

	// Readiness probes; nil entries are skipped.
	DB      handlers.Pinger
	Objects handlers.Pinger
	Queue   handlers.Pinger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.Objects, cfg.Queue)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Pins
	pinH := handlers.NewPinHandler(cfg.Store, cfg.Commands, cfg.Registry)
	v1.POST("/pins", pinH.Create)
	v1.GET("/pins", pinH.List)
	v1.GET("/pins/:id", pinH.Get)
	v1.DELETE("/pins/:id", pinH.Delete)

	// Photos
	photoH := handlers.NewPhotoHandler(cfg.Store, cfg.Commands, cfg.Registry)
	v1.GET("/pins/:id/photos", photoH.ListForPin)
	v1.POST("/pins/:id/photos/refresh", photoH.Refresh)
	v1.DELETE("/photos/:id", photoH.Delete)
	v1.GET("/photos/:id/image", photoH.Image)

	return r
}
