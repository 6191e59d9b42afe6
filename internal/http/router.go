// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, compression,
// CORS, and security headers.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Body limits scaled per route class: small for JSON, media-sized for
//     multipart uploads
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/hklets/go-rental-backend/docs" // generated Swagger spec
	"github.com/hklets/go-rental-backend/internal/config"
	"github.com/hklets/go-rental-backend/internal/domain"
	"github.com/hklets/go-rental-backend/internal/http/handlers"
	"github.com/hklets/go-rental-backend/internal/http/middleware"
	"github.com/hklets/go-rental-backend/internal/repo"
	"github.com/hklets/go-rental-backend/internal/services"
	"github.com/hklets/go-rental-backend/internal/storage"
)

// propRepoShim adapts the repository free functions to the
// services.PropertyRepo interface expected by the PropertyService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type propRepoShim struct{}

// Create proxies repo.CreateProperty.
func (propRepoShim) Create(ctx context.Context, db *gorm.DB, p *domain.Property) error {
	return repo.CreateProperty(ctx, db, p)
}

// Get proxies repo.GetProperty.
func (propRepoShim) Get(ctx context.Context, db *gorm.DB, id string) (*domain.Property, error) {
	return repo.GetProperty(ctx, db, id)
}

// List proxies repo.ListProperties.
func (propRepoShim) List(ctx context.Context, db *gorm.DB, q repo.PropertyQuery) ([]domain.Property, error) {
	return repo.ListProperties(ctx, db, q)
}

// ListByOwner proxies repo.ListPropertiesByOwner.
func (propRepoShim) ListByOwner(ctx context.Context, db *gorm.DB, ownerID string) ([]domain.Property, error) {
	return repo.ListPropertiesByOwner(ctx, db, ownerID)
}

// Save proxies repo.SaveProperty.
func (propRepoShim) Save(ctx context.Context, db *gorm.DB, p *domain.Property) error {
	return repo.SaveProperty(ctx, db, p)
}

// Delete proxies repo.DeleteProperty.
func (propRepoShim) Delete(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteProperty(ctx, db, id)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), compression, CORS
// and security headers, health and metrics endpoints, and then mounts the
// versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Structured request logging
//  4. Recovery: capture panics after logger
//  5. Metrics
//  6. Gzip response compression
//  7. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, store storage.Storage, resolver storage.Resolver, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured request logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 6) Response compression (presigned URL lists compress well)
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs (off in production unless explicitly enabled)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/storage
	propSvc := &services.PropertyService{
		DB:       db,
		Repo:     propRepoShim{},
		Resolver: resolver,
		Bucket:   cfg.S3.Bucket,
	}
	chatSvc := &services.ChatService{
		DB:              db,
		Resolver:        resolver,
		Bucket:          cfg.S3.Bucket,
		MaxContentRunes: 2000,
	}
	uploadSvc := &services.UploadService{
		Storage:       store,
		MaxImageBytes: cfg.Upload.MaxImageBytes,
		MaxVideoBytes: cfg.Upload.MaxVideoBytes,
	}
	h := handlers.New(propSvc, chatSvc, uploadSvc)

	auth := middleware.RequireAuth(cfg.JWTSecret)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Properties: reads are public, writes require a session
		api.GET("/properties", limitBody(1<<20), h.ListProperties)
		api.GET("/properties/:id", limitBody(1<<20), h.GetProperty)
		api.POST("/properties", limitBody(1<<20), auth, h.CreateProperty)
		api.PUT("/properties/:id", limitBody(1<<20), auth, h.UpdateProperty)
		api.DELETE("/properties/:id", limitBody(1<<20), auth, h.DeleteProperty)
		api.GET("/my-listings", limitBody(1<<20), auth, h.MyListings)

		// Chats (participants only; checks live in the service)
		api.GET("/chats", limitBody(1<<20), auth, h.ListChats)
		api.GET("/chats/property/:propertyId/start", limitBody(1<<20), auth, h.StartChat)
		api.GET("/chats/:id/messages", limitBody(1<<20), auth, h.ListMessages)
		api.POST("/chats/:id/messages", limitBody(1<<20), auth, h.SendMessage)

		// Uploads: body caps sized to the media ceilings plus multipart
		// framing overhead
		api.POST("/uploads/property-image",
			limitBody(cfg.Upload.MaxImageBytes+multipartOverhead), auth, h.UploadImage)
		api.POST("/uploads/virtual-tour-video",
			limitBody(cfg.Upload.MaxVideoBytes+multipartOverhead), auth, h.UploadVideo)
	}
}

// multipartOverhead covers boundary markers and part headers so a blob at
// exactly the ceiling still fits in the request body.
const multipartOverhead = 1 << 20

// limitBody returns a Gin middleware that caps the request body size for an
// endpoint to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
