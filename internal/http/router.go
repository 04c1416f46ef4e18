// Package httpapi wires the Gin transport for the registration surface:
// middleware stack, health and metrics endpoints, and the versioned public
// API. All dependencies (database handle, config) are injected by the caller.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/docsanddecks/attendance-bot/internal/config"
	"github.com/docsanddecks/attendance-bot/internal/domain"
	"github.com/docsanddecks/attendance-bot/internal/http/handlers"
	"github.com/docsanddecks/attendance-bot/internal/http/middleware"
	"github.com/docsanddecks/attendance-bot/internal/repo"
	"github.com/docsanddecks/attendance-bot/internal/services"
)

// registrationRepoShim satisfies services.RegistrationRepo with the repo
// package's free functions, so the service stays decoupled from the concrete
// storage layer.
type registrationRepoShim struct{}

func (registrationRepoShim) AppendRegistration(ctx context.Context, db *gorm.DB, sheet string, form map[string]string, now time.Time) (int, error) {
	return repo.AppendRegistration(ctx, db, sheet, form, now)
}

func (registrationRepoShim) ValueExists(ctx context.Context, db *gorm.DB, sheet, column, value string) (bool, error) {
	return repo.ValueExists(ctx, db, sheet, column, value)
}

func (registrationRepoShim) GetIdempotency(ctx context.Context, db *gorm.DB, sheet, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, db, sheet, key, now)
}

func (registrationRepoShim) CreateIdempotency(ctx context.Context, db *gorm.DB, sheet, key string, rowIndex, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, db, sheet, key, rowIndex, status, ttl)
}

// RegisterRoutes attaches the full middleware stack and every HTTP endpoint
// to the engine. Ordering constraints: tracing and request-id run before the
// logger so log lines carry the correlation id; recovery runs after the
// logger so panics are still logged; the idempotency validator runs before
// the rate limiter because a detected replay must bypass it.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())

	// Registration traffic carries applicant PII, so the access logger
	// scrubs queries and headers rather than logging them raw.
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	r.Use(middleware.Recovery())

	// Sign-up payloads are small; cap bodies at 1 MiB.
	r.Use(limitBody(1 << 20))

	// Compress responses; the Prometheus handler negotiates its own encoding.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Replays of an already-recorded submit skip the rate limiter; the
	// lookup consults the idempotency records of the registration sheet.
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, cfg.Sheets.Registration, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	r.Use(rl.Handler())

	installCORS(r, cfg.CORS.AllowedOrigins)

	// HSTS is only emitted when enabled and the request arrived over HTTPS.
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	regSvc := &services.RegistrationService{
		DB:             db,
		Repo:           registrationRepoShim{},
		Sheet:          cfg.Sheets.Registration,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}
	h := handlers.New(regSvc)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/registrations", h.SubmitRegistration)
		api.GET("/registrations/exists", h.RegistrationExists)
	}
}

// installCORS configures the cross-origin posture. With no configured
// allowlist the API is open (Access-Control-Allow-Origin: *, forced even on
// requests without an Origin header); otherwise gin-contrib/cors enforces
// the allowlist and allowlisted origins are echoed back with Vary: Origin.
func installCORS(r *gin.Engine, origins []string) {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
		AllowCredentials: false, // must remain false when all origins are allowed
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		base.AllowAllOrigins = true
		r.Use(cors.New(base))
		return
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	})
	base.AllowOrigins = origins
	r.Use(cors.New(base))
}

// limitBody caps request body reads at maxBytes via http.MaxBytesReader;
// handlers reading past the cap get an error from the body.
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
