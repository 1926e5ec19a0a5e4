package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/intelliemail/intelliemail/internal/dbpool"
	"github.com/intelliemail/intelliemail/internal/middleware"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log                 *logrus.Logger
	Pool                *dbpool.Pool
	Engine              SearchService
	Backfill            BackfillService
	Reindex             ReindexService
	Embedder            EmbeddingStatus
	CORSOrigins         []string
	Version             string
	EmbeddingDimensions int
	BackfillBatchSize   int
}

// maxBodySize limits request bodies; the API only carries small JSON payloads.
const maxBodySize = 1 << 20 // 1 MB

// NewRouter creates and configures the Gin engine with all middleware and
// routes.
func NewRouter(deps *RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", OwnerIDHeader},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.Prometheus())

	health := NewHealthHandler(deps.Pool, deps.Embedder, deps.Version, deps.EmbeddingDimensions)
	search := NewSearchHandler(deps.Engine, deps.Log)
	backfill := NewBackfillHandler(deps.Backfill, deps.Reindex, deps.Log, deps.BackfillBatchSize)

	r.GET("/health", health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/search", search.Search)
		apiGroup.GET("/entities/:type/:id/similar", search.Similar)
		apiGroup.POST("/entities/:type/:id/reindex", backfill.Reindex)
		apiGroup.POST("/backfill", backfill.Run)
	}

	return r
}

// ginLogger logs each request with its request ID at debug level.
func ginLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.WithFields(logrus.Fields{
			"request_id": c.GetString(middleware.RequestIDKey),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start),
		}).Debug("http request")
	}
}
