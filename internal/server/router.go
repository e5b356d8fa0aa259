package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/bucketd/internal/config"
)

type RouterConfig struct {
	HTTP           config.HTTPConfig
	BucketsHandler *BucketsHandler
	EventsHandler  *EventsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware("bucketd"))
	router.Use(maxBytesMiddleware(cfg.HTTP.MaxRequestBytes))

	if len(cfg.HTTP.AllowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.HTTP.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
			AllowCredentials: true,
		}))
	}

	router.GET("/healthcheck", HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/buckets", cfg.BucketsHandler.CreateBucket)
		api.GET("/buckets", cfg.BucketsHandler.ListBuckets)
		api.GET("/buckets/:name", cfg.BucketsHandler.GetBucket)
		api.DELETE("/buckets/:name", cfg.BucketsHandler.DeleteBucket)

		api.GET("/buckets/:name/keys/:key", cfg.BucketsHandler.GetKey)
		api.PUT("/buckets/:name/keys/:key", cfg.BucketsHandler.PutKey)
		api.DELETE("/buckets/:name/keys/:key", cfg.BucketsHandler.DeleteKey)

		api.GET("/events/stream", cfg.EventsHandler.Stream)
	}

	return router
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func maxBytesMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
