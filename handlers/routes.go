package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger logs every request with zap once it completes
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("request failed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request rejected", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// RegisterRoutes mounts the API on r. Ingest routes require an API key when
// apiKeyHash is set.
func RegisterRoutes(r gin.IRouter, query *QueryHandler, ingest *IngestHandler, apiKeyHash string) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	api := r.Group("/api")
	{
		// Query endpoints
		api.POST("/ask", query.Ask)
		api.POST("/search", query.Search)
		api.GET("/citations/lookup", query.LookupCitation)
		api.GET("/citations/graph", query.CitationGraph)
		api.POST("/metadata/search", query.MetadataSearch)
		api.GET("/collections", query.Collections)
		api.GET("/statistics", query.Statistics)

		// Ingest endpoints
		write := api.Group("")
		if apiKeyHash != "" {
			write.Use(APIKeyAuth(apiKeyHash))
		}
		write.POST("/ingest", ingest.Ingest)
		write.POST("/ingest/batch", ingest.IngestBatch)
		api.GET("/jobs/:id", ingest.GetJob)

		// Archived source documents
		api.GET("/documents", ingest.ListDocuments)
		api.GET("/documents/:id", ingest.GetDocument)
		api.GET("/documents/:id/content", ingest.DownloadDocument)
	}
}
