package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ListDocuments handles GET /api/documents?collection=
func (h *IngestHandler) ListDocuments(c *gin.Context) {
	collection := strings.TrimSpace(c.Query("collection"))
	if collection == "" {
		respondError(c, http.StatusBadRequest, "MISSING_COLLECTION", "collection query parameter is required")
		return
	}

	docs, err := h.ingest.ListSourceDocuments(c.Request.Context(), collection)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"documents": docs,
		"count":     len(docs),
	})
}

// GetDocument handles GET /api/documents/:id
func (h *IngestHandler) GetDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid document ID format")
		return
	}

	doc, err := h.ingest.GetSourceDocument(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, doc)
}

// DownloadDocument handles GET /api/documents/:id/content
func (h *IngestHandler) DownloadDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid document ID format")
		return
	}

	doc, reader, err := h.ingest.OpenSourceDocument(c.Request.Context(), id)
	if err != nil {
		h.logger.Warn("failed to open source document", zap.Stringer("id", id), zap.Error(err))
		respondServiceError(c, err)
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, doc.Size, doc.MimeType, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", doc.Filename),
	})
}
