package handlers

import (
	"errors"
	"net/http"
	"strings"

	"legalrag-backend/retrieval"
	"legalrag-backend/service"
	"legalrag-backend/vectorstore"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondServiceError maps service sentinel errors onto HTTP statuses
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, retrieval.ErrEmptyQuery):
		respondError(c, http.StatusBadRequest, "EMPTY_QUERY", err.Error())
	case errors.Is(err, vectorstore.ErrInvalidCollectionName):
		respondError(c, http.StatusBadRequest, "INVALID_COLLECTION", err.Error())
	case errors.Is(err, service.ErrEmptyDocument):
		respondError(c, http.StatusBadRequest, "EMPTY_DOCUMENT", err.Error())
	case errors.Is(err, service.ErrNoDocuments):
		respondError(c, http.StatusBadRequest, "NO_DOCUMENTS", err.Error())
	case errors.Is(err, service.ErrJobNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Ingestion job not found")
	case errors.Is(err, service.ErrDocumentNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Source document not found")
	case errors.Is(err, service.ErrArchiveNotConfigured):
		respondError(c, http.StatusServiceUnavailable, "ARCHIVE_UNAVAILABLE", err.Error())
	case errors.Is(err, service.ErrAnswererNotConfigured):
		respondError(c, http.StatusServiceUnavailable, "ANSWER_UNAVAILABLE", err.Error())
	case errors.Is(err, service.ErrGenerationFailed):
		respondError(c, http.StatusBadGateway, "GENERATION_FAILED", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// splitCollections parses a comma separated query parameter
func splitCollections(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
