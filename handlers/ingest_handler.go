package handlers

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"legalrag-backend/service"
	"legalrag-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultMaxUploadBytes = 10 * 1024 * 1024

// IngestHandler handles HTTP requests that add documents to the index
type IngestHandler struct {
	ingest         *service.IngestService
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(ingest *service.IngestService, maxUploadBytes int64, logger *zap.Logger) *IngestHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestHandler{
		ingest:         ingest,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// IngestRequest represents the JSON body for ingesting one document
type IngestRequest struct {
	Collection string `json:"collection" binding:"required"`
	Filename   string `json:"filename" binding:"required"`
	Text       string `json:"text"`
}

// BatchIngestRequest represents the JSON body for a batch ingestion job
type BatchIngestRequest struct {
	Collection string             `json:"collection" binding:"required"`
	Documents  []service.Document `json:"documents"`
}

// Ingest handles POST /api/ingest with either a JSON body or a multipart text upload
func (h *IngestHandler) Ingest(c *gin.Context) {
	var (
		collection string
		doc        service.Document
		ok         bool
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		collection, doc, ok = h.readUpload(c)
	} else {
		collection, doc, ok = h.readJSON(c)
	}
	if !ok {
		return
	}

	result, err := h.ingest.IngestDocument(c.Request.Context(), collection, doc)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	status := http.StatusCreated
	if result.Status == service.StatusSkipped {
		status = http.StatusOK
	}
	respondData(c, status, result)
}

func (h *IngestHandler) readJSON(c *gin.Context) (string, service.Document, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return "", service.Document{}, false
	}
	return req.Collection, service.Document{Filename: req.Filename, Text: req.Text}, true
}

func (h *IngestHandler) readUpload(c *gin.Context) (string, service.Document, bool) {
	collection := c.PostForm("collection")
	if collection == "" {
		respondError(c, http.StatusBadRequest, "MISSING_COLLECTION", "collection is required")
		return "", service.Document{}, false
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "File is required")
		return "", service.Document{}, false
	}
	if fileHeader.Size > h.maxUploadBytes {
		respondError(c, http.StatusBadRequest, "FILE_TOO_LARGE",
			fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxUploadBytes))
		return "", service.Document{}, false
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = parsed
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = storage.ContentTypeFor(fileHeader.Filename)
	}
	if !strings.HasPrefix(mimeType, "text/") || !service.IsTextFile(fileHeader.Filename) {
		respondError(c, http.StatusBadRequest, "INVALID_FILE_TYPE",
			"File type not allowed. Upload converted text: TXT, TEXT, MD")
		return "", service.Document{}, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_OPEN_ERROR", err.Error())
		return "", service.Document{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_READ_ERROR", err.Error())
		return "", service.Document{}, false
	}
	if !utf8.Valid(data) {
		respondError(c, http.StatusBadRequest, "INVALID_ENCODING", "File must be UTF-8 text")
		return "", service.Document{}, false
	}
	return collection, service.Document{Filename: fileHeader.Filename, Text: string(data)}, true
}

// IngestBatch handles POST /api/ingest/batch. It creates a job and returns
// immediately; documents are ingested in the background.
func (h *IngestHandler) IngestBatch(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	var req BatchIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	job, err := h.ingest.StartBatchJob(c.Request.Context(), req.Collection, req.Documents)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// the request context ends with the response
	go func(jobID uuid.UUID, docs []service.Document) {
		if err := h.ingest.ProcessBatchJob(context.Background(), jobID, docs); err != nil {
			h.logger.Error("batch ingestion job failed",
				zap.String("job_id", jobID.String()),
				zap.Error(err))
		}
	}(job.ID, req.Documents)

	respondData(c, http.StatusAccepted, gin.H{
		"job_id":    job.ID,
		"status":    job.Status,
		"documents": len(req.Documents),
	})
}

// GetJob handles GET /api/jobs/:id
func (h *IngestHandler) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid job ID format")
		return
	}

	job, err := h.ingest.GetJob(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, job)
}
