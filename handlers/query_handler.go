package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"legalrag-backend/models"
	"legalrag-backend/service"

	"github.com/gin-gonic/gin"
)

// QueryHandler handles HTTP requests for questions, citations and metadata
type QueryHandler struct {
	query *service.QueryService
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(query *service.QueryService) *QueryHandler {
	return &QueryHandler{query: query}
}

// AskRequest represents the request body for asking or searching
type AskRequest struct {
	Question           string   `json:"question" binding:"required"`
	Collections        []string `json:"collections"`
	K                  int      `json:"k"`
	AuthorityHierarchy *bool    `json:"authority_hierarchy"`
	IncludeAnswer      *bool    `json:"include_answer"`
	ResolveCitations   *bool    `json:"resolve_citations"`
	IncludeExcerpts    bool     `json:"include_excerpts"`
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func (r AskRequest) toService() service.QueryRequest {
	return service.QueryRequest{
		Question:           r.Question,
		Collections:        r.Collections,
		K:                  r.K,
		AuthorityHierarchy: boolOr(r.AuthorityHierarchy, true),
		IncludeAnswer:      boolOr(r.IncludeAnswer, true),
		ResolveCitations:   boolOr(r.ResolveCitations, true),
		IncludeExcerpts:    r.IncludeExcerpts,
	}
}

// Ask handles POST /api/ask
func (h *QueryHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.K < 0 {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "k must not be negative")
		return
	}

	result, err := h.query.Ask(c.Request.Context(), req.toService())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, result)
}

// Search handles POST /api/search
func (h *QueryHandler) Search(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.K < 0 {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "k must not be negative")
		return
	}

	result, err := h.query.Search(c.Request.Context(), req.toService())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, result)
}

// LookupCitation handles GET /api/citations/lookup
func (h *QueryHandler) LookupCitation(c *gin.Context) {
	citation := strings.TrimSpace(c.Query("citation"))
	if citation == "" {
		respondError(c, http.StatusBadRequest, "MISSING_CITATION", "citation query parameter is required")
		return
	}
	citing, _ := strconv.ParseBool(c.DefaultQuery("citing", "true"))

	result, err := h.query.LookupCitation(c.Request.Context(), citation, splitCollections(c.Query("collections")), citing)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, result)
}

// CitationGraph handles GET /api/citations/graph
func (h *QueryHandler) CitationGraph(c *gin.Context) {
	graph, err := h.query.CitationGraph(c.Request.Context(), splitCollections(c.Query("collections")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"graph":     graph,
		"documents": len(graph),
	})
}

// MetadataSearch handles POST /api/metadata/search
func (h *QueryHandler) MetadataSearch(c *gin.Context) {
	var req service.MetadataQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.DateFrom != nil && req.DateTo != nil && req.DateTo.Before(*req.DateFrom) {
		respondError(c, http.StatusBadRequest, "INVALID_DATE_RANGE", "date_to is before date_from")
		return
	}

	records, err := h.query.MetadataSearch(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"results":     records,
		"count":       len(records),
		"ruling_note": models.RulingHeuristicNote,
	})
}

// Collections handles GET /api/collections
func (h *QueryHandler) Collections(c *gin.Context) {
	collections, err := h.query.Collections(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, collections)
}

// Statistics handles GET /api/statistics
func (h *QueryHandler) Statistics(c *gin.Context) {
	stats, err := h.query.Statistics(c.Request.Context(), splitCollections(c.Query("collections")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, stats)
}
