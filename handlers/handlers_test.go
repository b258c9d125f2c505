package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"legalrag-backend/embedding"
	"legalrag-backend/models"
	"legalrag-backend/repository"
	"legalrag-backend/retrieval"
	"legalrag-backend/service"
	"legalrag-backend/vectorstore"
)

const sampleDecision = `OFFICE OF ADMINISTRATIVE HEARINGS
Case No. 24F-H036-REL

John Doe,
Petitioner,
v.
Sunset Hills Homeowners Association,
Respondent.

The hearing was held on March 5, 2024 before Jane A. Smith, Administrative Law Judge.

FINDINGS OF FACT

1. Respondent failed to comply with A.R.S. § 32-2153.

ORDER

IT IS ORDERED that Respondent shall pay a civil penalty of $500.00.

Dated this 1st day of April, 2024.
`

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T, apiKeyHash string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	emb := embedding.NewHashingEmbedder(64)
	store := vectorstore.NewMemoryStore(64)
	records := repository.NewMemoryCaseRecordStore()
	resolver, err := retrieval.NewResolver(records, store, emb)
	require.NoError(t, err)

	ingest := service.NewIngestService(emb, store, records,
		service.IngestWithJobStore(repository.NewMemoryJobStore()),
		service.IngestWithOnIngested(resolver.Purge))
	query := service.NewQueryService(retrieval.NewRouter(store, emb), resolver, records, store)

	r := gin.New()
	RegisterRoutes(r, NewQueryHandler(query), NewIngestHandler(ingest, 1024*1024, nil), apiKeyHash)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func ingestSample(t *testing.T, r http.Handler) {
	t.Helper()
	w, _ := doJSON(t, r, http.MethodPost, "/api/ingest", IngestRequest{
		Collection: "adre",
		Filename:   "24F-H036-REL.txt",
		Text:       sampleDecision,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestHealth(t *testing.T) {
	r := newTestServer(t, "")
	w, _ := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestIngest_JSON(t *testing.T) {
	r := newTestServer(t, "")

	w, env := doJSON(t, r, http.MethodPost, "/api/ingest", IngestRequest{Collection: "adre", Filename: "a.txt", Text: sampleDecision})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)
	var first service.IngestResult
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.Equal(t, service.StatusProcessed, first.Status)
	require.NotNil(t, first.Record)
	assert.Equal(t, "24F-H036-REL", first.Record.CaseNumber)

	w, env = doJSON(t, r, http.MethodPost, "/api/ingest", IngestRequest{Collection: "adre", Filename: "a.txt", Text: sampleDecision})
	require.Equal(t, http.StatusOK, w.Code)
	var second service.IngestResult
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.Equal(t, service.StatusSkipped, second.Status)
}

func TestIngest_Rejects(t *testing.T) {
	r := newTestServer(t, "")

	tests := []struct {
		name     string
		body     any
		wantCode int
		wantErr  string
	}{
		{name: "missing collection", body: gin.H{"filename": "a.txt", "text": "x"}, wantCode: http.StatusBadRequest, wantErr: "INVALID_REQUEST"},
		{name: "empty text", body: IngestRequest{Collection: "adre", Filename: "a.txt"}, wantCode: http.StatusBadRequest, wantErr: "EMPTY_DOCUMENT"},
		{name: "bad collection", body: IngestRequest{Collection: "a/b", Filename: "a.txt", Text: "x"}, wantCode: http.StatusBadRequest, wantErr: "INVALID_COLLECTION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := doJSON(t, r, http.MethodPost, "/api/ingest", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantErr, env.Error.Code)
		})
	}
}

func multipartRequest(t *testing.T, collection, filename, contentType, body string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if collection != "" {
		require.NoError(t, mw.WriteField("collection", collection))
	}
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	header["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestIngest_Upload(t *testing.T) {
	r := newTestServer(t, "")

	tests := []struct {
		name        string
		collection  string
		filename    string
		contentType string
		body        string
		wantCode    int
		wantErr     string
	}{
		{name: "text file", collection: "adre", filename: "24F-H036-REL.txt", contentType: "text/plain; charset=utf-8", body: sampleDecision, wantCode: http.StatusCreated},
		{name: "octet stream markdown", collection: "adre", filename: "notes.md", contentType: "application/octet-stream", body: "# Notes\nSome text.", wantCode: http.StatusCreated},
		{name: "pdf", collection: "adre", filename: "decision.pdf", contentType: "application/pdf", body: "%PDF-1.4", wantCode: http.StatusBadRequest, wantErr: "INVALID_FILE_TYPE"},
		{name: "missing collection", filename: "a.txt", contentType: "text/plain", body: "x", wantCode: http.StatusBadRequest, wantErr: "MISSING_COLLECTION"},
		{name: "invalid utf-8", collection: "adre", filename: "bad.txt", contentType: "text/plain", body: "\xff\xfe", wantCode: http.StatusBadRequest, wantErr: "INVALID_ENCODING"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, multipartRequest(t, tt.collection, tt.filename, tt.contentType, tt.body))
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantErr != "" {
				var env envelope
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
				assert.Equal(t, tt.wantErr, env.Error.Code)
			}
		})
	}
}

func TestIngest_APIKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	r := newTestServer(t, string(hash))
	body := IngestRequest{Collection: "adre", Filename: "a.txt", Text: sampleDecision}

	w, env := doJSON(t, r, http.MethodPost, "/api/ingest", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "MISSING_API_KEY", env.Error.Code)

	w, env = doJSON(t, r, http.MethodPost, "/api/ingest", body, APIKeyHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_API_KEY", env.Error.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/ingest", body, "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusCreated, w.Code)

	// reads stay open
	w, _ = doJSON(t, r, http.MethodGet, "/api/statistics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIngestBatch_Job(t *testing.T) {
	r := newTestServer(t, "")

	w, env := doJSON(t, r, http.MethodPost, "/api/ingest/batch", BatchIngestRequest{
		Collection: "adre",
		Documents: []service.Document{
			{Filename: "a.txt", Text: sampleDecision},
			{Filename: "empty.txt", Text: ""},
		},
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var accepted struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &accepted))
	require.NotEmpty(t, accepted.JobID)

	var job models.IngestionJob
	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+accepted.JobID, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		var env envelope
		if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &env) != nil {
			return false
		}
		return json.Unmarshal(env.Data, &job) == nil && job.Status == models.JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	require.NotNil(t, job.Report)
	assert.Equal(t, 1, job.Report.Processed)
	assert.Equal(t, 1, job.Report.Failed)

	w, env = doJSON(t, r, http.MethodPost, "/api/ingest/batch", BatchIngestRequest{Collection: "adre"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NO_DOCUMENTS", env.Error.Code)
}

func TestGetJob_Errors(t *testing.T) {
	r := newTestServer(t, "")

	w, env := doJSON(t, r, http.MethodGet, "/api/jobs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", env.Error.Code)

	w, env = doJSON(t, r, http.MethodGet, "/api/jobs/3f1c1c8e-8a4f-4b35-9f0e-8c7b1f0e2a11", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestAskAndSearch(t *testing.T) {
	r := newTestServer(t, "")
	ingestSample(t, r)

	t.Run("ask without a generator", func(t *testing.T) {
		w, env := doJSON(t, r, http.MethodPost, "/api/ask", gin.H{"question": "What happened in case 24F-H036-REL?"})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "ANSWER_UNAVAILABLE", env.Error.Code)
	})

	t.Run("ask retrieval only", func(t *testing.T) {
		w, env := doJSON(t, r, http.MethodPost, "/api/ask", gin.H{"question": "What happened in case 24F-H036-REL?", "include_answer": false})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp service.AskResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, retrieval.PathCaseNumber, resp.Path)
		assert.Equal(t, 1, resp.TotalSources)
		assert.Equal(t, models.RulingHeuristicNote, resp.RulingNote)
	})

	t.Run("search", func(t *testing.T) {
		w, env := doJSON(t, r, http.MethodPost, "/api/search", gin.H{"question": "civil penalty", "collections": []string{"adre"}, "k": 2})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp service.SearchResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.NotEmpty(t, resp.Route.Chunks)
		assert.LessOrEqual(t, len(resp.Route.Chunks), 2)
	})

	tests := []struct {
		name    string
		body    any
		wantErr string
	}{
		{name: "missing question", body: gin.H{}, wantErr: "INVALID_REQUEST"},
		{name: "blank question", body: gin.H{"question": "   "}, wantErr: "EMPTY_QUERY"},
		{name: "negative k", body: gin.H{"question": "q", "k": -1}, wantErr: "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := doJSON(t, r, http.MethodPost, "/api/search", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantErr, env.Error.Code)
		})
	}
}

func TestCitations(t *testing.T) {
	r := newTestServer(t, "")
	ingestSample(t, r)

	w, env := doJSON(t, r, http.MethodGet, "/api/citations/lookup?citation=A.R.S.%20%C2%A732-2153&collections=adre", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var lookup service.CitationLookup
	require.NoError(t, json.Unmarshal(env.Data, &lookup))
	assert.True(t, lookup.Found)
	assert.Equal(t, "A.R.S. § 32-2153", lookup.Citation)
	assert.Len(t, lookup.CitingDocuments, 1)

	w, env = doJSON(t, r, http.MethodGet, "/api/citations/lookup", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_CITATION", env.Error.Code)

	w, env = doJSON(t, r, http.MethodGet, "/api/citations/graph", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var graph struct {
		Graph     map[string][]string `json:"graph"`
		Documents int                 `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &graph))
	assert.Equal(t, 1, graph.Documents)
	assert.Equal(t, []string{"A.R.S. § 32-2153"}, graph.Graph["adre:24F-H036-REL.txt"])
}

func TestMetadataStatisticsCollections(t *testing.T) {
	r := newTestServer(t, "")
	ingestSample(t, r)

	w, env := doJSON(t, r, http.MethodPost, "/api/metadata/search", gin.H{"judge": "smith"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var search struct {
		Results []models.CaseRecord `json:"results"`
		Count   int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &search))
	assert.Equal(t, 1, search.Count)
	assert.Equal(t, "24F-H036-REL", search.Results[0].CaseNumber)

	w, env = doJSON(t, r, http.MethodPost, "/api/metadata/search", gin.H{
		"date_from": "2024-05-01T00:00:00Z",
		"date_to":   "2024-01-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_DATE_RANGE", env.Error.Code)

	w, env = doJSON(t, r, http.MethodGet, "/api/statistics?collections=adre", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats service.Statistics
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 1, stats.TotalDocuments)

	w, env = doJSON(t, r, http.MethodGet, "/api/collections", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cols []service.CollectionInfo
	require.NoError(t, json.Unmarshal(env.Data, &cols))
	assert.Equal(t, []service.CollectionInfo{{Name: "adre", Documents: 1}}, cols)
}

func TestSplitCollections(t *testing.T) {
	assert.Nil(t, splitCollections(""))
	assert.Equal(t, []string{"adre", "oah"}, splitCollections(" adre, ,oah "))
}
