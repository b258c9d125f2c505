package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"legalrag-backend/extraction"
	"legalrag-backend/models"
	"legalrag-backend/repository"
	"legalrag-backend/retrieval"
	"legalrag-backend/vectorstore"

	"go.uber.org/zap"
)

const (
	DefaultMetadataLimit = 50
	// DefaultMaxK caps k when QueryWithMaxK is not given
	DefaultMaxK = 50
)

var ErrAnswererNotConfigured = errors.New("answer generation is not configured")

// QueryRequest is a question against one or more collections
type QueryRequest struct {
	Question           string   `json:"question"`
	Collections        []string `json:"collections"`
	K                  int      `json:"k"`
	AuthorityHierarchy bool     `json:"authority_hierarchy"`
	IncludeAnswer      bool     `json:"include_answer"`
	ResolveCitations   bool     `json:"resolve_citations"`
	IncludeExcerpts    bool     `json:"include_excerpts"`
}

// Source is one distinct document behind a set of retrieved chunks
type Source struct {
	Collection         string  `json:"collection"`
	Filename           string  `json:"filename"`
	CaseNumber         string  `json:"case_number,omitempty"`
	DocumentType       string  `json:"document_type,omitempty"`
	AuthorityWeight    float64 `json:"authority_weight"`
	IsPrimaryAuthority bool    `json:"is_primary_authority"`
	Ruling             string  `json:"ruling,omitempty"`
}

// SearchResponse is the retrieval-only result of a question
type SearchResponse struct {
	Route      *retrieval.RouteResult `json:"route"`
	Sources    []Source               `json:"sources"`
	RulingNote string                 `json:"ruling_note"`
}

// AskResponse is a generated answer with its supporting sources
type AskResponse struct {
	Answer             string                  `json:"answer,omitempty"`
	QueryType          retrieval.QueryType     `json:"query_type"`
	Path               retrieval.RoutePath     `json:"path"`
	Sources            []Source                `json:"sources"`
	Citations          map[string]string       `json:"citations,omitempty"`
	Analysis           retrieval.QueryAnalysis `json:"query_analysis"`
	TotalSources       int                     `json:"total_sources"`
	PrimaryAuthorities int                     `json:"primary_authorities"`
	Warnings           []string                `json:"warnings,omitempty"`
	Chunks             []models.ScoredChunk    `json:"chunks,omitempty"`
	RulingNote         string                  `json:"ruling_note"`
}

// CitationLookup is the result of looking up one citation
type CitationLookup struct {
	Citation        string                `json:"citation"`
	Found           bool                  `json:"found"`
	Document        *retrieval.Resolution `json:"document,omitempty"`
	CitingDocuments []models.CitationEdge `json:"citing_documents,omitempty"`
}

// MetadataQuery filters case records. String filters are case-insensitive
// substring matches; empty filters match everything.
type MetadataQuery struct {
	Collections   []string   `json:"collections"`
	CaseNumber    string     `json:"case_number"`
	DocumentType  string     `json:"document_type"`
	Judge         string     `json:"judge"`
	Attorney      string     `json:"attorney"`
	Party         string     `json:"party"`
	Ruling        string     `json:"ruling"`
	Citation      string     `json:"citation"`
	ViolationType string     `json:"violation_type"`
	DateFrom      *time.Time `json:"date_from"`
	DateTo        *time.Time `json:"date_to"`
	Limit         int        `json:"limit"`
}

// Statistics summarizes the stored case records
type Statistics struct {
	TotalDocuments        int            `json:"total_documents"`
	Collections           map[string]int `json:"collections"`
	DocumentTypes         map[string]int `json:"document_types"`
	Rulings               map[string]int `json:"rulings"`
	ViolationTypes        map[string]int `json:"violation_types"`
	TotalStatutesCited    int            `json:"total_statutes_cited"`
	TotalRegulationsCited int            `json:"total_regulations_cited"`
	PrimaryAuthorities    int            `json:"primary_authorities"`
	RulingNote            string         `json:"ruling_note"`
}

// CollectionInfo names an index collection and how many documents it holds
type CollectionInfo struct {
	Name      string `json:"name"`
	Documents int    `json:"documents"`
}

// QueryService answers questions and metadata queries over the ingested corpus
type QueryService struct {
	router   *retrieval.Router
	resolver *retrieval.Resolver
	records  repository.CaseRecordStore
	store    vectorstore.Store
	answerer Answerer
	patterns *extraction.PatternLibrary
	defaultK int
	maxK     int
	logger   *zap.Logger
}

// QueryServiceOption is a functional option for QueryService
type QueryServiceOption func(*QueryService)

// QueryWithAnswerer enables answer generation
func QueryWithAnswerer(a Answerer) QueryServiceOption {
	return func(s *QueryService) {
		s.answerer = a
	}
}

// QueryWithPatterns sets the pattern library used to find citations in answers
func QueryWithPatterns(p *extraction.PatternLibrary) QueryServiceOption {
	return func(s *QueryService) {
		s.patterns = p
	}
}

// QueryWithDefaultK sets the number of chunks returned when a request leaves k unset
func QueryWithDefaultK(k int) QueryServiceOption {
	return func(s *QueryService) {
		if k > 0 {
			s.defaultK = k
		}
	}
}

// QueryWithMaxK caps the k a request may ask for
func QueryWithMaxK(k int) QueryServiceOption {
	return func(s *QueryService) {
		if k > 0 {
			s.maxK = k
		}
	}
}

// QueryWithLogger sets the logger
func QueryWithLogger(logger *zap.Logger) QueryServiceOption {
	return func(s *QueryService) {
		s.logger = logger
	}
}

// NewQueryService creates a query service
func NewQueryService(router *retrieval.Router, resolver *retrieval.Resolver, records repository.CaseRecordStore, store vectorstore.Store, opts ...QueryServiceOption) *QueryService {
	s := &QueryService{
		router:   router,
		resolver: resolver,
		records:  records,
		store:    store,
		maxK:     DefaultMaxK,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.patterns == nil {
		s.patterns = extraction.NewPatternLibrary()
	}
	return s
}

func (s *QueryService) route(req QueryRequest) retrieval.RouteRequest {
	k := req.K
	if k <= 0 {
		k = s.defaultK
	}
	k = min(k, s.maxK)
	return retrieval.RouteRequest{
		Query:              req.Question,
		Collections:        req.Collections,
		K:                  k,
		AuthorityHierarchy: req.AuthorityHierarchy,
	}
}

// Search routes the question and returns the ranked chunks without generating an answer
func (s *QueryService) Search(ctx context.Context, req QueryRequest) (*SearchResponse, error) {
	result, err := s.router.Route(ctx, s.route(req))
	if err != nil {
		return nil, err
	}
	return &SearchResponse{
		Route:      result,
		Sources:    SourcesOf(result.Chunks),
		RulingNote: models.RulingHeuristicNote,
	}, nil
}

// Ask routes the question, optionally generates an answer from the retrieved chunks,
// and optionally numbers the citations in the answer against the stored documents
func (s *QueryService) Ask(ctx context.Context, req QueryRequest) (*AskResponse, error) {
	result, err := s.router.Route(ctx, s.route(req))
	if err != nil {
		return nil, err
	}

	sources := SourcesOf(result.Chunks)
	resp := &AskResponse{
		QueryType:    result.Analysis.Type,
		Path:         result.Path,
		Sources:      sources,
		Analysis:     result.Analysis,
		TotalSources: len(sources),
		Warnings:     result.Warnings,
		Chunks:       result.Chunks,
		RulingNote:   models.RulingHeuristicNote,
	}
	for _, src := range sources {
		if src.IsPrimaryAuthority {
			resp.PrimaryAuthorities++
		}
	}

	if !req.IncludeAnswer {
		return resp, nil
	}
	if s.answerer == nil {
		return nil, ErrAnswererNotConfigured
	}
	answer, err := s.answerer.Answer(ctx, req.Question, result.Analysis, result.Chunks)
	if err != nil {
		return nil, err
	}

	if req.ResolveCitations && s.resolver != nil {
		resp.Citations = s.citationSources(ctx, answer, req.Collections)
		answer = s.resolver.EnhanceAnswer(ctx, answer, req.Collections, req.IncludeExcerpts)
	}
	resp.Answer = answer
	return resp, nil
}

// citationSources maps each citation in text to the document it resolves to
func (s *QueryService) citationSources(ctx context.Context, text string, collections []string) map[string]string {
	out := make(map[string]string)
	for _, c := range s.patterns.FindCitations(text) {
		res, err := s.resolver.Resolve(ctx, c, collections)
		if err != nil {
			if !errors.Is(err, retrieval.ErrCitationNotFound) {
				s.logger.Warn("citation resolution failed", zap.String("citation", c), zap.Error(err))
			}
			continue
		}
		out[res.Citation] = res.Source
	}
	return out
}

// SourcesOf lists the distinct documents behind chunks in first-seen order
func SourcesOf(chunks []models.ScoredChunk) []Source {
	seen := make(map[string]bool)
	var out []Source
	for _, c := range chunks {
		key := c.Collection + "\x00" + c.Source()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Source{
			Collection:         c.Collection,
			Filename:           c.Source(),
			CaseNumber:         c.CaseNumber(),
			DocumentType:       c.Metadata[models.MetaDocumentType],
			AuthorityWeight:    c.AuthorityWeight(),
			IsPrimaryAuthority: c.Metadata[models.MetaIsPrimaryAuthority] == "true",
			Ruling:             c.Metadata[models.MetaRuling],
		})
	}
	return out
}

// LookupCitation resolves a citation and optionally lists every document citing it
func (s *QueryService) LookupCitation(ctx context.Context, citation string, collections []string, includeCiting bool) (*CitationLookup, error) {
	out := &CitationLookup{Citation: extraction.NormalizeCitation(citation)}
	res, err := s.resolver.Resolve(ctx, citation, collections)
	switch {
	case errors.Is(err, retrieval.ErrCitationNotFound):
	case err != nil:
		return nil, err
	default:
		out.Found = true
		out.Document = res
	}
	if includeCiting {
		edges, err := s.resolver.FindCitingDocuments(ctx, citation, collections)
		if err != nil {
			return nil, err
		}
		out.CitingDocuments = edges
	}
	return out, nil
}

// CitationGraph maps each citing document to its citations
func (s *QueryService) CitationGraph(ctx context.Context, collections []string) (map[string][]string, error) {
	return s.resolver.CitationGraph(ctx, collections)
}

// MetadataSearch filters stored case records, highest authority first
func (s *QueryService) MetadataSearch(ctx context.Context, q MetadataQuery) ([]models.CaseRecord, error) {
	records, err := s.records.List(ctx, q.Collections)
	if err != nil {
		return nil, fmt.Errorf("listing case records: %w", err)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultMetadataLimit
	}
	citationKey := ""
	if q.Citation != "" {
		citationKey = extraction.CitationKey(extraction.NormalizeCitation(q.Citation))
	}

	var out []models.CaseRecord
	for i := range records {
		if q.matches(&records[i], citationKey) {
			out = append(out, records[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AuthorityWeight > out[j].AuthorityWeight
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func anyContainsFold(values []string, needle string) bool {
	for _, v := range values {
		if v != "" && containsFold(v, needle) {
			return true
		}
	}
	return false
}

func (q MetadataQuery) matches(rec *models.CaseRecord, citationKey string) bool {
	if q.CaseNumber != "" && !anyContainsFold([]string{rec.CaseNumber, rec.DocketNumber, rec.AgencyCaseNumber}, q.CaseNumber) {
		return false
	}
	if q.DocumentType != "" && !strings.EqualFold(string(rec.DocumentType), q.DocumentType) {
		return false
	}
	if q.Ruling != "" && !strings.EqualFold(string(rec.Ruling), q.Ruling) {
		return false
	}
	if q.Judge != "" && !containsFold(rec.Judge.Name, q.Judge) {
		return false
	}
	if q.Party != "" && !anyContainsFold([]string{rec.Petitioner.Name, rec.Respondent.Name, rec.OrganizationName, rec.ManagingAgent}, q.Party) {
		return false
	}
	if q.Attorney != "" {
		attorneys := append([]string{rec.PetitionerCounsel.Attorney, rec.RespondentCounsel.Attorney, rec.AssistantAttorneyGeneral}, rec.UnassignedAttorneys...)
		if !anyContainsFold(attorneys, q.Attorney) {
			return false
		}
	}
	if q.ViolationType != "" && !anyContainsFold(rec.ViolationTypes, q.ViolationType) {
		return false
	}
	if citationKey != "" && !citesKey(rec, citationKey) {
		return false
	}
	if q.DateFrom != nil || q.DateTo != nil {
		d := recordDate(rec)
		if d == nil {
			return false
		}
		if q.DateFrom != nil && d.Before(*q.DateFrom) {
			return false
		}
		if q.DateTo != nil && d.After(*q.DateTo) {
			return false
		}
	}
	return true
}

func citesKey(rec *models.CaseRecord, key string) bool {
	for _, c := range rec.Citations() {
		if extraction.CitationKey(c) == key {
			return true
		}
	}
	return false
}

// recordDate is the decision date, falling back to the hearing then filing date
func recordDate(rec *models.CaseRecord) *time.Time {
	switch {
	case rec.DecisionDate != nil:
		return rec.DecisionDate
	case rec.HearingDate != nil:
		return rec.HearingDate
	default:
		return rec.FilingDate
	}
}

// Statistics counts the stored case records of the given collections
func (s *QueryService) Statistics(ctx context.Context, collections []string) (*Statistics, error) {
	records, err := s.records.List(ctx, collections)
	if err != nil {
		return nil, fmt.Errorf("listing case records: %w", err)
	}
	stats := &Statistics{
		TotalDocuments: len(records),
		Collections:    make(map[string]int),
		DocumentTypes:  make(map[string]int),
		Rulings:        make(map[string]int),
		ViolationTypes: make(map[string]int),
		RulingNote:     models.RulingHeuristicNote,
	}
	for i := range records {
		rec := &records[i]
		stats.Collections[rec.Collection]++
		stats.DocumentTypes[string(rec.DocumentType)]++
		stats.Rulings[string(rec.Ruling)]++
		for _, vt := range rec.ViolationTypes {
			stats.ViolationTypes[vt]++
		}
		stats.TotalStatutesCited += len(rec.Violations.Get(models.ViolationStatute))
		stats.TotalRegulationsCited += len(rec.Violations.Get(models.ViolationRegulation))
		if rec.IsPrimaryAuthority {
			stats.PrimaryAuthorities++
		}
	}
	return stats, nil
}

// Collections lists the index collections with their stored document counts
func (s *QueryService) Collections(ctx context.Context) ([]CollectionInfo, error) {
	names, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	records, err := s.records.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("listing case records: %w", err)
	}
	counts := make(map[string]int)
	for i := range records {
		counts[records[i].Collection]++
	}
	sort.Strings(names)
	out := make([]CollectionInfo, 0, len(names))
	for _, name := range names {
		out = append(out, CollectionInfo{Name: name, Documents: counts[name]})
	}
	return out, nil
}
