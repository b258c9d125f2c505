package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"legalrag-backend/embedding"
	"legalrag-backend/metrics"
	"legalrag-backend/models"
	"legalrag-backend/vectorstore"
)

// DefaultK is the result count when a request does not set one
const DefaultK = 6

var ErrEmptyQuery = errors.New("query is empty")

// RoutePath names the strategy that produced a result
type RoutePath string

const (
	PathCaseNumber RoutePath = "case_number"
	PathEntity     RoutePath = "entity"
	PathSemantic   RoutePath = "semantic"
	PathEnsemble   RoutePath = "ensemble"
)

// RouteRequest is one retrieval request
type RouteRequest struct {
	Query              string
	Collections        []string
	K                  int
	AuthorityHierarchy bool
}

// RouteResult holds the ranked chunks and how they were found.
// Warnings name collections that were skipped.
type RouteResult struct {
	Path       RoutePath            `json:"path"`
	CaseNumber string               `json:"case_number,omitempty"`
	EntityName string               `json:"entity_name,omitempty"`
	Chunks     []models.ScoredChunk `json:"chunks"`
	Warnings   []string             `json:"warnings,omitempty"`
	Analysis   QueryAnalysis        `json:"analysis"`
}

// Router dispatches a question to exact case-number lookup, entity-name search or
// semantic search. It holds no per-call state and is safe for concurrent use.
type Router struct {
	store       vectorstore.Store
	embedder    embedding.Embedder
	analyzer    *Analyzer
	logger      *zap.Logger
	metrics     *metrics.Metrics
	parallelism int
}

// RouterOption is a functional option for Router
type RouterOption func(*Router)

// WithRouterLogger sets the logger
func WithRouterLogger(logger *zap.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithRouterMetrics sets the metrics sink
func WithRouterMetrics(m *metrics.Metrics) RouterOption {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithAnalyzer overrides the query analyzer
func WithAnalyzer(a *Analyzer) RouterOption {
	return func(r *Router) {
		r.analyzer = a
	}
}

// WithParallelism bounds concurrent per-collection searches
func WithParallelism(n int) RouterOption {
	return func(r *Router) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// NewRouter creates a router over store, embedding queries with embedder
func NewRouter(store vectorstore.Store, embedder embedding.Embedder, opts ...RouterOption) *Router {
	r := &Router{
		store:       store,
		embedder:    embedder,
		logger:      zap.NewNop(),
		parallelism: 4,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.analyzer == nil {
		r.analyzer = NewAnalyzer(nil)
	}
	return r
}

// Analyzer returns the query analyzer used by the router
func (r *Router) Analyzer() *Analyzer {
	return r.analyzer
}

// Route answers a request. A case-number token that matches stored chunks
// short-circuits everything else; otherwise a detected person name seeds a
// similarity search, and plain semantic search is the fallback.
func (r *Router) Route(ctx context.Context, req RouteRequest) (*RouteResult, error) {
	start := time.Now()
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	k := req.K
	if k <= 0 {
		k = DefaultK
	}

	collections := req.Collections
	if len(collections) == 0 {
		var err error
		collections, err = r.store.ListCollections(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing collections: %w", err)
		}
	}

	res := &RouteResult{Analysis: r.analyzer.Analyze(query)}
	defer func() {
		if res.Path != "" {
			r.metrics.RecordRoute(string(res.Path), time.Since(start).Seconds())
		}
	}()

	if cn := res.Analysis.CaseNumber; cn != "" {
		res.CaseNumber = cn
		chunks, warnings, err := r.searchCaseNumber(ctx, cn, collections, k)
		if err != nil {
			return nil, err
		}
		res.Warnings = append(res.Warnings, warnings...)
		if len(chunks) > 0 {
			res.Path = PathCaseNumber
			res.Chunks = chunks
			return res, nil
		}
		r.logger.Debug("case number matched no chunks, falling back", zap.String("case_number", cn))
	}

	if name := res.Analysis.EntityName; name != "" {
		res.EntityName = name
		chunks, warnings, err := r.searchSpread(ctx, name, collections, k)
		if err != nil {
			return nil, err
		}
		res.Warnings = append(res.Warnings, warnings...)
		if len(chunks) > 0 {
			res.Path = PathEntity
			res.Chunks = chunks
			return res, nil
		}
	}

	semanticQuery := res.Analysis.ExpandedQuery()
	var (
		chunks   []models.ScoredChunk
		warnings []string
		err      error
	)
	if req.AuthorityHierarchy && len(collections) > 1 {
		res.Path = PathEnsemble
		chunks, warnings, err = r.searchEnsemble(ctx, semanticQuery, collections, k)
	} else {
		res.Path = PathSemantic
		chunks, warnings, err = r.searchSpread(ctx, semanticQuery, collections, k)
	}
	if err != nil {
		return nil, err
	}
	res.Chunks = chunks
	res.Warnings = dedupeStrings(append(res.Warnings, warnings...))
	return res, nil
}

// warningCollector gathers skipped-collection messages from concurrent searches
type warningCollector struct {
	mu       sync.Mutex
	warnings []string
}

func (w *warningCollector) add(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warnings = append(w.warnings, msg)
}

func (w *warningCollector) sorted() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := append([]string(nil), w.warnings...)
	sort.Strings(out)
	return out
}

// skip logs and records a collection that could not be searched
func (r *Router) skip(wc *warningCollector, collection string, err error) {
	reason := "unavailable"
	if errors.Is(err, vectorstore.ErrCollectionNotFound) {
		reason = "not found"
	}
	r.logger.Warn("skipping collection",
		zap.String("collection", collection),
		zap.String("reason", reason),
		zap.Error(err))
	r.metrics.RecordSkippedCollection()
	wc.add(fmt.Sprintf("collection %s %s: skipped", collection, reason))
}

// perCollection runs fn for every collection with bounded concurrency. Failures
// become warnings; only context cancellation aborts.
func (r *Router) perCollection(ctx context.Context, collections []string, fn func(ctx context.Context, collection string) ([]models.ScoredChunk, error)) ([][]models.ScoredChunk, []string, error) {
	results := make([][]models.ScoredChunk, len(collections))
	wc := &warningCollector{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i, col := range collections {
		g.Go(func() error {
			chunks, err := fn(gctx, col)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				r.skip(wc, col, err)
				return nil
			}
			results[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return results, wc.sorted(), nil
}

func (r *Router) matchesCaseNumber(c models.Chunk, caseNumber string) bool {
	return strings.Contains(strings.ToUpper(c.Source()), caseNumber) ||
		strings.Contains(strings.ToUpper(c.CaseNumber()), caseNumber)
}

// searchCaseNumber finds chunks whose source filename or case number contains the
// token. Exact case-number matches come from the metadata pushdown when the store has
// one; a scan adds filename and partial matches, deduplicated by chunk ID.
func (r *Router) searchCaseNumber(ctx context.Context, caseNumber string, collections []string, k int) ([]models.ScoredChunk, []string, error) {
	searcher, pushdown := r.store.(vectorstore.MetadataSearcher)

	perCol, warnings, err := r.perCollection(ctx, collections, func(ctx context.Context, col string) ([]models.ScoredChunk, error) {
		var matched []models.Chunk
		seen := make(map[string]bool)
		if pushdown {
			found, err := searcher.FindByMetadata(ctx, col, models.MetaCaseNumber, caseNumber, 0)
			if err != nil {
				return nil, err
			}
			for _, c := range found {
				seen[c.ID] = true
				matched = append(matched, c)
			}
		}
		err := r.store.Scan(ctx, col, func(c models.Chunk) bool {
			if !seen[c.ID] && r.matchesCaseNumber(c, caseNumber) {
				seen[c.ID] = true
				matched = append(matched, c)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		out := make([]models.ScoredChunk, len(matched))
		for i, c := range matched {
			out[i] = models.ScoredChunk{Chunk: c, Score: 1}
		}
		return out, nil
	})
	if err != nil {
		return nil, nil, err
	}

	var all []models.ScoredChunk
	for _, chunks := range perCol {
		all = append(all, chunks...)
	}
	SortByPriority(all)
	if len(all) > k {
		all = all[:k]
	}
	return all, warnings, nil
}

// SortByPriority orders chunks by tier, then authority weight, then document position
func SortByPriority(chunks []models.ScoredChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		a, b := chunks[i].Chunk, chunks[j].Chunk
		if ra, rb := a.PriorityRank(), b.PriorityRank(); ra != rb {
			return ra < rb
		}
		if wa, wb := a.AuthorityWeight(), b.AuthorityWeight(); wa != wb {
			return wa > wb
		}
		if a.Source() != b.Source() {
			return a.Source() < b.Source()
		}
		return a.Index < b.Index
	})
}

func (r *Router) embedQuery(ctx context.Context, text string) ([]float32, error) {
	emb, err := r.embedder.EmbedQuery(ctx, text)
	r.metrics.RecordEmbedding(err)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return emb, nil
}

// searchSpread splits k evenly across collections, minimum one each, and
// concatenates in collection order capped at k
func (r *Router) searchSpread(ctx context.Context, text string, collections []string, k int) ([]models.ScoredChunk, []string, error) {
	if len(collections) == 0 {
		return nil, nil, nil
	}
	emb, err := r.embedQuery(ctx, text)
	if err != nil {
		return nil, nil, err
	}
	perK := max(1, k/len(collections))

	perCol, warnings, err := r.perCollection(ctx, collections, func(ctx context.Context, col string) ([]models.ScoredChunk, error) {
		return r.store.Search(ctx, col, emb, perK)
	})
	if err != nil {
		return nil, nil, err
	}

	var all []models.ScoredChunk
	for _, chunks := range perCol {
		all = append(all, chunks...)
	}
	if len(all) > k {
		all = all[:k]
	}
	return all, warnings, nil
}

// searchEnsemble retrieves k per collection and fuses the rankings with
// authority-derived collection weights
func (r *Router) searchEnsemble(ctx context.Context, text string, collections []string, k int) ([]models.ScoredChunk, []string, error) {
	emb, err := r.embedQuery(ctx, text)
	if err != nil {
		return nil, nil, err
	}
	perCol, warnings, err := r.perCollection(ctx, collections, func(ctx context.Context, col string) ([]models.ScoredChunk, error) {
		return r.store.Search(ctx, col, emb, k)
	})
	if err != nil {
		return nil, nil, err
	}

	fused := FuseRankings(perCol, NormalizedWeights(collections), RRFConstant)
	if len(fused) > k {
		fused = fused[:k]
	}
	return fused, warnings, nil
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
