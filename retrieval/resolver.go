package retrieval

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"legalrag-backend/embedding"
	"legalrag-backend/extraction"
	"legalrag-backend/metrics"
	"legalrag-backend/models"
	"legalrag-backend/repository"
	"legalrag-backend/vectorstore"
)

var ErrCitationNotFound = errors.New("citation not found")

// Resolution methods
const (
	MethodExact      = "exact"
	MethodSimilarity = "similarity"
)

const (
	DefaultCacheSize    = 1024
	DefaultExcerptChars = 200
)

// Resolution is the document a citation resolved to
type Resolution struct {
	Citation        string              `json:"citation"`
	Method          string              `json:"method"`
	Collection      string              `json:"collection"`
	Source          string              `json:"source"`
	CaseNumber      string              `json:"case_number,omitempty"`
	DocumentType    models.DocumentType `json:"document_type,omitempty"`
	AuthorityWeight float64             `json:"authority_weight"`
	ContentHash     string              `json:"content_hash,omitempty"`
	Excerpt         string              `json:"excerpt,omitempty"`
}

// cacheEntry holds a resolution or, when nil, a cached miss
type cacheEntry struct {
	res *Resolution
}

// Resolver maps citation strings to the stored documents that contain them.
// Results, including misses, are cached per normalized citation and collection set;
// the cache is internally synchronized so one resolver can serve concurrent callers.
type Resolver struct {
	records      repository.CaseRecordStore
	store        vectorstore.Store
	embedder     embedding.Embedder
	patterns     *extraction.PatternLibrary
	cache        *lru.Cache[string, cacheEntry]
	cacheSize    int
	excerptChars int
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

// ResolverOption is a functional option for Resolver
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger
func WithResolverLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithResolverMetrics sets the metrics sink
func WithResolverMetrics(m *metrics.Metrics) ResolverOption {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithCacheSize bounds the number of cached citations
func WithCacheSize(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.cacheSize = n
		}
	}
}

// WithExcerptChars sets how much context surrounds a citation in excerpts
func WithExcerptChars(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.excerptChars = n
		}
	}
}

// WithResolverPatterns overrides the pattern library used to find citations in answers
func WithResolverPatterns(p *extraction.PatternLibrary) ResolverOption {
	return func(r *Resolver) {
		r.patterns = p
	}
}

// NewResolver creates a resolver. embedder may be nil, which disables the
// similarity fallback.
func NewResolver(records repository.CaseRecordStore, store vectorstore.Store, embedder embedding.Embedder, opts ...ResolverOption) (*Resolver, error) {
	r := &Resolver{
		records:      records,
		store:        store,
		embedder:     embedder,
		cacheSize:    DefaultCacheSize,
		excerptChars: DefaultExcerptChars,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.patterns == nil {
		r.patterns = extraction.NewPatternLibrary()
	}
	cache, err := lru.New[string, cacheEntry](r.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating citation cache: %w", err)
	}
	r.cache = cache
	return r, nil
}

func cacheKey(key string, collections []string) string {
	cols := append([]string(nil), collections...)
	sort.Strings(cols)
	return key + "\x00" + strings.Join(cols, ",")
}

// Resolve finds the document a citation refers to. Exact matches against stored
// case-record citations win, highest authority weight first. Otherwise the raw
// citation seeds a similarity search whose top hit is accepted only if it actually
// contains the normalized citation. A miss returns ErrCitationNotFound.
func (r *Resolver) Resolve(ctx context.Context, citation string, collections []string) (*Resolution, error) {
	normalized := extraction.NormalizeCitation(citation)
	if normalized == "" {
		return nil, ErrCitationNotFound
	}
	key := extraction.CitationKey(normalized)
	ck := cacheKey(key, collections)

	if entry, ok := r.cache.Get(ck); ok {
		r.metrics.RecordCitation("cache_hit")
		if entry.res == nil {
			return nil, ErrCitationNotFound
		}
		res := *entry.res
		return &res, nil
	}

	res, transient, err := r.resolve(ctx, citation, normalized, key, collections)
	if err != nil {
		r.metrics.RecordCitation("error")
		return nil, err
	}
	if transient {
		r.logger.Debug("not caching citation resolved during store errors", zap.String("citation", normalized))
	} else {
		r.cache.Add(ck, cacheEntry{res: res})
	}

	if res == nil {
		r.metrics.RecordCitation("not_found")
		return nil, ErrCitationNotFound
	}
	r.metrics.RecordCitation(res.Method)
	out := *res
	return &out, nil
}

// Purge drops every cached resolution. Call it after new records are ingested so
// cached misses do not hide them.
func (r *Resolver) Purge() {
	r.cache.Purge()
}

// resolve reports transient when a store error may have hidden a better answer
func (r *Resolver) resolve(ctx context.Context, raw, normalized, key string, collections []string) (*Resolution, bool, error) {
	records, err := r.records.List(ctx, collections)
	if err != nil {
		return nil, false, fmt.Errorf("listing case records: %w", err)
	}

	var best *models.CaseRecord
	for i := range records {
		if !recordCites(&records[i], key) {
			continue
		}
		if best == nil || records[i].AuthorityWeight > best.AuthorityWeight {
			best = &records[i]
		}
	}

	if best != nil {
		res := &Resolution{
			Citation:        normalized,
			Method:          MethodExact,
			Collection:      best.Collection,
			Source:          best.SourceFilename,
			CaseNumber:      best.CaseNumber,
			DocumentType:    best.DocumentType,
			AuthorityWeight: best.AuthorityWeight,
			ContentHash:     best.ContentHash,
		}
		excerpt, err := r.documentExcerpt(ctx, best, normalized)
		if err != nil {
			r.logger.Warn("failed to load excerpt for citation",
				zap.String("citation", normalized),
				zap.String("collection", best.Collection),
				zap.Error(err))
			return res, true, nil
		}
		res.Excerpt = excerpt
		return res, false, nil
	}

	if r.embedder == nil {
		return nil, false, nil
	}
	return r.similarityFallback(ctx, raw, normalized, key, collections)
}

func recordCites(rec *models.CaseRecord, key string) bool {
	for _, c := range rec.Citations() {
		if extraction.CitationKey(c) == key {
			return true
		}
	}
	return false
}

// documentExcerpt loads the record's chunks and cuts an excerpt around the citation,
// preferring a chunk that contains it
func (r *Resolver) documentExcerpt(ctx context.Context, rec *models.CaseRecord, citation string) (string, error) {
	var chunks []models.Chunk
	if searcher, ok := r.store.(vectorstore.MetadataSearcher); ok {
		found, err := searcher.FindByMetadata(ctx, rec.Collection, models.MetaContentHash, rec.ContentHash, 0)
		if err != nil {
			return "", err
		}
		chunks = found
	} else {
		err := r.store.Scan(ctx, rec.Collection, func(c models.Chunk) bool {
			if c.Metadata[models.MetaContentHash] == rec.ContentHash {
				chunks = append(chunks, c)
			}
			return true
		})
		if err != nil {
			return "", err
		}
	}
	if len(chunks) == 0 {
		return "", nil
	}

	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	for _, c := range chunks {
		if containsCitation(c.Content, citation) {
			return Excerpt(c.Content, citation, r.excerptChars), nil
		}
	}
	return Excerpt(chunks[0].Content, citation, r.excerptChars), nil
}

func containsCitation(text, citation string) bool {
	return strings.Contains(extraction.CitationKey(text), extraction.CitationKey(citation))
}

func (r *Resolver) similarityFallback(ctx context.Context, raw, normalized, key string, collections []string) (*Resolution, bool, error) {
	if len(collections) == 0 {
		var err error
		collections, err = r.store.ListCollections(ctx)
		if err != nil {
			r.logger.Warn("listing collections for citation fallback", zap.Error(err))
			return nil, true, nil
		}
	}

	emb, err := r.embedder.EmbedQuery(ctx, raw)
	r.metrics.RecordEmbedding(err)
	if err != nil {
		r.logger.Warn("citation fallback embedding failed", zap.String("citation", normalized), zap.Error(err))
		return nil, true, nil
	}

	transient := false
	for _, col := range collections {
		hits, err := r.store.Search(ctx, col, emb, 1)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			if !errors.Is(err, vectorstore.ErrCollectionNotFound) {
				transient = true
			}
			r.logger.Warn("skipping collection for citation fallback",
				zap.String("collection", col), zap.Error(err))
			continue
		}
		if len(hits) == 0 || !strings.Contains(extraction.CitationKey(hits[0].Content), key) {
			continue
		}
		top := hits[0]
		return &Resolution{
			Citation:        normalized,
			Method:          MethodSimilarity,
			Collection:      col,
			Source:          top.Source(),
			CaseNumber:      top.CaseNumber(),
			DocumentType:    models.DocumentType(top.Metadata[models.MetaDocumentType]),
			AuthorityWeight: top.AuthorityWeight(),
			ContentHash:     top.Metadata[models.MetaContentHash],
			Excerpt:         Excerpt(top.Content, normalized, r.excerptChars),
		}, transient, nil
	}
	return nil, transient, nil
}

// FindCitingDocuments returns an edge for every stored record that cites the citation
func (r *Resolver) FindCitingDocuments(ctx context.Context, citation string, collections []string) ([]models.CitationEdge, error) {
	normalized := extraction.NormalizeCitation(citation)
	key := extraction.CitationKey(normalized)
	if key == "" {
		return nil, nil
	}

	records, err := r.records.List(ctx, collections)
	if err != nil {
		return nil, fmt.Errorf("listing case records: %w", err)
	}
	var edges []models.CitationEdge
	for i := range records {
		if recordCites(&records[i], key) {
			edges = append(edges, edgeFor(&records[i], normalized))
		}
	}
	return edges, nil
}

// CitationGraph maps "collection:source" to the citations each document makes.
// Documents without citations are left out.
func (r *Resolver) CitationGraph(ctx context.Context, collections []string) (map[string][]string, error) {
	records, err := r.records.List(ctx, collections)
	if err != nil {
		return nil, fmt.Errorf("listing case records: %w", err)
	}
	graph := make(map[string][]string)
	for i := range records {
		citations := records[i].Citations()
		if len(citations) == 0 {
			continue
		}
		graph[records[i].Collection+":"+records[i].SourceFilename] = citations
	}
	return graph, nil
}

func edgeFor(rec *models.CaseRecord, citation string) models.CitationEdge {
	return models.CitationEdge{
		Collection:  rec.Collection,
		Source:      rec.SourceFilename,
		CaseNumber:  rec.CaseNumber,
		ContentHash: rec.ContentHash,
		Citation:    citation,
	}
}

// Excerpt cuts contextChars bytes either side of the first case-insensitive
// occurrence of citation, trying its normalized form second. Truncated ends get "...".
// With no occurrence it returns "...".
func Excerpt(text, citation string, contextChars int) string {
	loc := findFold(text, citation)
	if loc == nil {
		loc = findFold(text, extraction.NormalizeCitation(citation))
	}
	if loc == nil {
		return "..."
	}

	start := max(0, loc[0]-contextChars)
	end := min(len(text), loc[1]+contextChars)
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}

	excerpt := strings.TrimSpace(text[start:end])
	if start > 0 {
		excerpt = "..." + excerpt
	}
	if end < len(text) {
		excerpt += "..."
	}
	return excerpt
}

func findFold(text, needle string) []int {
	if needle == "" {
		return nil
	}
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(needle)).FindStringIndex(text)
}

type citationHit struct {
	start, end int
	normalized string
}

func (r *Resolver) citationHits(text string) []citationHit {
	var hits []citationHit
	for _, re := range r.patterns.CitationInText {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			hits = append(hits, citationHit{loc[0], loc[1], extraction.NormalizeCitation(text[loc[0]:loc[1]])})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].start < hits[j].start })

	// drop overlaps so markers never land inside another citation
	out := hits[:0]
	lastEnd := -1
	for _, h := range hits {
		if h.start < lastEnd {
			continue
		}
		out = append(out, h)
		lastEnd = h.end
	}
	return out
}

// EnhanceAnswer marks each resolvable citation in a generated answer with a
// numbered reference and appends a reference list. Unresolvable citations are left
// unmarked; store failures are logged and treated the same way.
func (r *Resolver) EnhanceAnswer(ctx context.Context, answer string, collections []string, includeExcerpts bool) string {
	hits := r.citationHits(answer)
	if len(hits) == 0 {
		return answer
	}

	refs := make(map[string]int)
	var appendix []string
	for _, h := range hits {
		if _, done := refs[h.normalized]; done {
			continue
		}
		res, err := r.Resolve(ctx, h.normalized, collections)
		if err != nil {
			if !errors.Is(err, ErrCitationNotFound) {
				r.logger.Warn("citation resolution failed", zap.String("citation", h.normalized), zap.Error(err))
			}
			refs[h.normalized] = 0
			continue
		}

		n := len(appendix) + 1
		refs[h.normalized] = n
		entry := "[" + strconv.Itoa(n) + "] " + h.normalized
		if res.CaseNumber != "" {
			entry += " (Case No. " + res.CaseNumber + ")"
		}
		if includeExcerpts && res.Excerpt != "" {
			entry += "\n    Excerpt: " + res.Excerpt
		}
		appendix = append(appendix, entry)
	}
	if len(appendix) == 0 {
		return answer
	}

	var b strings.Builder
	last := 0
	for _, h := range hits {
		b.WriteString(answer[last:h.end])
		if n := refs[h.normalized]; n > 0 {
			b.WriteString("[" + strconv.Itoa(n) + "]")
		}
		last = h.end
	}
	b.WriteString(answer[last:])
	b.WriteString("\n\nCitation References:\n")
	b.WriteString(strings.Join(appendix, "\n"))
	return b.String()
}
