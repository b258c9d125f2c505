package chunking

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"legalrag-backend/models"
)

const maxFindingChunks = 5

var (
	highTierTerms   = []string{"order", "finding", "conclusion", "violation"}
	mediumTierTerms = []string{"attorney", "judge", "hearing"}
	orderMarkers    = []string{"it is ordered", "it is hereby ordered", "it is further ordered", "hereby orders"}
	citationMarkers = []string{"a.r.s.", "a.a.c.", "cc&r", "bylaws"}
)

// Prioritizer splits a document into chunks and ranks each by its content
type Prioritizer struct {
	splitter  Splitter
	summaries bool
	logger    *zap.Logger
}

// PrioritizerOption is a functional option for configuring the prioritizer
type PrioritizerOption func(*Prioritizer)

// WithSplitter overrides the text splitter
func WithSplitter(s Splitter) PrioritizerOption {
	return func(p *Prioritizer) {
		p.splitter = s
	}
}

// WithSummaryChunks toggles the synthesized order, violation, header and finding chunks
// that precede the body chunks
func WithSummaryChunks(enabled bool) PrioritizerOption {
	return func(p *Prioritizer) {
		p.summaries = enabled
	}
}

// WithPrioritizerLogger sets the logger
func WithPrioritizerLogger(logger *zap.Logger) PrioritizerOption {
	return func(p *Prioritizer) {
		p.logger = logger
	}
}

// NewPrioritizer creates a prioritizer with the default recursive splitter
func NewPrioritizer(opts ...PrioritizerOption) *Prioritizer {
	p := &Prioritizer{
		splitter:  NewRecursiveSplitter(DefaultChunkSize, DefaultChunkOverlap),
		summaries: true,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TierFor assigns the priority tier of a chunk from its lowercase text
func TierFor(content string) models.Tier {
	lower := strings.ToLower(content)
	if containsAny(lower, highTierTerms) {
		return models.TierHigh
	}
	if containsAny(lower, mediumTierTerms) {
		return models.TierMedium
	}
	return models.TierNormal
}

// TypeFor tags a body chunk. The first chunk is the header unless it carries an order.
func TypeFor(content string, index int) models.ChunkType {
	lower := strings.ToLower(content)
	switch {
	case containsAny(lower, orderMarkers):
		return models.ChunkTypeOrder
	case index == 0:
		return models.ChunkTypeHeader
	case strings.Contains(lower, "finding") || strings.Contains(lower, "conclusion"):
		return models.ChunkTypeFinding
	case strings.Contains(lower, "violat") && containsAny(lower, citationMarkers):
		return models.ChunkTypeViolationSummary
	default:
		return models.ChunkTypeGeneric
	}
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// ChunkID is deterministic so re-upserting a document never duplicates its chunks
func ChunkID(contentHash string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(contentHash+":"+strconv.Itoa(index))).String()
}

type draft struct {
	content string
	typ     models.ChunkType
}

// Prioritize splits fullText and returns its chunks in index order. Every chunk carries the
// record's scalar metadata plus its own index, tier and type. Summary chunks built from the
// record come first when enabled.
func (p *Prioritizer) Prioritize(fullText string, rec models.CaseRecord) []models.Chunk {
	var drafts []draft
	if p.summaries {
		drafts = append(drafts, summaryDrafts(rec)...)
	}

	parts, err := p.splitter.SplitText(fullText)
	if err != nil {
		p.logger.Warn("text splitting failed, storing document as a single chunk",
			zap.String("source", rec.SourceFilename),
			zap.Error(err))
		parts = []string{fullText}
	}
	body := 0
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		drafts = append(drafts, draft{content: part, typ: TypeFor(part, body)})
		body++
	}

	base := models.ChunkMetadataFromRecord(rec)
	chunks := make([]models.Chunk, 0, len(drafts))
	for i, d := range drafts {
		tier := TierFor(d.content)
		meta := make(map[string]string, len(base)+4)
		for k, v := range base {
			meta[k] = v
		}
		meta[models.MetaChunkIndex] = strconv.Itoa(i)
		meta[models.MetaChunkPriority] = strconv.Itoa(tier.Rank())
		meta[models.MetaTier] = string(tier)
		meta[models.MetaChunkType] = string(d.typ)

		chunks = append(chunks, models.Chunk{
			ID:         ChunkID(rec.ContentHash, i),
			Collection: rec.Collection,
			Index:      i,
			Content:    d.content,
			Tier:       tier,
			Type:       d.typ,
			Metadata:   meta,
		})
	}
	return chunks
}

// summaryDrafts restates the extracted order, violations, header and top findings as
// standalone chunks so they are retrievable without the surrounding prose
func summaryDrafts(rec models.CaseRecord) []draft {
	var out []draft

	if len(rec.Orders) > 0 {
		out = append(out, draft{
			content: fmt.Sprintf("ORDER in case %s: %s", rec.CaseNumber, strings.Join(rec.Orders, " ")),
			typ:     models.ChunkTypeOrder,
		})
	}

	if citations := rec.Citations(); len(citations) > 0 || !rec.Penalties.Empty() {
		var b strings.Builder
		fmt.Fprintf(&b, "Case %s - Violations: %s.", rec.CaseNumber, strings.Join(citations, ", "))
		if len(rec.ViolationTypes) > 0 {
			fmt.Fprintf(&b, " Violation types: %s.", strings.Join(rec.ViolationTypes, ", "))
		}
		if len(rec.Penalties.Descriptions) > 0 {
			fmt.Fprintf(&b, " Penalties: %s.", strings.Join(rec.Penalties.Descriptions, ", "))
		}
		out = append(out, draft{content: b.String(), typ: models.ChunkTypeViolationSummary})
	}

	header := "ADRE Case " + rec.CaseNumber
	if rec.DocketNumber != "" {
		header += ", OAH Docket " + rec.DocketNumber
	}
	if rec.Petitioner.Name != "" {
		header += ". Petitioner: " + rec.Petitioner.Name
	}
	if rec.Respondent.Name != "" {
		header += ". Respondent: " + rec.Respondent.Name
	}
	if rec.LicenseNumber != "" {
		header += " (License: " + rec.LicenseNumber + ")"
	}
	if rec.Judge.Name != "" {
		header += ". Judge: " + rec.Judge.Name
	}
	if header != "ADRE Case "+rec.CaseNumber {
		out = append(out, draft{content: header, typ: models.ChunkTypeHeader})
	}

	for i, finding := range rec.FindingsOfFact {
		if i >= maxFindingChunks {
			break
		}
		out = append(out, draft{
			content: fmt.Sprintf("Case %s - %s", rec.CaseNumber, finding),
			typ:     models.ChunkTypeFinding,
		})
	}
	return out
}
