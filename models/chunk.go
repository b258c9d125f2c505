package models

import (
	"strconv"
	"strings"
)

// Tier is the retrieval priority of a chunk
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierNormal Tier = "normal"
)

// Rank returns the sort rank of the tier (1 is highest)
func (t Tier) Rank() int {
	switch t {
	case TierHigh:
		return 1
	case TierMedium:
		return 2
	default:
		return 3
	}
}

// TierFromRank maps a stored chunk_priority back to its tier
func TierFromRank(rank int) Tier {
	switch rank {
	case 1:
		return TierHigh
	case 2:
		return TierMedium
	default:
		return TierNormal
	}
}

// ChunkType tags what a chunk mostly contains
type ChunkType string

const (
	ChunkTypeOrder            ChunkType = "order"
	ChunkTypeViolationSummary ChunkType = "violation_summary"
	ChunkTypeHeader           ChunkType = "header"
	ChunkTypeFinding          ChunkType = "finding"
	ChunkTypeGeneric          ChunkType = "generic"
)

// Metadata keys carried by every chunk
const (
	MetaSource             = "source"
	MetaContentHash        = "content_hash"
	MetaCollection         = "collection"
	MetaChunkIndex         = "chunk_index"
	MetaChunkPriority      = "chunk_priority"
	MetaTier               = "tier"
	MetaChunkType          = "chunk_type"
	MetaCaseNumber         = "case_number"
	MetaDocketNumber       = "docket_number"
	MetaAgencyCaseNumber   = "agency_case_number"
	MetaDocumentType       = "document_type"
	MetaAuthorityWeight    = "authority_weight"
	MetaIsPrimaryAuthority = "is_primary_authority"
	MetaRuling             = "ruling"
	MetaPetitioner         = "petitioner"
	MetaRespondent         = "respondent"
	MetaOrganization       = "organization"
	MetaJudge              = "judge"
	MetaPetitionerAttorney = "petitioner_attorney"
	MetaRespondentAttorney = "respondent_attorney"
	MetaStatutesCited      = "statutes_cited"
	MetaRegulationsCited   = "regulations_cited"
	MetaHearingDate        = "hearing_date"
	MetaDecisionDate       = "decision_date"
	MetaFilingDate         = "filing_date"
)

// listSeparator joins list values inside flat metadata
const listSeparator = "; "

// Chunk is a prioritized fragment of a document stored in a vector index
type Chunk struct {
	ID         string            `json:"id"`
	Collection string            `json:"collection"`
	Index      int               `json:"index"`
	Content    string            `json:"content"`
	Tier       Tier              `json:"tier"`
	Type       ChunkType         `json:"type"`
	Metadata   map[string]string `json:"metadata"`
	Embedding  []float32         `json:"-"`
}

// ScoredChunk is a chunk returned from a search together with its similarity
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// Source returns the source filename of the chunk
func (c Chunk) Source() string {
	return c.Metadata[MetaSource]
}

// CaseNumber returns the case number of the chunk's document
func (c Chunk) CaseNumber() string {
	return c.Metadata[MetaCaseNumber]
}

// AuthorityWeight parses the stored authority weight, defaulting to 1.0
func (c Chunk) AuthorityWeight() float64 {
	w, err := strconv.ParseFloat(c.Metadata[MetaAuthorityWeight], 64)
	if err != nil {
		return 1.0
	}
	return w
}

// PriorityRank returns the stored chunk_priority, falling back to the tier
func (c Chunk) PriorityRank() int {
	if r, err := strconv.Atoi(c.Metadata[MetaChunkPriority]); err == nil {
		return r
	}
	return c.Tier.Rank()
}

// SplitList splits a flat list metadata value
func SplitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, listSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinList flattens a list into a metadata value
func JoinList(values []string) string {
	return strings.Join(values, listSeparator)
}

// ChunkMetadataFromRecord flattens the scalar fields of a case record into chunk metadata.
// Empty values are omitted.
func ChunkMetadataFromRecord(rec CaseRecord) map[string]string {
	meta := map[string]string{
		MetaSource:             rec.SourceFilename,
		MetaContentHash:        rec.ContentHash,
		MetaCollection:         rec.Collection,
		MetaCaseNumber:         rec.CaseNumber,
		MetaDocketNumber:       rec.DocketNumber,
		MetaAgencyCaseNumber:   rec.AgencyCaseNumber,
		MetaDocumentType:       string(rec.DocumentType),
		MetaAuthorityWeight:    strconv.FormatFloat(rec.AuthorityWeight, 'f', 1, 64),
		MetaIsPrimaryAuthority: strconv.FormatBool(rec.IsPrimaryAuthority),
		MetaRuling:             string(rec.Ruling),
		MetaPetitioner:         rec.Petitioner.Name,
		MetaRespondent:         rec.Respondent.Name,
		MetaOrganization:       rec.OrganizationName,
		MetaJudge:              rec.Judge.Name,
		MetaPetitionerAttorney: rec.PetitionerCounsel.Attorney,
		MetaRespondentAttorney: rec.RespondentCounsel.Attorney,
		MetaStatutesCited:      JoinList(rec.Violations.Get(ViolationStatute)),
		MetaRegulationsCited:   JoinList(rec.Violations.Get(ViolationRegulation)),
	}
	if rec.HearingDate != nil {
		meta[MetaHearingDate] = rec.HearingDate.Format("2006-01-02")
	}
	if rec.DecisionDate != nil {
		meta[MetaDecisionDate] = rec.DecisionDate.Format("2006-01-02")
	}
	if rec.FilingDate != nil {
		meta[MetaFilingDate] = rec.FilingDate.Format("2006-01-02")
	}

	for k, v := range meta {
		if v == "" {
			delete(meta, k)
		}
	}
	return meta
}
