package retrieval

import (
	"regexp"
	"sort"
	"strings"

	"legalrag-backend/extraction"
)

// QueryType is the coarse intent of a question; it selects the answer prompt
type QueryType string

const (
	QueryStatuteLookup QueryType = "statute_lookup"
	QueryCaseLookup    QueryType = "case_lookup"
	QueryCompliance    QueryType = "compliance"
	QueryPrecedent     QueryType = "precedent"
	QueryDeadline      QueryType = "deadline"
	QueryGeneral       QueryType = "general"
)

var queryFocus = map[QueryType]string{
	QueryStatuteLookup: "statutory_interpretation",
	QueryCaseLookup:    "case_law_analysis",
	QueryCompliance:    "compliance_assessment",
	QueryPrecedent:     "precedent_search",
	QueryDeadline:      "temporal_requirements",
	QueryGeneral:       "general",
}

// TemporalContext records a time qualifier found in the question
type TemporalContext struct {
	Type    string   `json:"type"`
	Keyword string   `json:"keyword,omitempty"`
	Dates   []string `json:"dates,omitempty"`
}

// QueryAnalysis is everything the router and answer generator learn from the question text
type QueryAnalysis struct {
	Query         string           `json:"query"`
	Type          QueryType        `json:"query_type"`
	Focus         string           `json:"focus"`
	Citations     []string         `json:"citations,omitempty"`
	ExpandedTerms []string         `json:"expanded_terms,omitempty"`
	Temporal      *TemporalContext `json:"temporal_context,omitempty"`
	CaseNumber    string           `json:"case_number,omitempty"`
	EntityName    string           `json:"entity_name,omitempty"`
}

type typeRule struct {
	typ      QueryType
	patterns []*regexp.Regexp
}

// typeRules are tried in order against the lowercased question
var typeRules = []typeRule{
	{QueryStatuteLookup, []*regexp.Regexp{
		regexp.MustCompile(`what\s+(?:does|is)\s+(?:ars|statute|section)\s*§?\s*(\d+[-–]\d+)`),
		regexp.MustCompile(`explain\s+(?:ars|statute|section)\s*§?\s*(\d+[-–]\d+)`),
		regexp.MustCompile(`(?:ars|statute|section)\s*§?\s*(\d+[-–]\d+)\s+(?:says?|provides?|states?)`),
	}},
	{QueryCaseLookup, []*regexp.Regexp{
		regexp.MustCompile(`what\s+(?:did|was|happened)\s+in\s+([a-z\s]+v\.\s+[a-z\s]+)`),
		regexp.MustCompile(`([a-z\s]+v\.\s+[a-z\s]+)\s+(?:held|decided|ruling)`),
	}},
	{QueryCompliance, []*regexp.Regexp{
		regexp.MustCompile(`(?:do|does|did)\s+(?:i|we|they)\s+(?:comply|violate|breach)`),
		regexp.MustCompile(`(?:is|was)\s+(?:this|that|it)\s+(?:legal|allowed|permitted|compliant)`),
	}},
	{QueryPrecedent, []*regexp.Regexp{
		regexp.MustCompile(`(?:cases?|precedents?|rulings?)\s+(?:about|regarding|on)\s+(.+)`),
		regexp.MustCompile(`(?:similar|related)\s+(?:cases?|rulings?)`),
	}},
	{QueryDeadline, []*regexp.Regexp{
		regexp.MustCompile(`(?:when|deadline|time\s+limit|statute\s+of\s+limitations?)\s+(?:for|to)\s+(.+)`),
		regexp.MustCompile(`how\s+(?:long|many\s+days?)\s+(?:do|does)\s+(?:i|we)\s+have`),
	}},
}

type keywordRule struct {
	typ   QueryType
	terms []string
}

// keywordRules are the fallback when no pattern matched; "ars" is matched as a word
var keywordRules = []keywordRule{
	{QueryStatuteLookup, []string{"statute", "§", "section"}},
	{QueryCaseLookup, []string{" v. ", " v ", "case", "ruling"}},
	{QueryCompliance, []string{"comply", "violation", "breach", "legal"}},
	{QueryPrecedent, []string{"similar", "precedent", "cases about"}},
	{QueryDeadline, []string{"deadline", "time limit", "how long"}},
}

var arsWord = regexp.MustCompile(`\bars\b`)

var abbreviations = []struct {
	word *regexp.Regexp
	full string
}{
	{regexp.MustCompile(`\bars\b`), "Arizona Revised Statutes"},
	{regexp.MustCompile(`\baac\b`), "Arizona Administrative Code"},
	{regexp.MustCompile(`\badre\b`), "Arizona Department of Real Estate"},
	{regexp.MustCompile(`\boah\b`), "Office of Administrative Hearings"},
	{regexp.MustCompile(`\bcv\b`), "Civil"},
	{regexp.MustCompile(`\bfrcp\b`), "Federal Rules of Civil Procedure"},
	{regexp.MustCompile(`\bazrcp\b`), "Arizona Rules of Civil Procedure"},
	{regexp.MustCompile(`\bhoa\b`), "homeowners association"},
	{regexp.MustCompile(`\bcc&rs?\b`), "covenants, conditions and restrictions"},
	{regexp.MustCompile(`\balj\b`), "Administrative Law Judge"},
}

var conceptRelations = []struct {
	concept string
	related []string
}{
	{"breach", []string{"violation", "non-compliance", "failure to comply"}},
	{"negligence", []string{"duty of care", "reasonable care", "breach of duty"}},
	{"damages", []string{"compensation", "remedies", "relief"}},
	{"motion", []string{"request", "petition", "application"}},
	{"discovery", []string{"disclosure", "interrogatories", "depositions"}},
	{"summary judgment", []string{"rule 56", "no genuine issue", "material fact"}},
}

var temporalKeywords = []struct {
	keyword string
	typ     string
}{
	{"current", "present"},
	{"latest", "most_recent"},
	{"historical", "past"},
	{"before", "prior_to"},
	{"after", "subsequent_to"},
	{"between", "date_range"},
}

// queryCitationPrefixes is parallel to PatternLibrary.QueryCitations
var queryCitationPrefixes = []string{"A.R.S. § ", "A.A.C. R"}

// Analyzer derives a QueryAnalysis from question text. It is stateless and safe
// for concurrent use.
type Analyzer struct {
	patterns  *extraction.PatternLibrary
	validator extraction.NameValidator
}

// NewAnalyzer creates an analyzer; nil patterns selects the default library
func NewAnalyzer(patterns *extraction.PatternLibrary) *Analyzer {
	if patterns == nil {
		patterns = extraction.NewPatternLibrary()
	}
	return &Analyzer{patterns: patterns, validator: extraction.PersonNameValidator()}
}

// Analyze classifies the question and pulls out identifiers, citations and expansions
func (a *Analyzer) Analyze(query string) QueryAnalysis {
	lower := strings.ToLower(query)
	typ := classifyQuery(lower)
	out := QueryAnalysis{
		Query:         query,
		Type:          typ,
		Focus:         queryFocus[typ],
		Citations:     a.citations(query),
		ExpandedTerms: expandTerms(lower),
		Temporal:      a.temporal(query, lower),
	}
	if cn, ok := a.CaseNumber(query); ok {
		out.CaseNumber = cn
	} else if name, ok := a.EntityName(query); ok {
		out.EntityName = name
	}
	return out
}

// CaseNumber returns the first case-number token in the query, upper-cased
func (a *Analyzer) CaseNumber(query string) (string, bool) {
	for _, re := range a.patterns.QueryCaseNumber {
		if m := re.FindStringSubmatch(query); m != nil && m[1] != "" {
			return strings.ToUpper(m[1]), true
		}
	}
	return "", false
}

// EntityName returns the first capitalized two or three word name that passes
// the person-name validator
func (a *Analyzer) EntityName(query string) (string, bool) {
	for _, m := range a.patterns.QueryEntityName.FindAllStringSubmatch(query, -1) {
		name := extraction.CleanName(m[1])
		if a.validator.Valid(name) {
			return name, true
		}
	}
	return "", false
}

func classifyQuery(lower string) QueryType {
	for _, rule := range typeRules {
		for _, re := range rule.patterns {
			if re.MatchString(lower) {
				return rule.typ
			}
		}
	}
	if arsWord.MatchString(lower) {
		return QueryStatuteLookup
	}
	for _, rule := range keywordRules {
		for _, term := range rule.terms {
			if strings.Contains(lower, term) {
				return rule.typ
			}
		}
	}
	return QueryGeneral
}

func (a *Analyzer) citations(query string) []string {
	seen := make(map[string]bool)
	var out []string
	for i, re := range a.patterns.QueryCitations {
		if i >= len(queryCitationPrefixes) {
			break
		}
		for _, m := range re.FindAllStringSubmatch(query, -1) {
			c := extraction.NormalizeCitation(queryCitationPrefixes[i] + m[1])
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// expandTerms returns abbreviation expansions and related concepts, sorted and deduplicated
func expandTerms(lower string) []string {
	set := make(map[string]struct{})
	for _, abbr := range abbreviations {
		if abbr.word.MatchString(lower) {
			set[abbr.full] = struct{}{}
		}
	}
	for _, rel := range conceptRelations {
		if strings.Contains(lower, rel.concept) {
			for _, r := range rel.related {
				set[r] = struct{}{}
			}
		}
	}
	if len(set) == 0 {
		return nil
	}
	terms := make([]string, 0, len(set))
	for t := range set {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

func (a *Analyzer) temporal(query, lower string) *TemporalContext {
	for _, tk := range temporalKeywords {
		if strings.Contains(lower, tk.keyword) {
			return &TemporalContext{Type: tk.typ, Keyword: tk.keyword}
		}
	}
	var dates []string
	for _, raw := range a.patterns.GenericDate.FindAllString(query, -1) {
		if t, ok := extraction.ParseDate(raw); ok {
			dates = append(dates, t.Format("2006-01-02"))
		}
	}
	if len(dates) > 0 {
		return &TemporalContext{Type: "specific_dates", Dates: dates}
	}
	return nil
}

// ExpandedQuery appends expansion terms to the question for semantic search
func (qa QueryAnalysis) ExpandedQuery() string {
	if len(qa.ExpandedTerms) == 0 {
		return qa.Query
	}
	return qa.Query + " (" + strings.Join(qa.ExpandedTerms, ", ") + ")"
}
