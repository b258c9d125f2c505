package extraction

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"legalrag-backend/models"
)

const (
	maxCandidates     = 50
	maxOrders         = 20
	maxSectionItems   = 50
	orderExcerptLen   = 300
	sectionExcerptLen = 200
	counselWindow     = 300
	dateContextWindow = 50
)

// Extractor builds a CaseRecord from document text using the pattern library.
// It holds no per-call state and is safe for concurrent use.
type Extractor struct {
	patterns   *PatternLibrary
	classifier *Classifier
	person     NameValidator
	party      NameValidator
	logger     *zap.Logger
}

// ExtractorOption is a functional option for configuring the extractor
type ExtractorOption func(*Extractor)

// WithExtractorLogger sets the logger used for debug-level rejection messages
func WithExtractorLogger(logger *zap.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithClassifier overrides the document classifier
func WithClassifier(c *Classifier) ExtractorOption {
	return func(e *Extractor) {
		e.classifier = c
	}
}

// WithValidators overrides the person and party name validators
func WithValidators(person, party NameValidator) ExtractorOption {
	return func(e *Extractor) {
		e.person = person
		e.party = party
	}
}

// NewExtractor creates an extractor over the given pattern library
func NewExtractor(patterns *PatternLibrary, opts ...ExtractorOption) *Extractor {
	if patterns == nil {
		patterns = NewPatternLibrary()
	}
	e := &Extractor{
		patterns: patterns,
		person:   PersonNameValidator(),
		party:    PartyNameValidator(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.classifier == nil {
		e.classifier = NewClassifier(patterns)
	}
	return e
}

// Patterns returns the pattern library the extractor was built with
func (e *Extractor) Patterns() *PatternLibrary {
	return e.patterns
}

// Extract never fails. Each field group is extracted independently; a group that
// panics is logged at debug level and left empty. The returned record always has a
// non-empty CaseNumber.
func (e *Extractor) Extract(text, filename string) models.CaseRecord {
	text = normalizeText(text)

	rec := models.CaseRecord{
		SourceFilename:  filename,
		CaseNumber:      e.caseNumberFromFilename(filename),
		Violations:      make(models.Violations),
		DocumentType:    models.DocTypeUnknown,
		Ruling:          models.RulingUnknown,
		Petitioner:      models.Party{Type: models.PartyTypeUnknown},
		Respondent:      models.Party{Type: models.PartyTypeUnknown},
		Judge:           models.Judge{Role: models.JudgeRoleUnspecified},
		AuthorityWeight: 1.0,
	}

	e.guard("identifiers", func() { e.extractIdentifiers(&rec, text) })
	e.guard("parties", func() { e.extractParties(&rec, text) })
	e.guard("attorneys", func() { e.extractAttorneys(&rec, text) })
	e.guard("judges", func() { e.extractJudge(&rec, text) })
	e.guard("violations", func() { e.extractViolations(&rec, text) })
	e.guard("penalties", func() { e.extractPenalties(&rec, text) })
	e.guard("outcomes", func() { e.extractOutcomes(&rec, text) })
	e.guard("keywords", func() { e.extractKeywords(&rec, text) })
	e.guard("dates", func() { e.extractDates(&rec, text) })
	e.guard("classification", func() {
		c := e.classifier.Classify(text, filename)
		rec.DocumentType = c.Type
		rec.AuthorityWeight = c.Authority.Weight
		rec.IsPrimaryAuthority = c.Authority.Primary
	})
	rec.Ruling = InferRuling(rec.Orders, rec.Penalties)

	if rec.CaseNumber == "" {
		rec.CaseNumber = "unknown"
	}
	return rec
}

func (e *Extractor) guard(field string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("field extraction failed", zap.String("field", field), zap.Any("panic", r))
		}
	}()
	fn()
}

func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.ReplaceAll(text, "\u00a0", " ")
}

func (e *Extractor) caseNumberFromFilename(filename string) string {
	base := filepath.Base(filename)
	if m := e.patterns.FilenameCaseNumber.FindStringSubmatch(base); m != nil {
		return m[1]
	}
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (e *Extractor) extractIdentifiers(rec *models.CaseRecord, text string) {
	if docket, ok := firstSubmatch(e.patterns.OAHDocket, text); ok {
		rec.DocketNumber = strings.Trim(docket, "-")
	}
	if agency, ok := firstSubmatch(e.patterns.ADRECase, text); ok {
		agency = strings.Trim(agency, "-")
		rec.AgencyCaseNumber = agency
		rec.CaseNumber = agency
	}
	if cn, ok := firstSubmatch(e.patterns.CaseNumberInText, text); ok {
		rec.CaseNumber = cn
	}
	if lic, ok := firstSubmatch([]*regexp.Regexp{e.patterns.LicenseNumber}, text); ok {
		rec.LicenseNumber = lic
	}
}

// firstValid returns the first capture across patterns that passes the validator
func (e *Extractor) firstValid(patterns []*regexp.Regexp, text string, v NameValidator, role string) string {
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, maxCandidates) {
			name := CleanName(m[1])
			rule, ok := v.Check(name)
			if ok {
				return name
			}
			e.logger.Debug("name candidate rejected",
				zap.String("role", role),
				zap.String("candidate", name),
				zap.String("rule", rule))
		}
	}
	return ""
}

func (e *Extractor) allValid(patterns []*regexp.Regexp, text string, v NameValidator, role string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, maxCandidates) {
			name := CleanName(m[1])
			if seen[name] {
				continue
			}
			if rule, ok := v.Check(name); !ok {
				e.logger.Debug("name candidate rejected",
					zap.String("role", role),
					zap.String("candidate", name),
					zap.String("rule", rule))
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// ClassifyParty infers the party type from its name
func ClassifyParty(name string) models.PartyType {
	lower := strings.ToLower(name)
	switch {
	case name == "":
		return models.PartyTypeUnknown
	case strings.Contains(lower, "department") || strings.Contains(lower, "commissioner") || strings.Contains(lower, "state of arizona"):
		return models.PartyTypeDepartment
	case strings.Contains(lower, "management") || strings.Contains(lower, "mgmt"):
		return models.PartyTypeManagementCompany
	case strings.Contains(lower, "association") || strings.Contains(lower, "condominium") ||
		strings.Contains(lower, "hoa") || strings.Contains(lower, "poa") || strings.Contains(lower, "homeowners"):
		return models.PartyTypeHOA
	default:
		return models.PartyTypeHomeowner
	}
}

func (e *Extractor) extractParties(rec *models.CaseRecord, text string) {
	rec.Petitioner.Name = e.firstValid(e.patterns.Petitioner, text, e.party, "petitioner")
	rec.Respondent.Name = e.firstValid(e.patterns.Respondent, text, e.party, "respondent")

	for _, re := range e.patterns.HOA {
		if m := re.FindStringSubmatch(text); m != nil {
			if org := CleanName(m[1]); utf8.RuneCountInString(org) > 3 {
				rec.OrganizationName = org
				break
			}
		}
	}
	for _, re := range e.patterns.Management {
		if m := re.FindStringSubmatch(text); m != nil {
			if agent := CleanName(m[1]); utf8.RuneCountInString(agent) > 3 {
				rec.ManagingAgent = agent
				break
			}
		}
	}

	if rec.Respondent.Name == "" && rec.OrganizationName != "" {
		rec.Respondent.Name = rec.OrganizationName
	}
	rec.Petitioner.Type = ClassifyParty(rec.Petitioner.Name)
	rec.Respondent.Type = ClassifyParty(rec.Respondent.Name)
}

// extractAttorneys applies the attorney defaulting policy: labelled attorneys win; with
// no labelled attorney one unlabeled Esq. goes to the respondent, two go petitioner then
// respondent, and three or more stay unassigned. An Assistant Attorney General fills an
// empty petitioner side.
func (e *Extractor) extractAttorneys(rec *models.CaseRecord, text string) {
	pet := e.firstValid(e.patterns.PetitionerAttorney, text, e.person, "petitioner_attorney")
	resp := e.firstValid(e.patterns.RespondentAttorney, text, e.person, "respondent_attorney")

	var esq []string
	for _, name := range e.allValid(e.patterns.EsqAttorney, text, e.person, "esq_attorney") {
		if name != pet && name != resp {
			esq = append(esq, name)
		}
	}

	switch {
	case pet == "" && resp == "" && len(esq) == 1:
		resp = esq[0]
	case pet == "" && resp == "" && len(esq) == 2:
		pet, resp = esq[0], esq[1]
	default:
		rec.UnassignedAttorneys = esq
	}

	if aag := e.firstValid(e.patterns.AAG, text, e.person, "assistant_attorney_general"); aag != "" {
		rec.AssistantAttorneyGeneral = aag
		if pet == "" {
			pet = aag
		}
	}

	rec.PetitionerCounsel = e.counselDetails(pet, text)
	rec.RespondentCounsel = e.counselDetails(resp, text)

	if e.patterns.ProSe.MatchString(text) {
		if rec.PetitionerCounsel.Attorney == "" {
			rec.PetitionerCounsel.ProSe = true
		}
		if rec.RespondentCounsel.Attorney == "" {
			rec.RespondentCounsel.ProSe = true
		}
	}
}

// counselDetails looks up firm, email and bar number in the block following the name
func (e *Extractor) counselDetails(name, text string) models.Representation {
	rep := models.Representation{Attorney: name}
	if name == "" {
		return rep
	}
	idx := strings.Index(text, name)
	if idx < 0 {
		return rep
	}
	start := idx + len(name)
	end := start + counselWindow
	if end > len(text) {
		end = len(text)
	}
	window := text[start:end]
	if cut := strings.Index(window, "\n\n"); cut >= 0 {
		window = window[:cut]
	}

	if m := e.patterns.Firm.FindStringSubmatch(window); m != nil {
		firm := strings.TrimSpace(strings.TrimLeft(m[1], ",. "))
		if !strings.HasPrefix(firm, "Esq") {
			rep.Firm = firm
		}
	}
	rep.Email = e.patterns.Email.FindString(window)
	if m := e.patterns.BarNumber.FindStringSubmatch(window); m != nil {
		rep.BarNumber = m[1]
	}
	return rep
}

func (e *Extractor) extractJudge(rec *models.CaseRecord, text string) {
	for _, jp := range e.patterns.Judges {
		for _, m := range jp.Regex.FindAllStringSubmatch(text, maxCandidates) {
			name := CleanName(m[1])
			if rule, ok := e.person.Check(name); !ok {
				e.logger.Debug("name candidate rejected",
					zap.String("role", "judge"),
					zap.String("candidate", name),
					zap.String("rule", rule))
				continue
			}
			rec.Judge = models.Judge{Name: name, Role: jp.Role}
			return
		}
	}
}

// RenderCitation formats a citation capture for its category and normalizes it
func RenderCitation(p CitationPattern, capture string) string {
	capture = strings.TrimSpace(capture)
	if capture == "" {
		if p.SectionLabel == "" {
			return ""
		}
		return NormalizeCitation(p.Prefix)
	}
	return NormalizeCitation(p.Prefix + p.SectionLabel + capture)
}

func (e *Extractor) extractViolations(rec *models.CaseRecord, text string) {
	for _, category := range models.ViolationCategories {
		for _, p := range e.patterns.Violations[category] {
			for _, m := range p.Regex.FindAllStringSubmatch(text, -1) {
				capture := ""
				if len(m) > 1 {
					capture = m[1]
				}
				rec.Violations.Add(category, RenderCitation(p, capture))
			}
		}
	}
}

func (e *Extractor) extractPenalties(rec *models.CaseRecord, text string) {
	p := &rec.Penalties
	seen := make(map[string]bool)
	for _, re := range e.patterns.MonetaryFine {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			fine := "$" + strings.TrimRight(m[1], ",")
			if seen[fine] {
				continue
			}
			seen[fine] = true
			p.MonetaryFines = append(p.MonetaryFines, fine)
			p.Descriptions = append(p.Descriptions, "Monetary fine: "+fine)
		}
	}
	if anyMatch(e.patterns.ComplianceOrder, text) {
		p.ComplianceOrder = true
		p.Descriptions = append(p.Descriptions, "Compliance order issued")
	}
	if anyMatch(e.patterns.CeaseAndDesist, text) {
		p.CeaseAndDesist = true
		p.Descriptions = append(p.Descriptions, "Cease and desist order")
	}
	for _, rule := range e.patterns.Sanctions {
		if rule.Regex.MatchString(text) {
			p.Sanctions = append(p.Sanctions, rule.Label)
		}
	}
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func (e *Extractor) extractOutcomes(rec *models.CaseRecord, text string) {
	seen := make(map[string]bool)
	for _, re := range e.patterns.Orders {
		for _, m := range re.FindAllStringSubmatch(text, maxOrders) {
			order := truncateRunes(collapseSpace(m[1]), orderExcerptLen)
			if order == "" || seen[order] {
				continue
			}
			seen[order] = true
			rec.Orders = append(rec.Orders, order)
			if len(rec.Orders) >= maxOrders {
				break
			}
		}
	}

	rec.FindingsOfFact = e.numberedSection(text, e.patterns.FindingsHeading, e.patterns.InlineFinding, "Finding")
	rec.ConclusionsOfLaw = e.numberedSection(text, e.patterns.ConclusionsHeading, e.patterns.InlineConclusion, "Conclusion")
}

// numberedSection collects the numbered paragraphs under a heading, falling back to
// inline "Finding 3: ..." style references when the heading is absent
func (e *Extractor) numberedSection(text string, heading, inline *regexp.Regexp, label string) []string {
	var items []string
	if loc := heading.FindStringIndex(text); loc != nil {
		section := text[loc[1]:]
		if end := e.patterns.SectionEnd.FindStringIndex(section); end != nil {
			section = section[:end[0]]
		}
		for _, m := range e.patterns.NumberedParagraph.FindAllStringSubmatch(section, maxSectionItems) {
			items = append(items, label+" "+m[1]+": "+truncateRunes(strings.TrimSpace(m[2]), sectionExcerptLen))
		}
	}
	if len(items) > 0 {
		return items
	}
	for _, m := range inline.FindAllStringSubmatch(text, maxSectionItems) {
		items = append(items, label+" "+m[1]+": "+truncateRunes(strings.TrimSpace(m[2]), sectionExcerptLen))
	}
	return items
}

// InferRuling is a keyword heuristic over extracted orders and penalties. It is
// approximate and not a verified legal outcome; see models.RulingHeuristicNote.
func InferRuling(orders []string, p models.Penalties) models.Ruling {
	if len(orders) == 0 && len(p.Descriptions) == 0 {
		return models.RulingUnknown
	}
	for _, o := range orders {
		if strings.Contains(strings.ToLower(o), "dismiss") {
			return models.RulingFavorRespondent
		}
	}
	if len(p.MonetaryFines) > 0 || p.ComplianceOrder {
		return models.RulingFavorPetitioner
	}
	return models.RulingMixed
}

func (e *Extractor) extractKeywords(rec *models.CaseRecord, text string) {
	for _, rule := range e.patterns.ViolationTypes {
		if rule.Regex.MatchString(text) {
			rec.ViolationTypes = append(rec.ViolationTypes, rule.Label)
		}
	}
}

func (e *Extractor) extractDates(rec *models.CaseRecord, text string) {
	// date tokens introduced by a role keyword belong to that role only
	var labelled [][2]int
	for _, dp := range e.patterns.RoleDates {
		filled := dateFor(rec, dp.Role) != nil
		for _, m := range dp.Regex.FindAllStringSubmatchIndex(text, maxCandidates) {
			labelled = append(labelled, [2]int{m[2], m[3]})
			if filled {
				continue
			}
			if t, ok := ParseDate(text[m[2]:m[3]]); ok {
				setDate(rec, dp.Role, t)
				filled = true
			}
		}
	}

	for _, loc := range e.patterns.GenericDate.FindAllStringSubmatchIndex(text, -1) {
		if rec.HearingDate != nil && rec.DecisionDate != nil && rec.FilingDate != nil {
			return
		}
		if overlapsAny(loc[2], loc[3], labelled) {
			continue
		}
		t, ok := ParseDate(text[loc[2]:loc[3]])
		if !ok {
			continue
		}
		from := loc[0] - dateContextWindow
		if from < 0 {
			from = 0
		}
		to := loc[1] + dateContextWindow
		if to > len(text) {
			to = len(text)
		}
		context := strings.ToLower(text[from:to])

		switch {
		case rec.HearingDate == nil && (strings.Contains(context, "hearing") || strings.Contains(context, "heard")):
			setDate(rec, DateRoleHearing, t)
		case rec.DecisionDate == nil && (strings.Contains(context, "decision") || strings.Contains(context, "order") ||
			strings.Contains(context, "dated") || strings.Contains(context, "issued")):
			setDate(rec, DateRoleDecision, t)
		case rec.FilingDate == nil && (strings.Contains(context, "filed") || strings.Contains(context, "filing") ||
			strings.Contains(context, "received")):
			setDate(rec, DateRoleFiling, t)
		}
	}
}

func overlapsAny(start, end int, spans [][2]int) bool {
	for _, sp := range spans {
		if start < sp[1] && sp[0] < end {
			return true
		}
	}
	return false
}

func dateFor(rec *models.CaseRecord, role DateRole) *time.Time {
	switch role {
	case DateRoleHearing:
		return rec.HearingDate
	case DateRoleDecision:
		return rec.DecisionDate
	default:
		return rec.FilingDate
	}
}

func setDate(rec *models.CaseRecord, role DateRole, t time.Time) {
	switch role {
	case DateRoleHearing:
		rec.HearingDate = &t
	case DateRoleDecision:
		rec.DecisionDate = &t
	default:
		rec.FilingDate = &t
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}
