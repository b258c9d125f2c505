package extraction

import (
	"regexp"

	"legalrag-backend/models"
)

// PatternLibraryVersion identifies the pattern set stored alongside extracted records
const PatternLibraryVersion = "adre-oah/3"

// Reusable pattern fragments. Labels are wrapped in (?i:...) while name captures stay
// case-sensitive so capitalization still marks where a name begins.
const (
	personName = `[A-Z][a-z'’-]+(?:[ \t]+[A-Z]\.)?(?:[ \t]+[A-Z][A-Za-z'’-]+){1,3}`
	partyName  = `[A-Z0-9][A-Za-z0-9&'’.,-]*(?:[ \t]+(?:[A-Z0-9&][A-Za-z0-9&'’.,-]*|and|of|the|at|de|del|la))*`
	caseNumber = `\d{2}[A-Z]-[A-Z]\d+(?:-REL)?(?:-RHG)?`
	identifier = `[A-Z0-9-]*\d[A-Z0-9-]*`
	sectionRef = `(?:[ \t]*,?[ \t]*(?i:section|article|§)[ \t]*([0-9]+(?:\.[0-9]+)*))?`
	citationNo = `(\d+(?:\s*[-–—‐‑‒−]\s*[0-9]+[A-Za-z]?)*(?:\.[0-9A-Za-z]+)*)`
	monthName  = `(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\.?`
	dateToken  = `((?i:` + monthName + `)[ \t]+\d{1,2}(?:st|nd|rd|th)?,?[ \t]+\d{4}` +
		`|\d{1,2}(?:st|nd|rd|th)?[ \t]+(?i:day[ \t]+of)[ \t]+(?i:` + monthName + `),?[ \t]+\d{4}` +
		`|\d{1,2}/\d{1,2}/\d{4})`
	paragraph = `((?:[^\n]|\n[ \t]*[^\n \t])+)`
)

// DateRole is which date field a pattern fills
type DateRole string

const (
	DateRoleHearing  DateRole = "hearing"
	DateRoleDecision DateRole = "decision"
	DateRoleFiling   DateRole = "filing"
)

// JudgePattern pairs a judge pattern with the role it implies
type JudgePattern struct {
	Regex *regexp.Regexp
	Role  models.JudgeRole
}

// CitationPattern captures one citation authority
type CitationPattern struct {
	Regex *regexp.Regexp
	// Prefix is prepended to the first capture group; for governing documents an
	// empty capture renders the prefix alone.
	Prefix string
	// SectionLabel is inserted between Prefix and the capture when non-empty
	SectionLabel string
}

// DocTypeMarker is a body heading that identifies a document type
type DocTypeMarker struct {
	Type  models.DocumentType
	Regex *regexp.Regexp
}

// FilenameHint is a weak document-type prior derived from the filename
type FilenameHint struct {
	Type     models.DocumentType
	Keywords []string
}

// KeywordRule tags text that contains any of the keyword patterns
type KeywordRule struct {
	Label string
	Regex *regexp.Regexp
}

// DatePattern extracts a date for a specific role
type DatePattern struct {
	Regex *regexp.Regexp
	Role  DateRole
}

// PatternLibrary holds every compiled pattern used by the classifier, extractor and router.
// It is immutable after construction and safe for concurrent use.
type PatternLibrary struct {
	Version string

	OAHDocket          []*regexp.Regexp
	ADRECase           []*regexp.Regexp
	CaseNumberInText   []*regexp.Regexp
	FilenameCaseNumber *regexp.Regexp
	QueryCaseNumber    []*regexp.Regexp

	Petitioner []*regexp.Regexp
	Respondent []*regexp.Regexp
	HOA        []*regexp.Regexp
	Management []*regexp.Regexp

	PetitionerAttorney []*regexp.Regexp
	RespondentAttorney []*regexp.Regexp
	EsqAttorney        []*regexp.Regexp
	AAG                []*regexp.Regexp
	ProSe              *regexp.Regexp
	Firm               *regexp.Regexp
	Email              *regexp.Regexp
	BarNumber          *regexp.Regexp
	LicenseNumber      *regexp.Regexp

	Judges []JudgePattern

	Violations map[models.ViolationCategory][]CitationPattern

	MonetaryFine    []*regexp.Regexp
	ComplianceOrder []*regexp.Regexp
	CeaseAndDesist  []*regexp.Regexp
	Sanctions       []KeywordRule
	ViolationTypes  []KeywordRule

	Orders             []*regexp.Regexp
	FindingsHeading    *regexp.Regexp
	ConclusionsHeading *regexp.Regexp
	SectionEnd         *regexp.Regexp
	NumberedParagraph  *regexp.Regexp
	InlineFinding      *regexp.Regexp
	InlineConclusion   *regexp.Regexp
	RoleDates          []DatePattern
	GenericDate        *regexp.Regexp
	DocTypeMarkers     []DocTypeMarker
	FilenameHints      []FilenameHint
	QueryEntityName    *regexp.Regexp
	QueryCitations     []*regexp.Regexp
	CitationInText     []*regexp.Regexp
}

// NewPatternLibrary compiles the pattern set. It panics only on a malformed
// built-in pattern, which is a programming error.
func NewPatternLibrary() *PatternLibrary {
	return &PatternLibrary{
		Version: PatternLibraryVersion,

		OAHDocket: []*regexp.Regexp{
			regexp.MustCompile(`(?i:OAH[ \t]+(?:docket[ \t]+)?(?:no\.?|number|#)?)[ \t]*:?[ \t]*(` + identifier + `)`),
			regexp.MustCompile(`(?i:docket[ \t]+(?:no\.?|number|#))[ \t]*:?[ \t]*(` + identifier + `)`),
		},
		ADRECase: []*regexp.Regexp{
			regexp.MustCompile(`(?i:ADRE[ \t]+(?:case[ \t]+)?(?:no\.|no\b|number|#))[ \t]*:?[ \t]*(` + identifier + `)`),
			regexp.MustCompile(`(?i:case[ \t]+(?:no\.?|number|#)?)[ \t]*:?[ \t]*(` + caseNumber + `)`),
			regexp.MustCompile(`\b(` + caseNumber + `)\b`),
		},
		// Docket-grammar case numbers outrank agency identifiers for CaseNumber
		CaseNumberInText: []*regexp.Regexp{
			regexp.MustCompile(`(?i:case[ \t]+(?:no\.?|number|#)?)[ \t]*:?[ \t]*(` + caseNumber + `)`),
			regexp.MustCompile(`\b(` + caseNumber + `)\b`),
		},
		FilenameCaseNumber: regexp.MustCompile(`(` + caseNumber + `)`),
		QueryCaseNumber: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bcase[ \t]+(?:number[ \t]+|no\.?[ \t]*)?(\d{2}[A-Z]-[A-Z]\d+(?:-REL)?(?:-RHG)?)\b`),
			regexp.MustCompile(`(?i)\b(\d{2}[A-Z]-[A-Z]\d+(?:-REL)?(?:-RHG)?)\b`),
		},

		Petitioner: []*regexp.Regexp{
			regexp.MustCompile(`(?i:petitioners?|complainants?)[ \t]*:[ \t]*(` + partyName + `)`),
			regexp.MustCompile(`(` + partyName + `)[ \t]*,?\s*(?i:petitioners?|complainants?)\b`),
			regexp.MustCompile(`(` + partyName + `)[ \t]*,?\s*(?:v\.|vs\.?)\s`),
		},
		Respondent: []*regexp.Regexp{
			regexp.MustCompile(`(?i:respondents?)[ \t]*:[ \t]*(` + partyName + `)`),
			regexp.MustCompile(`(` + partyName + `)[ \t]*,?\s*(?i:respondents?)\b`),
			regexp.MustCompile(`\b(?:v\.|vs\.?)\s*(` + partyName + `)`),
		},
		HOA: []*regexp.Regexp{
			regexp.MustCompile(`((?:[A-Z][A-Za-z'’&-]*[ \t]+){1,6}(?i:homeowners?'?[ \t]+association|community[ \t]+association|condominium[ \t]+association|property[ \t]+owners?'?[ \t]+association|townhomes?[ \t]+association)(?:,?[ \t]+Inc\.?)?)`),
			regexp.MustCompile(`((?:[A-Z][A-Za-z'’&-]*[ \t]+){1,6}(?:HOA|POA)\b)`),
		},
		Management: []*regexp.Regexp{
			regexp.MustCompile(`((?:[A-Z][A-Za-z'’&-]*[ \t]+){1,5}(?:Property[ \t]+)?Management(?:[ \t]+(?:Company|Services|Group|Corporation|Corp\.?|LLC|Inc\.?))?)`),
			regexp.MustCompile(`((?:[A-Z][A-Za-z'’&-]*[ \t]+){1,5}Mgmt\.?)`),
		},

		PetitionerAttorney: []*regexp.Regexp{
			regexp.MustCompile(`(?i:for[ \t]+(?:the[ \t]+)?petitioners?|petitioners?[ \t]+(?:was[ \t]+|were[ \t]+)?represented[ \t]+by|on[ \t]+behalf[ \t]+of[ \t]+(?:the[ \t]+)?petitioners?)[ \t]*:?\s*(` + personName + `)`),
			regexp.MustCompile(`(` + personName + `),?[ \t]+(?:Esq\.?,?[ \t]+)?(?i:for|representing|on[ \t]+behalf[ \t]+of|appeared[ \t]+on[ \t]+behalf[ \t]+of)[ \t]+(?i:the[ \t]+)?(?i:petitioners?)`),
		},
		RespondentAttorney: []*regexp.Regexp{
			regexp.MustCompile(`(?i:for[ \t]+(?:the[ \t]+)?respondents?|respondents?[ \t]+(?:was[ \t]+|were[ \t]+)?represented[ \t]+by|on[ \t]+behalf[ \t]+of[ \t]+(?:the[ \t]+)?respondents?)[ \t]*:?\s*(` + personName + `)`),
			regexp.MustCompile(`(` + personName + `),?[ \t]+(?:Esq\.?,?[ \t]+)?(?i:for|representing|on[ \t]+behalf[ \t]+of|appeared[ \t]+on[ \t]+behalf[ \t]+of)[ \t]+(?i:the[ \t]+)?(?i:respondents?)`),
		},
		EsqAttorney: []*regexp.Regexp{
			regexp.MustCompile(`(` + personName + `),?[ \t]+Esq\b\.?`),
		},
		AAG: []*regexp.Regexp{
			regexp.MustCompile(`(` + personName + `),?\s+(?i:assistant[ \t]+attorney[ \t]+general)`),
			regexp.MustCompile(`(?i:assistant[ \t]+attorney[ \t]+general)[ \t]*[:.]?\s*(` + personName + `)`),
		},
		ProSe:         regexp.MustCompile(`(?i)\bpro[ \t]+se\b|\bself[- \t]represented\b|\bon[ \t]+(?:his|her|their)[ \t]+own[ \t]+behalf\b`),
		Firm:          regexp.MustCompile(`([A-Z][A-Za-z&.,'’ ]*?(?:,?[ \t]+(?:LLP|PLLC|LLC|PLC|P\.L\.L\.C\.|L\.L\.P\.|L\.L\.C\.|P\.L\.C\.|P\.C\.|P\.A\.)|[ \t]+Law[ \t]+(?:Firm|Group|Offices?)))`),
		Email:         regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
		BarNumber:     regexp.MustCompile(`(?i:(?:state[ \t]+)?bar[ \t]+(?:no\.?|number|#))[ \t]*:?[ \t]*(\d{4,7})`),
		LicenseNumber: regexp.MustCompile(`(?i:license[ \t]+(?:no\.?|number|#))[ \t]*:?[ \t]*([A-Z]{0,3}\d{4,12})`),

		Judges: []JudgePattern{
			{regexp.MustCompile(`(?i:administrative[ \t]+law[ \t]+judge)[ \t]*:[ \t]*(` + personName + `)`), models.JudgeRoleALJ},
			{regexp.MustCompile(`(?i:before)[ \t]+(?i:the[ \t]+)?(?i:honorable[ \t]+)?(` + personName + `),?\s+(?i:administrative[ \t]+law[ \t]+judge)`), models.JudgeRoleALJ},
			{regexp.MustCompile(`(` + personName + `)[ \t]*,?\s*(?i:administrative[ \t]+law[ \t]+judge)`), models.JudgeRoleALJ},
			{regexp.MustCompile(`(?i:hearing[ \t]+officer)[ \t]*:[ \t]*(` + personName + `)`), models.JudgeRoleHearingOfficer},
			{regexp.MustCompile(`(` + personName + `),?\s+(?i:hearing[ \t]+officer)`), models.JudgeRoleHearingOfficer},
			{regexp.MustCompile(`\b(?i:judge)[ \t]*:[ \t]*(` + personName + `)`), models.JudgeRoleUnspecified},
		},

		Violations: map[models.ViolationCategory][]CitationPattern{
			models.ViolationStatute: {
				{Regex: regexp.MustCompile(`(?i:A\.R\.S\.?|Arizona[ \t]+Revised[ \t]+Statutes?)\s*(?:§+\s*)?` + citationNo), Prefix: "A.R.S. § "},
			},
			models.ViolationRegulation: {
				{Regex: regexp.MustCompile(`(?i:A\.A\.C\.?|Arizona[ \t]+Administrative[ \t]+Code)\s*(?:§+\s*)?R?\s*` + citationNo), Prefix: "A.A.C. R"},
			},
			models.ViolationCCR: {
				{Regex: regexp.MustCompile(`\bCC&Rs?` + sectionRef), Prefix: "CC&R", SectionLabel: " Section "},
				{Regex: regexp.MustCompile(`(?i:\bcovenants,?[ \t]+conditions,?[ \t]+(?:and|&)[ \t]+restrictions)` + sectionRef), Prefix: "CC&R", SectionLabel: " Section "},
			},
			models.ViolationBylaws: {
				{Regex: regexp.MustCompile(`(?i:\bby-?laws?\b)` + sectionRef), Prefix: "Bylaws", SectionLabel: " Section "},
			},
			models.ViolationDeclaration: {
				{Regex: regexp.MustCompile(`\bDeclaration(?:[ \t]+(?i:of[ \t]+(?:covenants|restrictions)))?` + sectionRef), Prefix: "Declaration", SectionLabel: " Section "},
			},
			models.ViolationArchitectural: {
				{Regex: regexp.MustCompile(`(?i:\b(?:architectural|design)[ \t]+(?:guidelines?|standards?|requirements?|rules?))` + sectionRef), Prefix: "Architectural Guidelines", SectionLabel: " Section "},
			},
			models.ViolationGoverningDocuments: {
				{Regex: regexp.MustCompile(`(?i:\b(?:governing|community)[ \t]+documents?)` + sectionRef), Prefix: "Governing Documents", SectionLabel: " Section "},
			},
		},

		MonetaryFine: []*regexp.Regexp{
			regexp.MustCompile(`(?i:fines?|penalty|penalties|assessments?)[ \t]+(?i:of[ \t]+|in[ \t]+the[ \t]+amount[ \t]+of[ \t]+)?\$[ \t]?([0-9][0-9,]*(?:\.[0-9]{2})?)`),
			regexp.MustCompile(`\$[ \t]?([0-9][0-9,]*(?:\.[0-9]{2})?)[ \t]+(?i:civil[ \t]+)?(?i:fine|penalty|assessment)`),
		},
		ComplianceOrder: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:order(?:ed)?|direct(?:ed)?|requires?|required)[ \t]+(?:to[ \t]+)?(?:comply|bring[ \t]+(?:\w+[ \t]+)?into[ \t]+compliance)`),
			regexp.MustCompile(`(?i)\bcompliance[ \t]+(?:order|directive)`),
			regexp.MustCompile(`(?i)\b(?:must|shall)[ \t]+(?:comply|bring[ \t]+(?:\w+[ \t]+)?into[ \t]+compliance)`),
		},
		CeaseAndDesist: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bcease[ \t]+and[ \t]+desist`),
			regexp.MustCompile(`(?i)\bstop[ \t]+(?:and[ \t]+)?(?:cease|desist)`),
			regexp.MustCompile(`(?i)\bdiscontinue[ \t]+(?:the[ \t]+)?(?:practice|activity|conduct)`),
		},
		Sanctions: []KeywordRule{
			{"revocation", regexp.MustCompile(`(?i)\brevo(?:ke|ked|cation)\b`)},
			{"suspension", regexp.MustCompile(`(?i)\bsuspen(?:d|ded|sion)\b`)},
			{"probation", regexp.MustCompile(`(?i)\bprobation(?:ary)?\b`)},
			{"censure", regexp.MustCompile(`(?i)\b(?:censure|reprimand)\b`)},
			{"civil_penalty", regexp.MustCompile(`(?i)\bcivil[ \t]+penalt(?:y|ies)\b`)},
			{"continuing_education", regexp.MustCompile(`(?i)\bcontinuing[ \t]+education\b|\bCE[ \t]+hours\b`)},
		},
		ViolationTypes: []KeywordRule{
			{"misrepresentation", regexp.MustCompile(`(?i)misrepresent|false[ \t]+(?:statement|representation|information)|misleading`)},
			{"trust_account", regexp.MustCompile(`(?i)trust[ \t]+account|escrow|client[ \t]+funds`)},
			{"unlicensed_activity", regexp.MustCompile(`(?i)unlicensed|without[ \t]+a?[ \t]*license|license[ \t]+required`)},
			{"failure_to_disclose", regexp.MustCompile(`(?i)fail(?:ed|ure)?[ \t]+to[ \t]+disclose|non-disclosure|concealment`)},
			{"negligence", regexp.MustCompile(`(?i)negligen|breach[ \t]+of[ \t]+duty|standard[ \t]+of[ \t]+care`)},
			{"fraud", regexp.MustCompile(`(?i)\bfraud|deceptive|\bartifice\b`)},
			{"assessment_dispute", regexp.MustCompile(`(?i)\bassessments?\b|\blate[ \t]+fees?\b`)},
			{"open_meeting", regexp.MustCompile(`(?i)open[ \t]+meeting|board[ \t]+meeting`)},
			{"records_request", regexp.MustCompile(`(?i)records[ \t]+request|(?:inspect|examine)[ \t]+(?:the[ \t]+)?records`)},
		},

		Orders: []*regexp.Regexp{
			regexp.MustCompile(`(?i:IT[ \t]+IS[ \t]+(?:HEREBY[ \t]+)?(?:FURTHER[ \t]+)?ORDERED)[ \t]*(?i:that[ \t]+)?` + paragraph),
			regexp.MustCompile(`(?m)^[ \t]*ORDERS?[ \t]*:[ \t]*\n\s*` + paragraph),
			regexp.MustCompile(`(?i:hereby[ \t]+orders?\b)(?:[ \t]+(?i:as[ \t]+follows))?[ \t]*:?\s*` + paragraph),
		},
		FindingsHeading:    regexp.MustCompile(`(?m)^[ \t]*FINDINGS[ \t]+OF[ \t]+FACT[ \t]*:?[ \t]*$`),
		ConclusionsHeading: regexp.MustCompile(`(?m)^[ \t]*CONCLUSIONS[ \t]+OF[ \t]+LAW[ \t]*:?[ \t]*$`),
		SectionEnd:         regexp.MustCompile(`(?m)^[ \t]*(?:FINDINGS[ \t]+OF[ \t]+FACT|CONCLUSIONS[ \t]+OF[ \t]+LAW|(?:RECOMMENDED[ \t]+|FINAL[ \t]+)?ORDER|DECISION|NOTICE[ \t]+OF[ \t]+APPEAL)[ \t]*:?[ \t]*$`),
		NumberedParagraph:  regexp.MustCompile(`(?m)^[ \t]*(\d{1,3})\.[ \t]+(\S[^\n]*)`),
		InlineFinding:      regexp.MustCompile(`(?i:finding[ \t]+of[ \t]+fact|finding)[ \t]*(?i:no\.|#)?[ \t]*(\d{1,3})[ \t]*[:.][ \t]*([^\n]+)`),
		InlineConclusion:   regexp.MustCompile(`(?i:conclusion[ \t]+of[ \t]+law|conclusion)[ \t]*(?i:no\.|#)?[ \t]*(\d{1,3})[ \t]*[:.][ \t]*([^\n]+)`),

		RoleDates: []DatePattern{
			{regexp.MustCompile(`(?i:hearing[ \t]+(?:was[ \t]+)?(?:held|conducted|convened)[ \t]+on|heard[ \t]+on|hearing[ \t]+date[ \t]*:?|hearing[ \t]+on)[ \t]*` + dateToken), DateRoleHearing},
			{regexp.MustCompile(`(?i:dated|issued|entered|done|signed)[ \t]+(?i:this[ \t]+|on[ \t]+)?` + dateToken), DateRoleDecision},
			{regexp.MustCompile(`(?i:filed[ \t]+on|filing[ \t]+date[ \t]*:?|date[ \t]+filed[ \t]*:?|petition[ \t]+was[ \t]+filed[ \t]+on|received[ \t]+on)[ \t]*` + dateToken), DateRoleFiling},
		},
		GenericDate: regexp.MustCompile(dateToken),

		DocTypeMarkers: []DocTypeMarker{
			{models.DocTypeFinalOrder, regexp.MustCompile(`\b(?:FINAL[ \t]+ORDER|ORDER[ \t]+AND[ \t]+DECISION|DECISION[ \t]+AND[ \t]+ORDER|FINAL[ \t]+ADMINISTRATIVE[ \t]+DECISION)\b`)},
			{models.DocTypeFindingsOfFact, regexp.MustCompile(`\b(?:FINDINGS[ \t]+OF[ \t]+FACT|FINDINGS[ \t]+AND[ \t]+CONCLUSIONS)\b`)},
			{models.DocTypeSettlement, regexp.MustCompile(`\b(?:CONSENT[ \t]+ORDER|SETTLEMENT[ \t]+AGREEMENT|CONSENT[ \t]+AGREEMENT)\b`)},
			{models.DocTypeDismissal, regexp.MustCompile(`\b(?:ORDER[ \t]+OF[ \t]+DISMISSAL|ORDER[ \t]+DISMISSING|DISMISSAL)\b`)},
			{models.DocTypeSummaryJudgment, regexp.MustCompile(`\bSUMMARY[ \t]+JUDGMENT\b`)},
			{models.DocTypeMotion, regexp.MustCompile(`\bMOTION[ \t]+(?:FOR|TO)\b`)},
			{models.DocTypeNoticeOfHearing, regexp.MustCompile(`\b(?:NOTICE[ \t]+OF[ \t]+HEARING|HEARING[ \t]+NOTICE)\b`)},
			{models.DocTypeComplaint, regexp.MustCompile(`\b(?:COMPLAINT|PETITION)\b`)},
		},
		FilenameHints: []FilenameHint{
			{models.DocTypeSummaryJudgment, []string{"summary judgment", "summary_judgment", "summary-judgment", "msj"}},
			{models.DocTypeSettlement, []string{"settlement", "consent"}},
			{models.DocTypeDismissal, []string{"dismiss"}},
			{models.DocTypeFindingsOfFact, []string{"finding"}},
			{models.DocTypeMotion, []string{"motion"}},
			{models.DocTypeNoticeOfHearing, []string{"notice"}},
			{models.DocTypeComplaint, []string{"complaint", "petition"}},
			{models.DocTypeFinalOrder, []string{"order", "decision"}},
		},

		QueryEntityName: regexp.MustCompile(`\b([A-Z][a-z'’-]+(?:[ \t]+[A-Z]\.)?(?:[ \t]+[A-Z][a-z'’-]+){1,2})\b`),
		QueryCitations: []*regexp.Regexp{
			regexp.MustCompile(`\b(?i:A\.R\.S\.?|ARS)\s*(?:§+\s*)?` + citationNo),
			regexp.MustCompile(`\b(?i:A\.A\.C\.?|AAC)\s*(?:§+\s*)?R?\s*` + citationNo),
		},
		CitationInText: []*regexp.Regexp{
			regexp.MustCompile(`(?i:A\.R\.S\.?|Arizona[ \t]+Revised[ \t]+Statutes?)\s*§*\s*\d+\s*[-–—‐‑‒−]\s*\d+[A-Za-z]?(?:\.[0-9A-Za-z]+)*`),
			regexp.MustCompile(`(?i:A\.A\.C\.?|Arizona[ \t]+Administrative[ \t]+Code)\s*R?\s*\d+\s*[-–—‐‑‒−]\s*\d+(?:\s*[-–—‐‑‒−]\s*\d+)*`),
		},
	}
}

// firstSubmatch returns the first capture group of the first matching pattern
func firstSubmatch(patterns []*regexp.Regexp, text string) (string, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil && len(m) > 1 && m[1] != "" {
			return m[1], true
		}
	}
	return "", false
}
