package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DocumentType represents the classified type of a case document
type DocumentType string

const (
	DocTypeFinalOrder      DocumentType = "final_order"
	DocTypeFindingsOfFact  DocumentType = "findings_of_fact"
	DocTypeSettlement      DocumentType = "settlement"
	DocTypeDismissal       DocumentType = "dismissal"
	DocTypeSummaryJudgment DocumentType = "summary_judgment"
	DocTypeMotion          DocumentType = "motion"
	DocTypeNoticeOfHearing DocumentType = "notice_of_hearing"
	DocTypeComplaint       DocumentType = "complaint"
	DocTypeUnknown         DocumentType = "unknown"
)

// Ruling is a coarse outcome classification
type Ruling string

const (
	RulingFavorPetitioner Ruling = "favor_petitioner"
	RulingFavorRespondent Ruling = "favor_respondent"
	RulingMixed           Ruling = "mixed"
	RulingUnknown         Ruling = "unknown"
)

// RulingHeuristicNote is attached to every API response that exposes a ruling.
const RulingHeuristicNote = "ruling is inferred by a keyword heuristic over extracted orders and penalties; it is approximate and not a verified legal outcome"

// PartyType describes what kind of party a petitioner or respondent is
type PartyType string

const (
	PartyTypeHomeowner         PartyType = "homeowner"
	PartyTypeHOA               PartyType = "hoa"
	PartyTypeManagementCompany PartyType = "management_company"
	PartyTypeDepartment        PartyType = "department"
	PartyTypeUnknown           PartyType = "unknown"
)

// JudgeRole distinguishes administrative law judges from hearing officers
type JudgeRole string

const (
	JudgeRoleALJ            JudgeRole = "administrative_law_judge"
	JudgeRoleHearingOfficer JudgeRole = "hearing_officer"
	JudgeRoleUnspecified    JudgeRole = "unspecified"
)

// Party is a named side of a case
type Party struct {
	Name string    `json:"name,omitempty"`
	Type PartyType `json:"type"`
}

// Representation holds counsel details for one side
type Representation struct {
	Attorney  string `json:"attorney,omitempty"`
	Firm      string `json:"firm,omitempty"`
	BarNumber string `json:"bar_number,omitempty"`
	Email     string `json:"email,omitempty"`
	ProSe     bool   `json:"pro_se"`
}

// Judge is the presiding officer of a case
type Judge struct {
	Name string    `json:"name,omitempty"`
	Role JudgeRole `json:"role"`
}

// Penalties holds penalty and order information extracted from a document
type Penalties struct {
	Descriptions    []string `json:"descriptions"`
	MonetaryFines   []string `json:"monetary_fines"`
	ComplianceOrder bool     `json:"compliance_order"`
	CeaseAndDesist  bool     `json:"cease_and_desist"`
	Sanctions       []string `json:"sanctions"`
}

// Empty reports whether no penalty of any kind was found
func (p Penalties) Empty() bool {
	return len(p.Descriptions) == 0 && len(p.MonetaryFines) == 0 && len(p.Sanctions) == 0 &&
		!p.ComplianceOrder && !p.CeaseAndDesist
}

// Value implements driver.Valuer for JSONB
func (p Penalties) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB
func (p *Penalties) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		*p = Penalties{}
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*p = Penalties{}
		return nil
	}
	if len(bytes) == 0 {
		*p = Penalties{}
		return nil
	}
	return json.Unmarshal(bytes, p)
}

// CaseRecord is the structured extraction result for one source document
type CaseRecord struct {
	ID             uuid.UUID `json:"id"`
	ContentHash    string    `json:"content_hash"`
	Collection     string    `json:"collection"`
	SourceFilename string    `json:"source_filename"`

	CaseNumber       string `json:"case_number"`
	DocketNumber     string `json:"docket_number,omitempty"`
	AgencyCaseNumber string `json:"agency_case_number,omitempty"`

	Petitioner       Party  `json:"petitioner"`
	Respondent       Party  `json:"respondent"`
	OrganizationName string `json:"organization_name,omitempty"`
	ManagingAgent    string `json:"managing_agent,omitempty"`

	PetitionerCounsel        Representation `json:"petitioner_counsel"`
	RespondentCounsel        Representation `json:"respondent_counsel"`
	AssistantAttorneyGeneral string         `json:"assistant_attorney_general,omitempty"`
	UnassignedAttorneys      []string       `json:"unassigned_attorneys,omitempty"`

	Judge Judge `json:"judge"`

	Violations       Violations `json:"violations"`
	ViolationTypes   []string   `json:"violation_types,omitempty"`
	LicenseNumber    string     `json:"license_number,omitempty"`
	Penalties        Penalties  `json:"penalties"`
	Orders           []string   `json:"orders,omitempty"`
	FindingsOfFact   []string   `json:"findings_of_fact,omitempty"`
	ConclusionsOfLaw []string   `json:"conclusions_of_law,omitempty"`

	DocumentType       DocumentType `json:"document_type"`
	Ruling             Ruling       `json:"ruling"`
	AuthorityWeight    float64      `json:"authority_weight"`
	IsPrimaryAuthority bool         `json:"is_primary_authority"`

	HearingDate  *time.Time `json:"hearing_date,omitempty"`
	DecisionDate *time.Time `json:"decision_date,omitempty"`
	FilingDate   *time.Time `json:"filing_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Citations returns every violation citation of the record in category order
func (r *CaseRecord) Citations() []string {
	return r.Violations.All()
}
