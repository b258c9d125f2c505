package extraction

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag-backend/models"
)

const sampleDecision = `OFFICE OF ADMINISTRATIVE HEARINGS
Case No. 24F-H036-REL

John Doe,
Petitioner,
v.
Sunset Hills Homeowners Association,
Respondent.

The hearing was held on March 5, 2024 before Jane A. Smith, Administrative Law Judge.

Mary Jones, Esq. appeared on behalf of Respondent.
Petitioner appeared on his own behalf.

FINDINGS OF FACT

1. Respondent failed to comply with A.R.S. § 32-2153.
2. The Association violated A.R.S.  §  32 – 2153 by refusing records.

CONCLUSIONS OF LAW

1. Respondent violated CC&Rs Section 3.1.

ORDER

IT IS ORDERED that Respondent shall pay a civil penalty of $500.00 and comply with A.R.S. § 32-2153.

Dated this 1st day of April, 2024.
`

func TestExtractor_Extract_Decision(t *testing.T) {
	e := NewExtractor(NewPatternLibrary())

	rec := e.Extract(sampleDecision, "decision_2024.txt")

	assert.Equal(t, "24F-H036-REL", rec.CaseNumber)
	assert.Equal(t, "24F-H036-REL", rec.AgencyCaseNumber)

	assert.Equal(t, "John Doe", rec.Petitioner.Name)
	assert.Equal(t, models.PartyTypeHomeowner, rec.Petitioner.Type)
	assert.Equal(t, "Sunset Hills Homeowners Association", rec.Respondent.Name)
	assert.Equal(t, models.PartyTypeHOA, rec.Respondent.Type)
	assert.Equal(t, "Sunset Hills Homeowners Association", rec.OrganizationName)

	assert.Equal(t, "Mary Jones", rec.RespondentCounsel.Attorney)
	assert.False(t, rec.RespondentCounsel.ProSe)
	assert.Empty(t, rec.PetitionerCounsel.Attorney)
	assert.True(t, rec.PetitionerCounsel.ProSe)
	assert.Empty(t, rec.UnassignedAttorneys)

	assert.Equal(t, models.Judge{Name: "Jane A. Smith", Role: models.JudgeRoleALJ}, rec.Judge)

	assert.Equal(t, []string{"A.R.S. § 32-2153"}, rec.Violations.Get(models.ViolationStatute))
	assert.Equal(t, []string{"CC&R Section 3.1"}, rec.Violations.Get(models.ViolationCCR))

	assert.Equal(t, []string{"$500.00"}, rec.Penalties.MonetaryFines)
	assert.Contains(t, rec.Penalties.Sanctions, "civil_penalty")

	require.Len(t, rec.Orders, 1)
	assert.True(t, strings.HasPrefix(rec.Orders[0], "Respondent shall pay a civil penalty"))
	assert.Equal(t, models.RulingFavorPetitioner, rec.Ruling)

	require.Len(t, rec.FindingsOfFact, 2)
	assert.True(t, strings.HasPrefix(rec.FindingsOfFact[0], "Finding 1: Respondent failed"))
	require.Len(t, rec.ConclusionsOfLaw, 1)
	assert.Equal(t, "Conclusion 1: Respondent violated CC&Rs Section 3.1.", rec.ConclusionsOfLaw[0])

	require.NotNil(t, rec.HearingDate)
	assert.True(t, rec.HearingDate.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, rec.DecisionDate)
	assert.True(t, rec.DecisionDate.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, rec.FilingDate)

	assert.Equal(t, models.DocTypeFindingsOfFact, rec.DocumentType)
	assert.Equal(t, 2.5, rec.AuthorityWeight)
	assert.True(t, rec.IsPrimaryAuthority)
}

func TestExtractor_Extract_CaseNumberFallback(t *testing.T) {
	e := NewExtractor(nil)

	tests := []struct {
		name     string
		text     string
		filename string
		want     string
	}{
		{name: "filename token", filename: "docs/24F-H036-REL-RHG decision.docx", want: "24F-H036-REL-RHG"},
		{name: "filename without extension", filename: "random_doc.pdf", want: "random_doc"},
		{name: "nothing at all", want: "unknown"},
		{name: "text beats filename", text: "ADRE Case No. 23A-B123", filename: "24F-H036-REL.txt", want: "23A-B123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.Extract(tt.text, tt.filename)
			assert.Equal(t, tt.want, rec.CaseNumber)
		})
	}
}

func TestExtractor_AgencyLabelRequired(t *testing.T) {
	e := NewExtractor(nil)

	tests := []struct {
		name       string
		text       string
		wantCase   string
		wantAgency string
	}{
		{
			name:       "unlabelled ADRE mention",
			text:       "The ADRE 45 day deadline applies. Case No. 24F-H036-REL",
			wantCase:   "24F-H036-REL",
			wantAgency: "24F-H036-REL",
		},
		{
			name:       "agency number kept beside docket case number",
			text:       "ADRE No. 2023-0112\nCase No. 24F-H036-REL",
			wantCase:   "24F-H036-REL",
			wantAgency: "2023-0112",
		},
		{
			name:       "agency number alone",
			text:       "ADRE Case # H-77123",
			wantCase:   "H-77123",
			wantAgency: "H-77123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.Extract(tt.text, "upload.txt")
			assert.Equal(t, tt.wantCase, rec.CaseNumber)
			assert.Equal(t, tt.wantAgency, rec.AgencyCaseNumber)
		})
	}
}

func TestExtractor_Extract_NeverPanics(t *testing.T) {
	e := NewExtractor(nil)
	inputs := []string{
		"",
		"\x00\xff\xfe garbage \x80",
		strings.Repeat("IT IS ORDERED ", 500),
		strings.Repeat("A.R.S. § ", 200),
		"FINDINGS OF FACT",
		"Petitioner:\nRespondent:\n",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			rec := e.Extract(in, "")
			assert.NotEmpty(t, rec.CaseNumber)
		})
	}
}

func TestExtractor_AttorneyDefaulting(t *testing.T) {
	e := NewExtractor(nil)

	t.Run("single unlabeled attorney goes to respondent", func(t *testing.T) {
		rec := e.Extract("Robert Brown, Esq.\n", "x.txt")
		assert.Equal(t, "Robert Brown", rec.RespondentCounsel.Attorney)
		assert.Empty(t, rec.PetitionerCounsel.Attorney)
	})

	t.Run("two unlabeled attorneys go petitioner then respondent", func(t *testing.T) {
		text := "Alice Green, Esq.\nGreen Law Group\nagreen@greenlaw.com\nState Bar No. 012345\n\nRobert Brown, Esq.\n"
		rec := e.Extract(text, "x.txt")
		assert.Equal(t, "Alice Green", rec.PetitionerCounsel.Attorney)
		assert.Equal(t, "Green Law Group", rec.PetitionerCounsel.Firm)
		assert.Equal(t, "agreen@greenlaw.com", rec.PetitionerCounsel.Email)
		assert.Equal(t, "012345", rec.PetitionerCounsel.BarNumber)
		assert.Equal(t, "Robert Brown", rec.RespondentCounsel.Attorney)
		assert.Empty(t, rec.RespondentCounsel.Email)
	})

	t.Run("three or more stay unassigned", func(t *testing.T) {
		text := "Alice Green, Esq.\n\nRobert Brown, Esq.\n\nCarl Black, Esq.\n"
		rec := e.Extract(text, "x.txt")
		assert.Empty(t, rec.PetitionerCounsel.Attorney)
		assert.Empty(t, rec.RespondentCounsel.Attorney)
		assert.Equal(t, []string{"Alice Green", "Robert Brown", "Carl Black"}, rec.UnassignedAttorneys)
	})

	t.Run("assistant attorney general fills petitioner", func(t *testing.T) {
		rec := e.Extract("Carol White, Assistant Attorney General\n", "x.txt")
		assert.Equal(t, "Carol White", rec.AssistantAttorneyGeneral)
		assert.Equal(t, "Carol White", rec.PetitionerCounsel.Attorney)
	})

	t.Run("labelled attorney wins", func(t *testing.T) {
		rec := e.Extract("Robert Brown, Esq. for Petitioner\n", "x.txt")
		assert.Equal(t, "Robert Brown", rec.PetitionerCounsel.Attorney)
		assert.Empty(t, rec.RespondentCounsel.Attorney)
	})
}

func TestExtractor_ViolationsDeduplicatedAcrossFormats(t *testing.T) {
	e := NewExtractor(nil)
	text := "Case No. 24F-H036-REL\nRespondent violated A.R.S. § 32-2153.\n" +
		"Later the Board again cited A.R.S.   §   32 — 2153 and the Bylaws and the CC&Rs.\n"

	rec := e.Extract(text, "f.txt")

	assert.Equal(t, "24F-H036-REL", rec.CaseNumber)
	assert.Equal(t, []string{"A.R.S. § 32-2153"}, rec.Violations.Get(models.ViolationStatute))
	assert.Equal(t, []string{"Bylaws"}, rec.Violations.Get(models.ViolationBylaws))
	assert.Equal(t, []string{"CC&R"}, rec.Violations.Get(models.ViolationCCR))
}

func TestExtractor_GenericDateUsesContext(t *testing.T) {
	e := NewExtractor(nil)
	rec := e.Extract("The matter was filed 01/15/2024 with the Department.", "f.txt")

	require.NotNil(t, rec.FilingDate)
	assert.True(t, rec.FilingDate.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, rec.HearingDate)
	assert.Nil(t, rec.DecisionDate)
}

func TestExtractor_RoleDateNotReusedByContext(t *testing.T) {
	e := NewExtractor(nil)
	rec := e.Extract("The hearing was held on March 5, 2024, and the judge issued the decision later.", "f.txt")

	require.NotNil(t, rec.HearingDate)
	assert.True(t, rec.HearingDate.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, rec.DecisionDate)
	assert.Nil(t, rec.FilingDate)

	// an unlabelled date next to the labelled one still gets its context role
	rec = e.Extract("The hearing was held on March 5, 2024. The decision followed on 04/01/2024.", "f.txt")
	require.NotNil(t, rec.DecisionDate)
	assert.True(t, rec.DecisionDate.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func TestInferRuling(t *testing.T) {
	tests := []struct {
		name      string
		orders    []string
		penalties models.Penalties
		want      models.Ruling
	}{
		{name: "nothing extracted", want: models.RulingUnknown},
		{name: "dismissal wins", orders: []string{"The petition is dismissed."},
			penalties: models.Penalties{MonetaryFines: []string{"$100"}, Descriptions: []string{"Monetary fine: $100"}},
			want:      models.RulingFavorRespondent},
		{name: "fine favors petitioner",
			penalties: models.Penalties{MonetaryFines: []string{"$100"}, Descriptions: []string{"Monetary fine: $100"}},
			want:      models.RulingFavorPetitioner},
		{name: "compliance favors petitioner", orders: []string{"Respondent shall comply."},
			penalties: models.Penalties{ComplianceOrder: true, Descriptions: []string{"Compliance order issued"}},
			want:      models.RulingFavorPetitioner},
		{name: "order without penalty is mixed", orders: []string{"Each party bears its own costs."}, want: models.RulingMixed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferRuling(tt.orders, tt.penalties))
		})
	}
}
