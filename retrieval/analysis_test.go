package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzer_QueryType(t *testing.T) {
	a := NewAnalyzer(nil)
	tests := []struct {
		query string
		want  QueryType
		focus string
	}{
		{"What does ARS 32-2153 say?", QueryStatuteLookup, "statutory_interpretation"},
		{"What happened in Smith v. Jones", QueryCaseLookup, "case_law_analysis"},
		{"Did they violate the bylaws?", QueryCompliance, "compliance_assessment"},
		{"Are there similar cases?", QueryPrecedent, "precedent_search"},
		{"How long do I have to appeal?", QueryDeadline, "temporal_requirements"},
		{"Is the ars relevant to parking", QueryStatuteLookup, "statutory_interpretation"},
		{"Tell me about HOA fees", QueryGeneral, "general"},
		{"What happened over the years 2020", QueryGeneral, "general"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := a.Analyze(tt.query)
			assert.Equal(t, tt.want, got.Type)
			assert.Equal(t, tt.focus, got.Focus)
		})
	}
}

func TestAnalyzer_CaseNumber(t *testing.T) {
	a := NewAnalyzer(nil)

	got := a.Analyze("Tell me about case 24f-h036-rel")
	assert.Equal(t, "24F-H036-REL", got.CaseNumber)
	assert.Empty(t, got.EntityName)

	cn, ok := a.CaseNumber("Decision in 23A-B123-RHG please")
	require.True(t, ok)
	assert.Equal(t, "23A-B123-RHG", cn)

	_, ok = a.CaseNumber("no identifiers here")
	assert.False(t, ok)
}

func TestAnalyzer_EntityName(t *testing.T) {
	a := NewAnalyzer(nil)

	got := a.Analyze("What did Jane Smith argue?")
	assert.Equal(t, "Jane Smith", got.EntityName)

	// stop terms reject header-like captures
	_, ok := a.EntityName("Show the Administrative Law rulings")
	assert.False(t, ok)
}

func TestAnalyzer_Citations(t *testing.T) {
	a := NewAnalyzer(nil)
	got := a.Analyze("Does ARS 32-2153 or A.A.C. R4-28-1101 apply? ARS §32–2153 again")
	assert.Equal(t, []string{"A.R.S. § 32-2153", "A.A.C. R4-28-1101"}, got.Citations)

	assert.Empty(t, a.Analyze("What happened over the years 2020").Citations)
}

func TestAnalyzer_ExpandedTerms(t *testing.T) {
	a := NewAnalyzer(nil)
	got := a.Analyze("breach of the CC&Rs by the HOA")
	assert.Equal(t, []string{
		"covenants, conditions and restrictions",
		"failure to comply",
		"homeowners association",
		"non-compliance",
		"violation",
	}, got.ExpandedTerms)
	assert.Equal(t, "breach of the CC&Rs by the HOA (covenants, conditions and restrictions, failure to comply, homeowners association, non-compliance, violation)", got.ExpandedQuery())

	plain := a.Analyze("pool hours")
	assert.Nil(t, plain.ExpandedTerms)
	assert.Equal(t, "pool hours", plain.ExpandedQuery())
}

func TestAnalyzer_Temporal(t *testing.T) {
	a := NewAnalyzer(nil)

	got := a.Analyze("latest rulings on parking")
	require.NotNil(t, got.Temporal)
	assert.Equal(t, "most_recent", got.Temporal.Type)

	got = a.Analyze("the hearing on March 5, 2024")
	require.NotNil(t, got.Temporal)
	assert.Equal(t, "specific_dates", got.Temporal.Type)
	assert.Equal(t, []string{"2024-03-05"}, got.Temporal.Dates)

	assert.Nil(t, a.Analyze("pool hours").Temporal)
}
