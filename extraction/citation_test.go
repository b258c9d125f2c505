package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCitation(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "already canonical", in: "A.R.S. § 32-2153", want: "A.R.S. § 32-2153"},
		{name: "extra whitespace", in: "  A.R.S.   §   32-2153  ", want: "A.R.S. § 32-2153"},
		{name: "en dash with spaces", in: "A.R.S. § 32 – 2153", want: "A.R.S. § 32-2153"},
		{name: "em dash", in: "A.R.S. § 32—2153", want: "A.R.S. § 32-2153"},
		{name: "repeated section symbol", in: "A.R.S. §§ 32-2153", want: "A.R.S. § 32-2153"},
		{name: "no space after section", in: "A.R.S. §32-2153", want: "A.R.S. § 32-2153"},
		{name: "trailing period", in: "A.R.S. § 32-2153.", want: "A.R.S. § 32-2153"},
		{name: "regulation", in: "A.A.C. R4 - 28 - 301.", want: "A.A.C. R4-28-301"},
		{name: "newline inside", in: "A.R.S. §\n32-2153", want: "A.R.S. § 32-2153"},
		{name: "empty", in: "   ", want: ""},
		{name: "no-break spaces", in: "A.R.S.\u00a0§\u00a032-2153", want: "A.R.S. § 32-2153"},
		{name: "em space before period", in: "A.R.S. § 32-2153\u2003.", want: "A.R.S. § 32-2153"},
		{name: "no-break space around dash", in: "A.R.S. § 32\u00a0–\u00a02153", want: "A.R.S. § 32-2153"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCitation(tt.in))
		})
	}
}

func TestNormalizeCitation_Idempotent(t *testing.T) {
	inputs := []string{
		"A.R.S. § 32-2153",
		" A.R.S.  §§ 32 –  2153 . ",
		"A.A.C. R4-28-1101.",
		"CC&R Section 3.1.",
		"§ § §",
		"x - - y",
		"Bylaws  ",
		"a. . .",
		"A.R.S. §.",
		"32‐2153 − 1",
		"32-2153 \u00a0.",
		"32-2153 \u2003.",
		"\u00a0A.R.S.\u00a0§\u00a0§\u202f32-2153\u00a0",
	}
	for _, in := range inputs {
		once := NormalizeCitation(in)
		assert.Equal(t, once, NormalizeCitation(once), "input %q", in)
	}
}

func TestCitationKey(t *testing.T) {
	assert.Equal(t, CitationKey("a.r.s. § 32-2153"), CitationKey("A.R.S. §32 – 2153."))
	assert.Equal(t, CitationKey("A.R.S. § 32-2153"), CitationKey("A.R.S.\u00a0§\u00a032-2153"))
}

func TestPatternLibrary_FindCitations(t *testing.T) {
	p := NewPatternLibrary()
	text := "Under A.R.S. § 33-1805 and A.A.C. R4-28-301, and again A.R.S. §33–1805."

	got := p.FindCitations(text)
	assert.Equal(t, []string{"A.R.S. § 33-1805", "A.A.C. R4-28-301"}, got)
}
