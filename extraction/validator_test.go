package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersonNameValidator(t *testing.T) {
	v := PersonNameValidator()

	tests := []struct {
		name     string
		input    string
		want     bool
		wantRule string
	}{
		{name: "single word all caps header", input: "ORDER", want: false, wantRule: "too_few_words"},
		{name: "full name with initial", input: "Jane A. Smith", want: true},
		{name: "stop term prefix", input: "Respondent Jane Smith", want: false, wantRule: "stop_term"},
		{name: "too short", input: "Al B", want: false, wantRule: "too_short"},
		{name: "single word", input: "Smithson", want: false, wantRule: "too_few_words"},
		{name: "all caps two words", input: "JANE SMITH", want: false, wantRule: "all_caps"},
		{name: "short all caps allowed", input: "AB CD", want: true},
		{name: "department boilerplate", input: "Arizona Department", want: false, wantRule: "stop_term"},
		{name: "overlong capture", input: "Jane Smith And Many Other People Who Were Present At The Hearing", want: false, wantRule: "too_long"},
		{name: "hyphenated surname", input: "Mary Smith-Jones", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := v.Check(tt.input)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.wantRule, rule)
			assert.Equal(t, tt.want, v.Valid(tt.input))
		})
	}
}

func TestPartyNameValidator_AllowsCaptions(t *testing.T) {
	v := PartyNameValidator()

	assert.True(t, v.Valid("SUNSET HILLS HOMEOWNERS ASSOCIATION"))
	assert.True(t, v.Valid("John Doe"))
	assert.False(t, v.Valid("In the Matter"))
	assert.False(t, v.Valid("Petitioner John Doe"))
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Before Jane Smith", "Jane Smith"},
		{"  the Honorable  Jane   Smith, ", "Jane Smith"},
		{"Respondent Sunset Hills HOA.", "Sunset Hills HOA"},
		{"Jane A. Smith", "Jane A. Smith"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanName(tt.in), "input %q", tt.in)
	}
}
