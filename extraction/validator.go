package extraction

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NameValidator is the precision gate for captured names. A candidate is rejected when
// it is too short, has too few words, contains a stop term, is an all-caps header or is
// an overlong capture.
type NameValidator struct {
	MinLength int
	MinWords  int
	MaxLength int
	// AllCapsLimit rejects all-uppercase candidates longer than this many letters; zero disables the check.
	AllCapsLimit int
	StopTerms    map[string]struct{}
}

func stopTermSet(terms ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return set
}

// PersonNameValidator validates attorney, judge and query-entity names
func PersonNameValidator() NameValidator {
	return NameValidator{
		MinLength:    5,
		MinWords:     2,
		MaxLength:    50,
		AllCapsLimit: 4,
		StopTerms: stopTermSet(
			"copy", "order", "orders", "ordered", "decision", "arizona", "department", "transmitted",
			"page", "association", "homeowners", "respondent", "respondents", "petitioner",
			"petitioners", "represented", "appeared", "behalf", "office", "administrative",
			"hearings", "real", "estate", "findings", "conclusions", "matter", "case", "docket",
			"counsel", "law", "judge", "hearing", "officer", "state", "statutes", "revised", "code",
		),
	}
}

// PartyNameValidator validates petitioner and respondent names, which are often
// upper-case captions
func PartyNameValidator() NameValidator {
	return NameValidator{
		MinLength: 3,
		MinWords:  2,
		MaxLength: 100,
		StopTerms: stopTermSet(
			"respondent", "respondents", "petitioner", "petitioners", "complainant", "complainants",
			"matter", "case", "docket", "page", "findings", "hearing", "judge",
		),
	}
}

// Valid reports whether name passes every rule
func (v NameValidator) Valid(name string) bool {
	_, ok := v.Check(name)
	return ok
}

// Check validates name and returns the rule that rejected it
func (v NameValidator) Check(name string) (string, bool) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if name == "" || n < v.MinLength {
		return "too_short", false
	}
	if v.MaxLength > 0 && n > v.MaxLength {
		return "too_long", false
	}

	words := strings.Fields(name)
	if len(words) < v.MinWords {
		return "too_few_words", false
	}

	for _, w := range words {
		term := strings.ToLower(strings.Trim(w, ".,;:'’()"))
		if _, stop := v.StopTerms[term]; stop {
			return "stop_term", false
		}
	}

	if v.AllCapsLimit > 0 && isAllCaps(name) && letterCount(name) > v.AllCapsLimit {
		return "all_caps", false
	}
	return "", true
}

func isAllCaps(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func letterCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// leadingNoise are words a capture can pick up in front of the actual name
var leadingNoise = stopTermSet(
	"the", "a", "an", "before", "honorable", "hon", "judge", "attorney", "counsel", "by", "for",
	"and", "against", "in", "of", "matter", "respondent", "respondents", "petitioner",
	"petitioners", "complainant", "v", "vs", "dated", "copy", "to", "from", "mr", "ms", "mrs",
	"dr", "tell", "about", "what", "did", "who", "is", "was", "show", "find", "list",
)

// CleanName collapses whitespace, drops leading noise words and trims trailing punctuation
func CleanName(name string) string {
	words := strings.Fields(name)
	for len(words) > 0 {
		w := strings.ToLower(strings.Trim(words[0], ".,;:"))
		if _, noise := leadingNoise[w]; !noise {
			break
		}
		words = words[1:]
	}
	return strings.TrimRight(strings.Join(words, " "), ".,;: ")
}
