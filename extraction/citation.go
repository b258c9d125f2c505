package extraction

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var (
	// \s is ASCII only; \p{Z} adds no-break, em and other Unicode spaces
	whitespaceRun   = regexp.MustCompile(`[\s\p{Z}]+`)
	dashVariant     = regexp.MustCompile(`[\s\p{Z}]*[-‐‑‒–—−][\s\p{Z}]*`)
	repeatedSection = regexp.MustCompile(`§(?:[\s\p{Z}]*§)+`)
	sectionSpacing  = regexp.MustCompile(`§[\s\p{Z}]*`)
)

// NormalizeCitation canonicalizes a citation for equality comparison: whitespace is
// collapsed, dash variants become "-" without surrounding spaces, repeated section
// symbols collapse to one followed by a single space, and trailing periods are dropped.
// NormalizeCitation(NormalizeCitation(s)) == NormalizeCitation(s).
func NormalizeCitation(s string) string {
	s = strings.TrimFunc(s, isCitationSpace)
	if s == "" {
		return ""
	}
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = dashVariant.ReplaceAllString(s, "-")
	s = repeatedSection.ReplaceAllString(s, "§")
	s = sectionSpacing.ReplaceAllString(s, "§ ")
	return strings.TrimRightFunc(s, func(r rune) bool { return r == '.' || isCitationSpace(r) })
}

func isCitationSpace(r rune) bool {
	return unicode.IsSpace(r) || unicode.Is(unicode.Z, r)
}

// CitationKey is the case-insensitive comparison form of a normalized citation
func CitationKey(s string) string {
	return strings.ToLower(NormalizeCitation(s))
}

// FindCitations returns the normalized citations of known authorities found in text,
// deduplicated and in order of appearance
func (p *PatternLibrary) FindCitations(text string) []string {
	type hit struct {
		pos      int
		citation string
	}
	var hits []hit
	for _, re := range p.CitationInText {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			hits = append(hits, hit{loc[0], text[loc[0]:loc[1]]})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	seen := make(map[string]bool, len(hits))
	var out []string
	for _, h := range hits {
		c := NormalizeCitation(h.citation)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
