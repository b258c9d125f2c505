package extraction

import (
	"strings"

	"legalrag-backend/models"
)

// Authority is the precedence attached to a document type
type Authority struct {
	Weight  float64 `json:"weight"`
	Primary bool    `json:"primary"`
}

// Classification is the classifier result for one document
type Classification struct {
	Type         models.DocumentType `json:"type"`
	Authority    Authority           `json:"authority"`
	FromFilename bool                `json:"from_filename"`
}

// AuthorityFor returns the fixed authority scale for a document type
func AuthorityFor(t models.DocumentType) Authority {
	switch t {
	case models.DocTypeFinalOrder:
		return Authority{Weight: 3.0, Primary: true}
	case models.DocTypeFindingsOfFact:
		return Authority{Weight: 2.5, Primary: true}
	case models.DocTypeSettlement:
		return Authority{Weight: 2.0}
	default:
		return Authority{Weight: 1.0}
	}
}

// Classifier assigns a document type and authority weight
type Classifier struct {
	patterns *PatternLibrary
}

// NewClassifier creates a classifier over the given pattern library
func NewClassifier(patterns *PatternLibrary) *Classifier {
	if patterns == nil {
		patterns = NewPatternLibrary()
	}
	return &Classifier{patterns: patterns}
}

// Classify never fails; unclassifiable documents are unknown with the lowest weight.
// Body headings override the filename hint.
func (c *Classifier) Classify(text, filename string) Classification {
	for _, marker := range c.patterns.DocTypeMarkers {
		if marker.Regex.MatchString(text) {
			return Classification{Type: marker.Type, Authority: AuthorityFor(marker.Type)}
		}
	}

	lower := strings.ToLower(filename)
	for _, hint := range c.patterns.FilenameHints {
		for _, kw := range hint.Keywords {
			if strings.Contains(lower, kw) {
				return Classification{Type: hint.Type, Authority: AuthorityFor(hint.Type), FromFilename: true}
			}
		}
	}

	return Classification{Type: models.DocTypeUnknown, Authority: AuthorityFor(models.DocTypeUnknown)}
}
