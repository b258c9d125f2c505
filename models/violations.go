package models

import (
	"database/sql/driver"
	"encoding/json"
)

// ViolationCategory tags a citation authority
type ViolationCategory string

const (
	ViolationStatute            ViolationCategory = "statute"
	ViolationRegulation         ViolationCategory = "regulation"
	ViolationCCR                ViolationCategory = "ccr"
	ViolationBylaws             ViolationCategory = "bylaws"
	ViolationDeclaration        ViolationCategory = "declaration"
	ViolationArchitectural      ViolationCategory = "architectural"
	ViolationGoverningDocuments ViolationCategory = "governing_documents"
)

// ViolationCategories lists every category in reporting order
var ViolationCategories = []ViolationCategory{
	ViolationStatute,
	ViolationRegulation,
	ViolationCCR,
	ViolationBylaws,
	ViolationDeclaration,
	ViolationArchitectural,
	ViolationGoverningDocuments,
}

// IsGoverningDocument reports whether the category refers to association documents
func (c ViolationCategory) IsGoverningDocument() bool {
	switch c {
	case ViolationCCR, ViolationBylaws, ViolationDeclaration, ViolationArchitectural, ViolationGoverningDocuments:
		return true
	}
	return false
}

// Violations maps each citation category to its ordered list of normalized citations.
// Callers are expected to pass already-normalized citations to Add.
type Violations map[ViolationCategory][]string

// Add appends citation to the category list unless it is already present.
// Reports whether the list changed.
func (v Violations) Add(category ViolationCategory, citation string) bool {
	if citation == "" {
		return false
	}
	for _, existing := range v[category] {
		if existing == citation {
			return false
		}
	}
	v[category] = append(v[category], citation)
	return true
}

// Get returns the list for a category (nil when empty)
func (v Violations) Get(category ViolationCategory) []string {
	return v[category]
}

// All flattens every list in category order
func (v Violations) All() []string {
	var out []string
	for _, category := range ViolationCategories {
		out = append(out, v[category]...)
	}
	return out
}

// Count returns the total number of citations across categories
func (v Violations) Count() int {
	n := 0
	for _, list := range v {
		n += len(list)
	}
	return n
}

// Value implements driver.Valuer for JSONB
func (v Violations) Value() (driver.Value, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

// Scan implements sql.Scanner for JSONB
func (v *Violations) Scan(value interface{}) error {
	var bytes []byte
	switch val := value.(type) {
	case nil:
		*v = make(Violations)
		return nil
	case []byte:
		bytes = val
	case string:
		bytes = []byte(val)
	default:
		*v = make(Violations)
		return nil
	}

	if len(bytes) == 0 {
		*v = make(Violations)
		return nil
	}

	out := make(Violations)
	if err := json.Unmarshal(bytes, &out); err != nil {
		return err
	}
	*v = out
	return nil
}
