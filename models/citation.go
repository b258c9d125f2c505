package models

// CitationEdge links a stored document to a citation it contains.
// Edges are derived from case records on demand.
type CitationEdge struct {
	Collection  string `json:"collection"`
	Source      string `json:"source"`
	CaseNumber  string `json:"case_number"`
	ContentHash string `json:"content_hash"`
	Citation    string `json:"citation"`
}
