package models

// MatchRecord is one row of the match ledger. Cascade output carries exactly
// one of NegativeID or PositiveID; consolidated rows may carry both.
type MatchRecord struct {
	CustomerID    int64   `json:"customer_id" yaml:"customer_id"`
	NegativeID    *int64  `json:"negative_id,omitempty" yaml:"negative_id,omitempty"`
	PositiveID    *int64  `json:"positive_id,omitempty" yaml:"positive_id,omitempty"`
	MatchCriteria string  `json:"match_criteria" yaml:"match_criteria"`
	MatchScore    float64 `json:"match_score" yaml:"match_score"`
	Stage         Stage   `json:"stage" yaml:"stage"`
	Rank          int     `json:"rank" yaml:"rank"`
	// ReferenceRow is the 1-based position of the matched row in its
	// reference list, 0 when unknown. Ids are not unique across rows.
	ReferenceRow int `json:"-" yaml:"-"`
}

// Side returns the reference list the row points at. Rows carrying both ids
// report ListNegative.
func (m MatchRecord) Side() ListKind {
	if m.NegativeID != nil {
		return ListNegative
	}
	return ListPositive
}

// ReferenceID returns the id on the row's side
func (m MatchRecord) ReferenceID() int64 {
	if m.NegativeID != nil {
		return *m.NegativeID
	}
	if m.PositiveID != nil {
		return *m.PositiveID
	}
	return 0
}

// HasBothSides reports whether the row references both watchlists
func (m MatchRecord) HasBothSides() bool {
	return m.NegativeID != nil && m.PositiveID != nil
}

// ScoredMatch is a ledger row with its composite similarity score
type ScoredMatch struct {
	MatchRecord
	CompositeScore float64 `json:"composite_score" yaml:"composite_score"`
}

// Int64 is a helper for building optional ids
func Int64(v int64) *int64 {
	return &v
}
