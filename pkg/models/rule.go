package models

import (
	"fmt"
	"strings"
)

// Stage identifies which cascade produced a match
type Stage string

const (
	StageDDM Stage = "DDM" // Deterministic exact-match cascade
	StagePDM Stage = "PDM" // Blocked fuzzy-match cascade
)

// Attribute pairs a customer field with the reference field it is compared to.
// Base attributes compare the same field on both sides; transposed attributes
// cross first and last name.
type Attribute struct {
	Name      string `json:"name" yaml:"name"`
	Customer  Field  `json:"customer" yaml:"customer"`
	Reference Field  `json:"reference" yaml:"reference"`
}

// Attr builds a base attribute comparing f on both sides
func Attr(f Field) Attribute {
	return Attribute{Name: string(f), Customer: f, Reference: f}
}

// TransposedAttr builds an attribute comparing the customer field against the
// opposite name field of the reference record
func TransposedAttr(f Field) Attribute {
	other := FieldLastName
	if f == FieldLastName {
		other = FieldFirstName
	}
	return Attribute{Name: "transposed_" + string(f), Customer: f, Reference: other}
}

// DeterministicRule is one rank of the exact-match cascade
type DeterministicRule struct {
	Rank       int         `json:"rank" yaml:"rank" validate:"required,min=1"`
	Attributes []Attribute `json:"attributes" yaml:"attributes" validate:"required,min=1,dive"`
	Score      float64     `json:"score" yaml:"score" validate:"gt=0,lte=100"`
}

// Label renders the match_criteria text for rows produced by this rule
func (r DeterministicRule) Label() string {
	names := make([]string, 0, len(r.Attributes))
	for _, a := range r.Attributes {
		names = append(names, a.Name)
	}
	return fmt.Sprintf("%s RULE%d: %s", StageDDM, r.Rank, strings.Join(names, ", "))
}

// BlockedRule is one rank of the blocked fuzzy-match cascade.
// Candidates share every BlockingKey field; a candidate is accepted when every
// Exact field is equal and every Fuzzy field clears the similarity threshold.
type BlockedRule struct {
	Rank        int     `json:"rank" yaml:"rank" validate:"required,min=1"`
	BlockingKey []Field `json:"blocking_key" yaml:"blocking_key" validate:"required,min=1"`
	Exact       []Field `json:"exact" yaml:"exact" validate:"required,min=1"`
	Fuzzy       []Field `json:"fuzzy" yaml:"fuzzy" validate:"required,min=1"`
	Score       float64 `json:"score" yaml:"score" validate:"gt=0,lte=100"`
}

// Label renders the match_criteria text for rows produced by this rule
func (r BlockedRule) Label() string {
	return fmt.Sprintf("%s RULE%d: Exact Matches on %s AND Partial Matches on %s",
		StagePDM, r.Rank, bracket(r.Exact), bracket(r.Fuzzy))
}

func bracket(fields []Field) string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, string(f))
	}
	return "[" + strings.Join(names, ", ") + "]"
}
