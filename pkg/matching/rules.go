package matching

import (
	"sort"

	"github.com/Ramsey-B/thistle/pkg/errors"
	m "github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/utils"
)

// RuleTableVersion identifies the rule constants below. Bump it whenever a
// rule, its rank or its score changes.
const RuleTableVersion = "2021.1"

// FuzzyThreshold is the minimum Jaro-Winkler similarity for a fuzzy column
const FuzzyThreshold = 0.76

var (
	fn  = m.Attr(m.FieldFirstName)
	ln  = m.Attr(m.FieldLastName)
	dob = m.Attr(m.FieldDateOfBirth)
	zip = m.Attr(m.FieldZip)
	cty = m.Attr(m.FieldCity)
	st  = m.Attr(m.FieldStreet)
	hn  = m.Attr(m.FieldHouseNumber)
	tfn = m.TransposedAttr(m.FieldFirstName)
	tln = m.TransposedAttr(m.FieldLastName)
)

// DeterministicRules returns the exact-match cascade in rank order
func DeterministicRules() []m.DeterministicRule {
	return []m.DeterministicRule{
		{Rank: 1, Attributes: []m.Attribute{fn, ln, dob, zip, cty, st, hn}, Score: 100},
		{Rank: 2, Attributes: []m.Attribute{fn, ln, dob, zip, st, hn}, Score: 99.4},
		{Rank: 3, Attributes: []m.Attribute{fn, ln, dob, cty, st, hn}, Score: 97.9},
		{Rank: 4, Attributes: []m.Attribute{fn, ln, dob}, Score: 97.2},
		{Rank: 5, Attributes: []m.Attribute{ln, dob, zip, cty, st, hn}, Score: 95.6},
		{Rank: 6, Attributes: []m.Attribute{fn, dob, zip, cty, st, hn}, Score: 91},
		{Rank: 7, Attributes: []m.Attribute{fn, ln, zip, cty, st, hn}, Score: 90.2},
		{Rank: 8, Attributes: []m.Attribute{fn, ln, zip, st, hn}, Score: 89},
		{Rank: 9, Attributes: []m.Attribute{fn, ln, cty, st, hn}, Score: 87},
		{Rank: 10, Attributes: []m.Attribute{fn, ln, zip, cty, st}, Score: 84},
		{Rank: 11, Attributes: []m.Attribute{tfn, tln, dob}, Score: 83.5},
		{Rank: 12, Attributes: []m.Attribute{tfn, tln, zip, cty, st, hn}, Score: 83},
		{Rank: 13, Attributes: []m.Attribute{ln, dob, zip}, Score: 81.6},
		{Rank: 14, Attributes: []m.Attribute{dob, zip, cty, st, hn}, Score: 78},
		{Rank: 15, Attributes: []m.Attribute{fn, dob, zip}, Score: 76},
	}
}

// BlockedRules returns the fuzzy-match cascade in rank order.
// Rule 7 scores higher than rules 1-6 but still runs seventh.
func BlockedRules() []m.BlockedRule {
	const (
		FN = m.FieldFirstName
		LN = m.FieldLastName
		DB = m.FieldDateOfBirth
		ZP = m.FieldZip
		CT = m.FieldCity
		ST = m.FieldStreet
		HN = m.FieldHouseNumber
	)
	f := func(fields ...m.Field) []m.Field { return fields }

	return []m.BlockedRule{
		{Rank: 1, BlockingKey: f(FN, LN, CT), Exact: f(FN, LN, CT, ST), Fuzzy: f(ZP), Score: 81.5},
		{Rank: 2, BlockingKey: f(LN, CT, ZP), Exact: f(LN, CT, ZP, ST), Fuzzy: f(FN), Score: 81},
		{Rank: 3, BlockingKey: f(FN, CT, ZP), Exact: f(FN, CT, ZP, ST), Fuzzy: f(LN), Score: 80.5},
		{Rank: 4, BlockingKey: f(FN, LN, CT, ZP), Exact: f(FN, LN, CT, ZP), Fuzzy: f(ST), Score: 79},
		{Rank: 5, BlockingKey: f(ST, CT, ZP, HN), Exact: f(ST, CT, ZP, HN), Fuzzy: f(FN, LN), Score: 78.5},
		{Rank: 6, BlockingKey: f(DB, LN), Exact: f(DB, LN), Fuzzy: f(FN), Score: 78},
		{Rank: 7, BlockingKey: f(FN, LN, ZP), Exact: f(FN, LN, ZP, ST), Fuzzy: f(CT), Score: 82},
		{Rank: 8, BlockingKey: f(DB, FN), Exact: f(DB, FN), Fuzzy: f(LN), Score: 77.5},
		{Rank: 9, BlockingKey: f(FN, LN), Exact: f(FN, LN), Fuzzy: f(ST, CT, ZP), Score: 75},
		{Rank: 10, BlockingKey: f(CT, ZP), Exact: f(CT, ZP), Fuzzy: f(FN, LN, ST, HN), Score: 74},
		{Rank: 11, BlockingKey: f(ZP), Exact: f(ZP), Fuzzy: f(FN, LN, CT, ST, HN), Score: 73},
	}
}

// RuleTable is the serialisable form of both cascades
type RuleTable struct {
	Version        string                `json:"version" yaml:"version"`
	FuzzyThreshold float64               `json:"fuzzy_threshold" yaml:"fuzzy_threshold"`
	Deterministic  []m.DeterministicRule `json:"deterministic" yaml:"deterministic" validate:"required,dive"`
	Blocked        []m.BlockedRule       `json:"blocked" yaml:"blocked" validate:"required,dive"`
}

// DefaultRuleTable returns the versioned constant rule table
func DefaultRuleTable() RuleTable {
	return RuleTable{
		Version:        RuleTableVersion,
		FuzzyThreshold: FuzzyThreshold,
		Deterministic:  DeterministicRules(),
		Blocked:        BlockedRules(),
	}
}

// Validate checks field constraints and that ranks are unique and ascending
func (t RuleTable) Validate() error {
	if _, err := utils.Validate(t); err != nil {
		return errors.WrapScreeningError(errors.KindInvalidRuleTable, err)
	}

	ddm := make([]int, 0, len(t.Deterministic))
	for _, r := range t.Deterministic {
		ddm = append(ddm, r.Rank)
	}
	if err := checkRanks(m.StageDDM, ddm); err != nil {
		return err
	}

	pdm := make([]int, 0, len(t.Blocked))
	for _, r := range t.Blocked {
		pdm = append(pdm, r.Rank)
	}
	return checkRanks(m.StagePDM, pdm)
}

func checkRanks(stage m.Stage, ranks []int) error {
	if !sort.IntsAreSorted(ranks) {
		return errors.NewScreeningErrorf(errors.KindInvalidRuleTable, "%s ranks are not ascending", stage)
	}
	for i := 1; i < len(ranks); i++ {
		if ranks[i] == ranks[i-1] {
			return errors.NewScreeningErrorf(errors.KindInvalidRuleTable, "%s rank %d is duplicated", stage, ranks[i])
		}
	}
	return nil
}
