package matching

import (
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/sentinel"
)

// comparator evaluates candidate pairs between the customer list and one
// reference list
type comparator struct {
	scorer    *Scorer
	customer  *sentinel.Resolver
	reference *sentinel.Resolver
	threshold float64
}

func newComparator(scorer *Scorer, reference models.ListKind, threshold float64) *comparator {
	return &comparator{
		scorer:    scorer,
		customer:  sentinel.NewResolver(models.ListCustomer),
		reference: sentinel.NewResolver(reference),
		threshold: threshold,
	}
}

// exact compares resolved values, so missing values never match across lists
func (c *comparator) exact(cust, ref *models.Record, fields []models.Field) bool {
	for _, f := range fields {
		if c.customer.Value(cust, f) != c.reference.Value(ref, f) {
			return false
		}
	}
	return true
}

// fuzzy requires both values to be present and similar enough
func (c *comparator) fuzzy(cust, ref *models.Record, fields []models.Field) bool {
	for _, f := range fields {
		a, b := cust.Value(f), ref.Value(f)
		if a == nil || b == nil {
			return false
		}
		if !c.scorer.FuzzyMatch(*a, *b, c.threshold) {
			return false
		}
	}
	return true
}

// accept is the conjunctive gate of a blocked rule
func (c *comparator) accept(rule models.BlockedRule, cust, ref *models.Record) bool {
	return c.exact(cust, ref, rule.Exact) && c.fuzzy(cust, ref, rule.Fuzzy)
}

func customerFields(attrs []models.Attribute) []models.Field {
	fields := make([]models.Field, 0, len(attrs))
	for _, a := range attrs {
		fields = append(fields, a.Customer)
	}
	return fields
}

func referenceFields(attrs []models.Attribute) []models.Field {
	fields := make([]models.Field, 0, len(attrs))
	for _, a := range attrs {
		fields = append(fields, a.Reference)
	}
	return fields
}
