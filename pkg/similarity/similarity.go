// Package similarity rescores ledger rows with a weighted field similarity
// that redistributes the weight of missing fields
package similarity

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// Weight is the share of one field in the composite score
type Weight struct {
	Field  models.Field `json:"field" yaml:"field"`
	Weight float64      `json:"weight" yaml:"weight"`
}

// DefaultWeights sums to 100
var DefaultWeights = []Weight{
	{Field: models.FieldFirstName, Weight: 19},
	{Field: models.FieldLastName, Weight: 25},
	{Field: models.FieldDateOfBirth, Weight: 28},
	{Field: models.FieldStreet, Weight: 11},
	{Field: models.FieldZip, Weight: 6},
	{Field: models.FieldCity, Weight: 8},
	{Field: models.FieldHouseNumber, Weight: 3},
}

// Lookup resolves the reference record of a ledger row
type Lookup interface {
	Get(id int64) (*models.Record, bool)
}

// rowLookup is implemented by lookups that can also resolve a row position,
// which tells apart distinct rows sharing one id
type rowLookup interface {
	At(row int) (*models.Record, bool)
}

// Scorer computes composite similarity scores
type Scorer struct {
	log     ectologger.Logger
	weights []Weight
	strings *matching.Scorer
}

// NewScorer creates a scorer using the default weight table
func NewScorer(log ectologger.Logger) *Scorer {
	return &Scorer{log: log, weights: DefaultWeights, strings: matching.NewScorer()}
}

// ActiveWeights returns the weights after removing fields missing on either
// side and scaling the rest back up to 100. All weights are zero when every
// field is missing.
func (s *Scorer) ActiveWeights(a, b *models.Record) map[models.Field]float64 {
	removed := 0.0
	for _, w := range s.weights {
		if a.Value(w.Field) == nil || b.Value(w.Field) == nil {
			removed += w.Weight
		}
	}

	active := make(map[models.Field]float64, len(s.weights))
	for _, w := range s.weights {
		if removed >= 100 || a.Value(w.Field) == nil || b.Value(w.Field) == nil {
			active[w.Field] = 0
			continue
		}
		active[w.Field] = w.Weight * 100 / (100 - removed)
	}
	return active
}

// FieldSimilarity compares one present field. Dates of birth only count when
// identical.
func (s *Scorer) FieldSimilarity(f models.Field, a, b string) float64 {
	if f == models.FieldDateOfBirth {
		return s.strings.ExactMatch(a, b)
	}
	return s.strings.SequenceRatio(a, b)
}

// Composite returns the weighted similarity of two records in [0, 100]
func (s *Scorer) Composite(a, b *models.Record) float64 {
	active := s.ActiveWeights(a, b)
	total := 0.0
	for _, w := range s.weights {
		if active[w.Field] == 0 {
			continue
		}
		total += active[w.Field] * s.FieldSimilarity(w.Field, *a.Value(w.Field), *b.Value(w.Field))
	}
	return total
}

// ScoreLedger attaches a composite score to every row. Rows carrying both
// sides, or whose records cannot be found, score 0.
func (s *Scorer) ScoreLedger(ctx context.Context, rows []models.MatchRecord, customers, negatives, positives Lookup) []models.ScoredMatch {
	ctx, span := tracing.StartSpan(ctx, "similarity.Scorer.ScoreLedger")
	defer span.End()

	scored := make([]models.ScoredMatch, 0, len(rows))
	missing := 0
	for _, row := range rows {
		out := models.ScoredMatch{MatchRecord: row}
		if row.HasBothSides() {
			scored = append(scored, out)
			continue
		}

		ref := negatives
		if row.Side() == models.ListPositive {
			ref = positives
		}

		cust, ok := customers.Get(row.CustomerID)
		other, refOK := lookup(ref, row)
		if !ok || !refOK {
			missing++
			scored = append(scored, out)
			continue
		}

		out.CompositeScore = s.Composite(cust, other)
		scored = append(scored, out)
	}

	log := s.log.WithContext(ctx).WithFields(map[string]any{"rows": len(rows)})
	if missing > 0 {
		log.WithField("missing_records", missing).Warn("Some ledger rows reference unknown records")
	}
	log.Debug("Ledger scored")
	return scored
}

func lookup(l Lookup, row models.MatchRecord) (*models.Record, bool) {
	if l == nil {
		return nil, false
	}
	if rl, ok := l.(rowLookup); ok && row.ReferenceRow > 0 {
		if rec, ok := rl.At(row.ReferenceRow); ok && rec.ID == row.ReferenceID() {
			return rec, true
		}
	}
	return l.Get(row.ReferenceID())
}
