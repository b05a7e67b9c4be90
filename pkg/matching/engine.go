// Package matching implements the two record-linkage cascades:
// - DDM: ordered exact-match rules over equi-joined attributes
// - PDM: ordered blocked rules with exact and fuzzy column gates
//
// Both cascades remove a customer from the list's pool as soon as one rule
// matches it, so every customer gets at most one rule outcome per list.
package matching

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/sentinel"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// RecordSource is a read-only, id-indexed record list
type RecordSource interface {
	Kind() models.ListKind
	Records() []models.Record
	Get(id int64) (*models.Record, bool)
}

// RuleStep describes the outcome of a single rule
type RuleStep struct {
	Side       models.ListKind      `json:"side" yaml:"side"`
	Stage      models.Stage         `json:"stage" yaml:"stage"`
	Rank       int                  `json:"rank" yaml:"rank"`
	Criteria   string               `json:"criteria" yaml:"criteria"`
	Score      float64              `json:"score" yaml:"score"`
	Rows       int                  `json:"rows" yaml:"rows"`
	Matched    int                  `json:"matched" yaml:"matched"`
	PoolBefore int                  `json:"pool_before" yaml:"pool_before"`
	PoolAfter  int                  `json:"pool_after" yaml:"pool_after"`
	Matches    []models.MatchRecord `json:"-" yaml:"-"`
	Remaining  []int64              `json:"-" yaml:"-"`
}

// RuleObserver is notified after every rule of a cascade, in rank order
type RuleObserver interface {
	ObserveRule(ctx context.Context, step RuleStep) error
}

// CascadeResult is the output of one cascade against one list
type CascadeResult struct {
	Side     models.ListKind
	Stage    models.Stage
	Matches  []models.MatchRecord
	Steps    []RuleStep
	Residual *UnmatchedPool
}

// Config contains configuration for the matching engine
type Config struct {
	Workers        int     // Comparator goroutines per rule
	FuzzyThreshold float64 // Minimum Jaro-Winkler similarity
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Workers:        4,
		FuzzyThreshold: FuzzyThreshold,
	}
}

// Engine runs the cascades
type Engine struct {
	log       ectologger.Logger
	rules     RuleTable
	scorer    *Scorer
	cfg       Config
	observers []RuleObserver
}

// NewEngine creates a new matching engine
func NewEngine(log ectologger.Logger, rules RuleTable, cfg Config, observers ...RuleObserver) *Engine {
	if cfg.FuzzyThreshold == 0 {
		cfg.FuzzyThreshold = rules.FuzzyThreshold
	}
	return &Engine{
		log:       log,
		rules:     rules,
		scorer:    NewScorer(),
		cfg:       cfg,
		observers: observers,
	}
}

// Rules returns the rule table the engine runs
func (e *Engine) Rules() RuleTable {
	return e.rules
}

// Deterministic runs the exact-match cascade of list against the customers in
// pool. Matched customers are removed from pool.
func (e *Engine) Deterministic(ctx context.Context, customers, list RecordSource, pool *UnmatchedPool) (*CascadeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.Deterministic", attribute.String("side", string(list.Kind())))
	defer span.End()

	custResolver := sentinel.NewResolver(models.ListCustomer)
	refResolver := sentinel.NewResolver(list.Kind())

	result := &CascadeResult{Side: list.Kind(), Stage: models.StageDDM, Residual: pool}
	for _, rule := range e.rules.Deterministic {
		custFields := customerFields(rule.Attributes)
		refFields := referenceFields(rule.Attributes)
		label := rule.Label()

		err := e.runRule(ctx, result, rule.Rank, label, rule.Score, customers, func(cust *models.Record, index map[string][]candidate) []candidate {
			return index[custResolver.Key(cust, custFields)]
		}, func() map[string][]candidate {
			return buildIndex(list.Records(), refResolver, refFields)
		})
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// Blocked runs the fuzzy cascade of list against the customers in pool.
// Candidates share the rule's blocking key and are accepted only when every
// exact and fuzzy column passes.
func (e *Engine) Blocked(ctx context.Context, customers, list RecordSource, pool *UnmatchedPool) (*CascadeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.Blocked", attribute.String("side", string(list.Kind())))
	defer span.End()

	cmp := newComparator(e.scorer, list.Kind(), e.cfg.FuzzyThreshold)

	result := &CascadeResult{Side: list.Kind(), Stage: models.StagePDM, Residual: pool}
	for _, rule := range e.rules.Blocked {
		err := e.runRule(ctx, result, rule.Rank, rule.Label(), rule.Score, customers, func(cust *models.Record, index map[string][]candidate) []candidate {
			var accepted []candidate
			for _, c := range index[cmp.customer.Key(cust, rule.BlockingKey)] {
				if cmp.accept(rule, cust, c.record) {
					accepted = append(accepted, c)
				}
			}
			return accepted
		}, func() map[string][]candidate {
			return buildIndex(list.Records(), cmp.reference, rule.BlockingKey)
		})
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// candidate is a reference record with its 1-based row position
type candidate struct {
	row    int
	record *models.Record
}

type candidateFunc func(cust *models.Record, index map[string][]candidate) []candidate

// runRule evaluates one rule against the current pool, records the step and
// removes the matched customers
func (e *Engine) runRule(
	ctx context.Context,
	result *CascadeResult,
	rank int,
	label string,
	score float64,
	customers RecordSource,
	candidates candidateFunc,
	index func() map[string][]candidate,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, span := tracing.StartSpan(ctx, "matching.Engine.rule",
		attribute.String("stage", string(result.Stage)),
		attribute.String("side", string(result.Side)),
		attribute.Int("rank", rank))
	defer span.End()

	pool := result.Residual
	ids := pool.IDs()
	idx := index()

	rows, err := fanOut(ctx, e.cfg.Workers, ids, func(id int64) []models.MatchRecord {
		cust, ok := customers.Get(id)
		if !ok {
			return nil
		}
		refs := candidates(cust, idx)
		out := make([]models.MatchRecord, 0, len(refs))
		for _, ref := range refs {
			m := newMatch(result.Side, result.Stage, rank, label, score, cust.ID, ref.record.ID)
			m.ReferenceRow = ref.row
			out = append(out, m)
		}
		return out
	})
	if err != nil {
		return err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CustomerID != rows[j].CustomerID {
			return rows[i].CustomerID < rows[j].CustomerID
		}
		if rows[i].ReferenceID() != rows[j].ReferenceID() {
			return rows[i].ReferenceID() < rows[j].ReferenceID()
		}
		return rows[i].ReferenceRow < rows[j].ReferenceRow
	})

	matched := make([]int64, 0, len(rows))
	for i, r := range rows {
		if i == 0 || rows[i-1].CustomerID != r.CustomerID {
			matched = append(matched, r.CustomerID)
		}
	}
	pool.Remove(matched...)

	step := RuleStep{
		Side:       result.Side,
		Stage:      result.Stage,
		Rank:       rank,
		Criteria:   label,
		Score:      score,
		Rows:       len(rows),
		Matched:    len(matched),
		PoolBefore: len(ids),
		PoolAfter:  pool.Len(),
		Matches:    rows,
	}
	result.Matches = append(result.Matches, rows...)

	e.log.WithContext(ctx).WithFields(map[string]any{
		"stage":       step.Stage,
		"side":        step.Side,
		"rank":        step.Rank,
		"rows":        step.Rows,
		"matched":     step.Matched,
		"pool_before": step.PoolBefore,
		"pool_after":  step.PoolAfter,
	}).Debug("Rule evaluated")

	if len(e.observers) > 0 {
		step.Remaining = pool.IDs()
		for _, o := range e.observers {
			if err := o.ObserveRule(ctx, step); err != nil {
				return err
			}
		}
	}

	step.Matches = nil
	step.Remaining = nil
	result.Steps = append(result.Steps, step)
	return nil
}

// buildIndex hash-partitions records by their resolved key. Records keep
// their list order inside a partition.
func buildIndex(records []models.Record, resolver *sentinel.Resolver, fields []models.Field) map[string][]candidate {
	index := make(map[string][]candidate, len(records))
	for i := range records {
		k := resolver.Key(&records[i], fields)
		index[k] = append(index[k], candidate{row: i + 1, record: &records[i]})
	}
	return index
}

func newMatch(side models.ListKind, stage models.Stage, rank int, label string, score float64, customerID, referenceID int64) models.MatchRecord {
	m := models.MatchRecord{
		CustomerID:    customerID,
		MatchCriteria: label,
		MatchScore:    score,
		Stage:         stage,
		Rank:          rank,
	}
	if side == models.ListNegative {
		m.NegativeID = models.Int64(referenceID)
	} else {
		m.PositiveID = models.Int64(referenceID)
	}
	return m
}
