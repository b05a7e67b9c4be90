// Package screening orchestrates a full screening run:
// - load and normalize the customer and watchlist sources
// - run the exact cascade, then the fuzzy cascade on its residual
// - combine, score and write the ledger
package screening

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/thistle/internal/store"
	"github.com/Ramsey-B/thistle/pkg/csvio"
	"github.com/Ramsey-B/thistle/pkg/ledger"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/normalizers"
	"github.com/Ramsey-B/thistle/pkg/similarity"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// Residual modes
const (
	ResidualPerList  = "per_list"
	ResidualCombined = "combined"
)

// Options contains configuration for a screening run
type Options struct {
	CustomerPath       string
	NegativePath       string
	PositivePath       string
	OutputDir          string
	Workers            int
	ResidualMode       string // per_list (default) or combined
	StrictDuplicateIDs bool
	Snapshot           bool // Write per-rule ledgers and pools
	Scoring            bool // Attach composite scores to the ledger
	Consolidate        bool // Merge negative and positive outcomes per customer and stage
	MetricsTextfile    string
}

// Publisher receives the ledger of a finished run
type Publisher interface {
	PublishMatches(ctx context.Context, runID string, rows []models.ScoredMatch) error
	PublishRunCompleted(ctx context.Context, summary *Summary) error
}

// Service runs screenings
type Service struct {
	log       ectologger.Logger
	opts      Options
	pipeline  *normalizers.Pipeline
	rules     matching.RuleTable
	scorer    *similarity.Scorer
	metrics   *metrics.Metrics
	publisher Publisher

	mu         sync.RWMutex
	watchlists *Watchlists
}

// NewService creates a screening service. m and publisher may be nil.
func NewService(log ectologger.Logger, opts Options, m *metrics.Metrics, publisher Publisher) *Service {
	if opts.Workers <= 0 {
		opts.Workers = matching.DefaultConfig().Workers
	}
	if opts.ResidualMode == "" {
		opts.ResidualMode = ResidualPerList
	}
	return &Service{
		log:       log,
		opts:      opts,
		pipeline:  normalizers.DefaultPipeline(),
		rules:     matching.DefaultRuleTable(),
		scorer:    similarity.NewScorer(log),
		metrics:   m,
		publisher: publisher,
	}
}

// LoadedList is one normalized, indexed source
type LoadedList struct {
	Store    *store.Store
	Report   store.LoadReport
	Path     string
	Encoding string
	Warnings []csvio.Warning
}

// LoadList reads, normalizes and indexes one source. Watchlists are
// deduplicated on their full row content.
func (s *Service) LoadList(ctx context.Context, kind models.ListKind, path string) (*LoadedList, error) {
	ctx, span := tracing.StartSpan(ctx, "screening.Service.LoadList")
	defer span.End()

	log := s.log.WithContext(ctx).WithFields(map[string]any{
		"list": kind,
		"path": path,
	})

	read, err := csvio.ReadFile(path, kind)
	if err != nil {
		log.WithError(err).Error("Failed to read list")
		return nil, err
	}
	for _, w := range read.Warnings {
		log.WithFields(map[string]any{"row": w.Row}).Warn(w.Message)
	}

	records, issues := s.pipeline.NormalizeAll(read.Records)
	for _, issue := range issues {
		issue.Err.AddList(string(kind))
		if issue.Index < len(read.Rows) {
			issue.Err.AddRow(read.Rows[issue.Index])
		}
		log.WithFields(map[string]any{
			"kind":  issue.Err.Kind,
			"field": issue.Err.Field,
		}).Warn(issue.Err.Error())
		if s.metrics != nil {
			s.metrics.MalformedFieldsTotal.WithLabelValues(string(kind), issue.Err.Field).Inc()
		}
	}

	st, report, err := store.New(kind, records, store.Options{
		Dedupe:    kind != models.ListCustomer,
		StrictIDs: s.opts.StrictDuplicateIDs && kind != models.ListCustomer,
	})
	if err != nil {
		log.WithError(err).Error("Failed to index list")
		return nil, err
	}
	report.Malformed = len(issues)

	if len(report.DuplicateIDs) > 0 && kind != models.ListCustomer {
		log.WithFields(map[string]any{
			"duplicate_ids": report.DuplicateIDs,
		}).Warnf("%d ids occur on distinct rows, each row is matched and scored on its own", len(report.DuplicateIDs))
	}

	if s.metrics != nil {
		s.metrics.RecordsLoadedTotal.WithLabelValues(string(kind)).Add(float64(report.Input))
		s.metrics.DuplicatesDroppedTotal.WithLabelValues(string(kind)).Add(float64(report.Duplicates))
	}

	log.WithFields(map[string]any{
		"encoding":   read.Encoding,
		"input":      report.Input,
		"kept":       report.Kept,
		"duplicates": report.Duplicates,
		"malformed":  report.Malformed,
	}).Info("List loaded")

	return &LoadedList{
		Store:    st,
		Report:   report,
		Path:     path,
		Encoding: read.Encoding,
		Warnings: read.Warnings,
	}, nil
}

// Watchlists holds the two reference lists
type Watchlists struct {
	Negative *LoadedList
	Positive *LoadedList
}

func (w *Watchlists) list(kind models.ListKind) *LoadedList {
	if kind == models.ListNegative {
		return w.Negative
	}
	return w.Positive
}

// LoadWatchlists loads both watchlists concurrently and keeps them for Screen
func (s *Service) LoadWatchlists(ctx context.Context) (*Watchlists, error) {
	w := &Watchlists{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l, err := s.LoadList(gctx, models.ListNegative, s.opts.NegativePath)
		w.Negative = l
		return err
	})
	g.Go(func() error {
		l, err := s.LoadList(gctx, models.ListPositive, s.opts.PositivePath)
		w.Positive = l
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.watchlists = w
	s.mu.Unlock()
	return w, nil
}

// Watchlists returns the lists loaded by LoadWatchlists, or nil
func (s *Service) Watchlists() *Watchlists {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watchlists
}

// Result is the output of a run
type Result struct {
	RunID     string
	Customers *LoadedList
	Lists     *Watchlists
	Cascades  []*matching.CascadeResult
	Ledger    *ledger.Ledger
	Scored    []models.ScoredMatch
	Unmatched []int64
	Summary   *Summary
}

// Run executes a full batch screening and writes its outputs
func (s *Service) Run(ctx context.Context) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "screening.Service.Run")
	defer span.End()

	started := time.Now()
	runID := uuid.NewString()
	log := s.log.WithContext(ctx).WithField("run_id", runID)
	log.Info("Screening run started")

	if err := s.rules.Validate(); err != nil {
		return nil, err
	}

	customers, err := s.LoadList(ctx, models.ListCustomer, s.opts.CustomerPath)
	if err != nil {
		return nil, err
	}
	lists, err := s.LoadWatchlists(ctx)
	if err != nil {
		return nil, err
	}

	if s.opts.Snapshot {
		if err := s.writePreprocessed(customers, lists); err != nil {
			return nil, err
		}
	}

	observers := make([]matching.RuleObserver, 0, 2)
	if s.metrics != nil {
		observers = append(observers, s.metrics)
	}
	if s.opts.Snapshot {
		observers = append(observers, newSnapshotObserver(s.opts.OutputDir, customers.Store))
	}
	engine := matching.NewEngine(s.log, s.rules, matching.Config{Workers: s.opts.Workers}, observers...)

	cascades, err := s.cascade(ctx, engine, customers.Store, lists, matching.NewUnmatchedPool(customers.Store.IDs()))
	if err != nil {
		return nil, err
	}

	l := ledger.New()
	for _, c := range cascades {
		l.Append(c.Matches...)
	}
	l.Sort()
	if s.opts.Consolidate {
		l = l.Consolidate()
	}

	scored := s.score(ctx, l, customers.Store, lists)
	unmatched := l.Unmatched(customers.Store.IDs())

	result := &Result{
		RunID:     runID,
		Customers: customers,
		Lists:     lists,
		Cascades:  cascades,
		Ledger:    l,
		Scored:    scored,
		Unmatched: unmatched,
	}
	result.Summary = s.summarize(result, started)

	if err := s.writeOutputs(result); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveRun(s.opts.ResidualMode, time.Since(started))
		if s.opts.MetricsTextfile != "" {
			if err := s.metrics.WriteTextfile(s.opts.MetricsTextfile); err != nil {
				log.WithError(err).Warn("Failed to write metrics textfile")
			}
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishMatches(ctx, runID, scored); err != nil {
			return nil, err
		}
		if err := s.publisher.PublishRunCompleted(ctx, result.Summary); err != nil {
			return nil, err
		}
	}

	log.WithFields(map[string]any{
		"ledger_rows":         l.Len(),
		"matched_customers":   len(l.CustomerIDs()),
		"unmatched_customers": len(unmatched),
		"duration_ms":         time.Since(started).Milliseconds(),
	}).Info("Screening run finished")

	return result, nil
}

// cascade runs DDM for both lists concurrently, then PDM on the residuals.
// Each list works on its own copy of pool.
func (s *Service) cascade(ctx context.Context, engine *matching.Engine, customers *store.Store, lists *Watchlists, pool *matching.UnmatchedPool) ([]*matching.CascadeResult, error) {
	sides := []models.ListKind{models.ListNegative, models.ListPositive}

	ddm := make([]*matching.CascadeResult, len(sides))
	g, gctx := errgroup.WithContext(ctx)
	for i, side := range sides {
		g.Go(func() error {
			res, err := engine.Deterministic(gctx, customers, lists.list(side).Store, pool.Clone())
			ddm[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	residuals := make([]*matching.UnmatchedPool, len(sides))
	switch s.opts.ResidualMode {
	case ResidualCombined:
		shared := ddm[0].Residual.Intersect(ddm[1].Residual)
		for i := range sides {
			residuals[i] = shared.Clone()
		}
	default:
		for i := range sides {
			residuals[i] = ddm[i].Residual.Clone()
		}
	}

	pdm := make([]*matching.CascadeResult, len(sides))
	g, gctx = errgroup.WithContext(ctx)
	for i, side := range sides {
		g.Go(func() error {
			res, err := engine.Blocked(gctx, customers, lists.list(side).Store, residuals[i])
			pdm[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return append(ddm, pdm...), nil
}

func (s *Service) score(ctx context.Context, l *ledger.Ledger, customers *store.Store, lists *Watchlists) []models.ScoredMatch {
	if !s.opts.Scoring {
		scored := make([]models.ScoredMatch, 0, l.Len())
		for _, r := range l.Rows() {
			scored = append(scored, models.ScoredMatch{MatchRecord: r})
		}
		return scored
	}
	return s.scorer.ScoreLedger(ctx, l.Rows(), customers, lists.Negative.Store, lists.Positive.Store)
}

func (s *Service) writeOutputs(r *Result) error {
	out := s.opts.OutputDir

	ledgerFile := func(w io.Writer) error {
		if s.opts.Scoring {
			return csvio.WriteScoredLedger(w, r.Scored)
		}
		return csvio.WriteLedger(w, r.Ledger.Rows())
	}
	outputs := []struct {
		name  string
		write func(w io.Writer) error
	}{
		{"ledger.csv", ledgerFile},
		{"ddm_ledger.csv", func(w io.Writer) error { return csvio.WriteLedger(w, stageRows(r.Cascades, models.StageDDM)) }},
		{"pdm_ledger.csv", func(w io.Writer) error { return csvio.WriteLedger(w, stageRows(r.Cascades, models.StagePDM)) }},
		{"unmatched_customers.csv", func(w io.Writer) error {
			return csvio.WriteRecords(w, r.Customers.Store.Subset(r.Unmatched))
		}},
		{"summary.yaml", func(w io.Writer) error { return encodeSummary(w, r.Summary) }},
	}

	for _, o := range outputs {
		if err := csvio.WriteFile(filepath.Join(out, o.name), o.write); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) writePreprocessed(customers *LoadedList, lists *Watchlists) error {
	dir := filepath.Join(s.opts.OutputDir, "preprocessed")
	for _, l := range []*LoadedList{customers, lists.Negative, lists.Positive} {
		path := filepath.Join(dir, string(l.Store.Kind())+".csv")
		if err := csvio.WriteFile(path, func(w io.Writer) error {
			return csvio.WriteRecords(w, l.Store.Records())
		}); err != nil {
			return err
		}
	}
	return nil
}

// stageRows returns the sorted rows of one stage across both lists
func stageRows(cascades []*matching.CascadeResult, stage models.Stage) []models.MatchRecord {
	l := ledger.New()
	for _, c := range cascades {
		if c.Stage == stage {
			l.Append(c.Matches...)
		}
	}
	l.Sort()
	return l.Rows()
}
