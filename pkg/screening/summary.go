package screening

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/models"
)

// ListSummary describes one loaded source
type ListSummary struct {
	Path         string  `yaml:"path"`
	Encoding     string  `yaml:"encoding"`
	Input        int     `yaml:"input"`
	Kept         int     `yaml:"kept"`
	Duplicates   int     `yaml:"duplicates"`
	DuplicateIDs []int64 `yaml:"duplicate_ids,omitempty"`
	Malformed    int     `yaml:"malformed"`
	Warnings     int     `yaml:"warnings"`
}

// CascadeSummary describes one cascade against one list
type CascadeSummary struct {
	Stage    models.Stage        `yaml:"stage"`
	Side     models.ListKind     `yaml:"side"`
	Matches  int                 `yaml:"matches"`
	Residual int                 `yaml:"residual"`
	Rules    []matching.RuleStep `yaml:"rules"`
}

// Summary is written as summary.yaml at the end of a run
type Summary struct {
	RunID              string                          `yaml:"run_id"`
	RuleTableVersion   string                          `yaml:"rule_table_version"`
	ResidualMode       string                          `yaml:"residual_mode"`
	StartedAt          time.Time                       `yaml:"started_at"`
	Duration           string                          `yaml:"duration"`
	Lists              map[models.ListKind]ListSummary `yaml:"lists"`
	Cascades           []CascadeSummary                `yaml:"cascades"`
	LedgerRows         int                             `yaml:"ledger_rows"`
	MatchedCustomers   int                             `yaml:"matched_customers"`
	UnmatchedCustomers int                             `yaml:"unmatched_customers"`
}

func (s *Service) summarize(r *Result, started time.Time) *Summary {
	summary := &Summary{
		RunID:              r.RunID,
		RuleTableVersion:   s.rules.Version,
		ResidualMode:       s.opts.ResidualMode,
		StartedAt:          started.UTC(),
		Duration:           time.Since(started).Round(time.Millisecond).String(),
		Lists:              map[models.ListKind]ListSummary{},
		LedgerRows:         r.Ledger.Len(),
		MatchedCustomers:   len(r.Ledger.CustomerIDs()),
		UnmatchedCustomers: len(r.Unmatched),
	}

	for _, l := range []*LoadedList{r.Customers, r.Lists.Negative, r.Lists.Positive} {
		summary.Lists[l.Store.Kind()] = ListSummary{
			Path:         l.Path,
			Encoding:     l.Encoding,
			Input:        l.Report.Input,
			Kept:         l.Report.Kept,
			Duplicates:   l.Report.Duplicates,
			DuplicateIDs: l.Report.DuplicateIDs,
			Malformed:    l.Report.Malformed,
			Warnings:     len(l.Warnings),
		}
	}

	for _, c := range r.Cascades {
		summary.Cascades = append(summary.Cascades, CascadeSummary{
			Stage:    c.Stage,
			Side:     c.Side,
			Matches:  len(c.Matches),
			Residual: c.Residual.Len(),
			Rules:    c.Steps,
		})
	}
	return summary
}

func encodeSummary(w io.Writer, summary *Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(summary); err != nil {
		return err
	}
	return enc.Close()
}
