// Package ledger collects cascade output into the combined match ledger
package ledger

import (
	"sort"
	"strings"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// CriteriaSeparator joins the criteria of consolidated rows
const CriteriaSeparator = " | "

// Ledger is an ordered list of match rows
type Ledger struct {
	rows []models.MatchRecord
}

// New creates a ledger holding the given rows
func New(rows ...models.MatchRecord) *Ledger {
	l := &Ledger{}
	l.Append(rows...)
	return l
}

// Append adds rows to the end of the ledger
func (l *Ledger) Append(rows ...models.MatchRecord) {
	l.rows = append(l.rows, rows...)
}

// Rows returns the ledger rows
func (l *Ledger) Rows() []models.MatchRecord {
	return l.rows
}

// Len returns the number of rows
func (l *Ledger) Len() int {
	return len(l.rows)
}

// Sort orders rows by customer, stage (DDM first), side (negative first),
// rank and reference id
func (l *Ledger) Sort() {
	sort.SliceStable(l.rows, func(i, j int) bool {
		return less(l.rows[i], l.rows[j])
	})
}

func less(a, b models.MatchRecord) bool {
	if a.CustomerID != b.CustomerID {
		return a.CustomerID < b.CustomerID
	}
	if a.Stage != b.Stage {
		return a.Stage == models.StageDDM
	}
	if a.Side() != b.Side() {
		return a.Side() == models.ListNegative
	}
	if a.Rank != b.Rank {
		return a.Rank < b.Rank
	}
	if a.ReferenceID() != b.ReferenceID() {
		return a.ReferenceID() < b.ReferenceID()
	}
	return a.ReferenceRow < b.ReferenceRow
}

// Filter returns the rows of one stage and side
func (l *Ledger) Filter(stage models.Stage, side models.ListKind) []models.MatchRecord {
	return ectolinq.Filter(l.rows, func(r models.MatchRecord) bool {
		return r.Stage == stage && !r.HasBothSides() && r.Side() == side
	})
}

// CustomerIDs returns the distinct customer ids in ascending order
func (l *Ledger) CustomerIDs() []int64 {
	seen := map[int64]struct{}{}
	ids := make([]int64, 0)
	for _, id := range ectolinq.Map(l.rows, func(r models.MatchRecord) int64 { return r.CustomerID }) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Unmatched returns the customers that appear in no ledger row
func (l *Ledger) Unmatched(customerIDs []int64) []int64 {
	matched := map[int64]struct{}{}
	for _, r := range l.rows {
		matched[r.CustomerID] = struct{}{}
	}
	out := make([]int64, 0)
	for _, id := range customerIDs {
		if _, ok := matched[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Consolidate returns a sorted copy of the ledger where, per customer and
// stage, the best negative row and the best positive row are merged into one
// row carrying both ids. Further tied rows stay single-sided.
func (l *Ledger) Consolidate() *Ledger {
	sorted := New(l.rows...)
	sorted.Sort()

	type key struct {
		customer int64
		stage    models.Stage
	}
	firstPositive := map[key]int{}
	for i, r := range sorted.rows {
		k := key{r.CustomerID, r.Stage}
		if _, ok := firstPositive[k]; !ok && !r.HasBothSides() && r.Side() == models.ListPositive {
			firstPositive[k] = i
		}
	}

	out := New()
	merged := map[int]bool{}
	done := map[key]bool{}
	for i, r := range sorted.rows {
		if merged[i] {
			continue
		}
		k := key{r.CustomerID, r.Stage}
		p, ok := firstPositive[k]
		if !ok || done[k] || r.HasBothSides() || r.Side() != models.ListNegative {
			out.Append(r)
			continue
		}

		pos := sorted.rows[p]
		out.Append(models.MatchRecord{
			CustomerID:    r.CustomerID,
			NegativeID:    r.NegativeID,
			PositiveID:    pos.PositiveID,
			MatchCriteria: strings.Join([]string{r.MatchCriteria, pos.MatchCriteria}, CriteriaSeparator),
			MatchScore:    max(r.MatchScore, pos.MatchScore),
			Stage:         r.Stage,
			Rank:          min(r.Rank, pos.Rank),
		})
		merged[p] = true
		done[k] = true
	}
	return out
}
