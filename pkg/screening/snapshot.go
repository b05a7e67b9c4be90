package screening

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Ramsey-B/thistle/internal/store"
	"github.com/Ramsey-B/thistle/pkg/csvio"
	"github.com/Ramsey-B/thistle/pkg/matching"
)

// snapshotObserver writes the rows of every rule and the customer records
// left in the pool after it. Files are named per side and rank so both
// cascades can write concurrently.
type snapshotObserver struct {
	dir       string
	customers *store.Store
}

func newSnapshotObserver(dir string, customers *store.Store) *snapshotObserver {
	return &snapshotObserver{dir: dir, customers: customers}
}

func (o *snapshotObserver) ObserveRule(_ context.Context, step matching.RuleStep) error {
	base := filepath.Join(o.dir, strings.ToLower(string(step.Stage)), fmt.Sprintf("%s_rule%02d", step.Side, step.Rank))

	if err := csvio.WriteFile(base+".csv", func(w io.Writer) error {
		return csvio.WriteLedger(w, step.Matches)
	}); err != nil {
		return err
	}
	return csvio.WriteFile(base+"_remaining.csv", func(w io.Writer) error {
		return csvio.WriteRecords(w, o.customers.Subset(step.Remaining))
	})
}
