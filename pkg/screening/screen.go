package screening

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/thistle/internal/store"
	"github.com/Ramsey-B/thistle/pkg/ledger"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// ScreenResult is the outcome of screening one customer
type ScreenResult struct {
	Customer models.Record
	Matches  []models.ScoredMatch
}

// Screen normalizes a single customer and runs both cascades against the
// loaded watchlists with a pool of one
func (s *Service) Screen(ctx context.Context, customer models.Record) (*ScreenResult, error) {
	ctx, span := tracing.StartSpan(ctx, "screening.Service.Screen")
	defer span.End()

	lists := s.Watchlists()
	if lists == nil {
		return nil, httperror.NewHTTPError(http.StatusServiceUnavailable, "watchlists are not loaded")
	}

	normalized, issues := s.pipeline.Normalize(customer)
	for _, issue := range issues {
		s.log.WithContext(ctx).WithField("field", issue.Field).Warn(issue.Error())
	}
	customers, _, err := store.New(models.ListCustomer, []models.Record{normalized}, store.Options{})
	if err != nil {
		return nil, err
	}

	engine := matching.NewEngine(s.log, s.rules, matching.Config{Workers: 1})
	cascades, err := s.cascade(ctx, engine, customers, lists, matching.NewUnmatchedPool([]int64{normalized.ID}))
	if err != nil {
		return nil, err
	}

	l := ledger.New()
	for _, c := range cascades {
		l.Append(c.Matches...)
	}
	l.Sort()

	s.log.WithContext(ctx).WithFields(map[string]any{
		"customer_id": normalized.ID,
		"matches":     l.Len(),
	}).Debug("Customer screened")

	return &ScreenResult{
		Customer: normalized,
		Matches:  s.scorer.ScoreLedger(ctx, l.Rows(), customers, lists.Negative.Store, lists.Positive.Store),
	}, nil
}
