package screening

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/models"
)

const header = "ID,FIRST_NAME,LAST_NAME,DOB,STREET,HNR,HNRADD,ZIP,CITY\n"

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fixture struct {
	dir  string
	opts Options
}

func newFixture(t *testing.T, customers, negatives, positives string) fixture {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(header+body), 0o600))
		return path
	}
	return fixture{
		dir: dir,
		opts: Options{
			CustomerPath: write("customers.csv", customers),
			NegativePath: write("negative.csv", negatives),
			PositivePath: write("positive.csv", positives),
			OutputDir:    filepath.Join(dir, "out"),
			Workers:      2,
			Scoring:      true,
		},
	}
}

const (
	customersCSV = "1,Dr. Hans,Meier,01.01.1980,Hauptstr. 12,,,60311,Frankfurt\n" +
		"2,Anna,Schulz,1990-03-03,,,,10115,Berlin\n"
	negativesCSV = "10,Hans,Meier,1980-01-01,Hauptstrasse,12,,60311,frankfurt am main\n" +
		"11,Hans,Meier,1980-01-01,Hauptstrasse,12,,60311,frankfurt am main\n"
	positivesCSV = "70,Hans,Meier,1980-01-01,,,,,\n"
)

type recordingPublisher struct {
	runID   string
	rows    []models.ScoredMatch
	summary *Summary
}

func (p *recordingPublisher) PublishMatches(_ context.Context, runID string, rows []models.ScoredMatch) error {
	p.runID = runID
	p.rows = rows
	return nil
}

func (p *recordingPublisher) PublishRunCompleted(_ context.Context, summary *Summary) error {
	p.summary = summary
	return nil
}

func TestService_Run(t *testing.T) {
	f := newFixture(t, customersCSV, negativesCSV, positivesCSV)
	f.opts.Snapshot = true
	f.opts.MetricsTextfile = filepath.Join(f.dir, "thistle.prom")

	pub := &recordingPublisher{}
	svc := NewService(testLogger(), f.opts, metrics.New(), pub)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	t.Run("exact rule 1 on the negative list", func(t *testing.T) {
		require.Len(t, result.Scored, 2)
		row := result.Scored[0]
		assert.Equal(t, int64(1), row.CustomerID)
		assert.Equal(t, int64(10), *row.NegativeID)
		assert.Nil(t, row.PositiveID)
		assert.Equal(t, 100.0, row.MatchScore)
		assert.Equal(t, "DDM RULE1: first_name, last_name, date_of_birth, zip, city, street, house_number", row.MatchCriteria)
		assert.InDelta(t, 100.0, row.CompositeScore, 1e-9)
	})

	t.Run("names and date only on the positive list", func(t *testing.T) {
		row := result.Scored[1]
		assert.Equal(t, int64(70), *row.PositiveID)
		assert.Equal(t, 97.2, row.MatchScore)
		assert.Equal(t, "DDM RULE4: first_name, last_name, date_of_birth", row.MatchCriteria)
		assert.InDelta(t, 100.0, row.CompositeScore, 1e-9)
	})

	t.Run("unmatched customers", func(t *testing.T) {
		assert.Equal(t, []int64{2}, result.Unmatched)
	})

	t.Run("duplicate watchlist rows are dropped", func(t *testing.T) {
		assert.Equal(t, 1, result.Lists.Negative.Report.Duplicates)
		assert.Equal(t, 1, result.Lists.Negative.Store.Len())
	})

	t.Run("summary", func(t *testing.T) {
		s := result.Summary
		assert.Equal(t, result.RunID, s.RunID)
		assert.Equal(t, "2021.1", s.RuleTableVersion)
		assert.Equal(t, 2, s.LedgerRows)
		assert.Equal(t, 1, s.MatchedCustomers)
		assert.Equal(t, 1, s.UnmatchedCustomers)
		require.Len(t, s.Cascades, 4)
		assert.Len(t, s.Cascades[0].Rules, 15)
		assert.Len(t, s.Cascades[2].Rules, 11)
	})

	t.Run("outputs", func(t *testing.T) {
		out := f.opts.OutputDir
		for _, name := range []string{
			"ledger.csv", "ddm_ledger.csv", "pdm_ledger.csv", "unmatched_customers.csv", "summary.yaml",
			"preprocessed/customer.csv", "ddm/negative_rule01.csv", "ddm/negative_rule01_remaining.csv", "pdm/positive_rule11.csv",
		} {
			assert.FileExists(t, filepath.Join(out, name))
		}

		unmatched, err := os.ReadFile(filepath.Join(out, "unmatched_customers.csv"))
		require.NoError(t, err)
		assert.Equal(t, "id,first_name,last_name,date_of_birth,street,house_number,zip,city\n"+
			"2,anna,schulz,1990-03-03,,,10115,berlin\n", string(unmatched))

		remaining, err := os.ReadFile(filepath.Join(out, "ddm", "negative_rule01_remaining.csv"))
		require.NoError(t, err)
		assert.Equal(t, "id,first_name,last_name,date_of_birth,street,house_number,zip,city\n"+
			"2,anna,schulz,1990-03-03,,,10115,berlin\n", string(remaining))

		assert.FileExists(t, f.opts.MetricsTextfile)
	})

	t.Run("published", func(t *testing.T) {
		assert.Equal(t, result.RunID, pub.runID)
		assert.Len(t, pub.rows, 2)
		assert.Same(t, result.Summary, pub.summary)
	})
}

func TestService_LoadList_MalformedFields(t *testing.T) {
	customers := customersCSV + "3,Eva,Braun,31.31.1980,,,,,\n"
	f := newFixture(t, customers, negativesCSV, positivesCSV)
	m := metrics.New()

	list, err := NewService(testLogger(), f.opts, m, nil).LoadList(context.Background(), models.ListCustomer, f.opts.CustomerPath)
	require.NoError(t, err)

	assert.Equal(t, 3, list.Report.Kept)
	assert.Equal(t, 1, list.Report.Malformed)
	rec, ok := list.Store.Get(3)
	require.True(t, ok)
	assert.Nil(t, rec.DateOfBirth)
	assert.Equal(t, "braun", *rec.LastName)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MalformedFieldsTotal.WithLabelValues("customer", "date_of_birth")))
}

func TestService_ResidualModes(t *testing.T) {
	// 80 misses every exact rule but passes fuzzy rule 1 on zip
	positives := "80,Hans,Meier,,Hauptstrasse,,,60313,frankfurt am main\n"

	t.Run("per list", func(t *testing.T) {
		f := newFixture(t, customersCSV, negativesCSV, positives)
		result, err := NewService(testLogger(), f.opts, nil, nil).Run(context.Background())
		require.NoError(t, err)

		require.Len(t, result.Ledger.Rows(), 2)
		pdm := result.Ledger.Filter(models.StagePDM, models.ListPositive)
		require.Len(t, pdm, 1)
		assert.Equal(t, int64(80), *pdm[0].PositiveID)
		assert.Equal(t, 81.5, pdm[0].MatchScore)
	})

	t.Run("combined", func(t *testing.T) {
		f := newFixture(t, customersCSV, negativesCSV, positives)
		f.opts.ResidualMode = ResidualCombined
		result, err := NewService(testLogger(), f.opts, nil, nil).Run(context.Background())
		require.NoError(t, err)

		require.Len(t, result.Ledger.Rows(), 1)
		assert.Empty(t, result.Ledger.Filter(models.StagePDM, models.ListPositive))
	})
}

func TestService_Consolidate(t *testing.T) {
	f := newFixture(t, customersCSV, negativesCSV, positivesCSV)
	f.opts.Consolidate = true

	result, err := NewService(testLogger(), f.opts, nil, nil).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Scored, 1)
	row := result.Scored[0]
	assert.True(t, row.HasBothSides())
	assert.Equal(t, 100.0, row.MatchScore)
	assert.Equal(t, 1, row.Rank)
	assert.Zero(t, row.CompositeScore)
}

func TestService_RunErrors(t *testing.T) {
	t.Run("missing source list", func(t *testing.T) {
		f := newFixture(t, customersCSV, negativesCSV, positivesCSV)
		f.opts.NegativePath = filepath.Join(f.dir, "nope.csv")

		_, err := NewService(testLogger(), f.opts, nil, nil).Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindMissingSourceList))
		assert.NoFileExists(t, filepath.Join(f.opts.OutputDir, "ledger.csv"))
	})

	t.Run("duplicate ids under strict mode", func(t *testing.T) {
		negatives := "10,Hans,Meier,1980-01-01,,,,,\n10,Karl,Meier,1980-01-01,,,,,\n"
		f := newFixture(t, customersCSV, negatives, positivesCSV)
		f.opts.StrictDuplicateIDs = true

		_, err := NewService(testLogger(), f.opts, nil, nil).Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindDuplicateReferenceID))
	})

	t.Run("duplicate ids are kept by default", func(t *testing.T) {
		negatives := "10,Hans,Meier,1980-01-01,,,,,\n10,Karl,Meier,1980-01-01,,,,,\n"
		f := newFixture(t, customersCSV, negatives, positivesCSV)

		result, err := NewService(testLogger(), f.opts, nil, nil).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []int64{10}, result.Lists.Negative.Report.DuplicateIDs)
	})
}

func TestService_Screen(t *testing.T) {
	f := newFixture(t, customersCSV, negativesCSV, positivesCSV)
	svc := NewService(testLogger(), f.opts, nil, nil)

	t.Run("watchlists not loaded", func(t *testing.T) {
		_, err := svc.Screen(context.Background(), models.Record{ID: 1})
		require.Error(t, err)
		assert.Equal(t, 503, httperror.GetStatusCode(err))
	})

	_, err := svc.LoadWatchlists(context.Background())
	require.NoError(t, err)

	res, err := svc.Screen(context.Background(), models.Record{
		ID:          5,
		FirstName:   models.String("HANS"),
		LastName:    models.String("Meier"),
		DateOfBirth: models.String("1980-01-01"),
	})
	require.NoError(t, err)

	assert.Equal(t, "hans", *res.Customer.FirstName)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, "DDM RULE4: first_name, last_name, date_of_birth", res.Matches[0].MatchCriteria)
	assert.Equal(t, int64(10), *res.Matches[0].NegativeID)
	assert.Equal(t, int64(70), *res.Matches[1].PositiveID)
}
