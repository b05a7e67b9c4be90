package csvio

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// LedgerHeader is the column order of ledger files
var LedgerHeader = []string{"customer_id", "negative_id", "positive_id", "match_criteria", "match_score"}

// WriteFile creates path (and its directory) and hands a CSV writer to fn
func WriteFile(path string, fn func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

// WriteRecords writes normalized records. Missing values are empty cells.
func WriteRecords(w io.Writer, records []models.Record) error {
	cw := csv.NewWriter(w)
	header := []string{"id"}
	for _, f := range models.RecordFields {
		header = append(header, string(f))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{strconv.FormatInt(r.ID, 10)}
		for _, f := range models.RecordFields {
			row = append(row, models.Deref(r.Value(f)))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLedger writes match rows
func WriteLedger(w io.Writer, rows []models.MatchRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(LedgerHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(ledgerRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteScoredLedger writes match rows with their composite score
func WriteScoredLedger(w io.Writer, rows []models.ScoredMatch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string{}, LedgerHeader...), "composite_score")); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(append(ledgerRow(r.MatchRecord), formatFloat(r.CompositeScore))); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ledgerRow(r models.MatchRecord) []string {
	return []string{
		strconv.FormatInt(r.CustomerID, 10),
		formatID(r.NegativeID),
		formatID(r.PositiveID),
		r.MatchCriteria,
		formatFloat(r.MatchScore),
	}
}

func formatID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
