// Package csvio reads record lists and writes screening output as CSV
package csvio

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/models"
)

// column identifies a record column independent of the header spelling
type column int

const (
	colID column = iota
	colFirstName
	colLastName
	colDateOfBirth
	colStreet
	colHouseNumber
	colAddendum
	colZip
	colCity
)

// headerAliases maps lowercase header names to columns. Both the legacy
// upper-case export names and the output names are accepted.
var headerAliases = map[string]column{
	"id":                    colID,
	"first_name":            colFirstName,
	"last_name":             colLastName,
	"dob":                   colDateOfBirth,
	"date_of_birth":         colDateOfBirth,
	"street":                colStreet,
	"hnr":                   colHouseNumber,
	"hnrnew":                colHouseNumber,
	"house_number":          colHouseNumber,
	"hnradd":                colAddendum,
	"house_number_addendum": colAddendum,
	"zip":                   colZip,
	"city":                  colCity,
}

// Warning is a non-fatal issue found while reading
type Warning struct {
	Row     int    `json:"row" yaml:"row"`
	Message string `json:"message" yaml:"message"`
}

// ReadResult holds the parsed records of one list
type ReadResult struct {
	Records []models.Record
	// Rows holds the 1-based source row of each record
	Rows     []int
	Warnings []Warning
	Encoding string
}

// ReadFile reads a record list from disk
func ReadFile(path string, kind models.ListKind) (*ReadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewScreeningErrorf(errors.KindMissingSourceList, "source %s not found", path).AddList(string(kind))
		}
		return nil, errors.WrapScreeningError(errors.KindUnreadableSource, pkgerrors.Wrapf(err, "read %s", path)).AddList(string(kind))
	}
	return Read(bytes.NewReader(data), kind)
}

// Read parses a record list. Unknown columns are ignored and missing
// optional columns read as nil. A missing id column or an id that is not an
// integer makes the whole source unreadable.
func Read(r io.Reader, kind models.ListKind) (*ReadResult, error) {
	unreadable := func(msg string, args ...any) *errors.ScreeningError {
		return errors.NewScreeningErrorf(errors.KindUnreadableSource, msg, args...).AddList(string(kind))
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapScreeningError(errors.KindUnreadableSource, err).AddList(string(kind))
	}
	data, encoding, err := Decode(raw)
	if err != nil {
		return nil, errors.WrapScreeningError(errors.KindUnreadableSource, err).AddList(string(kind))
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		if pkgerrors.Is(err, io.EOF) {
			return nil, unreadable("empty file: no header row found")
		}
		return nil, unreadable("failed to read header row: %v", err)
	}

	columns := make(map[column]int, len(headers))
	for i, h := range headers {
		if c, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, dup := columns[c]; !dup {
				columns[c] = i
			}
		}
	}
	if _, ok := columns[colID]; !ok {
		return nil, unreadable("header has no id column")
	}

	result := &ReadResult{Encoding: encoding}
	rowNum := 1
	for {
		row, err := reader.Read()
		if pkgerrors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			result.Warnings = append(result.Warnings, Warning{Row: rowNum, Message: "parse error: " + err.Error()})
			continue
		}

		value := func(c column) *string {
			i, ok := columns[c]
			if !ok || i >= len(row) {
				return nil
			}
			v := row[i]
			return &v
		}

		idText := strings.TrimSpace(models.Deref(value(colID)))
		id, err := strconv.ParseInt(idText, 10, 64)
		if err != nil {
			return nil, unreadable("id %q is not an integer", idText).AddRow(rowNum).AddField("id")
		}

		result.Records = append(result.Records, models.Record{
			ID:                  id,
			FirstName:           value(colFirstName),
			LastName:            value(colLastName),
			DateOfBirth:         value(colDateOfBirth),
			Street:              value(colStreet),
			HouseNumber:         value(colHouseNumber),
			HouseNumberAddendum: value(colAddendum),
			Zip:                 value(colZip),
			City:                value(colCity),
		})
		result.Rows = append(result.Rows, rowNum)
	}

	return result, nil
}
