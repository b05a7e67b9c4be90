package errors

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	pkgerrors "github.com/pkg/errors"
)

// Kind classifies a screening failure
type Kind string

const (
	KindMalformedField       Kind = "malformed_field"        // Recoverable, the field becomes null
	KindMissingSourceList    Kind = "missing_source_list"    // Fatal
	KindUnreadableSource     Kind = "unreadable_source"      // Fatal
	KindDuplicateReferenceID Kind = "duplicate_reference_id" // Warning, fatal in strict mode
	KindInvalidRuleTable     Kind = "invalid_rule_table"     // Fatal
)

var statusByKind = map[Kind]int{
	KindMalformedField:       http.StatusBadRequest,
	KindMissingSourceList:    http.StatusNotFound,
	KindUnreadableSource:     http.StatusUnprocessableEntity,
	KindDuplicateReferenceID: http.StatusConflict,
	KindInvalidRuleTable:     http.StatusInternalServerError,
}

type ScreeningError struct {
	Kind    Kind
	List    string
	Field   string
	row     *int
	Message string
	cause   error
}

func NewScreeningError(kind Kind, msg string) *ScreeningError {
	return &ScreeningError{
		Kind:    kind,
		Message: msg,
	}
}

// NewScreeningErrorf creates a new ScreeningError with a formatted message
func NewScreeningErrorf(kind Kind, format string, args ...any) *ScreeningError {
	return NewScreeningError(kind, fmt.Sprintf(format, args...))
}

// WrapScreeningError attaches a kind to an arbitrary error. Errors that
// already are ScreeningErrors are returned as is.
func WrapScreeningError(kind Kind, e error) *ScreeningError {
	if e == nil {
		return nil
	}

	var se *ScreeningError
	if pkgerrors.As(e, &se) {
		return se
	}

	return &ScreeningError{
		Kind:    kind,
		Message: e.Error(),
		cause:   e,
	}
}

func (e *ScreeningError) Error() string {
	path := []string{}
	if e.List != "" {
		path = append(path, fmt.Sprintf("list '%s'", e.List))
	}
	if e.row != nil {
		path = append(path, fmt.Sprintf("row %d", *e.row))
	}
	if e.Field != "" {
		path = append(path, fmt.Sprintf("field '%s'", e.Field))
	}

	if len(path) == 0 {
		return e.Message
	}

	return strings.Join(path, " -> ") + ": " + e.Message
}

func (e *ScreeningError) Unwrap() error {
	return e.cause
}

func (e *ScreeningError) AddList(list string) *ScreeningError {
	e.List = list
	return e
}

func (e *ScreeningError) AddField(field string) *ScreeningError {
	e.Field = field
	return e
}

func (e *ScreeningError) AddRow(row int) *ScreeningError {
	e.row = &row
	return e
}

// Row returns the 1-based source row, if known
func (e *ScreeningError) Row() (int, bool) {
	if e.row == nil {
		return 0, false
	}
	return *e.row, true
}

// StatusCode maps the kind to an HTTP status
func (e *ScreeningError) StatusCode() int {
	if code, ok := statusByKind[e.Kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func (e *ScreeningError) ToHTTPError() *httperror.HTTPError {
	herr := httperror.NewHTTPError(e.StatusCode(), e.Error()).AddMetaValue("kind", string(e.Kind)).AddMetaValue("list", e.List).AddMetaValue("field", e.Field)
	if e.row != nil {
		herr = herr.AddMetaValue("row", strconv.Itoa(*e.row))
	}
	return herr
}

func IsScreeningError(err error) bool {
	var se *ScreeningError
	return pkgerrors.As(err, &se)
}

// AsScreeningError returns the first ScreeningError in err's chain
func AsScreeningError(err error) (*ScreeningError, bool) {
	var se *ScreeningError
	if !pkgerrors.As(err, &se) {
		return nil, false
	}
	return se, true
}

// IsKind reports whether err is a ScreeningError of the given kind
func IsKind(err error, kind Kind) bool {
	var se *ScreeningError
	if !pkgerrors.As(err, &se) {
		return false
	}
	return se.Kind == kind
}

// ExitCode maps a fatal error to a process exit code
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var se *ScreeningError
	if !pkgerrors.As(err, &se) {
		return 1
	}
	switch se.Kind {
	case KindMissingSourceList:
		return 2
	case KindUnreadableSource:
		return 3
	case KindDuplicateReferenceID:
		return 4
	case KindInvalidRuleTable:
		return 5
	default:
		return 1
	}
}
