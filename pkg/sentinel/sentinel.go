// Package sentinel substitutes list-specific placeholders for missing values
// so that two missing values from different lists never compare equal.
package sentinel

import (
	"github.com/Ramsey-B/thistle/pkg/models"
)

// Markers holds the placeholders used by one list
type Markers struct {
	Date  string `yaml:"date"`
	Value string `yaml:"value"`
}

var markers = map[models.ListKind]Markers{
	models.ListCustomer: {Date: "1900-00-00", Value: "-99999"},
	models.ListNegative: {Date: "1800-00-00", Value: "-88888"},
	models.ListPositive: {Date: "1700-00-00", Value: "-77777"},
}

// For returns the placeholders of a list
func For(kind models.ListKind) Markers {
	return markers[kind]
}

// Resolver resolves record values for one list, filling gaps with that list's
// placeholders
type Resolver struct {
	kind    models.ListKind
	markers Markers
}

// NewResolver creates a resolver for the given list
func NewResolver(kind models.ListKind) *Resolver {
	return &Resolver{kind: kind, markers: For(kind)}
}

// Kind returns the list this resolver serves
func (r *Resolver) Kind() models.ListKind {
	return r.kind
}

// Value returns the field value, or the list placeholder when it is missing
func (r *Resolver) Value(rec *models.Record, f models.Field) string {
	if v := rec.Value(f); v != nil {
		return *v
	}
	if f == models.FieldDateOfBirth {
		return r.markers.Date
	}
	return r.markers.Value
}

// Key joins the resolved values of the given fields into a composite join key
func (r *Resolver) Key(rec *models.Record, fields []models.Field) string {
	key := make([]byte, 0, 64)
	for i, f := range fields {
		if i > 0 {
			key = append(key, 0x1f)
		}
		key = append(key, r.Value(rec, f)...)
	}
	return string(key)
}
