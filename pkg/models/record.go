package models

// ListKind identifies which source list a record came from
type ListKind string

const (
	ListCustomer ListKind = "customer" // Customer monitoring list
	ListNegative ListKind = "negative" // Sanctions / adverse media list
	ListPositive ListKind = "positive" // Allow list
)

// Field identifies a comparable record attribute
type Field string

const (
	FieldFirstName   Field = "first_name"
	FieldLastName    Field = "last_name"
	FieldDateOfBirth Field = "date_of_birth"
	FieldStreet      Field = "street"
	FieldHouseNumber Field = "house_number"
	FieldZip         Field = "zip"
	FieldCity        Field = "city"

	// Derived fields, computed on demand for blocked matching
	FieldFullName    Field = "full_name"    // first_name + " " + last_name
	FieldFullAddress Field = "full_address" // house_number + " " + street
)

// RecordFields lists the stored record fields in output column order
var RecordFields = []Field{
	FieldFirstName,
	FieldLastName,
	FieldDateOfBirth,
	FieldStreet,
	FieldHouseNumber,
	FieldZip,
	FieldCity,
}

// Record is one person entry of a customer or watchlist source.
// A nil field means the value is missing.
type Record struct {
	ID                  int64   `json:"id" yaml:"id" validate:"required"`
	FirstName           *string `json:"first_name,omitempty" yaml:"first_name,omitempty"`
	LastName            *string `json:"last_name,omitempty" yaml:"last_name,omitempty"`
	DateOfBirth         *string `json:"date_of_birth,omitempty" yaml:"date_of_birth,omitempty"`
	Street              *string `json:"street,omitempty" yaml:"street,omitempty"`
	HouseNumber         *string `json:"house_number,omitempty" yaml:"house_number,omitempty"`
	HouseNumberAddendum *string `json:"house_number_addendum,omitempty" yaml:"house_number_addendum,omitempty"`
	Zip                 *string `json:"zip,omitempty" yaml:"zip,omitempty"`
	City                *string `json:"city,omitempty" yaml:"city,omitempty"`
}

// Value returns the field value, or nil when missing. Derived fields are
// missing whenever one of their components is missing.
func (r *Record) Value(f Field) *string {
	switch f {
	case FieldFirstName:
		return r.FirstName
	case FieldLastName:
		return r.LastName
	case FieldDateOfBirth:
		return r.DateOfBirth
	case FieldStreet:
		return r.Street
	case FieldHouseNumber:
		return r.HouseNumber
	case FieldZip:
		return r.Zip
	case FieldCity:
		return r.City
	case FieldFullName:
		return join(r.FirstName, r.LastName)
	case FieldFullAddress:
		return join(r.HouseNumber, r.Street)
	default:
		return nil
	}
}

// Clone returns a deep copy so normalization never aliases the caller's values
func (r Record) Clone() Record {
	return Record{
		ID:                  r.ID,
		FirstName:           clonePtr(r.FirstName),
		LastName:            clonePtr(r.LastName),
		DateOfBirth:         clonePtr(r.DateOfBirth),
		Street:              clonePtr(r.Street),
		HouseNumber:         clonePtr(r.HouseNumber),
		HouseNumberAddendum: clonePtr(r.HouseNumberAddendum),
		Zip:                 clonePtr(r.Zip),
		City:                clonePtr(r.City),
	}
}

// TextFields returns pointers to every free-text field, including the addendum
func (r *Record) TextFields() []**string {
	return []**string{
		&r.FirstName,
		&r.LastName,
		&r.Street,
		&r.HouseNumber,
		&r.HouseNumberAddendum,
		&r.Zip,
		&r.City,
	}
}

// String is a helper for building optional values
func String(s string) *string {
	return &s
}

// Deref returns the value or an empty string when missing
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func join(a, b *string) *string {
	if a == nil || b == nil {
		return nil
	}
	v := *a + " " + *b
	return &v
}
