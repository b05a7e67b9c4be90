package normalizers

import (
	"github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/models"
)

// Stage is one typed step of the record pipeline. Stages mutate the record
// in place. A value that cannot be normalized becomes nil and the stage
// reports it as a malformed field; the record itself is always kept.
type Stage struct {
	Name  string
	Apply func(r *models.Record) *errors.ScreeningError
}

// Pipeline is an ordered list of stages. Order matters: umlaut folding must
// precede ASCII folding and zip padding must precede city disambiguation.
type Pipeline struct {
	stages []Stage
}

// Issue is a malformed field found in the record at Index
type Issue struct {
	Index int
	Err   *errors.ScreeningError
}

// NewPipeline builds a pipeline from the given stages
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// DefaultPipeline returns the standard record normalization pipeline
func DefaultPipeline() *Pipeline {
	return NewPipeline(
		Stage{Name: "date_of_birth", Apply: canonicalizeDate},
		textStage("lowercase"),
		textStage("trim"),
		textStage("remove_punctuation"),
		fieldStage("strip_titles", nameFields),
		textStage("fold_umlauts"),
		textStage("ascii_fold", "ascii_fold", "lowercase", "remove_punctuation"),
		fieldStage("pad_zip", zipField),
		Stage{Name: "correct_city", Apply: correctCity},
		Stage{Name: "house_number", Apply: splitHouseNumber},
		fieldStage("street_suffix", streetField),
	)
}

// Stages returns the stage names in execution order
func (p *Pipeline) Stages() []string {
	names := make([]string, 0, len(p.stages))
	for _, s := range p.stages {
		names = append(names, s.Name)
	}
	return names
}

// Normalize returns a normalized copy of the record and the fields that had
// to be dropped
func (p *Pipeline) Normalize(r models.Record) (models.Record, []*errors.ScreeningError) {
	out := r.Clone()
	var issues []*errors.ScreeningError
	for _, s := range p.stages {
		if err := s.Apply(&out); err != nil {
			issues = append(issues, err)
		}
	}
	return out, issues
}

// NormalizeAll normalizes every record, preserving order
func (p *Pipeline) NormalizeAll(records []models.Record) ([]models.Record, []Issue) {
	out := make([]models.Record, len(records))
	var issues []Issue
	for i, r := range records {
		var errs []*errors.ScreeningError
		out[i], errs = p.Normalize(r)
		for _, err := range errs {
			issues = append(issues, Issue{Index: i, Err: err})
		}
	}
	return out, issues
}

// mustChain resolves built-in normalizers, which are registered at init
func mustChain(names ...string) Normalizer {
	fn, err := Chain(names...)
	if err != nil {
		panic(err)
	}
	return fn
}

// textStage lifts registered normalizers over every free-text field. The
// stage name is the normalizer name unless a chain is given. Results that
// end up empty are stored as nil.
func textStage(name string, chain ...string) Stage {
	if len(chain) == 0 {
		chain = []string{name}
	}
	fn := mustChain(chain...)
	return Stage{
		Name: name,
		Apply: func(r *models.Record) *errors.ScreeningError {
			for _, field := range r.TextFields() {
				*field = mapValue(*field, fn)
			}
			return nil
		},
	}
}

// fieldStage applies the registered normalizer of the same name to the
// fields picked from the record
func fieldStage(name string, fields func(r *models.Record) []**string) Stage {
	fn := mustChain(name)
	return Stage{
		Name: name,
		Apply: func(r *models.Record) *errors.ScreeningError {
			for _, field := range fields(r) {
				*field = mapValue(*field, fn)
			}
			return nil
		},
	}
}

func nameFields(r *models.Record) []**string {
	return []**string{&r.FirstName, &r.LastName}
}

func zipField(r *models.Record) []**string {
	return []**string{&r.Zip}
}

func streetField(r *models.Record) []**string {
	return []**string{&r.Street}
}

func mapValue(v *string, fn Normalizer) *string {
	if v == nil {
		return nil
	}
	out := fn(*v)
	if out == "" {
		return nil
	}
	return &out
}

func canonicalizeDate(r *models.Record) *errors.ScreeningError {
	if r.DateOfBirth == nil {
		return nil
	}
	d, ok := CanonicalDate(*r.DateOfBirth)
	if !ok {
		raw := *r.DateOfBirth
		r.DateOfBirth = nil
		if Trim(raw) == "" {
			return nil
		}
		return errors.NewScreeningErrorf(errors.KindMalformedField, "record %d: %q is not a date, value dropped", r.ID, raw).
			AddField(string(models.FieldDateOfBirth))
	}
	r.DateOfBirth = &d
	return nil
}

func correctCity(r *models.Record) *errors.ScreeningError {
	zip := models.Deref(r.Zip)
	r.City = mapValue(r.City, func(city string) string {
		return CorrectCity(city, zip)
	})
	return nil
}

func splitHouseNumber(r *models.Record) *errors.ScreeningError {
	extracted := ""
	if r.Street != nil {
		var street string
		street, extracted = ExtractHouseNumber(*r.Street)
		r.Street = mapValue(&street, Trim)
	}

	merged := MergeHouseNumber(models.Deref(r.HouseNumber), models.Deref(r.HouseNumberAddendum), extracted)
	r.HouseNumber = mapValue(&merged, Trim)
	r.HouseNumberAddendum = nil
	return nil
}
