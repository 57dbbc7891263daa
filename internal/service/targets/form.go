package targets

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

// Field names one of the four target inputs.
type Field string

const (
	FieldCalories Field = "calories"
	FieldProtein  Field = "protein"
	FieldCarbs    Field = "carbs"
	FieldFat      Field = "fat"
)

// Fields lists the form fields in display order.
var Fields = []Field{FieldCalories, FieldProtein, FieldCarbs, FieldFat}

// IsValid reports whether f is one of the four fields.
func (f Field) IsValid() bool {
	switch f {
	case FieldCalories, FieldProtein, FieldCarbs, FieldFat:
		return true
	}
	return false
}

// FormState is the serializable state of a Form.
type FormState struct {
	Calories string `json:"calories"`
	Protein  string `json:"protein"`
	Carbs    string `json:"carbs"`
	Fat      string `json:"fat"`
	// Derived is the field computed from the other three, or empty.
	Derived Field `json:"derived,omitempty"`
}

// Form holds the four target inputs as typed text. When exactly three are
// set the fourth is computed from the energy identities and tagged derived.
type Form struct {
	values  map[Field]string
	derived Field
}

// NewForm returns an empty form.
func NewForm() *Form {
	return &Form{values: make(map[Field]string, len(Fields))}
}

// FormFromTargets returns a fully set form with no derived field.
func FormFromTargets(t domain.MacroTargets) *Form {
	f := NewForm()
	f.values[FieldCalories] = strconv.Itoa(t.Calories)
	f.values[FieldProtein] = strconv.Itoa(t.Protein)
	f.values[FieldCarbs] = strconv.Itoa(t.Carbs)
	f.values[FieldFat] = strconv.Itoa(t.Fat)
	return f
}

// RestoreForm rebuilds a form from its state. An invalid Derived is dropped.
func RestoreForm(s FormState) *Form {
	f := NewForm()
	f.values[FieldCalories] = strings.TrimSpace(s.Calories)
	f.values[FieldProtein] = strings.TrimSpace(s.Protein)
	f.values[FieldCarbs] = strings.TrimSpace(s.Carbs)
	f.values[FieldFat] = strings.TrimSpace(s.Fat)
	if s.Derived.IsValid() && f.values[s.Derived] != "" {
		f.derived = s.Derived
	}
	return f
}

// State returns the serializable state.
func (f *Form) State() FormState {
	return FormState{
		Calories: f.values[FieldCalories],
		Protein:  f.values[FieldProtein],
		Carbs:    f.values[FieldCarbs],
		Fat:      f.values[FieldFat],
		Derived:  f.derived,
	}
}

// Value returns the text of a field.
func (f *Form) Value(field Field) string { return f.values[field] }

// Derived returns the derived field, if any.
func (f *Form) Derived() (Field, bool) { return f.derived, f.derived != "" }

// IsDerived reports whether field was computed rather than typed.
func (f *Form) IsDerived(field Field) bool { return f.derived != "" && f.derived == field }

// Set applies a single edit.
//
// Editing the derived field makes it a typed value. Editing another field
// while one is derived recomputes the derived one from the new inputs. A
// field emptied by the edit is never re-derived by that same edit.
func (f *Form) Set(field Field, text string) {
	f.values[field] = strings.TrimSpace(text)

	switch {
	case f.derived == field:
		f.derived = ""
	case f.derived != "":
		d := f.derived
		f.values[d] = ""
		f.derived = ""
		if f.values[field] != "" {
			f.solve()
		}
		if f.derived != d {
			f.values[d] = ""
			f.derived = ""
		}
		return
	}

	if f.values[field] != "" {
		f.solve()
	}
}

// SetMany applies several edits at once. With two or more edits all derived
// state is cleared and the form is solved again from scratch.
func (f *Form) SetMany(edits map[Field]string) {
	if len(edits) == 1 {
		for field, text := range edits {
			f.Set(field, text)
		}
		return
	}

	if f.derived != "" {
		if _, edited := edits[f.derived]; !edited {
			f.values[f.derived] = ""
		}
		f.derived = ""
	}
	for field, text := range edits {
		f.values[field] = strings.TrimSpace(text)
	}
	f.solve()
}

// solve computes the single missing field when the other three parse.
func (f *Form) solve() {
	var missing Field
	nums := make(map[Field]float64, len(Fields))
	for _, field := range Fields {
		text := f.values[field]
		if text == "" {
			if missing != "" {
				return
			}
			missing = field
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return
		}
		nums[field] = v
	}
	if missing == "" {
		return
	}

	v := Solve(missing, nums)
	f.values[missing] = strconv.Itoa(v)
	f.derived = missing
}

// Solve computes the missing field from the other three using 4 kcal/g for
// protein and carbs and 9 kcal/g for fat, rounded to the nearest integer.
func Solve(missing Field, known map[Field]float64) int {
	p, c, fat, kcal := known[FieldProtein], known[FieldCarbs], known[FieldFat], known[FieldCalories]
	var v float64
	switch missing {
	case FieldCalories:
		v = p*domain.KcalPerGramProtein + c*domain.KcalPerGramCarbs + fat*domain.KcalPerGramFat
	case FieldProtein:
		v = (kcal - c*domain.KcalPerGramCarbs - fat*domain.KcalPerGramFat) / domain.KcalPerGramProtein
	case FieldCarbs:
		v = (kcal - p*domain.KcalPerGramProtein - fat*domain.KcalPerGramFat) / domain.KcalPerGramCarbs
	case FieldFat:
		v = (kcal - p*domain.KcalPerGramProtein - c*domain.KcalPerGramCarbs) / domain.KcalPerGramFat
	}
	return int(math.Round(v))
}

// Targets validates the form and returns the accepted targets.
// All four fields must be present and numeric, none negative, calories > 0.
func (f *Form) Targets(userID uuid.UUID) (domain.MacroTargets, error) {
	var errs []domain.FieldError
	nums := make(map[Field]int, len(Fields))
	for _, field := range Fields {
		text := f.values[field]
		if text == "" {
			errs = append(errs, domain.FieldError{Field: string(field), Message: "required"})
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, domain.FieldError{Field: string(field), Message: "must be a number"})
			continue
		}
		nums[field] = int(math.Round(v))
	}
	if len(errs) > 0 {
		return domain.MacroTargets{}, domain.NewValidationErrors(errs)
	}

	t := domain.MacroTargets{
		UserID:   userID,
		Calories: nums[FieldCalories],
		Protein:  nums[FieldProtein],
		Carbs:    nums[FieldCarbs],
		Fat:      nums[FieldFat],
	}
	if err := t.Validate(); err != nil {
		return domain.MacroTargets{}, err
	}
	return t, nil
}
