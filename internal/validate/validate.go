// Package validate checks study entries before they are persisted.
package validate

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/verte-zerg/studytrack/internal/model"
)

// Raw record keys that must be present.
const (
	KeyDate     = "Date"
	KeySubject  = "Subject"
	KeyDuration = "Study Duration"
)

const (
	maxHours    = 24
	subjectRule = "oneof=Physics Chemistry Botany Zoology"
)

// structs checks the validate tags on the model types. Field names in its
// errors are the JSON keys.
var structs = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// ValidationError describes why a record was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate reports whether a raw record may be persisted.
func Validate(raw map[string]any) bool {
	return Check(raw) == nil
}

// Check returns the first problem with a raw record, or nil.
func Check(raw map[string]any) error {
	for _, key := range []string{KeyDate, KeySubject, KeyDuration} {
		if _, ok := raw[key]; !ok {
			return invalid(key, "missing")
		}
	}
	date, ok := raw[KeyDate].(string)
	if !ok {
		return invalid(KeyDate, "not a string")
	}
	if err := checkDate(date); err != nil {
		return err
	}
	subject, ok := raw[KeySubject].(string)
	if !ok {
		return invalid(KeySubject, "not a string")
	}
	if !model.Subject(subject).Valid() {
		return invalid(KeySubject, "%q is not one of Physics, Chemistry, Botany, Zoology", subject)
	}
	duration, ok := raw[KeyDuration].(string)
	if !ok {
		return invalid(KeyDuration, "not a string")
	}
	hours, err := model.ParseHours(duration)
	if err != nil {
		return invalid(KeyDuration, "%q is not \"<number> hr\"", duration)
	}
	return checkHours(hours)
}

// Entry applies the same policy to a typed entry, plus range checks on
// questions and the rating fields.
func Entry(e model.StudyEntry) error {
	return fromValidator(structs.Struct(e))
}

// Target checks a weekly goal and the subject it is stored under.
func Target(subject model.Subject, t model.WeeklyTarget) error {
	if err := structs.Var(string(subject), subjectRule); err != nil {
		return invalid(KeySubject, "%q is not one of Physics, Chemistry, Botany, Zoology", string(subject))
	}
	return fromValidator(structs.Struct(t))
}

// Profile checks that weak and strong subjects are known.
func Profile(p model.Profile) error {
	return fromValidator(structs.Struct(p))
}

// fromValidator turns the first field failure into a *ValidationError.
func fromValidator(err error) error {
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return err
	}
	fe := fields[0]
	return &ValidationError{Field: fe.Field(), Reason: reason(fe)}
}

func reason(fe validator.FieldError) string {
	if v := reflect.ValueOf(fe.Value()); v.Kind() == reflect.Float64 {
		if f := v.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			return "not a finite number"
		}
	}
	switch fe.Tag() {
	case "required":
		return "missing"
	case "datetime":
		return fmt.Sprintf("%q is not a YYYY-MM-DD date", fe.Value())
	case "oneof":
		return fmt.Sprintf("%q is not one of %s", fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte", "min":
		return fmt.Sprintf("%v is below %s", fe.Value(), fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%v is above %s", fe.Value(), fe.Param())
	}
	return fmt.Sprintf("failed %s check", fe.Tag())
}

func checkDate(date string) error {
	if strings.TrimSpace(date) == "" {
		return invalid(KeyDate, "empty")
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return invalid(KeyDate, "%q is not a YYYY-MM-DD date", date)
	}
	return nil
}

func checkHours(h float64) error {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return invalid(KeyDuration, "not a finite number")
	}
	if h < 0 || h > maxHours {
		return invalid(KeyDuration, "%.2f is outside 0-%d hours", h, maxHours)
	}
	return nil
}
