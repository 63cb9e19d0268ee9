// Package validate evaluates declarative (field, rule, message) lists and
// reports every failing field rather than stopping at the first one.
package validate

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/ae97/panel/internal/apperr"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	// min/max count runes; bcrypt limits count bytes
	_ = val.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		return err == nil && fl.Field().Kind() == reflect.String && len(fl.Field().String()) <= n
	})
	return val
}

// Rule checks Value against a validator tag.  When Other is set, the rule
// instead requires Value to equal *Other.
type Rule struct {
	Field   string
	Value   any
	Tag     string
	Other   any
	Message string
}

// Length requires a string of min..max characters.
func Length(field, value string, min, max int, msg string) Rule {
	return Rule{Field: field, Value: value, Tag: fmt.Sprintf("min=%d,max=%d", min, max), Message: msg}
}

// MaxBytes caps the encoded length of a string at n bytes.
func MaxBytes(field, value string, n int, msg string) Rule {
	return Rule{Field: field, Value: value, Tag: fmt.Sprintf("maxbytes=%d", n), Message: msg}
}

// Exact requires a string of exactly n characters.
func Exact(field, value string, n int, msg string) Rule {
	return Rule{Field: field, Value: value, Tag: fmt.Sprintf("len=%d", n), Message: msg}
}

func Email(field, value, msg string) Rule {
	return Rule{Field: field, Value: value, Tag: "required,email", Message: msg}
}

// EmailLength requires a well-formed address of min..max characters.
func EmailLength(field, value string, min, max int, msg string) Rule {
	return Rule{Field: field, Value: value, Tag: fmt.Sprintf("min=%d,max=%d,email", min, max), Message: msg}
}

func Required(field, value, msg string) Rule {
	return Rule{Field: field, Value: value, Tag: "required", Message: msg}
}

func Positive(field string, value int64, msg string) Rule {
	return Rule{Field: field, Value: value, Tag: "gt=0", Message: msg}
}

// Match requires value == other.
func Match(field, value, other, msg string) Rule {
	return Rule{Field: field, Value: value, Other: other, Tag: "eqfield", Message: msg}
}

// Check returns one failure per rule that does not hold, in rule order.
func Check(rules ...Rule) []apperr.Failure {
	var out []apperr.Failure
	for _, r := range rules {
		var err error
		if r.Other != nil {
			err = v.VarWithValue(r.Value, r.Other, r.Tag)
		} else {
			err = v.Var(r.Value, r.Tag)
		}
		if err != nil {
			out = append(out, apperr.Failure{Field: r.Field, Message: r.Message})
		}
	}
	return out
}

// All is Check folded into a single ValidationFailed error, or nil.
func All(rules ...Rule) error {
	if failures := Check(rules...); len(failures) > 0 {
		return apperr.Invalid(failures)
	}
	return nil
}
