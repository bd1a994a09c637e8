// Package validation wraps a shared go-playground validator and renders its
// failures as one readable message.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Error is returned for any struct that fails validation.
type Error struct {
	Fields  []string
	Message string
}

func (e *Error) Error() string { return e.Message }

func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// report json/query names instead of Go field names
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "query"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	})
	return validate
}

// Struct validates s; the returned error is an *Error.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return &Error{Message: err.Error()}
	}
	out := &Error{}
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		out.Fields = append(out.Fields, fe.Field())
		msgs = append(msgs, translate(fe))
	}
	out.Message = strings.Join(msgs, "; ")
	return out
}

func translate(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", f)
	case "required_without":
		return fmt.Sprintf("%q is required when %q is missing", f, strings.ToLower(fe.Param()))
	case "required_if":
		return fmt.Sprintf("%q is required when sorting by %s", f, lastWord(fe.Param()))
	case "excluded_with":
		return fmt.Sprintf("%q must not be sent together with %q", f, strings.ToLower(fe.Param()))
	case "email":
		return fmt.Sprintf("%q must be a valid email", f)
	case "alphanum":
		return fmt.Sprintf("%q must only contain alpha-numeric characters", f)
	case "latitude", "longitude":
		return fmt.Sprintf("%q must be a valid %s", f, fe.Tag())
	case "eqfield":
		return fmt.Sprintf("%q must match %q", f, strings.ToLower(fe.Param()))
	case "oneof":
		return fmt.Sprintf("%q must be one of [%s]", f, fe.Param())
	case "eq":
		return fmt.Sprintf("%q must be %s", f, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%q must be at least %s", f, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%q must be at most %s", f, fe.Param())
	default:
		return fmt.Sprintf("%q failed %s validation", f, fe.Tag())
	}
}

func lastWord(s string) string {
	fs := strings.Fields(s)
	if len(fs) == 0 {
		return s
	}
	return fs[len(fs)-1]
}
