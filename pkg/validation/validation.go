// Package validation checks request inputs with go-playground/validator and
// turns failures into field-level apperr.ValidationError values.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"resenhas/pkg/apperr"
)

const (
	MsgRequired = "This field is required."
	MsgBlank    = "This field may not be blank."
)

var (
	usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
	engine          = newEngine()
)

func newEngine() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	Configure(v)
	return v
}

// Configure registers the custom rules and reports fields by their json
// name. It is applied to the package engine and to gin's binding engine.
func Configure(v *validator.Validate) {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	mustRegister(v, "notblank", validators.NotBlank)
	mustRegister(v, "maxwords", maxWords)
	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// maxWords counts whitespace separated words, e.g. `maxwords=50`.
func maxWords(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(strings.Fields(fl.Field().String())) <= n
}

// Struct validates every field of s.
func Struct(s interface{}) error {
	return Errors(engine.Struct(s))
}

// Partial validates only the named struct fields of s, for updates that
// carry a subset of the writable fields.
func Partial(s interface{}, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return Errors(engine.StructPartial(s, fields...))
}

// Errors converts validator failures into an apperr.ValidationError keyed by
// json field name. Other errors pass through unchanged.
func Errors(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	v := apperr.NewValidation()
	for _, fe := range fieldErrs {
		v.Add(fe.Field(), Message(fe))
	}
	return v.OrNil()
}

// Message renders the client-facing text for one failed rule.
func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return MsgRequired
	case "notblank":
		return MsgBlank
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "maxwords":
		return fmt.Sprintf("Máximo %s palavras.", fe.Param())
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(indirect(fe.Value())))
	case "url", "http_url":
		return "Enter a valid URL."
	case "email":
		return "Enter a valid email address."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	default:
		return "Invalid value."
	}
}

func indirect(x interface{}) interface{} {
	rv := reflect.ValueOf(x)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}
