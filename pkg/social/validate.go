package social

import (
	"strings"

	"resenhas/pkg/validation"
)

// trim strips surrounding whitespace from a present text field.
func trim(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// check validates every field of in, or with partial set only the named
// fields that the request carried.
func check(in interface{}, partial bool, present []string) error {
	if !partial {
		return validation.Struct(in)
	}
	return validation.Partial(in, present...)
}
