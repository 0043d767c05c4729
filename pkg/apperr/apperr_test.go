package apperr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorOrNil(t *testing.T) {
	v := NewValidation()
	assert.NoError(t, v.OrNil())

	v.Add("nota", "must be between 1 and 5")
	v.Add("nota", "required")
	v.Add("texto", "required")
	err := v.OrNil()
	assert.Error(t, err)
	assert.Equal(t, "validation error: nota: must be between 1 and 5; required, texto: required", err.Error())
}

func TestAsValidationThroughWrap(t *testing.T) {
	err := fmt.Errorf("create review: %w", Invalid("titulo_livro", "required"))

	v, ok := AsValidation(err)
	assert.True(t, ok)
	assert.Equal(t, []string{"required"}, v.Fields["titulo_livro"])

	_, ok = AsValidation(ErrNotFound)
	assert.False(t, ok)
}
