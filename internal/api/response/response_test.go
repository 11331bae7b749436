package response

import (
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validated struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	Method   string `validate:"oneof=stripe paystack paypal"`
	PlanID   int64  `validate:"gt=0"`
}

func TestValidationError(t *testing.T) {
	err := validator.New().Struct(validated{Email: "nope", Password: "short", Method: "cash"})
	require.Error(t, err)

	got := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, StatusError, got.Status)
	assert.Equal(t, "field Email must be a valid email, "+
		"field Password must be at least 8 characters, "+
		"field Method must be one of [stripe paystack paypal], "+
		"field PlanID must be greater than 0", got.Error)
}

func TestOKWithData(t *testing.T) {
	got := OKWithData(map[string]int{"id": 1})
	assert.Equal(t, StatusOK, got.Status)
	assert.Equal(t, map[string]int{"id": 1}, got.Data)
}
