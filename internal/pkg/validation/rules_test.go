package validation

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatterns(t *testing.T) {
	assert.True(t, IsPostalCode("560001"))
	assert.False(t, IsPostalCode("56001"))
	assert.False(t, IsPostalCode("56000a"))

	assert.True(t, IsMobile("9876543210"))
	assert.False(t, IsMobile("+919876543210"))

	assert.True(t, IsEmail("writer@example.in"))
	assert.False(t, IsEmail("writer@example"))
	assert.False(t, IsEmail("wr iter@example.in"))
}

type registration struct {
	Name       string `validate:"required,min=2"`
	Mobile     string `validate:"required,mobile"`
	PostalCode string `validate:"required,postalcode"`
	Email      string `validate:"required,looseemail"`
}

func TestRegisterOnAndFieldMessages(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterOn(v))

	err := v.Struct(registration{Name: "A", Mobile: "123", PostalCode: "560001", Email: "x@y.z"})
	require.Error(t, err)

	msgs := FieldMessages(err)
	assert.Equal(t, "must be at least 2 characters", msgs["name"])
	assert.Equal(t, "must be a 10 digit mobile number", msgs["mobile"])
	assert.NotContains(t, msgs, "postalCode")
	assert.NotContains(t, msgs, "email")
}

func TestFieldMessagesNonValidatorError(t *testing.T) {
	msgs := FieldMessages(errors.New("unexpected EOF"))
	assert.Equal(t, map[string]string{"body": "unexpected EOF"}, msgs)
}
