package validation_test

import (
	"math"
	"testing"

	"realestate/internal/validation"

	"github.com/stretchr/testify/assert"
)

func TestPropertyFormChecks(t *testing.T) {
	assert.Equal(t, "", validation.CheckTitle("Cabaña"))
	assert.Equal(t, validation.MsgTitleShort, validation.CheckTitle("Casa"))

	assert.Equal(t, "", validation.CheckPrice(100))
	assert.Equal(t, validation.MsgPriceInvalid, validation.CheckPrice(0))
	assert.Equal(t, validation.MsgPriceInvalid, validation.CheckPrice(math.NaN()))

	assert.Equal(t, "", validation.CheckQuantity(2))
	assert.Equal(t, validation.MsgSelectQuantity, validation.CheckQuantity(0))

	assert.Equal(t, "", validation.CheckDescription("x"))
	assert.Equal(t, validation.MsgAddDescription, validation.CheckDescription(""))
}

func TestCheckPropertyForm(t *testing.T) {
	errs := validation.CheckPropertyForm(validation.PropertyForm{
		Title:       "Casa",
		Price:       100,
		NumberRooms: 1,
	})

	assert.Equal(t, map[string]string{
		"title":            validation.MsgTitleShort,
		"numberBathrooms":  validation.MsgSelectQuantity,
		"numberParkinLots": validation.MsgSelectQuantity,
		"description":      validation.MsgAddDescription,
	}, errs)
}

func TestLoginFormChecks(t *testing.T) {
	assert.Equal(t, validation.MsgFieldRequired, validation.CheckEmail(""))
	assert.Equal(t, validation.MsgEmailInvalid, validation.CheckEmail("admin@"))
	assert.Equal(t, validation.MsgEmailInvalid, validation.CheckEmail("admin@example.technology"))
	assert.Equal(t, "", validation.CheckEmail("Admin@Example.com"))

	assert.Equal(t, validation.MsgPasswordMissing, validation.CheckPassword(""))
	assert.Empty(t, validation.CheckLoginForm(validation.LoginForm{Email: "a@b.io", Password: "x"}))
}

func TestAllowOnlyDigits(t *testing.T) {
	assert.True(t, validation.AllowOnlyDigits("7"))
	assert.True(t, validation.AllowOnlyDigits("Backspace"))
	assert.False(t, validation.AllowOnlyDigits("e"))
	assert.False(t, validation.AllowOnlyDigits("."))
}
