package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordProblem(t *testing.T) {
	assert.Empty(t, PasswordProblem("Abc123"))
	assert.NotEmpty(t, PasswordProblem("Ab1"), "too short")
	assert.NotEmpty(t, PasswordProblem("abcdef1"), "no upper case")
	assert.NotEmpty(t, PasswordProblem("ABCDEF1"), "no lower case")
	assert.NotEmpty(t, PasswordProblem("Abcdefg"), "no digit")
}

func TestValidPersonName(t *testing.T) {
	assert.True(t, ValidPersonName("Jürg"))
	assert.True(t, ValidPersonName("Anne-Marie O'Neill"))
	assert.False(t, ValidPersonName(""))
	assert.False(t, ValidPersonName("R2D2"))
	assert.False(t, ValidPersonName("Abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "max@example.com", NormalizeEmail("  Max@Example.COM "))
}

func TestRegister(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	type req struct {
		Password  string `validate:"password"`
		FirstName string `validate:"personname"`
	}

	assert.NoError(t, v.Struct(req{Password: "Secret1", FirstName: "Max"}))

	err := v.Struct(req{Password: "secret", FirstName: "Max1"})
	require.Error(t, err)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
	assert.Contains(t, Message(verrs[0]), "Großbuchstaben")
}
