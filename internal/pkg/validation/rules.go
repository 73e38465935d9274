package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Validation rule parameters
var (
	PasswordMinLength = 6
	PasswordMaxLength = 128
	NameMaxLength     = 50

	// Letters including German umlauts, spaces, hyphens and apostrophes
	NamePattern = regexp.MustCompile(`^[a-zA-ZäöüÄÖÜß\s'-]+$`)
)

// Custom validator tags
const (
	TagPassword   = "password"
	TagPersonName = "personname"
)

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PasswordProblem returns a German description of what is wrong with a
// password, or "" when it is acceptable
func PasswordProblem(password string) string {
	n := utf8.RuneCountInString(password)
	if n < PasswordMinLength || n > PasswordMaxLength {
		return "Passwort muss zwischen 6 und 128 Zeichen lang sein"
	}

	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !lower || !upper || !digit {
		return "Passwort muss mindestens einen Kleinbuchstaben, einen Großbuchstaben und eine Zahl enthalten"
	}
	return ""
}

// ValidPersonName checks a trimmed first or last name
func ValidPersonName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > NameMaxLength {
		return false
	}
	return NamePattern.MatchString(name)
}

// Register installs the custom tags on a validator instance
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation(TagPassword, func(fl validator.FieldLevel) bool {
		return PasswordProblem(fl.Field().String()) == ""
	}); err != nil {
		return err
	}
	return v.RegisterValidation(TagPersonName, func(fl validator.FieldLevel) bool {
		return ValidPersonName(fl.Field().String())
	})
}

// Message renders a German message for a failed field validation
func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " ist erforderlich"
	case "email":
		return "Bitte geben Sie eine gültige E-Mail-Adresse ein"
	case TagPassword:
		if p, ok := fe.Value().(string); ok {
			if msg := PasswordProblem(p); msg != "" {
				return msg
			}
		}
		return "Ungültiges Passwort"
	case TagPersonName:
		return fe.Field() + " darf nur Buchstaben, Leerzeichen, Bindestriche und Apostrophe enthalten (max. 50 Zeichen)"
	case "min", "gte":
		return fe.Field() + " muss mindestens " + fe.Param() + " sein"
	case "max", "lte":
		return fe.Field() + " darf höchstens " + fe.Param() + " sein"
	case "oneof":
		return fe.Field() + " muss einer der folgenden Werte sein: " + fe.Param()
	default:
		return fe.Field() + " ist ungültig"
	}
}
