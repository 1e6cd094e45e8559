package validate

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// PasswordSymbols is the fixed set of characters accepted as the required symbol.
const PasswordSymbols = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?`~"

const (
	passwordMinLen = 8
	passwordMaxLen = 72 // bcrypt ignores bytes past 72
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

func init() {
	if err := v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return Password(fl.Field().String()) == nil
	}); err != nil {
		panic(err)
	}
}

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

// Email reports whether s has a basic local@domain.tld shape.
func Email(s string) bool {
	if v.Var(s, "required,email") != nil {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return strings.Contains(s[at+1:], ".")
}

// Password checks the password policy and returns the first violated rule.
func Password(p string) error {
	if len(p) < passwordMinLen {
		return fmt.Errorf("password must be at least %d characters", passwordMinLen)
	}
	if len(p) > passwordMaxLen {
		return fmt.Errorf("password must be at most %d bytes", passwordMaxLen)
	}
	var upper, lower, digit, symbol bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}
	switch {
	case !upper:
		return fmt.Errorf("password must contain an uppercase letter")
	case !lower:
		return fmt.Errorf("password must contain a lowercase letter")
	case !digit:
		return fmt.Errorf("password must contain a digit")
	case !symbol:
		return fmt.Errorf("password must contain a symbol")
	}
	return nil
}
