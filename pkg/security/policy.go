package security

import (
	"errors"
	"strings"
	"unicode"
)

const (
	// MinPasswordLength is the shortest password accepted at registration.
	MinPasswordLength = 8
	// MaxPasswordLength caps the input handed to argon2.
	MaxPasswordLength = 128
)

var (
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 128 characters")
	ErrPasswordNoUpper    = errors.New("password must contain an uppercase letter")
	ErrPasswordNoLower    = errors.New("password must contain a lowercase letter")
	ErrPasswordNoDigit    = errors.New("password must contain a digit")
	ErrPasswordNoSpecial  = errors.New("password must contain a special character")
	ErrPasswordWhitespace = errors.New("password must not start or end with whitespace")
)

// ValidatePasswordPolicy returns every rule the password violates, joined.
func ValidatePasswordPolicy(password string) error {
	var errs []error
	if len([]rune(password)) < MinPasswordLength {
		errs = append(errs, ErrPasswordTooShort)
	}
	if len([]rune(password)) > MaxPasswordLength {
		errs = append(errs, ErrPasswordTooLong)
	}
	if password != strings.TrimSpace(password) {
		errs = append(errs, ErrPasswordWhitespace)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper {
		errs = append(errs, ErrPasswordNoUpper)
	}
	if !lower {
		errs = append(errs, ErrPasswordNoLower)
	}
	if !digit {
		errs = append(errs, ErrPasswordNoDigit)
	}
	if !special {
		errs = append(errs, ErrPasswordNoSpecial)
	}
	return errors.Join(errs...)
}

var policyRules = []error{
	ErrPasswordTooShort,
	ErrPasswordTooLong,
	ErrPasswordNoUpper,
	ErrPasswordNoLower,
	ErrPasswordNoDigit,
	ErrPasswordNoSpecial,
	ErrPasswordWhitespace,
}

// PolicyViolations lists the messages of every rule err reports, in a stable order,
// for the "password" entry of a validation error's details.
func PolicyViolations(err error) []string {
	var out []string
	for _, rule := range policyRules {
		if errors.Is(err, rule) {
			out = append(out, rule.Error())
		}
	}
	return out
}
