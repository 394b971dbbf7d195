package service

import (
	"unicode/utf8"

	"github.com/authgate/session-auth/internal/core/domain"
)

const minPasswordLength = 8

// PasswordPolicy requires at least 8 characters with one digit, one
// lowercase and one uppercase ASCII letter.
type PasswordPolicy struct{}

func NewPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{}
}

// Check returns nil when raw satisfies the policy, otherwise a
// *domain.ValidationError carrying domain.MsgWeakPassword.
func (PasswordPolicy) Check(raw string) error {
	var digit, lower, upper bool
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		}
	}

	if utf8.RuneCountInString(raw) < minPasswordLength || !digit || !lower || !upper {
		return domain.NewValidationError(domain.MsgWeakPassword)
	}
	return nil
}
