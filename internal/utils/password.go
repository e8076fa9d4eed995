package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when asked to hash an empty password.
var ErrEmptyPassword = errors.New("password is empty")

// PasswordHasher hashes and checks passwords with bcrypt at a fixed cost.
// Inputs longer than 72 bytes are rejected by bcrypt with ErrPasswordTooLong.
type PasswordHasher struct{ Cost int }

func NewPasswordHasher(cost int) PasswordHasher { return PasswordHasher{Cost: cost} }

// Hash returns the salted bcrypt hash of plain.
func (h PasswordHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify safely compares a bcrypt hash and a plain password.
func (h PasswordHasher) Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
