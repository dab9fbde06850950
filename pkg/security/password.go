package security

import (
	stderrors "errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-api/pkg/errors"
)

// Account passwords are bcrypt hashed; bcrypt ignores input past 72 bytes so
// longer passwords are refused instead of silently truncated.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// ErrWrongPassword is returned by Compare when the password does not match the hash.
var ErrWrongPassword = stderrors.New("password does not match")

// PasswordHasher hashes account passwords and checks login attempts against them.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashedPassword, password string) error
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher falls back to bcrypt.DefaultCost when cost is out of range.
func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

// Hash rejects passwords outside the accepted length with a validation error.
func (b *bcryptHasher) Hash(password string) (string, error) {
	if err := CheckPassword(password); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to hash password: %w", err))
	}
	return string(hash), nil
}

func (b *bcryptHasher) Compare(hashedPassword, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if stderrors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrWrongPassword
	}
	return err
}

// CheckPassword reports a password the account rules do not accept.
func CheckPassword(password string) *errors.AppError {
	switch {
	case len(password) < MinPasswordLength:
		return errors.NewValidation(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	case len(password) > MaxPasswordLength:
		return errors.NewValidation(fmt.Sprintf("password must be at most %d bytes", MaxPasswordLength))
	}
	return nil
}
