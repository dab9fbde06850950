package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-api/pkg/errors"
)

func TestBcryptHasher(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("s3cretpass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cretpass", hash)

	assert.NoError(t, hasher.Compare(hash, "s3cretpass"))
	assert.ErrorIs(t, hasher.Compare(hash, "wrongpass"), ErrWrongPassword)
	assert.Error(t, hasher.Compare("not-a-hash", "s3cretpass"))
	assert.NotErrorIs(t, hasher.Compare("not-a-hash", "s3cretpass"), ErrWrongPassword)
}

func TestHashRejectsPasswordLength(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
		detail   string
	}{
		{"too short", "short", "password must be at least 8 characters"},
		{"too long", strings.Repeat("x", MaxPasswordLength+1), "password must be at most 72 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hasher.Hash(tt.password)
			assert.Empty(t, hash)

			appErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrValidation, appErr.Code)
			assert.Equal(t, []string{tt.detail}, appErr.Details)
		})
	}
}

func TestNewBcryptHasherClampsCost(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MaxCost + 1).(*bcryptHasher)
	assert.Equal(t, bcrypt.DefaultCost, hasher.cost)
}
