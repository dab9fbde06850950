package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
)

func testAccount() *model.Account {
	return &model.Account{
		Base:     model.Base{ID: uuid.New()},
		Username: "drhouse",
		Role:     model.RoleDoctor,
	}
}

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)
	account := testAccount()
	doctorID := uuid.New()

	token, expiresAt, err := svc.GenerateAccessToken(account, &doctorID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.AccountID)
	assert.Equal(t, model.RoleDoctor, claims.Role)
	require.NotNil(t, claims.DoctorID)
	assert.Equal(t, doctorID, *claims.DoctorID)

	actor := claims.Actor()
	assert.Equal(t, account.ID, actor.AccountID)
}

func TestValidateRejects(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)
	token, _, err := svc.GenerateAccessToken(testAccount(), nil)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewJWTService("other-secret", time.Hour).ValidateToken(token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("expired", func(t *testing.T) {
		expired := &jwtService{secret: []byte("test-secret"), expiry: time.Hour, now: func() time.Time { return time.Now().Add(-2 * time.Hour) }}
		old, _, err := expired.GenerateAccessToken(testAccount(), nil)
		require.NoError(t, err)
		_, err = svc.ValidateToken(old)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("unsigned", func(t *testing.T) {
		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &model.TokenClaims{AccountID: uuid.New()}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.ValidateToken(none)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})
}
