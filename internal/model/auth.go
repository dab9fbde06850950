package model

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   int64    `json:"expires_in"`
	Account     *Account `json:"account"`
}

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
)

// TokenClaims represents JWT claims
type TokenClaims struct {
	jwt.RegisteredClaims
	AccountID uuid.UUID  `json:"account_id"`
	Username  string     `json:"username"`
	Role      Role       `json:"role"`
	DoctorID  *uuid.UUID `json:"doctor_id,omitempty"`
}

func (c *TokenClaims) Actor() Actor {
	return Actor{AccountID: c.AccountID, Role: c.Role, DoctorID: c.DoctorID}
}
