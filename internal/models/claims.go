package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the signed payload of both token types. TID doubles as the JWT ID.
type Claims struct {
	TID        string    `json:"tid"`
	UserID     uuid.UUID `json:"uid"`
	Role       string    `json:"role"`
	IsVerified bool      `json:"isVerified"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller resolved from a bearer token.
type Principal struct {
	User   *User
	Claims *Claims
}
