package models

import "time"

// RevokedToken is a revocation ledger entry.
type RevokedToken struct {
	TID       string    `json:"tid"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthResult is returned by flows that issue a token pair.
type AuthResult struct {
	User         map[string]any
	AccessToken  string
	RefreshToken string
}
