package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// TokenID uniquely identifies an issued token.
type TokenID int64

// TokenValueLength is the length in characters of a token value.
const TokenValueLength = 32

// Token is a bearer credential for the porch API. Admin tokens carry no
// pipeline and may register pipelines and issue further tokens; tokens bound
// to a pipeline may only operate on tasks.
type Token struct {
	// ID is the unique identifier of the token.
	ID TokenID `json:"-"`
	// Pipeline is the pipeline the token is bound to, nil for admin tokens.
	Pipeline *Pipeline `json:"pipeline,omitempty"`
	// Description records what the token was issued for.
	Description string `json:"description"`
	// Value is the plaintext token. Populated only at issue time; lookups
	// leave it empty.
	Value string `json:"token,omitempty"`

	// IssuedAt is the time the token was created.
	IssuedAt time.Time `json:"-"`
	// RevokedAt marks when the token was revoked; zero while valid.
	RevokedAt time.Time `json:"-"`
}

// Admin reports whether the token is an administrative credential.
func (t Token) Admin() bool { return t.Pipeline == nil }

// Revoked reports whether the token has been withdrawn.
func (t Token) Revoked() bool { return !t.RevokedAt.IsZero() }

// NewTokenValue generates a random token value of TokenValueLength lowercase
// hex characters.
func NewTokenValue() string {
	b := make([]byte, TokenValueLength/2)
	_, _ = rand.Read(b)

	return hex.EncodeToString(b)
}
