package storage

import (
	"context"

	"github.com/mgcam/npg-porch/pkg/domain"
)

// TokenStorage defines persistence operations for bearer tokens.
type TokenStorage interface {
	// StoreToken inserts a new token and returns the stored row including
	// its plaintext value.
	StoreToken(ctx context.Context, t domain.Token) (*domain.Token, error)
	// TokenByValue fetches a token by its plaintext value, including the
	// bound pipeline when there is one. Returns nil when no such token
	// exists. Revoked tokens are returned with RevokedAt set; rejecting
	// them is the caller's decision.
	TokenByValue(ctx context.Context, value string) (*domain.Token, error)
	// RevokeToken marks a token revoked. Revoking an already revoked token
	// keeps the original revocation time.
	RevokeToken(ctx context.Context, id domain.TokenID) error
}
