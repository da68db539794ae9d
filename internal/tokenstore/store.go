// Package tokenstore persists the bearer credential issued by the gateway. There is a single credential per client
// process, keyed globally rather than per wallet.
package tokenstore

import (
	"context"
	"errors"
)

// CredentialKey is the global key under which the bearer token is stored.
const CredentialKey = "auth_token"

var ErrEmptyToken = errors.New("token cannot be empty")

// TokenStore is the only owner of the bearer credential. Readers must treat the returned token as potentially stale:
// it may be cleared by another goroutine right after it was read.
type TokenStore interface {
	// Get returns the stored token, or an empty string when there is none.
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}
