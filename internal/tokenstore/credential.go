package tokenstore

import (
	"errors"
	"fmt"
	"time"

	jwtgo "github.com/golang-jwt/jwt/v5"
	"github.com/guregu/null"
)

var ErrNoExpiry = errors.New("the token does not carry an expiration")

// ParseExpiry reads the `exp` claim of a JWT bearer token. The signature is not verified: the client is not the
// audience of the token and only uses the expiry to avoid sending credentials that are known to be dead.
func ParseExpiry(token string) (null.Time, error) {
	claims := &jwtgo.RegisteredClaims{}
	_, _, err := jwtgo.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return null.Time{}, fmt.Errorf("parsing token: %w", err)
	}

	if claims.ExpiresAt == nil {
		return null.Time{}, ErrNoExpiry
	}

	return null.TimeFrom(claims.ExpiresAt.Time), nil
}

// IsExpired reports whether the token is known to expire before now+leeway. Tokens whose expiry cannot be read are
// never considered expired.
func IsExpired(token string, now time.Time, leeway time.Duration) bool {
	expiresAt, err := ParseExpiry(token)
	if err != nil {
		return false
	}

	return !expiresAt.Time.After(now.Add(leeway))
}

// ParseSubject reads the `sub` claim of a JWT bearer token without verifying it.
func ParseSubject(token string) (string, error) {
	claims := &jwtgo.RegisteredClaims{}
	_, _, err := jwtgo.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return "", fmt.Errorf("parsing token: %w", err)
	}

	return claims.Subject, nil
}
