package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/guregu/null"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/solanize/solanize-client/internal/db"
)

// SQLStore keeps the credential in the local SQLite database so it survives restarts.
type SQLStore struct {
	DB db.ConnectionPool
}

var _ TokenStore = (*SQLStore)(nil)

func NewSQLStore(dbConnectionPool db.ConnectionPool) *SQLStore {
	return &SQLStore{DB: dbConnectionPool}
}

func (s *SQLStore) Get(ctx context.Context) (string, error) {
	const query = `SELECT token FROM auth_credentials WHERE credential_key = ?`

	var token string
	err := s.DB.GetContext(ctx, &token, query, CredentialKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("getting stored credential: %w", err)
	}

	return token, nil
}

func (s *SQLStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	expiresAt, err := ParseExpiry(token)
	if err != nil {
		// Opaque tokens are accepted, the server remains the authority on their validity.
		log.Ctx(ctx).Debugf("storing credential without a known expiry: %v", err)
		expiresAt = null.Time{}
	}

	const query = `
		INSERT INTO auth_credentials (credential_key, token, expires_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (credential_key) DO UPDATE SET
			token = excluded.token,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err = s.DB.ExecContext(ctx, query, CredentialKey, token, expiresAt)
	if err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}

	return nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	const query = `DELETE FROM auth_credentials WHERE credential_key = ?`
	_, err := s.DB.ExecContext(ctx, query, CredentialKey)
	if err != nil {
		return fmt.Errorf("clearing stored credential: %w", err)
	}

	return nil
}

// StoredExpiry returns the expiry recorded alongside the stored credential, if any.
func (s *SQLStore) StoredExpiry(ctx context.Context) (null.Time, error) {
	const query = `SELECT expires_at FROM auth_credentials WHERE credential_key = ?`

	var expiresAt null.Time
	err := s.DB.GetContext(ctx, &expiresAt, query, CredentialKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return null.Time{}, nil
		}
		return null.Time{}, fmt.Errorf("getting stored credential expiry: %w", err)
	}

	return expiresAt, nil
}
