package tokenstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	jwtgo "github.com/golang-jwt/jwt/v5"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/require"

	"github.com/solanize/solanize-client/internal/db"
)

func newTestToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()

	claims := jwtgo.RegisteredClaims{
		Subject:   "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
		IssuedAt:  jwtgo.NewNumericDate(time.Now().Add(-time.Minute)),
		ExpiresAt: jwtgo.NewNumericDate(expiresAt),
	}
	token, err := jwtgo.NewWithClaims(jwtgo.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func openMigratedPool(t *testing.T) db.ConnectionPool {
	t.Helper()

	dbConnectionPool, err := db.OpenDBConnectionPool(db.SQLiteDSN(filepath.Join(t.TempDir(), "client.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbConnectionPool.Close() })

	_, err = db.Migrate(context.Background(), dbConnectionPool, migrate.Up, 0)
	require.NoError(t, err)

	return dbConnectionPool
}
