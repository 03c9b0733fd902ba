package registration

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// Integration tests are enabled when REGBOT_DATABASE_URL is set.

func TestPostgresStore_Contract(t *testing.T) {
	dsn := os.Getenv("REGBOT_DATABASE_URL")
	if dsn == "" {
		t.Skip("REGBOT_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		if os.Getenv("CI") == "" {
			t.Skipf("postgres unreachable: %v", err)
		}
		t.Fatalf("ping: %v", err)
	}

	schema := "regbot_test_" + randomSuffix(t)
	st, err := NewPostgresStore(pool, WithSchema(schema))
	require.NoError(t, err)
	require.NoError(t, st.EnsureSchema(ctx))
	require.NoError(t, st.EnsureSchema(ctx))
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DROP SCHEMA IF EXISTS `+schema+` CASCADE`)
	})

	storeContract(t, st)
}

func TestNewPostgresStore_InvalidInput(t *testing.T) {
	t.Parallel()

	_, err := NewPostgresStore(nil)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = NewPostgresStore(&pgxpool.Pool{}, WithSchema(" "))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func randomSuffix(t *testing.T) string {
	t.Helper()
	b := make([]byte, 6)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return hex.EncodeToString(b)
}
