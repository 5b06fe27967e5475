package core

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPgTestStore connects to DATABASE_URL and applies migrations; tests are
// skipped when no database is configured.
func newPgTestStore(t *testing.T) *PgUserStore {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	require.NoError(t, Migrate(ctx, pool), "migrations are idempotent")
	return NewPgUserStore(pool)
}

func TestPgUserStore(t *testing.T) {
	ctx := context.Background()
	store := newPgTestStore(t)

	prefix := "t-" + uuid.NewString()[:8] + "-"
	first, second := prefix+"zed", prefix+"amy"
	t.Cleanup(func() {
		_ = store.DeleteUser(context.Background(), first)
		_ = store.DeleteUser(context.Background(), second)
	})

	require.NoError(t, store.InsertUser(ctx, first, "h1", "explore"))
	require.NoError(t, store.InsertUser(ctx, second, "h2", "services,system_settings"))
	assert.ErrorIs(t, store.InsertUser(ctx, first, "h3", ""), ErrDuplicateUser)

	ours := func() []UserRecord {
		records, err := store.GetUsers(ctx)
		require.NoError(t, err)
		var out []UserRecord
		for _, r := range records {
			if r.Name == first || r.Name == second {
				out = append(out, r)
			}
		}
		return out
	}

	got := ours()
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0].Name, "rows come back in insertion order")
	assert.Equal(t, second, got[1].Name)
	assert.Less(t, got[0].ID, got[1].ID)
	assert.Equal(t, "h1", got[0].PasswordHash)
	assert.Equal(t, "services,system_settings", got[1].Permissions)

	require.NoError(t, store.DeleteUser(ctx, first))
	assert.ErrorIs(t, store.DeleteUser(ctx, first), ErrUserNotFound)
	got = ours()
	require.Len(t, got, 1)
	assert.Equal(t, second, got[0].Name)
}

func TestPgUserStoreBacksDirectory(t *testing.T) {
	ctx := context.Background()
	store := newPgTestStore(t)
	name := "t-" + uuid.NewString()[:8] + "-bob"
	t.Cleanup(func() { _ = store.DeleteUser(context.Background(), name) })

	dir := NewUserDirectory(nil, store)
	auth := NewDirectoryAuthService(dir, newTestTokens(t))

	require.NoError(t, dir.Add(ctx, name, cheapHash(t, "bobpw"), "explore"))
	assert.ErrorIs(t, dir.Add(ctx, name, "again", ""), ErrDirectoryWrite)

	tok, err := auth.Login(ctx, name, "bobpw")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	require.NoError(t, dir.Remove(ctx, name))
	_, err = dir.Resolve(ctx, name)
	assert.ErrorIs(t, err, ErrUnknownUser)
}
