package cli

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/projecthub/pkg/identity"
)

// sqliteEnv points configuration at a fresh sqlite file and returns its path
func sqliteEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "projecthub.db")
	t.Setenv("PROJECTHUB_CONFIG_FILE", "")
	t.Setenv("PROJECTHUB_DATABASE_DRIVER", "sqlite3")
	t.Setenv("PROJECTHUB_DATABASE_URL", path)
	return path
}

func TestMigrateThenTokenLifecycle(t *testing.T) {
	path := sqliteEnv(t)
	var out bytes.Buffer
	root := newRootCommand(&out)

	require.NoError(t, root.Execute([]string{"migrate"}))
	assert.Contains(t, out.String(), "Applied")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var userID int64
	require.NoError(t, db.QueryRow(
		`INSERT INTO users (username, email, created_at) VALUES ($1, $2, $3) RETURNING id`,
		"alice", "alice@example.com", time.Now().UTC(),
	).Scan(&userID))

	out.Reset()
	require.NoError(t, root.Execute([]string{"token", "create", "-user-id", strconv.FormatInt(userID, 10), "-name", "ci"}))
	token := strings.TrimSpace(out.String())
	assert.True(t, strings.HasPrefix(token, identity.TokenPrefix))

	store := identity.NewTokenStore(db)
	got, err := store.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	out.Reset()
	require.NoError(t, root.Execute([]string{"token", "revoke", "-token", token}))
	assert.Contains(t, out.String(), "Token revoked")

	_, err = store.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestTokenCreate_RequiresFlags(t *testing.T) {
	sqliteEnv(t)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"token", "create", "-name", "ci"}, "user-id is required"},
		{[]string{"token", "create", "-user-id", "3"}, "name is required"},
		{[]string{"token", "revoke"}, "token is required"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			// Flag values persist on a command, so each run gets a fresh tree
			root := newRootCommand(&bytes.Buffer{})
			assert.EqualError(t, root.Execute(tt.args), tt.want)
		})
	}
}

func TestTokenCreate_UnknownUser(t *testing.T) {
	sqliteEnv(t)
	root := newRootCommand(&bytes.Buffer{})
	require.NoError(t, root.Execute([]string{"migrate"}))

	err := root.Execute([]string{"token", "create", "-user-id", "42", "-name", "ci"})
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}
