package identity

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	token, hash, prefix, err := GenerateToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token, TokenPrefix))
	assert.True(t, strings.HasPrefix(token, prefix))
	assert.Len(t, prefix, len(TokenPrefix)+8)
	assert.Len(t, hash, 64)
	assert.Equal(t, HashToken(token), hash)
	assert.NoError(t, ValidateTokenFormat(token))

	other, _, _, err := GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestValidateTokenFormat(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid", TokenPrefix + "YWJjZGVmZ2g", false},
		{"wrong prefix", "ghp_YWJj", true},
		{"prefix only", TokenPrefix, true},
		{"bad encoding", TokenPrefix + "!!!", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTokenFormat(tt.token)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func newMockTokenStore(t *testing.T) (*TokenStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := NewTokenStore(db)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	return store, mock
}

func TestTokenStore_CreateToken(t *testing.T) {
	store, mock := newMockTokenStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`FROM users\s+WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "created_at"}).
			AddRow(7, "alice", "alice@example.com", time.Now()))
	mock.ExpectExec(`INSERT INTO api_tokens`).
		WithArgs(int64(7), sqlmock.AnyArg(), sqlmock.AnyArg(), "cli", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	token, err := store.CreateToken(ctx, 7, "cli")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, TokenPrefix))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenStore_CreateToken_UnknownUser(t *testing.T) {
	store, mock := newMockTokenStore(t)

	mock.ExpectQuery(`FROM users`).WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

	_, err := store.CreateToken(context.Background(), 9, "cli")
	assert.ErrorIs(t, err, ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenStore_ValidateToken(t *testing.T) {
	store, mock := newMockTokenStore(t)
	ctx := context.Background()
	token, hash, _, err := GenerateToken()
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		mock.ExpectQuery(`SELECT user_id FROM api_tokens\s+WHERE token_hash = \$1 AND revoked_at IS NULL`).
			WithArgs(hash).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(7))

		userID, err := store.ValidateToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, int64(7), userID)
	})

	t.Run("unknown or revoked", func(t *testing.T) {
		mock.ExpectQuery(`FROM api_tokens`).WithArgs(hash).WillReturnError(sql.ErrNoRows)

		_, err := store.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("malformed never hits the database", func(t *testing.T) {
		_, err := store.ValidateToken(ctx, "Bearer nonsense")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenStore_RevokeToken(t *testing.T) {
	store, mock := newMockTokenStore(t)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE api_tokens SET revoked_at = \$1`).
		WithArgs(sqlmock.AnyArg(), HashToken("phub_abc")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.RevokeToken(ctx, "phub_abc"))

	mock.ExpectExec(`UPDATE api_tokens`).
		WithArgs(sqlmock.AnyArg(), HashToken("phub_abc")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, store.RevokeToken(ctx, "phub_abc"), ErrInvalidToken)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenStore_PurgeRevoked(t *testing.T) {
	store, mock := newMockTokenStore(t)
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM api_tokens\s+WHERE revoked_at IS NOT NULL AND revoked_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.PurgeRevoked(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
