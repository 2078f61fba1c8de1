package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// TokenPrefix identifies projecthub API tokens
	TokenPrefix = "phub_"
	// tokenBytes is the amount of randomness per token (256 bits)
	tokenBytes = 32
)

// ErrInvalidToken is returned for malformed, unknown or revoked tokens
var ErrInvalidToken = errors.New("invalid or revoked token")

// GenerateToken creates a new bearer token.
// Format: phub_<base64url(32 random bytes)>
func GenerateToken() (token, hash, prefix string, err error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	token = TokenPrefix + encoded
	return token, HashToken(token), TokenPrefix + encoded[:8], nil
}

// HashToken returns the hex sha256 of token, the form stored in api_tokens
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidateTokenFormat checks the prefix and encoding of token
func ValidateTokenFormat(token string) error {
	encoded, ok := strings.CutPrefix(token, TokenPrefix)
	if !ok {
		return fmt.Errorf("token must start with %q", TokenPrefix)
	}
	if encoded == "" {
		return errors.New("token is too short")
	}
	if _, err := base64.RawURLEncoding.DecodeString(encoded); err != nil {
		return fmt.Errorf("invalid token encoding: %w", err)
	}
	return nil
}

// TokenStore issues and resolves API tokens. Only hashes are persisted.
type TokenStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewTokenStore creates a new TokenStore
func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db, now: time.Now}
}

// CreateToken issues a token for userID and returns the plaintext once
func (s *TokenStore) CreateToken(ctx context.Context, userID int64, name string) (string, error) {
	if _, err := NewPostgresStore(s.db).FindByID(ctx, userID); err != nil {
		return "", err
	}

	token, hash, prefix, err := GenerateToken()
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO api_tokens (user_id, token_hash, token_prefix, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, hash, prefix, name, s.now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	return token, nil
}

// ValidateToken resolves a bearer token to its user id
func (s *TokenStore) ValidateToken(ctx context.Context, token string) (int64, error) {
	if err := ValidateTokenFormat(token); err != nil {
		return 0, ErrInvalidToken
	}

	var userID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM api_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL
	`, HashToken(token)).Scan(&userID)
	if err == sql.ErrNoRows {
		return 0, ErrInvalidToken
	}
	if err != nil {
		return 0, fmt.Errorf("failed to validate token: %w", err)
	}
	return userID, nil
}

// RevokeToken marks token as revoked. Revoking an unknown token is an error.
func (s *TokenStore) RevokeToken(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE api_tokens SET revoked_at = $1
		WHERE token_hash = $2 AND revoked_at IS NULL
	`, s.now().UTC(), HashToken(token))
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if n == 0 {
		return ErrInvalidToken
	}
	return nil
}

// PurgeRevoked deletes tokens revoked before cutoff and returns how many
// were removed
func (s *TokenStore) PurgeRevoked(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM api_tokens
		WHERE revoked_at IS NOT NULL AND revoked_at < $1
	`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge revoked tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to purge revoked tokens: %w", err)
	}
	return n, nil
}
