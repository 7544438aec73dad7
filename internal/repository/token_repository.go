package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/iliyamo/pathlab-auth/internal/model"
)

// Column widths of refresh_tokens.ip and refresh_tokens.user_agent.
const (
	maxIPLen        = 64
	maxUserAgentLen = 255
)

// TokenRepo persists refresh token records keyed by jti.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Create inserts a refresh token record.  The client-supplied IP and
// User-Agent are cut to their column widths so strict mode never rejects
// the row.
func (r *TokenRepo) Create(ctx context.Context, t model.RefreshToken) error {
	t.IP = truncate(t.IP, maxIPLen)
	t.UserAgent = truncate(t.UserAgent, maxUserAgentLen)
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (jti, user_id, ip, user_agent, expires_at, revoked) VALUES (?,?,?,?,?,?)",
		t.JTI, t.UserID, nullable(t.IP), nullable(t.UserAgent), t.ExpiresAt.UTC(), false)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// FindByJTI loads the record for a jti regardless of its state.
func (r *TokenRepo) FindByJTI(ctx context.Context, jti string) (model.RefreshToken, error) {
	var (
		t         model.RefreshToken
		ip, agent sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT jti, user_id, ip, user_agent, expires_at, revoked, created_at FROM refresh_tokens WHERE jti=? LIMIT 1",
		jti).Scan(&t.JTI, &t.UserID, &ip, &agent, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RefreshToken{}, ErrNotFound
		}
		return model.RefreshToken{}, fmt.Errorf("query refresh token: %w", err)
	}
	t.IP, t.UserAgent = ip.String, agent.String
	return t, nil
}

// RevokeByJTI marks a token as revoked.  Revoking an already revoked or
// unknown jti is not an error.
func (r *TokenRepo) RevokeByJTI(ctx context.Context, jti string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked=TRUE WHERE jti=? AND revoked=FALSE", jti)
	return err
}

// RevokeAllForUser revokes all user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked=TRUE WHERE user_id=? AND revoked=FALSE", userID)
	return err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// truncate keeps at most n characters of s without splitting a rune.
// VARCHAR widths count characters under utf8mb4, not bytes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
