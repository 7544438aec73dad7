// Package service holds the session core: token issuance and rotation,
// the attempt limiter and the OTP-gated admin onboarding.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/pathlab-auth/internal/config"
	"github.com/iliyamo/pathlab-auth/internal/model"
)

// RefreshTokenStore is the durable side of refresh tokens.  It is
// implemented by repository.TokenRepo.
type RefreshTokenStore interface {
	Create(ctx context.Context, t model.RefreshToken) error
	FindByJTI(ctx context.Context, jti string) (model.RefreshToken, error)
	RevokeByJTI(ctx context.Context, jti string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// RequestMeta is recorded with every issued refresh token.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// RefreshSubject is what a verified refresh token resolves to.
type RefreshSubject struct {
	JTI    string
	UserID string
}

// RevokeError reports a failed revocation.  Revocation is best effort:
// callers log it and carry on.
type RevokeError struct {
	JTI    string
	UserID string
	Err    error
}

func (e *RevokeError) Error() string {
	if e.JTI != "" {
		return fmt.Sprintf("revoke refresh token %s: %v", e.JTI, e.Err)
	}
	return fmt.Sprintf("revoke refresh tokens of user %s: %v", e.UserID, e.Err)
}

func (e *RevokeError) Unwrap() error { return e.Err }

type accessClaims struct {
	User model.LoggedInUser `json:"user"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies access and refresh tokens.  Access
// tokens are stateless; refresh tokens are additionally checked against
// the store on every use.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	store         RefreshTokenStore
	log           *logrus.Logger
	now           func() time.Time
}

func NewTokenService(cfg config.AuthConfig, store RefreshTokenStore, log *logrus.Logger) *TokenService {
	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		store:         store,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *TokenService) parser() *jwt.Parser {
	return jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
}

// IssueAccessToken signs user into a token valid for ttl.
func (s *TokenService) IssueAccessToken(user model.LoggedInUser, ttl time.Duration) (string, error) {
	now := s.now()
	claims := accessClaims{
		User: user,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken mints a token with a fresh jti, persists its record
// and returns the signed form.
func (s *TokenService) IssueRefreshToken(ctx context.Context, userID string, ttl time.Duration, meta RequestMeta) (string, error) {
	now := s.now()
	jti := uuid.NewString()
	exp := now.Add(ttl)
	claims := refreshClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	if err := s.store.Create(ctx, model.RefreshToken{
		JTI:       jti,
		UserID:    userID,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		ExpiresAt: exp,
	}); err != nil {
		return "", fmt.Errorf("persist refresh token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken returns the embedded user, or nil when the token is
// malformed, expired or signed with another key.
func (s *TokenService) VerifyAccessToken(token string) *model.LoggedInUser {
	if token == "" {
		return nil
	}
	var claims accessClaims
	if _, err := s.parser().ParseWithClaims(token, &claims, s.keyFunc(s.accessSecret)); err != nil {
		s.log.WithError(err).Debug("access token rejected")
		return nil
	}
	if claims.User.ID == "" {
		s.log.Debug("access token without user payload")
		return nil
	}
	user := claims.User
	user.Role = model.ParseRole(string(user.Role))
	return &user
}

// VerifyRefreshToken checks the signature and expiry, then requires a
// matching record that is neither revoked nor expired.  Any failure
// yields nil.
func (s *TokenService) VerifyRefreshToken(ctx context.Context, token string) *RefreshSubject {
	if token == "" {
		return nil
	}
	var claims refreshClaims
	if _, err := s.parser().ParseWithClaims(token, &claims, s.keyFunc(s.refreshSecret)); err != nil {
		s.log.WithError(err).Debug("refresh token rejected")
		return nil
	}
	if claims.ID == "" || claims.UserID == "" {
		s.log.Debug("refresh token without jti or user")
		return nil
	}
	rec, err := s.store.FindByJTI(ctx, claims.ID)
	if err != nil {
		s.log.WithError(err).WithField("jti", claims.ID).Debug("refresh token record lookup failed")
		return nil
	}
	if !rec.Usable(s.now()) || rec.UserID != claims.UserID {
		s.log.WithField("jti", claims.ID).Debug("refresh token revoked or expired")
		return nil
	}
	return &RefreshSubject{JTI: claims.ID, UserID: claims.UserID}
}

// RevokeRefreshToken marks jti revoked.  It is idempotent.
func (s *TokenService) RevokeRefreshToken(ctx context.Context, jti string) error {
	if err := s.store.RevokeByJTI(ctx, jti); err != nil {
		return &RevokeError{JTI: jti, Err: err}
	}
	return nil
}

// RevokeAllForUser ends every session of userID.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID string) error {
	if err := s.store.RevokeAllForUser(ctx, userID); err != nil {
		return &RevokeError{UserID: userID, Err: err}
	}
	return nil
}

// logRevoke records a dropped RevokeError.
func (s *TokenService) logRevoke(err error) {
	var rerr *RevokeError
	if errors.As(err, &rerr) {
		s.log.WithFields(logrus.Fields{
			"event":   "REFRESH_REVOKE_FAILED",
			"jti":     rerr.JTI,
			"user_id": rerr.UserID,
		}).WithError(rerr.Err).Error("refresh token revocation failed")
	}
}

func (s *TokenService) keyFunc(secret []byte) jwt.Keyfunc {
	return func(*jwt.Token) (any, error) { return secret, nil }
}
