package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/pathlab-auth/internal/apperror"
	"github.com/iliyamo/pathlab-auth/internal/config"
	"github.com/iliyamo/pathlab-auth/internal/model"
	"github.com/iliyamo/pathlab-auth/internal/observability"
	"github.com/iliyamo/pathlab-auth/internal/repository"
	"github.com/iliyamo/pathlab-auth/internal/utils"
)

// PrincipalFinder resolves principals across the three account tables.
type PrincipalFinder interface {
	FindByID(ctx context.Context, id string) (model.Principal, error)
	FindByLogin(ctx context.Context, login string) (model.Principal, error)
}

// Limiter is the attempt limiter used by the session and onboarding flows.
type Limiter interface {
	Signup(ctx context.Context, email, ip string) (bool, error)
	Login(ctx context.Context, email, ip string) (bool, error)
	VerifyOTP(ctx context.Context, email, ip string) (bool, error)
}

// Session is a freshly issued token pair and the user it belongs to.
type Session struct {
	User         model.LoggedInUser
	AccessToken  string
	RefreshToken string
}

// AuthService implements login, refresh rotation and logout on top of
// TokenService.
type AuthService struct {
	tokens     *TokenService
	principals PrincipalFinder
	hasher     utils.Hasher
	limiter    Limiter
	cfg        config.AuthConfig
	log        *logrus.Logger
	metrics    *observability.Metrics
}

func NewAuthService(cfg config.AuthConfig, tokens *TokenService, principals PrincipalFinder, limiter Limiter, log *logrus.Logger, m *observability.Metrics) *AuthService {
	return &AuthService{
		tokens:     tokens,
		principals: principals,
		hasher:     utils.NewHasher(cfg.BcryptCost),
		limiter:    limiter,
		cfg:        cfg,
		log:        log,
		metrics:    m,
	}
}

var errBadCredentials = apperror.NewUnauthorized("Invalid email or password")

// Login checks the credentials and issues a new session.  Unknown logins
// and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, login, password string, meta RequestMeta) (*Session, error) {
	login = NormalizeEmail(login)
	var errs fieldErrors
	if login == "" || len(login) > maxEmailLen {
		errs.add("email", "must be between 1 and 191 characters")
	} else if strings.Contains(login, "@") && !validEmailFormat(login) {
		// staff users log in with a username, everyone else with an email
		errs.add("email", "invalid email format")
	}
	if len(password) < 6 || len(password) > 255 {
		errs.add("password", "must be between 6 and 255 characters")
	}
	if len(errs) > 0 {
		s.metrics.Login("invalid")
		return nil, apperror.NewValidation("Validation Error").WithDetail(errs.String())
	}

	ok, err := s.limiter.Login(ctx, login, meta.IP)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if !ok {
		s.metrics.Login("rate_limited")
		return nil, apperror.NewRateLimited()
	}

	p, err := s.principals.FindByLogin(ctx, login)
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.Login("failure")
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if !s.hasher.Verify(p.PasswordHash(), password) {
		s.metrics.Login("failure")
		return nil, errBadCredentials
	}

	sess, err := s.issue(ctx, p.SessionView(), meta)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	s.metrics.Login("success")
	s.log.WithFields(logrus.Fields{
		"event":   "LOGIN_SUCCESS",
		"user_id": sess.User.ID,
		"role":    sess.User.Role,
		"ip":      meta.IP,
	}).Info("login succeeded")
	return sess, nil
}

// Refresh exchanges a refresh token for a new pair.  The presented token
// is revoked before the new one is issued, so it can be used only once.
// A token whose owner no longer exists is revoked and rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (*Session, error) {
	sub := s.tokens.VerifyRefreshToken(ctx, refreshToken)
	if sub == nil {
		s.metrics.Refresh("invalid")
		return nil, apperror.NewUnauthorized("Invalid or expired refresh token")
	}

	p, err := s.principals.FindByID(ctx, sub.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		if rerr := s.tokens.RevokeRefreshToken(ctx, sub.JTI); rerr != nil {
			s.tokens.logRevoke(rerr)
		}
		s.metrics.Refresh("orphaned")
		s.log.WithField("jti", sub.JTI).Warn("refresh token owner no longer exists")
		return nil, apperror.NewUnauthorized("Invalid or expired refresh token")
	}
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	if rerr := s.tokens.RevokeRefreshToken(ctx, sub.JTI); rerr != nil {
		s.tokens.logRevoke(rerr)
	}
	sess, err := s.issue(ctx, p.SessionView(), meta)
	if err != nil {
		s.metrics.Refresh("error")
		return nil, apperror.NewInternal(err)
	}
	s.metrics.Refresh("success")
	s.log.WithFields(logrus.Fields{
		"event":   "REFRESH_ROTATED",
		"user_id": sess.User.ID,
		"old_jti": sub.JTI,
	}).Info("refresh token rotated")
	return sess, nil
}

// Logout revokes the refresh token when it still verifies.  Revocation
// failures are logged and never surface to the caller.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	sub := s.tokens.VerifyRefreshToken(ctx, refreshToken)
	if sub == nil {
		return
	}
	if err := s.tokens.RevokeRefreshToken(ctx, sub.JTI); err != nil {
		s.tokens.logRevoke(err)
	}
}

// RevokeAllForUser ends every session of userID, e.g. after a password
// change.
func (s *AuthService) RevokeAllForUser(ctx context.Context, userID string) error {
	return s.tokens.RevokeAllForUser(ctx, userID)
}

// Authenticate resolves the session user from the access token, falling
// back to rotating the refresh token.  rotated is non-nil only when a new
// pair was issued.  Every failure is reported as unauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, accessToken, refreshToken string, meta RequestMeta) (user *model.LoggedInUser, rotated *Session) {
	if u := s.tokens.VerifyAccessToken(accessToken); u != nil {
		return u, nil
	}
	if refreshToken == "" {
		return nil, nil
	}
	sess, err := s.Refresh(ctx, refreshToken, meta)
	if err != nil {
		s.log.WithError(err).Debug("session refresh failed")
		return nil, nil
	}
	return &sess.User, sess
}

func (s *AuthService) issue(ctx context.Context, user model.LoggedInUser, meta RequestMeta) (*Session, error) {
	refresh, err := s.tokens.IssueRefreshToken(ctx, user.ID, s.cfg.RefreshTTL, meta)
	if err != nil {
		return nil, err
	}
	access, err := s.tokens.IssueAccessToken(user, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// AccessTTL and RefreshTTL size the session cookies.
func (s *AuthService) AccessTTL() time.Duration  { return s.cfg.AccessTTL }
func (s *AuthService) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }
