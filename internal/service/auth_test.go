package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pathlab-auth/internal/apperror"
	"github.com/iliyamo/pathlab-auth/internal/model"
	"github.com/iliyamo/pathlab-auth/internal/utils"
)

type authFixture struct {
	svc        *AuthService
	tokens     *TokenService
	store      *memTokenStore
	principals *memPrincipals
	hook       *test.Hook
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	hash, err := utils.NewHasher(4).Hash("secret-pass")
	require.NoError(t, err)
	principals := newMemPrincipals(
		&model.KeyAdmin{ID: "k1", Name: "Root", Email: "root@wecare.com", Password: hash, Role: "KEY_ADMIN"},
		&model.Admin{ID: "a1", LabName: "Lab", OwnerName: "Owner", Email: "owner@gmail.com", Password: hash, Role: "ADMIN", IsVerified: true},
		&model.User{ID: "u1", Name: "Tech", Username: "tech01", Password: hash, Role: "DOCTOR"},
	)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	logger, hook := test.NewNullLogger()

	store := newMemTokenStore()
	cfg := testAuthConfig()
	tokens := NewTokenService(cfg, store, logger)
	limiter := NewAttemptLimiter(rdb, testRateLimits(), logger, nil)
	return authFixture{
		svc:        NewAuthService(cfg, tokens, principals, limiter, logger, nil),
		tokens:     tokens,
		store:      store,
		principals: principals,
		hook:       hook,
	}
}

func TestLogin_EachPrincipalKind(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	cases := []struct {
		login string
		role  model.Role
		name  string
	}{
		{"root@wecare.com", model.RoleKeyAdmin, "Root"},
		{"OWNER@gmail.com", model.RoleAdmin, "Owner"},
		{"tech01", model.RoleDoctor, "Tech"},
	}
	for _, tc := range cases {
		t.Run(tc.login, func(t *testing.T) {
			sess, err := f.svc.Login(ctx, tc.login, "secret-pass", RequestMeta{IP: "10.0.0.1"})
			require.NoError(t, err)
			assert.Equal(t, tc.role, sess.User.Role)
			assert.Equal(t, tc.name, sess.User.Name)

			u := f.tokens.VerifyAccessToken(sess.AccessToken)
			require.NotNil(t, u)
			assert.Equal(t, sess.User, *u)
			assert.NotNil(t, f.tokens.VerifyRefreshToken(ctx, sess.RefreshToken))
		})
	}
}

func TestLogin_BadCredentialsAreUniform(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, errUnknown := f.svc.Login(ctx, "nobody@gmail.com", "secret-pass", RequestMeta{IP: "10.0.0.2"})
	_, errWrong := f.svc.Login(ctx, "root@wecare.com", "wrong-pass", RequestMeta{IP: "10.0.0.3"})

	assert.Equal(t, http.StatusUnauthorized, apperror.SafeCode(errUnknown))
	assert.Equal(t, apperror.SafeMessage(errUnknown), apperror.SafeMessage(errWrong))
}

func TestLogin_Validation(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Login(context.Background(), "bad@", "x", RequestMeta{})
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)
	assert.Contains(t, appErr.Detail, "password")
}

func TestLogin_RateLimited(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := f.svc.Login(ctx, "root@wecare.com", "wrong-pass", RequestMeta{IP: "10.0.0.9"})
		require.Equal(t, http.StatusUnauthorized, apperror.SafeCode(err))
	}
	_, err := f.svc.Login(ctx, "root@wecare.com", "secret-pass", RequestMeta{IP: "10.0.0.9"})
	assert.Equal(t, http.StatusTooManyRequests, apperror.SafeCode(err))
	assert.Equal(t, apperror.MsgTooManyAttempts, apperror.SafeMessage(err))
}

func TestRefresh_IsSingleUse(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Login(ctx, "root@wecare.com", "secret-pass", RequestMeta{})
	require.NoError(t, err)

	rotated, err := f.svc.Refresh(ctx, sess.RefreshToken, RequestMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, sess.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, "k1", rotated.User.ID)

	_, err = f.svc.Refresh(ctx, sess.RefreshToken, RequestMeta{})
	assert.Equal(t, http.StatusUnauthorized, apperror.SafeCode(err))

	_, err = f.svc.Refresh(ctx, rotated.RefreshToken, RequestMeta{})
	assert.NoError(t, err)
}

func TestRefresh_OrphanedTokenIsRevoked(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	tok, err := f.tokens.IssueRefreshToken(ctx, "deleted-user", time.Hour, RequestMeta{})
	require.NoError(t, err)
	sub := f.tokens.VerifyRefreshToken(ctx, tok)
	require.NotNil(t, sub)

	_, err = f.svc.Refresh(ctx, tok, RequestMeta{})
	assert.Equal(t, http.StatusUnauthorized, apperror.SafeCode(err))
	assert.True(t, f.store.get(sub.JTI).Revoked)
}

func TestRefresh_RevokeFailureDoesNotBlockRotation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Login(ctx, "tech01", "secret-pass", RequestMeta{})
	require.NoError(t, err)

	f.store.mu.Lock()
	f.store.revokeErr = errStoreDown
	f.store.mu.Unlock()

	rotated, err := f.svc.Refresh(ctx, sess.RefreshToken, RequestMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.AccessToken)

	var logged bool
	for _, e := range f.hook.AllEntries() {
		if e.Data["event"] == "REFRESH_REVOKE_FAILED" {
			logged = true
		}
	}
	assert.True(t, logged)
}

func TestLogout_RevokesToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Login(ctx, "owner@gmail.com", "secret-pass", RequestMeta{})
	require.NoError(t, err)

	f.svc.Logout(ctx, sess.RefreshToken)
	assert.Nil(t, f.tokens.VerifyRefreshToken(ctx, sess.RefreshToken))
	assert.NotPanics(t, func() { f.svc.Logout(ctx, "not-a-token") })
}

func TestAuthenticate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Login(ctx, "root@wecare.com", "secret-pass", RequestMeta{})
	require.NoError(t, err)

	user, rotated := f.svc.Authenticate(ctx, sess.AccessToken, sess.RefreshToken, RequestMeta{})
	require.NotNil(t, user)
	assert.Nil(t, rotated, "valid access token needs no rotation")

	user, rotated = f.svc.Authenticate(ctx, "", sess.RefreshToken, RequestMeta{})
	require.NotNil(t, user)
	require.NotNil(t, rotated)
	assert.Equal(t, "k1", user.ID)

	user, rotated = f.svc.Authenticate(ctx, "", sess.RefreshToken, RequestMeta{})
	assert.Nil(t, user)
	assert.Nil(t, rotated)
}
