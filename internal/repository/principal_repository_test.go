package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pathlab-auth/internal/model"
)

var (
	keyAdminColumns = []string{"id", "name", "email", "password", "role", "avatar", "created_at"}
	adminColumns    = []string{"id", "lab_name", "owner_name", "email", "password", "contact_number", "previous_software", "role", "is_verified", "avatar", "created_at"}
	userColumns     = []string{"id", "name", "username", "password", "role", "avatar", "created_at"}
)

func newMock(t *testing.T) (*PrincipalRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	// the three table lookups run concurrently
	mock.MatchExpectationsInOrder(false)
	return NewPrincipalRepo(db), mock
}

func TestPrincipalRepo_FindByLogin_PrefersKeyAdmin(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM key_admins WHERE email=").
		WithArgs("owner@wecare.com").
		WillReturnRows(sqlmock.NewRows(keyAdminColumns).
			AddRow("k1", "Root", "owner@wecare.com", "hash", "KEY_ADMIN", "", now))
	mock.ExpectQuery("FROM admins WHERE email=").
		WithArgs("owner@wecare.com").
		WillReturnRows(sqlmock.NewRows(adminColumns).
			AddRow("a1", "Lab", "Owner", "owner@wecare.com", "hash", "555", "", "ADMIN", true, "", now))
	mock.ExpectQuery("FROM users WHERE username=").
		WithArgs("owner@wecare.com").
		WillReturnRows(sqlmock.NewRows(userColumns))

	p, err := repo.FindByLogin(context.Background(), "  Owner@WeCare.com ")
	require.NoError(t, err)
	k, ok := p.(*model.KeyAdmin)
	require.True(t, ok, "expected key admin, got %T", p)
	assert.Equal(t, "k1", k.ID)
	assert.Equal(t, model.RoleKeyAdmin, p.SessionView().Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrincipalRepo_FindByID_FallsBackToUser(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("FROM key_admins WHERE id=").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(keyAdminColumns))
	mock.ExpectQuery("FROM admins WHERE id=").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(adminColumns))
	mock.ExpectQuery("FROM users WHERE id=").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u1", "Tech", "tech01", "hash", "DOCTOR", "a.png", time.Now()))

	p, err := repo.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	view := p.SessionView()
	assert.Equal(t, "tech01", view.Email)
	assert.Equal(t, model.RoleDoctor, view.Role)
	assert.Equal(t, "a.png", view.Avatar)
}

func TestPrincipalRepo_FindByID_NotFound(t *testing.T) {
	repo, mock := newMock(t)
	for _, table := range []string{"key_admins", "admins", "users"} {
		mock.ExpectQuery("FROM " + table + " WHERE id=").WithArgs("nobody").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
	}

	_, err := repo.FindByID(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPrincipalRepo_FindByID_QueryError(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("FROM key_admins").WillReturnError(errors.New("connection reset"))
	mock.ExpectQuery("FROM admins").WillReturnRows(sqlmock.NewRows(adminColumns))
	mock.ExpectQuery("FROM users").WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.FindByID(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestAdminRepo_CreateDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO admins").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	repo := NewAdminRepo(db)
	a := &model.Admin{LabName: "Lab", Email: "Owner@Lab.com", Password: "hash"}
	err = repo.Create(context.Background(), a)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, "owner@lab.com", a.Email)
	assert.Equal(t, "ADMIN", a.Role)
	assert.NotEmpty(t, a.ID)
}

func TestAdminRepo_ExistsByEmailOrContact(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM admins").
		WithArgs("owner@lab.com", "555").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := NewAdminRepo(db).ExistsByEmailOrContact(context.Background(), "OWNER@lab.com", "555")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTokenRepo_FindByJTI(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	exp := time.Now().Add(time.Hour).UTC()

	mock.ExpectQuery("FROM refresh_tokens WHERE jti=").WithArgs("j1").
		WillReturnRows(sqlmock.NewRows([]string{"jti", "user_id", "ip", "user_agent", "expires_at", "revoked", "created_at"}).
			AddRow("j1", "u1", nil, "curl", exp, false, time.Now()))
	mock.ExpectQuery("FROM refresh_tokens WHERE jti=").WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"jti"}))

	repo := NewTokenRepo(db)
	tok, err := repo.FindByJTI(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, "", tok.IP)
	assert.Equal(t, "curl", tok.UserAgent)
	assert.True(t, tok.Usable(time.Now()))

	_, err = repo.FindByJTI(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenRepo_RevokeByJTI(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE refresh_tokens SET revoked=TRUE WHERE jti=").
		WithArgs("j1").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewTokenRepo(db).RevokeByJTI(context.Background(), "j1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrincipalRepo_UpsertKeyAdmin(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec("INSERT INTO key_admins .* ON DUPLICATE KEY UPDATE").
		WithArgs(sqlmock.AnyArg(), "Root", "root@wecare.com", "hash", "KEY_ADMIN", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpsertKeyAdmin(context.Background(), "Root", " Root@WeCare.com ", "hash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_CreateCapsClientMetadata(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	longIP := strings.Repeat("1", 100)
	longUA := strings.Repeat("é", 300)
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs("j1", "u1", strings.Repeat("1", 64), strings.Repeat("é", 255), sqlmock.AnyArg(), false).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = NewTokenRepo(db).Create(context.Background(), model.RefreshToken{
		JTI: "j1", UserID: "u1", IP: longIP, UserAgent: longUA, ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "żó", truncate("żółw", 2))
	assert.Equal(t, "", truncate("", 3))
}
