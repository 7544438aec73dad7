package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/pathlab-auth/internal/model"
)

const (
	keyAdminCols = "id,name,email,password,role,COALESCE(avatar,''),created_at"
	adminCols    = "id,lab_name,owner_name,email,password,contact_number,COALESCE(previous_software,''),role,is_verified,COALESCE(avatar,''),created_at"
	userCols     = "id,name,username,password,role,COALESCE(avatar,''),created_at"
)

// PrincipalRepo resolves principals across the key_admins, admins and
// users tables.
type PrincipalRepo struct{ DB *sql.DB }

func NewPrincipalRepo(db *sql.DB) *PrincipalRepo { return &PrincipalRepo{DB: db} }

// FindByID looks the id up in all three tables concurrently.
func (r *PrincipalRepo) FindByID(ctx context.Context, id string) (model.Principal, error) {
	return r.resolve(ctx, "id", "id", "id", id)
}

// FindByLogin looks a login identifier up by email for key admins and
// admins and by username for users.  The value is normalised to lower case.
func (r *PrincipalRepo) FindByLogin(ctx context.Context, login string) (model.Principal, error) {
	return r.resolve(ctx, "email", "email", "username", strings.ToLower(strings.TrimSpace(login)))
}

// resolve runs the three lookups in parallel and picks the first hit in
// the order KeyAdmin, Admin, User.  Completion order does not matter.
func (r *PrincipalRepo) resolve(ctx context.Context, keyAdminCol, adminCol, userCol, value string) (model.Principal, error) {
	var (
		k *model.KeyAdmin
		a *model.Admin
		u *model.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		k, err = findKeyAdmin(gctx, r.DB, keyAdminCol, value)
		return err
	})
	g.Go(func() (err error) {
		a, err = findAdmin(gctx, r.DB, adminCol, value)
		return err
	})
	g.Go(func() (err error) {
		u, err = findUser(gctx, r.DB, userCol, value)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	switch {
	case k != nil:
		return k, nil
	case a != nil:
		return a, nil
	case u != nil:
		return u, nil
	}
	return nil, ErrNotFound
}

// UpsertKeyAdmin creates the key admin for email or resets its name and
// password.  Used to seed the platform operator at startup.
func (r *PrincipalRepo) UpsertKeyAdmin(ctx context.Context, name, email, passwordHash string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO key_admins (id, name, email, password, role, created_at) VALUES (?,?,?,?,?,?) "+
			"ON DUPLICATE KEY UPDATE name=VALUES(name), password=VALUES(password)",
		uuid.NewString(), name, email, passwordHash, string(model.RoleKeyAdmin), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert key admin: %w", err)
	}
	return nil
}

// The column names below are compile-time constants, never user input.

func findKeyAdmin(ctx context.Context, db *sql.DB, col, value string) (*model.KeyAdmin, error) {
	var k model.KeyAdmin
	err := db.QueryRowContext(ctx,
		"SELECT "+keyAdminCols+" FROM key_admins WHERE "+col+"=? LIMIT 1", value).
		Scan(&k.ID, &k.Name, &k.Email, &k.Password, &k.Role, &k.Avatar, &k.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query key_admins: %w", err)
	}
	return &k, nil
}

func findAdmin(ctx context.Context, db *sql.DB, col, value string) (*model.Admin, error) {
	var a model.Admin
	err := db.QueryRowContext(ctx,
		"SELECT "+adminCols+" FROM admins WHERE "+col+"=? LIMIT 1", value).
		Scan(&a.ID, &a.LabName, &a.OwnerName, &a.Email, &a.Password, &a.ContactNumber,
			&a.PreviousSoftware, &a.Role, &a.IsVerified, &a.Avatar, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query admins: %w", err)
	}
	return &a, nil
}

func findUser(ctx context.Context, db *sql.DB, col, value string) (*model.User, error) {
	var u model.User
	err := db.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE "+col+"=? LIMIT 1", value).
		Scan(&u.ID, &u.Name, &u.Username, &u.Password, &u.Role, &u.Avatar, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	return &u, nil
}
