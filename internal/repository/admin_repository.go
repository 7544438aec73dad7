package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/pathlab-auth/internal/model"
)

// AdminRepo manages lab owner accounts in the `admins` table.
type AdminRepo struct{ DB *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{DB: db} }

// ExistsByEmailOrContact reports whether an admin already uses the email or
// the contact number.
func (r *AdminRepo) ExistsByEmailOrContact(ctx context.Context, email, contact string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM admins WHERE email=? OR contact_number=?",
		strings.ToLower(strings.TrimSpace(email)), strings.TrimSpace(contact)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return n > 0, nil
}

// FindByEmail fetches an admin by normalized email.
func (r *AdminRepo) FindByEmail(ctx context.Context, email string) (*model.Admin, error) {
	a, err := findAdmin(ctx, r.DB, "email", strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	return a, nil
}

// Create inserts a new admin, filling ID, Role and CreatedAt when empty.
// A clash on email or contact number yields ErrDuplicate.
func (r *AdminRepo) Create(ctx context.Context, a *model.Admin) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Role == "" {
		a.Role = string(model.RoleAdmin)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO admins (id, lab_name, owner_name, email, password, contact_number, previous_software, role, is_verified, created_at) "+
			"VALUES (?,?,?,?,?,?,?,?,?,?)",
		a.ID, a.LabName, a.OwnerName, a.Email, a.Password, a.ContactNumber,
		nullable(a.PreviousSoftware), a.Role, a.IsVerified, a.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}
