package model

import "time"

// Role tags every principal.  Unknown or empty values are treated as
// RoleUser by ParseRole.
type Role string

const (
    RoleKeyAdmin Role = "KEY_ADMIN"
    RoleAdmin    Role = "ADMIN"
    RoleDoctor   Role = "DOCTOR"
    RolePatient  Role = "PATIENT"
    RoleUser     Role = "USER"
)

// ParseRole maps a stored role string onto a known Role, defaulting to
// RoleUser.
func ParseRole(s string) Role {
    switch r := Role(s); r {
    case RoleKeyAdmin, RoleAdmin, RoleDoctor, RolePatient, RoleUser:
        return r
    }
    return RoleUser
}

// Rank orders roles for permission checks: KEY_ADMIN > ADMIN > DOCTOR >
// PATIENT > USER.
func (r Role) Rank() int {
    switch r {
    case RoleKeyAdmin:
        return 4
    case RoleAdmin:
        return 3
    case RoleDoctor:
        return 2
    case RolePatient:
        return 1
    }
    return 0
}

// AtLeast reports whether r satisfies the required role.
func (r Role) AtLeast(required Role) bool { return r.Rank() >= required.Rank() }

// LoggedInUser is the session-facing view of a principal.  It is embedded
// in access tokens and returned to clients; it is never stored on its own.
type LoggedInUser struct {
    ID     string `json:"id"`
    Name   string `json:"name"`
    Email  string `json:"email"`
    Avatar string `json:"avatar,omitempty"`
    Role   Role   `json:"role"`
}

// Principal is any authenticable stored identity.  The set of
// implementations is closed: *KeyAdmin, *Admin and *User.
type Principal interface {
    PrincipalID() string
    PasswordHash() string
    SessionView() LoggedInUser
    isPrincipal()
}

// KeyAdmin mirrors the `key_admins` table.  Key admins operate the platform
// itself and onboard labs.
type KeyAdmin struct {
    ID        string
    Name      string
    Email     string
    Password  string
    Role      string
    Avatar    string
    CreatedAt time.Time
}

// Admin mirrors the `admins` table: the owner account of one lab, created
// only after the owner confirmed their email with an OTP.
type Admin struct {
    ID               string
    LabName          string
    OwnerName        string
    Email            string
    Password         string
    ContactNumber    string
    PreviousSoftware string
    Role             string
    IsVerified       bool
    Avatar           string
    CreatedAt        time.Time
}

// User mirrors the `users` table.  Staff log in with a username, which is
// surfaced as the email of the session view.
type User struct {
    ID        string
    Name      string
    Username  string
    Password  string
    Role      string
    Avatar    string
    CreatedAt time.Time
}

func (k *KeyAdmin) PrincipalID() string  { return k.ID }
func (k *KeyAdmin) PasswordHash() string { return k.Password }
func (k *KeyAdmin) isPrincipal()         {}
func (k *KeyAdmin) SessionView() LoggedInUser {
    return LoggedInUser{ID: k.ID, Name: k.Name, Email: k.Email, Avatar: k.Avatar, Role: ParseRole(k.Role)}
}

func (a *Admin) PrincipalID() string  { return a.ID }
func (a *Admin) PasswordHash() string { return a.Password }
func (a *Admin) isPrincipal()         {}
func (a *Admin) SessionView() LoggedInUser {
    return LoggedInUser{ID: a.ID, Name: a.OwnerName, Email: a.Email, Avatar: a.Avatar, Role: ParseRole(a.Role)}
}

func (u *User) PrincipalID() string  { return u.ID }
func (u *User) PasswordHash() string { return u.Password }
func (u *User) isPrincipal()         {}
func (u *User) SessionView() LoggedInUser {
    return LoggedInUser{ID: u.ID, Name: u.Name, Email: u.Username, Avatar: u.Avatar, Role: ParseRole(u.Role)}
}
