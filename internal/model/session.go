package model

import "time"

// RefreshToken models an entry in the `refresh_tokens` table.  A row is
// written once per issued refresh token and afterwards only its Revoked
// flag changes; rows are kept as an audit trail.
//
// Fields:
//  JTI       – unique token id, also carried inside the signed token.
//  UserID    – owning principal id.
//  IP        – client IP at issuance (may be empty).
//  UserAgent – client user agent at issuance (may be empty).
//  ExpiresAt – absolute expiry.
//  Revoked   – set once the token was exchanged or logged out.
type RefreshToken struct {
    JTI       string
    UserID    string
    IP        string
    UserAgent string
    ExpiresAt time.Time
    Revoked   bool
    CreatedAt time.Time
}

// Usable reports whether the record still authorises a refresh at now.
func (t RefreshToken) Usable(now time.Time) bool {
    return !t.Revoked && t.ExpiresAt.After(now)
}

// PendingAdmin is the signup payload staged in the cache store until the
// owner verifies the OTP.  Password is already hashed.
type PendingAdmin struct {
    LabName          string `json:"labName"`
    OwnerName        string `json:"ownerName"`
    Email            string `json:"email"`
    Password         string `json:"password"`
    ContactNumber    string `json:"contactNumber"`
    PreviousSoftware string `json:"previousSoftware"`
}

// Complete reports whether the staged payload carries the fields needed
// to create an admin.
func (p PendingAdmin) Complete() bool {
    return p.LabName != "" && p.Email != "" && p.Password != ""
}
