// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow the service layer to tell
// apart a missing record, a uniqueness violation and an infrastructure
// failure without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row or cache entry does not
// exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert hits a unique key (email,
// contact number, jti).  It is the backstop against double promotion of a
// pending admin.
var ErrDuplicate = errors.New("duplicate")

// mysqlDuplicateEntry is MySQL's ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
