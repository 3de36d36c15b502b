// Package repository holds the MySQL-backed Credential Store and Task Store.
// Sentinel errors let the service layer distinguish expected outcomes from
// infrastructure failures, which are wrapped and passed through.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrEmailExists is returned when an insert or update collides with the
// unique email index.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrTaskNotFound is returned when a task does not exist or belongs to
// another user.  The two cases are deliberately indistinguishable.
var ErrTaskNotFound = errors.New("task not found")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
