// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// Not-found sentinels, one per entity.  Handlers translate these into
// HTTP 404 responses.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrCarNotFound     = errors.New("car not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrReviewNotFound  = errors.New("review not found")
	ErrContactNotFound = errors.New("contact not found")
)

// ErrEmailExists is returned on a duplicate users.email.
var ErrEmailExists = errors.New("email already exists")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrBookingNotPending is returned when deleting a booking that an admin
// has already approved or rejected.
var ErrBookingNotPending = errors.New("only pending bookings can be deleted")

// ErrUnknownModel is returned when a car references a model id that does
// not exist.
var ErrUnknownModel = errors.New("unknown model")

// MySQL server error numbers we translate.
const (
	mysqlDuplicateEntry  = 1062
	mysqlNoReferencedRow = 1452
)

func isMySQLError(err error, number uint16) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == number
}

func isDuplicate(err error) bool  { return isMySQLError(err, mysqlDuplicateEntry) }
func isForeignKey(err error) bool { return isMySQLError(err, mysqlNoReferencedRow) }
