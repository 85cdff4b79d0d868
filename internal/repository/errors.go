// Package repository defines the persistence layer of the reservation
// engine together with the error values shared by every store
// implementation.  These sentinel values allow higher layers such as the
// booking service to distinguish between different failure scenarios.
// For example, ErrAlreadyClaimed indicates that a conditional claim lost
// against another admin, while ErrNotFound signals that the reservation
// or catalog entry does not exist.
package repository

import (
    "errors"

    "github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a reservation, room, service or event
// type does not exist.  Handlers should translate this into an HTTP 404
// response.
var ErrNotFound = errors.New("not found")

// ErrAlreadyClaimed is returned when a claim finds the reservation
// already assigned to another admin.
var ErrAlreadyClaimed = errors.New("already claimed")

// ErrNotOwner is returned when an admin tries to release a claim they do
// not hold.
var ErrNotOwner = errors.New("not owner")

// ErrDuplicateConfirmation is returned when an insert collides with an
// existing confirmation number.  Callers regenerate and retry.
var ErrDuplicateConfirmation = errors.New("duplicate confirmation number")

// isDuplicateKey reports whether err is a MySQL unique key violation.
func isDuplicateKey(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == 1062
}
