package repository

import (
    "context"

    "github.com/iliyamo/venue-reservation/internal/model"
)

// Overlap describes one active reservation that occupies a target during
// part of a requested window.
type Overlap struct {
    ReservationID      string
    ConfirmationNumber string
    TargetID           string
    Window             model.DateRange
}

// Filter narrows List results.  Zero values mean "any".
type Filter struct {
    State      model.State
    Kind       model.Kind
    TargetID   string
    AssignedTo string
    Unassigned bool
    Limit      int
    Offset     int
}

// ReservationTx is the unit of work handed to Atomic.  Every call runs
// inside the same transaction, after the targets passed to Atomic have been
// locked, so a conflict check followed by a write cannot interleave with
// another writer on those targets.
type ReservationTx interface {
    // Overlapping returns active reservations occupying any of targets
    // during window.  excludeID skips one reservation (used when a
    // reservation is re-checked against everything but itself).
    Overlapping(ctx context.Context, targets []string, window model.DateRange, excludeID string) ([]Overlap, error)
    // Insert stores a new reservation.  ErrDuplicateConfirmation is
    // returned when the confirmation number is already taken.
    Insert(ctx context.Context, r *model.Reservation) error
    // Get loads a reservation for update.
    Get(ctx context.Context, id string) (*model.Reservation, error)
    // Update writes back the mutable fields of r (state, price, payment
    // reference, reconciliation flag, refund, notes, assignment).
    Update(ctx context.Context, r *model.Reservation) error
}

// ReservationStore persists reservations.  Implementations must make
// Atomic serialize callers that share at least one target and must
// implement Claim and Release as compare-and-set operations.
type ReservationStore interface {
    Atomic(ctx context.Context, targets []string, fn func(tx ReservationTx) error) error
    Get(ctx context.Context, id string) (*model.Reservation, error)
    GetByConfirmation(ctx context.Context, code string) (*model.Reservation, error)
    List(ctx context.Context, f Filter) ([]model.Reservation, error)
    // Claim sets the assigned admin only when the reservation is
    // unassigned.  Claiming a reservation already held by the same admin
    // succeeds.  On failure the current holder is returned with
    // ErrAlreadyClaimed.
    Claim(ctx context.Context, id, adminID string) (holder string, err error)
    // Release clears the assignment only when adminID holds it.
    Release(ctx context.Context, id, adminID string) error
    // ForceRelease clears the assignment regardless of the holder.
    ForceRelease(ctx context.Context, id string) error
    Delete(ctx context.Context, id string) error
}

// Catalog exposes the reference data needed to validate and price a
// booking.
type Catalog interface {
    GetRoom(ctx context.Context, id string) (*model.Room, error)
    ListRooms(ctx context.Context) ([]model.Room, error)
    GetService(ctx context.Context, id string) (*model.Service, error)
    GetEventType(ctx context.Context, id string) (*model.EventType, error)
}
