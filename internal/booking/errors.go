package booking

import (
    "errors"
    "fmt"
    "sort"
    "strings"
    "time"

    "github.com/iliyamo/venue-reservation/internal/model"
    "github.com/iliyamo/venue-reservation/internal/repository"
)

// ErrNotFound is returned when a reservation, room, service or event type
// does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotOwner is returned when an admin releases a claim held by someone
// else.
var ErrNotOwner = errors.New("reservation is claimed by another admin")

// ErrForbidden is returned when a non-admin actor attempts an admin-only
// operation, or when a guest's email does not match the reservation.
var ErrForbidden = errors.New("forbidden")

// ValidationError reports rejected input.  Fields maps a request field
// (by its JSON name) to the reason it was rejected.  Nothing is persisted
// when a ValidationError is returned.
type ValidationError struct {
    Fields map[string]string
}

func (e *ValidationError) Error() string {
    keys := make([]string, 0, len(e.Fields))
    for k := range e.Fields {
        keys = append(keys, k)
    }
    sort.Strings(keys)
    parts := make([]string, 0, len(keys))
    for _, k := range keys {
        parts = append(parts, k+": "+e.Fields[k])
    }
    return "invalid request: " + strings.Join(parts, "; ")
}

func invalid(field, reason string) *ValidationError {
    return &ValidationError{Fields: map[string]string{field: reason}}
}

// Conflict identifies one active reservation blocking a requested window.
type Conflict struct {
    ReservationID      string    `json:"reservation_id"`
    ConfirmationNumber string    `json:"confirmation_number"`
    TargetID           string    `json:"target_id"`
    Start              time.Time `json:"start"`
    End                time.Time `json:"end"`
}

// AvailabilityConflict is returned when at least one requested target is
// already occupied.  It is a recoverable outcome: the guest can pick other
// dates or targets.
type AvailabilityConflict struct {
    Conflicts []Conflict
}

func (e *AvailabilityConflict) Error() string {
    targets := make([]string, 0, len(e.Conflicts))
    seen := map[string]bool{}
    for _, c := range e.Conflicts {
        if !seen[c.TargetID] {
            seen[c.TargetID] = true
            targets = append(targets, c.TargetID)
        }
    }
    return "not available: " + strings.Join(targets, ", ")
}

func conflictFrom(overlaps []repository.Overlap) *AvailabilityConflict {
    out := make([]Conflict, 0, len(overlaps))
    for _, o := range overlaps {
        out = append(out, Conflict{
            ReservationID:      o.ReservationID,
            ConfirmationNumber: o.ConfirmationNumber,
            TargetID:           o.TargetID,
            Start:              o.Window.Start,
            End:                o.Window.End,
        })
    }
    return &AvailabilityConflict{Conflicts: out}
}

// AssignmentConflict is returned when a claim finds the reservation held
// by another admin.
type AssignmentConflict struct {
    HeldBy string
}

func (e *AssignmentConflict) Error() string {
    return fmt.Sprintf("reservation already claimed by %s", e.HeldBy)
}

// TransitionError reports a state change the lifecycle does not allow.
type TransitionError struct {
    From model.State
    To   model.State
}

func (e *TransitionError) Error() string {
    return fmt.Sprintf("cannot move reservation from %s to %s", e.From, e.To)
}

// PersistenceError wraps a storage failure.  Writes are atomic, so no
// partial state was committed and the request is safe to retry.
type PersistenceError struct {
    Op  string
    Err error
}

func (e *PersistenceError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

// CollaboratorError reports a failure of the payment or notification
// collaborator.  It never rolls back a committed reservation.
type CollaboratorError struct {
    Collaborator string
    Err          error
}

func (e *CollaboratorError) Error() string { return e.Collaborator + ": " + e.Err.Error() }
func (e *CollaboratorError) Unwrap() error { return e.Err }

// storeErr maps a store error onto the engine's taxonomy.  Engine errors
// returned from inside an Atomic callback pass through unchanged.
func storeErr(op string, err error) error {
    if err == nil {
        return nil
    }
    var (
        ve *ValidationError
        ac *AvailabilityConflict
        te *TransitionError
    )
    switch {
    case errors.As(err, &ve), errors.As(err, &ac), errors.As(err, &te),
        errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden), errors.Is(err, ErrNotOwner):
        return err
    case errors.Is(err, repository.ErrNotFound):
        return ErrNotFound
    case errors.Is(err, repository.ErrNotOwner):
        return ErrNotOwner
    }
    return &PersistenceError{Op: op, Err: err}
}
