package booking

import (
    "context"
    "errors"
    "strings"

    "github.com/iliyamo/venue-reservation/internal/model"
    "github.com/iliyamo/venue-reservation/internal/repository"
)

// Claim assigns the reservation to adminID when nobody holds it.  The
// store performs a compare-and-set, so of several concurrent claims
// exactly one wins; the others get an AssignmentConflict naming the
// holder.  Re-claiming a reservation already held by adminID succeeds.
func (s *Service) Claim(ctx context.Context, id, adminID string) error {
    if strings.TrimSpace(adminID) == "" {
        return invalid("admin_id", "required")
    }
    holder, err := s.store.Claim(ctx, id, adminID)
    if errors.Is(err, repository.ErrAlreadyClaimed) {
        return &AssignmentConflict{HeldBy: holder}
    }
    if err != nil {
        return storeErr("claim reservation", err)
    }
    s.log.Info("reservation claimed", "reservation_id", id, "admin_id", adminID)
    return nil
}

// Release clears the claim when adminID holds it.
func (s *Service) Release(ctx context.Context, id, adminID string) error {
    if err := s.store.Release(ctx, id, adminID); err != nil {
        return storeErr("release reservation", err)
    }
    s.log.Info("reservation released", "reservation_id", id, "admin_id", adminID)
    return nil
}

// ForceRelease clears the claim whoever holds it.  It is the explicit
// release action available to admins for abandoned claims.
func (s *Service) ForceRelease(ctx context.Context, id string, actor Actor) error {
    if !actor.Admin {
        return ErrForbidden
    }
    if err := s.store.ForceRelease(ctx, id); err != nil {
        return storeErr("force release reservation", err)
    }
    s.log.Warn("reservation claim force-released", "reservation_id", id, "actor", actor.ID)
    return nil
}

// ListUnassigned returns reservations nobody has claimed, optionally
// restricted to one kind.
func (s *Service) ListUnassigned(ctx context.Context, kind model.Kind) ([]model.Reservation, error) {
    return s.List(ctx, repository.Filter{Kind: kind, Unassigned: true})
}

// ListAssignedTo returns the reservations adminID currently holds.
func (s *Service) ListAssignedTo(ctx context.Context, adminID string) ([]model.Reservation, error) {
    if strings.TrimSpace(adminID) == "" {
        return nil, invalid("admin_id", "required")
    }
    return s.List(ctx, repository.Filter{AssignedTo: adminID})
}
