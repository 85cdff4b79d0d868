package booking

import (
    "context"
    "sort"

    "github.com/iliyamo/venue-reservation/internal/model"
    "github.com/iliyamo/venue-reservation/internal/repository"
)

// Availability is the answer to an availability query.  A multi-target
// query is available only when every target is free.
type Availability struct {
    Available bool       `json:"available"`
    Conflicts []Conflict `json:"conflicts"`
}

// CheckAvailability reports whether every target is free for window.
// Only pending and confirmed reservations occupy a target, and ranges that
// merely touch do not conflict.  excludeID skips one reservation, which
// lets an existing booking be re-checked against everything but itself.
// An empty or inverted window is a ValidationError and is never checked.
func (s *Service) CheckAvailability(ctx context.Context, targets []string, window model.DateRange, excludeID string) (Availability, error) {
    if len(targets) == 0 {
        return Availability{}, invalid("targets", "required")
    }
    window = model.DateRange{Start: window.Start.UTC(), End: window.End.UTC()}
    if !window.Valid() {
        return Availability{}, invalid("end", "must be after start")
    }
    ids := make([]string, 0, len(targets))
    seen := map[string]bool{}
    for _, id := range targets {
        if seen[id] {
            continue
        }
        seen[id] = true
        if _, err := s.catalog.GetRoom(ctx, id); err != nil {
            return Availability{}, catalogErr("room", id, err)
        }
        ids = append(ids, id)
    }
    sort.Strings(ids)

    var overlaps []repository.Overlap
    err := s.store.Atomic(ctx, ids, func(tx repository.ReservationTx) error {
        var err error
        overlaps, err = tx.Overlapping(ctx, ids, window, excludeID)
        return err
    })
    if err != nil {
        return Availability{}, storeErr("check availability", err)
    }
    out := Availability{Available: len(overlaps) == 0, Conflicts: []Conflict{}}
    if len(overlaps) > 0 {
        out.Conflicts = conflictFrom(overlaps).Conflicts
    }
    return out, nil
}
