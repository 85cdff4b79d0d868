package repository

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/iliyamo/venue-reservation/internal/model"
)

// MemoryStore is an in-process ReservationStore.  A single mutex guards
// every operation, so the check and the write inside Atomic can never
// interleave with another caller.  It backs the "memory" store driver and
// the test suites.
type MemoryStore struct {
    mu    sync.Mutex
    byID  map[string]*model.Reservation
    codes map[string]string // confirmation number -> id
    now   func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
    return &MemoryStore{
        byID:  make(map[string]*model.Reservation),
        codes: make(map[string]string),
        now:   func() time.Time { return time.Now().UTC() },
    }
}

// memTx implements ReservationTx against the locked store.  Writes are
// staged and only applied when fn returns nil.
type memTx struct {
    s       *MemoryStore
    staged  map[string]*model.Reservation
    created map[string]bool
}

func (t *memTx) lookup(id string) (*model.Reservation, bool) {
    if r, ok := t.staged[id]; ok {
        return r, true
    }
    r, ok := t.s.byID[id]
    return r, ok
}

func (t *memTx) Overlapping(_ context.Context, targets []string, window model.DateRange, excludeID string) ([]Overlap, error) {
    want := make(map[string]bool, len(targets))
    for _, id := range targets {
        want[id] = true
    }
    seen := make(map[string]bool)
    var out []Overlap
    visit := func(r *model.Reservation) {
        if seen[r.ID] {
            return
        }
        seen[r.ID] = true
        if r.ID == excludeID || !r.State.Active() || !r.Window.Overlaps(window) {
            return
        }
        for _, tg := range r.Targets {
            if want[tg] {
                out = append(out, Overlap{
                    ReservationID:      r.ID,
                    ConfirmationNumber: r.ConfirmationNumber,
                    TargetID:           tg,
                    Window:             r.Window,
                })
            }
        }
    }
    for _, r := range t.staged {
        visit(r)
    }
    for _, r := range t.s.byID {
        visit(r)
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].TargetID != out[j].TargetID {
            return out[i].TargetID < out[j].TargetID
        }
        return out[i].Window.Start.Before(out[j].Window.Start)
    })
    return out, nil
}

func (t *memTx) Insert(_ context.Context, r *model.Reservation) error {
    if _, taken := t.s.codes[r.ConfirmationNumber]; taken {
        return ErrDuplicateConfirmation
    }
    for _, st := range t.staged {
        if st.ConfirmationNumber == r.ConfirmationNumber {
            return ErrDuplicateConfirmation
        }
    }
    now := t.s.now()
    r.CreatedAt, r.UpdatedAt = now, now
    cp := r.Clone()
    t.staged[r.ID] = &cp
    t.created[r.ID] = true
    return nil
}

func (t *memTx) Get(_ context.Context, id string) (*model.Reservation, error) {
    r, ok := t.lookup(id)
    if !ok {
        return nil, ErrNotFound
    }
    cp := r.Clone()
    return &cp, nil
}

func (t *memTx) Update(_ context.Context, r *model.Reservation) error {
    if _, ok := t.lookup(r.ID); !ok {
        return ErrNotFound
    }
    r.UpdatedAt = t.s.now()
    cp := r.Clone()
    t.staged[r.ID] = &cp
    return nil
}

// Atomic runs fn with the store locked.  Staged writes are applied only
// when fn succeeds.
func (s *MemoryStore) Atomic(ctx context.Context, _ []string, fn func(tx ReservationTx) error) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    tx := &memTx{s: s, staged: make(map[string]*model.Reservation), created: make(map[string]bool)}
    if err := fn(tx); err != nil {
        return err
    }
    for id, r := range tx.staged {
        s.byID[id] = r
        if tx.created[id] {
            s.codes[r.ConfirmationNumber] = id
        }
    }
    return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.Reservation, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    r, ok := s.byID[id]
    if !ok {
        return nil, ErrNotFound
    }
    cp := r.Clone()
    return &cp, nil
}

func (s *MemoryStore) GetByConfirmation(ctx context.Context, code string) (*model.Reservation, error) {
    s.mu.Lock()
    id, ok := s.codes[code]
    s.mu.Unlock()
    if !ok {
        return nil, ErrNotFound
    }
    return s.Get(ctx, id)
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]model.Reservation, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.Reservation, 0, len(s.byID))
    for _, r := range s.byID {
        if !matches(r, f) {
            continue
        }
        out = append(out, r.Clone())
    }
    sort.Slice(out, func(i, j int) bool {
        if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
            return out[i].CreatedAt.Before(out[j].CreatedAt)
        }
        return out[i].ID < out[j].ID
    })
    if f.Offset > 0 {
        if f.Offset >= len(out) {
            return []model.Reservation{}, nil
        }
        out = out[f.Offset:]
    }
    if f.Limit > 0 && len(out) > f.Limit {
        out = out[:f.Limit]
    }
    return out, nil
}

func matches(r *model.Reservation, f Filter) bool {
    if f.State != "" && r.State != f.State {
        return false
    }
    if f.Kind != "" && r.Kind != f.Kind {
        return false
    }
    if f.AssignedTo != "" && r.AssignedAdminID != f.AssignedTo {
        return false
    }
    if f.Unassigned && r.AssignedAdminID != "" {
        return false
    }
    if f.TargetID != "" {
        found := false
        for _, t := range r.Targets {
            if t == f.TargetID {
                found = true
                break
            }
        }
        if !found {
            return false
        }
    }
    return true
}

func (s *MemoryStore) Claim(_ context.Context, id, adminID string) (string, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    r, ok := s.byID[id]
    if !ok {
        return "", ErrNotFound
    }
    switch r.AssignedAdminID {
    case "":
        r.AssignedAdminID = adminID
        r.UpdatedAt = s.now()
        return adminID, nil
    case adminID:
        return adminID, nil
    default:
        return r.AssignedAdminID, ErrAlreadyClaimed
    }
}

func (s *MemoryStore) Release(_ context.Context, id, adminID string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    r, ok := s.byID[id]
    if !ok {
        return ErrNotFound
    }
    if r.AssignedAdminID != adminID {
        return ErrNotOwner
    }
    r.AssignedAdminID = ""
    r.UpdatedAt = s.now()
    return nil
}

func (s *MemoryStore) ForceRelease(_ context.Context, id string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    r, ok := s.byID[id]
    if !ok {
        return ErrNotFound
    }
    r.AssignedAdminID = ""
    r.UpdatedAt = s.now()
    return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    r, ok := s.byID[id]
    if !ok {
        return ErrNotFound
    }
    delete(s.codes, r.ConfirmationNumber)
    delete(s.byID, id)
    return nil
}
