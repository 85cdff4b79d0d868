// Package booking is the reservation engine: availability and conflict
// detection, pricing, the admin assignment ledger and the reservation
// lifecycle.  Every state change that depends on availability runs its
// check and its write inside one ReservationStore.Atomic call so two
// requests can never both book the same target for overlapping dates.
package booking

import (
    "context"
    "errors"
    "log/slog"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/venue-reservation/internal/model"
    "github.com/iliyamo/venue-reservation/internal/payment"
    "github.com/iliyamo/venue-reservation/internal/repository"
)

// Event names published to the notifier.
const (
    EventCreated       = "reservation.created"
    EventConfirmed     = "reservation.confirmed"
    EventRejected      = "reservation.rejected"
    EventCancelled     = "reservation.cancelled"
    EventStatusChanged = "reservation.status_changed"
    EventPaymentFailed = "reservation.payment_failed"
    EventDeleted       = "reservation.deleted"
)

// Notifier is the notification collaborator (guest and staff emails are
// sent downstream of it).  Errors are logged and never undo a committed
// change.
type Notifier interface {
    Notify(ctx context.Context, event string, r model.Reservation) error
}

// Config holds the booking rules.
type Config struct {
    Pricing         PricingConfig
    PaymentRequired bool
    MassageDuration time.Duration
    Cancellation    CancellationPolicy
    NotifyTimeout   time.Duration
}

// Actor is the caller of a state-changing operation.  Guests have an
// empty ID and Admin false.
type Actor struct {
    ID    string
    Admin bool
}

// Created is the outcome of a successful Create.  Payment is nil when no
// payment is required or when starting it failed; PaymentErr carries the
// failure in the latter case.
type Created struct {
    Reservation model.Reservation
    Payment     *payment.Handle
    PaymentErr  error
}

// Service is the lifecycle controller.  It is safe for concurrent use.
type Service struct {
    store    repository.ReservationStore
    catalog  repository.Catalog
    payments payment.Gateway
    notifier Notifier
    cfg      Config
    log      *slog.Logger
    now      func() time.Time
}

// NewService wires the engine.  payments and notifier may be nil.
func NewService(store repository.ReservationStore, catalog repository.Catalog, payments payment.Gateway, notifier Notifier, cfg Config, logger *slog.Logger) *Service {
    if cfg.MassageDuration <= 0 {
        cfg.MassageDuration = time.Hour
    }
    if cfg.NotifyTimeout <= 0 {
        cfg.NotifyTimeout = 5 * time.Second
    }
    if logger == nil {
        logger = slog.Default()
    }
    return &Service{
        store:    store,
        catalog:  catalog,
        payments: payments,
        notifier: notifier,
        cfg:      cfg,
        log:      logger,
        now:      func() time.Time { return time.Now().UTC() },
    }
}

// Quote returns the price a request would be charged without persisting
// anything.
func (s *Service) Quote(ctx context.Context, req Request) (model.Price, error) {
    rv, err := s.resolve(ctx, req)
    if err != nil {
        return model.Price{}, err
    }
    return Quote(rv.priceInput(), s.cfg.Pricing), nil
}

// Create validates the request, checks availability and inserts a pending
// reservation in one atomic step.  The price is always computed here.
// After the commit the notifier is told and, when payment is required, a
// payment for the amount due is started.
func (s *Service) Create(ctx context.Context, req Request) (*Created, error) {
    rv, err := s.resolve(ctx, req)
    if err != nil {
        return nil, err
    }
    price := Quote(rv.priceInput(), s.cfg.Pricing)

    var res model.Reservation
    for attempt := 0; attempt < 3; attempt++ {
        code, cerr := newConfirmationNumber()
        if cerr != nil {
            return nil, &PersistenceError{Op: "create", Err: cerr}
        }
        res = model.Reservation{
            ID:                 uuid.NewString(),
            ConfirmationNumber: code,
            Kind:               rv.kind,
            Targets:            rv.targets,
            EventTypeID:        req.EventTypeID,
            ServiceIDs:         serviceIDs(rv.services),
            Window:             rv.window,
            Contact:            normalizeContact(req.Contact),
            GuestCount:         req.GuestCount,
            Price:              price,
            State:              model.StatePending,
            Notes:              req.Notes,
        }
        err = s.store.Atomic(ctx, rv.targets, func(tx repository.ReservationTx) error {
            overlaps, err := tx.Overlapping(ctx, rv.targets, rv.window, "")
            if err != nil {
                return err
            }
            if len(overlaps) > 0 {
                return conflictFrom(overlaps)
            }
            return tx.Insert(ctx, &res)
        })
        if !errors.Is(err, repository.ErrDuplicateConfirmation) {
            break
        }
    }
    if err != nil {
        return nil, storeErr("create reservation", err)
    }
    s.log.Info("reservation created", "reservation_id", res.ID, "confirmation", res.ConfirmationNumber, "kind", res.Kind, "targets", res.Targets)
    s.notify(ctx, EventCreated, res)

    out := &Created{Reservation: res}
    if !s.cfg.PaymentRequired || s.payments == nil {
        return out, nil
    }
    h, perr := s.payments.InitiatePayment(ctx, AmountDue(res.Price), res.ID)
    if perr != nil {
        out.PaymentErr = &CollaboratorError{Collaborator: "payment", Err: perr}
        s.log.Error("payment initiation failed", "reservation_id", res.ID, "error", perr)
        if updated, err := s.flagReconciliation(ctx, res, "payment initiation failed: "+perr.Error()); err == nil {
            out.Reservation = updated
        }
        return out, nil
    }
    out.Payment = &h
    if updated, err := s.attachPaymentRef(ctx, res, h.Reference); err != nil {
        s.log.Error("storing payment reference failed", "reservation_id", res.ID, "error", err)
    } else {
        out.Reservation = updated
    }
    return out, nil
}

func (s *Service) attachPaymentRef(ctx context.Context, res model.Reservation, ref string) (model.Reservation, error) {
    var out model.Reservation
    err := s.store.Atomic(ctx, res.Targets, func(tx repository.ReservationTx) error {
        r, err := tx.Get(ctx, res.ID)
        if err != nil {
            return err
        }
        if r.PaymentRef == "" {
            r.PaymentRef = ref
            if err := tx.Update(ctx, r); err != nil {
                return err
            }
        }
        out = *r
        return nil
    })
    return out, storeErr("attach payment", err)
}

func (s *Service) flagReconciliation(ctx context.Context, res model.Reservation, note string) (model.Reservation, error) {
    var out model.Reservation
    err := s.store.Atomic(ctx, res.Targets, func(tx repository.ReservationTx) error {
        r, err := tx.Get(ctx, res.ID)
        if err != nil {
            return err
        }
        r.NeedsReconciliation = true
        r.Notes = appendNote(r.Notes, note)
        if err := tx.Update(ctx, r); err != nil {
            return err
        }
        out = *r
        return nil
    })
    return out, storeErr("flag reconciliation", err)
}

// OnPaymentConfirmed applies a payment-succeeded callback.  Only a pending
// reservation changes: it is re-checked for conflicts under lock and
// either confirmed with a recomputed price or rejected and flagged for
// reconciliation.  Repeated or late deliveries are no-ops.
func (s *Service) OnPaymentConfirmed(ctx context.Context, id, paymentRef string) (model.Reservation, error) {
    cur, err := s.get(ctx, id)
    if err != nil {
        return model.Reservation{}, err
    }
    if cur.State != model.StatePending {
        return *cur, nil
    }
    price, err := s.reprice(ctx, cur)
    if err != nil {
        return model.Reservation{}, err
    }
    var (
        out   model.Reservation
        event string
    )
    err = s.store.Atomic(ctx, cur.Targets, func(tx repository.ReservationTx) error {
        r, err := tx.Get(ctx, id)
        if err != nil {
            return err
        }
        if r.State != model.StatePending {
            out = *r
            return nil
        }
        if paymentRef != "" {
            r.PaymentRef = paymentRef
        }
        overlaps, err := tx.Overlapping(ctx, r.Targets, r.Window, r.ID)
        if err != nil {
            return err
        }
        if len(overlaps) > 0 {
            r.State = model.StateRejected
            r.NeedsReconciliation = true
            r.Notes = appendNote(r.Notes, "payment received but dates were taken by "+overlaps[0].ConfirmationNumber)
            event = EventRejected
        } else {
            r.State = model.StateConfirmed
            r.Price = price
            event = EventConfirmed
        }
        if err := tx.Update(ctx, r); err != nil {
            return err
        }
        out = *r
        return nil
    })
    if err != nil {
        return model.Reservation{}, storeErr("confirm payment", err)
    }
    if event != "" {
        s.log.Info("payment applied", "reservation_id", out.ID, "state", out.State)
        s.notify(ctx, event, out)
    }
    return out, nil
}

// OnPaymentFailed records a failed payment.  The reservation stays pending
// and is flagged for reconciliation; other states are left untouched.
func (s *Service) OnPaymentFailed(ctx context.Context, id, reason string) (model.Reservation, error) {
    cur, err := s.get(ctx, id)
    if err != nil {
        return model.Reservation{}, err
    }
    if cur.State != model.StatePending {
        return *cur, nil
    }
    if reason == "" {
        reason = "unspecified"
    }
    var (
        out     model.Reservation
        changed bool
    )
    err = s.store.Atomic(ctx, cur.Targets, func(tx repository.ReservationTx) error {
        r, err := tx.Get(ctx, id)
        if err != nil {
            return err
        }
        out = *r
        if r.State != model.StatePending || r.NeedsReconciliation {
            return nil
        }
        r.NeedsReconciliation = true
        r.Notes = appendNote(r.Notes, "payment failed: "+reason)
        if err := tx.Update(ctx, r); err != nil {
            return err
        }
        out, changed = *r, true
        return nil
    })
    if err != nil {
        return model.Reservation{}, storeErr("payment failed", err)
    }
    if changed {
        s.log.Warn("payment failed", "reservation_id", out.ID, "reason", reason)
        s.notify(ctx, EventPaymentFailed, out)
    }
    return out, nil
}

// Cancel moves a reservation to cancelled and clears any claim.  Guests
// may cancel only pending reservations; admins may also cancel confirmed
// ones.  Cancelling twice is a no-op and a rejected reservation cannot be
// cancelled.
func (s *Service) Cancel(ctx context.Context, id string, actor Actor) (model.Reservation, error) {
    cur, err := s.get(ctx, id)
    if err != nil {
        return model.Reservation{}, err
    }
    var (
        out     model.Reservation
        changed bool
    )
    err = s.store.Atomic(ctx, cur.Targets, func(tx repository.ReservationTx) error {
        r, err := tx.Get(ctx, id)
        if err != nil {
            return err
        }
        out = *r
        switch r.State {
        case model.StateCancelled:
            return nil
        case model.StateRejected:
            return &TransitionError{From: r.State, To: model.StateCancelled}
        case model.StateConfirmed:
            if !actor.Admin {
                return &TransitionError{From: r.State, To: model.StateCancelled}
            }
        }
        r.RefundCents = s.cfg.Cancellation.Refund(*r, s.now())
        r.State = model.StateCancelled
        r.AssignedAdminID = ""
        if err := tx.Update(ctx, r); err != nil {
            return err
        }
        out, changed = *r, true
        return nil
    })
    if err != nil {
        return model.Reservation{}, storeErr("cancel reservation", err)
    }
    if changed {
        s.log.Info("reservation cancelled", "reservation_id", out.ID, "actor", actor.ID, "refund_cents", out.RefundCents)
        s.notify(ctx, EventCancelled, out)
    }
    return out, nil
}

// CancelByGuest cancels the reservation identified by its confirmation
// number when email matches the contact on file.
func (s *Service) CancelByGuest(ctx context.Context, code, email string) (model.PublicView, error) {
    cur, err := s.lookup(ctx, code)
    if err != nil {
        return model.PublicView{}, err
    }
    if !strings.EqualFold(strings.TrimSpace(email), cur.Contact.Email) {
        return model.PublicView{}, ErrForbidden
    }
    out, err := s.Cancel(ctx, cur.ID, Actor{})
    if err != nil {
        return model.PublicView{}, err
    }
    return out.Public(), nil
}

// allowed lists the admin status overrides.
var allowed = map[model.State][]model.State{
    model.StatePending:   {model.StateConfirmed, model.StateCancelled, model.StateRejected},
    model.StateConfirmed: {model.StatePending, model.StateCancelled},
    model.StateCancelled: {model.StatePending},
    model.StateRejected:  {model.StatePending, model.StateConfirmed, model.StateCancelled},
}

func canMove(from, to model.State) bool {
    for _, s := range allowed[from] {
        if s == to {
            return true
        }
    }
    return false
}

// UpdateStatus is the admin override.  Moving into pending or confirmed
// re-runs the conflict check against every other active reservation, so
// an override can never produce a double booking.  Confirming recomputes
// the price.
func (s *Service) UpdateStatus(ctx context.Context, id string, to model.State, actor Actor) (model.Reservation, error) {
    if !actor.Admin {
        return model.Reservation{}, ErrForbidden
    }
    if !to.Valid() {
        return model.Reservation{}, invalid("state", "unknown state "+string(to))
    }
    cur, err := s.get(ctx, id)
    if err != nil {
        return model.Reservation{}, err
    }
    var price model.Price
    if to == model.StateConfirmed {
        if price, err = s.reprice(ctx, cur); err != nil {
            return model.Reservation{}, err
        }
    }
    var (
        out     model.Reservation
        changed bool
    )
    err = s.store.Atomic(ctx, cur.Targets, func(tx repository.ReservationTx) error {
        r, err := tx.Get(ctx, id)
        if err != nil {
            return err
        }
        out = *r
        if r.State == to {
            return nil
        }
        if !canMove(r.State, to) {
            return &TransitionError{From: r.State, To: to}
        }
        if to.Active() {
            overlaps, err := tx.Overlapping(ctx, r.Targets, r.Window, r.ID)
            if err != nil {
                return err
            }
            if len(overlaps) > 0 {
                return conflictFrom(overlaps)
            }
        }
        if to.Active() {
            r.RefundCents = 0
        }
        switch to {
        case model.StateConfirmed:
            r.Price = price
            r.NeedsReconciliation = false
        case model.StateCancelled:
            r.RefundCents = s.cfg.Cancellation.Refund(*r, s.now())
            r.AssignedAdminID = ""
        }
        r.Notes = appendNote(r.Notes, "status "+string(r.State)+" -> "+string(to)+" by "+actor.ID)
        r.State = to
        if err := tx.Update(ctx, r); err != nil {
            return err
        }
        out, changed = *r, true
        return nil
    })
    if err != nil {
        return model.Reservation{}, storeErr("update status", err)
    }
    if changed {
        s.log.Info("reservation status changed", "reservation_id", out.ID, "state", out.State, "actor", actor.ID)
        s.notify(ctx, EventStatusChanged, out)
    }
    return out, nil
}

// Delete hard-deletes a reservation.  Admin only.
func (s *Service) Delete(ctx context.Context, id string, actor Actor) error {
    if !actor.Admin {
        return ErrForbidden
    }
    cur, err := s.get(ctx, id)
    if err != nil {
        return err
    }
    if err := s.store.Delete(ctx, id); err != nil {
        return storeErr("delete reservation", err)
    }
    s.log.Info("reservation deleted", "reservation_id", id, "actor", actor.ID)
    s.notify(ctx, EventDeleted, *cur)
    return nil
}

// Get returns the full record for the admin surface.
func (s *Service) Get(ctx context.Context, id string) (model.Reservation, error) {
    r, err := s.get(ctx, id)
    if err != nil {
        return model.Reservation{}, err
    }
    return *r, nil
}

// Lookup finds a reservation by confirmation number or id and returns the
// guest-facing projection.
func (s *Service) Lookup(ctx context.Context, code string) (model.PublicView, error) {
    r, err := s.lookup(ctx, code)
    if err != nil {
        return model.PublicView{}, err
    }
    return r.Public(), nil
}

func (s *Service) lookup(ctx context.Context, code string) (*model.Reservation, error) {
    code = strings.TrimSpace(code)
    if code == "" {
        return nil, invalid("code", "required")
    }
    var r *model.Reservation
    err := s.read(ctx, "lookup", func() error {
        var err error
        r, err = s.store.GetByConfirmation(ctx, strings.ToUpper(code))
        if errors.Is(err, repository.ErrNotFound) {
            r, err = s.store.Get(ctx, code)
        }
        return err
    })
    return r, err
}

// List returns reservations for the admin surface.
func (s *Service) List(ctx context.Context, f repository.Filter) ([]model.Reservation, error) {
    if f.State != "" && !f.State.Valid() {
        return nil, invalid("state", "unknown state "+string(f.State))
    }
    if f.Kind != "" && !f.Kind.Valid() {
        return nil, invalid("kind", "unknown kind "+string(f.Kind))
    }
    var out []model.Reservation
    err := s.read(ctx, "list", func() error {
        var err error
        out, err = s.store.List(ctx, f)
        return err
    })
    return out, err
}

// Rooms lists the catalog for the public surface.
func (s *Service) Rooms(ctx context.Context) ([]model.Room, error) {
    var out []model.Room
    err := s.read(ctx, "list rooms", func() error {
        var err error
        out, err = s.catalog.ListRooms(ctx)
        return err
    })
    return out, err
}

func (s *Service) get(ctx context.Context, id string) (*model.Reservation, error) {
    if strings.TrimSpace(id) == "" {
        return nil, invalid("id", "required")
    }
    var r *model.Reservation
    err := s.read(ctx, "get reservation", func() error {
        var err error
        r, err = s.store.Get(ctx, id)
        return err
    })
    return r, err
}

// read runs an idempotent read, retrying once on a storage failure.
func (s *Service) read(ctx context.Context, op string, fn func() error) error {
    err := fn()
    if err != nil && !errors.Is(err, repository.ErrNotFound) && ctx.Err() == nil {
        s.log.Warn("read failed, retrying", "op", op, "error", err)
        err = fn()
    }
    return storeErr(op, err)
}

// reprice recomputes the price of a stored reservation from the catalog.
func (s *Service) reprice(ctx context.Context, r *model.Reservation) (model.Price, error) {
    in := PriceInput{Kind: r.Kind, Window: r.Window, GuestCount: r.GuestCount}
    for _, id := range r.Targets {
        room, err := s.catalog.GetRoom(ctx, id)
        if err != nil {
            return model.Price{}, catalogErr("room", id, err)
        }
        in.Rooms = append(in.Rooms, *room)
    }
    if r.EventTypeID != "" {
        et, err := s.catalog.GetEventType(ctx, r.EventTypeID)
        if err != nil {
            return model.Price{}, catalogErr("event type", r.EventTypeID, err)
        }
        in.EventType = et
    }
    for _, id := range r.ServiceIDs {
        svc, err := s.catalog.GetService(ctx, id)
        if err != nil {
            return model.Price{}, catalogErr("service", id, err)
        }
        in.Services = append(in.Services, *svc)
    }
    return Quote(in, s.cfg.Pricing), nil
}

// notify calls the notifier after a commit.  It runs detached from the
// request's cancellation with its own timeout.
func (s *Service) notify(ctx context.Context, event string, r model.Reservation) {
    if s.notifier == nil {
        return
    }
    nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.NotifyTimeout)
    defer cancel()
    if err := s.notifier.Notify(nctx, event, r); err != nil {
        s.log.Error("notification failed", "event", event, "reservation_id", r.ID,
            "error", &CollaboratorError{Collaborator: "notifier", Err: err})
    }
}

func serviceIDs(services []model.Service) []string {
    out := make([]string, 0, len(services))
    for _, s := range services {
        out = append(out, s.ID)
    }
    return out
}

func normalizeContact(c model.Contact) model.Contact {
    return model.Contact{
        Name:    strings.TrimSpace(c.Name),
        Surname: strings.TrimSpace(c.Surname),
        Email:   strings.ToLower(strings.TrimSpace(c.Email)),
        Phone:   strings.TrimSpace(c.Phone),
    }
}

func appendNote(notes, line string) string {
    if notes == "" {
        return line
    }
    return notes + "\n" + line
}
