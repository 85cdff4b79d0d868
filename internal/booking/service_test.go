package booking

import (
    "context"
    "errors"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/iliyamo/venue-reservation/internal/model"
    "github.com/iliyamo/venue-reservation/internal/repository"
)

func TestCreateComputesPriceAndStartsPayment(t *testing.T) {
    svc, _, n := newTestService(t)
    c, err := svc.Create(context.Background(), roomRequest("A", "2025-06-01", "2025-06-04"))
    if err != nil {
        t.Fatalf("Create: %v", err)
    }
    r := c.Reservation
    if r.State != model.StatePending {
        t.Errorf("state = %s, want pending", r.State)
    }
    want := model.Price{SubtotalCents: 720000, TaxCents: 151200, TotalCents: 871200, DepositCents: 261360}
    if r.Price != want {
        t.Errorf("price = %+v, want %+v", r.Price, want)
    }
    if !strings.HasPrefix(r.ConfirmationNumber, "RSV-") || len(r.ConfirmationNumber) != 12 {
        t.Errorf("confirmation number = %q", r.ConfirmationNumber)
    }
    if c.Payment == nil || c.Payment.AmountCents != 261360 {
        t.Fatalf("payment = %+v, want deposit amount", c.Payment)
    }
    if r.PaymentRef != c.Payment.Reference {
        t.Errorf("payment ref = %q, want %q", r.PaymentRef, c.Payment.Reference)
    }
    if n.count(EventCreated) != 1 {
        t.Errorf("created events = %d, want 1", n.count(EventCreated))
    }
}

func TestCreateConflictsAndBackToBack(t *testing.T) {
    svc, _, _ := newTestService(t)
    r1 := mustCreate(t, svc, roomRequest("B", "2025-06-01", "2025-06-03"))

    _, err := svc.Create(context.Background(), roomRequest("B", "2025-06-02", "2025-06-04"))
    var ac *AvailabilityConflict
    if !errors.As(err, &ac) {
        t.Fatalf("overlapping create: err = %v, want AvailabilityConflict", err)
    }
    if len(ac.Conflicts) != 1 || ac.Conflicts[0].ReservationID != r1.ID || ac.Conflicts[0].TargetID != "B" {
        t.Errorf("conflicts = %+v, want R1 on B", ac.Conflicts)
    }

    // Starts exactly when R1 ends.
    mustCreate(t, svc, roomRequest("B", "2025-06-03", "2025-06-05"))
    // Ends exactly when R1 starts.
    mustCreate(t, svc, roomRequest("B", "2025-05-30", "2025-06-01"))
}

func TestCancelFreesRange(t *testing.T) {
    svc, _, n := newTestService(t)
    r1 := mustCreate(t, svc, roomRequest("B", "2025-06-01", "2025-06-03"))
    if _, err := svc.Create(context.Background(), roomRequest("B", "2025-06-01", "2025-06-03")); err == nil {
        t.Fatal("duplicate booking succeeded")
    }
    out, err := svc.Cancel(context.Background(), r1.ID, Actor{})
    if err != nil {
        t.Fatalf("Cancel: %v", err)
    }
    if out.State != model.StateCancelled {
        t.Errorf("state = %s, want cancelled", out.State)
    }
    mustCreate(t, svc, roomRequest("B", "2025-06-01", "2025-06-03"))

    // Cancelling again is a no-op.
    if _, err := svc.Cancel(context.Background(), r1.ID, Actor{}); err != nil {
        t.Errorf("second Cancel: %v", err)
    }
    if n.count(EventCancelled) != 1 {
        t.Errorf("cancelled events = %d, want 1", n.count(EventCancelled))
    }
}

func TestCreateMultiTargetAllOrNothing(t *testing.T) {
    svc, store, _ := newTestService(t)
    mustCreate(t, svc, roomRequest("C", "2025-07-01", "2025-07-03"))
    req := roomRequest("C", "2025-07-02", "2025-07-04")
    req.Targets = []string{"D", "C"}
    _, err := svc.Create(context.Background(), req)
    var ac *AvailabilityConflict
    if !errors.As(err, &ac) {
        t.Fatalf("err = %v, want AvailabilityConflict", err)
    }
    list, _ := store.List(context.Background(), repository.Filter{TargetID: "D"})
    if len(list) != 0 {
        t.Errorf("room D was booked despite the conflict on C: %+v", list)
    }
}

func TestCreateValidation(t *testing.T) {
    svc, _, _ := newTestService(t)
    tests := []struct {
        name  string
        edit  func(r *Request)
        field string
    }{
        {"end before start", func(r *Request) { r.End = r.Start.AddDate(0, 0, -1) }, "end"},
        {"empty range", func(r *Request) { r.End = r.Start }, "end"},
        {"missing email", func(r *Request) { r.Contact.Email = "" }, "contact.email"},
        {"bad email", func(r *Request) { r.Contact.Email = "nope" }, "contact.email"},
        {"missing phone", func(r *Request) { r.Contact.Phone = "" }, "contact.phone"},
        {"no guests", func(r *Request) { r.GuestCount = 0 }, "guest_count"},
        {"over capacity", func(r *Request) { r.GuestCount = 3 }, "guest_count"},
        {"no targets", func(r *Request) { r.Targets = nil }, "targets"},
        {"duplicate target", func(r *Request) { r.Targets = []string{"A", "A"} }, "targets"},
        {"hall for room kind", func(r *Request) { r.Targets = []string{"garden-hall"} }, "targets"},
        {"unknown kind", func(r *Request) { r.Kind = "yacht" }, "kind"},
        {"extras on a room", func(r *Request) { r.ServiceIDs = []string{"catering"} }, "service_ids"},
        {"room shorter than a night", func(r *Request) { r.End = r.Start.Add(2 * time.Hour) }, "end"},
        {"room one minute short", func(r *Request) { r.End = r.Start.Add(24*time.Hour - time.Minute) }, "end"},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            req := roomRequest("A", "2025-06-01", "2025-06-04")
            tt.edit(&req)
            _, err := svc.Create(context.Background(), req)
            var ve *ValidationError
            if !errors.As(err, &ve) {
                t.Fatalf("err = %v, want ValidationError", err)
            }
            if _, ok := ve.Fields[tt.field]; !ok {
                t.Errorf("fields = %v, want %q", ve.Fields, tt.field)
            }
        })
    }
}

func TestCreateEventWindow(t *testing.T) {
    evening := day("2025-09-20").Add(18 * time.Hour)
    tests := []struct {
        name    string
        end     time.Time
        wantErr bool
    }{
        {"same evening", evening.Add(4 * time.Hour), false},
        {"until midnight", day("2025-09-21"), false},
        {"past midnight", day("2025-09-21").Add(time.Minute), true},
        {"a week long", evening.AddDate(0, 0, 8), true},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            svc, _, _ := newTestService(t)
            _, err := svc.Create(context.Background(), Request{
                Kind:        model.KindEvent,
                Targets:     []string{"garden-hall"},
                Start:       evening,
                End:         tt.end,
                EventTypeID: "wedding",
                Contact:     guest(),
                GuestCount:  50,
            })
            var ve *ValidationError
            switch {
            case tt.wantErr && !errors.As(err, &ve):
                t.Fatalf("err = %v, want ValidationError", err)
            case tt.wantErr:
                if _, ok := ve.Fields["end"]; !ok {
                    t.Errorf("fields = %v, want end", ve.Fields)
                }
            case err != nil:
                t.Fatalf("Create: %v", err)
            }
        })
    }
}

func TestCreateUnknownRoom(t *testing.T) {
    svc, _, _ := newTestService(t)
    _, err := svc.Create(context.Background(), roomRequest("Z", "2025-06-01", "2025-06-04"))
    if !errors.Is(err, ErrNotFound) {
        t.Fatalf("err = %v, want ErrNotFound", err)
    }
}

func TestCreateEventAndMassage(t *testing.T) {
    svc, _, _ := newTestService(t)
    ev, err := svc.Create(context.Background(), Request{
        Kind:        model.KindEvent,
        Targets:     []string{"garden-hall"},
        Start:       day("2025-09-20"),
        End:         day("2025-09-21"),
        EventTypeID: "wedding",
        ServiceIDs:  []string{"catering", "music"},
        Contact:     guest(),
        GuestCount:  120,
    })
    if err != nil {
        t.Fatalf("event Create: %v", err)
    }
    if ev.Reservation.Price.SubtotalCents != 5000000+1500000+800000 {
        t.Errorf("event subtotal = %d", ev.Reservation.Price.SubtotalCents)
    }

    start := day("2025-09-20").Add(10 * time.Hour)
    m, err := svc.Create(context.Background(), Request{
        Kind:       model.KindMassage,
        Targets:    []string{"spa-1"},
        Start:      start,
        ServiceIDs: []string{"relaxing"},
        Contact:    guest(),
        GuestCount: 2,
    })
    if err != nil {
        t.Fatalf("massage Create: %v", err)
    }
    if !m.Reservation.Window.End.Equal(start.Add(svc.cfg.MassageDuration)) {
        t.Errorf("massage window = %+v", m.Reservation.Window)
    }
    if m.Reservation.Price.SubtotalCents != 180000 {
        t.Errorf("massage subtotal = %d, want 180000", m.Reservation.Price.SubtotalCents)
    }

    // Treatments must be massage services and the event type must exist.
    _, err = svc.Create(context.Background(), Request{
        Kind: model.KindMassage, Targets: []string{"spa-2"}, Start: start,
        ServiceIDs: []string{"catering"}, Contact: guest(), GuestCount: 1,
    })
    var ve *ValidationError
    if !errors.As(err, &ve) {
        t.Errorf("event service on massage: err = %v", err)
    }
    _, err = svc.Create(context.Background(), Request{
        Kind: model.KindEvent, Targets: []string{"terrace-hall"}, Start: day("2025-10-01"), End: day("2025-10-02"),
        EventTypeID: "gala", Contact: guest(), GuestCount: 10,
    })
    if !errors.Is(err, ErrNotFound) {
        t.Errorf("unknown event type: err = %v", err)
    }
}

func TestConcurrentCreateExactlyOneWins(t *testing.T) {
    svc, _, _ := newTestService(t)
    const workers = 16
    var (
        wg        sync.WaitGroup
        mu        sync.Mutex
        ok        int
        conflicts int
    )
    start := make(chan struct{})
    for i := 0; i < workers; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            <-start
            from, to := "2025-08-01", "2025-08-04"
            if i%2 == 1 {
                from, to = "2025-08-03", "2025-08-06"
            }
            _, err := svc.Create(context.Background(), roomRequest("E", from, to))
            var ac *AvailabilityConflict
            mu.Lock()
            defer mu.Unlock()
            switch {
            case err == nil:
                ok++
            case errors.As(err, &ac):
                conflicts++
            default:
                t.Errorf("unexpected error: %v", err)
            }
        }(i)
    }
    close(start)
    wg.Wait()
    if ok != 1 || conflicts != workers-1 {
        t.Fatalf("successes = %d conflicts = %d, want 1 and %d", ok, conflicts, workers-1)
    }
}

func TestPaymentConfirmedIsIdempotent(t *testing.T) {
    svc, _, n := newTestService(t)
    r := mustCreate(t, svc, roomRequest("F", "2025-06-01", "2025-06-04"))
    first, err := svc.OnPaymentConfirmed(context.Background(), r.ID, "pay_x")
    if err != nil {
        t.Fatalf("first confirm: %v", err)
    }
    if first.State != model.StateConfirmed || first.PaymentRef != "pay_x" {
        t.Fatalf("after confirm = %s / %q", first.State, first.PaymentRef)
    }
    second, err := svc.OnPaymentConfirmed(context.Background(), r.ID, "pay_y")
    if err != nil {
        t.Fatalf("second confirm: %v", err)
    }
    if second.PaymentRef != "pay_x" || !second.UpdatedAt.Equal(first.UpdatedAt) {
        t.Errorf("redelivery changed the record: %+v", second)
    }
    if n.count(EventConfirmed) != 1 {
        t.Errorf("confirmed events = %d, want 1", n.count(EventConfirmed))
    }
}

func TestPaymentConfirmedOnCancelledIsNoop(t *testing.T) {
    svc, _, _ := newTestService(t)
    r := mustCreate(t, svc, roomRequest("F", "2025-06-10", "2025-06-12"))
    if _, err := svc.Cancel(context.Background(), r.ID, Actor{}); err != nil {
        t.Fatal(err)
    }
    out, err := svc.OnPaymentConfirmed(context.Background(), r.ID, "late")
    if err != nil {
        t.Fatalf("late confirm: %v", err)
    }
    if out.State != model.StateCancelled {
        t.Errorf("state = %s, want cancelled", out.State)
    }
}

func TestPaymentConfirmedRejectsWhenTaken(t *testing.T) {
    svc, _, n := newTestService(t)
    admin := Actor{ID: "admin-1", Admin: true}
    r1 := mustCreate(t, svc, roomRequest("G", "2025-06-01", "2025-06-03"))
    if _, err := svc.Cancel(context.Background(), r1.ID, Actor{}); err != nil {
        t.Fatal(err)
    }
    r2 := mustCreate(t, svc, roomRequest("G", "2025-06-02", "2025-06-04"))
    if _, err := svc.Cancel(context.Background(), r2.ID, Actor{}); err != nil {
        t.Fatal(err)
    }
    // Reopen r1, then reopening r2 must fail the conflict check.
    if _, err := svc.UpdateStatus(context.Background(), r1.ID, model.StatePending, admin); err != nil {
        t.Fatalf("reopen r1: %v", err)
    }
    _, err := svc.UpdateStatus(context.Background(), r2.ID, model.StatePending, admin)
    var ac *AvailabilityConflict
    if !errors.As(err, &ac) {
        t.Fatalf("reopen r2: err = %v, want AvailabilityConflict", err)
    }

    // A pending reservation that lost its dates is rejected on payment.
    // Reach that state through the store directly.
    mustCreate(t, svc, roomRequest("H", "2025-06-01", "2025-06-03"))
    r4 := mustCreate(t, svc, roomRequest("H", "2025-06-03", "2025-06-05"))
    err = svc.store.Atomic(context.Background(), nil, func(tx repository.ReservationTx) error {
        r, err := tx.Get(context.Background(), r4.ID)
        if err != nil {
            return err
        }
        r.Window.Start = day("2025-06-02")
        return tx.Update(context.Background(), r)
    })
    if err != nil {
        t.Fatal(err)
    }
    out, err := svc.OnPaymentConfirmed(context.Background(), r4.ID, "pay_late")
    if err != nil {
        t.Fatalf("confirm: %v", err)
    }
    if out.State != model.StateRejected || !out.NeedsReconciliation {
        t.Errorf("r4 = %s reconcile=%v, want rejected and flagged", out.State, out.NeedsReconciliation)
    }
    if n.count(EventRejected) != 1 {
        t.Errorf("rejected events = %d, want 1", n.count(EventRejected))
    }
}

func TestPaymentFailedFlagsReconciliation(t *testing.T) {
    svc, _, n := newTestService(t)
    r := mustCreate(t, svc, roomRequest("I", "2025-06-01", "2025-06-04"))
    out, err := svc.OnPaymentFailed(context.Background(), r.ID, "card declined")
    if err != nil {
        t.Fatalf("OnPaymentFailed: %v", err)
    }
    if out.State != model.StatePending || !out.NeedsReconciliation {
        t.Errorf("after failure = %s reconcile=%v", out.State, out.NeedsReconciliation)
    }
    if !strings.Contains(out.Notes, "card declined") {
        t.Errorf("notes = %q", out.Notes)
    }
    if _, err := svc.OnPaymentFailed(context.Background(), r.ID, "card declined"); err != nil {
        t.Fatal(err)
    }
    if n.count(EventPaymentFailed) != 1 {
        t.Errorf("payment_failed events = %d, want 1", n.count(EventPaymentFailed))
    }
}

func TestPaymentInitiationFailureKeepsReservation(t *testing.T) {
    store := repository.NewMemoryStore()
    svc := NewService(store, repository.NewSeededCatalog(), failingGateway{}, nil, testConfig(), discardLogger())
    c, err := svc.Create(context.Background(), roomRequest("J", "2025-06-01", "2025-06-04"))
    if err != nil {
        t.Fatalf("Create: %v", err)
    }
    var ce *CollaboratorError
    if !errors.As(c.PaymentErr, &ce) || ce.Collaborator != "payment" {
        t.Errorf("PaymentErr = %v", c.PaymentErr)
    }
    stored, err := store.Get(context.Background(), c.Reservation.ID)
    if err != nil {
        t.Fatalf("reservation was not kept: %v", err)
    }
    if stored.State != model.StatePending || !stored.NeedsReconciliation {
        t.Errorf("stored = %s reconcile=%v", stored.State, stored.NeedsReconciliation)
    }
}

func TestNotifierFailureDoesNotRollBack(t *testing.T) {
    svc, store, n := newTestService(t)
    n.err = errors.New("broker down")
    r := mustCreate(t, svc, roomRequest("K", "2025-06-01", "2025-06-02"))
    if _, err := store.Get(context.Background(), r.ID); err != nil {
        t.Fatalf("reservation missing after notifier failure: %v", err)
    }
}

func TestCancelRules(t *testing.T) {
    svc, _, _ := newTestService(t)
    admin := Actor{ID: "admin-1", Admin: true}
    r := mustCreate(t, svc, roomRequest("L", "2099-06-01", "2099-06-04"))
    if _, err := svc.OnPaymentConfirmed(context.Background(), r.ID, "pay"); err != nil {
        t.Fatal(err)
    }
    _, err := svc.Cancel(context.Background(), r.ID, Actor{})
    var te *TransitionError
    if !errors.As(err, &te) {
        t.Fatalf("guest cancelling confirmed: err = %v, want TransitionError", err)
    }
    if err := svc.Claim(context.Background(), r.ID, admin.ID); err != nil {
        t.Fatal(err)
    }
    out, err := svc.Cancel(context.Background(), r.ID, admin)
    if err != nil {
        t.Fatalf("admin cancel: %v", err)
    }
    if out.AssignedAdminID != "" {
        t.Errorf("claim not cleared: %q", out.AssignedAdminID)
    }
    if out.RefundCents != out.Price.DepositCents {
        t.Errorf("refund = %d, want full deposit %d", out.RefundCents, out.Price.DepositCents)
    }
}

func TestCancelByGuestChecksEmail(t *testing.T) {
    svc, _, _ := newTestService(t)
    r := mustCreate(t, svc, roomRequest("M", "2025-06-01", "2025-06-04"))
    if _, err := svc.CancelByGuest(context.Background(), r.ConfirmationNumber, "other@example.com"); !errors.Is(err, ErrForbidden) {
        t.Fatalf("wrong email: err = %v", err)
    }
    v, err := svc.CancelByGuest(context.Background(), strings.ToLower(r.ConfirmationNumber), " ANA@example.com ")
    if err != nil {
        t.Fatalf("CancelByGuest: %v", err)
    }
    if v.State != model.StateCancelled {
        t.Errorf("state = %s", v.State)
    }
}

func TestUpdateStatusTransitions(t *testing.T) {
    svc, _, _ := newTestService(t)
    admin := Actor{ID: "admin-1", Admin: true}
    r := mustCreate(t, svc, roomRequest("N", "2025-06-01", "2025-06-04"))

    if _, err := svc.UpdateStatus(context.Background(), r.ID, model.StateConfirmed, Actor{}); !errors.Is(err, ErrForbidden) {
        t.Errorf("guest override: err = %v", err)
    }
    if _, err := svc.UpdateStatus(context.Background(), r.ID, "archived", admin); err == nil {
        t.Error("unknown state accepted")
    }
    out, err := svc.UpdateStatus(context.Background(), r.ID, model.StateConfirmed, admin)
    if err != nil || out.State != model.StateConfirmed {
        t.Fatalf("confirm: %v %s", err, out.State)
    }
    if _, err := svc.UpdateStatus(context.Background(), r.ID, model.StateRejected, admin); err == nil {
        t.Error("confirmed -> rejected accepted")
    }
    out, err = svc.UpdateStatus(context.Background(), r.ID, model.StateCancelled, admin)
    if err != nil || out.State != model.StateCancelled {
        t.Fatalf("cancel: %v %s", err, out.State)
    }
    if _, err := svc.UpdateStatus(context.Background(), r.ID, model.StateConfirmed, admin); err == nil {
        t.Error("cancelled -> confirmed accepted")
    }
    // Someone else takes the dates while cancelled; reopening must fail.
    mustCreate(t, svc, roomRequest("N", "2025-06-03", "2025-06-05"))
    _, err = svc.UpdateStatus(context.Background(), r.ID, model.StatePending, admin)
    var ac *AvailabilityConflict
    if !errors.As(err, &ac) {
        t.Fatalf("reopen over a new booking: err = %v, want AvailabilityConflict", err)
    }
}

func TestReopenClearsRefund(t *testing.T) {
    admin := Actor{ID: "admin-1", Admin: true}
    tests := []struct {
        name string
        to   model.State
    }{
        {"back to pending", model.StatePending},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            svc, _, _ := newTestService(t)
            r := mustCreate(t, svc, roomRequest("O", "2099-06-01", "2099-06-04"))
            if _, err := svc.UpdateStatus(context.Background(), r.ID, model.StateConfirmed, admin); err != nil {
                t.Fatal(err)
            }
            cancelled, err := svc.UpdateStatus(context.Background(), r.ID, model.StateCancelled, admin)
            if err != nil {
                t.Fatal(err)
            }
            if cancelled.RefundCents == 0 {
                t.Fatalf("cancel recorded no refund")
            }
            out, err := svc.UpdateStatus(context.Background(), r.ID, tt.to, admin)
            if err != nil {
                t.Fatalf("reopen: %v", err)
            }
            if out.RefundCents != 0 {
                t.Errorf("refund after reopen = %d, want 0", out.RefundCents)
            }
            got, err := svc.Get(context.Background(), r.ID)
            if err != nil {
                t.Fatal(err)
            }
            if got.RefundCents != 0 {
                t.Errorf("stored refund = %d, want 0", got.RefundCents)
            }
        })
    }
}

func TestLookupAndDelete(t *testing.T) {
    svc, _, _ := newTestService(t)
    admin := Actor{ID: "admin-1", Admin: true}
    r := mustCreate(t, svc, roomRequest("O", "2025-06-01", "2025-06-04"))

    byCode, err := svc.Lookup(context.Background(), r.ConfirmationNumber)
    if err != nil || byCode.ConfirmationNumber != r.ConfirmationNumber {
        t.Fatalf("lookup by code: %v %+v", err, byCode)
    }
    byID, err := svc.Lookup(context.Background(), r.ID)
    if err != nil || byID.ConfirmationNumber != r.ConfirmationNumber {
        t.Fatalf("lookup by id: %v %+v", err, byID)
    }
    if _, err := svc.Lookup(context.Background(), "RSV-NOPE0000"); !errors.Is(err, ErrNotFound) {
        t.Errorf("unknown code: err = %v", err)
    }
    if err := svc.Delete(context.Background(), r.ID, Actor{}); !errors.Is(err, ErrForbidden) {
        t.Errorf("guest delete: err = %v", err)
    }
    if err := svc.Delete(context.Background(), r.ID, admin); err != nil {
        t.Fatalf("Delete: %v", err)
    }
    if _, err := svc.Get(context.Background(), r.ID); !errors.Is(err, ErrNotFound) {
        t.Errorf("after delete: err = %v", err)
    }
}

func TestQuoteDoesNotPersist(t *testing.T) {
    svc, store, _ := newTestService(t)
    p, err := svc.Quote(context.Background(), roomRequest("A", "2025-06-01", "2025-06-04"))
    if err != nil {
        t.Fatalf("Quote: %v", err)
    }
    if p.TotalCents != 871200 {
        t.Errorf("total = %d", p.TotalCents)
    }
    list, _ := store.List(context.Background(), repository.Filter{})
    if len(list) != 0 {
        t.Errorf("quote persisted %d reservations", len(list))
    }
}
