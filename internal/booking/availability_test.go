package booking

import (
    "context"
    "errors"
    "testing"

    "github.com/iliyamo/venue-reservation/internal/model"
)

func TestCheckAvailability(t *testing.T) {
    svc, _, _ := newTestService(t)
    r1 := mustCreate(t, svc, roomRequest("B", "2025-06-01", "2025-06-03"))
    rng := func(from, to string) model.DateRange { return model.DateRange{Start: day(from), End: day(to)} }

    tests := []struct {
        name      string
        targets   []string
        window    model.DateRange
        exclude   string
        available bool
    }{
        {"overlap", []string{"B"}, rng("2025-06-02", "2025-06-04"), "", false},
        {"contained", []string{"B"}, rng("2025-06-01", "2025-06-02"), "", false},
        {"enclosing", []string{"B"}, rng("2025-05-01", "2025-07-01"), "", false},
        {"starts at end", []string{"B"}, rng("2025-06-03", "2025-06-05"), "", true},
        {"ends at start", []string{"B"}, rng("2025-05-28", "2025-06-01"), "", true},
        {"other room", []string{"C"}, rng("2025-06-01", "2025-06-03"), "", true},
        {"one of two busy", []string{"C", "B"}, rng("2025-06-01", "2025-06-03"), "", false},
        {"excluding itself", []string{"B"}, rng("2025-06-01", "2025-06-03"), r1.ID, true},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            got, err := svc.CheckAvailability(context.Background(), tt.targets, tt.window, tt.exclude)
            if err != nil {
                t.Fatalf("CheckAvailability: %v", err)
            }
            if got.Available != tt.available {
                t.Errorf("available = %v, want %v (conflicts %+v)", got.Available, tt.available, got.Conflicts)
            }
            if !got.Available && (len(got.Conflicts) == 0 || got.Conflicts[0].ReservationID != r1.ID) {
                t.Errorf("conflicts = %+v, want R1", got.Conflicts)
            }
        })
    }
}

func TestCheckAvailabilityIgnoresInactive(t *testing.T) {
    svc, _, _ := newTestService(t)
    r := mustCreate(t, svc, roomRequest("F", "2025-06-01", "2025-06-03"))
    if _, err := svc.Cancel(context.Background(), r.ID, Actor{}); err != nil {
        t.Fatal(err)
    }
    got, err := svc.CheckAvailability(context.Background(), []string{"F"}, r.Window, "")
    if err != nil || !got.Available {
        t.Fatalf("cancelled reservation still blocks: %+v %v", got, err)
    }
}

func TestCheckAvailabilityRejectsBadInput(t *testing.T) {
    svc, _, _ := newTestService(t)
    var ve *ValidationError
    _, err := svc.CheckAvailability(context.Background(), []string{"A"}, model.DateRange{Start: day("2025-06-03"), End: day("2025-06-01")}, "")
    if !errors.As(err, &ve) {
        t.Errorf("inverted range: err = %v", err)
    }
    _, err = svc.CheckAvailability(context.Background(), []string{"A"}, model.DateRange{Start: day("2025-06-03"), End: day("2025-06-03")}, "")
    if !errors.As(err, &ve) {
        t.Errorf("empty range: err = %v", err)
    }
    _, err = svc.CheckAvailability(context.Background(), nil, model.DateRange{Start: day("2025-06-01"), End: day("2025-06-03")}, "")
    if !errors.As(err, &ve) {
        t.Errorf("no targets: err = %v", err)
    }
    _, err = svc.CheckAvailability(context.Background(), []string{"ZZ"}, model.DateRange{Start: day("2025-06-01"), End: day("2025-06-03")}, "")
    if !errors.Is(err, ErrNotFound) {
        t.Errorf("unknown room: err = %v", err)
    }
}
