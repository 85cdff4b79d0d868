package model

import (
    "testing"
    "time"
)

func TestDateRangeOverlaps(t *testing.T) {
    d := func(s string) time.Time {
        t, _ := time.Parse("2006-01-02", s)
        return t
    }
    base := DateRange{Start: d("2025-06-01"), End: d("2025-06-03")}
    tests := []struct {
        name string
        o    DateRange
        want bool
    }{
        {"same", base, true},
        {"tail overlap", DateRange{d("2025-06-02"), d("2025-06-04")}, true},
        {"head overlap", DateRange{d("2025-05-30"), d("2025-06-02")}, true},
        {"inside", DateRange{d("2025-06-01"), d("2025-06-02")}, true},
        {"back to back after", DateRange{d("2025-06-03"), d("2025-06-05")}, false},
        {"back to back before", DateRange{d("2025-05-30"), d("2025-06-01")}, false},
        {"disjoint", DateRange{d("2025-07-01"), d("2025-07-02")}, false},
    }
    for _, tt := range tests {
        if got := base.Overlaps(tt.o); got != tt.want {
            t.Errorf("%s: Overlaps = %v, want %v", tt.name, got, tt.want)
        }
        if got := tt.o.Overlaps(base); got != tt.want {
            t.Errorf("%s: Overlaps is not symmetric", tt.name)
        }
    }
    if base.Nights() != 2 {
        t.Errorf("Nights = %d, want 2", base.Nights())
    }
    if (DateRange{Start: d("2025-06-01"), End: d("2025-06-01")}).Valid() {
        t.Error("empty range reported valid")
    }
}

func TestPublicViewHidesAdminFields(t *testing.T) {
    r := Reservation{
        ID:                  "id-1",
        ConfirmationNumber:  "RSV-ABCD1234",
        State:               StateConfirmed,
        AssignedAdminID:     "admin-x",
        NeedsReconciliation: true,
        Targets:             []string{"A"},
    }
    v := r.Public()
    if v.ConfirmationNumber != r.ConfirmationNumber || v.State != StateConfirmed {
        t.Errorf("view = %+v", v)
    }
    v.Targets[0] = "Z"
    if r.Targets[0] != "A" {
        t.Error("view shares the targets slice")
    }
}

func TestRoomAccepts(t *testing.T) {
    if !(Room{Category: CategoryDoubleMatrimonial}).Accepts(KindRoom) {
        t.Error("double room must accept room bookings")
    }
    if (Room{Category: CategoryEventHall}).Accepts(KindMassage) {
        t.Error("event hall accepted a massage")
    }
    if !(Room{Category: CategorySpaCabin}).Accepts(KindMassage) {
        t.Error("spa cabin must accept massages")
    }
}
