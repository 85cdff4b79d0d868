package report

import (
    "bytes"
    "testing"
    "time"

    "github.com/xuri/excelize/v2"

    "github.com/iliyamo/venue-reservation/internal/model"
)

func TestWriteReservations(t *testing.T) {
    start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
    rows := []model.Reservation{
        {
            ConfirmationNumber: "RSV-AAAA0001",
            Kind:               model.KindRoom,
            Targets:            []string{"A"},
            Window:             model.DateRange{Start: start, End: start.AddDate(0, 0, 3)},
            Contact:            model.Contact{Name: "Ana", Surname: "Ruiz", Email: "ana@example.com", Phone: "600111222"},
            GuestCount:         2,
            State:              model.StateConfirmed,
            AssignedAdminID:    "admin-x",
            Price:              model.Price{SubtotalCents: 720000, TaxCents: 151200, TotalCents: 871200, DepositCents: 261360},
        },
        {
            ConfirmationNumber: "RSV-AAAA0002",
            Kind:               model.KindRoom,
            Targets:            []string{"B", "C"},
            Window:             model.DateRange{Start: start, End: start.AddDate(0, 0, 1)},
            State:              model.StateCancelled,
            Price:              model.Price{TotalCents: 100},
        },
    }
    raw, err := WriteReservations(rows, start, nil)
    if err != nil {
        t.Fatalf("WriteReservations: %v", err)
    }
    f, err := excelize.OpenReader(bytes.NewReader(raw))
    if err != nil {
        t.Fatalf("reopen: %v", err)
    }
    defer f.Close()
    got, err := f.GetRows(SheetName)
    if err != nil {
        t.Fatal(err)
    }
    if len(got) < 3 {
        t.Fatalf("rows = %d", len(got))
    }
    if got[0][1] != "Confirmation" || got[1][1] != "RSV-AAAA0001" || got[2][3] != "B, C" {
        t.Errorf("unexpected cells: %v / %v / %v", got[0], got[1], got[2])
    }
    if got[1][11] != "admin-x" || got[2][11] != "-" {
        t.Errorf("assigned column = %q / %q", got[1][11], got[2][11])
    }
    if got[1][4] != "2025-06-01 00:00" {
        t.Errorf("start = %q", got[1][4])
    }
    total, _ := f.GetCellValue(SheetName, "O5")
    if total != "8712" {
        t.Errorf("active total = %q, want 8712 (cancelled rows excluded)", total)
    }
}

func TestFilename(t *testing.T) {
    got := Filename(time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC))
    if got != "reservations_20250601_093000.xlsx" {
        t.Errorf("Filename = %q", got)
    }
}

func TestWriteReservationsLocation(t *testing.T) {
    loc := time.FixedZone("venue", 2*60*60)
    start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
    rows := []model.Reservation{{
        ConfirmationNumber: "RSV-AAAA0003",
        Kind:               model.KindMassage,
        Targets:            []string{"spa-1"},
        Window:             model.DateRange{Start: start, End: start.Add(time.Hour)},
        State:              model.StatePending,
    }}
    raw, err := WriteReservations(rows, start, loc)
    if err != nil {
        t.Fatal(err)
    }
    f, err := excelize.OpenReader(bytes.NewReader(raw))
    if err != nil {
        t.Fatal(err)
    }
    defer f.Close()
    if v, _ := f.GetCellValue(SheetName, "E2"); v != "2025-06-01 12:00" {
        t.Errorf("start in venue time = %q", v)
    }
}
