package queue

import (
    "context"
    "encoding/json"
    "errors"
    "io"
    "log/slog"
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"

    "github.com/iliyamo/venue-reservation/internal/model"
)

type memorySink struct {
    events map[string]ReservationEvent
    err    error
}

func (m *memorySink) Write(_ context.Context, ev ReservationEvent) error {
    if m.err != nil {
        return m.err
    }
    m.events[ev.EventID] = ev
    return nil
}

func sampleReservation() model.Reservation {
    start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
    return model.Reservation{
        ID:                 "7c1f",
        ConfirmationNumber: "RSV-ABCD1234",
        Kind:               model.KindRoom,
        Targets:            []string{"A"},
        Window:             model.DateRange{Start: start, End: start.AddDate(0, 0, 3)},
        Contact:            model.Contact{Name: "Ana", Surname: "Ruiz", Email: "ana@example.com", Phone: "600111222"},
        GuestCount:         2,
        Price:              model.Price{SubtotalCents: 720000, TaxCents: 151200, TotalCents: 871200, DepositCents: 261360},
        State:              model.StatePending,
    }
}

func TestNewReservationEvent(t *testing.T) {
    at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
    ev := NewReservationEvent("reservation.created", sampleReservation(), at)
    if ev.EventID == "" {
        t.Fatal("missing event id")
    }
    if ev.StartsAt != "2025-06-01T00:00:00Z" || ev.EndsAt != "2025-06-04T00:00:00Z" {
        t.Errorf("window = %s..%s", ev.StartsAt, ev.EndsAt)
    }
    if ev.GuestName != "Ana Ruiz" || ev.TotalAmountCents != 871200 || ev.OccurredAt != "2025-05-01T12:00:00Z" {
        t.Errorf("event = %+v", ev)
    }
    if NewReservationEvent("x", sampleReservation(), at).EventID == ev.EventID {
        t.Error("event ids must be unique")
    }
}

func TestConsumerHandle(t *testing.T) {
    sink := &memorySink{events: map[string]ReservationEvent{}}
    c := NewConsumer("", "", slog.New(slog.NewTextHandler(io.Discard, nil)), sink)
    body, _ := json.Marshal(NewReservationEvent("reservation.confirmed", sampleReservation(), time.Now()))

    if err := c.Handle(context.Background(), body); err != nil {
        t.Fatalf("Handle: %v", err)
    }
    // Redelivery leaves one record.
    if err := c.Handle(context.Background(), body); err != nil {
        t.Fatalf("Handle redelivery: %v", err)
    }
    if len(sink.events) != 1 {
        t.Errorf("sink has %d events, want 1", len(sink.events))
    }
    if err := c.Handle(context.Background(), []byte("{not json")); err == nil {
        t.Error("malformed body accepted")
    }
    if err := c.Handle(context.Background(), []byte(`{"event":"x"}`)); err == nil {
        t.Error("event without id accepted")
    }
    sink.err = errors.New("disk full")
    if err := c.Handle(context.Background(), body); err == nil {
        t.Error("sink failure not reported")
    }
}

func TestFileSinkAppendsLine(t *testing.T) {
    dir := t.TempDir()
    s := NewFileSink(filepath.Join(dir, "logs"))
    ev := NewReservationEvent("reservation.created", sampleReservation(), time.Now())
    if err := s.Write(context.Background(), ev); err != nil {
        t.Fatalf("Write: %v", err)
    }
    if err := s.Write(context.Background(), ev); err != nil {
        t.Fatalf("Write: %v", err)
    }
    raw, err := os.ReadFile(filepath.Join(dir, "logs", "reservations.log"))
    if err != nil {
        t.Fatal(err)
    }
    lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
    if len(lines) != 2 {
        t.Fatalf("lines = %d, want 2", len(lines))
    }
    for _, want := range []string{"reservation.created", "confirmation=RSV-ABCD1234", "targets=[A]", "total=871200 cents"} {
        if !strings.Contains(lines[0], want) {
            t.Errorf("line %q missing %q", lines[0], want)
        }
    }
}
