package booking

import (
    "context"
    "errors"
    "io"
    "log/slog"
    "sync"
    "testing"
    "time"

    "github.com/iliyamo/venue-reservation/internal/model"
    "github.com/iliyamo/venue-reservation/internal/payment"
    "github.com/iliyamo/venue-reservation/internal/repository"
)

type recordingNotifier struct {
    mu     sync.Mutex
    events []string
    err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event string, _ model.Reservation) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    n.events = append(n.events, event)
    return n.err
}

func (n *recordingNotifier) count(event string) int {
    n.mu.Lock()
    defer n.mu.Unlock()
    c := 0
    for _, e := range n.events {
        if e == event {
            c++
        }
    }
    return c
}

type failingGateway struct{}

func (failingGateway) InitiatePayment(context.Context, int64, string) (payment.Handle, error) {
    return payment.Handle{}, errors.New("gateway down")
}

func testConfig() Config {
    policy, _ := ParseCancellationTiers("30:100,7:50,0:0")
    return Config{
        Pricing:         PricingConfig{TaxRateBP: 2100, DepositRequired: true, DepositPercentBP: 3000},
        PaymentRequired: true,
        MassageDuration: time.Hour,
        Cancellation:    policy,
    }
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestService(t *testing.T) (*Service, *repository.MemoryStore, *recordingNotifier) {
    t.Helper()
    store := repository.NewMemoryStore()
    n := &recordingNotifier{}
    svc := NewService(store, repository.NewSeededCatalog(), payment.NewDeferred(), n, testConfig(), discardLogger())
    return svc, store, n
}

func day(s string) time.Time {
    t, err := time.Parse("2006-01-02", s)
    if err != nil {
        panic(err)
    }
    return t
}

func guest() model.Contact {
    return model.Contact{Name: "Ana", Surname: "Ruiz", Email: "ana@example.com", Phone: "+34600111222"}
}

func roomRequest(target, from, to string) Request {
    return Request{
        Kind:       model.KindRoom,
        Targets:    []string{target},
        Start:      day(from),
        End:        day(to),
        Contact:    guest(),
        GuestCount: 1,
    }
}

func mustCreate(t *testing.T, svc *Service, req Request) model.Reservation {
    t.Helper()
    c, err := svc.Create(context.Background(), req)
    if err != nil {
        t.Fatalf("Create(%v %s..%s): %v", req.Targets, req.Start.Format("2006-01-02"), req.End.Format("2006-01-02"), err)
    }
    return c.Reservation
}
