package booking

import (
    "fmt"
    "sort"
    "strconv"
    "strings"
    "time"

    "github.com/iliyamo/venue-reservation/internal/model"
)

// Tier grants RefundPercent of the collected amount when a reservation
// is cancelled at least MinDays before it starts.
type Tier struct {
    MinDays       int
    RefundPercent int
}

// CancellationPolicy computes the informational refund recorded when a
// confirmed reservation is cancelled.  It never blocks a cancellation.
type CancellationPolicy struct {
    tiers []Tier // sorted by MinDays descending
}

// ParseCancellationTiers parses "days:percent" pairs separated by commas,
// e.g. "30:100,7:50,0:0".  An empty string yields a policy that never
// refunds.
func ParseCancellationTiers(s string) (CancellationPolicy, error) {
    var tiers []Tier
    for _, part := range strings.Split(s, ",") {
        part = strings.TrimSpace(part)
        if part == "" {
            continue
        }
        days, pct, ok := strings.Cut(part, ":")
        if !ok {
            return CancellationPolicy{}, fmt.Errorf("cancellation tier %q: want days:percent", part)
        }
        d, err := strconv.Atoi(strings.TrimSpace(days))
        if err != nil || d < 0 {
            return CancellationPolicy{}, fmt.Errorf("cancellation tier %q: bad days", part)
        }
        p, err := strconv.Atoi(strings.TrimSpace(pct))
        if err != nil || p < 0 || p > 100 {
            return CancellationPolicy{}, fmt.Errorf("cancellation tier %q: bad percent", part)
        }
        tiers = append(tiers, Tier{MinDays: d, RefundPercent: p})
    }
    sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinDays > tiers[j].MinDays })
    return CancellationPolicy{tiers: tiers}, nil
}

// RefundPercent returns the percentage refunded when cancelling daysBefore
// whole days ahead of the start.
func (p CancellationPolicy) RefundPercent(daysBefore int) int {
    for _, t := range p.tiers {
        if daysBefore >= t.MinDays {
            return t.RefundPercent
        }
    }
    return 0
}

// Refund returns the amount to give back for a reservation cancelled at
// now.  Only confirmed reservations have collected money.
func (p CancellationPolicy) Refund(r model.Reservation, now time.Time) int64 {
    if r.State != model.StateConfirmed {
        return 0
    }
    until := r.Window.Start.Sub(now)
    if until < 0 {
        return 0
    }
    days := int(until / (24 * time.Hour))
    pct := int64(p.RefundPercent(days))
    return (AmountDue(r.Price)*pct + 50) / 100
}
