package booking

import "github.com/iliyamo/venue-reservation/internal/model"

// PricingConfig holds the rates applied on top of a subtotal.  Rates are
// basis points (1/100 of a percent).
type PricingConfig struct {
    TaxRateBP        int64
    DepositRequired  bool
    DepositPercentBP int64
}

// PriceInput is everything a price depends on.  The same input always
// yields the same Price.
type PriceInput struct {
    Kind       model.Kind
    Rooms      []model.Room
    Window     model.DateRange
    EventType  *model.EventType
    Services   []model.Service
    GuestCount int
}

// subtotalFunc computes the pre-tax amount for one kind.
type subtotalFunc func(in PriceInput) int64

var subtotals = map[model.Kind]subtotalFunc{
    // rate × nights for every room.
    model.KindRoom: func(in PriceInput) int64 {
        nights := int64(in.Window.Nights())
        var sum int64
        for _, r := range in.Rooms {
            sum += r.RateCents * nights
        }
        return sum
    },
    // Halls are priced through the event type.
    model.KindEvent: func(in PriceInput) int64 {
        var sum int64
        if in.EventType != nil {
            sum = in.EventType.BasePriceCents
        }
        for _, s := range in.Services {
            sum += s.PriceCents
        }
        return sum
    },
    model.KindMassage: func(in PriceInput) int64 {
        var sum int64
        for _, s := range in.Services {
            sum += s.PriceCents
        }
        guests := int64(in.GuestCount)
        if guests < 1 {
            guests = 1
        }
        return sum * guests
    },
}

// applyBP multiplies amount by a basis-point rate, rounding half up.
func applyBP(amount, bp int64) int64 {
    if amount <= 0 || bp <= 0 {
        return 0
    }
    return (amount*bp + 5000) / 10000
}

// Quote computes the price of a booking.  Tax is levied on the subtotal
// and the deposit is a share of the total, so the deposit never exceeds
// the total.
func Quote(in PriceInput, cfg PricingConfig) model.Price {
    fn, ok := subtotals[in.Kind]
    if !ok {
        return model.Price{}
    }
    sub := fn(in)
    tax := applyBP(sub, cfg.TaxRateBP)
    total := sub + tax
    var deposit int64
    if cfg.DepositRequired {
        deposit = applyBP(total, cfg.DepositPercentBP)
        if deposit > total {
            deposit = total
        }
    }
    return model.Price{
        SubtotalCents: sub,
        DepositCents:  deposit,
        TaxCents:      tax,
        TotalCents:    total,
    }
}

// AmountDue is what the payment collaborator is asked to collect up
// front: the deposit when deposits apply, otherwise the total.
func AmountDue(p model.Price) int64 {
    if p.DepositCents > 0 {
        return p.DepositCents
    }
    return p.TotalCents
}
