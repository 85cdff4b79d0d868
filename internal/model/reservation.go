package model

import (
    "math"
    "time"
)

// Kind discriminates the three bookable variants.  Each kind has its own
// window, validation and pricing rules which are selected once when a
// request enters the engine.
type Kind string

const (
    KindRoom    Kind = "room"
    KindEvent   Kind = "event"
    KindMassage Kind = "massage"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
    switch k {
    case KindRoom, KindEvent, KindMassage:
        return true
    }
    return false
}

// State is the lifecycle state of a reservation.
type State string

const (
    StatePending   State = "pending"
    StateConfirmed State = "confirmed"
    StateCancelled State = "cancelled"
    StateRejected  State = "rejected"
)

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
    switch s {
    case StatePending, StateConfirmed, StateCancelled, StateRejected:
        return true
    }
    return false
}

// Active reports whether a reservation in this state occupies its targets.
// Only active reservations take part in conflict checks.
func (s State) Active() bool { return s == StatePending || s == StateConfirmed }

// DateRange is a half-open interval [Start, End).  Two ranges that merely
// touch (one ends exactly when the other starts) do not overlap.
type DateRange struct {
    Start time.Time `json:"start"`
    End   time.Time `json:"end"`
}

// Valid reports whether the range has a positive length.
func (r DateRange) Valid() bool { return r.End.After(r.Start) }

// Overlaps is the standard half-open overlap test.
func (r DateRange) Overlaps(o DateRange) bool {
    return r.Start.Before(o.End) && r.End.After(o.Start)
}

// Nights returns ceil(duration / 24h) with a minimum of one.
func (r DateRange) Nights() int {
    n := int(math.Ceil(r.End.Sub(r.Start).Hours() / 24))
    if n < 1 {
        n = 1
    }
    return n
}

// Contact holds the guest's contact details.  All fields are required.
type Contact struct {
    Name    string `json:"name" validate:"required,max=128"`
    Surname string `json:"surname" validate:"required,max=128"`
    Email   string `json:"email" validate:"required,email,max=255"`
    Phone   string `json:"phone" validate:"required,min=6,max=32"`
}

// Price is the computed price of a reservation in minor currency units
// (cents).  TotalCents is always SubtotalCents + TaxCents.
type Price struct {
    SubtotalCents int64 `json:"subtotal_cents"`
    DepositCents  int64 `json:"deposit_cents"`
    TaxCents      int64 `json:"tax_cents"`
    TotalCents    int64 `json:"total_cents"`
}

// Reservation is one booking of one or more targets for a date range.
//
// Fields:
//  ID                  – generated identifier (UUID).
//  ConfirmationNumber  – public identifier assigned once at creation.
//  Kind                – room, event or massage.
//  Targets             – room/space identifiers occupied by the booking.
//  EventTypeID         – event type for event bookings (empty otherwise).
//  ServiceIDs          – selected extras or treatments.
//  Window              – occupied interval, half-open.
//  Contact             – guest contact details.
//  GuestCount          – number of guests, 1..capacity.
//  Price               – server-computed price.
//  State               – lifecycle state.
//  AssignedAdminID     – admin currently managing the reservation, empty when unclaimed.
//  PaymentRef          – reference returned by the payment collaborator.
//  NeedsReconciliation – set when a payment outcome could not be applied cleanly.
//  RefundCents         – informational refund computed at cancellation.
//  Notes               – free-form admin notes.
type Reservation struct {
    ID                  string    // reservations.id
    ConfirmationNumber  string    // reservations.confirmation_number
    Kind                Kind      // reservations.kind
    Targets             []string  // reservation_targets.target_id
    EventTypeID         string    // reservations.event_type_id (nullable)
    ServiceIDs          []string  // reservation_services.service_id
    Window              DateRange // reservations.starts_at / ends_at
    Contact             Contact   // reservations.contact_*
    GuestCount          int       // reservations.guest_count
    Price               Price     // reservations.*_cents
    State               State     // reservations.state
    AssignedAdminID     string    // reservations.assigned_admin_id (nullable)
    PaymentRef          string    // reservations.payment_ref (nullable)
    NeedsReconciliation bool      // reservations.needs_reconciliation
    RefundCents         int64     // reservations.refund_cents
    Notes               string    // reservations.notes
    CreatedAt           time.Time // reservations.created_at
    UpdatedAt           time.Time // reservations.updated_at
}

// Clone returns a deep copy so that stores never share slices with callers.
func (r Reservation) Clone() Reservation {
    out := r
    out.Targets = append([]string(nil), r.Targets...)
    out.ServiceIDs = append([]string(nil), r.ServiceIDs...)
    return out
}

// PublicView is the customer-facing projection of a reservation.  It
// carries contact and state information only; admin fields such as the
// assignment and reconciliation flags are never exposed.
type PublicView struct {
    ConfirmationNumber string   `json:"confirmation_number"`
    Kind               Kind     `json:"kind"`
    Targets            []string `json:"targets"`
    Start              string   `json:"start"`
    End                string   `json:"end"`
    Contact            Contact  `json:"contact"`
    GuestCount         int      `json:"guest_count"`
    State              State    `json:"state"`
    Price              Price    `json:"price"`
}

// Public builds the customer-facing projection of r.
func (r Reservation) Public() PublicView {
    return PublicView{
        ConfirmationNumber: r.ConfirmationNumber,
        Kind:               r.Kind,
        Targets:            append([]string(nil), r.Targets...),
        Start:              r.Window.Start.UTC().Format(time.RFC3339),
        End:                r.Window.End.UTC().Format(time.RFC3339),
        Contact:            r.Contact,
        GuestCount:         r.GuestCount,
        State:              r.State,
        Price:              r.Price,
    }
}
