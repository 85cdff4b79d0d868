// Package payment defines the contract with the external payment
// collaborator.  The engine only asks for a payment to be started; the
// outcome arrives later through the payment callback endpoint.
package payment

import (
    "context"
    "errors"
    "time"

    "github.com/google/uuid"
)

// Handle identifies a payment the collaborator has started.
type Handle struct {
    Reference     string    `json:"reference"`
    AmountCents   int64     `json:"amount_cents"`
    ReservationID string    `json:"reservation_id"`
    CreatedAt     time.Time `json:"created_at"`
}

// Gateway starts payments.  Implementations must not block on the
// customer completing the payment.
type Gateway interface {
    InitiatePayment(ctx context.Context, amountCents int64, reservationID string) (Handle, error)
}

// ErrInvalidAmount is returned for non-positive amounts.
var ErrInvalidAmount = errors.New("payment amount must be positive")

// Deferred issues a payment reference immediately and leaves collection
// to the provider's checkout.  The provider reports the result to the
// callback endpoint with the same reference.
type Deferred struct {
    now func() time.Time
}

// NewDeferred returns a Deferred gateway.
func NewDeferred() *Deferred {
    return &Deferred{now: func() time.Time { return time.Now().UTC() }}
}

func (d *Deferred) InitiatePayment(ctx context.Context, amountCents int64, reservationID string) (Handle, error) {
    if err := ctx.Err(); err != nil {
        return Handle{}, err
    }
    if amountCents <= 0 {
        return Handle{}, ErrInvalidAmount
    }
    return Handle{
        Reference:     "pay_" + uuid.NewString(),
        AmountCents:   amountCents,
        ReservationID: reservationID,
        CreatedAt:     d.now(),
    }, nil
}
