// Package queue defines the reservation event payload exchanged over the
// message broker, the publisher that emits it and the background consumer
// that records it.
package queue

import (
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/venue-reservation/internal/model"
)

// ReservationEvent is published after every committed reservation change.
// It contains enough information for downstream consumers to email the
// guest, alert staff or keep an audit trail without querying the primary
// database.  EventID is unique per publication so consumers can drop
// redeliveries.
type ReservationEvent struct {
    EventID            string   `json:"event_id" bson:"_id"`
    Event              string   `json:"event" bson:"event"`
    ReservationID      string   `json:"reservation_id" bson:"reservation_id"`
    ConfirmationNumber string   `json:"confirmation_number" bson:"confirmation_number"`
    Kind               string   `json:"kind" bson:"kind"`
    Targets            []string `json:"targets" bson:"targets"`
    StartsAt           string   `json:"starts_at" bson:"starts_at"`
    EndsAt             string   `json:"ends_at" bson:"ends_at"`
    State              string   `json:"state" bson:"state"`
    GuestName          string   `json:"guest_name" bson:"guest_name"`
    GuestEmail         string   `json:"guest_email" bson:"guest_email"`
    GuestCount         int      `json:"guest_count" bson:"guest_count"`
    TotalAmountCents   int64    `json:"total_amount_cents" bson:"total_amount_cents"`
    DepositCents       int64    `json:"deposit_cents" bson:"deposit_cents"`
    RefundCents        int64    `json:"refund_cents" bson:"refund_cents"`
    AssignedAdminID    string   `json:"assigned_admin_id,omitempty" bson:"assigned_admin_id,omitempty"`
    OccurredAt         string   `json:"occurred_at" bson:"occurred_at"`
}

// NewReservationEvent builds the payload for one change of r.
func NewReservationEvent(event string, r model.Reservation, at time.Time) ReservationEvent {
    return ReservationEvent{
        EventID:            uuid.NewString(),
        Event:              event,
        ReservationID:      r.ID,
        ConfirmationNumber: r.ConfirmationNumber,
        Kind:               string(r.Kind),
        Targets:            append([]string(nil), r.Targets...),
        StartsAt:           r.Window.Start.UTC().Format(time.RFC3339),
        EndsAt:             r.Window.End.UTC().Format(time.RFC3339),
        State:              string(r.State),
        GuestName:          r.Contact.Name + " " + r.Contact.Surname,
        GuestEmail:         r.Contact.Email,
        GuestCount:         r.GuestCount,
        TotalAmountCents:   r.Price.TotalCents,
        DepositCents:       r.Price.DepositCents,
        RefundCents:        r.RefundCents,
        AssignedAdminID:    r.AssignedAdminID,
        OccurredAt:         at.UTC().Format(time.RFC3339),
    }
}
