package handler

import (
    "time"

    "github.com/iliyamo/venue-reservation/internal/model"
)

// reservationView is the admin projection.  Unlike model.PublicView it
// carries the internal id, the assignment and the reconciliation state.
type reservationView struct {
    ID                  string        `json:"id"`
    ConfirmationNumber  string        `json:"confirmation_number"`
    Kind                model.Kind    `json:"kind"`
    Targets             []string      `json:"targets"`
    EventTypeID         string        `json:"event_type_id,omitempty"`
    ServiceIDs          []string      `json:"service_ids,omitempty"`
    Start               time.Time     `json:"start"`
    End                 time.Time     `json:"end"`
    Contact             model.Contact `json:"contact"`
    GuestCount          int           `json:"guest_count"`
    Price               model.Price   `json:"price"`
    State               model.State   `json:"state"`
    AssignedAdminID     string        `json:"assigned_admin_id,omitempty"`
    PaymentRef          string        `json:"payment_ref,omitempty"`
    NeedsReconciliation bool          `json:"needs_reconciliation"`
    RefundCents         int64         `json:"refund_cents"`
    Notes               string        `json:"notes,omitempty"`
    CreatedAt           time.Time     `json:"created_at"`
    UpdatedAt           time.Time     `json:"updated_at"`
}

func adminView(r model.Reservation) reservationView {
    return reservationView{
        ID:                  r.ID,
        ConfirmationNumber:  r.ConfirmationNumber,
        Kind:                r.Kind,
        Targets:             r.Targets,
        EventTypeID:         r.EventTypeID,
        ServiceIDs:          r.ServiceIDs,
        Start:               r.Window.Start,
        End:                 r.Window.End,
        Contact:             r.Contact,
        GuestCount:          r.GuestCount,
        Price:               r.Price,
        State:               r.State,
        AssignedAdminID:     r.AssignedAdminID,
        PaymentRef:          r.PaymentRef,
        NeedsReconciliation: r.NeedsReconciliation,
        RefundCents:         r.RefundCents,
        Notes:               r.Notes,
        CreatedAt:           r.CreatedAt,
        UpdatedAt:           r.UpdatedAt,
    }
}

func adminViews(rs []model.Reservation) []reservationView {
    out := make([]reservationView, 0, len(rs))
    for _, r := range rs {
        out = append(out, adminView(r))
    }
    return out
}
