package handler

import (
    "crypto/subtle"
    "log/slog"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/venue-reservation/internal/booking"
)

// WebhookHeader carries the shared secret on payment callbacks.
const WebhookHeader = "X-Webhook-Secret"

// PaymentHandler receives payment outcomes from the payment provider.
type PaymentHandler struct {
    Booking *booking.Service
    Secret  string
    Log     *slog.Logger
}

// NewPaymentHandler panics when svc is nil.  An empty secret rejects
// every callback.
func NewPaymentHandler(svc *booking.Service, secret string, logger *slog.Logger) *PaymentHandler {
    if svc == nil {
        panic("nil booking service passed to NewPaymentHandler")
    }
    if logger == nil {
        logger = slog.Default()
    }
    return &PaymentHandler{Booking: svc, Secret: secret, Log: logger}
}

type paymentCallback struct {
    ReservationID string `json:"reservation_id"`
    Status        string `json:"status"` // succeeded | failed
    PaymentRef    string `json:"payment_ref"`
    Reason        string `json:"reason"`
}

// Callback handles POST /v1/payments/callback.  Both outcomes are
// idempotent, so the provider may retry freely.
func (h *PaymentHandler) Callback(c echo.Context) error {
    got := c.Request().Header.Get(WebhookHeader)
    if h.Secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid webhook secret"})
    }
    var body paymentCallback
    if err := c.Bind(&body); err != nil {
        return badBody(c)
    }
    if strings.TrimSpace(body.ReservationID) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_id is required"})
    }

    ctx := c.Request().Context()
    switch body.Status {
    case "succeeded":
        r, err := h.Booking.OnPaymentConfirmed(ctx, body.ReservationID, body.PaymentRef)
        if err != nil {
            return writeError(c, h.Log, err)
        }
        return c.JSON(http.StatusOK, echo.Map{"state": r.State, "needs_reconciliation": r.NeedsReconciliation})
    case "failed":
        r, err := h.Booking.OnPaymentFailed(ctx, body.ReservationID, body.Reason)
        if err != nil {
            return writeError(c, h.Log, err)
        }
        return c.JSON(http.StatusOK, echo.Map{"state": r.State, "needs_reconciliation": r.NeedsReconciliation})
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be succeeded or failed"})
    }
}
