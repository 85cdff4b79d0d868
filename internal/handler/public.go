package handler

import (
    "log/slog"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/venue-reservation/internal/booking"
    "github.com/iliyamo/venue-reservation/internal/model"
)

// PublicHandler serves the unauthenticated booking surface: catalog,
// availability, quotes, reservation creation and lookup by confirmation
// number.
type PublicHandler struct {
    Booking *booking.Service
    Log     *slog.Logger
}

// NewPublicHandler panics when svc is nil.
func NewPublicHandler(svc *booking.Service, logger *slog.Logger) *PublicHandler {
    if svc == nil {
        panic("nil booking service passed to NewPublicHandler")
    }
    if logger == nil {
        logger = slog.Default()
    }
    return &PublicHandler{Booking: svc, Log: logger}
}

// ListRooms handles GET /v1/catalog/rooms.
func (h *PublicHandler) ListRooms(c echo.Context) error {
    rooms, err := h.Booking.Rooms(c.Request().Context())
    if err != nil {
        return writeError(c, h.Log, err)
    }
    type roomView struct {
        ID        string         `json:"id"`
        Name      string         `json:"name"`
        Category  model.Category `json:"category"`
        Capacity  int            `json:"capacity"`
        RateCents int64          `json:"rate_cents"`
    }
    out := make([]roomView, 0, len(rooms))
    for _, r := range rooms {
        if !r.Active {
            continue
        }
        out = append(out, roomView{ID: r.ID, Name: r.Name, Category: r.Category, Capacity: r.Capacity, RateCents: r.RateCents})
    }
    return c.JSON(http.StatusOK, echo.Map{"rooms": out})
}

type availabilityRequest struct {
    Targets []string  `json:"targets"`
    Start   time.Time `json:"start"`
    End     time.Time `json:"end"`
}

// CheckAvailability handles POST /v1/availability.  It answers 200 in
// both cases; the body says whether the window is free and lists what
// blocks it otherwise.
func (h *PublicHandler) CheckAvailability(c echo.Context) error {
    var body availabilityRequest
    if err := c.Bind(&body); err != nil {
        return badBody(c)
    }
    if len(body.Targets) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "targets is required"})
    }
    window := model.DateRange{Start: body.Start, End: body.End}
    if !window.Valid() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "end must be after start"})
    }
    res, err := h.Booking.CheckAvailability(c.Request().Context(), body.Targets, window, "")
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, res)
}

// Quote handles POST /v1/quotes.  It validates the request exactly as
// CreateReservation would and returns the price without persisting.
func (h *PublicHandler) Quote(c echo.Context) error {
    var req booking.Request
    if err := c.Bind(&req); err != nil {
        return badBody(c)
    }
    price, err := h.Booking.Quote(c.Request().Context(), req)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"price": price})
}

// CreateReservation handles POST /v1/reservations.  On success it answers
// 201 with the public view and, when payment is required, the payment
// handle to complete.  A payment start failure does not fail the request:
// the reservation stays pending and payment_error explains why.
func (h *PublicHandler) CreateReservation(c echo.Context) error {
    var req booking.Request
    if err := c.Bind(&req); err != nil {
        return badBody(c)
    }
    out, err := h.Booking.Create(c.Request().Context(), req)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    resp := echo.Map{"reservation": out.Reservation.Public()}
    if out.Payment != nil {
        resp["payment"] = out.Payment
    }
    if out.PaymentErr != nil {
        resp["payment_error"] = "payment could not be started; staff will contact you"
    }
    return c.JSON(http.StatusCreated, resp)
}

// Lookup handles GET /v1/reservations/lookup/:code.
func (h *PublicHandler) Lookup(c echo.Context) error {
    view, err := h.Booking.Lookup(c.Request().Context(), c.Param("code"))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, view)
}

// CancelByGuest handles POST /v1/reservations/lookup/:code/cancel.  The
// body must repeat the email on file.
func (h *PublicHandler) CancelByGuest(c echo.Context) error {
    var body struct {
        Email string `json:"email"`
    }
    if err := c.Bind(&body); err != nil {
        return badBody(c)
    }
    if strings.TrimSpace(body.Email) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
    }
    view, err := h.Booking.CancelByGuest(c.Request().Context(), c.Param("code"), body.Email)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, view)
}
