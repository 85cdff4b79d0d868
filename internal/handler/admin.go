package handler

import (
    "context"
    "log/slog"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/venue-reservation/internal/booking"
    "github.com/iliyamo/venue-reservation/internal/middleware"
    "github.com/iliyamo/venue-reservation/internal/model"
    "github.com/iliyamo/venue-reservation/internal/queue"
    "github.com/iliyamo/venue-reservation/internal/report"
    "github.com/iliyamo/venue-reservation/internal/repository"
)

// EventHistory reads the audit trail of a reservation.  It is satisfied
// by queue.MongoSink.
type EventHistory interface {
    ByReservation(ctx context.Context, reservationID string) ([]queue.ReservationEvent, error)
}

// AdminHandler serves the staff surface.  Every route is mounted behind
// JWTAuth and RequireRole(ADMIN); the acting admin is the token subject.
type AdminHandler struct {
    Booking  *booking.Service
    History  EventHistory // optional
    Log      *slog.Logger
    Now      func() time.Time
    Location *time.Location // venue time zone used in exports
}

// NewAdminHandler panics when svc is nil.  events may be nil.
func NewAdminHandler(svc *booking.Service, events EventHistory, logger *slog.Logger) *AdminHandler {
    if svc == nil {
        panic("nil booking service passed to NewAdminHandler")
    }
    if logger == nil {
        logger = slog.Default()
    }
    return &AdminHandler{Booking: svc, History: events, Log: logger, Now: time.Now, Location: time.UTC}
}

func actor(c echo.Context) booking.Actor {
    return booking.Actor{ID: middleware.AdminID(c), Admin: middleware.IsAdmin(c)}
}

// filterFrom reads state, kind, target, assigned_to, mine, unassigned,
// limit and offset from the query string.
func filterFrom(c echo.Context) (repository.Filter, error) {
    f := repository.Filter{
        State:      model.State(c.QueryParam("state")),
        Kind:       model.Kind(c.QueryParam("kind")),
        TargetID:   c.QueryParam("target"),
        AssignedTo: c.QueryParam("assigned_to"),
    }
    if c.QueryParam("mine") == "true" {
        f.AssignedTo = middleware.AdminID(c)
    }
    f.Unassigned = c.QueryParam("unassigned") == "true"
    for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
        raw := c.QueryParam(name)
        if raw == "" {
            continue
        }
        n, err := strconv.Atoi(raw)
        if err != nil || n < 0 {
            return f, &booking.ValidationError{Fields: map[string]string{name: "must be a non-negative integer"}}
        }
        *dst = n
    }
    return f, nil
}

// List handles GET /v1/admin/reservations.
func (h *AdminHandler) List(c echo.Context) error {
    f, err := filterFrom(c)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    if f.Limit == 0 {
        f.Limit = 100
    }
    rows, err := h.list(c.Request().Context(), f)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"reservations": adminViews(rows), "count": len(rows)})
}

// list answers the unassigned, mine and assigned_to views from the
// assignment ledger and every other filter from the general listing.
func (h *AdminHandler) list(ctx context.Context, f repository.Filter) ([]model.Reservation, error) {
    var (
        rows []model.Reservation
        err  error
    )
    switch {
    case f.Unassigned && f.AssignedTo != "":
        return nil, &booking.ValidationError{Fields: map[string]string{"unassigned": "cannot be combined with mine or assigned_to"}}
    case f.Unassigned && f.State == "" && f.TargetID == "":
        rows, err = h.Booking.ListUnassigned(ctx, f.Kind)
    case f.AssignedTo != "" && f.State == "" && f.Kind == "" && f.TargetID == "":
        rows, err = h.Booking.ListAssignedTo(ctx, f.AssignedTo)
    default:
        return h.Booking.List(ctx, f)
    }
    if err != nil {
        return nil, err
    }
    return page(rows, f.Offset, f.Limit), nil
}

func page(rows []model.Reservation, offset, limit int) []model.Reservation {
    if offset >= len(rows) {
        return nil
    }
    rows = rows[offset:]
    if limit > 0 && limit < len(rows) {
        rows = rows[:limit]
    }
    return rows
}

// Export handles GET /v1/admin/reservations/export.  It accepts the same
// filters as List, without a default limit, and answers an xlsx file.
func (h *AdminHandler) Export(c echo.Context) error {
    f, err := filterFrom(c)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    rows, err := h.list(c.Request().Context(), f)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    now := h.Now()
    raw, err := report.WriteReservations(rows, now, h.Location)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+report.Filename(now)+`"`)
    return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", raw)
}

// Get handles GET /v1/admin/reservations/:id.
func (h *AdminHandler) Get(c echo.Context) error {
    r, err := h.Booking.Get(c.Request().Context(), c.Param("id"))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, adminView(r))
}

// Claim handles POST /v1/admin/reservations/:id/claim.
func (h *AdminHandler) Claim(c echo.Context) error {
    ctx := c.Request().Context()
    id := c.Param("id")
    if err := h.Booking.Claim(ctx, id, middleware.AdminID(c)); err != nil {
        return writeError(c, h.Log, err)
    }
    return h.Get(c)
}

// Release handles POST /v1/admin/reservations/:id/release.  With
// ?force=true the claim is cleared whoever holds it.
func (h *AdminHandler) Release(c echo.Context) error {
    ctx := c.Request().Context()
    id := c.Param("id")
    var err error
    if c.QueryParam("force") == "true" {
        err = h.Booking.ForceRelease(ctx, id, actor(c))
    } else {
        err = h.Booking.Release(ctx, id, middleware.AdminID(c))
    }
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return h.Get(c)
}

// UpdateStatus handles PATCH /v1/admin/reservations/:id/status with body
// {"state": "..."}.
func (h *AdminHandler) UpdateStatus(c echo.Context) error {
    var body struct {
        State model.State `json:"state"`
    }
    if err := c.Bind(&body); err != nil {
        return badBody(c)
    }
    r, err := h.Booking.UpdateStatus(c.Request().Context(), c.Param("id"), body.State, actor(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, adminView(r))
}

// Cancel handles POST /v1/admin/reservations/:id/cancel.
func (h *AdminHandler) Cancel(c echo.Context) error {
    r, err := h.Booking.Cancel(c.Request().Context(), c.Param("id"), actor(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, adminView(r))
}

// Delete handles DELETE /v1/admin/reservations/:id.
func (h *AdminHandler) Delete(c echo.Context) error {
    if err := h.Booking.Delete(c.Request().Context(), c.Param("id"), actor(c)); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Events handles GET /v1/admin/reservations/:id/events.
func (h *AdminHandler) Events(c echo.Context) error {
    if h.History == nil {
        return c.JSON(http.StatusNotImplemented, echo.Map{"error": "event history is not configured"})
    }
    ctx := c.Request().Context()
    r, err := h.Booking.Get(ctx, c.Param("id"))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    events, err := h.History.ByReservation(ctx, r.ID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    if events == nil {
        events = []queue.ReservationEvent{}
    }
    return c.JSON(http.StatusOK, echo.Map{"events": events})
}
