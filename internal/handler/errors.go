package handler

import (
    "errors"
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/venue-reservation/internal/booking"
)

// writeError translates an engine error into a JSON response.  Anything
// not in the engine's taxonomy is logged and reported as a generic 500 so
// storage details never reach the client.
func writeError(c echo.Context, log *slog.Logger, err error) error {
    var (
        ve *booking.ValidationError
        ac *booking.AvailabilityConflict
        as *booking.AssignmentConflict
        te *booking.TransitionError
    )
    switch {
    case errors.As(err, &ve):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request", "fields": ve.Fields})
    case errors.As(err, &ac):
        return c.JSON(http.StatusConflict, echo.Map{"error": ac.Error(), "conflicts": ac.Conflicts})
    case errors.As(err, &as):
        return c.JSON(http.StatusConflict, echo.Map{"error": as.Error(), "held_by": as.HeldBy})
    case errors.As(err, &te):
        return c.JSON(http.StatusConflict, echo.Map{"error": te.Error(), "from": te.From, "to": te.To})
    case errors.Is(err, booking.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    case errors.Is(err, booking.ErrNotOwner):
        return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
    case errors.Is(err, booking.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    log.Error("request failed", "route", c.Path(), "error", err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func badBody(c echo.Context) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
}
