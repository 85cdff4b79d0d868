package middleware

import (
    "log/slog"
    "time"

    "github.com/labstack/echo/v4"
)

// RequestLogger logs one structured line per request.  5xx responses are
// logged at error level, 4xx at warn.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            status := c.Response().Status
            attrs := []any{
                "request_id", RequestID(c),
                "method", c.Request().Method,
                "route", c.Path(),
                "status", status,
                "duration_ms", time.Since(start).Milliseconds(),
                "remote_ip", c.RealIP(),
            }
            if id := AdminID(c); id != "" {
                attrs = append(attrs, "admin_id", id)
            }
            switch {
            case status >= 500:
                logger.Error("request", attrs...)
            case status >= 400:
                logger.Warn("request", attrs...)
            default:
                logger.Info("request", attrs...)
            }
            return nil
        }
    }
}
