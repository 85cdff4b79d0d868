package middleware

import "github.com/labstack/echo/v4"

// AdminID returns the authenticated subject stored by JWTAuth, or "" on
// unauthenticated routes.
func AdminID(c echo.Context) string {
    if s, ok := c.Get("user_id").(string); ok {
        return s
    }
    return ""
}

// IsAdmin reports whether the request carries the admin role.
func IsAdmin(c echo.Context) bool {
    role, _ := c.Get("role").(string)
    return role == RoleAdmin
}

// RequestID returns the id assigned by echo's RequestID middleware, read
// back from the response header.
func RequestID(c echo.Context) string {
    return c.Response().Header().Get(echo.HeaderXRequestID)
}
