package handler

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/hyeonwoo/studycafe-server/internal/fault"
)

// respondFault translates a service error into the JSON error shape the
// clients expect.  Typed faults keep their status and message; anything
// else is a 500 with a generic message so internals never leak.
func respondFault(c echo.Context, err error) error {
    status := fault.StatusOf(err)
    msg := fault.MessageOf(err)
    if status == http.StatusInternalServerError {
        c.Logger().Error(err)
        msg = "internal error"
    }
    return c.JSON(status, echo.Map{"message": msg})
}

// actorID extracts the authenticated user's id from the JWT claims the
// middleware stored in context.  Returns 0 when unauthenticated.
func actorID(c echo.Context) uint64 {
    switch v := c.Get("user_id").(type) {
    case float64:
        return uint64(v)
    case uint64:
        return v
    case string:
        if n, err := strconv.ParseUint(v, 10, 64); err == nil {
            return n
        }
    }
    return 0
}

// parseDate parses a YYYY-MM-DD request field.
func parseDate(s string) (time.Time, error) {
    return time.Parse("2006-01-02", s)
}

// clientName resolves the calling client's identity for cashier and
// terminal-routing purposes: the X-Client-Name header when set,
// otherwise the User-Agent string.
func clientName(c echo.Context) string {
    if v := c.Request().Header.Get("X-Client-Name"); v != "" {
        return v
    }
    return c.Request().UserAgent()
}
