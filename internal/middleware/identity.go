package middleware

// identity.go defines helper functions shared across middleware files. Currently
// it provides a user identifier extraction function that reads the "user_id"
// context value stored by JWTAuth. When no user is authenticated, "anon" is
// returned so rate-limit keys still group unauthenticated traffic together.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// currentUserID extracts a user identifier from the Echo context. JWTAuth
// stores the raw JWT subject claim, which arrives as a float64 after JSON
// decoding; older callers may have stored a string or integer, so all three
// representations are accepted.
func currentUserID(c echo.Context) string {
    switch v := c.Get("user_id").(type) {
    case string:
        if v != "" {
            return v
        }
    case float64:
        return strconv.FormatUint(uint64(v), 10)
    case uint64:
        return strconv.FormatUint(v, 10)
    case int64:
        return strconv.FormatInt(v, 10)
    }
    return "anon"
}
