package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireGrade returns a middleware function that enforces a minimum
// member grade on the authenticated user.  Grades are ordered integers
// (blocked < warning < normal < vip < manager < admin), so staff-only
// routes pass the manager grade and admin-only routes the admin grade.
// It assumes JWTAuth already extracted the numeric grade claim into the
// context under the key "grade"; JSON numbers decode as float64.  When
// the claim is missing or below the threshold, the request is aborted
// with a 403 Forbidden response.
func RequireGrade(min int) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            v := c.Get("grade")
            grade, ok := v.(float64)
            if !ok || int(grade) < min {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
