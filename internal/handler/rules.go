package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/hyeonwoo/studycafe-server/internal/config"
    "github.com/hyeonwoo/studycafe-server/internal/model"
)

// RulesHandler is the staff console for operating rules: the café-wide
// closure flag, per-date closures and the booking hours.
type RulesHandler struct {
    Rules *config.RulesStore
}

func NewRulesHandler(rules *config.RulesStore) *RulesHandler {
    return &RulesHandler{Rules: rules}
}

// Get reports the current rule set as seen for today and the coming
// weekend.
// GET /v1/rules
func (h *RulesHandler) Get(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    now := time.Now()
    weekday := now
    for weekday.Weekday() == time.Saturday || weekday.Weekday() == time.Sunday {
        weekday = weekday.AddDate(0, 0, 1)
    }
    weekend := now
    for weekend.Weekday() != time.Saturday && weekend.Weekday() != time.Sunday {
        weekend = weekend.AddDate(0, 0, 1)
    }

    wd := h.Rules.Hours(ctx, weekday)
    we := h.Rules.Hours(ctx, weekend)
    return c.JSON(http.StatusOK, echo.Map{
        "cafe_closed":   h.Rules.CafeClosed(ctx),
        "closed_today":  h.Rules.ClosedOn(ctx, now),
        "weekday_open":  model.Clock(wd.Open),
        "weekday_close": model.Clock(wd.Close),
        "weekend_open":  model.Clock(we.Open),
        "weekend_close": model.Clock(we.Close),
    })
}

type closedReq struct {
    Closed bool `json:"closed"`
}

// SetClosed flips the café-wide closure flag.
// PUT /v1/rules/closed
func (h *RulesHandler) SetClosed(c echo.Context) error {
    var req closedReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Rules.SetCafeClosed(ctx, req.Closed); err != nil {
        return respondFault(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "ok", "cafe_closed": req.Closed})
}

type closedDateReq struct {
    Date string `json:"date"`
}

// AddClosedDate marks one date as closed.
// POST /v1/rules/closed-dates
func (h *RulesHandler) AddClosedDate(c echo.Context) error {
    var req closedDateReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
    }
    date, err := parseDate(req.Date)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid date"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Rules.AddClosedDate(ctx, date); err != nil {
        return respondFault(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}

// RemoveClosedDate reopens a previously closed date.
// DELETE /v1/rules/closed-dates/:date
func (h *RulesHandler) RemoveClosedDate(c echo.Context) error {
    date, err := parseDate(c.Param("date"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid date"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Rules.RemoveClosedDate(ctx, date); err != nil {
        return respondFault(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}

type hoursReq struct {
    Weekend bool   `json:"weekend"`
    Open    string `json:"open"`  // HH:MM
    Close   string `json:"close"` // HH:MM
}

// SetHours updates the weekday or weekend booking hours.
// PUT /v1/rules/hours
func (h *RulesHandler) SetHours(c echo.Context) error {
    var req hoursReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Rules.SetHours(ctx, req.Weekend, req.Open, req.Close); err != nil {
        return respondFault(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}
