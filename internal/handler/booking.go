package handler

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/hyeonwoo/studycafe-server/internal/booking"
    "github.com/hyeonwoo/studycafe-server/internal/model"
    "github.com/hyeonwoo/studycafe-server/internal/repository"
)

// BookingHandler exposes the reservation lifecycle over HTTP: prepare,
// confirm, immediate booking, cancellation, deletion, room changes and
// the daily timetable.  Business rules live in the booking service; the
// handler binds requests, resolves the acting user and shapes
// responses.
type BookingHandler struct {
    Svc          *booking.Service
    Reservations *repository.ReservationRepo
    Users        *repository.UserRepo
}

func NewBookingHandler(svc *booking.Service, reservations *repository.ReservationRepo, users *repository.UserRepo) *BookingHandler {
    return &BookingHandler{Svc: svc, Reservations: reservations, Users: users}
}

// ----- DTOs -----

type prepareReq struct {
    ChatID    int64  `json:"chat_id"`
    UserID    uint64 `json:"user_id"`
    Date      string `json:"date"`       // YYYY-MM-DD
    StartTime string `json:"start_time"` // HH:MM
    EndTime   string `json:"end_time"`   // HH:MM
    RoomType  int    `json:"room_type"`
    RoomNo    *int   `json:"room_no"`
    PeopleNo  int    `json:"people_no"`

    // Confirmation metadata, used by the immediate flow only.
    Department string `json:"department"`
    Purpose    string `json:"purpose"`
    Object     string `json:"object"`
}

type confirmReq struct {
    Action     string `json:"action"`
    Department string `json:"department"`
    Purpose    string `json:"purpose"`
    Object     string `json:"object"`
    RoomType   int    `json:"room_type"`
    RoomNo     int    `json:"room_no"`
    Cashier    string `json:"cashier"`
}

type reservationView struct {
    ID         uint64  `json:"id"`
    RoomID     uint64  `json:"room_id"`
    UserID     uint64  `json:"user_id"`
    Status     int     `json:"status"`
    PeopleNo   int     `json:"people_no"`
    Date       string  `json:"date"`
    StartTime  string  `json:"start_time"`
    EndTime    string  `json:"end_time"`
    Department *string `json:"department,omitempty"`
    Purpose    *string `json:"purpose,omitempty"`
    Object     *string `json:"object,omitempty"`
    Reason     *string `json:"reason,omitempty"`
}

func viewOf(r *model.Reservation) reservationView {
    return reservationView{
        ID:         r.ID,
        RoomID:     r.RoomID,
        UserID:     r.UserID,
        Status:     int(r.Status),
        PeopleNo:   r.PeopleNo,
        Date:       r.BookDate.Format("2006-01-02"),
        StartTime:  r.Slot.StartClock(),
        EndTime:    r.Slot.EndClock(),
        Department: r.Department,
        Purpose:    r.Purpose,
        Object:     r.Object,
        Reason:     r.Reason,
    }
}

func (h *BookingHandler) bindPrepare(c echo.Context) (booking.PrepareRequest, *prepareReq, error) {
    var req prepareReq
    if err := c.Bind(&req); err != nil {
        return booking.PrepareRequest{}, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid body")
    }
    date, err := parseDate(req.Date)
    if err != nil {
        return booking.PrepareRequest{}, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid date")
    }
    slot, err := model.ParseTimeSlot(req.StartTime, req.EndTime)
    if err != nil {
        return booking.PrepareRequest{}, nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
    }
    return booking.PrepareRequest{
        ChatID:     req.ChatID,
        UserID:     req.UserID,
        Date:       date,
        Slot:       slot,
        RoomType:   req.RoomType,
        RoomNo:     req.RoomNo,
        PeopleNo:   req.PeopleNo,
        ClientName: clientName(c),
    }, &req, nil
}

// Prepare creates a ten-minute temporary hold.
// POST /v1/books
func (h *BookingHandler) Prepare(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    preq, _, err := h.bindPrepare(c)
    if err != nil {
        return err
    }
    hold, err := h.Svc.Prepare(ctx, preq)
    if err != nil {
        return respondFault(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "temp_book_id":     hold.ReservationID,
        "room_id":          hold.RoomID,
        "temp_book_expire": hold.ExpiresAt.Format(time.RFC3339),
    })
}

// Immediately books and confirms in one call, for the front desk and
// the kiosk.
// POST /v1/books/immediately
func (h *BookingHandler) Immediately(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    preq, raw, err := h.bindPrepare(c)
    if err != nil {
        return err
    }
    res, err := h.Svc.Immediately(ctx, preq, raw.Department, raw.Purpose, raw.Object)
    if err != nil {
        return respondFault(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "ok", "book": viewOf(res)})
}

// Update dispatches the PUT actions on one reservation: confirm a hold,
// cancel, or change room.
// PUT /v1/books/:id
func (h *BookingHandler) Update(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid book id"})
    }
    var req confirmReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    switch req.Action {
    case "confirm":
        res, err := h.Svc.Confirm(ctx, booking.ConfirmRequest{
            HoldID:     id,
            Department: req.Department,
            Purpose:    req.Purpose,
            Object:     req.Object,
        })
        if err != nil {
            return respondFault(c, err)
        }
        return c.JSON(http.StatusOK, echo.Map{"message": "ok", "book": viewOf(res)})

    case "cancel":
        actor, err := h.actor(ctx, c)
        if err != nil {
            return respondFault(c, err)
        }
        cashier := req.Cashier
        if cashier == "" {
            cashier = clientName(c)
        }
        result, err := h.Svc.Cancel(ctx, id, actor, cashier)
        if err != nil {
            return respondFault(c, err)
        }
        resp := echo.Map{
            "message": result.Reason,
            "book":    viewOf(result.Reservation),
        }
        if result.Refund != nil {
            resp["refund_pay"] = result.Refund
            resp["status"] = string(result.Refund.Status)
        } else {
            resp["refund_pay"] = nil
            resp["status"] = string(model.PayConfirmed)
        }
        return c.JSON(http.StatusOK, resp)

    case "change.room":
        room, err := h.Svc.ChangeRoom(ctx, id, req.RoomType, req.RoomNo)
        if err != nil {
            return respondFault(c, err)
        }
        return c.JSON(http.StatusOK, echo.Map{"message": "ok", "room": room})
    }

    return c.JSON(http.StatusBadRequest, echo.Map{"message": "no such action"})
}

// Delete removes the caller's reservation within the deletion rules.
// DELETE /v1/books/:id
func (h *BookingHandler) Delete(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid book id"})
    }
    reason := c.QueryParam("reason")
    if reason == "" {
        reason = "canceled by user"
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    actor, err := h.actor(ctx, c)
    if err != nil {
        return respondFault(c, err)
    }
    if err := h.Svc.Delete(ctx, id, actor, reason, clientName(c)); err != nil {
        return respondFault(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}

// AdminDelete cancels any reservation, staff only.
// DELETE /v1/books/:id/admin
func (h *BookingHandler) AdminDelete(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid book id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    actor, err := h.actor(ctx, c)
    if err != nil {
        return respondFault(c, err)
    }
    if err := h.Svc.AdminDelete(ctx, id, actor); err != nil {
        return respondFault(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}

// ListByDate renders one day's timetable.  The recurring block
// generator and the no-show sweep run first so the grid the caller sees
// is already reconciled; both are idempotent and their failures don't
// block the read.
// GET /v1/books?date=YYYY-MM-DD
func (h *BookingHandler) ListByDate(c echo.Context) error {
    date, err := parseDate(c.QueryParam("date"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid date"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    if err := h.Svc.MaterializeBlocks(ctx); err != nil {
        c.Logger().Error(err)
    }
    if err := h.Svc.RemoveNoShows(ctx); err != nil {
        c.Logger().Error(err)
    }

    books, err := h.Reservations.ByDate(ctx, date)
    if err != nil {
        return respondFault(c, err)
    }
    views := make([]reservationView, 0, len(books))
    for i := range books {
        views = append(views, viewOf(&books[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "ok", "books": views})
}

// ListMine returns the caller's reservations, newest first.
// GET /v1/books/mine
func (h *BookingHandler) ListMine(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    uid := actorID(c)
    books, err := h.Reservations.ByUser(ctx, uid)
    if err != nil {
        return respondFault(c, err)
    }
    views := make([]reservationView, 0, len(books))
    for i := range books {
        views = append(views, viewOf(&books[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "ok", "books": views})
}

func (h *BookingHandler) actor(ctx context.Context, c echo.Context) (*model.User, error) {
    user, err := h.Users.ByID(ctx, actorID(c))
    if err != nil {
        return nil, err
    }
    if user == nil {
        return nil, echo.ErrUnauthorized
    }
    return user, nil
}
