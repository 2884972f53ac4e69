package handler

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/hyeonwoo/studycafe-server/internal/model"
    "github.com/hyeonwoo/studycafe-server/internal/payment"
)

// PaymentHandler exposes payment submission, search and back-office
// amendment.  Settlement outcomes surface as the payment row itself:
// a rejected row with its reason in the comment is a 200, not an error.
type PaymentHandler struct {
    Svc *payment.Service
}

func NewPaymentHandler(svc *payment.Service) *PaymentHandler {
    return &PaymentHandler{Svc: svc}
}

type processReq struct {
    UserID        uint64  `json:"user_id"`
    ReservationID *uint64 `json:"book_id"`
    Cashier       string  `json:"cashier"`
    PayType       string  `json:"pay_type"`
    Paid          int64   `json:"paid"`
    Comment       *string `json:"comment"`
}

type paymentView struct {
    ID            uint64  `json:"id"`
    UserID        uint64  `json:"user_id"`
    ReservationID *uint64 `json:"book_id"`
    PoolID        *uint64 `json:"saved_money_id"`
    Cashier       string  `json:"cashier"`
    PayType       string  `json:"pay_type"`
    Paid          int64   `json:"paid"`
    Comment       string  `json:"comment"`
    Status        string  `json:"status"`
    CreatedAt     string  `json:"created_at"`
}

func payViewOf(p *model.Payment) paymentView {
    return paymentView{
        ID:            p.ID,
        UserID:        p.UserID,
        ReservationID: p.ReservationID,
        PoolID:        p.PoolID,
        Cashier:       p.Cashier,
        PayType:       p.PayType,
        Paid:          p.Paid,
        Comment:       p.Comment,
        Status:        string(p.Status),
        CreatedAt:     p.CreatedAt.Format(time.RFC3339),
    }
}

// Process submits a payment and settles it through the pay-type
// dispatch.
// POST /v1/pays
func (h *PaymentHandler) Process(c echo.Context) error {
    var req processReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    pay, err := h.Svc.Process(ctx, payment.ProcessRequest{
        UserID:        req.UserID,
        ReservationID: req.ReservationID,
        Cashier:       req.Cashier,
        PayType:       req.PayType,
        Paid:          req.Paid,
        Comment:       req.Comment,
        ClientName:    clientName(c),
    })
    if err != nil {
        return respondFault(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message": pay.Comment,
        "status":  string(pay.Status),
        "pay":     payViewOf(pay),
    })
}

// List searches payments by the optional query filters.
// GET /v1/pays?user_id=&book_id=&cashier=&pay_type=&date=
func (h *PaymentHandler) List(c echo.Context) error {
    var f payment.Filter
    if v := c.QueryParam("user_id"); v != "" {
        id, err := strconv.ParseUint(v, 10, 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid user_id"})
        }
        f.UserID = &id
    }
    if v := c.QueryParam("book_id"); v != "" {
        id, err := strconv.ParseUint(v, 10, 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid book_id"})
        }
        f.ReservationID = &id
    }
    if v := c.QueryParam("cashier"); v != "" {
        f.Cashier = &v
    }
    if v := c.QueryParam("pay_type"); v != "" {
        f.PayType = &v
    }
    if v := c.QueryParam("date"); v != "" {
        date, err := parseDate(v)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid date"})
        }
        f.Date = &date
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    pays, err := h.Svc.List(ctx, f)
    if err != nil {
        return respondFault(c, err)
    }
    views := make([]paymentView, 0, len(pays))
    for i := range pays {
        views = append(views, payViewOf(&pays[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "ok", "pays": views})
}

// Get returns one payment with its card transaction, when one exists.
// GET /v1/pays/:id
func (h *PaymentHandler) Get(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid pay id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    pay, tx, err := h.Svc.GetWithTransaction(ctx, id)
    if err != nil {
        return respondFault(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message":     "ok",
        "pay":         payViewOf(pay),
        "transaction": tx,
    })
}

type amendReq struct {
    Cashier *string `json:"cashier"`
    PayType *string `json:"pay_type"`
    Paid    *int64  `json:"paid"`
    Comment *string `json:"comment"`
}

// Amend edits a payment row, for back-office corrections.  Staff only.
// PUT /v1/pays/:id
func (h *PaymentHandler) Amend(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid pay id"})
    }
    var req amendReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    pay, err := h.Svc.Amend(ctx, id, payment.AmendRequest{
        Cashier: req.Cashier,
        PayType: req.PayType,
        Paid:    req.Paid,
        Comment: req.Comment,
    })
    if err != nil {
        return respondFault(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "ok", "pay": payViewOf(pay)})
}
