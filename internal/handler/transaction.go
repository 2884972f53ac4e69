package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/hyeonwoo/studycafe-server/internal/payment"
    "github.com/hyeonwoo/studycafe-server/internal/repository"
)

// TransactionHandler is the card-terminal side of the API.  The
// terminal client polls for pending exchanges and posts results back.
type TransactionHandler struct {
    Svc          *payment.Service
    Transactions *repository.TransactionRepo
}

func NewTransactionHandler(svc *payment.Service, transactions *repository.TransactionRepo) *TransactionHandler {
    return &TransactionHandler{Svc: svc, Transactions: transactions}
}

// Pending hands the polling terminal its oldest live exchange.  When
// nothing is actionable the terminal expects a zero type, not a 404.
// GET /v1/transaction
func (h *TransactionHandler) Pending(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    tx, err := h.Svc.PendingTransaction(ctx, clientName(c))
    if err != nil {
        return respondFault(c, err)
    }
    if tx == nil {
        return c.JSON(http.StatusOK, echo.Map{"type": 0})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "id":          tx.ID,
        "type":        tx.Type,
        "money":       tx.Money,
        "tax":         tx.Tax,
        "service":     tx.Service,
        "installment": tx.Installment,
        "agree_num":   tx.AgreeNum,
        "agree_date":  tx.AgreeDate,
        "cat_id":      tx.CatID,
        "tax_free":    tx.TaxFree,
    })
}

// ListAll dumps every transaction row, staff only.
// GET /v1/transaction/all
func (h *TransactionHandler) ListAll(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    txs, err := h.Transactions.List(ctx)
    if err != nil {
        return respondFault(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "ok", "transactions": txs})
}

type callbackReq struct {
    TransactionID     uint64  `json:"id"`
    ResponseRaw       *string `json:"response_original"`
    ResponseCode      *string `json:"response_code"`
    TransactionAmount *string `json:"transaction_amount"`
    ResponseMessage   *string `json:"message"`
    AuthorizationNo   *string `json:"authorization_number"`
    ApprovalDatetime  *string `json:"approval_datetime"`
    IssuerName        *string `json:"issuer_name"`
    AcquirerName      *string `json:"acquisition_company_name"`
}

// Callback receives the terminal's response for one exchange and
// settles the linked payment.
// POST /v1/transaction
func (h *TransactionHandler) Callback(c echo.Context) error {
    var req callbackReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
    }
    if req.TransactionID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "transaction id required"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    tx, err := h.Svc.TerminalCallback(ctx, payment.CallbackRequest{
        TransactionID:     req.TransactionID,
        ResponseRaw:       req.ResponseRaw,
        ResponseCode:      req.ResponseCode,
        TransactionAmount: req.TransactionAmount,
        ResponseMessage:   req.ResponseMessage,
        AuthorizationNo:   req.AuthorizationNo,
        ApprovalDatetime:  req.ApprovalDatetime,
        IssuerName:        req.IssuerName,
        AcquirerName:      req.AcquirerName,
    })
    if err != nil {
        return respondFault(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "ok", "transaction_id": tx.ID})
}
