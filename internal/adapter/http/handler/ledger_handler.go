package handler

import (
	"time"

	"campus-meal-wallet/internal/adapter/http/dto"
	"campus-meal-wallet/internal/core/domain"
	"campus-meal-wallet/internal/core/ports"
	"campus-meal-wallet/pkg/apperror"
	"campus-meal-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// LedgerHandler handles purchase, refund and transaction log endpoints.
type LedgerHandler struct {
	ledgerSvc ports.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

// ProcessPurchase handles POST /api/v1/purchases.
func (h *LedgerHandler) ProcessPurchase(c *gin.Context) {
	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	items := make([]domain.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.LineItem{Name: item.Name, Quantity: item.Quantity, Price: item.Price})
	}

	result, err := h.ledgerSvc.ProcessPurchase(c.Request.Context(), ports.PurchaseRequest{
		WalletID: req.WalletID,
		Amount:   req.Amount,
		Vendor:   req.Vendor,
		OrderID:  req.OrderID,
		Items:    items,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toLedgerResultResponse(result))
}

// ProcessRefund handles POST /api/v1/refunds.
func (h *LedgerHandler) ProcessRefund(c *gin.Context) {
	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.ledgerSvc.RefundPurchase(c.Request.Context(), ports.RefundRequest{
		WalletID: req.WalletID,
		OrderID:  req.OrderID,
		Reason:   req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toLedgerResultResponse(result))
}

// ListTransactions handles GET /api/v1/transactions. Filters: wallet_id,
// from, to (RFC 3339). Results are in chronological order.
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	var filter ports.TransactionFilter

	if id := c.Query("wallet_id"); id != "" {
		filter.WalletID = &id
	}
	if f := c.Query("from"); f != "" {
		ts, err := time.Parse(time.RFC3339, f)
		if err != nil {
			response.Error(c, apperror.Validation("from must be RFC 3339"))
			return
		}
		filter.From = &ts
	}
	if t := c.Query("to"); t != "" {
		ts, err := time.Parse(time.RFC3339, t)
		if err != nil {
			response.Error(c, apperror.Validation("to must be RFC 3339"))
			return
		}
		filter.To = &ts
	}

	txns, err := h.ledgerSvc.GetTransactions(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, toTransactionResponse(&txns[i]))
	}
	response.OK(c, dto.TransactionListResponse{Items: items, Total: len(items)})
}

// --- DTO converters shared by the handlers ---

func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	resp := dto.WalletResponse{
		ID:                w.ID,
		Name:              w.Name,
		Email:             w.Email,
		Balance:           w.Balance,
		Status:            string(w.Status),
		LimitPerPurchase:  w.LimitPerPurchase,
		LastTransactionAt: w.LastTransactionAt,
		CreatedAt:         w.CreatedAt,
		UpdatedAt:         w.UpdatedAt,
	}
	if !w.ValidFrom.IsZero() {
		vf := w.ValidFrom
		resp.ValidFrom = &vf
	}
	if !w.ValidUntil.IsZero() {
		vu := w.ValidUntil
		resp.ValidUntil = &vu
	}
	return resp
}

func toTransactionResponse(t *domain.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:           t.ID,
		WalletID:     t.WalletID,
		Timestamp:    t.Timestamp,
		Type:         string(t.Type),
		Amount:       t.Amount,
		BalanceAfter: t.BalanceAfter,
		Description:  t.Description,
		Vendor:       t.Vendor,
		OrderID:      t.OrderID,
		Reason:       t.Reason,
	}
	for _, item := range t.Items {
		resp.Items = append(resp.Items, dto.LineItem{Name: item.Name, Quantity: item.Quantity, Price: item.Price})
	}
	return resp
}

func toLedgerResultResponse(r *ports.LedgerResult) dto.LedgerResultResponse {
	return dto.LedgerResultResponse{
		Wallet:      toWalletResponse(r.Wallet),
		Transaction: toTransactionResponse(r.Transaction),
	}
}
