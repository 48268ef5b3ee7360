package handler

import (
	"campus-meal-wallet/internal/adapter/http/dto"
	"campus-meal-wallet/internal/core/domain"
	"campus-meal-wallet/internal/core/ports"
	"campus-meal-wallet/pkg/apperror"
	"campus-meal-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet store endpoints.
type WalletHandler struct {
	ledgerSvc ports.LedgerService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledgerSvc ports.LedgerService) *WalletHandler {
	return &WalletHandler{ledgerSvc: ledgerSvc}
}

// List handles GET /api/v1/wallets.
func (h *WalletHandler) List(c *gin.Context) {
	wallets, err := h.ledgerSvc.ListWallets(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.WalletResponse, 0, len(wallets))
	for i := range wallets {
		items = append(items, toWalletResponse(&wallets[i]))
	}
	response.OK(c, dto.WalletListResponse{Items: items, Total: len(items)})
}

// Get handles GET /api/v1/wallets/:id.
func (h *WalletHandler) Get(c *gin.Context) {
	wallet, err := h.ledgerSvc.GetWallet(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWalletResponse(wallet))
}

// Adjust handles POST /api/v1/wallets/:id/adjustments.
func (h *WalletHandler) Adjust(c *gin.Context) {
	var req dto.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.ledgerSvc.AdjustBalance(c.Request.Context(), ports.AdjustmentRequest{
		WalletID:    c.Param("id"),
		Kind:        domain.AdjustmentKind(req.Kind),
		Amount:      req.Amount,
		Reason:      req.Reason,
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toLedgerResultResponse(result))
}

// EnrollBatch handles POST /api/v1/wallets/batch.
func (h *WalletHandler) EnrollBatch(c *gin.Context) {
	var req dto.EnrollmentBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	reqs := make([]ports.EnrollmentRequest, 0, len(req.Wallets))
	for i := range req.Wallets {
		item := &req.Wallets[i]
		dto.SanitizeStruct(item)
		er := ports.EnrollmentRequest{
			WalletID:         item.WalletID,
			Name:             item.Name,
			Email:            item.Email,
			InitialBalance:   item.InitialBalance,
			LimitPerPurchase: item.LimitPerPurchase,
		}
		if item.ValidFrom != nil {
			er.ValidFrom = *item.ValidFrom
		}
		if item.ValidUntil != nil {
			er.ValidUntil = *item.ValidUntil
		}
		reqs = append(reqs, er)
	}

	wallets, err := h.ledgerSvc.EnrollWallets(c.Request.Context(), reqs)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.WalletResponse, 0, len(wallets))
	for i := range wallets {
		items = append(items, toWalletResponse(&wallets[i]))
	}
	response.Created(c, dto.WalletListResponse{Items: items, Total: len(items)})
}
