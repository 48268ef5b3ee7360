package handler

import (
	"strconv"

	"campus-meal-wallet/internal/core/ports"
	"campus-meal-wallet/pkg/apperror"
	"campus-meal-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler handles reporting endpoints.
type AnalyticsHandler struct {
	analyticsSvc ports.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsSvc ports.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsSvc: analyticsSvc}
}

// GetAnalytics handles GET /api/v1/analytics?days=30.
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 || days > 365 {
		response.Error(c, apperror.Validation("days must be an integer between 1 and 365"))
		return
	}

	report, err := h.analyticsSvc.GetAnalytics(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// GetStats handles GET /api/v1/dashboard/stats.
func (h *AnalyticsHandler) GetStats(c *gin.Context) {
	stats, err := h.analyticsSvc.GetDashboardStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}
