package handler

import (
	"campus-meal-wallet/internal/adapter/http/middleware"
	"campus-meal-wallet/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	AnalyticsSvc   ports.AnalyticsService
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies storage dependencies)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	ledgerHandler := NewLedgerHandler(deps.LedgerSvc)
	walletHandler := NewWalletHandler(deps.LedgerSvc)
	analyticsHandler := NewAnalyticsHandler(deps.AnalyticsSvc)

	// API v1 routes
	v1 := r.Group("/api/v1")

	purchases := v1.Group("/purchases")
	{
		purchases.POST("", ledgerHandler.ProcessPurchase)
	}

	refunds := v1.Group("/refunds")
	{
		refunds.POST("", ledgerHandler.ProcessRefund)
	}

	transactions := v1.Group("/transactions")
	{
		transactions.GET("", ledgerHandler.ListTransactions)
	}

	wallets := v1.Group("/wallets")
	{
		wallets.GET("", walletHandler.List)
		wallets.POST("/batch", walletHandler.EnrollBatch)
		wallets.GET("/:id", walletHandler.Get)
		wallets.POST("/:id/adjustments", walletHandler.Adjust)
	}

	v1.GET("/analytics", analyticsHandler.GetAnalytics)

	dashboard := v1.Group("/dashboard")
	{
		dashboard.GET("/stats", analyticsHandler.GetStats)
	}

	return r
}
