package routes

import (
	"github.com/gin-gonic/gin"

	"creditmeter/internal/api/handlers"
	"creditmeter/internal/api/middleware"
	"creditmeter/internal/infrastructure/database/postgres"
)

// RegisterRoutes wires every endpoint onto router. Middleware order
// matters: request ID first so every downstream log line and reservation
// row carries it, then metrics, then auth only on the routes that charge.
// defaultReserveAmount is the credits ChargeOneCredit reserves per request
// (Ledger.DefaultReserveAmount in production, a fixed value in tests).
func RegisterRoutes(router *gin.Engine, container handlers.HandlerDependencies, store *postgres.Store, defaultReserveAmount int) {
	router.Use(middleware.RequestID())
	router.Use(middleware.Prometheus())

	router.POST("/wallets", handlers.MakeCreateWalletHandler(container))
	router.GET("/wallets/:id", handlers.MakeGetWalletHandler(container))
	router.GET("/wallets/:id/transactions", handlers.MakeListTransactionsHandler(container))
	router.POST("/admin/wallets/:id/topup", handlers.MakeTopUpHandler(container))

	charged := router.Group("/")
	charged.Use(middleware.APIKeyAuth(store))
	charged.Use(middleware.ChargeOneCredit(store, defaultReserveAmount))
	{
		charged.POST("/echo", handlers.Echo)
		charged.POST("/fail", handlers.Fail)
		charged.POST("/panic", handlers.Panic)
	}

	router.GET("/metrics", handlers.PrometheusMetrics())
	router.GET("/sweep-events", handlers.SweepEvents)
}
