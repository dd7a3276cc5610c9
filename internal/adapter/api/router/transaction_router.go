package router

import (
	"github.com/labstack/echo/v4"

	"unimarket/internal/adapter/api/handler"
	"unimarket/internal/adapter/api/middleware"
)

// SetupTransactionRouter sets up the transaction state machine routes plus
// the per-transaction message and evidence subroutes.
func SetupTransactionRouter(
	e *echo.Echo,
	transactionHandler *handler.TransactionHandler,
	messageHandler *handler.MessageHandler,
	evidenceHandler *handler.EvidenceHandler,
	authMiddleware *middleware.AuthMiddleware,
	adminMiddleware *middleware.AdminMiddleware,
) {
	txnGroup := e.Group("/v1/transactions")
	txnGroup.Use(authMiddleware.Authenticate)

	txnGroup.POST("", transactionHandler.CreateTransaction) // POST /v1/transactions - Direct purchase
	txnGroup.GET("", transactionHandler.ListTransactions)   // GET /v1/transactions?role=buyer|seller&status=
	txnGroup.GET("/:id", transactionHandler.GetTransaction)

	// State machine transitions
	txnGroup.POST("/:id/payment", transactionHandler.MarkPaid)
	txnGroup.POST("/:id/delivery", transactionHandler.SetDeliveryStatus)
	txnGroup.POST("/:id/complete", transactionHandler.CompleteTransaction)
	txnGroup.POST("/:id/cancel", transactionHandler.CancelTransaction)
	txnGroup.POST("/:id/problem", transactionHandler.ReportProblem)

	// Message ledger
	txnGroup.POST("/:id/messages", messageHandler.PostMessage)
	txnGroup.GET("/:id/messages", messageHandler.ListMessages)
	txnGroup.PUT("/:id/messages/read", messageHandler.MarkMessagesRead)

	// Evidence store
	txnGroup.POST("/:id/evidence", evidenceHandler.AddEvidence)
	txnGroup.GET("/:id/evidence", evidenceHandler.ListEvidence)
	txnGroup.DELETE("/:id/evidence", evidenceHandler.RemoveEvidence)

	// Admin-only dispute resolution
	adminGroup := e.Group("/v1/admin/transactions")
	adminGroup.Use(authMiddleware.Authenticate)
	adminGroup.Use(adminMiddleware.AdminOnly)

	adminGroup.GET("", transactionHandler.ListAdminTransactions)
	adminGroup.POST("/:id/refund", transactionHandler.RefundTransaction)
	adminGroup.POST("/:id/resolve-dispute", transactionHandler.ResolveDispute)
}
