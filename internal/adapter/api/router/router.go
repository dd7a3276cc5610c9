package router

import (
	"github.com/labstack/echo/v4"

	"unimarket/internal/adapter/api/handler"
	"unimarket/internal/adapter/api/middleware"
)

func Setup(
	e *echo.Echo,
	offerHandler *handler.OfferHandler,
	transactionHandler *handler.TransactionHandler,
	messageHandler *handler.MessageHandler,
	evidenceHandler *handler.EvidenceHandler,
	wsHandler *handler.WebSocketHandler,
	healthHandler *handler.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
	adminMiddleware *middleware.AdminMiddleware,
) {
	SetupOfferRouter(e, offerHandler, authMiddleware)
	SetupTransactionRouter(e, transactionHandler, messageHandler, evidenceHandler, authMiddleware, adminMiddleware)
	SetupWebSocketRouter(e, wsHandler, authMiddleware)
	SetupHealthRouter(e, healthHandler)
}
