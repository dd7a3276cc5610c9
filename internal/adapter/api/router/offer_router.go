package router

import (
	"github.com/labstack/echo/v4"

	"unimarket/internal/adapter/api/handler"
	"unimarket/internal/adapter/api/middleware"
)

// SetupOfferRouter sets up the offer lifecycle routes.
func SetupOfferRouter(e *echo.Echo, offerHandler *handler.OfferHandler, authMiddleware *middleware.AuthMiddleware) {
	offerGroup := e.Group("/v1/offers")
	offerGroup.Use(authMiddleware.Authenticate)

	offerGroup.POST("", offerHandler.CreateOffer)            // POST /v1/offers - Make an offer on a listing
	offerGroup.GET("", offerHandler.ListOffers)              // GET /v1/offers?role=buyer|seller&status=
	offerGroup.GET("/:id", offerHandler.GetOffer)            // GET /v1/offers/:id
	offerGroup.POST("/:id/respond", offerHandler.RespondToOffer) // POST /v1/offers/:id/respond - Seller accepts or rejects
	offerGroup.POST("/:id/cancel", offerHandler.CancelOffer) // POST /v1/offers/:id/cancel - Buyer withdraws
}
