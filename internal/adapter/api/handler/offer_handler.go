package handler

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"unimarket/internal/domain/entity"
	"unimarket/internal/usecase"
	"unimarket/pkg/errors"
	"unimarket/pkg/response"
	"unimarket/pkg/utils"
)

type OfferHandler struct {
	offerUseCase *usecase.OfferUseCase
}

func NewOfferHandler(offerUseCase *usecase.OfferUseCase) *OfferHandler {
	return &OfferHandler{
		offerUseCase: offerUseCase,
	}
}

type createOfferRequest struct {
	ItemID   string `json:"item_id" validate:"required"`
	Amount   string `json:"amount" validate:"required"`
	Note     string `json:"note,omitempty"`
	TTLHours int    `json:"ttl_hours,omitempty" validate:"omitempty,gt=0,max=720"`
}

func (h *OfferHandler) CreateOffer(c echo.Context) error {
	var req createOfferRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return response.Error(c, errors.InvalidAmount("amount must be a decimal number"))
	}

	userID := c.Get("uid").(string)

	offer, err := h.offerUseCase.CreateOffer(c.Request().Context(), userID, usecase.CreateOfferInput{
		ItemID: req.ItemID,
		Amount: amount,
		Note:   req.Note,
		TTL:    time.Duration(req.TTLHours) * time.Hour,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, offer)
}

type respondToOfferRequest struct {
	Action string `json:"action" validate:"required,oneof=accept reject"`
}

func (h *OfferHandler) RespondToOffer(c echo.Context) error {
	offerID := c.Param("id")
	if offerID == "" {
		return response.Error(c, errors.BadRequest("Offer ID is required", nil))
	}

	var req respondToOfferRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	result, err := h.offerUseCase.RespondToOffer(c.Request().Context(), userID, offerID, req.Action)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}

func (h *OfferHandler) CancelOffer(c echo.Context) error {
	offerID := c.Param("id")
	if offerID == "" {
		return response.Error(c, errors.BadRequest("Offer ID is required", nil))
	}

	userID := c.Get("uid").(string)

	offer, err := h.offerUseCase.CancelOffer(c.Request().Context(), userID, offerID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, offer)
}

func (h *OfferHandler) GetOffer(c echo.Context) error {
	offerID := c.Param("id")
	if offerID == "" {
		return response.Error(c, errors.BadRequest("Offer ID is required", nil))
	}

	userID := c.Get("uid").(string)

	offer, err := h.offerUseCase.GetOffer(c.Request().Context(), userID, offerID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, offer)
}

func (h *OfferHandler) ListOffers(c echo.Context) error {
	role := c.QueryParam("role")
	status := entity.OfferStatus(c.QueryParam("status"))

	pagination := utils.GetPaginationParams(c)
	userID := c.Get("uid").(string)

	offers, total, err := h.offerUseCase.ListOffers(
		c.Request().Context(),
		userID,
		role,
		status,
		pagination.Page,
		pagination.PageSize,
	)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, offers, total, pagination.Page, pagination.PageSize)
}
