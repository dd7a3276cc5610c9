package handler

import (
	"github.com/labstack/echo/v4"

	"unimarket/internal/domain/entity"
	"unimarket/internal/usecase"
	"unimarket/pkg/errors"
	"unimarket/pkg/response"
	"unimarket/pkg/utils"
)

type TransactionHandler struct {
	transactionUseCase *usecase.TransactionUseCase
}

func NewTransactionHandler(transactionUseCase *usecase.TransactionUseCase) *TransactionHandler {
	return &TransactionHandler{
		transactionUseCase: transactionUseCase,
	}
}

type createTransactionRequest struct {
	ItemID          string `json:"item_id" validate:"required"`
	DeliveryAddress string `json:"delivery_address,omitempty"`
}

func (h *TransactionHandler) CreateTransaction(c echo.Context) error {
	var req createTransactionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	txn, err := h.transactionUseCase.CreateTransaction(c.Request().Context(), userID, usecase.CreateTransactionInput{
		ItemID:          req.ItemID,
		DeliveryAddress: req.DeliveryAddress,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, txn)
}

func (h *TransactionHandler) GetTransaction(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	userID := c.Get("uid").(string)

	txn, err := h.transactionUseCase.GetTransaction(c.Request().Context(), userID, transactionID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, txn)
}

func (h *TransactionHandler) ListTransactions(c echo.Context) error {
	role := c.QueryParam("role")
	status := entity.TransactionStatus(c.QueryParam("status"))

	pagination := utils.GetPaginationParams(c)
	userID := c.Get("uid").(string)

	txns, total, err := h.transactionUseCase.ListTransactions(
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

	return response.Paginated(c, txns, total, pagination.Page, pagination.PageSize)
}

func (h *TransactionHandler) ListAdminTransactions(c echo.Context) error {
	filter := map[string]interface{}{}
	if status := c.QueryParam("status"); status != "" {
		filter["status"] = status
	}
	if sellerID := c.QueryParam("seller_id"); sellerID != "" {
		filter["seller_id"] = sellerID
	}
	if buyerID := c.QueryParam("buyer_id"); buyerID != "" {
		filter["buyer_id"] = buyerID
	}

	pagination := utils.GetPaginationParams(c)
	userID := c.Get("uid").(string)

	txns, total, err := h.transactionUseCase.ListAdminTransactions(
		c.Request().Context(),
		userID,
		filter,
		pagination.Page,
		pagination.PageSize,
	)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, txns, total, pagination.Page, pagination.PageSize)
}

func (h *TransactionHandler) MarkPaid(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	userID := c.Get("uid").(string)

	txn, err := h.transactionUseCase.MarkPaid(c.Request().Context(), userID, transactionID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, txn)
}

type setDeliveryStatusRequest struct {
	DeliveryStatus string `json:"delivery_status" validate:"required,oneof=ready_for_pickup in_transit delivered failed"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

func (h *TransactionHandler) SetDeliveryStatus(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	var req setDeliveryStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	txn, err := h.transactionUseCase.SetDeliveryStatus(c.Request().Context(), userID, transactionID, usecase.SetDeliveryStatusInput{
		DeliveryStatus: entity.DeliveryStatus(req.DeliveryStatus),
		TrackingNumber: req.TrackingNumber,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, txn)
}

func (h *TransactionHandler) CompleteTransaction(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	userID := c.Get("uid").(string)

	txn, err := h.transactionUseCase.Complete(c.Request().Context(), userID, transactionID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, txn)
}

type cancelTransactionRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *TransactionHandler) CancelTransaction(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	var req cancelTransactionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	txn, err := h.transactionUseCase.Cancel(c.Request().Context(), userID, transactionID, req.Reason)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, txn)
}

type reportProblemRequest struct {
	Description string `json:"description" validate:"required"`
}

func (h *TransactionHandler) ReportProblem(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	var req reportProblemRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	txn, err := h.transactionUseCase.ReportProblem(c.Request().Context(), userID, transactionID, req.Description)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, txn)
}

func (h *TransactionHandler) RefundTransaction(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	userID := c.Get("uid").(string)

	txn, err := h.transactionUseCase.Refund(c.Request().Context(), userID, transactionID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, txn)
}

type resolveDisputeRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=release refund"`
}

func (h *TransactionHandler) ResolveDispute(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	var req resolveDisputeRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	txn, err := h.transactionUseCase.ResolveDispute(c.Request().Context(), userID, transactionID, req.Outcome)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, txn)
}
