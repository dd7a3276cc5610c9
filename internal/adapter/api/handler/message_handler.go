package handler

import (
	"github.com/labstack/echo/v4"

	"unimarket/internal/usecase"
	"unimarket/pkg/errors"
	"unimarket/pkg/response"
	"unimarket/pkg/utils"
)

type MessageHandler struct {
	messageUseCase *usecase.MessageUseCase
}

func NewMessageHandler(messageUseCase *usecase.MessageUseCase) *MessageHandler {
	return &MessageHandler{
		messageUseCase: messageUseCase,
	}
}

type postMessageRequest struct {
	Body string `json:"body" validate:"required,max=2000"`
}

func (h *MessageHandler) PostMessage(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	var req postMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	msg, err := h.messageUseCase.PostMessage(c.Request().Context(), userID, transactionID, req.Body)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, msg)
}

func (h *MessageHandler) ListMessages(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	pagination := utils.GetPaginationParams(c)
	userID := c.Get("uid").(string)

	messages, total, err := h.messageUseCase.ListMessages(
		c.Request().Context(),
		userID,
		transactionID,
		pagination.Page,
		pagination.PageSize,
	)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, messages, total, pagination.Page, pagination.PageSize)
}

func (h *MessageHandler) MarkMessagesRead(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	userID := c.Get("uid").(string)

	if err := h.messageUseCase.MarkRead(c.Request().Context(), userID, transactionID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "read"})
}
