package handler

import (
	"github.com/labstack/echo/v4"

	"unimarket/internal/domain/entity"
	"unimarket/internal/usecase"
	"unimarket/pkg/errors"
	"unimarket/pkg/response"
)

const maxEvidenceSize = 5 * 1024 * 1024

type EvidenceHandler struct {
	evidenceUseCase *usecase.EvidenceUseCase
}

func NewEvidenceHandler(evidenceUseCase *usecase.EvidenceUseCase) *EvidenceHandler {
	return &EvidenceHandler{
		evidenceUseCase: evidenceUseCase,
	}
}

func (h *EvidenceHandler) AddEvidence(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	kind := entity.EvidenceKind(c.FormValue("kind"))
	if kind != entity.EvidenceKindReceipt && kind != entity.EvidenceKindDeliveryProof {
		return response.Error(c, errors.Validation("kind must be receipt or delivery_proof"))
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.BadRequest("Evidence file is required", err))
	}
	if fileHeader.Size > maxEvidenceSize {
		return response.Error(c, errors.Validation("evidence file exceeds the 5MB limit"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Failed to read evidence file", err))
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	userID := c.Get("uid").(string)

	ev, err := h.evidenceUseCase.AddEvidence(c.Request().Context(), userID, transactionID, usecase.AddEvidenceInput{
		Kind:        kind,
		File:        file,
		ContentType: contentType,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, ev)
}

type removeEvidenceRequest struct {
	Ref string `json:"ref" validate:"required"`
}

func (h *EvidenceHandler) RemoveEvidence(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	var req removeEvidenceRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	if err := h.evidenceUseCase.RemoveEvidence(c.Request().Context(), userID, transactionID, req.Ref); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "removed"})
}

func (h *EvidenceHandler) ListEvidence(c echo.Context) error {
	transactionID := c.Param("id")
	if transactionID == "" {
		return response.Error(c, errors.BadRequest("Transaction ID is required", nil))
	}

	userID := c.Get("uid").(string)

	items, err := h.evidenceUseCase.ListEvidence(c.Request().Context(), userID, transactionID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, items)
}
