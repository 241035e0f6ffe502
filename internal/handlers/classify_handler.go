package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/services"
)

// ClassifyHandler exposes the keyword classifiers.
type ClassifyHandler struct {
	classifyService services.ClassifyServicer
}

// NewClassifyHandler creates a new ClassifyHandler
func NewClassifyHandler(classifyService services.ClassifyServicer) *ClassifyHandler {
	return &ClassifyHandler{classifyService: classifyService}
}

// ClassifyRequest carries the name to classify.
type ClassifyRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

// ClassifyInvestment suggests an investment type and category
// @Summary     Classify an investment name
// @Tags        classify
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body ClassifyRequest true "Investment name"
// @Success     200 {object} services.InvestmentClassification "Suggestion"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /classify/investment [post]
func (h *ClassifyHandler) ClassifyInvestment(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	out, err := h.classifyService.ClassifyInvestment(c.Request.Context(), req.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// ClassifyBill suggests a monthly bill type
// @Summary     Classify a bill name
// @Tags        classify
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body ClassifyRequest true "Bill name"
// @Success     200 {object} models.BillTypeSuggestion "Suggestion"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /classify/bill [post]
func (h *ClassifyHandler) ClassifyBill(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	c.JSON(http.StatusOK, h.classifyService.ClassifyBill(req.Name))
}
