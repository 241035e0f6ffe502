package handlers

import (
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/quickadd"
	"fintrack/internal/services"
)

// FormHandler handles quick-add form drafts.
type FormHandler struct {
	formService services.FormServicer
}

// NewFormHandler creates a new FormHandler
func NewFormHandler(formService services.FormServicer) *FormHandler {
	return &FormHandler{formService: formService}
}

// CreateFormRequest selects the kind of record a form creates.
type CreateFormRequest struct {
	Kind string `json:"kind" binding:"required,form_kind"`
}

// SetTextRequest replaces the description or name.
type SetTextRequest struct {
	Text string `json:"text" binding:"max=500"`
}

// SetFieldsRequest patches the non-text fields. Omitted fields are unchanged.
type SetFieldsRequest struct {
	Amount         *decimal.Decimal `json:"amount" swaggertype:"number"`
	Date           *civil.Date      `json:"date" swaggertype:"string" example:"2024-03-04"`
	Merchant       *string          `json:"merchant" binding:"omitempty,max=255"`
	Type           *string          `json:"type" binding:"omitempty,transaction_type"`
	CategoryID     *string          `json:"category_id"`
	InvestmentType *string          `json:"investment_type" binding:"omitempty,investment_type"`
	BillType       *string          `json:"bill_type" binding:"omitempty,bill_type"`
	DueDay         *int             `json:"due_day" binding:"omitempty,min=1,max=31"`
}

func (r SetFieldsRequest) patch() quickadd.FieldsPatch {
	p := quickadd.FieldsPatch{
		Amount:     r.Amount,
		Date:       r.Date,
		Merchant:   r.Merchant,
		CategoryID: r.CategoryID,
		DueDay:     r.DueDay,
	}
	if r.Type != nil {
		t := models.TransactionType(*r.Type)
		p.Type = &t
	}
	if r.InvestmentType != nil {
		t := models.InvestmentType(*r.InvestmentType)
		p.InvestmentType = &t
	}
	if r.BillType != nil {
		t := models.BillType(*r.BillType)
		p.BillType = &t
	}
	return p
}

// CreateForm opens a quick-add draft
// @Summary     Open a quick-add form
// @Tags        forms
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body CreateFormRequest true "Form kind"
// @Success     201 {object} services.FormView "Form"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /forms [post]
func (h *FormHandler) CreateForm(c *gin.Context) {
	var req CreateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	view, err := h.formService.CreateForm(quickadd.Kind(req.Kind))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"form": view})
}

// GetForm returns the form with pending notifications
// @Summary     Get a quick-add form
// @Tags        forms
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path string true "Form ID"
// @Success     200 {object} services.FormView "Form"
// @Failure     404 {object} ErrorResponse "Form not found"
// @Router      /forms/{id} [get]
func (h *FormHandler) GetForm(c *gin.Context) {
	view, err := h.formService.GetForm(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"form": view})
}

// SetText updates the description or name and schedules classification
// @Summary     Set form text
// @Tags        forms
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path string true "Form ID"
// @Param       request body SetTextRequest true "Text"
// @Success     200 {object} services.FormView "Form"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Form not found"
// @Router      /forms/{id}/text [put]
func (h *FormHandler) SetText(c *gin.Context) {
	var req SetTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	view, err := h.formService.SetText(c.Param("id"), req.Text)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"form": view})
}

// SetFields patches amount, date, type, category and the kind-specific fields
// @Summary     Set form fields
// @Tags        forms
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path string true "Form ID"
// @Param       request body SetFieldsRequest true "Fields"
// @Success     200 {object} services.FormView "Form"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Form not found"
// @Router      /forms/{id}/fields [put]
func (h *FormHandler) SetFields(c *gin.Context) {
	var req SetFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if req.Amount != nil && req.Amount.IsNegative() {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Amount must not be negative"))
		return
	}

	view, err := h.formService.SetFields(c.Param("id"), req.patch())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"form": view})
}

// CategorizeNow classifies the current text immediately
// @Summary     Categorize now
// @Tags        forms
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path string true "Form ID"
// @Success     200 {object} services.FormView "Form"
// @Failure     404 {object} ErrorResponse "Form not found"
// @Failure     409 {object} ErrorResponse "Categorization not available"
// @Router      /forms/{id}/categorize [post]
func (h *FormHandler) CategorizeNow(c *gin.Context) {
	view, err := h.formService.CategorizeNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"form": view})
}

// Submit creates the transaction, investment or bill
// @Summary     Submit a form
// @Tags        forms
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path string true "Form ID"
// @Success     201 {object} quickadd.SubmitResult "Created record"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Form not found"
// @Failure     502 {object} ErrorResponse "Backend error"
// @Router      /forms/{id}/submit [post]
func (h *FormHandler) Submit(c *gin.Context) {
	result, view, err := h.formService.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"result": result, "form": view})
}

// CloseForm discards the draft
// @Summary     Close a form
// @Tags        forms
// @Security    ApiKeyAuth
// @Param       id path string true "Form ID"
// @Success     204 "Closed"
// @Failure     404 {object} ErrorResponse "Form not found"
// @Router      /forms/{id} [delete]
func (h *FormHandler) CloseForm(c *gin.Context) {
	if err := h.formService.CloseForm(c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
