package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/services"
)

// CategoryHandler handles category-related requests
type CategoryHandler struct {
	categoryService services.CategoryServicer
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService services.CategoryServicer) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CreateCategoryRequest represents the request payload for creating a category
type CreateCategoryRequest struct {
	Name             string  `json:"name" binding:"required,max=100"`
	Type             string  `json:"type" binding:"required,category_type"`
	Icon             string  `json:"icon" binding:"max=50"`
	Color            string  `json:"color" binding:"omitempty,hex_color"`
	ParentCategoryID *string `json:"parent_category_id"`
}

// ListCategoriesQuery filters the category list.
type ListCategoriesQuery struct {
	Type string `form:"type" binding:"omitempty,category_type"`
}

// ListCategories returns backend categories, optionally of one type
// @Summary     List categories
// @Tags        categories
// @Produce     json
// @Security    ApiKeyAuth
// @Param       type query string false "income, expense or investment"
// @Success     200 {array} models.Category "Categories"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     502 {object} ErrorResponse "Backend error"
// @Router      /categories [get]
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	var q ListCategoriesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	categories, err := h.categoryService.ListCategories(c.Request.Context(), models.CategoryType(q.Type))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// CreateCategory creates a category inline
// @Summary     Create a category
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body CreateCategoryRequest true "Category details"
// @Success     201 {object} models.Category "Category created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     502 {object} ErrorResponse "Backend error"
// @Router      /categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	category, err := h.categoryService.CreateCategory(c.Request.Context(), models.CreateCategoryInput{
		Name:             req.Name,
		Type:             models.CategoryType(req.Type),
		Icon:             req.Icon,
		Color:            req.Color,
		ParentCategoryID: req.ParentCategoryID,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"category": category})
}

// ListUploadCategories returns the income and expense categories offered
// while reviewing extracted transactions
// @Summary     Categories for upload review
// @Tags        uploads
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200 {object} services.UploadCategories "Income and expense categories"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     502 {object} ErrorResponse "Backend error"
// @Router      /uploads/categories [get]
func (h *CategoryHandler) ListUploadCategories(c *gin.Context) {
	categories, err := h.categoryService.ListForUpload(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}
