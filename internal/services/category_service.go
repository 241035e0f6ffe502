package services

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
)

// categoryService proxies category reads and writes to the backend.
type categoryService struct {
	backend Backend
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(backend Backend) CategoryServicer {
	return &categoryService{backend: backend}
}

// ListCategories returns the categories of one type, or all of them.
func (s *categoryService) ListCategories(ctx context.Context, categoryType models.CategoryType) ([]models.Category, error) {
	categories, err := s.backend.ListCategories(ctx, categoryType)
	if err != nil {
		return nil, apperrors.FromBackend(err)
	}
	return categories, nil
}

// CreateCategory creates a category inline, as offered next to the category picker.
func (s *categoryService) CreateCategory(ctx context.Context, input models.CreateCategoryInput) (*models.Category, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	category, err := s.backend.CreateCategory(ctx, input)
	if err != nil {
		return nil, apperrors.FromBackend(err)
	}
	return category, nil
}

// ListForUpload fetches the income and expense categories in parallel.
func (s *categoryService) ListForUpload(ctx context.Context) (*UploadCategories, error) {
	var out UploadCategories
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Income, err = s.backend.ListCategories(gctx, models.CategoryTypeIncome)
		return err
	})
	g.Go(func() error {
		var err error
		out.Expense, err = s.backend.ListCategories(gctx, models.CategoryTypeExpense)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.FromBackend(err)
	}
	return &out, nil
}
