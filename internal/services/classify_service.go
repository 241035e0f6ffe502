package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"fintrack/internal/classifier"
	"fintrack/internal/models"
)

type classifyService struct {
	classifier *classifier.Classifier
	backend    Backend
	log        *zap.SugaredLogger
}

// NewClassifyService creates a new ClassifyServicer.
func NewClassifyService(c *classifier.Classifier, backend Backend, log *zap.SugaredLogger) ClassifyServicer {
	return &classifyService{classifier: c, backend: backend, log: log}
}

// ClassifyInvestment suggests an investment type and resolves its category.
// A failed category lookup leaves the category empty.
func (s *classifyService) ClassifyInvestment(ctx context.Context, name string) (*InvestmentClassification, error) {
	suggestion := s.classifier.ClassifyInvestment(strings.TrimSpace(name))
	out := &InvestmentClassification{Suggestion: suggestion}

	category, err := classifier.ResolveInvestmentCategory(ctx, s.backend, suggestion)
	if err != nil {
		s.log.Warnw("Resolving investment category failed", "error", err)
		return out, nil
	}
	out.Category = category
	return out, nil
}

func (s *classifyService) ClassifyBill(name string) models.BillTypeSuggestion {
	return s.classifier.ClassifyBill(strings.TrimSpace(name))
}
