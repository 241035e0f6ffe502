// Package classifier suggests investment and bill types from free-text
// names using an ordered keyword rule table.
package classifier

import (
	"context"
	"strings"

	"fintrack/internal/models"
)

// Category names used to file investments.
const (
	InvestmentCategoryName            = "Investment"
	InvestmentTransactionCategoryName = "Investment Transaction"
)

// Classifier matches names against a rule table.
type Classifier struct {
	rules *Rules
}

// New creates a classifier over rules. A nil table uses the embedded one.
func New(rules *Rules) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// ClassifyInvestment returns the type of the first keyword set, in priority
// order, with a keyword contained in name. Unmatched names are "other" with
// medium confidence.
func (c *Classifier) ClassifyInvestment(name string) models.InvestmentTypeSuggestion {
	lower := strings.ToLower(name)
	for _, set := range c.rules.Investments {
		if containsAny(lower, set.Keywords) {
			return models.InvestmentTypeSuggestion{SuggestedType: set.Type, Confidence: set.Confidence}
		}
	}
	return models.InvestmentTypeSuggestion{
		SuggestedType: models.InvestmentTypeOther,
		Confidence:    models.ConfidenceMedium,
	}
}

// ClassifyBill returns the bill type for name. A matched set is high
// confidence; no match is "other" with medium confidence.
func (c *Classifier) ClassifyBill(name string) models.BillTypeSuggestion {
	lower := strings.ToLower(name)
	for _, set := range c.rules.Bills {
		if containsAny(lower, set.Keywords) {
			return models.BillTypeSuggestion{SuggestedType: set.Type, Confidence: models.ConfidenceHigh}
		}
	}
	return models.BillTypeSuggestion{
		SuggestedType: models.BillTypeOther,
		Confidence:    models.ConfidenceMedium,
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// CategoryLister lists backend categories of one type.
type CategoryLister interface {
	ListCategories(ctx context.Context, categoryType models.CategoryType) ([]models.Category, error)
}

// ResolveInvestmentCategory picks the backend category an investment
// suggestion should be filed under: "Investment" when a specific type was
// detected, "Investment Transaction" otherwise. It returns nil when the
// backend has no such category.
func ResolveInvestmentCategory(ctx context.Context, lister CategoryLister, suggestion models.InvestmentTypeSuggestion) (*models.Category, error) {
	categories, err := lister.ListCategories(ctx, models.CategoryTypeInvestment)
	if err != nil {
		return nil, err
	}
	want := InvestmentTransactionCategoryName
	if suggestion.SuggestedType != models.InvestmentTypeOther {
		want = InvestmentCategoryName
	}
	for i := range categories {
		if strings.EqualFold(strings.TrimSpace(categories[i].Name), want) {
			return &categories[i], nil
		}
	}
	return nil, nil
}

// FallbackInvestmentCategory returns the first investment category, or nil
// when there are none.
func FallbackInvestmentCategory(categories []models.Category) *models.Category {
	for i := range categories {
		if categories[i].Type == "" || categories[i].Type == models.CategoryTypeInvestment {
			return &categories[i]
		}
	}
	return nil
}
