package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome     CategoryType = "income"
	CategoryTypeExpense    CategoryType = "expense"
	CategoryTypeInvestment CategoryType = "investment"
)

// Category is a backend category in canonical form.
type Category struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Type             CategoryType `json:"type"`
	Icon             string       `json:"icon,omitempty"`
	Color            string       `json:"color,omitempty"`
	UserID           string       `json:"user_id,omitempty"`
	ParentCategoryID *string      `json:"parent_category_id,omitempty"`
	IsDefault        bool         `json:"is_default"`
}

// CreateCategoryInput is the payload for the inline "create new category" flow.
type CreateCategoryInput struct {
	Name             string       `json:"name"`
	Type             CategoryType `json:"type"`
	Icon             string       `json:"icon,omitempty"`
	Color            string       `json:"color,omitempty"`
	ParentCategoryID *string      `json:"parentCategoryId,omitempty"`
}
