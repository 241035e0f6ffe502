package models

// Confidence is the coarse trust label attached to an automatic suggestion.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// CategorySuggestion is the backend's answer for a free-text description.
type CategorySuggestion struct {
	CategoryID      string          `json:"category_id"`
	CategoryName    string          `json:"category_name"`
	Confidence      Confidence      `json:"confidence"`
	TransactionType TransactionType `json:"transaction_type"`
}

// InvestmentType is the kind of asset an investment name refers to.
type InvestmentType string

const (
	InvestmentTypeStocks      InvestmentType = "stocks"
	InvestmentTypeMutualFunds InvestmentType = "mutual_funds"
	InvestmentTypeCrypto      InvestmentType = "crypto"
	InvestmentTypeRealEstate  InvestmentType = "real_estate"
	InvestmentTypeOther       InvestmentType = "other"
)

// InvestmentTypeSuggestion is computed locally from keyword matching.
type InvestmentTypeSuggestion struct {
	SuggestedType InvestmentType `json:"suggested_type"`
	Confidence    Confidence     `json:"confidence"`
}

// BillType is the kind of recurring monthly bill.
type BillType string

const (
	BillTypeHome     BillType = "home"
	BillTypeMobile   BillType = "mobile"
	BillTypeInternet BillType = "internet"
	BillTypeGym      BillType = "gym"
	BillTypeOther    BillType = "other"
)

// BillTypeSuggestion is computed locally from keyword matching.
type BillTypeSuggestion struct {
	SuggestedType BillType   `json:"suggested_type"`
	Confidence    Confidence `json:"confidence"`
}
