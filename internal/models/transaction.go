package models

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome     TransactionType = "income"
	TransactionTypeExpense    TransactionType = "expense"
	TransactionTypeInvestment TransactionType = "investment"
	TransactionTypeTransfer   TransactionType = "transfer"
)

// CategoryType returns the category type used to populate category choices
// for this transaction type.
func (t TransactionType) CategoryType() CategoryType {
	switch t {
	case TransactionTypeIncome:
		return CategoryTypeIncome
	case TransactionTypeInvestment:
		return CategoryTypeInvestment
	default:
		return CategoryTypeExpense
	}
}

// Transaction is a persisted backend transaction in canonical form.
type Transaction struct {
	ID           string          `json:"id"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Merchant     string          `json:"merchant,omitempty"`
	Date         civil.Date      `json:"date"`
	Type         TransactionType `json:"type"`
	CategoryID   string          `json:"category_id,omitempty"`
	CategoryName string          `json:"category_name,omitempty"`
}

// ExtractedTransaction is one transaction read out of an uploaded image. It
// is only ever persisted after the user has reviewed it.
type ExtractedTransaction struct {
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	Date            civil.Date      `json:"date"`
	Merchant        string          `json:"merchant,omitempty"`
	CategoryID      string          `json:"category_id,omitempty"`
	CategoryName    string          `json:"category_name,omitempty"`
	TransactionType TransactionType `json:"transaction_type"`
	Confidence      Confidence      `json:"confidence"`
	IsDuplicate     bool            `json:"is_duplicate,omitempty"`
	DuplicateID     string          `json:"duplicate_id,omitempty"`
}

// CreateTransactionInput is the payload for creating one transaction.
type CreateTransactionInput struct {
	Amount      decimal.Decimal
	Description string
	Merchant    string
	Date        civil.Date
	Type        TransactionType
	CategoryID  string
}

// TransactionQuery selects a date-windowed page of transactions.
type TransactionQuery struct {
	StartDate civil.Date
	EndDate   civil.Date
	Limit     int
	Type      TransactionType
}

// Pagination is the paging metadata returned with transaction lists.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// TransactionPage is a list of transactions with its paging metadata.
type TransactionPage struct {
	Transactions []Transaction `json:"data"`
	Pagination   Pagination    `json:"pagination"`
}
