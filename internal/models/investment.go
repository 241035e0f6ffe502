package models

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Investment is a backend investment record in canonical form.
type Investment struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       InvestmentType  `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Date       civil.Date      `json:"date"`
	CategoryID string          `json:"category_id,omitempty"`
}

// CreateInvestmentInput is the payload for creating an investment.
type CreateInvestmentInput struct {
	Name       string
	Type       InvestmentType
	Amount     decimal.Decimal
	Date       civil.Date
	CategoryID string
}

// MonthlyBill is a recurring bill tracked by the backend.
type MonthlyBill struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Type   BillType        `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	DueDay int             `json:"due_day,omitempty"`
}

// CreateMonthlyBillInput is the payload for creating a monthly bill.
type CreateMonthlyBillInput struct {
	Name   string
	Type   BillType
	Amount decimal.Decimal
	DueDay int
}

// BillScan is the backend's reading of a single receipt or bill image.
type BillScan struct {
	Amount          decimal.Decimal `json:"amount"`
	Merchant        string          `json:"merchant"`
	Description     string          `json:"description"`
	Date            civil.Date      `json:"date"`
	Currency        string          `json:"currency"`
	TransactionType TransactionType `json:"transaction_type"`
	CategoryName    string          `json:"category_name"`
}

// ImagePayload is an image prepared for an AI endpoint: base64 without any
// data-URL prefix, plus its MIME type.
type ImagePayload struct {
	Base64   string
	MimeType string
}
