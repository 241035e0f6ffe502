package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"fintrack/internal/models"
)

// flexString decodes a JSON string, number or boolean as text.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(data)
	return nil
}

// flexAmount decodes a number or a numeric string into a decimal. An
// unparseable value does not fail the surrounding document; it is kept in
// invalid and reported by err.
type flexAmount struct {
	decimal.Decimal
	set     bool
	invalid string
}

func (a *flexAmount) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	raw := strings.TrimSpace(string(s))
	if raw == "" {
		return nil
	}
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.ReplaceAll(raw, ",", "")
	d, err := decimal.NewFromString(raw)
	if err != nil {
		a.invalid = string(s)
		return nil
	}
	a.Decimal = d
	a.set = true
	return nil
}

func (a flexAmount) err() error {
	if a.invalid == "" {
		return nil
	}
	return fmt.Errorf("invalid amount %q", a.invalid)
}

// categoryRef accepts a category given as an ID string or as an embedded
// object with id/_id and name.
type categoryRef struct {
	ID   string
	Name string
}

func (r *categoryRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '{' {
		var obj struct {
			ID   flexString `json:"id"`
			OID  flexString `json:"_id"`
			Name string     `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		r.ID = firstNonEmpty(string(obj.ID), string(obj.OID))
		r.Name = obj.Name
		return nil
	}
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	r.ID = string(s)
	return nil
}

// parseDate turns a YYYY-MM-DD string or an RFC 3339 timestamp into a
// calendar date. Date-only strings are taken as-is; timestamps are converted
// to loc first so the day matches what the user saw.
func parseDate(raw string, loc *time.Location) (civil.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return civil.Date{}, nil
	}
	if d, err := civil.ParseDate(raw); err == nil {
		return d, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return civil.DateOf(t.In(loc)), nil
		}
	}
	return civil.Date{}, fmt.Errorf("unrecognized date %q", raw)
}

// decodeRows splits a JSON array into its elements so each row can be decoded
// on its own.
func decodeRows(data json.RawMessage) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// unwrapData returns the payload inside a {"data": ...} envelope, or body
// itself when the response is bare.
func unwrapData(body json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return trimmed
	}
	if data, ok := envelope["data"]; ok && len(data) > 0 && string(data) != "null" {
		return data
	}
	return trimmed
}

type rawCategory struct {
	ID               flexString  `json:"id"`
	OID              flexString  `json:"_id"`
	Name             string      `json:"name"`
	Type             string      `json:"type"`
	Icon             string      `json:"icon"`
	Color            string      `json:"color"`
	UserID           flexString  `json:"userId"`
	UserIDSnake      flexString  `json:"user_id"`
	ParentCategoryID *flexString `json:"parentCategoryId"`
	IsDefault        bool        `json:"isDefault"`
	IsDefaultSnake   bool        `json:"is_default"`
}

func (r rawCategory) toModel() models.Category {
	c := models.Category{
		ID:        firstNonEmpty(string(r.ID), string(r.OID)),
		Name:      r.Name,
		Type:      models.CategoryType(strings.ToLower(r.Type)),
		Icon:      r.Icon,
		Color:     r.Color,
		UserID:    firstNonEmpty(string(r.UserID), string(r.UserIDSnake)),
		IsDefault: r.IsDefault || r.IsDefaultSnake,
	}
	if r.ParentCategoryID != nil && *r.ParentCategoryID != "" {
		parent := string(*r.ParentCategoryID)
		c.ParentCategoryID = &parent
	}
	return c
}

type rawTransaction struct {
	ID              flexString  `json:"id"`
	OID             flexString  `json:"_id"`
	Amount          flexAmount  `json:"amount"`
	Description     string      `json:"description"`
	Merchant        string      `json:"merchant"`
	Date            string      `json:"date"`
	TransactionDate string      `json:"transactionDate"`
	Type            string      `json:"type"`
	TransactionType string      `json:"transactionType"`
	CategoryID      flexString  `json:"categoryId"`
	CategoryIDSnake flexString  `json:"category_id"`
	Category        categoryRef `json:"category"`
	CategoryName    string      `json:"categoryName"`
	Confidence      string      `json:"confidence"`
}

func (r rawTransaction) categoryID() string {
	return firstNonEmpty(string(r.CategoryID), string(r.CategoryIDSnake), r.Category.ID)
}

func (r rawTransaction) categoryName() string {
	return firstNonEmpty(r.CategoryName, r.Category.Name)
}

func (r rawTransaction) txType() models.TransactionType {
	return models.TransactionType(strings.ToLower(firstNonEmpty(r.Type, r.TransactionType)))
}

// toModel returns every field that could be read. A date or amount that
// could not be read is left zero and reported in the error.
func (r rawTransaction) toModel(loc *time.Location) (models.Transaction, error) {
	date, dateErr := parseDate(firstNonEmpty(r.Date, r.TransactionDate), loc)
	return models.Transaction{
		ID:           firstNonEmpty(string(r.ID), string(r.OID)),
		Amount:       r.Amount.Decimal,
		Description:  r.Description,
		Merchant:     r.Merchant,
		Date:         date,
		Type:         r.txType(),
		CategoryID:   r.categoryID(),
		CategoryName: r.categoryName(),
	}, errors.Join(dateErr, r.Amount.err())
}

// toExtracted converts one extracted row. An unreadable date leaves the item
// undated and is returned as the error alongside the item.
func (r rawTransaction) toExtracted(loc *time.Location) (models.ExtractedTransaction, error) {
	date, err := parseDate(firstNonEmpty(r.Date, r.TransactionDate), loc)
	txType := r.txType()
	if txType == "" {
		txType = models.TransactionTypeExpense
	}
	confidence := models.Confidence(strings.ToLower(r.Confidence))
	if confidence == "" {
		confidence = models.ConfidenceLow
	}
	return models.ExtractedTransaction{
		Amount:          r.Amount.Decimal.Abs(),
		Description:     r.Description,
		Date:            date,
		Merchant:        r.Merchant,
		CategoryID:      r.categoryID(),
		CategoryName:    r.categoryName(),
		TransactionType: txType,
		Confidence:      confidence,
	}, err
}

type rawInvestment struct {
	ID         flexString  `json:"id"`
	OID        flexString  `json:"_id"`
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	Amount     flexAmount  `json:"amount"`
	Date       string      `json:"date"`
	CategoryID flexString  `json:"categoryId"`
	Category   categoryRef `json:"category"`
}

func (r rawInvestment) toModel(loc *time.Location) (models.Investment, error) {
	date, dateErr := parseDate(r.Date, loc)
	return models.Investment{
		ID:         firstNonEmpty(string(r.ID), string(r.OID)),
		Name:       r.Name,
		Type:       models.InvestmentType(strings.ToLower(r.Type)),
		Amount:     r.Amount.Decimal,
		Date:       date,
		CategoryID: firstNonEmpty(string(r.CategoryID), r.Category.ID),
	}, errors.Join(dateErr, r.Amount.err())
}

type rawMonthlyBill struct {
	ID     flexString `json:"id"`
	OID    flexString `json:"_id"`
	Name   string     `json:"name"`
	Type   string     `json:"type"`
	Amount flexAmount `json:"amount"`
	DueDay int        `json:"dueDay"`
}

func (r rawMonthlyBill) toModel() models.MonthlyBill {
	return models.MonthlyBill{
		ID:     firstNonEmpty(string(r.ID), string(r.OID)),
		Name:   r.Name,
		Type:   models.BillType(strings.ToLower(r.Type)),
		Amount: r.Amount.Decimal,
		DueDay: r.DueDay,
	}
}

type rawSuggestion struct {
	CategoryID      flexString  `json:"categoryId"`
	Category        categoryRef `json:"category"`
	CategoryName    string      `json:"categoryName"`
	Confidence      string      `json:"confidence"`
	TransactionType string      `json:"transactionType"`
	Type            string      `json:"type"`
}

func (r rawSuggestion) toModel() models.CategorySuggestion {
	confidence := models.Confidence(strings.ToLower(r.Confidence))
	if confidence == "" {
		confidence = models.ConfidenceLow
	}
	return models.CategorySuggestion{
		CategoryID:      firstNonEmpty(string(r.CategoryID), r.Category.ID),
		CategoryName:    firstNonEmpty(r.CategoryName, r.Category.Name),
		Confidence:      confidence,
		TransactionType: models.TransactionType(strings.ToLower(firstNonEmpty(r.TransactionType, r.Type))),
	}
}

type rawBillScan struct {
	Amount          flexAmount `json:"amount"`
	Merchant        string     `json:"merchant"`
	Description     string     `json:"description"`
	Date            string     `json:"date"`
	Currency        string     `json:"currency"`
	TransactionType string     `json:"transactionType"`
	CategoryName    string     `json:"categoryName"`
}

func (r rawBillScan) toModel(loc *time.Location) (models.BillScan, error) {
	if err := r.Amount.err(); err != nil {
		return models.BillScan{}, err
	}
	date, err := parseDate(r.Date, loc)
	if err != nil {
		return models.BillScan{}, err
	}
	txType := models.TransactionType(strings.ToLower(r.TransactionType))
	if txType == "" {
		txType = models.TransactionTypeExpense
	}
	return models.BillScan{
		Amount:          r.Amount.Decimal,
		Merchant:        r.Merchant,
		Description:     r.Description,
		Date:            date,
		Currency:        r.Currency,
		TransactionType: txType,
		CategoryName:    r.CategoryName,
	}, nil
}

type rawTokens struct {
	AccessToken       string `json:"accessToken"`
	AccessTokenSnake  string `json:"access_token"`
	Token             string `json:"token"`
	RefreshToken      string `json:"refreshToken"`
	RefreshTokenSnake string `json:"refresh_token"`
}

// decodeTokens reads a token pair from a login or refresh response.
func decodeTokens(body []byte) (models.TokenPair, error) {
	var raw rawTokens
	if err := json.Unmarshal(unwrapData(body), &raw); err != nil {
		return models.TokenPair{}, fmt.Errorf("decoding token response: %w", err)
	}
	pair := models.TokenPair{
		AccessToken:  firstNonEmpty(raw.AccessToken, raw.AccessTokenSnake, raw.Token),
		RefreshToken: firstNonEmpty(raw.RefreshToken, raw.RefreshTokenSnake),
	}
	if !isRealToken(pair.AccessToken) {
		return models.TokenPair{}, fmt.Errorf("token response carried no access token")
	}
	return pair, nil
}
