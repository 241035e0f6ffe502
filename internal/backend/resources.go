package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"fintrack/internal/models"
)

// Login exchanges credentials for a token pair and persists it.
func (c *Client) Login(ctx context.Context, email, password string) (models.TokenPair, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("marshaling login request: %w", err)
	}
	status, body, err := c.send(ctx, http.MethodPost, "/auth/login", nil, payload, "")
	if err != nil {
		return models.TokenPair{}, err
	}
	if status < 200 || status > 299 {
		return models.TokenPair{}, newAPIError(http.MethodPost, "/auth/login", status, body)
	}
	pair, err := decodeTokens(body)
	if err != nil {
		return models.TokenPair{}, err
	}
	if c.tokens != nil {
		if err := c.tokens.SaveTokens(ctx, pair); err != nil {
			return models.TokenPair{}, fmt.Errorf("saving tokens: %w", err)
		}
	}
	return pair, nil
}

// Logout clears the stored tokens. The backend keeps no session to end.
func (c *Client) Logout(ctx context.Context) error {
	if c.tokens == nil {
		return nil
	}
	return c.tokens.ClearTokens(ctx)
}

// ListCategories returns the categories of the given type. An empty type
// lists every category.
func (c *Client) ListCategories(ctx context.Context, categoryType models.CategoryType) ([]models.Category, error) {
	query := url.Values{}
	if categoryType != "" {
		query.Set("type", string(categoryType))
	}
	var body json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/categories", query, nil, &body); err != nil {
		return nil, err
	}
	var raw []rawCategory
	if err := json.Unmarshal(unwrapData(body), &raw); err != nil {
		return nil, fmt.Errorf("decoding categories: %w", err)
	}
	categories := make([]models.Category, 0, len(raw))
	for _, r := range raw {
		categories = append(categories, r.toModel())
	}
	return categories, nil
}

// CreateCategory creates a category and returns it.
func (c *Client) CreateCategory(ctx context.Context, input models.CreateCategoryInput) (*models.Category, error) {
	var body json.RawMessage
	if err := c.call(ctx, http.MethodPost, "/categories", nil, input, &body); err != nil {
		return nil, err
	}
	var raw rawCategory
	if err := json.Unmarshal(unwrapData(body), &raw); err != nil {
		return nil, fmt.Errorf("decoding category: %w", err)
	}
	category := raw.toModel()
	return &category, nil
}

// ListTransactions returns one page of transactions matching query.
func (c *Client) ListTransactions(ctx context.Context, query models.TransactionQuery) (*models.TransactionPage, error) {
	values := url.Values{}
	if !query.StartDate.IsZero() {
		values.Set("startDate", query.StartDate.String())
	}
	if !query.EndDate.IsZero() {
		values.Set("endDate", query.EndDate.String())
	}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Type != "" {
		values.Set("type", string(query.Type))
	}

	var body json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/transactions", values, nil, &body); err != nil {
		return nil, err
	}

	var envelope struct {
		Data         json.RawMessage   `json:"data"`
		Transactions json.RawMessage   `json:"transactions"`
		Pagination   models.Pagination `json:"pagination"`
	}
	list := json.RawMessage(body)
	if err := json.Unmarshal(body, &envelope); err == nil {
		list = envelope.Transactions
		if len(envelope.Data) > 0 {
			list = envelope.Data
		}
	}
	rows, err := decodeRows(list)
	if err != nil {
		return nil, fmt.Errorf("decoding transactions: %w", err)
	}

	page := &models.TransactionPage{
		Transactions: make([]models.Transaction, 0, len(rows)),
		Pagination:   envelope.Pagination,
	}
	for i, row := range rows {
		var r rawTransaction
		if err := json.Unmarshal(row, &r); err != nil {
			c.log.Warnw("Skipping unreadable transaction", "index", i, "error", err)
			continue
		}
		tx, err := r.toModel(c.loc)
		if err != nil {
			c.log.Warnw("Skipping transaction with unreadable fields",
				"index", i,
				"id", tx.ID,
				"error", err,
			)
			continue
		}
		page.Transactions = append(page.Transactions, tx)
	}
	return page, nil
}

type createTransactionRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Merchant    string  `json:"merchant,omitempty"`
	Date        string  `json:"date"`
	Type        string  `json:"type"`
	CategoryID  string  `json:"categoryId,omitempty"`
}

// CreateTransaction creates one transaction.
func (c *Client) CreateTransaction(ctx context.Context, input models.CreateTransactionInput) (*models.Transaction, error) {
	req := createTransactionRequest{
		Amount:      input.Amount.InexactFloat64(),
		Description: input.Description,
		Merchant:    input.Merchant,
		Date:        input.Date.String(),
		Type:        string(input.Type),
		CategoryID:  input.CategoryID,
	}
	var body json.RawMessage
	if err := c.call(ctx, http.MethodPost, "/transactions", nil, req, &body); err != nil {
		return nil, err
	}
	// The transaction exists once the backend accepted it. Fields the echo
	// does not carry in a readable form are taken from the request.
	var raw rawTransaction
	if err := json.Unmarshal(unwrapData(body), &raw); err != nil {
		c.log.Warnw("Created transaction response could not be decoded", "error", err)
	}
	tx, err := raw.toModel(c.loc)
	if err != nil {
		c.log.Warnw("Created transaction echoed unreadable fields", "id", tx.ID, "error", err)
	}
	if tx.Date.IsZero() {
		tx.Date = input.Date
	}
	if !raw.Amount.set {
		tx.Amount = input.Amount
	}
	if tx.Description == "" {
		tx.Description = input.Description
	}
	if tx.Type == "" {
		tx.Type = input.Type
	}
	if tx.CategoryID == "" {
		tx.CategoryID = input.CategoryID
	}
	return &tx, nil
}

type createInvestmentRequest struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Amount     float64 `json:"amount"`
	Date       string  `json:"date,omitempty"`
	CategoryID string  `json:"categoryId,omitempty"`
}

// CreateInvestment creates one investment.
func (c *Client) CreateInvestment(ctx context.Context, input models.CreateInvestmentInput) (*models.Investment, error) {
	req := createInvestmentRequest{
		Name:       input.Name,
		Type:       string(input.Type),
		Amount:     input.Amount.InexactFloat64(),
		CategoryID: input.CategoryID,
	}
	if !input.Date.IsZero() {
		req.Date = input.Date.String()
	}
	var body json.RawMessage
	if err := c.call(ctx, http.MethodPost, "/investments", nil, req, &body); err != nil {
		return nil, err
	}
	var raw rawInvestment
	if err := json.Unmarshal(unwrapData(body), &raw); err != nil {
		c.log.Warnw("Created investment response could not be decoded", "error", err)
	}
	inv, err := raw.toModel(c.loc)
	if err != nil {
		c.log.Warnw("Created investment echoed unreadable fields", "id", inv.ID, "error", err)
	}
	if inv.Date.IsZero() {
		inv.Date = input.Date
	}
	if !raw.Amount.set {
		inv.Amount = input.Amount
	}
	if inv.Name == "" {
		inv.Name = input.Name
	}
	if inv.Type == "" {
		inv.Type = input.Type
	}
	return &inv, nil
}

type createMonthlyBillRequest struct {
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
	DueDay int     `json:"dueDay,omitempty"`
}

// CreateMonthlyBill creates one recurring monthly bill.
func (c *Client) CreateMonthlyBill(ctx context.Context, input models.CreateMonthlyBillInput) (*models.MonthlyBill, error) {
	req := createMonthlyBillRequest{
		Name:   input.Name,
		Type:   string(input.Type),
		Amount: input.Amount.InexactFloat64(),
		DueDay: input.DueDay,
	}
	var body json.RawMessage
	if err := c.call(ctx, http.MethodPost, "/monthly-bills", nil, req, &body); err != nil {
		return nil, err
	}
	var raw rawMonthlyBill
	if err := json.Unmarshal(unwrapData(body), &raw); err != nil {
		c.log.Warnw("Created monthly bill response could not be decoded", "error", err)
	}
	if err := raw.Amount.err(); err != nil {
		c.log.Warnw("Created monthly bill echoed unreadable fields", "id", firstNonEmpty(string(raw.ID), string(raw.OID)), "error", err)
	}
	bill := raw.toModel()
	if !raw.Amount.set {
		bill.Amount = input.Amount
	}
	if bill.Name == "" {
		bill.Name = input.Name
	}
	if bill.Type == "" {
		bill.Type = input.Type
	}
	if bill.DueDay == 0 {
		bill.DueDay = input.DueDay
	}
	return &bill, nil
}
