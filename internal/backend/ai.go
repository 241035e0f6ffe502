package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"fintrack/internal/models"
)

type imageRequest struct {
	Image    string `json:"image"`
	MimeType string `json:"mimeType"`
}

// ExtractTransactions sends an image to the extraction endpoint and returns
// the transactions read from it.
func (c *Client) ExtractTransactions(ctx context.Context, image models.ImagePayload) ([]models.ExtractedTransaction, error) {
	var body json.RawMessage
	req := imageRequest{Image: image.Base64, MimeType: image.MimeType}
	if err := c.call(ctx, http.MethodPost, "/ai/extract-transactions", nil, req, &body); err != nil {
		return nil, err
	}

	var envelope struct {
		Transactions json.RawMessage `json:"transactions"`
	}
	if err := json.Unmarshal(unwrapData(body), &envelope); err != nil {
		return nil, fmt.Errorf("decoding extracted transactions: %w", err)
	}
	rows, err := decodeRows(envelope.Transactions)
	if err != nil {
		return nil, fmt.Errorf("decoding extracted transactions: %w", err)
	}

	out := make([]models.ExtractedTransaction, 0, len(rows))
	for i, row := range rows {
		var r rawTransaction
		if err := json.Unmarshal(row, &r); err != nil {
			c.log.Warnw("Skipping unreadable extracted transaction", "index", i, "error", err)
			continue
		}
		if err := r.Amount.err(); err != nil {
			c.log.Warnw("Skipping extracted transaction without a usable amount",
				"index", i,
				"description", r.Description,
				"error", err,
			)
			continue
		}
		tx, err := r.toExtracted(c.loc)
		if err != nil {
			c.log.Warnw("Keeping extracted transaction undated",
				"index", i,
				"description", r.Description,
				"error", err,
			)
		}
		out = append(out, tx)
	}
	return out, nil
}

type autoCategorizeRequest struct {
	Description string   `json:"description"`
	Amount      *float64 `json:"amount,omitempty"`
}

// AutoCategorize asks the backend to suggest a category for a description.
// amount is optional.
func (c *Client) AutoCategorize(ctx context.Context, description string, amount *decimal.Decimal) (*models.CategorySuggestion, error) {
	req := autoCategorizeRequest{Description: description}
	if amount != nil {
		f := amount.InexactFloat64()
		req.Amount = &f
	}
	var body json.RawMessage
	if err := c.call(ctx, http.MethodPost, "/ai/auto-categorize", nil, req, &body); err != nil {
		return nil, err
	}
	var raw rawSuggestion
	if err := json.Unmarshal(unwrapData(body), &raw); err != nil {
		return nil, fmt.Errorf("decoding suggestion: %w", err)
	}
	suggestion := raw.toModel()
	return &suggestion, nil
}

// ScanBill reads a single receipt or bill image.
func (c *Client) ScanBill(ctx context.Context, image models.ImagePayload) (*models.BillScan, error) {
	var body json.RawMessage
	req := imageRequest{Image: image.Base64, MimeType: image.MimeType}
	if err := c.call(ctx, http.MethodPost, "/ai/scan-bill", nil, req, &body); err != nil {
		return nil, err
	}
	var raw rawBillScan
	if err := json.Unmarshal(unwrapData(body), &raw); err != nil {
		return nil, fmt.Errorf("decoding bill scan: %w", err)
	}
	scan, err := raw.toModel(c.loc)
	if err != nil {
		return nil, fmt.Errorf("decoding bill scan: %w", err)
	}
	return &scan, nil
}
