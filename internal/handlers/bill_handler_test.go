package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/services"
	"fintrack/internal/testutil"
)

type mockBillScanService struct {
	scanFn func(ctx context.Context, fileName string, data []byte) (*models.BillScan, error)
}

func (m *mockBillScanService) ScanBill(ctx context.Context, fileName string, data []byte) (*models.BillScan, error) {
	return m.scanFn(ctx, fileName, data)
}

var _ services.BillScanServicer = (*mockBillScanService)(nil)

func TestBillHandler_ScanBill(t *testing.T) {
	svc := &mockBillScanService{scanFn: func(_ context.Context, _ string, data []byte) (*models.BillScan, error) {
		if len(data) == 0 {
			return nil, apperrors.ErrInvalidImageType
		}
		return &models.BillScan{Amount: decimal.RequireFromString("89.99"), Merchant: "Rogers"}, nil
	}}
	r := gin.New()
	r.POST("/bills/scan", NewBillHandler(svc, 0).ScanBill)

	rec := doMultipart(t, r, "POST", "/bills/scan", "image", "bill.png", testutil.TinyPNG(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if parseJSON(t, rec)["bill"].(map[string]interface{})["merchant"] != "Rogers" {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = doMultipart(t, r, "POST", "/bills/scan", "image", "empty.png", []byte{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "INVALID_IMAGE_TYPE")
}
