package services

import (
	"context"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/upload"
)

type billScanService struct {
	backend  Backend
	maxBytes int64
}

// NewBillScanService creates a new BillScanServicer.
func NewBillScanService(backend Backend, maxBytes int64) BillScanServicer {
	return &billScanService{backend: backend, maxBytes: maxBytes}
}

// ScanBill validates the image like an upload does and reads one bill from it.
func (s *billScanService) ScanBill(ctx context.Context, fileName string, data []byte) (*models.BillScan, error) {
	img, err := upload.ValidateImage(fileName, data, s.maxBytes)
	if err != nil {
		return nil, err
	}
	scan, err := s.backend.ScanBill(ctx, img.Payload())
	if err != nil {
		return nil, apperrors.FromBackend(err)
	}
	return scan, nil
}
