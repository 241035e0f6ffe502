package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fintrack/internal/services"
	"fintrack/internal/upload"
)

// BillHandler handles single-bill scans.
type BillHandler struct {
	billService services.BillScanServicer
	maxBytes    int64
}

// NewBillHandler creates a new BillHandler
func NewBillHandler(billService services.BillScanServicer, maxBytes int64) *BillHandler {
	if maxBytes <= 0 {
		maxBytes = upload.DefaultMaxImageBytes
	}
	return &BillHandler{billService: billService, maxBytes: maxBytes}
}

// ScanBill reads one receipt or bill for pre-filling a quick-add form
// @Summary     Scan a bill
// @Tags        bills
// @Accept      multipart/form-data
// @Produce     json
// @Security    ApiKeyAuth
// @Param       image formData file true "Bill or receipt image"
// @Success     200 {object} models.BillScan "Scanned bill"
// @Failure     400 {object} ErrorResponse "Invalid image"
// @Failure     413 {object} ErrorResponse "Image too large"
// @Failure     502 {object} ErrorResponse "Backend error"
// @Router      /bills/scan [post]
func (h *BillHandler) ScanBill(c *gin.Context) {
	name, data, err := readImage(c, h.maxBytes)
	if err != nil {
		respondWithError(c, err)
		return
	}
	scan, err := h.billService.ScanBill(c.Request.Context(), name, data)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bill": scan})
}
