package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/services"
	"fintrack/internal/upload"
)

// UploadHandler handles the bulk-upload flow.
type UploadHandler struct {
	uploadService services.UploadServicer
	runService    services.UploadRunServicer
	maxBytes      int64
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(uploadService services.UploadServicer, runService services.UploadRunServicer, maxBytes int64) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = upload.DefaultMaxImageBytes
	}
	return &UploadHandler{uploadService: uploadService, runService: runService, maxBytes: maxBytes}
}

// ProcessQuery selects background processing.
type ProcessQuery struct {
	Async bool `form:"async"`
}

// ResolveDuplicatesRequest chooses what to do with flagged items.
type ResolveDuplicatesRequest struct {
	Action string `json:"action" binding:"required,duplicate_action"`
}

// EditItemRequest edits one extracted item.
type EditItemRequest struct {
	Description *string `json:"description" binding:"omitempty,min=1,max=500"`
	CategoryID  *string `json:"category_id" binding:"omitempty,min=1"`
}

// DeleteItemQuery carries the delete confirmation.
type DeleteItemQuery struct {
	Confirm bool `form:"confirm"`
}

// SaveResponse is the outcome of a save with the session after it.
type SaveResponse struct {
	Result *upload.SaveResult   `json:"result"`
	Upload *services.UploadView `json:"upload"`
}

// CreateUpload opens an upload session
// @Summary     Open an upload session
// @Tags        uploads
// @Produce     json
// @Security    ApiKeyAuth
// @Success     201 {object} services.UploadView "Upload"
// @Router      /uploads [post]
func (h *UploadHandler) CreateUpload(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{"upload": h.uploadService.CreateUpload()})
}

// GetUpload returns the session, its progress and pending notifications
// @Summary     Get an upload session
// @Tags        uploads
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path string true "Upload ID"
// @Success     200 {object} services.UploadView "Upload"
// @Failure     404 {object} ErrorResponse "Upload not found"
// @Router      /uploads/{id} [get]
func (h *UploadHandler) GetUpload(c *gin.Context) {
	h.respond(c, http.StatusOK)(h.uploadService.GetUpload(c.Param("id")))
}

// SelectImage attaches an image to the session
// @Summary     Select an image
// @Tags        uploads
// @Accept      multipart/form-data
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path string true "Upload ID"
// @Param       image formData file true "Statement or receipt image"
// @Success     200 {object} services.UploadView "Upload"
// @Failure     400 {object} ErrorResponse "Invalid image"
// @Failure     409 {object} ErrorResponse "Invalid state"
// @Failure     413 {object} ErrorResponse "Image too large"
// @Router      /uploads/{id}/image [put]
func (h *UploadHandler) SelectImage(c *gin.Context) {
	name, data, err := readImage(c, h.maxBytes)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.respond(c, http.StatusOK)(h.uploadService.SelectImage(c.Param("id"), name, data))
}

// Process extracts transactions from the selected image
// @Summary     Process the image
// @Description Runs extraction and duplicate detection. The synchronous call can wait on one backend request per extracted item and can outlast the server write timeout for large statements; prefer async=true, which returns 202 immediately, and poll the session for progress.
// @Tags        uploads
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path string true "Upload ID"
// @Param       async query bool false "Process in the background"
// @Success     200 {object} services.UploadView "Upload"
// @Success     202 {object} services.UploadView "Processing started"
// @Failure     409 {object} ErrorResponse "Invalid state"
// @Failure     422 {object} ErrorResponse "No transactions found"
// @Failure     502 {object} ErrorResponse "Backend error"
// @Router      /uploads/{id}/process [post]
func (h *UploadHandler) Process(c *gin.Context) {
	var q ProcessQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	status := http.StatusOK
	if q.Async {
		status = http.StatusAccepted
	}
	h.respond(c, status)(h.uploadService.Process(c.Request.Context(), c.Param("id"), q.Async))
}

// ResolveDuplicates removes or keeps flagged duplicates
// @Summary     Resolve duplicates
// @Tags        uploads
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path string true "Upload ID"
// @Param       request body ResolveDuplicatesRequest true "remove or keep"
// @Success     200 {object} services.UploadView "Upload"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Invalid state"
// @Router      /uploads/{id}/duplicates [post]
func (h *UploadHandler) ResolveDuplicates(c *gin.Context) {
	var req ResolveDuplicatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	h.respond(c, http.StatusOK)(h.uploadService.ResolveDuplicates(c.Param("id"), models.DuplicateAction(req.Action)))
}

// EditItem changes an extracted item's description or category
// @Summary     Edit an item
// @Tags        uploads
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path string true "Upload ID"
// @Param       index path int true "Item index"
// @Param       request body EditItemRequest true "Changes"
// @Success     200 {object} services.UploadView "Upload"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Item or category not found"
// @Failure     409 {object} ErrorResponse "Invalid state"
// @Router      /uploads/{id}/items/{index} [patch]
func (h *UploadHandler) EditItem(c *gin.Context) {
	index, err := parseIndex(c, "index")
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req EditItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	patch := services.ItemPatch{Description: req.Description, CategoryID: req.CategoryID}
	h.respond(c, http.StatusOK)(h.uploadService.EditItem(c.Request.Context(), c.Param("id"), index, patch))
}

// DeleteItem removes an extracted item
// @Summary     Delete an item
// @Tags        uploads
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path string true "Upload ID"
// @Param       index path int true "Item index"
// @Param       confirm query bool true "Must be true"
// @Success     200 {object} services.UploadView "Upload"
// @Failure     404 {object} ErrorResponse "Item not found"
// @Failure     428 {object} ErrorResponse "Confirmation required"
// @Router      /uploads/{id}/items/{index} [delete]
func (h *UploadHandler) DeleteItem(c *gin.Context) {
	index, err := parseIndex(c, "index")
	if err != nil {
		respondWithError(c, err)
		return
	}
	var q DeleteItemQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	h.respond(c, http.StatusOK)(h.uploadService.DeleteItem(c.Param("id"), index, q.Confirm))
}

// Save creates one backend transaction per reviewed item
// @Summary     Save reviewed transactions
// @Tags        uploads
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path string true "Upload ID"
// @Success     200 {object} SaveResponse "Save outcome"
// @Failure     400 {object} ErrorResponse "Nothing to save"
// @Failure     409 {object} ErrorResponse "Invalid state"
// @Router      /uploads/{id}/save [post]
func (h *UploadHandler) Save(c *gin.Context) {
	result, view, err := h.uploadService.Save(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, SaveResponse{Result: result, Upload: view})
}

// Reset clears the session back to Idle
// @Summary     Reset an upload
// @Tags        uploads
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id path string true "Upload ID"
// @Success     200 {object} services.UploadView "Upload"
// @Failure     404 {object} ErrorResponse "Upload not found"
// @Router      /uploads/{id}/reset [post]
func (h *UploadHandler) Reset(c *gin.Context) {
	h.respond(c, http.StatusOK)(h.uploadService.Reset(c.Param("id")))
}

// CloseUpload resets and removes the session
// @Summary     Close an upload
// @Tags        uploads
// @Security    ApiKeyAuth
// @Param       id path string true "Upload ID"
// @Success     204 "Closed"
// @Failure     404 {object} ErrorResponse "Upload not found"
// @Router      /uploads/{id} [delete]
func (h *UploadHandler) CloseUpload(c *gin.Context) {
	if err := h.uploadService.CloseUpload(c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Preview serves the selected image bytes
// @Summary     Preview the selected image
// @Tags        uploads
// @Produce     image/png
// @Produce     image/jpeg
// @Security    ApiKeyAuth
// @Param       id path string true "Upload ID"
// @Success     200 {file} binary "Image"
// @Failure     404 {object} ErrorResponse "No image selected"
// @Router      /uploads/{id}/preview [get]
func (h *UploadHandler) Preview(c *gin.Context) {
	img, err := h.uploadService.Preview(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, img.MimeType, img.Data)
}

// History lists recorded bulk saves, most recent first
// @Summary     Upload history
// @Tags        uploads
// @Produce     json
// @Security    ApiKeyAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size (max 100)"
// @Success     200 {object} pagination.PageResponse[models.UploadRun] "Runs"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /uploads/history [get]
func (h *UploadHandler) History(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	runs, err := h.runService.ListRuns(c.Request.Context(), page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

// respond writes the upload view under the "upload" key or the error.
func (h *UploadHandler) respond(c *gin.Context, status int) func(*services.UploadView, error) {
	return func(view *services.UploadView, err error) {
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(status, gin.H{"upload": view})
	}
}
