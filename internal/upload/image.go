package upload

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
)

// DefaultMaxImageBytes is the largest accepted image.
const DefaultMaxImageBytes = 10 << 20

// Image is a user-selected image held in memory until the session is reset.
type Image struct {
	FileName string
	MimeType string
	Data     []byte
}

// ValidateImage sniffs the content type of data and checks its size. The
// declared file name and type are never trusted.
func ValidateImage(fileName string, data []byte, maxBytes int64) (*Image, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	if len(data) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidImageType, "The selected file is empty")
	}
	if int64(len(data)) > maxBytes {
		return nil, apperrors.WithMessage(apperrors.ErrImageTooLarge,
			fmt.Sprintf("Image must be %s or smaller", formatBytes(maxBytes)))
	}
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, apperrors.ErrInvalidImageType
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Image{FileName: fileName, MimeType: mime.String(), Data: buf}, nil
}

// Payload encodes the image as plain base64, without a data-URL prefix.
func (img *Image) Payload() models.ImagePayload {
	return models.ImagePayload{
		Base64:   base64.StdEncoding.EncodeToString(img.Data),
		MimeType: img.MimeType,
	}
}

// DataURL returns the image as a data URL for previews.
func (img *Image) DataURL() string {
	return "data:" + img.MimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func formatBytes(n int64) string {
	const mb = 1 << 20
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%.1fMB", float64(n)/mb)
}
