package quickadd

import "errors"

var (
	// ErrClosed is returned by operations on a closed form.
	ErrClosed = errors.New("form is closed")
	// ErrCannotCategorize is returned by CategorizeNow when the text is too
	// short or a suggestion was already accepted.
	ErrCannotCategorize = errors.New("categorization not available")
)

// ValidationError is a missing or invalid form value found before any
// network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
