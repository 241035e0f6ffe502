// Package categorize wraps the backend auto-categorization endpoint with the
// confidence gate and the user-facing error messages.
package categorize

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"fintrack/internal/backend"
	"fintrack/internal/models"
	"fintrack/internal/notify"
)

const (
	MsgLoginRequired = "Please log in to use auto-categorization"
	MsgUnavailable   = "Auto-categorization service is unavailable"
)

// Suggester asks the backend for a category suggestion.
type Suggester interface {
	AutoCategorize(ctx context.Context, description string, amount *decimal.Decimal) (*models.CategorySuggestion, error)
}

// Categorizer applies the confidence gate to backend suggestions.
type Categorizer struct {
	suggester Suggester
}

// New creates a Categorizer.
func New(s Suggester) *Categorizer {
	return &Categorizer{suggester: s}
}

// Result is the outcome of one auto-categorization attempt.
type Result struct {
	Suggestion *models.CategorySuggestion
	// Accepted is true when the suggestion should be applied to the form.
	Accepted bool
}

// Suggest calls the backend and gates the answer on confidence. Errors are
// reported to n and also returned; a low-confidence answer is returned
// unaccepted without any notification.
func (c *Categorizer) Suggest(ctx context.Context, n notify.Notifier, description string, amount *decimal.Decimal) (Result, error) {
	s, err := c.suggester.AutoCategorize(ctx, description, amount)
	if err != nil {
		if n != nil {
			n.Error(ErrorMessage(err))
		}
		return Result{}, err
	}
	return Result{Suggestion: s, Accepted: Accept(s)}, nil
}

// Accept reports whether a suggestion may be applied to form state.
func Accept(s *models.CategorySuggestion) bool {
	return s != nil && s.Confidence != models.ConfidenceLow
}

// ErrorMessage maps an auto-categorization failure to its user-facing text.
func ErrorMessage(err error) string {
	if errors.Is(err, backend.ErrSessionExpired) {
		return MsgLoginRequired
	}
	switch backend.StatusCode(err) {
	case http.StatusUnauthorized:
		return MsgLoginRequired
	case http.StatusNotFound:
		return MsgUnavailable
	}
	return backend.Message(err)
}
