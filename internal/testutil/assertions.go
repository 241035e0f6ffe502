package testutil

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/notify"
)

// AssertAppError fails unless err is an *AppError carrying code.
func AssertAppError(t *testing.T, err error, code string) *apperrors.AppError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected AppError %s, got nil", code)
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError %s, got %T: %v", code, err, err)
	}
	if appErr.Code != code {
		t.Errorf("expected code %s, got %s (%s)", code, appErr.Code, appErr.Message)
	}
	return appErr
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertLevels fails unless notes has exactly the given levels, in order.
func AssertLevels(t *testing.T, notes []notify.Notification, levels ...notify.Level) {
	t.Helper()
	if len(notes) != len(levels) {
		t.Fatalf("expected %d notification(s), got %+v", len(levels), notes)
	}
	for i, n := range notes {
		if n.Level != levels[i] {
			t.Errorf("notification %d: expected %s, got %s (%q)", i, levels[i], n.Level, n.Message)
		}
	}
}

// AssertAmount compares a decimal amount against its string form.
func AssertAmount(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("expected amount %s, got %s", want, got)
	}
}
