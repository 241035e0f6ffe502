package dedupe

import (
	"strings"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"fintrack/internal/models"
)

// amountEpsilon is the largest absolute difference at which two amounts are
// still considered equal.
var amountEpsilon = decimal.New(1, -2)

// AmountsMatch reports whether |a - b| < 0.01.
func AmountsMatch(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(amountEpsilon)
}

// SameDay reports whether two dates fall on the same calendar day.
func SameDay(a, b civil.Date) bool {
	return a == b
}

// DescriptionsMatch reports whether either description contains the other,
// ignoring case. When minLen is positive and the shorter description has
// fewer runes than minLen, the descriptions must instead be equal ignoring
// case.
func DescriptionsMatch(a, b string, minLen int) bool {
	la, lb := strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if minLen > 0 && min(utf8.RuneCountInString(la), utf8.RuneCountInString(lb)) < minLen {
		return la == lb
	}
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}

// IsDuplicate reports whether candidate matches existing on amount, day and
// description.
func IsDuplicate(candidate models.ExtractedTransaction, existing models.Transaction, minLen int) bool {
	return AmountsMatch(existing.Amount, candidate.Amount) &&
		SameDay(existing.Date, candidate.Date) &&
		DescriptionsMatch(existing.Description, candidate.Description, minLen)
}

// firstDuplicate returns the ID of the first existing transaction that
// candidate duplicates.
func firstDuplicate(candidate models.ExtractedTransaction, existing []models.Transaction, minLen int) (string, bool) {
	for _, tx := range existing {
		if IsDuplicate(candidate, tx, minLen) {
			return tx.ID, true
		}
	}
	return "", false
}
