// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"fintrack/internal/models"
	"fintrack/internal/quickadd"
)

var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom validators on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("hex_color", validateHexColor)
	_ = v.RegisterValidation("transaction_type", validateTransactionType)
	_ = v.RegisterValidation("category_type", validateCategoryType)
	_ = v.RegisterValidation("form_kind", validateFormKind)
	_ = v.RegisterValidation("duplicate_action", validateDuplicateAction)
	_ = v.RegisterValidation("investment_type", validateInvestmentType)
	_ = v.RegisterValidation("bill_type", validateBillType)
}

func validateHexColor(fl validator.FieldLevel) bool {
	return hexColorRegex.MatchString(fl.Field().String())
}

func validateTransactionType(fl validator.FieldLevel) bool {
	switch models.TransactionType(fl.Field().String()) {
	case models.TransactionTypeIncome, models.TransactionTypeExpense:
		return true
	}
	return false
}

func validateCategoryType(fl validator.FieldLevel) bool {
	switch models.CategoryType(fl.Field().String()) {
	case models.CategoryTypeIncome, models.CategoryTypeExpense, models.CategoryTypeInvestment:
		return true
	}
	return false
}

func validateFormKind(fl validator.FieldLevel) bool {
	return quickadd.Kind(fl.Field().String()).Valid()
}

func validateDuplicateAction(fl validator.FieldLevel) bool {
	switch models.DuplicateAction(fl.Field().String()) {
	case models.DuplicateActionRemove, models.DuplicateActionKeep:
		return true
	}
	return false
}

func validateInvestmentType(fl validator.FieldLevel) bool {
	switch models.InvestmentType(fl.Field().String()) {
	case models.InvestmentTypeStocks, models.InvestmentTypeMutualFunds, models.InvestmentTypeCrypto,
		models.InvestmentTypeRealEstate, models.InvestmentTypeOther:
		return true
	}
	return false
}

func validateBillType(fl validator.FieldLevel) bool {
	switch models.BillType(fl.Field().String()) {
	case models.BillTypeHome, models.BillTypeMobile, models.BillTypeInternet, models.BillTypeGym, models.BillTypeOther:
		return true
	}
	return false
}
