package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"fintrack/internal/models"
)

var errNotMocked = errors.New("not mocked")

// mockBackend implements Backend with overridable funcs.
type mockBackend struct {
	loginFn          func(ctx context.Context, email, password string) (models.TokenPair, error)
	logoutFn         func(ctx context.Context) error
	listCategoriesFn func(ctx context.Context, categoryType models.CategoryType) ([]models.Category, error)
	createCategoryFn func(ctx context.Context, input models.CreateCategoryInput) (*models.Category, error)
	listTxnsFn       func(ctx context.Context, query models.TransactionQuery) (*models.TransactionPage, error)
	createTxnFn      func(ctx context.Context, input models.CreateTransactionInput) (*models.Transaction, error)
	createInvFn      func(ctx context.Context, input models.CreateInvestmentInput) (*models.Investment, error)
	createBillFn     func(ctx context.Context, input models.CreateMonthlyBillInput) (*models.MonthlyBill, error)
	extractFn        func(ctx context.Context, image models.ImagePayload) ([]models.ExtractedTransaction, error)
	autoCategorizeFn func(ctx context.Context, description string, amount *decimal.Decimal) (*models.CategorySuggestion, error)
	scanBillFn       func(ctx context.Context, image models.ImagePayload) (*models.BillScan, error)
}

func (m *mockBackend) Login(ctx context.Context, email, password string) (models.TokenPair, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return models.TokenPair{}, errNotMocked
}

func (m *mockBackend) Logout(ctx context.Context) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx)
	}
	return nil
}

func (m *mockBackend) ListCategories(ctx context.Context, categoryType models.CategoryType) ([]models.Category, error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(ctx, categoryType)
	}
	return nil, nil
}

func (m *mockBackend) CreateCategory(ctx context.Context, input models.CreateCategoryInput) (*models.Category, error) {
	if m.createCategoryFn != nil {
		return m.createCategoryFn(ctx, input)
	}
	return nil, errNotMocked
}

func (m *mockBackend) ListTransactions(ctx context.Context, query models.TransactionQuery) (*models.TransactionPage, error) {
	if m.listTxnsFn != nil {
		return m.listTxnsFn(ctx, query)
	}
	return &models.TransactionPage{}, nil
}

func (m *mockBackend) CreateTransaction(ctx context.Context, input models.CreateTransactionInput) (*models.Transaction, error) {
	if m.createTxnFn != nil {
		return m.createTxnFn(ctx, input)
	}
	return nil, errNotMocked
}

func (m *mockBackend) CreateInvestment(ctx context.Context, input models.CreateInvestmentInput) (*models.Investment, error) {
	if m.createInvFn != nil {
		return m.createInvFn(ctx, input)
	}
	return nil, errNotMocked
}

func (m *mockBackend) CreateMonthlyBill(ctx context.Context, input models.CreateMonthlyBillInput) (*models.MonthlyBill, error) {
	if m.createBillFn != nil {
		return m.createBillFn(ctx, input)
	}
	return nil, errNotMocked
}

func (m *mockBackend) ExtractTransactions(ctx context.Context, image models.ImagePayload) ([]models.ExtractedTransaction, error) {
	if m.extractFn != nil {
		return m.extractFn(ctx, image)
	}
	return nil, errNotMocked
}

func (m *mockBackend) AutoCategorize(ctx context.Context, description string, amount *decimal.Decimal) (*models.CategorySuggestion, error) {
	if m.autoCategorizeFn != nil {
		return m.autoCategorizeFn(ctx, description, amount)
	}
	return nil, errNotMocked
}

func (m *mockBackend) ScanBill(ctx context.Context, image models.ImagePayload) (*models.BillScan, error) {
	if m.scanBillFn != nil {
		return m.scanBillFn(ctx, image)
	}
	return nil, errNotMocked
}
