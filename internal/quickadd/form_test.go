package quickadd

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/backend"
	"fintrack/internal/models"
	"fintrack/internal/notify"
	"fintrack/internal/testutil"
)

type mockBackend struct {
	mu sync.Mutex

	AutoCategorizeFn    func(ctx context.Context, description string, amount *decimal.Decimal) (*models.CategorySuggestion, error)
	ListCategoriesFn    func(ctx context.Context, categoryType models.CategoryType) ([]models.Category, error)
	CreateTransactionFn func(ctx context.Context, input models.CreateTransactionInput) (*models.Transaction, error)
	CreateInvestmentFn  func(ctx context.Context, input models.CreateInvestmentInput) (*models.Investment, error)
	CreateMonthlyBillFn func(ctx context.Context, input models.CreateMonthlyBillInput) (*models.MonthlyBill, error)

	categorizeCalls []string
	createCalls     int
}

func (m *mockBackend) AutoCategorize(ctx context.Context, description string, amount *decimal.Decimal) (*models.CategorySuggestion, error) {
	m.mu.Lock()
	m.categorizeCalls = append(m.categorizeCalls, description)
	m.mu.Unlock()
	if m.AutoCategorizeFn != nil {
		return m.AutoCategorizeFn(ctx, description, amount)
	}
	return &models.CategorySuggestion{Confidence: models.ConfidenceLow}, nil
}

func (m *mockBackend) ListCategories(ctx context.Context, categoryType models.CategoryType) ([]models.Category, error) {
	if m.ListCategoriesFn != nil {
		return m.ListCategoriesFn(ctx, categoryType)
	}
	return nil, nil
}

func (m *mockBackend) CreateTransaction(ctx context.Context, input models.CreateTransactionInput) (*models.Transaction, error) {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()
	if m.CreateTransactionFn != nil {
		return m.CreateTransactionFn(ctx, input)
	}
	return &models.Transaction{ID: "t1", Amount: input.Amount, Description: input.Description, Type: input.Type}, nil
}

func (m *mockBackend) CreateInvestment(ctx context.Context, input models.CreateInvestmentInput) (*models.Investment, error) {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()
	if m.CreateInvestmentFn != nil {
		return m.CreateInvestmentFn(ctx, input)
	}
	return &models.Investment{ID: "i1", Name: input.Name, Type: input.Type, CategoryID: input.CategoryID}, nil
}

func (m *mockBackend) CreateMonthlyBill(ctx context.Context, input models.CreateMonthlyBillInput) (*models.MonthlyBill, error) {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()
	if m.CreateMonthlyBillFn != nil {
		return m.CreateMonthlyBillFn(ctx, input)
	}
	return &models.MonthlyBill{ID: "b1", Name: input.Name, Type: input.Type}, nil
}

func newTestForm(kind Kind, be *mockBackend) (*Form, *testutil.FakeClock, *notify.Buffer) {
	clk := testutil.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	buf := notify.NewBuffer()
	f := New(Options{
		ID:       "form-1",
		Kind:     kind,
		Backend:  be,
		Clock:    clk,
		Delay:    time.Second,
		Location: time.UTC,
		Notifier: buf,
	})
	return f, clk, buf
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestForm_DebounceCollapsesTyping(t *testing.T) {
	be := &mockBackend{}
	f, clk, _ := newTestForm(KindTransaction, be)

	for _, text := range []string{"c", "co", "cof", "coffee"} {
		require.NoError(t, f.SetText(text))
		clk.Advance(200 * time.Millisecond)
	}
	assert.Empty(t, be.categorizeCalls)

	clk.Advance(799 * time.Millisecond)
	assert.Empty(t, be.categorizeCalls)

	clk.Advance(time.Millisecond)
	assert.Equal(t, []string{"coffee"}, be.categorizeCalls)
}

func TestForm_ConfidenceGate(t *testing.T) {
	t.Run("low confidence leaves fields unchanged", func(t *testing.T) {
		be := &mockBackend{AutoCategorizeFn: func(context.Context, string, *decimal.Decimal) (*models.CategorySuggestion, error) {
			return &models.CategorySuggestion{CategoryID: "c-income", TransactionType: models.TransactionTypeIncome, Confidence: models.ConfidenceLow}, nil
		}}
		f, clk, buf := newTestForm(KindTransaction, be)

		require.NoError(t, f.SetText("mystery"))
		clk.Advance(time.Second)

		v := f.View()
		assert.Equal(t, models.TransactionTypeExpense, v.Fields.Type)
		assert.Empty(t, v.Fields.CategoryID)
		assert.False(t, v.Categorized)
		assert.True(t, v.CanCategorizeNow)
		assert.Empty(t, buf.Drain())
	})

	t.Run("medium confidence applies type and category", func(t *testing.T) {
		be := &mockBackend{AutoCategorizeFn: func(context.Context, string, *decimal.Decimal) (*models.CategorySuggestion, error) {
			return &models.CategorySuggestion{CategoryID: "c-salary", CategoryName: "Salary", TransactionType: models.TransactionTypeIncome, Confidence: models.ConfidenceMedium}, nil
		}}
		f, clk, _ := newTestForm(KindTransaction, be)

		require.NoError(t, f.SetText("paycheck"))
		clk.Advance(time.Second)

		v := f.View()
		assert.Equal(t, models.TransactionTypeIncome, v.Fields.Type)
		assert.Equal(t, "c-salary", v.Fields.CategoryID)
		assert.True(t, v.Categorized)
		assert.False(t, v.CanCategorizeNow)

		require.NoError(t, f.SetText("paycheck bonus"))
		assert.False(t, f.View().Categorized, "changing the text resets the flag")
	})
}

func TestForm_TextLengthRules(t *testing.T) {
	t.Run("empty text cancels pending call", func(t *testing.T) {
		be := &mockBackend{}
		f, clk, _ := newTestForm(KindTransaction, be)

		require.NoError(t, f.SetText("coffee"))
		require.NoError(t, f.SetText("   "))
		clk.Advance(2 * time.Second)
		assert.Empty(t, be.categorizeCalls)
	})

	t.Run("short text leaves pending call and stale result is dropped", func(t *testing.T) {
		be := &mockBackend{AutoCategorizeFn: func(context.Context, string, *decimal.Decimal) (*models.CategorySuggestion, error) {
			return &models.CategorySuggestion{CategoryID: "c1", Confidence: models.ConfidenceHigh}, nil
		}}
		f, clk, _ := newTestForm(KindTransaction, be)

		require.NoError(t, f.SetText("coffee"))
		require.NoError(t, f.SetText("co"))
		clk.Advance(time.Second)

		assert.Equal(t, []string{"coffee"}, be.categorizeCalls)
		assert.Empty(t, f.View().Fields.CategoryID)
	})
}

func TestForm_CategorizeNow(t *testing.T) {
	be := &mockBackend{AutoCategorizeFn: func(context.Context, string, *decimal.Decimal) (*models.CategorySuggestion, error) {
		return &models.CategorySuggestion{CategoryID: "c1", Confidence: models.ConfidenceHigh, TransactionType: models.TransactionTypeExpense}, nil
	}}
	f, clk, _ := newTestForm(KindTransaction, be)

	require.NoError(t, f.SetText("co"))
	assert.ErrorIs(t, f.CategorizeNow(context.Background()), ErrCannotCategorize)

	require.NoError(t, f.SetText("groceries"))
	require.NoError(t, f.CategorizeNow(context.Background()))
	assert.Equal(t, []string{"groceries"}, be.categorizeCalls)
	assert.Equal(t, "c1", f.View().Fields.CategoryID)

	clk.Advance(2 * time.Second)
	assert.Len(t, be.categorizeCalls, 1, "manual trigger cancels the debounced call")

	assert.ErrorIs(t, f.CategorizeNow(context.Background()), ErrCannotCategorize)
}

func TestForm_ErrorNotification(t *testing.T) {
	be := &mockBackend{AutoCategorizeFn: func(context.Context, string, *decimal.Decimal) (*models.CategorySuggestion, error) {
		return nil, &backend.APIError{StatusCode: 404}
	}}
	f, clk, buf := newTestForm(KindTransaction, be)

	require.NoError(t, f.SetText("coffee"))
	clk.Advance(time.Second)

	got := buf.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, "Auto-categorization service is unavailable", got[0].Message)
	assert.True(t, f.View().CanCategorizeNow, "failures never block the form")
}

func TestForm_CloseDropsPending(t *testing.T) {
	be := &mockBackend{}
	f, clk, _ := newTestForm(KindTransaction, be)

	require.NoError(t, f.SetText("coffee"))
	f.Close()
	clk.Advance(2 * time.Second)

	assert.Empty(t, be.categorizeCalls)
	assert.ErrorIs(t, f.SetText("tea"), ErrClosed)
	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestForm_Investment(t *testing.T) {
	categories := []models.Category{
		{ID: "inv-a", Name: "Retirement", Type: models.CategoryTypeInvestment},
		{ID: "inv-b", Name: "Investment", Type: models.CategoryTypeInvestment},
	}

	t.Run("classifies and resolves category", func(t *testing.T) {
		be := &mockBackend{ListCategoriesFn: func(context.Context, models.CategoryType) ([]models.Category, error) {
			return categories, nil
		}}
		f, clk, _ := newTestForm(KindInvestment, be)

		require.NoError(t, f.SetText("Apple Inc"))
		clk.Advance(time.Second)

		v := f.View()
		require.NotNil(t, v.InvestmentSuggestion)
		assert.Equal(t, models.InvestmentTypeStocks, v.Fields.InvestmentType)
		assert.Equal(t, "inv-b", v.Fields.CategoryID)
		assert.True(t, v.Categorized)
		assert.Empty(t, be.categorizeCalls, "investments never call the remote categorizer")
	})

	t.Run("submit falls back to first investment category", func(t *testing.T) {
		var got models.CreateInvestmentInput
		be := &mockBackend{
			ListCategoriesFn: func(context.Context, models.CategoryType) ([]models.Category, error) {
				return categories[:1], nil
			},
			CreateInvestmentFn: func(_ context.Context, in models.CreateInvestmentInput) (*models.Investment, error) {
				got = in
				return &models.Investment{ID: "i9"}, nil
			},
		}
		f, clk, buf := newTestForm(KindInvestment, be)

		require.NoError(t, f.SetText("Bitcoin"))
		clk.Advance(time.Second)
		assert.Empty(t, f.View().Fields.CategoryID)

		require.NoError(t, f.SetFields(FieldsPatch{Amount: dec("250")}))
		res, err := f.Submit(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "i9", res.Investment.ID)
		assert.Equal(t, "inv-a", got.CategoryID)
		assert.Equal(t, models.InvestmentTypeCrypto, got.Type)
		assert.Equal(t, "Bitcoin", got.Name)
		assert.Equal(t, notify.LevelSuccess, buf.Drain()[0].Level)
		assert.Empty(t, f.View().Text, "form is cleared after submit")
	})

	t.Run("submit without any investment category", func(t *testing.T) {
		var got models.CreateInvestmentInput
		be := &mockBackend{CreateInvestmentFn: func(_ context.Context, in models.CreateInvestmentInput) (*models.Investment, error) {
			got = in
			return &models.Investment{ID: "i1"}, nil
		}}
		f, _, _ := newTestForm(KindInvestment, be)
		require.NoError(t, f.SetText("Gold bars"))
		require.NoError(t, f.SetFields(FieldsPatch{Amount: dec("10")}))

		_, err := f.Submit(context.Background())
		require.NoError(t, err)
		assert.Empty(t, got.CategoryID)
		assert.Equal(t, models.InvestmentTypeOther, got.Type)
	})
}

func TestForm_Bill(t *testing.T) {
	var got models.CreateMonthlyBillInput
	be := &mockBackend{CreateMonthlyBillFn: func(_ context.Context, in models.CreateMonthlyBillInput) (*models.MonthlyBill, error) {
		got = in
		return &models.MonthlyBill{ID: "b1"}, nil
	}}
	f, clk, _ := newTestForm(KindBill, be)

	require.NoError(t, f.SetText("Home Internet"))
	clk.Advance(time.Second)
	assert.Equal(t, models.BillTypeInternet, f.View().Fields.BillType)

	day := 15
	require.NoError(t, f.SetFields(FieldsPatch{Amount: dec("60"), DueDay: &day}))
	_, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.BillTypeInternet, got.Type)
	assert.Equal(t, 15, got.DueDay)
}

func TestForm_SubmitValidation(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		amt   *decimal.Decimal
		field string
	}{
		{"missing description", "", dec("5"), "description"},
		{"missing amount", "coffee", nil, "amount"},
		{"zero amount", "coffee", dec("0"), "amount"},
		{"negative amount", "coffee", dec("-3"), "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := &mockBackend{}
			f, _, _ := newTestForm(KindTransaction, be)
			require.NoError(t, f.SetText(tt.text))
			if tt.amt != nil {
				require.NoError(t, f.SetFields(FieldsPatch{Amount: tt.amt}))
			}

			_, err := f.Submit(context.Background())
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Zero(t, be.createCalls, "no network call on validation failure")
		})
	}
}

func TestForm_SubmitTransaction(t *testing.T) {
	var got models.CreateTransactionInput
	be := &mockBackend{CreateTransactionFn: func(_ context.Context, in models.CreateTransactionInput) (*models.Transaction, error) {
		got = in
		return &models.Transaction{ID: "t7"}, nil
	}}
	f, _, buf := newTestForm(KindTransaction, be)

	require.NoError(t, f.SetText("  Lunch  "))
	cat := "c-food"
	require.NoError(t, f.SetFields(FieldsPatch{Amount: dec("12.40"), CategoryID: &cat}))

	res, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t7", res.Transaction.ID)
	assert.Equal(t, "Lunch", got.Description)
	assert.Equal(t, models.TransactionTypeExpense, got.Type)
	assert.Equal(t, "c-food", got.CategoryID)
	assert.Equal(t, "2024-03-10", got.Date.String())
	assert.Equal(t, "Transaction added successfully", buf.Drain()[0].Message)
}

func TestForm_SubmitBackendError(t *testing.T) {
	be := &mockBackend{CreateTransactionFn: func(context.Context, models.CreateTransactionInput) (*models.Transaction, error) {
		return nil, &backend.APIError{StatusCode: 400, Message: "Category does not exist"}
	}}
	f, _, buf := newTestForm(KindTransaction, be)
	require.NoError(t, f.SetText("Lunch"))
	require.NoError(t, f.SetFields(FieldsPatch{Amount: dec("1")}))

	_, err := f.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Category does not exist", buf.Drain()[0].Message)
	assert.Equal(t, "Lunch", f.View().Text, "form keeps its values after a failed submit")
}
