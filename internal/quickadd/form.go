// Package quickadd implements the quick-add form drafts: free text is
// classified after the user stops typing, a suggestion fills in the type and
// category, and Submit creates the record on the backend.
package quickadd

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fintrack/internal/backend"
	"fintrack/internal/categorize"
	"fintrack/internal/classifier"
	"fintrack/internal/clock"
	"fintrack/internal/debounce"
	"fintrack/internal/models"
	"fintrack/internal/notify"
)

// MinClassifyLength is the trimmed text length at which classification runs.
const MinClassifyLength = 3

// Kind selects what a form creates and how it classifies its text.
type Kind string

const (
	KindTransaction Kind = "transaction"
	KindInvestment  Kind = "investment"
	KindBill        Kind = "bill"
)

// Valid reports whether k is a known form kind.
func (k Kind) Valid() bool {
	switch k {
	case KindTransaction, KindInvestment, KindBill:
		return true
	}
	return false
}

// Backend is the part of the finance API a form needs.
type Backend interface {
	categorize.Suggester
	classifier.CategoryLister
	CreateTransaction(ctx context.Context, input models.CreateTransactionInput) (*models.Transaction, error)
	CreateInvestment(ctx context.Context, input models.CreateInvestmentInput) (*models.Investment, error)
	CreateMonthlyBill(ctx context.Context, input models.CreateMonthlyBillInput) (*models.MonthlyBill, error)
}

// Options configures a Form.
type Options struct {
	ID         string
	Kind       Kind
	Backend    Backend
	Classifier *classifier.Classifier
	Clock      clock.Clock
	Delay      time.Duration
	Location   *time.Location
	Notifier   notify.Notifier
	Log        *zap.SugaredLogger
}

// Fields are the form values other than the free text.
type Fields struct {
	Amount         *decimal.Decimal       `json:"amount,omitempty"`
	Date           civil.Date             `json:"date"`
	Merchant       string                 `json:"merchant,omitempty"`
	Type           models.TransactionType `json:"type,omitempty"`
	CategoryID     string                 `json:"category_id,omitempty"`
	InvestmentType models.InvestmentType  `json:"investment_type,omitempty"`
	BillType       models.BillType        `json:"bill_type,omitempty"`
	DueDay         int                    `json:"due_day,omitempty"`
}

// FieldsPatch updates the fields that are set.
type FieldsPatch struct {
	Amount         *decimal.Decimal
	Date           *civil.Date
	Merchant       *string
	Type           *models.TransactionType
	CategoryID     *string
	InvestmentType *models.InvestmentType
	BillType       *models.BillType
	DueDay         *int
}

// Form is one quick-add draft. It is safe for concurrent use.
type Form struct {
	id         string
	kind       Kind
	backend    Backend
	categorize *categorize.Categorizer
	classifier *classifier.Classifier
	clock      clock.Clock
	loc        *time.Location
	notifier   notify.Notifier
	log        *zap.SugaredLogger
	invoker    *debounce.Invoker[string]

	ctx    context.Context
	cancel context.CancelFunc

	mu                   sync.Mutex
	text                 string
	fields               Fields
	autoCategorized      bool
	categorizing         bool
	closed               bool
	categorySuggestion   *models.CategorySuggestion
	investmentSuggestion *models.InvestmentTypeSuggestion
	billSuggestion       *models.BillTypeSuggestion
	lastActive           time.Time
}

// New creates an open form.
func New(opts Options) *Form {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	if opts.Classifier == nil {
		opts.Classifier = classifier.New(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &Form{
		id:         opts.ID,
		kind:       opts.Kind,
		backend:    opts.Backend,
		categorize: categorize.New(opts.Backend),
		classifier: opts.Classifier,
		clock:      opts.Clock,
		loc:        opts.Location,
		notifier:   opts.Notifier,
		log:        opts.Log,
		ctx:        ctx,
		cancel:     cancel,
		lastActive: opts.Clock.Now(),
	}
	f.fields = f.defaultFields()
	f.invoker = debounce.New(opts.Clock, opts.Delay, func(text string) {
		f.classify(f.ctx, text)
	})
	return f
}

// ID returns the form's identifier.
func (f *Form) ID() string { return f.id }

// Kind returns what the form creates.
func (f *Form) Kind() Kind { return f.kind }

func (f *Form) defaultFields() Fields {
	fields := Fields{Date: civil.DateOf(f.clock.Now().In(f.loc))}
	if f.kind == KindTransaction {
		fields.Type = models.TransactionTypeExpense
	}
	return fields
}

func trimmedLen(text string) int {
	return utf8.RuneCountInString(strings.TrimSpace(text))
}

// SetText records a change of the description or name. It clears the
// auto-categorized flag and reschedules classification: text of at least
// MinClassifyLength characters schedules a call, empty text cancels the
// pending one, and anything in between leaves it alone.
func (f *Form) SetText(text string) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	f.text = text
	f.autoCategorized = false
	f.lastActive = f.clock.Now()
	f.mu.Unlock()

	switch n := trimmedLen(text); {
	case n >= MinClassifyLength:
		f.invoker.Schedule(text)
	case n == 0:
		f.invoker.Cancel()
	}
	return nil
}

// SetFields applies a patch to the non-text fields.
func (f *Form) SetFields(p FieldsPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if p.Amount != nil {
		a := *p.Amount
		f.fields.Amount = &a
	}
	if p.Date != nil {
		f.fields.Date = *p.Date
	}
	if p.Merchant != nil {
		f.fields.Merchant = *p.Merchant
	}
	if p.Type != nil {
		f.fields.Type = *p.Type
	}
	if p.CategoryID != nil {
		f.fields.CategoryID = *p.CategoryID
	}
	if p.InvestmentType != nil {
		f.fields.InvestmentType = *p.InvestmentType
	}
	if p.BillType != nil {
		f.fields.BillType = *p.BillType
	}
	if p.DueDay != nil {
		f.fields.DueDay = *p.DueDay
	}
	f.lastActive = f.clock.Now()
	return nil
}

// CanCategorizeNow reports whether the manual trigger is available.
func (f *Form) CanCategorizeNow() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canCategorizeLocked()
}

func (f *Form) canCategorizeLocked() bool {
	return !f.closed && !f.autoCategorized && trimmedLen(f.text) >= MinClassifyLength
}

// CategorizeNow cancels any pending debounced call and classifies the
// current text immediately.
func (f *Form) CategorizeNow(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	if !f.canCategorizeLocked() {
		f.mu.Unlock()
		return ErrCannotCategorize
	}
	text := f.text
	f.lastActive = f.clock.Now()
	f.mu.Unlock()

	f.invoker.Cancel()
	f.classify(ctx, text)
	return nil
}

// currentLocked reports whether text is still what the open form holds.
func (f *Form) currentLocked(text string) bool {
	return !f.closed && f.text == text
}

func (f *Form) classify(ctx context.Context, text string) {
	name := strings.TrimSpace(text)
	switch f.kind {
	case KindTransaction:
		f.classifyTransaction(ctx, text, name)
	case KindInvestment:
		f.classifyInvestment(ctx, text, name)
	case KindBill:
		s := f.classifier.ClassifyBill(name)
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.currentLocked(text) {
			return
		}
		f.billSuggestion = &s
		f.fields.BillType = s.SuggestedType
		f.autoCategorized = true
	}
}

func (f *Form) classifyTransaction(ctx context.Context, text, description string) {
	f.mu.Lock()
	var amount *decimal.Decimal
	if f.fields.Amount != nil {
		a := *f.fields.Amount
		amount = &a
	}
	f.categorizing = true
	f.mu.Unlock()

	res, err := f.categorize.Suggest(ctx, nil, description, amount)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.categorizing = false
	if !f.currentLocked(text) {
		return
	}
	if err != nil {
		f.log.Debugw("Auto-categorization failed", "form_id", f.id, "error", err)
		f.notifier.Error(categorize.ErrorMessage(err))
		return
	}
	if !res.Accepted {
		return
	}
	s := res.Suggestion
	f.categorySuggestion = s
	if s.TransactionType != "" {
		f.fields.Type = s.TransactionType
	}
	f.fields.CategoryID = s.CategoryID
	f.autoCategorized = true
}

func (f *Form) classifyInvestment(ctx context.Context, text, name string) {
	s := f.classifier.ClassifyInvestment(name)

	f.mu.Lock()
	f.categorizing = true
	f.mu.Unlock()

	category, err := classifier.ResolveInvestmentCategory(ctx, f.backend, s)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.categorizing = false
	if err != nil {
		f.log.Warnw("Resolving investment category failed", "form_id", f.id, "error", err)
	}
	if !f.currentLocked(text) {
		return
	}
	f.investmentSuggestion = &s
	f.fields.InvestmentType = s.SuggestedType
	if category != nil {
		f.fields.CategoryID = category.ID
	}
	f.autoCategorized = true
}

// SubmitResult holds the record created by Submit.
type SubmitResult struct {
	Kind        Kind                `json:"kind"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Investment  *models.Investment  `json:"investment,omitempty"`
	Bill        *models.MonthlyBill `json:"bill,omitempty"`
}

// Submit validates the form and creates the record. On success the form is
// cleared for the next entry.
func (f *Form) Submit(ctx context.Context) (*SubmitResult, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	text := strings.TrimSpace(f.text)
	fields := f.fields
	f.lastActive = f.clock.Now()
	f.mu.Unlock()

	if text == "" {
		if f.kind == KindTransaction {
			return nil, &ValidationError{Field: "description", Message: "Description is required"}
		}
		return nil, &ValidationError{Field: "name", Message: "Name is required"}
	}
	if fields.Amount == nil || !fields.Amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Message: "Amount must be greater than zero"}
	}

	var (
		result *SubmitResult
		err    error
	)
	switch f.kind {
	case KindTransaction:
		result, err = f.submitTransaction(ctx, text, fields)
	case KindInvestment:
		result, err = f.submitInvestment(ctx, text, fields)
	case KindBill:
		result, err = f.submitBill(ctx, text, fields)
	default:
		return nil, fmt.Errorf("unknown form kind %q", f.kind)
	}
	if err != nil {
		f.notifier.Error(backend.Message(err))
		return nil, err
	}

	f.invoker.Cancel()
	f.mu.Lock()
	f.text = ""
	f.fields = f.defaultFields()
	f.autoCategorized = false
	f.categorySuggestion = nil
	f.investmentSuggestion = nil
	f.billSuggestion = nil
	f.mu.Unlock()
	return result, nil
}

func (f *Form) submitTransaction(ctx context.Context, description string, fields Fields) (*SubmitResult, error) {
	txType := fields.Type
	if txType == "" {
		txType = models.TransactionTypeExpense
	}
	tx, err := f.backend.CreateTransaction(ctx, models.CreateTransactionInput{
		Amount:      *fields.Amount,
		Description: description,
		Merchant:    fields.Merchant,
		Date:        fields.Date,
		Type:        txType,
		CategoryID:  fields.CategoryID,
	})
	if err != nil {
		return nil, err
	}
	f.notifier.Success("Transaction added successfully")
	return &SubmitResult{Kind: KindTransaction, Transaction: tx}, nil
}

func (f *Form) submitInvestment(ctx context.Context, name string, fields Fields) (*SubmitResult, error) {
	invType := fields.InvestmentType
	if invType == "" {
		invType = f.classifier.ClassifyInvestment(name).SuggestedType
	}

	categoryID := fields.CategoryID
	if categoryID == "" {
		categories, err := f.backend.ListCategories(ctx, models.CategoryTypeInvestment)
		if err != nil {
			f.log.Warnw("Listing investment categories for fallback failed", "form_id", f.id, "error", err)
		} else if fallback := classifier.FallbackInvestmentCategory(categories); fallback != nil {
			categoryID = fallback.ID
		}
	}

	inv, err := f.backend.CreateInvestment(ctx, models.CreateInvestmentInput{
		Name:       name,
		Type:       invType,
		Amount:     *fields.Amount,
		Date:       fields.Date,
		CategoryID: categoryID,
	})
	if err != nil {
		return nil, err
	}
	f.notifier.Success("Investment added successfully")
	return &SubmitResult{Kind: KindInvestment, Investment: inv}, nil
}

func (f *Form) submitBill(ctx context.Context, name string, fields Fields) (*SubmitResult, error) {
	billType := fields.BillType
	if billType == "" {
		billType = f.classifier.ClassifyBill(name).SuggestedType
	}
	bill, err := f.backend.CreateMonthlyBill(ctx, models.CreateMonthlyBillInput{
		Name:   name,
		Type:   billType,
		Amount: *fields.Amount,
		DueDay: fields.DueDay,
	})
	if err != nil {
		return nil, err
	}
	f.notifier.Success("Monthly bill added successfully")
	return &SubmitResult{Kind: KindBill, Bill: bill}, nil
}

// Close cancels pending and in-flight classification. Results arriving
// after Close are dropped.
func (f *Form) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.invoker.Close()
	f.cancel()
}

// LastActive returns the time of the last change to the form.
func (f *Form) LastActive() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastActive
}

// View is a snapshot of a form.
type View struct {
	ID                   string                           `json:"id"`
	Kind                 Kind                             `json:"kind"`
	Text                 string                           `json:"text"`
	Fields               Fields                           `json:"fields"`
	Categorized          bool                             `json:"categorized"`
	CanCategorizeNow     bool                             `json:"can_categorize_now"`
	Pending              bool                             `json:"pending"`
	Categorizing         bool                             `json:"categorizing"`
	CategorySuggestion   *models.CategorySuggestion       `json:"category_suggestion,omitempty"`
	InvestmentSuggestion *models.InvestmentTypeSuggestion `json:"investment_suggestion,omitempty"`
	BillSuggestion       *models.BillTypeSuggestion       `json:"bill_suggestion,omitempty"`
}

// View returns a snapshot of the form.
func (f *Form) View() View {
	pending := f.invoker.Pending()
	f.mu.Lock()
	defer f.mu.Unlock()
	return View{
		ID:                   f.id,
		Kind:                 f.kind,
		Text:                 f.text,
		Fields:               f.fields,
		Categorized:          f.autoCategorized,
		CanCategorizeNow:     f.canCategorizeLocked(),
		Pending:              pending,
		Categorizing:         f.categorizing,
		CategorySuggestion:   f.categorySuggestion,
		InvestmentSuggestion: f.investmentSuggestion,
		BillSuggestion:       f.billSuggestion,
	}
}
