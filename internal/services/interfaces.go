package services

import (
	"context"

	"github.com/shopspring/decimal"

	"fintrack/internal/models"
	"fintrack/internal/notify"
	"fintrack/internal/pagination"
	"fintrack/internal/quickadd"
	"fintrack/internal/upload"
)

// Backend is the remote finance API as the services use it.
type Backend interface {
	Login(ctx context.Context, email, password string) (models.TokenPair, error)
	Logout(ctx context.Context) error
	ListCategories(ctx context.Context, categoryType models.CategoryType) ([]models.Category, error)
	CreateCategory(ctx context.Context, input models.CreateCategoryInput) (*models.Category, error)
	ListTransactions(ctx context.Context, query models.TransactionQuery) (*models.TransactionPage, error)
	CreateTransaction(ctx context.Context, input models.CreateTransactionInput) (*models.Transaction, error)
	CreateInvestment(ctx context.Context, input models.CreateInvestmentInput) (*models.Investment, error)
	CreateMonthlyBill(ctx context.Context, input models.CreateMonthlyBillInput) (*models.MonthlyBill, error)
	ExtractTransactions(ctx context.Context, image models.ImagePayload) ([]models.ExtractedTransaction, error)
	AutoCategorize(ctx context.Context, description string, amount *decimal.Decimal) (*models.CategorySuggestion, error)
	ScanBill(ctx context.Context, image models.ImagePayload) (*models.BillScan, error)
}

// SessionChecker reports whether a token pair is stored.
type SessionChecker interface {
	Tokens(ctx context.Context) (models.TokenPair, error)
}

// AuthStatus describes the stored session.
type AuthStatus struct {
	LoggedIn bool `json:"logged_in"`
}

// AuthServicer defines the contract for session management.
type AuthServicer interface {
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) (*AuthStatus, error)
}

// UploadCategories are the category choices offered while reviewing an upload.
type UploadCategories struct {
	Income  []models.Category `json:"income"`
	Expense []models.Category `json:"expense"`
}

// CategoryServicer defines the contract for category lookups and creation.
type CategoryServicer interface {
	ListCategories(ctx context.Context, categoryType models.CategoryType) ([]models.Category, error)
	CreateCategory(ctx context.Context, input models.CreateCategoryInput) (*models.Category, error)
	ListForUpload(ctx context.Context) (*UploadCategories, error)
}

// InvestmentClassification is a local investment-type suggestion with the
// category it resolves to, if any.
type InvestmentClassification struct {
	Suggestion models.InvestmentTypeSuggestion `json:"suggestion"`
	Category   *models.Category                `json:"category,omitempty"`
}

// ClassifyServicer defines the contract for the keyword classifiers.
type ClassifyServicer interface {
	ClassifyInvestment(ctx context.Context, name string) (*InvestmentClassification, error)
	ClassifyBill(name string) models.BillTypeSuggestion
}

// FormView is a quick-add form snapshot with the notifications raised since
// the previous snapshot.
type FormView struct {
	quickadd.View
	Notifications []notify.Notification `json:"notifications"`
}

// FormServicer defines the contract for quick-add form drafts.
type FormServicer interface {
	CreateForm(kind quickadd.Kind) (*FormView, error)
	GetForm(id string) (*FormView, error)
	SetText(id, text string) (*FormView, error)
	SetFields(id string, patch quickadd.FieldsPatch) (*FormView, error)
	CategorizeNow(ctx context.Context, id string) (*FormView, error)
	Submit(ctx context.Context, id string) (*quickadd.SubmitResult, *FormView, error)
	CloseForm(id string) error
	Sweeper
}

// UploadView is an upload session snapshot with the notifications raised
// since the previous snapshot.
type UploadView struct {
	upload.View
	Notifications []notify.Notification `json:"notifications"`
}

// ItemPatch edits one extracted item. Nil fields are left alone.
type ItemPatch struct {
	Description *string
	CategoryID  *string
}

// UploadServicer defines the contract for bulk-upload sessions.
type UploadServicer interface {
	CreateUpload() *UploadView
	GetUpload(id string) (*UploadView, error)
	SelectImage(id, fileName string, data []byte) (*UploadView, error)
	Process(ctx context.Context, id string, async bool) (*UploadView, error)
	ResolveDuplicates(id string, action models.DuplicateAction) (*UploadView, error)
	EditItem(ctx context.Context, id string, index int, patch ItemPatch) (*UploadView, error)
	DeleteItem(id string, index int, confirm bool) (*UploadView, error)
	Save(ctx context.Context, id string) (*upload.SaveResult, *UploadView, error)
	Reset(id string) (*UploadView, error)
	CloseUpload(id string) error
	Preview(id string) (*upload.Image, error)
	Sweeper
}

// UploadRunServicer defines the contract for the upload history.
type UploadRunServicer interface {
	RecordRun(ctx context.Context, run *models.UploadRun) error
	ListRuns(ctx context.Context, page pagination.PageRequest) (*pagination.PageResponse[models.UploadRun], error)
}

// BillScanServicer defines the contract for single-bill scanning.
type BillScanServicer interface {
	ScanBill(ctx context.Context, fileName string, data []byte) (*models.BillScan, error)
}
