// Package upload drives the bulk extraction flow for one uploaded image:
// select an image, extract transactions from it, review duplicates, edit the
// results and save them as a batch.
package upload

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/backend"
	"fintrack/internal/clock"
	"fintrack/internal/dedupe"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/notify"
)

// State is the step of the upload flow a session is in.
type State string

const (
	StateIdle            State = "idle"
	StateImageSelected   State = "image_selected"
	StateProcessing      State = "processing"
	StateDuplicatesFound State = "duplicates_found"
	StateResultsReady    State = "results_ready"
	StateSaving          State = "saving"
	StateClosed          State = "closed"
)

const defaultSaveConcurrency = 4

// Backend is the part of the finance API an upload session needs.
type Backend interface {
	ExtractTransactions(ctx context.Context, image models.ImagePayload) ([]models.ExtractedTransaction, error)
	CreateTransaction(ctx context.Context, input models.CreateTransactionInput) (*models.Transaction, error)
	ListCategories(ctx context.Context, categoryType models.CategoryType) ([]models.Category, error)
}

// DuplicateFinder flags extracted transactions that already exist.
type DuplicateFinder interface {
	Find(ctx context.Context, candidates []models.ExtractedTransaction) []dedupe.Match
}

// RunRecorder persists the outcome of a save.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *models.UploadRun) error
}

// Options configures a Session.
type Options struct {
	ID                 string
	Backend            Backend
	Duplicates         DuplicateFinder
	Runs               RunRecorder
	Clock              clock.Clock
	Notifier           notify.Notifier
	Log                *zap.SugaredLogger
	MaxImageBytes      int64
	ProcessingEstimate time.Duration
	SlowWarning        time.Duration
	SaveConcurrency    int
}

// Session is one upload flow. It is safe for concurrent use; the lock is
// never held across backend calls.
type Session struct {
	opts Options

	mu              sync.Mutex
	state           State
	image           *Image
	extracted       []models.ExtractedTransaction
	extractedCount  int
	duplicateCount  int
	duplicateAction models.DuplicateAction
	processStarted  time.Time
	processDone     bool
	slowTimer       clock.Timer
	generation      uint64
	ctx             context.Context
	cancel          context.CancelFunc
	lastActive      time.Time
}

// NewSession creates a session in the Idle state.
func NewSession(opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = DefaultMaxImageBytes
	}
	if opts.ProcessingEstimate <= 0 {
		opts.ProcessingEstimate = DefaultProcessingEstimate
	}
	if opts.SlowWarning <= 0 {
		opts.SlowWarning = DefaultSlowWarning
	}
	if opts.SaveConcurrency <= 0 {
		opts.SaveConcurrency = defaultSaveConcurrency
	}
	s := &Session{opts: opts, state: StateIdle, lastActive: opts.Clock.Now()}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.opts.ID }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func invalidState(op string, state State) error {
	return apperrors.WithMessage(apperrors.ErrInvalidState, fmt.Sprintf("Cannot %s while the upload is %s", op, state))
}

func (s *Session) touchLocked() {
	s.lastActive = s.opts.Clock.Now()
}

// SelectImage validates and holds an image. Allowed from Idle, ImageSelected
// and Closed. An invalid image leaves the state unchanged.
func (s *Session) SelectImage(fileName string, data []byte) error {
	img, err := ValidateImage(fileName, data, s.opts.MaxImageBytes)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateIdle, StateImageSelected, StateClosed:
	default:
		return invalidState("select an image", s.state)
	}
	if err != nil {
		s.opts.Notifier.Error(apperrors.FromBackend(err).Message)
		return err
	}
	s.resetLocked()
	s.image = img
	s.state = StateImageSelected
	s.touchLocked()
	return nil
}

// Process runs extraction and duplicate detection and blocks until done.
func (s *Session) Process(ctx context.Context) error {
	job, err := s.beginProcessing()
	if err != nil {
		return err
	}
	return s.runProcessing(ctx, job)
}

// Start moves the session to Processing and runs extraction in the
// background. The session's own context bounds the work, so Reset and Close
// abandon it.
func (s *Session) Start() error {
	job, err := s.beginProcessing()
	if err != nil {
		return err
	}
	go func() {
		if err := s.runProcessing(job.ctx, job); err != nil {
			s.opts.Log.Debugw("Background processing finished with error", "upload_id", s.opts.ID, "error", err)
		}
	}()
	return nil
}

type processJob struct {
	ctx        context.Context
	generation uint64
	image      *Image
}

func (s *Session) beginProcessing() (*processJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateImageSelected {
		return nil, invalidState("process", s.state)
	}
	s.state = StateProcessing
	s.generation++
	gen := s.generation
	s.processStarted = s.opts.Clock.Now()
	s.processDone = false
	s.slowTimer = s.opts.Clock.AfterFunc(s.opts.SlowWarning, func() { s.warnSlow(gen) })
	s.touchLocked()
	return &processJob{ctx: s.ctx, generation: gen, image: s.image}, nil
}

func (s *Session) warnSlow(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.state != StateProcessing {
		return
	}
	s.opts.Notifier.Warning("Processing is taking longer than usual. Please wait...")
}

func (s *Session) runProcessing(ctx context.Context, job *processJob) error {
	items, err := s.opts.Backend.ExtractTransactions(ctx, job.image.Payload())

	var matches []dedupe.Match
	if err == nil && len(items) > 0 && s.opts.Duplicates != nil {
		matches = s.opts.Duplicates.Find(ctx, items)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slowTimer != nil && s.generation == job.generation {
		s.slowTimer.Stop()
		s.slowTimer = nil
	}
	if s.generation != job.generation || s.state != StateProcessing {
		return apperrors.WithMessage(apperrors.ErrInvalidState, "The upload was reset while processing")
	}
	s.touchLocked()

	if err != nil {
		s.state = StateImageSelected
		appErr := apperrors.FromBackend(err)
		s.opts.Notifier.Error(backend.Message(err))
		s.opts.Log.Warnw("Transaction extraction failed", "upload_id", s.opts.ID, "error", err)
		return appErr
	}

	if len(items) == 0 {
		s.state = StateImageSelected
		s.opts.Notifier.Warning("No transactions found in the image")
		return apperrors.ErrNoTransactionsFound
	}

	s.processDone = true
	s.extracted = dedupe.Apply(items, matches)
	s.extractedCount = len(items)
	s.duplicateCount = len(matches)
	if len(matches) > 0 {
		s.state = StateDuplicatesFound
		s.opts.Notifier.Warning(fmt.Sprintf("Found %d potential duplicate %s", len(matches), plural(len(matches), "transaction")))
		return nil
	}
	s.state = StateResultsReady
	s.opts.Notifier.Success(fmt.Sprintf("Extracted %d %s", len(items), plural(len(items), "transaction")))
	return nil
}

// ResolveDuplicates leaves DuplicatesFound. Remove drops the flagged items;
// keep clears every flag.
func (s *Session) ResolveDuplicates(action models.DuplicateAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDuplicatesFound {
		return invalidState("resolve duplicates", s.state)
	}
	switch action {
	case models.DuplicateActionRemove:
		kept := s.extracted[:0:0]
		for _, item := range s.extracted {
			if !item.IsDuplicate {
				kept = append(kept, item)
			}
		}
		s.extracted = kept
		s.opts.Notifier.Info(fmt.Sprintf("Removed %d duplicate %s", s.duplicateCount, plural(s.duplicateCount, "transaction")))
	case models.DuplicateActionKeep:
		for i := range s.extracted {
			s.extracted[i].IsDuplicate = false
			s.extracted[i].DuplicateID = ""
		}
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("Unknown duplicate action %q", action))
	}
	s.duplicateAction = action
	s.state = StateResultsReady
	s.touchLocked()
	return nil
}

func (s *Session) itemLocked(op string, index int) error {
	if s.state != StateResultsReady {
		return invalidState(op, s.state)
	}
	if index < 0 || index >= len(s.extracted) {
		return apperrors.ErrItemNotFound
	}
	return nil
}

// EditDescription changes the description of one item.
func (s *Session) EditDescription(index int, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.itemLocked("edit a transaction", index); err != nil {
		return err
	}
	s.extracted[index].Description = description
	s.touchLocked()
	return nil
}

// ChangeCategory assigns a category after checking it exists among the live
// categories for the item's transaction type.
func (s *Session) ChangeCategory(ctx context.Context, index int, categoryID string) error {
	s.mu.Lock()
	if err := s.itemLocked("change a category", index); err != nil {
		s.mu.Unlock()
		return err
	}
	gen := s.generation
	txType := s.extracted[index].TransactionType
	s.mu.Unlock()

	categories, err := s.opts.Backend.ListCategories(ctx, txType.CategoryType())
	if err != nil {
		return apperrors.FromBackend(err)
	}
	var found *models.Category
	for i := range categories {
		if categories[i].ID == categoryID {
			found = &categories[i]
			break
		}
	}
	if found == nil {
		return apperrors.ErrCategoryNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return apperrors.WithMessage(apperrors.ErrInvalidState, "The upload changed while loading categories")
	}
	if err := s.itemLocked("change a category", index); err != nil {
		return err
	}
	s.extracted[index].CategoryID = found.ID
	s.extracted[index].CategoryName = found.Name
	s.touchLocked()
	return nil
}

// DeleteItem removes one item. confirm must be true.
func (s *Session) DeleteItem(index int, confirm bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.itemLocked("delete a transaction", index); err != nil {
		return err
	}
	if !confirm {
		return apperrors.ErrConfirmationRequired
	}
	s.extracted = append(s.extracted[:index], s.extracted[index+1:]...)
	s.touchLocked()
	return nil
}

// ItemResult is the outcome of saving one item.
type ItemResult struct {
	Index         int    `json:"index"`
	Description   string `json:"description"`
	TransactionID string `json:"transaction_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

// SaveResult summarises a batch save.
type SaveResult struct {
	Saved  int          `json:"saved"`
	Failed int          `json:"failed"`
	Items  []ItemResult `json:"items"`
	Closed bool         `json:"closed"`
	RunID  string       `json:"run_id,omitempty"`
}

// Save creates one backend transaction per item, concurrently. Every item is
// attempted regardless of the others. The session closes when at least one
// item was saved and returns to ResultsReady otherwise.
func (s *Session) Save(ctx context.Context) (*SaveResult, error) {
	s.mu.Lock()
	if s.state != StateResultsReady {
		s.mu.Unlock()
		return nil, invalidState("save", s.state)
	}
	if len(s.extracted) == 0 {
		s.mu.Unlock()
		return nil, apperrors.ErrNothingToSave
	}
	s.state = StateSaving
	gen := s.generation
	items := make([]models.ExtractedTransaction, len(s.extracted))
	copy(items, s.extracted)
	run := &models.UploadRun{
		SessionID:       s.opts.ID,
		Extracted:       s.extractedCount,
		Duplicates:      s.duplicateCount,
		DuplicateAction: s.duplicateAction,
		StartedAt:       s.processStarted,
	}
	if s.image != nil {
		run.FileName = s.image.FileName
	}
	s.touchLocked()
	s.mu.Unlock()

	results := make([]ItemResult, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.SaveConcurrency)
	for i, item := range items {
		g.Go(func() error {
			results[i] = ItemResult{Index: i, Description: item.Description}
			tx, err := s.opts.Backend.CreateTransaction(gctx, models.CreateTransactionInput{
				Amount:      item.Amount,
				Description: item.Description,
				Merchant:    item.Merchant,
				Date:        item.Date,
				Type:        item.TransactionType,
				CategoryID:  item.CategoryID,
			})
			if err != nil {
				results[i].Error = backend.Message(err)
				s.opts.Log.Warnw("Saving extracted transaction failed",
					"upload_id", s.opts.ID,
					"index", i,
					"error", err,
				)
				return nil
			}
			results[i].TransactionID = tx.ID
			return nil
		})
	}
	_ = g.Wait()

	res := &SaveResult{Items: results}
	for _, r := range results {
		if r.Error == "" {
			res.Saved++
		} else {
			res.Failed++
		}
	}

	run.Saved = res.Saved
	run.Failed = res.Failed
	run.CompletedAt = s.opts.Clock.Now()
	if s.opts.Runs != nil {
		if err := s.opts.Runs.RecordRun(context.WithoutCancel(ctx), run); err != nil {
			s.opts.Log.Errorw("Recording upload run failed", "upload_id", s.opts.ID, "error", err)
		} else {
			res.RunID = run.ID
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if res.Saved > 0 {
		s.opts.Notifier.Success(fmt.Sprintf("Successfully saved %d %s", res.Saved, plural(res.Saved, "transaction")))
	}
	if res.Failed > 0 {
		s.opts.Notifier.Error(fmt.Sprintf("Failed to save %d %s", res.Failed, plural(res.Failed, "transaction")))
	}
	if s.generation != gen || s.state != StateSaving {
		return res, nil
	}
	if res.Saved > 0 {
		s.resetLocked()
		s.state = StateClosed
		res.Closed = true
	} else {
		s.state = StateResultsReady
	}
	s.touchLocked()
	return res, nil
}

// Reset clears the image, the results and the progress from any state and
// returns to Idle. In-flight processing is abandoned.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.state = StateIdle
	s.touchLocked()
}

// Close resets the session, marks it Closed and cancels in-flight work.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.state = StateClosed
	s.cancel()
}

func (s *Session) resetLocked() {
	if s.slowTimer != nil {
		s.slowTimer.Stop()
		s.slowTimer = nil
	}
	if s.state == StateProcessing || s.ctx.Err() != nil {
		s.cancel()
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	s.generation++
	s.image = nil
	s.extracted = nil
	s.extractedCount = 0
	s.duplicateCount = 0
	s.duplicateAction = models.DuplicateActionNone
	s.processStarted = time.Time{}
	s.processDone = false
}

// Preview returns the selected image, if any.
func (s *Session) Preview() (*Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image == nil {
		return nil, false
	}
	return s.image, true
}

// LastActive returns when the session last changed.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// View is a snapshot of a session.
type View struct {
	ID              string                        `json:"id"`
	State           State                         `json:"state"`
	FileName        string                        `json:"file_name,omitempty"`
	MimeType        string                        `json:"mime_type,omitempty"`
	Size            int                           `json:"size,omitempty"`
	Progress        int                           `json:"progress"`
	Transactions    []models.ExtractedTransaction `json:"transactions"`
	DuplicateCount  int                           `json:"duplicate_count"`
	DuplicateAction models.DuplicateAction        `json:"duplicate_action,omitempty"`
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		ID:              s.opts.ID,
		State:           s.state,
		Progress:        s.progressLocked(),
		Transactions:    make([]models.ExtractedTransaction, len(s.extracted)),
		DuplicateCount:  s.duplicateCount,
		DuplicateAction: s.duplicateAction,
	}
	copy(v.Transactions, s.extracted)
	if s.image != nil {
		v.FileName = s.image.FileName
		v.MimeType = s.image.MimeType
		v.Size = len(s.image.Data)
	}
	return v
}

func (s *Session) progressLocked() int {
	switch {
	case s.processDone:
		return 100
	case s.state == StateProcessing:
		return estimateProgress(s.opts.Clock.Now().Sub(s.processStarted), s.opts.ProcessingEstimate)
	}
	return 0
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
