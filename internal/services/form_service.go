package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"fintrack/internal/classifier"
	"fintrack/internal/clock"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/notify"
	"fintrack/internal/quickadd"
	"fintrack/internal/uuid"
)

// FormServiceOptions configures the quick-add form registry.
type FormServiceOptions struct {
	Backend    Backend
	Classifier *classifier.Classifier
	Clock      clock.Clock
	Delay      time.Duration
	Location   *time.Location
	IdleTTL    time.Duration
	Log        *zap.SugaredLogger
}

// formService keeps the open quick-add forms.
type formService struct {
	opts  FormServiceOptions
	forms *registry[*quickadd.Form]
}

// NewFormService creates a new FormServicer.
func NewFormService(opts FormServiceOptions) FormServicer {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	return &formService{opts: opts, forms: newRegistry[*quickadd.Form]()}
}

// CreateForm opens a new draft of the given kind.
func (s *formService) CreateForm(kind quickadd.Kind) (*FormView, error) {
	if !kind.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "kind must be transaction, investment or bill")
	}
	id := uuid.New()
	notes := notify.NewBuffer()
	log := s.opts.Log.With("form_id", id, "kind", kind)
	form := quickadd.New(quickadd.Options{
		ID:         id,
		Kind:       kind,
		Backend:    s.opts.Backend,
		Classifier: s.opts.Classifier,
		Clock:      s.opts.Clock,
		Delay:      s.opts.Delay,
		Location:   s.opts.Location,
		Notifier:   notify.Multi{notes, notify.NewLog(log)},
		Log:        log,
	})
	s.forms.put(id, form, notes)
	return viewForm(form, notes), nil
}

// GetForm returns a snapshot of the form.
func (s *formService) GetForm(id string) (*FormView, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return viewForm(e.value, e.notes), nil
}

// SetText updates the description or name and schedules classification.
func (s *formService) SetText(id, text string) (*FormView, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := e.value.SetText(text); err != nil {
		return nil, formError(err)
	}
	return viewForm(e.value, e.notes), nil
}

// SetFields patches the non-text fields.
func (s *formService) SetFields(id string, patch quickadd.FieldsPatch) (*FormView, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := e.value.SetFields(patch); err != nil {
		return nil, formError(err)
	}
	return viewForm(e.value, e.notes), nil
}

// CategorizeNow classifies the current text immediately.
func (s *formService) CategorizeNow(ctx context.Context, id string) (*FormView, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := e.value.CategorizeNow(ctx); err != nil {
		return nil, formError(err)
	}
	return viewForm(e.value, e.notes), nil
}

// Submit creates the record and returns it with the cleared form.
func (s *formService) Submit(ctx context.Context, id string) (*quickadd.SubmitResult, *FormView, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	result, err := e.value.Submit(ctx)
	if err != nil {
		e.notes.Drain()
		return nil, nil, formError(err)
	}
	return result, viewForm(e.value, e.notes), nil
}

// CloseForm discards the draft and any pending classification.
func (s *formService) CloseForm(id string) error {
	if !s.forms.remove(id) {
		return apperrors.ErrFormNotFound
	}
	return nil
}

// Sweep closes forms idle for longer than the configured TTL.
func (s *formService) Sweep(now time.Time) int {
	if s.opts.IdleTTL <= 0 {
		return 0
	}
	return s.forms.sweep(now.Add(-s.opts.IdleTTL))
}

func (s *formService) lookup(id string) (registryEntry[*quickadd.Form], error) {
	e, ok := s.forms.get(id)
	if !ok {
		return e, apperrors.ErrFormNotFound
	}
	return e, nil
}

func viewForm(form *quickadd.Form, notes *notify.Buffer) *FormView {
	return &FormView{View: form.View(), Notifications: notes.Drain()}
}

func formError(err error) error {
	var verr *quickadd.ValidationError
	switch {
	case errors.As(err, &verr):
		return apperrors.WithMessage(apperrors.ErrInvalidInput, verr.Message)
	case errors.Is(err, quickadd.ErrClosed):
		return apperrors.ErrFormNotFound
	case errors.Is(err, quickadd.ErrCannotCategorize):
		return apperrors.ErrCategorizeUnavailable
	}
	return apperrors.FromBackend(err)
}
