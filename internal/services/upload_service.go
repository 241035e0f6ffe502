package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fintrack/internal/clock"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/notify"
	"fintrack/internal/upload"
	"fintrack/internal/uuid"
)

// UploadServiceOptions configures the upload session registry.
type UploadServiceOptions struct {
	Backend            Backend
	Duplicates         upload.DuplicateFinder
	Runs               upload.RunRecorder
	Clock              clock.Clock
	MaxImageBytes      int64
	ProcessingEstimate time.Duration
	SlowWarning        time.Duration
	SaveConcurrency    int
	IdleTTL            time.Duration
	Log                *zap.SugaredLogger
}

// uploadService keeps the live upload sessions.
type uploadService struct {
	opts     UploadServiceOptions
	sessions *registry[*upload.Session]
}

// NewUploadService creates a new UploadServicer.
func NewUploadService(opts UploadServiceOptions) UploadServicer {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	return &uploadService{opts: opts, sessions: newRegistry[*upload.Session]()}
}

// CreateUpload opens a new session in the Idle state.
func (s *uploadService) CreateUpload() *UploadView {
	id := uuid.New()
	notes := notify.NewBuffer()
	log := s.opts.Log.With("upload_id", id)
	session := upload.NewSession(upload.Options{
		ID:                 id,
		Backend:            s.opts.Backend,
		Duplicates:         s.opts.Duplicates,
		Runs:               s.opts.Runs,
		Clock:              s.opts.Clock,
		Notifier:           notify.Multi{notes, notify.NewLog(log)},
		Log:                log,
		MaxImageBytes:      s.opts.MaxImageBytes,
		ProcessingEstimate: s.opts.ProcessingEstimate,
		SlowWarning:        s.opts.SlowWarning,
		SaveConcurrency:    s.opts.SaveConcurrency,
	})
	s.sessions.put(id, session, notes)
	return viewUpload(session, notes)
}

// GetUpload returns a snapshot of the session, including its progress.
func (s *uploadService) GetUpload(id string) (*UploadView, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return viewUpload(e.value, e.notes), nil
}

// SelectImage validates and holds the image.
func (s *uploadService) SelectImage(id, fileName string, data []byte) (*UploadView, error) {
	return s.apply(id, func(session *upload.Session) error {
		return session.SelectImage(fileName, data)
	})
}

// Process runs extraction. With async set it returns as soon as the
// session is Processing and the caller polls GetUpload for progress.
func (s *uploadService) Process(ctx context.Context, id string, async bool) (*UploadView, error) {
	return s.apply(id, func(session *upload.Session) error {
		if async {
			return session.Start()
		}
		return session.Process(ctx)
	})
}

// ResolveDuplicates removes or keeps the flagged items.
func (s *uploadService) ResolveDuplicates(id string, action models.DuplicateAction) (*UploadView, error) {
	return s.apply(id, func(session *upload.Session) error {
		return session.ResolveDuplicates(action)
	})
}

// EditItem changes an item's description and/or category.
func (s *uploadService) EditItem(ctx context.Context, id string, index int, patch ItemPatch) (*UploadView, error) {
	if patch.Description == nil && patch.CategoryID == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "description or category_id is required")
	}
	return s.apply(id, func(session *upload.Session) error {
		if patch.Description != nil {
			if err := session.EditDescription(index, *patch.Description); err != nil {
				return err
			}
		}
		if patch.CategoryID != nil {
			return session.ChangeCategory(ctx, index, *patch.CategoryID)
		}
		return nil
	})
}

// DeleteItem removes an item once the caller confirms.
func (s *uploadService) DeleteItem(id string, index int, confirm bool) (*UploadView, error) {
	return s.apply(id, func(session *upload.Session) error {
		return session.DeleteItem(index, confirm)
	})
}

// Save persists the reviewed items.
func (s *uploadService) Save(ctx context.Context, id string) (*upload.SaveResult, *UploadView, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	result, err := e.value.Save(ctx)
	if err != nil {
		e.notes.Drain()
		return nil, nil, apperrors.FromBackend(err)
	}
	return result, viewUpload(e.value, e.notes), nil
}

// Reset returns the session to Idle.
func (s *uploadService) Reset(id string) (*UploadView, error) {
	return s.apply(id, func(session *upload.Session) error {
		session.Reset()
		return nil
	})
}

// CloseUpload resets the session and removes it.
func (s *uploadService) CloseUpload(id string) error {
	if !s.sessions.remove(id) {
		return apperrors.ErrUploadNotFound
	}
	return nil
}

// Preview returns the selected image.
func (s *uploadService) Preview(id string) (*upload.Image, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	img, ok := e.value.Preview()
	if !ok {
		return nil, apperrors.WithMessage(apperrors.ErrNotFound, "No image selected")
	}
	return img, nil
}

// Sweep closes sessions idle for longer than the configured TTL.
func (s *uploadService) Sweep(now time.Time) int {
	if s.opts.IdleTTL <= 0 {
		return 0
	}
	return s.sessions.sweep(now.Add(-s.opts.IdleTTL))
}

// apply runs op on the session. Notifications raised by a failed op are
// dropped because the error already carries the message.
func (s *uploadService) apply(id string, op func(*upload.Session) error) (*UploadView, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := op(e.value); err != nil {
		e.notes.Drain()
		return nil, apperrors.FromBackend(err)
	}
	return viewUpload(e.value, e.notes), nil
}

func (s *uploadService) lookup(id string) (registryEntry[*upload.Session], error) {
	e, ok := s.sessions.get(id)
	if !ok {
		return e, apperrors.ErrUploadNotFound
	}
	return e, nil
}

func viewUpload(session *upload.Session, notes *notify.Buffer) *UploadView {
	return &UploadView{View: session.View(), Notifications: notes.Drain()}
}
