package services

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// uploadRunService stores and lists the outcome of bulk saves.
type uploadRunService struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewUploadRunService creates a new UploadRunServicer.
func NewUploadRunService(db *gorm.DB, log *zap.SugaredLogger) UploadRunServicer {
	return &uploadRunService{db: db, log: log}
}

// RecordRun inserts one upload run.
func (s *uploadRunService) RecordRun(ctx context.Context, run *models.UploadRun) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.log.Infow("Recorded upload run",
		"run_id", run.ID,
		"session_id", run.SessionID,
		"saved", run.Saved,
		"failed", run.Failed,
	)
	return nil
}

// ListRuns returns a page of runs, most recent first.
func (s *uploadRunService) ListRuns(ctx context.Context, page pagination.PageRequest) (*pagination.PageResponse[models.UploadRun], error) {
	page.Defaults()

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.UploadRun{}).Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var runs []models.UploadRun
	if err := s.db.WithContext(ctx).
		Scopes(pagination.Paginate(page)).
		Order("completed_at DESC").
		Find(&runs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(runs, page.Page, page.PageSize, total)
	return &resp, nil
}
