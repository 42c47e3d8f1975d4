package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noor-edu/archive-api/internal/models"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
)

type reviewStore interface {
	GetByID(ctx context.Context, id string) (*models.IngestionRecord, error)
	UpdateStatus(ctx context.Context, id string, from, to models.IngestionStatus) (bool, error)
	ListPending(ctx context.Context, p *models.Pagination) ([]models.IngestionRecord, error)
	CountByStatus(ctx context.Context, status models.IngestionStatus) (int64, error)
}

type reviewMetrics interface {
	SetPendingQueue(count int64)
}

// ReviewService runs the ingestion approval trail. Status moves only
// pending→approved or pending→rejected; everything else is a conflict.
type ReviewService struct {
	store   reviewStore
	metrics reviewMetrics
	logger  *zap.Logger
}

// NewReviewService constructs a ReviewService.
func NewReviewService(store reviewStore, metrics reviewMetrics, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{store: store, metrics: metrics, logger: logger}
}

// ListPending returns the oldest pending records first.
func (s *ReviewService) ListPending(ctx context.Context, p *models.Pagination) ([]models.IngestionRecord, error) {
	records, err := s.store.ListPending(ctx, p)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending ingestions")
	}
	if p != nil {
		count, err := s.store.CountByStatus(ctx, models.IngestionPending)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending ingestions")
		}
		p.TotalCount = int(count)
	}
	return records, nil
}

// Approve moves one pending record to approved.
func (s *ReviewService) Approve(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.IngestionApproved)
}

// Reject moves one pending record to rejected.
func (s *ReviewService) Reject(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.IngestionRejected)
}

func (s *ReviewService) transition(ctx context.Context, id string, to models.IngestionStatus) error {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ingestion record")
	}
	if rec == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "ingestion record not found")
	}

	moved, err := s.store.UpdateStatus(ctx, id, models.IngestionPending, to)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update ingestion status")
	}
	if !moved {
		return appErrors.Clone(appErrors.ErrConflict, "record is not pending")
	}

	s.logger.Info("ingestion reviewed", zap.String("ingestion_id", id), zap.String("status", string(to)))
	s.RefreshPendingGauge(ctx)
	return nil
}

// RefreshPendingGauge pushes the current pending count into the metrics
// registry. Also called periodically from the maintenance ticker.
func (s *ReviewService) RefreshPendingGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	count, err := s.store.CountByStatus(ctx, models.IngestionPending)
	if err != nil {
		s.logger.Warn("failed to refresh pending gauge", zap.Error(err))
		return
	}
	s.metrics.SetPendingQueue(count)
}
