package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noor-edu/archive-api/internal/dto"
	"github.com/noor-edu/archive-api/internal/models"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
)

// stubReviewStore keeps records in memory with the same pending-only
// transition rule as the SQL store.
type stubReviewStore struct {
	records map[string]*models.IngestionRecord
}

func newStubReviewStore() *stubReviewStore {
	return &stubReviewStore{records: map[string]*models.IngestionRecord{}}
}

func (s *stubReviewStore) GetByID(ctx context.Context, id string) (*models.IngestionRecord, error) {
	return s.records[id], nil
}

func (s *stubReviewStore) UpdateStatus(ctx context.Context, id string, from, to models.IngestionStatus) (bool, error) {
	rec, ok := s.records[id]
	if !ok || rec.Status != from {
		return false, nil
	}
	rec.Status = to
	return true, nil
}

func (s *stubReviewStore) ListPending(ctx context.Context, p *models.Pagination) ([]models.IngestionRecord, error) {
	var out []models.IngestionRecord
	for _, rec := range s.records {
		if rec.Status == models.IngestionPending {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *stubReviewStore) CountByStatus(ctx context.Context, status models.IngestionStatus) (int64, error) {
	var n int64
	for _, rec := range s.records {
		if rec.Status == status {
			n++
		}
	}
	return n, nil
}

func TestPersistedSubmissionEntersReviewQueue(t *testing.T) {
	f := newIngestFixture()
	svc := f.service()

	res, err := svc.Ingest(context.Background(), testSubmission(), testAdmin(0))
	require.NoError(t, err)
	require.Equal(t, dto.IngestPersisted, res.Status)
	require.NotNil(t, f.materials.createdRec)

	store := newStubReviewStore()
	store.records[f.materials.createdRec.ID] = f.materials.createdRec

	review := NewReviewService(store, nil, nil)
	pending, err := review.ListPending(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, f.materials.createdRec.ID, pending[0].ID)

	require.NoError(t, review.Approve(context.Background(), f.materials.createdRec.ID))
	require.Equal(t, models.IngestionApproved, f.materials.createdRec.Status)

	pending, err = review.ListPending(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestReviewApproveNonPendingConflicts(t *testing.T) {
	store := newStubReviewStore()
	store.records["ing-1"] = &models.IngestionRecord{ID: "ing-1", Status: models.IngestionApproved}

	review := NewReviewService(store, nil, nil)
	err := review.Approve(context.Background(), "ing-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestReviewRejectUnknownRecord(t *testing.T) {
	review := NewReviewService(newStubReviewStore(), nil, nil)
	err := review.Reject(context.Background(), "missing")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReviewPendingGaugeTracksQueue(t *testing.T) {
	store := newStubReviewStore()
	store.records["ing-1"] = &models.IngestionRecord{ID: "ing-1", Status: models.IngestionPending}
	store.records["ing-2"] = &models.IngestionRecord{ID: "ing-2", Status: models.IngestionPending}

	gauge := &gaugeRecorder{}
	review := NewReviewService(store, gauge, nil)

	require.NoError(t, review.Approve(context.Background(), "ing-1"))
	require.Equal(t, int64(1), gauge.pending)
}

type gaugeRecorder struct {
	pending int64
}

func (g *gaugeRecorder) SetPendingQueue(count int64) { g.pending = count }
