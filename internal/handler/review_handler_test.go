package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noor-edu/archive-api/internal/models"
	"github.com/noor-edu/archive-api/internal/service"
)

type fakeReviewStore struct {
	records  map[string]*models.IngestionRecord
	pending  []models.IngestionRecord
	moved    []string
	lastFrom models.IngestionStatus
	lastTo   models.IngestionStatus
}

func (f *fakeReviewStore) GetByID(_ context.Context, id string) (*models.IngestionRecord, error) {
	return f.records[id], nil
}

func (f *fakeReviewStore) UpdateStatus(_ context.Context, id string, from, to models.IngestionStatus) (bool, error) {
	f.lastFrom = from
	f.lastTo = to
	rec := f.records[id]
	if rec == nil || rec.Status != from {
		return false, nil
	}
	rec.Status = to
	f.moved = append(f.moved, id)
	return true, nil
}

func (f *fakeReviewStore) ListPending(context.Context, *models.Pagination) ([]models.IngestionRecord, error) {
	return f.pending, nil
}

func (f *fakeReviewStore) CountByStatus(context.Context, models.IngestionStatus) (int64, error) {
	return int64(len(f.pending)), nil
}

func TestReviewHandlerListPending(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeReviewStore{
		pending: []models.IngestionRecord{
			{ID: "ing-1", Status: models.IngestionPending},
			{ID: "ing-2", Status: models.IngestionPending},
		},
	}
	handler := NewReviewHandler(service.NewReviewService(store, nil, nil))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/ingestions/pending?page=1&limit=10", nil)

	handler.ListPending(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data       []models.IngestionRecord `json:"data"`
		Pagination *models.Pagination       `json:"pagination"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 2)
	assert.Equal(t, 2, envelope.Pagination.TotalCount)
}

func TestReviewHandlerApprove(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeReviewStore{
		records: map[string]*models.IngestionRecord{
			"ing-1": {ID: "ing-1", Status: models.IngestionPending},
		},
	}
	handler := NewReviewHandler(service.NewReviewService(store, nil, nil))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/ingestions/ing-1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "ing-1"}}

	handler.Approve(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, models.IngestionApproved, store.records["ing-1"].Status)
}

func TestReviewHandlerRejectNotPending(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeReviewStore{
		records: map[string]*models.IngestionRecord{
			"ing-1": {ID: "ing-1", Status: models.IngestionApproved},
		},
	}
	handler := NewReviewHandler(service.NewReviewService(store, nil, nil))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/ingestions/ing-1/reject", nil)
	c.Params = gin.Params{{Key: "id", Value: "ing-1"}}

	handler.Reject(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReviewHandlerApproveUnknown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReviewHandler(service.NewReviewService(&fakeReviewStore{}, nil, nil))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/ingestions/missing/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Approve(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
