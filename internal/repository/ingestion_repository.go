package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noor-edu/archive-api/internal/models"
)

// IngestionRepository manages the append-only submission audit trail.
type IngestionRepository struct {
	db *sqlx.DB
}

// NewIngestionRepository constructs the repository.
func NewIngestionRepository(db *sqlx.DB) *IngestionRepository {
	return &IngestionRepository{db: db}
}

const ingestionColumns = `id, material_id, term_resource_id, status, action, source_chat_id,
	source_message_id, admin_id, file_unique_id, violation, created_at`

// Create records a submission attempt that never produced a material or
// term resource row of its own (rejections and duplicate hits).
func (r *IngestionRepository) Create(ctx context.Context, rec *models.IngestionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()

	if _, err := r.db.ExecContext(ctx, insertIngestionQuery,
		rec.ID, rec.MaterialID, rec.TermResourceID, rec.Status, rec.Action,
		rec.SourceChatID, rec.SourceMessageID, rec.AdminID, rec.FileUniqueID, rec.Violation, rec.CreatedAt); err != nil {
		return fmt.Errorf("insert ingestion record: %w", err)
	}
	return nil
}

// CreateRejected records a failed attempt, carrying the violation code for
// the audit trail.
func (r *IngestionRepository) CreateRejected(ctx context.Context, rec *models.IngestionRecord) error {
	rec.Status = models.IngestionRejected
	return r.Create(ctx, rec)
}

// GetByID fetches a single ingestion record.
func (r *IngestionRepository) GetByID(ctx context.Context, id string) (*models.IngestionRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM ingestions WHERE id = $1`, ingestionColumns)

	var rec models.IngestionRecord
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get ingestion by id: %w", err)
	}
	return &rec, nil
}

// UpdateStatus transitions an ingestion record. Returns false when the
// record no longer carries the expected status, so approvals cannot race.
func (r *IngestionRepository) UpdateStatus(ctx context.Context, id string, from, to models.IngestionStatus) (bool, error) {
	const query = `UPDATE ingestions SET status = $1 WHERE id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("update ingestion status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update ingestion status rows: %w", err)
	}
	return affected > 0, nil
}

// ListPending returns pending records oldest first for the review queue.
func (r *IngestionRepository) ListPending(ctx context.Context, p *models.Pagination) ([]models.IngestionRecord, error) {
	query := fmt.Sprintf(`
SELECT %s FROM ingestions
WHERE status = $1
ORDER BY created_at ASC
LIMIT $2 OFFSET $3`, ingestionColumns)

	records := []models.IngestionRecord{}
	if err := r.db.SelectContext(ctx, &records, query, models.IngestionPending, p.Limit(), p.Offset()); err != nil {
		return nil, fmt.Errorf("list pending ingestions: %w", err)
	}
	return records, nil
}

// ListByAdmin returns an admin's recent submission attempts.
func (r *IngestionRepository) ListByAdmin(ctx context.Context, adminID string, p *models.Pagination) ([]models.IngestionRecord, error) {
	query := fmt.Sprintf(`
SELECT %s FROM ingestions
WHERE admin_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, ingestionColumns)

	records := []models.IngestionRecord{}
	if err := r.db.SelectContext(ctx, &records, query, adminID, p.Limit(), p.Offset()); err != nil {
		return nil, fmt.Errorf("list ingestions by admin: %w", err)
	}
	return records, nil
}

// CountByStatus powers the metrics gauge for queue depth.
func (r *IngestionRepository) CountByStatus(ctx context.Context, status models.IngestionStatus) (int64, error) {
	const query = `SELECT COUNT(*) FROM ingestions WHERE status = $1`
	var count int64
	if err := r.db.GetContext(ctx, &count, query, status); err != nil {
		return 0, fmt.Errorf("count ingestions by status: %w", err)
	}
	return count, nil
}
