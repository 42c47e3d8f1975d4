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

// TermResourceRepository persists level+term scoped resources. Older rows
// are kept for history; only the newest per (level, term, kind) is served.
type TermResourceRepository struct {
	db *sqlx.DB
}

// NewTermResourceRepository constructs the repository.
func NewTermResourceRepository(db *sqlx.DB) *TermResourceRepository {
	return &TermResourceRepository{db: db}
}

const termResourceColumns = `id, level_id, term_id, kind, storage_chat_id, storage_msg_id, created_at`

// CreateWithIngestion writes the resource and its ingestion record in one
// transaction, matching the material path's atomicity guarantee.
func (r *TermResourceRepository) CreateWithIngestion(ctx context.Context, res *models.TermResource, rec *models.IngestionRecord) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin term resource transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	res.CreatedAt = now
	const insertQuery = `
INSERT INTO term_resources (id, level_id, term_id, kind, storage_chat_id, storage_msg_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err = tx.ExecContext(ctx, insertQuery,
		res.ID, res.LevelID, res.TermID, res.Kind, res.StorageChatID, res.StorageMsgID, res.CreatedAt); err != nil {
		return fmt.Errorf("insert term resource: %w", err)
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.TermResourceID = &res.ID
	rec.CreatedAt = now
	if _, err = tx.ExecContext(ctx, insertIngestionQuery,
		rec.ID, rec.MaterialID, rec.TermResourceID, rec.Status, rec.Action,
		rec.SourceChatID, rec.SourceMessageID, rec.AdminID, rec.FileUniqueID, rec.Violation, rec.CreatedAt); err != nil {
		return fmt.Errorf("insert ingestion record: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit term resource transaction: %w", err)
	}
	return nil
}

// GetLatest returns the newest resource for (level, term, kind), or nil.
func (r *TermResourceRepository) GetLatest(ctx context.Context, levelID, termID, kind string) (*models.TermResource, error) {
	query := fmt.Sprintf(`
SELECT %s FROM term_resources
WHERE level_id = $1 AND term_id = $2 AND kind = $3
ORDER BY created_at DESC
LIMIT 1`, termResourceColumns)

	var res models.TermResource
	if err := r.db.GetContext(ctx, &res, query, levelID, termID, kind); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest term resource: %w", err)
	}
	return &res, nil
}

// ListKinds returns the kinds that have at least one resource for the
// level+term, for rendering resource tiles.
func (r *TermResourceRepository) ListKinds(ctx context.Context, levelID, termID string) ([]string, error) {
	const query = `
SELECT DISTINCT kind FROM term_resources
WHERE level_id = $1 AND term_id = $2
ORDER BY kind ASC`
	var kinds []string
	if err := r.db.SelectContext(ctx, &kinds, query, levelID, termID); err != nil {
		return nil, fmt.Errorf("list term resource kinds: %w", err)
	}
	return kinds, nil
}
