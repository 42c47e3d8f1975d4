package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noor-edu/archive-api/internal/dto"
	"github.com/noor-edu/archive-api/internal/models"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
)

// MaterialRepository persists archived materials. The check-then-insert
// duplicate window is closed by the partial unique index on
// (fingerprint, scope); a constraint violation surfaces as the typed
// duplicate error.
type MaterialRepository struct {
	db *sqlx.DB
}

// NewMaterialRepository constructs the repository.
func NewMaterialRepository(db *sqlx.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

const materialColumns = `id, subject_id, section_id, section, card_id, category, item_type_id, title, url,
year_id, lecturer_id, lecture_no, fingerprint, storage_chat_id, storage_msg_id,
source_chat_id, source_topic_id, source_message_id, created_by, created_at, deleted_at`

// GetByID fetches one material.
func (r *MaterialRepository) GetByID(ctx context.Context, id string) (*models.Material, error) {
	var m models.Material
	query := fmt.Sprintf(`SELECT %s FROM materials WHERE id = $1`, materialColumns)
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get material: %w", err)
	}
	return &m, nil
}

// FindDuplicate returns the existing material with the same fingerprint in
// the same scope, or nil. NULL year/lecturer/lecture coordinates only match
// rows where they are NULL too, mirroring the unique index.
func (r *MaterialRepository) FindDuplicate(ctx context.Context, fingerprint string, scope models.MaterialScope) (*models.Material, error) {
	query := fmt.Sprintf(`
SELECT %s FROM materials
WHERE fingerprint = $1
  AND subject_id = $2
  AND section_id = $3
  AND item_type_id = $4
  AND year_id IS NOT DISTINCT FROM $5
  AND lecturer_id IS NOT DISTINCT FROM $6
  AND lecture_no IS NOT DISTINCT FROM $7
  AND deleted_at IS NULL`, materialColumns)

	var m models.Material
	err := r.db.GetContext(ctx, &m, query, fingerprint,
		scope.SubjectID, scope.SectionID, scope.ItemTypeID,
		scope.YearID, scope.LecturerID, scope.LectureNo)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find duplicate: %w", err)
	}
	return &m, nil
}

const insertMaterialQuery = `
INSERT INTO materials (id, subject_id, section_id, section, card_id, category, item_type_id, title, url,
	year_id, lecturer_id, lecture_no, fingerprint, storage_chat_id, storage_msg_id,
	source_chat_id, source_topic_id, source_message_id, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

const insertIngestionQuery = `
INSERT INTO ingestions (id, material_id, term_resource_id, status, action, source_chat_id, source_message_id,
	admin_id, file_unique_id, violation, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// CreateWithIngestion writes the material, an optional lecture shadow row
// and the ingestion record in one transaction, so the audit trail and the
// material always commit together. A unique-index violation is translated
// to the typed duplicate error for the coordinator to handle.
func (r *MaterialRepository) CreateWithIngestion(ctx context.Context, m *models.Material, shadow *models.Material, rec *models.IngestionRecord) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin material transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = now
	if _, err = tx.ExecContext(ctx, insertMaterialQuery,
		m.ID, m.SubjectID, m.SectionID, m.Section, m.CardID, m.Category, m.ItemTypeID, m.Title, m.URL,
		m.YearID, m.LecturerID, m.LectureNo, m.Fingerprint, m.StorageChatID, m.StorageMsgID,
		m.SourceChatID, m.SourceTopicID, m.SourceMessageID, m.CreatedBy, m.CreatedAt); err != nil {
		return translateMaterialErr(err)
	}

	if shadow != nil {
		var exists bool
		const shadowQuery = `
SELECT EXISTS (
	SELECT 1 FROM materials
	WHERE subject_id = $1 AND section_id = $2 AND item_type_id = $3 AND title = $4
	  AND year_id IS NOT DISTINCT FROM $5
	  AND lecturer_id IS NOT DISTINCT FROM $6
	  AND deleted_at IS NULL
)`
		if err = tx.GetContext(ctx, &exists, shadowQuery,
			shadow.SubjectID, shadow.SectionID, shadow.ItemTypeID, shadow.Title,
			shadow.YearID, shadow.LecturerID); err != nil {
			return fmt.Errorf("check lecture shadow: %w", err)
		}
		if !exists {
			if shadow.ID == "" {
				shadow.ID = uuid.NewString()
			}
			shadow.CreatedAt = now
			if _, err = tx.ExecContext(ctx, insertMaterialQuery,
				shadow.ID, shadow.SubjectID, shadow.SectionID, shadow.Section, shadow.CardID, shadow.Category,
				shadow.ItemTypeID, shadow.Title, shadow.URL,
				shadow.YearID, shadow.LecturerID, shadow.LectureNo, shadow.Fingerprint,
				shadow.StorageChatID, shadow.StorageMsgID,
				shadow.SourceChatID, shadow.SourceTopicID, shadow.SourceMessageID,
				shadow.CreatedBy, shadow.CreatedAt); err != nil {
				return translateMaterialErr(err)
			}
		}
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.MaterialID = &m.ID
	rec.CreatedAt = now
	if _, err = tx.ExecContext(ctx, insertIngestionQuery,
		rec.ID, rec.MaterialID, rec.TermResourceID, rec.Status, rec.Action,
		rec.SourceChatID, rec.SourceMessageID, rec.AdminID, rec.FileUniqueID, rec.Violation, rec.CreatedAt); err != nil {
		return fmt.Errorf("insert ingestion record: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit material transaction: %w", err)
	}
	return nil
}

// SoftDelete marks a material deleted. The partial unique index ignores
// deleted rows, so a replacement can take the same scope slot.
func (r *MaterialRepository) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	const query = `UPDATE materials SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, deletedAt)
	if err != nil {
		return fmt.Errorf("soft delete material: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete material rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountForCard reports whether any material exists in the
// (subject, section, card) scope. Used for show_when_empty suppression.
func (r *MaterialRepository) CountForCard(ctx context.Context, subjectID, sectionID, cardID string) (int, error) {
	const query = `
SELECT COUNT(1) FROM materials
WHERE subject_id = $1 AND section_id = $2 AND card_id = $3 AND deleted_at IS NULL`
	var count int
	if err := r.db.GetContext(ctx, &count, query, subjectID, sectionID, cardID); err != nil {
		return 0, fmt.Errorf("count materials for card: %w", err)
	}
	return count, nil
}

// ListLatest returns materials for a scope, newest first, optionally
// filtered by year and lecturer.
func (r *MaterialRepository) ListLatest(ctx context.Context, filter models.MaterialFilter) ([]models.Material, error) {
	query := fmt.Sprintf(`SELECT %s FROM materials WHERE deleted_at IS NULL`, materialColumns)
	args := []interface{}{}
	add := func(clause, value string) {
		args = append(args, value)
		query += fmt.Sprintf(" AND %s = $%d", clause, len(args))
	}
	if filter.SubjectID != "" {
		add("subject_id", filter.SubjectID)
	}
	if filter.SectionID != "" {
		add("section_id", filter.SectionID)
	}
	if filter.CardID != "" {
		add("card_id", filter.CardID)
	}
	if filter.ItemTypeID != "" {
		add("item_type_id", filter.ItemTypeID)
	}
	if filter.YearID != "" {
		add("year_id", filter.YearID)
	}
	if filter.LecturerID != "" {
		add("lecturer_id", filter.LecturerID)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, fmt.Sprintf("%d", filter.Limit))
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var materials []models.Material
	if err := r.db.SelectContext(ctx, &materials, query, args...); err != nil {
		return nil, fmt.Errorf("list latest materials: %w", err)
	}
	return materials, nil
}

// ListLeaf returns the display rows for a card leaf, lecture order first,
// then newest.
func (r *MaterialRepository) ListLeaf(ctx context.Context, subjectID, sectionID, cardID string, limit int) ([]dto.MaterialLeaf, error) {
	const query = `
SELECT
	m.id,
	m.title,
	COALESCE(m.url, '') AS url,
	COALESCE(m.storage_chat_id, 0) AS storage_chat_id,
	COALESCE(m.storage_msg_id, 0) AS storage_msg_id,
	COALESCE(y.name, '') AS year,
	COALESCE(l.name, '') AS lecturer,
	COALESCE(m.lecture_no, 0) AS lecture_no
FROM materials m
LEFT JOIN years y ON y.id = m.year_id
LEFT JOIN lecturers l ON l.id = m.lecturer_id
WHERE m.subject_id = $1 AND m.section_id = $2 AND m.card_id = $3 AND m.deleted_at IS NULL
ORDER BY m.lecture_no ASC NULLS LAST, m.created_at DESC
LIMIT $4`
	rows := []dto.MaterialLeaf{}
	if err := r.db.SelectContext(ctx, &rows, query, subjectID, sectionID, cardID, limit); err != nil {
		return nil, fmt.Errorf("list leaf materials: %w", err)
	}
	return rows, nil
}

// ListInventory joins materials with their taxonomy labels for export.
func (r *MaterialRepository) ListInventory(ctx context.Context, limit int) ([]dto.InventoryRow, error) {
	const query = `
SELECT
	m.id,
	sub.code AS subject_code,
	sub.name AS subject_name,
	sec.key AS section_key,
	c.key AS card_key,
	it.key AS item_type_key,
	m.title,
	COALESCE(y.name, '') AS year,
	COALESCE(l.name, '') AS lecturer,
	m.lecture_no,
	m.created_at
FROM materials m
JOIN subjects sub ON sub.id = m.subject_id
JOIN sections sec ON sec.id = m.section_id
JOIN cards c ON c.id = m.card_id
JOIN item_types it ON it.id = m.item_type_id
LEFT JOIN years y ON y.id = m.year_id
LEFT JOIN lecturers l ON l.id = m.lecturer_id
WHERE m.deleted_at IS NULL
ORDER BY m.created_at DESC
LIMIT $1`
	var rows []dto.InventoryRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return rows, nil
}

func translateMaterialErr(err error) error {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return appErrors.ErrDuplicateMaterial
	}
	return fmt.Errorf("insert material: %w", err)
}
