package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noor-edu/archive-api/internal/models"
)

// TaxonomyRepository provides persistence for sections, cards, item types
// and per-subject section enablement.
type TaxonomyRepository struct {
	db *sqlx.DB
}

// NewTaxonomyRepository constructs the repository.
func NewTaxonomyRepository(db *sqlx.DB) *TaxonomyRepository {
	return &TaxonomyRepository{db: db}
}

const sectionColumns = `id, key, label_ar, label_en, is_enabled, sort_order`

// CreateSection inserts a section and returns it with the generated id.
func (r *TaxonomyRepository) CreateSection(ctx context.Context, s *models.Section) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	const query = `INSERT INTO sections (id, key, label_ar, label_en, is_enabled, sort_order)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.Key, s.LabelAR, s.LabelEN, s.IsEnabled, s.SortOrder); err != nil {
		return fmt.Errorf("insert section: %w", err)
	}
	return nil
}

// GetSection fetches one section by id, enabled or not.
func (r *TaxonomyRepository) GetSection(ctx context.Context, id string) (*models.Section, error) {
	var s models.Section
	query := fmt.Sprintf(`SELECT %s FROM sections WHERE id = $1`, sectionColumns)
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get section: %w", err)
	}
	return &s, nil
}

// GetSectionByKey fetches one section by its stable key.
func (r *TaxonomyRepository) GetSectionByKey(ctx context.Context, key string) (*models.Section, error) {
	var s models.Section
	query := fmt.Sprintf(`SELECT %s FROM sections WHERE key = $1`, sectionColumns)
	if err := r.db.GetContext(ctx, &s, query, key); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get section by key: %w", err)
	}
	return &s, nil
}

// ListSections returns sections ordered by sort order then label.
func (r *TaxonomyRepository) ListSections(ctx context.Context, includeDisabled bool) ([]models.Section, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections`, sectionColumns)
	if !includeDisabled {
		query += ` WHERE is_enabled = TRUE`
	}
	query += ` ORDER BY sort_order ASC, label_ar ASC`
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// UpdateSection updates the mutable section fields.
func (r *TaxonomyRepository) UpdateSection(ctx context.Context, s *models.Section) error {
	const query = `UPDATE sections SET label_ar = $2, label_en = $3, is_enabled = $4, sort_order = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.LabelAR, s.LabelEN, s.IsEnabled, s.SortOrder); err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// DisableSection soft-disables a section. Sections referenced by materials
// are never deleted.
func (r *TaxonomyRepository) DisableSection(ctx context.Context, id string) error {
	const query = `UPDATE sections SET is_enabled = FALSE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("disable section: %w", err)
	}
	return nil
}

const cardColumns = `id, key, section_id, label_ar, label_en, show_when_empty, is_enabled, sort_order`

// CreateCard inserts a card.
func (r *TaxonomyRepository) CreateCard(ctx context.Context, c *models.Card) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	const query = `INSERT INTO cards (id, key, section_id, label_ar, label_en, show_when_empty, is_enabled, sort_order)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.Key, c.SectionID, c.LabelAR, c.LabelEN, c.ShowWhenEmpty, c.IsEnabled, c.SortOrder); err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

// GetCard fetches one card by id.
func (r *TaxonomyRepository) GetCard(ctx context.Context, id string) (*models.Card, error) {
	var c models.Card
	query := fmt.Sprintf(`SELECT %s FROM cards WHERE id = $1`, cardColumns)
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get card: %w", err)
	}
	return &c, nil
}

// GetCardByKey fetches one card by its stable key.
func (r *TaxonomyRepository) GetCardByKey(ctx context.Context, key string) (*models.Card, error) {
	var c models.Card
	query := fmt.Sprintf(`SELECT %s FROM cards WHERE key = $1`, cardColumns)
	if err := r.db.GetContext(ctx, &c, query, key); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get card by key: %w", err)
	}
	return &c, nil
}

// ListCards returns cards, optionally restricted to one section. Unscoped
// cards (NULL section) are included when sectionID is provided because they
// apply everywhere.
func (r *TaxonomyRepository) ListCards(ctx context.Context, sectionID string, includeDisabled bool) ([]models.Card, error) {
	query := fmt.Sprintf(`SELECT %s FROM cards`, cardColumns)
	var args []interface{}
	clauses := ""
	if sectionID != "" {
		args = append(args, sectionID)
		clauses = ` WHERE (section_id = $1 OR section_id IS NULL)`
	}
	if !includeDisabled {
		if clauses == "" {
			clauses = ` WHERE is_enabled = TRUE`
		} else {
			clauses += ` AND is_enabled = TRUE`
		}
	}
	query += clauses + ` ORDER BY sort_order ASC, label_ar ASC`
	var cards []models.Card
	if err := r.db.SelectContext(ctx, &cards, query, args...); err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

// UpdateCard updates the mutable card fields.
func (r *TaxonomyRepository) UpdateCard(ctx context.Context, c *models.Card) error {
	const query = `UPDATE cards SET section_id = $2, label_ar = $3, label_en = $4, show_when_empty = $5, is_enabled = $6, sort_order = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.SectionID, c.LabelAR, c.LabelEN, c.ShowWhenEmpty, c.IsEnabled, c.SortOrder); err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	return nil
}

const itemTypeColumns = `id, key, label_ar, label_en, requires_lecture, allows_year, allows_lecturer, is_enabled, sort_order`

// CreateItemType inserts an item type.
func (r *TaxonomyRepository) CreateItemType(ctx context.Context, t *models.ItemType) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	const query = `INSERT INTO item_types (id, key, label_ar, label_en, requires_lecture, allows_year, allows_lecturer, is_enabled, sort_order)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(ctx, query, t.ID, t.Key, t.LabelAR, t.LabelEN, t.RequiresLecture, t.AllowsYear, t.AllowsLecturer, t.IsEnabled, t.SortOrder); err != nil {
		return fmt.Errorf("insert item type: %w", err)
	}
	return nil
}

// GetItemType fetches one item type by id.
func (r *TaxonomyRepository) GetItemType(ctx context.Context, id string) (*models.ItemType, error) {
	var t models.ItemType
	query := fmt.Sprintf(`SELECT %s FROM item_types WHERE id = $1`, itemTypeColumns)
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get item type: %w", err)
	}
	return &t, nil
}

// GetItemTypeByKey fetches one item type by its stable key.
func (r *TaxonomyRepository) GetItemTypeByKey(ctx context.Context, key string) (*models.ItemType, error) {
	var t models.ItemType
	query := fmt.Sprintf(`SELECT %s FROM item_types WHERE key = $1`, itemTypeColumns)
	if err := r.db.GetContext(ctx, &t, query, key); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get item type by key: %w", err)
	}
	return &t, nil
}

// ListItemTypes returns item types ordered by sort order then label.
func (r *TaxonomyRepository) ListItemTypes(ctx context.Context, includeDisabled bool) ([]models.ItemType, error) {
	query := fmt.Sprintf(`SELECT %s FROM item_types`, itemTypeColumns)
	if !includeDisabled {
		query += ` WHERE is_enabled = TRUE`
	}
	query += ` ORDER BY sort_order ASC, label_ar ASC`
	var types []models.ItemType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list item types: %w", err)
	}
	return types, nil
}

// UpdateItemType updates the mutable item type fields.
func (r *TaxonomyRepository) UpdateItemType(ctx context.Context, t *models.ItemType) error {
	const query = `UPDATE item_types SET label_ar = $2, label_en = $3, requires_lecture = $4, allows_year = $5, allows_lecturer = $6, is_enabled = $7, sort_order = $8 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, t.ID, t.LabelAR, t.LabelEN, t.RequiresLecture, t.AllowsYear, t.AllowsLecturer, t.IsEnabled, t.SortOrder); err != nil {
		return fmt.Errorf("update item type: %w", err)
	}
	return nil
}

// EnableSubjectSection turns a section on for a subject (upsert).
func (r *TaxonomyRepository) EnableSubjectSection(ctx context.Context, subjectID, sectionID string, sortOrder int) error {
	const query = `INSERT INTO subject_section_enable (subject_id, section_id, sort_order)
VALUES ($1, $2, $3)
ON CONFLICT (subject_id, section_id) DO UPDATE SET sort_order = EXCLUDED.sort_order`
	if _, err := r.db.ExecContext(ctx, query, subjectID, sectionID, sortOrder); err != nil {
		return fmt.Errorf("enable subject section: %w", err)
	}
	return nil
}

// DisableSubjectSection removes the enablement row.
func (r *TaxonomyRepository) DisableSubjectSection(ctx context.Context, subjectID, sectionID string) error {
	const query = `DELETE FROM subject_section_enable WHERE subject_id = $1 AND section_id = $2`
	if _, err := r.db.ExecContext(ctx, query, subjectID, sectionID); err != nil {
		return fmt.Errorf("disable subject section: %w", err)
	}
	return nil
}

// ListSubjectSections returns the enabled sections for a subject, ordered by
// the enablement sort order, then the section's own order and label.
func (r *TaxonomyRepository) ListSubjectSections(ctx context.Context, subjectID string) ([]models.Section, error) {
	const query = `
SELECT s.id, s.key, s.label_ar, s.label_en, s.is_enabled, s.sort_order
FROM subject_section_enable sse
JOIN sections s ON s.id = sse.section_id
WHERE sse.subject_id = $1 AND s.is_enabled = TRUE
ORDER BY sse.sort_order ASC, s.sort_order ASC, s.label_ar ASC`
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, subjectID); err != nil {
		return nil, fmt.Errorf("list subject sections: %w", err)
	}
	return sections, nil
}

// ListSubjectSectionEnable returns the raw enablement rows (for export).
func (r *TaxonomyRepository) ListSubjectSectionEnable(ctx context.Context) ([]models.SubjectSectionEnable, error) {
	const query = `SELECT subject_id, section_id, sort_order FROM subject_section_enable ORDER BY subject_id, sort_order`
	var rows []models.SubjectSectionEnable
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list subject section enable: %w", err)
	}
	return rows, nil
}
