package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noor-edu/archive-api/internal/models"
)

// HashtagRepository persists caption aliases and their taxonomy mappings.
type HashtagRepository struct {
	db *sqlx.DB
}

// NewHashtagRepository constructs the repository.
func NewHashtagRepository(db *sqlx.DB) *HashtagRepository {
	return &HashtagRepository{db: db}
}

// CreateAlias inserts an alias row.
func (r *HashtagRepository) CreateAlias(ctx context.Context, a *models.HashtagAlias) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	const query = `INSERT INTO hashtag_aliases (id, alias, normalized, lang) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, a.ID, a.Alias, a.Normalized, a.Lang); err != nil {
		return fmt.Errorf("insert alias: %w", err)
	}
	return nil
}

// GetAlias returns the alias row for a normalized form, or nil.
func (r *HashtagRepository) GetAlias(ctx context.Context, normalized string) (*models.HashtagAlias, error) {
	var a models.HashtagAlias
	const query = `SELECT id, alias, normalized, lang FROM hashtag_aliases WHERE normalized = $1`
	if err := r.db.GetContext(ctx, &a, query, normalized); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get alias: %w", err)
	}
	return &a, nil
}

// ListAliases returns all alias rows.
func (r *HashtagRepository) ListAliases(ctx context.Context) ([]models.HashtagAlias, error) {
	const query = `SELECT id, alias, normalized, lang FROM hashtag_aliases ORDER BY normalized`
	var aliases []models.HashtagAlias
	if err := r.db.SelectContext(ctx, &aliases, query); err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	return aliases, nil
}

// DeleteAlias removes an alias and, through the FK cascade, its mapping.
func (r *HashtagRepository) DeleteAlias(ctx context.Context, id string) error {
	const query = `DELETE FROM hashtag_aliases WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete alias: %w", err)
	}
	return nil
}

// CreateMapping binds an alias to a taxonomy target. The unique index on
// alias_id enforces at most one active mapping per alias.
func (r *HashtagRepository) CreateMapping(ctx context.Context, m *models.HashtagMapping) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	const query = `INSERT INTO hashtag_mappings (id, alias_id, target_kind, target_id, is_content_tag, overrides)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, m.ID, m.AliasID, m.TargetKind, m.TargetID, m.IsContentTag, m.Overrides); err != nil {
		return fmt.Errorf("insert mapping: %w", err)
	}
	return nil
}

// DeleteMapping removes the mapping for an alias.
func (r *HashtagRepository) DeleteMapping(ctx context.Context, aliasID string) error {
	const query = `DELETE FROM hashtag_mappings WHERE alias_id = $1`
	if _, err := r.db.ExecContext(ctx, query, aliasID); err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	return nil
}

const aliasMappingColumns = `
a.id AS alias_id,
a.alias,
a.normalized,
m.id AS mapping_id,
m.target_kind,
m.target_id,
m.is_content_tag,
m.overrides`

// ResolveAlias returns the joined alias+mapping row for a normalized alias,
// or nil when the alias is unknown or unmapped.
func (r *HashtagRepository) ResolveAlias(ctx context.Context, normalized string) (*models.AliasMapping, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM hashtag_aliases a
JOIN hashtag_mappings m ON m.alias_id = a.id
WHERE a.normalized = $1`, aliasMappingColumns)

	var row models.AliasMapping
	if err := r.db.GetContext(ctx, &row, query, normalized); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve alias: %w", err)
	}
	return &row, nil
}

// ListMappings returns every alias+mapping pair (for export).
func (r *HashtagRepository) ListMappings(ctx context.Context) ([]models.AliasMapping, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM hashtag_aliases a
JOIN hashtag_mappings m ON m.alias_id = a.id
ORDER BY a.normalized`, aliasMappingColumns)

	var rows []models.AliasMapping
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	return rows, nil
}
