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

// AdminRepository handles admin account storage.
type AdminRepository struct {
	db *sqlx.DB
}

// NewAdminRepository constructs the repository.
func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

const adminColumns = `id, tg_user_id, username, password_hash, name, role, permissions_mask, level_scope, is_active, created_at`

// GetByUsername fetches an active admin by username, nil when absent.
func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	query := fmt.Sprintf(`SELECT %s FROM admins WHERE username = $1 AND is_active = TRUE`, adminColumns)

	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get admin by username: %w", err)
	}
	return &admin, nil
}

// GetByTGUserID fetches an active admin by telegram user id, nil when absent.
func (r *AdminRepository) GetByTGUserID(ctx context.Context, tgUserID int64) (*models.Admin, error) {
	query := fmt.Sprintf(`SELECT %s FROM admins WHERE tg_user_id = $1 AND is_active = TRUE`, adminColumns)

	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, query, tgUserID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get admin by tg user id: %w", err)
	}
	return &admin, nil
}

// GetByID fetches an admin regardless of active flag, nil when absent.
func (r *AdminRepository) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	query := fmt.Sprintf(`SELECT %s FROM admins WHERE id = $1`, adminColumns)

	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get admin by id: %w", err)
	}
	return &admin, nil
}

// Create inserts a new admin account.
func (r *AdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	admin.CreatedAt = time.Now().UTC()

	const query = `
INSERT INTO admins (id, tg_user_id, username, password_hash, name, role, permissions_mask, level_scope, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := r.db.ExecContext(ctx, query,
		admin.ID, admin.TGUserID, admin.Username, admin.PasswordHash, admin.Name,
		admin.Role, admin.Permissions, admin.LevelScope, admin.IsActive, admin.CreatedAt); err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

// UpdatePermissions replaces an admin's permissions mask and level scope.
func (r *AdminRepository) UpdatePermissions(ctx context.Context, id string, mask models.CapabilitySet, levelScope string) error {
	const query = `UPDATE admins SET permissions_mask = $1, level_scope = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, mask, levelScope, id)
	if err != nil {
		return fmt.Errorf("update admin permissions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update admin permissions rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns all admins ordered by creation time.
func (r *AdminRepository) List(ctx context.Context) ([]models.Admin, error) {
	query := fmt.Sprintf(`SELECT %s FROM admins ORDER BY created_at ASC`, adminColumns)

	admins := []models.Admin{}
	if err := r.db.SelectContext(ctx, &admins, query); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// Deactivate soft-disables an admin account.
func (r *AdminRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE admins SET is_active = FALSE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("deactivate admin: %w", err)
	}
	return nil
}
