package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noor-edu/archive-api/internal/models"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
)

type permissionAdminStore interface {
	GetByTGUserID(ctx context.Context, tgUserID int64) (*models.Admin, error)
	UpdatePermissions(ctx context.Context, id string, mask models.CapabilitySet, levelScope string) error
}

// PermissionService answers capability questions for admins. Owners hold
// every capability implicitly.
type PermissionService struct {
	admins permissionAdminStore
	logger *zap.Logger
}

// NewPermissionService constructs a PermissionService.
func NewPermissionService(admins permissionAdminStore, logger *zap.Logger) *PermissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionService{admins: admins, logger: logger}
}

// Has reports whether the admin holds the capability.
func (s *PermissionService) Has(admin *models.Admin, cap models.Capability) bool {
	if admin == nil {
		return false
	}
	if admin.Role == models.RoleOwner {
		return true
	}
	return admin.Permissions.Has(cap)
}

// Require returns a typed forbidden error when the capability is missing.
func (s *PermissionService) Require(admin *models.Admin, cap models.Capability) error {
	if s.Has(admin, cap) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "missing required capability")
}

// ResolveByChatUser loads the admin behind a chat transport user id.
func (s *PermissionService) ResolveByChatUser(ctx context.Context, tgUserID int64) (*models.Admin, error) {
	admin, err := s.admins.GetByTGUserID(ctx, tgUserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve chat user")
	}
	if admin == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "chat user is not an admin")
	}
	return admin, nil
}

// Grant adds a capability to an admin's mask.
func (s *PermissionService) Grant(ctx context.Context, admin *models.Admin, cap models.Capability) error {
	mask := admin.Permissions.With(cap)
	if err := s.admins.UpdatePermissions(ctx, admin.ID, mask, admin.LevelScope); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grant capability")
	}
	admin.Permissions = mask
	s.logger.Info("capability granted", zap.String("admin_id", admin.ID), zap.Uint64("mask", uint64(mask)))
	return nil
}
