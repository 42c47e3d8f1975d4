package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminRole represents the available roles for the RBAC system.
type AdminRole string

const (
	RoleOwner AdminRole = "OWNER"
	RoleAdmin AdminRole = "ADMIN"
)

// Capability is one bit in an admin's permissions mask.
type Capability uint64

const (
	CapBrowseContent Capability = 1 << iota
	CapUploadContent
	CapOverrideDuplicate
	CapManageTaxonomy
	CapApproveIngestions
	CapExportInventory
)

// CapabilitySet is an admin's effective permissions mask.
type CapabilitySet uint64

// Has reports whether the set contains the capability.
func (s CapabilitySet) Has(c Capability) bool {
	return uint64(s)&uint64(c) != 0
}

// With returns the set extended with the capability.
func (s CapabilitySet) With(c Capability) CapabilitySet {
	return CapabilitySet(uint64(s) | uint64(c))
}

// Admin represents an administrator stored in the admins table.
type Admin struct {
	ID           string        `db:"id" json:"id"`
	TGUserID     int64         `db:"tg_user_id" json:"tg_user_id"`
	Username     string        `db:"username" json:"username"`
	PasswordHash string        `db:"password_hash" json:"-"`
	Name         string        `db:"name" json:"name"`
	Role         AdminRole     `db:"role" json:"role"`
	Permissions  CapabilitySet `db:"permissions_mask" json:"permissions_mask"`
	LevelScope   string        `db:"level_scope" json:"level_scope"`
	IsActive     bool          `db:"is_active" json:"is_active"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// LoginRequest holds credentials for authenticating an admin.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and admin info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	Admin       AdminInfo `json:"admin"`
	IssuedAt    time.Time `json:"issued_at"`
}

// AdminInfo describes the authenticated admin in responses.
type AdminInfo struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Role AdminRole `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	AdminID      string        `json:"admin_id"`
	Role         AdminRole     `json:"role"`
	Capabilities CapabilitySet `json:"capabilities"`
	LevelScope   string        `json:"level_scope"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// Limit returns the page size, clamped to a sane default range.
func (p *Pagination) Limit() int {
	if p == nil || p.PageSize <= 0 {
		return 20
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// Offset returns the row offset for the current page.
func (p *Pagination) Offset() int {
	if p == nil || p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}
