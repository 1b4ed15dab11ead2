// Package domain contains persistence models for the org service.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Organization represents a tenant.
type Organization struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name         string            `gorm:"type:text;not null" json:"name"`
	Slug         string            `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	SupportEmail string            `gorm:"type:text;column:support_email" json:"support_email"`
	CountryCode  string            `gorm:"column:country_code" json:"country_code"`
	Industry     string            `gorm:"type:text" json:"industry"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

var (
	ErrNotFound    = errors.New("organization_not_found")
	ErrInvalidID   = errors.New("invalid_organization_id")
	ErrInvalidName = errors.New("invalid_organization_name")
)

// CreateOrganizationRequest carries the fields a new tenant is provisioned
// with. The slug is derived from the name.
type CreateOrganizationRequest struct {
	Name         string `json:"name"`
	SupportEmail string `json:"support_email"`
	CountryCode  string `json:"country_code"`
	Industry     string `json:"industry"`
}

// Service resolves and provisions tenants. Membership, billing and the rest
// of the tenant lifecycle are owned elsewhere.
type Service interface {
	GetByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	Create(ctx context.Context, req CreateOrganizationRequest) (*Organization, error)
}
