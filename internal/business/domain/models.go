// Package domain contains persistence models for tenant businesses.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleOwner        = "OWNER"
	RoleManager      = "MANAGER"      // Overrides, maintenance, accounting connect
	RoleReceptionist = "RECEPTIONIST" // Front desk day-to-day
)

// Managerial reports whether a role may use the manager-only paths:
// total overrides, status overrides, and maintenance flips.
func Managerial(role string) bool {
	switch role {
	case RoleOwner, RoleManager:
		return true
	default:
		return false
	}
}

// Business represents a tenant property (hotel, bar, or restaurant).
type Business struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Slug      string       `gorm:"type:text;not null;uniqueIndex:ux_businesses_slug" json:"slug"`
	Timezone  string       `gorm:"type:text;not null;default:'UTC'" json:"timezone"`
	Currency  string       `gorm:"type:text;not null;default:'IDR'" json:"currency"`
	IsDefault bool         `gorm:"column:is_default" json:"is_default"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Business) TableName() string { return "businesses" }

// BusinessMember represents membership of a staff user in a business.
type BusinessMember struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	BusinessID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_business_members_user,priority:1" json:"business_id"`
	UserID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_business_members_user,priority:2" json:"user_id"`
	Role       string       `gorm:"type:text;not null" json:"role"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (BusinessMember) TableName() string { return "business_members" }

var (
	ErrBusinessNotFound = errors.New("business_not_found")
	ErrMemberNotFound   = errors.New("member_not_found")
	ErrInvalidRole      = errors.New("invalid_role")
)
