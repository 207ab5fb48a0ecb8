package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
)

// APIKey stores hashed machine credentials scoped to one business. Only the
// sha256 of the full key is persisted; KeyPrefix keeps the displayable head
// so the desk can tell keys apart in listings.
type APIKey struct {
	ID         snowflake.ID   `gorm:"primaryKey"`
	BusinessID snowflake.ID   `gorm:"column:business_id;not null;index"`
	Name       string         `gorm:"type:text;not null"`
	KeyHash    string         `gorm:"column:key_hash;type:text;not null;uniqueIndex"`
	KeyPrefix  string         `gorm:"column:key_prefix;type:text;not null"`
	Scopes     pq.StringArray `gorm:"type:text[];not null"`
	IsActive   bool           `gorm:"column:is_active;not null;default:true"`
	LastUsedAt *time.Time     `gorm:"column:last_used_at"`
	ExpiresAt  *time.Time     `gorm:"column:expires_at"`
	CreatedBy  *snowflake.ID  `gorm:"column:created_by"`
	CreatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (APIKey) TableName() string { return "api_keys" }
