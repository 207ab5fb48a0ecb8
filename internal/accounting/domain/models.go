// Package domain models the QuickBooks bridge state: one connection row per
// business carrying the OAuth token pair, and an append-only sync log that
// doubles as the idempotency record for entity types without their own
// external-id column.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type ConnectionStatus string

const (
	ConnectionStatusConnected    ConnectionStatus = "CONNECTED"
	ConnectionStatusDisconnected ConnectionStatus = "DISCONNECTED"
)

// Connection is the per-business link to the external accounting system.
// At most one row per business; disconnect flips the status and blanks the
// tokens rather than deleting history.
type Connection struct {
	ID                    snowflake.ID     `gorm:"primaryKey" json:"id"`
	BusinessID            snowflake.ID     `gorm:"not null;uniqueIndex" json:"business_id"`
	Provider              string           `gorm:"type:text;not null;default:'quickbooks'" json:"provider"`
	RealmID               string           `gorm:"type:text;not null" json:"realm_id"`
	AccessToken           string           `gorm:"type:text;not null" json:"-"`
	RefreshToken          string           `gorm:"type:text;not null" json:"-"`
	AccessTokenExpiresAt  time.Time        `gorm:"not null" json:"access_token_expires_at"`
	RefreshTokenExpiresAt *time.Time       `json:"refresh_token_expires_at,omitempty"`
	Status                ConnectionStatus `gorm:"type:text;not null;default:'CONNECTED'" json:"status"`
	ConnectedBy           *snowflake.ID    `json:"connected_by,omitempty"`
	CreatedAt             time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt             time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Connection) TableName() string { return "accounting_connections" }

// Live reports whether the connection can be used for syncing.
func (c *Connection) Live() bool {
	return c != nil && c.Status == ConnectionStatusConnected
}

// Sync entity types, matching the source rows being mirrored.
type EntityType string

const (
	EntityTypeBooking      EntityType = "BOOKING"
	EntityTypePayment      EntityType = "PAYMENT"
	EntityTypeBarSale      EntityType = "BAR_SALE"
	EntityTypeExpense      EntityType = "EXPENSE"
	EntityTypeOtherRevenue EntityType = "OTHER_REVENUE"
)

type SyncOutcome string

const (
	SyncOutcomeSuccess SyncOutcome = "SUCCESS"
	SyncOutcomeFailed  SyncOutcome = "FAILED"
)

// SyncLog is one bridge attempt's outcome. Append-only.
type SyncLog struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	BusinessID   snowflake.ID `gorm:"not null;index" json:"business_id"`
	EntityType   EntityType   `gorm:"type:text;not null" json:"entity_type"`
	EntityID     snowflake.ID `gorm:"not null" json:"entity_id"`
	Outcome      SyncOutcome  `gorm:"type:text;not null" json:"outcome"`
	ExternalID   *string      `gorm:"type:text" json:"external_id,omitempty"`
	ErrorMessage *string      `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (SyncLog) TableName() string { return "accounting_sync_logs" }

var (
	ErrNotConnected        = errors.New("accounting_not_connected")
	ErrAlreadyConnected    = errors.New("accounting_already_connected")
	ErrInvalidConnectCode  = errors.New("invalid_connect_code")
	ErrInvalidRealm        = errors.New("invalid_realm")
	ErrTokenRefreshFailed  = errors.New("token_refresh_failed")
	ErrEntityNotFound      = errors.New("sync_entity_not_found")
	ErrInvalidEntityType   = errors.New("invalid_entity_type")
	ErrInvalidSyncOutcome  = errors.New("invalid_sync_outcome")
	ErrMissingExternalLink = errors.New("missing_external_link")
	ErrPermissionDenied    = errors.New("permission_denied")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
)
