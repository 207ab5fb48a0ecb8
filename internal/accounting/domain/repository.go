package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type SyncLogCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type SyncLogFilter struct {
	BusinessID snowflake.ID
	EntityType EntityType
	Outcome    SyncOutcome
	Cursor     *SyncLogCursor
	Limit      int
}

type Repository interface {
	UpsertConnection(ctx context.Context, db *gorm.DB, conn *Connection) error
	FindConnection(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (*Connection, error)
	// UpdateTokens persists a refreshed token pair without touching status.
	UpdateTokens(ctx context.Context, db *gorm.DB, conn *Connection) error
	// Disconnect flips the status and blanks both tokens.
	Disconnect(ctx context.Context, db *gorm.DB, businessID snowflake.ID) error

	InsertSyncLog(ctx context.Context, db *gorm.DB, entry *SyncLog) error
	// HasSuccess reports whether the entity already has a SUCCESS entry.
	HasSuccess(ctx context.Context, db *gorm.DB, businessID snowflake.ID, entityType EntityType, entityID snowflake.ID) (bool, error)
	LastSyncLog(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (*SyncLog, error)
	ListSyncLogs(ctx context.Context, db *gorm.DB, filter SyncLogFilter) ([]SyncLog, error)
	// ListUnresolvedFailures returns one entry per entity whose latest
	// outcome is FAILED, oldest first, for the manual resync sweep.
	ListUnresolvedFailures(ctx context.Context, db *gorm.DB, businessID snowflake.ID, limit int) ([]SyncLog, error)
}
