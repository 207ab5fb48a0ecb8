package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	accountingdomain "github.com/smallbiznis/staypoint/internal/accounting/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() accountingdomain.Repository {
	return &repo{}
}

const connectionColumns = `id, business_id, provider, realm_id, access_token, refresh_token,
	access_token_expires_at, refresh_token_expires_at, status, connected_by, created_at, updated_at`

const syncLogColumns = `id, business_id, entity_type, entity_id, outcome, external_id, error_message, created_at`

func (r *repo) UpsertConnection(ctx context.Context, db *gorm.DB, conn *accountingdomain.Connection) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO accounting_connections (
			id, business_id, provider, realm_id, access_token, refresh_token,
			access_token_expires_at, refresh_token_expires_at, status, connected_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (business_id)
		DO UPDATE SET
			provider = excluded.provider,
			realm_id = excluded.realm_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			access_token_expires_at = excluded.access_token_expires_at,
			refresh_token_expires_at = excluded.refresh_token_expires_at,
			status = excluded.status,
			connected_by = excluded.connected_by,
			updated_at = excluded.updated_at`,
		conn.ID,
		conn.BusinessID,
		conn.Provider,
		conn.RealmID,
		conn.AccessToken,
		conn.RefreshToken,
		conn.AccessTokenExpiresAt,
		conn.RefreshTokenExpiresAt,
		conn.Status,
		conn.ConnectedBy,
		conn.CreatedAt,
		conn.UpdatedAt,
	).Error
}

func (r *repo) FindConnection(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (*accountingdomain.Connection, error) {
	var conn accountingdomain.Connection
	err := db.WithContext(ctx).Raw(
		`SELECT `+connectionColumns+` FROM accounting_connections WHERE business_id = ?`,
		businessID,
	).Scan(&conn).Error
	if err != nil {
		return nil, err
	}
	if conn.ID == 0 {
		return nil, nil
	}
	return &conn, nil
}

func (r *repo) UpdateTokens(ctx context.Context, db *gorm.DB, conn *accountingdomain.Connection) error {
	return db.WithContext(ctx).Exec(
		`UPDATE accounting_connections
		 SET access_token = ?, refresh_token = ?, access_token_expires_at = ?, refresh_token_expires_at = ?, updated_at = ?
		 WHERE business_id = ?`,
		conn.AccessToken,
		conn.RefreshToken,
		conn.AccessTokenExpiresAt,
		conn.RefreshTokenExpiresAt,
		conn.UpdatedAt,
		conn.BusinessID,
	).Error
}

func (r *repo) Disconnect(ctx context.Context, db *gorm.DB, businessID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE accounting_connections
		 SET status = ?, access_token = '', refresh_token = '', updated_at = CURRENT_TIMESTAMP
		 WHERE business_id = ?`,
		accountingdomain.ConnectionStatusDisconnected,
		businessID,
	).Error
}

func (r *repo) InsertSyncLog(ctx context.Context, db *gorm.DB, entry *accountingdomain.SyncLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO accounting_sync_logs (
			id, business_id, entity_type, entity_id, outcome, external_id, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.BusinessID,
		entry.EntityType,
		entry.EntityID,
		entry.Outcome,
		entry.ExternalID,
		entry.ErrorMessage,
		entry.CreatedAt,
	).Error
}

func (r *repo) HasSuccess(ctx context.Context, db *gorm.DB, businessID snowflake.ID, entityType accountingdomain.EntityType, entityID snowflake.ID) (bool, error) {
	var row struct {
		Present bool `gorm:"column:present"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT EXISTS (
			SELECT 1 FROM accounting_sync_logs
			WHERE business_id = ? AND entity_type = ? AND entity_id = ? AND outcome = ?
		) AS present`,
		businessID,
		entityType,
		entityID,
		accountingdomain.SyncOutcomeSuccess,
	).Scan(&row).Error
	if err != nil {
		return false, err
	}
	return row.Present, nil
}

func (r *repo) LastSyncLog(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (*accountingdomain.SyncLog, error) {
	var entry accountingdomain.SyncLog
	err := db.WithContext(ctx).Raw(
		`SELECT `+syncLogColumns+` FROM accounting_sync_logs
		 WHERE business_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		businessID,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) ListSyncLogs(ctx context.Context, db *gorm.DB, filter accountingdomain.SyncLogFilter) ([]accountingdomain.SyncLog, error) {
	var entries []accountingdomain.SyncLog
	stmt := db.WithContext(ctx).Model(&accountingdomain.SyncLog{}).
		Where("business_id = ?", filter.BusinessID)

	if filter.EntityType != "" {
		stmt = stmt.Where("entity_type = ?", filter.EntityType)
	}
	if filter.Outcome != "" {
		stmt = stmt.Where("outcome = ?", filter.Outcome)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) ListUnresolvedFailures(ctx context.Context, db *gorm.DB, businessID snowflake.ID, limit int) ([]accountingdomain.SyncLog, error) {
	var entries []accountingdomain.SyncLog
	// Snowflake ids are time-ordered, so MAX(id) per entity is its latest
	// attempt. Entities whose latest attempt succeeded drop out.
	err := db.WithContext(ctx).Raw(
		`SELECT `+syncLogColumns+` FROM accounting_sync_logs
		 WHERE business_id = ?
		   AND outcome = ?
		   AND id IN (
			SELECT MAX(id) FROM accounting_sync_logs
			WHERE business_id = ?
			GROUP BY entity_type, entity_id
		   )
		 ORDER BY created_at ASC, id ASC
		 LIMIT ?`,
		businessID,
		accountingdomain.SyncOutcomeFailed,
		businessID,
		limit,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
