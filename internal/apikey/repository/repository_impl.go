package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/smallbiznis/staypoint/internal/apikey/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() apikeydomain.Repository {
	return &repo{}
}

const apiKeyColumns = `id, business_id, name, key_hash, key_prefix, scopes, is_active, last_used_at, expires_at, created_by, created_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, key *apikeydomain.APIKey) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO api_keys (id, business_id, name, key_hash, key_prefix, scopes, is_active, last_used_at, expires_at, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key.ID,
		key.BusinessID,
		key.Name,
		key.KeyHash,
		key.KeyPrefix,
		key.Scopes,
		key.IsActive,
		key.LastUsedAt,
		key.ExpiresAt,
		key.CreatedBy,
		key.CreatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, key *apikeydomain.APIKey) error {
	return db.WithContext(ctx).Exec(
		`UPDATE api_keys
		 SET name = ?, scopes = ?, is_active = ?, last_used_at = ?, expires_at = ?
		 WHERE business_id = ? AND id = ?`,
		key.Name,
		key.Scopes,
		key.IsActive,
		key.LastUsedAt,
		key.ExpiresAt,
		key.BusinessID,
		key.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*apikeydomain.APIKey, error) {
	var key apikeydomain.APIKey
	err := db.WithContext(ctx).Raw(
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE business_id = ? AND id = ?`,
		businessID,
		id,
	).Scan(&key).Error
	if err != nil {
		return nil, err
	}
	if key.ID == 0 {
		return nil, nil
	}
	return &key, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, businessID snowflake.ID) ([]apikeydomain.APIKey, error) {
	var keys []apikeydomain.APIKey
	err := db.WithContext(ctx).Raw(
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE business_id = ? ORDER BY created_at DESC, id DESC`,
		businessID,
	).Scan(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}
