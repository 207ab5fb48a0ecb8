package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, key *APIKey) error
	Update(ctx context.Context, db *gorm.DB, key *APIKey) error
	FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*APIKey, error)
	List(ctx context.Context, db *gorm.DB, businessID snowflake.ID) ([]APIKey, error)
}
