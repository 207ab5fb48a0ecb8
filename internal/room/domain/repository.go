package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, room *Room) error
	FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*Room, error)
	// FindByIDForUpdate locks the room row for the enclosing transaction so
	// concurrent bookings cannot both observe it VACANT.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*Room, error)
	FindWithRateForUpdate(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*RoomWithRate, error)
	FindByNumber(ctx context.Context, db *gorm.DB, businessID snowflake.ID, roomNumber string) (*Room, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID, status RoomStatus) error
	Update(ctx context.Context, db *gorm.DB, room *Room) error
	List(ctx context.Context, db *gorm.DB, businessID snowflake.ID, filter ListRoomFilter) ([]Room, error)

	InsertCategory(ctx context.Context, db *gorm.DB, category *RoomCategory) error
	FindCategoryByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*RoomCategory, error)
	FindCategoryByCode(ctx context.Context, db *gorm.DB, businessID snowflake.ID, code string) (*RoomCategory, error)
	UpdateCategory(ctx context.Context, db *gorm.DB, category *RoomCategory) error
	ListCategories(ctx context.Context, db *gorm.DB, businessID snowflake.ID) ([]RoomCategory, error)
}

type ListRoomFilter struct {
	Status     RoomStatus
	CategoryID snowflake.ID
}
