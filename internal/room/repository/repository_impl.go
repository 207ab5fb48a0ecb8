package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	roomdomain "github.com/smallbiznis/staypoint/internal/room/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() roomdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, room *roomdomain.Room) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO rooms (
			id, business_id, category_id, room_number, floor, status, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		room.ID,
		room.BusinessID,
		room.CategoryID,
		room.RoomNumber,
		room.Floor,
		room.Status,
		room.Notes,
		room.CreatedAt,
		room.UpdatedAt,
	).Error
}

const roomColumns = `id, business_id, category_id, room_number, floor, status, notes, created_at, updated_at`

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*roomdomain.Room, error) {
	var room roomdomain.Room
	err := db.WithContext(ctx).Raw(
		`SELECT `+roomColumns+` FROM rooms WHERE business_id = ? AND id = ?`,
		businessID,
		id,
	).Scan(&room).Error
	if err != nil {
		return nil, err
	}
	if room.ID == 0 {
		return nil, nil
	}
	return &room, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*roomdomain.Room, error) {
	var room roomdomain.Room
	err := db.WithContext(ctx).Raw(
		`SELECT `+roomColumns+` FROM rooms WHERE business_id = ? AND id = ? FOR UPDATE`,
		businessID,
		id,
	).Scan(&room).Error
	if err != nil {
		return nil, err
	}
	if room.ID == 0 {
		return nil, nil
	}
	return &room, nil
}

func (r *repo) FindWithRateForUpdate(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*roomdomain.RoomWithRate, error) {
	var room roomdomain.RoomWithRate
	err := db.WithContext(ctx).Raw(
		`SELECT r.id, r.business_id, r.category_id, r.room_number, r.floor, r.status, r.notes,
		 r.created_at, r.updated_at,
		 c.code AS category_code, c.name AS category_name, c.base_rate AS nightly_rate
		 FROM rooms r
		 JOIN room_categories c ON c.id = r.category_id
		 WHERE r.business_id = ? AND r.id = ?
		 FOR UPDATE OF r`,
		businessID,
		id,
	).Scan(&room).Error
	if err != nil {
		return nil, err
	}
	if room.ID == 0 {
		return nil, nil
	}
	return &room, nil
}

func (r *repo) FindByNumber(ctx context.Context, db *gorm.DB, businessID snowflake.ID, roomNumber string) (*roomdomain.Room, error) {
	var room roomdomain.Room
	err := db.WithContext(ctx).Raw(
		`SELECT `+roomColumns+` FROM rooms WHERE business_id = ? AND room_number = ?`,
		businessID,
		roomNumber,
	).Scan(&room).Error
	if err != nil {
		return nil, err
	}
	if room.ID == 0 {
		return nil, nil
	}
	return &room, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID, status roomdomain.RoomStatus) error {
	return db.WithContext(ctx).Exec(
		`UPDATE rooms SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE business_id = ? AND id = ?`,
		status,
		businessID,
		id,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, room *roomdomain.Room) error {
	return db.WithContext(ctx).Exec(
		`UPDATE rooms
		 SET category_id = ?, room_number = ?, floor = ?, notes = ?, updated_at = ?
		 WHERE business_id = ? AND id = ?`,
		room.CategoryID,
		room.RoomNumber,
		room.Floor,
		room.Notes,
		room.UpdatedAt,
		room.BusinessID,
		room.ID,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, businessID snowflake.ID, filter roomdomain.ListRoomFilter) ([]roomdomain.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE business_id = ?`
	args := []interface{}{businessID}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.CategoryID != 0 {
		query += ` AND category_id = ?`
		args = append(args, filter.CategoryID)
	}
	query += ` ORDER BY room_number ASC`

	var rooms []roomdomain.Room
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

const categoryColumns = `id, business_id, code, name, description, base_rate, capacity, amenities, created_at, updated_at`

func (r *repo) InsertCategory(ctx context.Context, db *gorm.DB, category *roomdomain.RoomCategory) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO room_categories (
			id, business_id, code, name, description, base_rate, capacity, amenities, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		category.ID,
		category.BusinessID,
		category.Code,
		category.Name,
		category.Description,
		category.BaseRate,
		category.Capacity,
		category.Amenities,
		category.CreatedAt,
		category.UpdatedAt,
	).Error
}

func (r *repo) FindCategoryByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*roomdomain.RoomCategory, error) {
	var category roomdomain.RoomCategory
	err := db.WithContext(ctx).Raw(
		`SELECT `+categoryColumns+` FROM room_categories WHERE business_id = ? AND id = ?`,
		businessID,
		id,
	).Scan(&category).Error
	if err != nil {
		return nil, err
	}
	if category.ID == 0 {
		return nil, nil
	}
	return &category, nil
}

func (r *repo) FindCategoryByCode(ctx context.Context, db *gorm.DB, businessID snowflake.ID, code string) (*roomdomain.RoomCategory, error) {
	var category roomdomain.RoomCategory
	err := db.WithContext(ctx).Raw(
		`SELECT `+categoryColumns+` FROM room_categories WHERE business_id = ? AND code = ?`,
		businessID,
		code,
	).Scan(&category).Error
	if err != nil {
		return nil, err
	}
	if category.ID == 0 {
		return nil, nil
	}
	return &category, nil
}

func (r *repo) UpdateCategory(ctx context.Context, db *gorm.DB, category *roomdomain.RoomCategory) error {
	return db.WithContext(ctx).Exec(
		`UPDATE room_categories
		 SET name = ?, description = ?, base_rate = ?, capacity = ?, amenities = ?, updated_at = ?
		 WHERE business_id = ? AND id = ?`,
		category.Name,
		category.Description,
		category.BaseRate,
		category.Capacity,
		category.Amenities,
		category.UpdatedAt,
		category.BusinessID,
		category.ID,
	).Error
}

func (r *repo) ListCategories(ctx context.Context, db *gorm.DB, businessID snowflake.ID) ([]roomdomain.RoomCategory, error) {
	var categories []roomdomain.RoomCategory
	err := db.WithContext(ctx).Raw(
		`SELECT `+categoryColumns+` FROM room_categories WHERE business_id = ? ORDER BY code ASC`,
		businessID,
	).Scan(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}
