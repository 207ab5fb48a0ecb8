// Package domain contains persistence models for rooms and room categories.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// RoomStatus represents occupancy states for a room.
type RoomStatus string

const (
	RoomStatusVacant           RoomStatus = "VACANT"
	RoomStatusReserved         RoomStatus = "RESERVED"
	RoomStatusOccupied         RoomStatus = "OCCUPIED"
	RoomStatusUnderMaintenance RoomStatus = "UNDER_MAINTENANCE"
)

// ValidStatus reports whether value is one of the four room states.
func ValidStatus(value RoomStatus) bool {
	switch value {
	case RoomStatusVacant, RoomStatusReserved, RoomStatusOccupied, RoomStatusUnderMaintenance:
		return true
	default:
		return false
	}
}

// RoomCategory carries the nightly rate shared by rooms of one type.
type RoomCategory struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	BusinessID  snowflake.ID    `gorm:"not null;index" json:"business_id"`
	Code        string          `gorm:"type:text;not null" json:"code"`
	Name        string          `gorm:"type:text;not null" json:"name"`
	Description *string         `gorm:"type:text" json:"description,omitempty"`
	BaseRate    decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"base_rate"`
	Capacity    int             `gorm:"not null;default:2" json:"capacity"`
	Amenities   pq.StringArray  `gorm:"type:text[]" json:"amenities"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (RoomCategory) TableName() string { return "room_categories" }

// Room is one physical sellable unit. Status changes only as a side effect
// of a booking transition or an explicit maintenance override.
type Room struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	BusinessID snowflake.ID `gorm:"not null;index" json:"business_id"`
	CategoryID snowflake.ID `gorm:"not null;index" json:"category_id"`
	RoomNumber string       `gorm:"type:text;not null" json:"room_number"`
	Floor      *string      `gorm:"type:text" json:"floor,omitempty"`
	Status     RoomStatus   `gorm:"type:text;not null;default:'VACANT'" json:"status"`
	Notes      *string      `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Room) TableName() string { return "rooms" }

// RoomWithRate joins a room to its category's nightly rate for booking math.
type RoomWithRate struct {
	Room
	CategoryCode string          `gorm:"column:category_code" json:"category_code"`
	CategoryName string          `gorm:"column:category_name" json:"category_name"`
	NightlyRate  decimal.Decimal `gorm:"column:nightly_rate" json:"nightly_rate"`
}

var (
	ErrRoomNotFound          = errors.New("room_not_found")
	ErrCategoryNotFound      = errors.New("category_not_found")
	ErrInvalidRoom           = errors.New("invalid_room")
	ErrInvalidCategory       = errors.New("invalid_category")
	ErrInvalidRoomNumber     = errors.New("invalid_room_number")
	ErrInvalidCategoryCode   = errors.New("invalid_category_code")
	ErrInvalidCategoryName   = errors.New("invalid_category_name")
	ErrInvalidBaseRate       = errors.New("invalid_base_rate")
	ErrInvalidStatus         = errors.New("invalid_status")
	ErrDuplicateRoomNumber   = errors.New("duplicate_room_number")
	ErrDuplicateCategoryCode = errors.New("duplicate_category_code")
	ErrRoomNotVacant         = errors.New("room_not_vacant")
	ErrRoomNotInMaintenance  = errors.New("room_not_in_maintenance")
)
