package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CreateRoomRequest struct {
	CategoryID string  `json:"category_id"`
	RoomNumber string  `json:"room_number"`
	Floor      *string `json:"floor,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

type UpdateRoomRequest struct {
	RoomID     string  `json:"-"`
	CategoryID *string `json:"category_id,omitempty"`
	RoomNumber *string `json:"room_number,omitempty"`
	Floor      *string `json:"floor,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

type ListRoomRequest struct {
	Status     string `form:"status"`
	CategoryID string `form:"category_id"`
}

type ListRoomResponse struct {
	Rooms []Room `json:"rooms"`
}

type CreateRoomCategoryRequest struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	BaseRate    decimal.Decimal `json:"base_rate"`
	Capacity    int             `json:"capacity"`
	Amenities   []string        `json:"amenities,omitempty"`
}

type UpdateRoomCategoryRequest struct {
	CategoryID  string           `json:"-"`
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	BaseRate    *decimal.Decimal `json:"base_rate,omitempty"`
	Capacity    *int             `json:"capacity,omitempty"`
	Amenities   []string         `json:"amenities,omitempty"`
}

type ListRoomCategoryResponse struct {
	Categories []RoomCategory `json:"categories"`
}

// Service manages the room registry. Booking transitions mutate room status
// through the repository inside their own transactions; the maintenance
// operations here are the manager-facing overrides.
type Service interface {
	CreateRoom(ctx context.Context, req CreateRoomRequest) (Room, error)
	UpdateRoom(ctx context.Context, req UpdateRoomRequest) (Room, error)
	GetRoom(ctx context.Context, roomID string) (Room, error)
	ListRooms(ctx context.Context, req ListRoomRequest) (ListRoomResponse, error)
	MarkMaintenance(ctx context.Context, roomID string) (Room, error)
	ReleaseMaintenance(ctx context.Context, roomID string) (Room, error)

	CreateCategory(ctx context.Context, req CreateRoomCategoryRequest) (RoomCategory, error)
	UpdateCategory(ctx context.Context, req UpdateRoomCategoryRequest) (RoomCategory, error)
	ListCategories(ctx context.Context) (ListRoomCategoryResponse, error)

	// InvalidateListing drops cached room listings for the business after an
	// out-of-band status write (booking transitions).
	InvalidateListing(businessID snowflake.ID)
}
