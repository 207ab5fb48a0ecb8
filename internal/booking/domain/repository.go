package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, booking *Booking) error
	FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*Booking, error)
	// FindByIDForUpdate locks the booking row for the enclosing transaction
	// so concurrent transitions on one booking serialize.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*Booking, error)
	// UpdateLifecycle persists status, room assignment, and the actual
	// check-in/out timestamps.
	UpdateLifecycle(ctx context.Context, db *gorm.DB, booking *Booking) error
	// UpdateStay persists the extend-stay recompute: checkout date, nights,
	// room charge, and total.
	UpdateStay(ctx context.Context, db *gorm.DB, booking *Booking) error
	SetExternalInvoiceID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID, externalID string) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Booking, error)
}

type BookingCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	BusinessID snowflake.ID
	Status     BookingStatus
	RoomID     snowflake.ID
	// FromDate/ToDate bound check_in_date, inclusive.
	FromDate *time.Time
	ToDate   *time.Time
	Cursor   *BookingCursor
	Limit    int
}
