package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *FolioPayment) error
	FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*FolioPayment, error)
	ListByBooking(ctx context.Context, db *gorm.DB, businessID, bookingID snowflake.ID) ([]FolioPayment, error)
	SumByBooking(ctx context.Context, db *gorm.DB, businessID, bookingID snowflake.ID) (decimal.Decimal, error)
	// NextSequence atomically allocates the next folio number for the
	// business, creating the sequence row on first use.
	NextSequence(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (int64, error)
}
