package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RevenueCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

// RangeFilter is shared by the three list queries. From/To bound the
// domain's own time column (sold_at, incurred_at, occurred_at); the cursor
// walks created_at like every other listing.
type RangeFilter struct {
	BusinessID snowflake.ID
	From       *time.Time
	To         *time.Time
	Cursor     *RevenueCursor
	Limit      int
}

type Repository interface {
	// InsertBarSale is idempotent on (business_id, dedupe_key): a POS replay
	// inserts nothing and the caller re-reads the surviving row.
	InsertBarSale(ctx context.Context, db *gorm.DB, sale *BarSale) error
	FindBarSaleByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*BarSale, error)
	FindBarSaleByDedupeKey(ctx context.Context, db *gorm.DB, businessID snowflake.ID, dedupeKey string) (*BarSale, error)
	ListBarSales(ctx context.Context, db *gorm.DB, filter RangeFilter) ([]BarSale, error)

	InsertExpense(ctx context.Context, db *gorm.DB, expense *Expense) error
	FindExpenseByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*Expense, error)
	ListExpenses(ctx context.Context, db *gorm.DB, filter RangeFilter) ([]Expense, error)

	InsertOtherRevenue(ctx context.Context, db *gorm.DB, revenue *OtherRevenue) error
	FindOtherRevenueByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*OtherRevenue, error)
	ListOtherRevenues(ctx context.Context, db *gorm.DB, filter RangeFilter) ([]OtherRevenue, error)
	// SumForBooking totals the ancillary charges linked to one booking, for
	// the stay-extension recompute.
	SumForBooking(ctx context.Context, db *gorm.DB, businessID, bookingID snowflake.ID) (decimal.Decimal, error)
}
