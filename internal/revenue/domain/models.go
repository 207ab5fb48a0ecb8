// Package domain covers the non-room revenue streams: bar sales (manual or
// POS-ingested), expenses, and other revenue. Other-revenue rows may link to
// a booking, which folds them into that booking's total on stay extension.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Bar sale sources. POS rows arrive through the API-key ingest endpoint and
// carry a dedupe key so replays collapse onto one row.
const (
	SourceManual = "manual"
	SourcePOS    = "pos"
)

// BarSaleItem is one line of a sale, stored as JSONB on the row.
type BarSaleItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type BarSale struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	BusinessID  snowflake.ID    `gorm:"not null;index" json:"business_id"`
	Outlet      string          `gorm:"type:text;not null;default:'bar'" json:"outlet"`
	Items       datatypes.JSON  `gorm:"type:jsonb;not null;default:'[]'" json:"items"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"total_amount"`
	Currency    string          `gorm:"type:text;not null" json:"currency"`
	PaymentMode string          `gorm:"type:text;not null" json:"payment_mode"`
	Source      string          `gorm:"type:text;not null;default:'manual'" json:"source"`
	DedupeKey   *string         `gorm:"type:text" json:"dedupe_key,omitempty"`
	SoldAt      time.Time       `gorm:"not null" json:"sold_at"`
	RecordedBy  *snowflake.ID   `json:"recorded_by,omitempty"`
	WorkerID    *snowflake.ID   `json:"worker_id,omitempty"`
	WorkerName  *string         `gorm:"type:text" json:"worker_name,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (BarSale) TableName() string { return "bar_sales" }

type Expense struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	BusinessID  snowflake.ID    `gorm:"not null;index" json:"business_id"`
	Category    string          `gorm:"type:text;not null" json:"category"`
	Description *string         `gorm:"type:text" json:"description,omitempty"`
	VendorName  *string         `gorm:"type:text" json:"vendor_name,omitempty"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"amount"`
	Currency    string          `gorm:"type:text;not null" json:"currency"`
	IncurredAt  time.Time       `gorm:"not null" json:"incurred_at"`
	RecordedBy  *snowflake.ID   `json:"recorded_by,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Expense) TableName() string { return "expenses" }

type OtherRevenue struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	BusinessID  snowflake.ID    `gorm:"not null;index" json:"business_id"`
	BookingID   *snowflake.ID   `gorm:"index" json:"booking_id,omitempty"`
	Category    string          `gorm:"type:text;not null" json:"category"`
	Description *string         `gorm:"type:text" json:"description,omitempty"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"amount"`
	Currency    string          `gorm:"type:text;not null" json:"currency"`
	OccurredAt  time.Time       `gorm:"not null" json:"occurred_at"`
	RecordedBy  *snowflake.ID   `json:"recorded_by,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (OtherRevenue) TableName() string { return "other_revenues" }

var (
	ErrBarSaleNotFound      = errors.New("bar_sale_not_found")
	ErrExpenseNotFound      = errors.New("expense_not_found")
	ErrOtherRevenueNotFound = errors.New("other_revenue_not_found")
	ErrInvalidBarSale       = errors.New("invalid_bar_sale")
	ErrInvalidExpense       = errors.New("invalid_expense")
	ErrInvalidOtherRevenue  = errors.New("invalid_other_revenue")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidItems         = errors.New("invalid_items")
	ErrInvalidCategory      = errors.New("invalid_category")
	ErrInvalidPaymentMode   = errors.New("invalid_payment_mode")
	ErrInvalidSource        = errors.New("invalid_source")
	ErrInvalidDateRange     = errors.New("invalid_date_range")
	ErrInvalidPageToken     = errors.New("invalid_page_token")
)
