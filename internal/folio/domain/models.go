// Package domain contains the append-only payment ledger backing each
// booking's folio, and the pure summary math derived from it.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the three-way settlement state of a folio.
type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "UNPAID"
	PaymentStatusPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentStatusFullyPaid     PaymentStatus = "FULLY_PAID"
)

// Tolerance absorbs cent-level rounding drift when comparing a ledger sum
// against a booking total.
var Tolerance = decimal.New(1, -4)

// FolioPayment is one immutable ledger entry. Entries are only ever
// appended; corrections happen through new bookings, never edits.
type FolioPayment struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	BusinessID snowflake.ID    `gorm:"not null;index" json:"business_id"`
	BookingID  snowflake.ID    `gorm:"not null;index" json:"booking_id"`
	Amount     decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"amount"`
	Mode       string          `gorm:"type:text;not null" json:"mode"`
	Reference  *string         `gorm:"type:text" json:"reference,omitempty"`
	RecordedBy *snowflake.ID   `gorm:"column:recorded_by" json:"recorded_by,omitempty"`
	WorkerID   *snowflake.ID   `gorm:"column:worker_id" json:"worker_id,omitempty"`
	WorkerName *string         `gorm:"type:text" json:"worker_name,omitempty"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (FolioPayment) TableName() string { return "folio_payments" }

// FolioSequence allocates per-business monotonic folio numbers.
type FolioSequence struct {
	BusinessID snowflake.ID `gorm:"primaryKey" json:"business_id"`
	NextNumber int64        `gorm:"not null;default:1" json:"next_number"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (FolioSequence) TableName() string { return "folio_sequences" }

// Summary is the derived financial view of one booking's folio.
type Summary struct {
	Paid    decimal.Decimal `json:"paid"`
	Balance decimal.Decimal `json:"balance"`
	Status  PaymentStatus   `json:"status"`
}

var (
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidPaymentMode  = errors.New("invalid_payment_mode")
	ErrPaymentExceedsTotal = errors.New("payment_exceeds_total")
)
