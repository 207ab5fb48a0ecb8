// Package domain holds the booking lifecycle model: the joint state machine
// over a booking's status and its room's occupancy, plus the folio summary
// returned with every read.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	foliodomain "github.com/smallbiznis/staypoint/internal/folio/domain"
)

// BookingStatus is a booking's lifecycle state.
type BookingStatus string

const (
	// BookingStatusConfirmed is the canonical pre-check-in state.
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	// BookingStatusReserved survives only on rows imported from legacy
	// channels. New writes always store CONFIRMED; guards treat both as
	// "not yet checked in".
	BookingStatusReserved  BookingStatus = "RESERVED"
	BookingStatusCheckedIn BookingStatus = "CHECKED_IN"
	// Terminal states.
	BookingStatusCheckedOut BookingStatus = "CHECKED_OUT"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
)

// ValidStatus reports whether value is one of the five lifecycle states.
func ValidStatus(value BookingStatus) bool {
	switch value {
	case BookingStatusConfirmed, BookingStatusReserved, BookingStatusCheckedIn,
		BookingStatusCheckedOut, BookingStatusCancelled:
		return true
	default:
		return false
	}
}

// PreCheckIn reports whether the guest has not arrived yet. Cancellation and
// check-in are only allowed from here.
func PreCheckIn(status BookingStatus) bool {
	return status == BookingStatusConfirmed || status == BookingStatusReserved
}

// Terminal reports whether the booking can no longer transition.
func Terminal(status BookingStatus) bool {
	return status == BookingStatusCheckedOut || status == BookingStatusCancelled
}

// Booking origins. Channel and legacy rows arrive through imports; the front
// desk only ever creates front_desk bookings.
const (
	OriginFrontDesk = "front_desk"
	OriginChannel   = "channel"
	OriginLegacy    = "legacy"
)

// Booking is one stay. Rows are never deleted; cancellation is a status.
type Booking struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	BusinessID        snowflake.ID    `gorm:"not null;index" json:"business_id"`
	RoomID            snowflake.ID    `gorm:"not null;index" json:"room_id"`
	FolioNumber       string          `gorm:"type:text;not null" json:"folio_number"`
	GuestName         string          `gorm:"type:text;not null" json:"guest_name"`
	GuestPhone        *string         `gorm:"type:text" json:"guest_phone,omitempty"`
	Origin            string          `gorm:"type:text;not null;default:'front_desk'" json:"origin"`
	Status            BookingStatus   `gorm:"type:text;not null;default:'CONFIRMED'" json:"status"`
	CheckInDate       time.Time       `gorm:"type:date;not null" json:"check_in_date"`
	CheckOutDate      time.Time       `gorm:"type:date;not null" json:"check_out_date"`
	ActualCheckIn     *time.Time      `json:"actual_check_in,omitempty"`
	ActualCheckOut    *time.Time      `json:"actual_check_out,omitempty"`
	Nights            int             `gorm:"not null" json:"nights"`
	RoomRate          decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"room_rate"`
	RoomCharge        decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"room_charge"`
	TotalAmount       decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"total_amount"`
	Currency          string          `gorm:"type:text;not null" json:"currency"`
	PaymentMode       *string         `gorm:"type:text" json:"payment_mode,omitempty"`
	Notes             *string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy         *snowflake.ID   `json:"created_by,omitempty"`
	WorkerID          *snowflake.ID   `json:"worker_id,omitempty"`
	WorkerName        *string         `gorm:"type:text" json:"worker_name,omitempty"`
	ExternalInvoiceID *string         `gorm:"type:text" json:"external_invoice_id,omitempty"`
	CreatedAt         time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Booking) TableName() string { return "bookings" }

// BookingWithFolio is the detail view: the booking plus its derived folio
// summary and ledger entries.
type BookingWithFolio struct {
	Booking
	Folio    foliodomain.Summary        `json:"folio"`
	Payments []foliodomain.FolioPayment `json:"payments"`
}

var (
	ErrBookingNotFound      = errors.New("booking_not_found")
	ErrInvalidBooking       = errors.New("invalid_booking")
	ErrInvalidGuestName     = errors.New("invalid_guest_name")
	ErrInvalidStayDates     = errors.New("invalid_stay_dates")
	ErrInvalidStatus        = errors.New("invalid_booking_status")
	ErrInvalidOrigin        = errors.New("invalid_origin")
	ErrInvalidTransition    = errors.New("invalid_transition")
	ErrInvalidExtension     = errors.New("invalid_extension")
	ErrRateOverrideDenied   = errors.New("rate_override_denied")
	ErrStatusOverrideDenied = errors.New("status_override_denied")
	ErrSameRoom             = errors.New("same_room")
	ErrInvalidDateRange     = errors.New("invalid_date_range")
	ErrInvalidPageToken     = errors.New("invalid_page_token")
)
