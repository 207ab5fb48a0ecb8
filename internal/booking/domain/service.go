package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/staypoint/pkg/pagination"
)

// DateLayout is the wire format for stay dates. Stays are day-granular;
// actual arrival and departure carry full timestamps.
const DateLayout = "2006-01-02"

type CreateBookingRequest struct {
	RoomID       string  `json:"room_id"`
	GuestName    string  `json:"guest_name"`
	GuestPhone   *string `json:"guest_phone,omitempty"`
	CheckInDate  string  `json:"check_in_date"`
	CheckOutDate string  `json:"check_out_date"`
	// Nights defaults to the day count between the stay dates when zero.
	Nights int `json:"nights,omitempty"`
	// TotalOverride replaces rate×nights. Managers only.
	TotalOverride    *decimal.Decimal `json:"total_override,omitempty"`
	ImmediateCheckIn bool             `json:"immediate_check_in,omitempty"`
	// PaymentMode is the guest's announced mode; it becomes the mode of the
	// initial ledger entry when InitialPayment is set.
	PaymentMode    *string          `json:"payment_mode,omitempty"`
	InitialPayment *decimal.Decimal `json:"initial_payment,omitempty"`
	Origin         string           `json:"origin,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
}

type AddPaymentRequest struct {
	BookingID string          `json:"-"`
	Amount    decimal.Decimal `json:"amount"`
	Mode      string          `json:"mode"`
	Reference *string         `json:"reference,omitempty"`
}

type ChangeRoomRequest struct {
	BookingID string `json:"-"`
	NewRoomID string `json:"new_room_id"`
}

type ExtendStayRequest struct {
	BookingID       string `json:"-"`
	NewCheckOutDate string `json:"new_check_out_date"`
}

type OverrideStatusRequest struct {
	BookingID string  `json:"-"`
	Status    string  `json:"status"`
	Reason    *string `json:"reason,omitempty"`
}

type ListBookingRequest struct {
	pagination.Pagination
	Status   string `form:"status"`
	RoomID   string `form:"room_id"`
	FromDate string `form:"from_date"`
	ToDate   string `form:"to_date"`
}

type ListBookingResponse struct {
	pagination.PageInfo
	Bookings []Booking `json:"bookings"`
}

// Service is the booking lifecycle state machine. Every transition commits
// its booking, room, and ledger writes as one transaction, then hands the
// accounting hook to the detached task runner.
type Service interface {
	CreateBooking(ctx context.Context, req CreateBookingRequest) (BookingWithFolio, error)
	GetBooking(ctx context.Context, bookingID string) (BookingWithFolio, error)
	ListBookings(ctx context.Context, req ListBookingRequest) (ListBookingResponse, error)
	AddPayment(ctx context.Context, req AddPaymentRequest) (BookingWithFolio, error)
	CheckIn(ctx context.Context, bookingID string) (Booking, error)
	CheckOut(ctx context.Context, bookingID string) (Booking, error)
	CancelBooking(ctx context.Context, bookingID string) (Booking, error)
	ChangeRoom(ctx context.Context, req ChangeRoomRequest) (Booking, error)
	ExtendStay(ctx context.Context, req ExtendStayRequest) (Booking, error)
	// OverrideStatus bypasses transition guards but keeps the room side
	// effects of the equivalent named transition. Managers only.
	OverrideStatus(ctx context.Context, req OverrideStatusRequest) (Booking, error)
}
