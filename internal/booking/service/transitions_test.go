package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	bookingdomain "github.com/smallbiznis/staypoint/internal/booking/domain"
	businessdomain "github.com/smallbiznis/staypoint/internal/business/domain"
	foliodomain "github.com/smallbiznis/staypoint/internal/folio/domain"
	revenuedomain "github.com/smallbiznis/staypoint/internal/revenue/domain"
	roomdomain "github.com/smallbiznis/staypoint/internal/room/domain"
	"github.com/smallbiznis/staypoint/pkg/pagination"
	"github.com/stretchr/testify/assert"
)

func TestCheckInFromConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(businessdomain.RoleReceptionist)
	room := f.newRoom(50000)
	created := f.createBooking(ctx, stayRequest(room))

	after, err := f.svc.CheckIn(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("check in: %v", err)
	}

	assert.Equal(t, bookingdomain.BookingStatusCheckedIn, after.Status)
	if assert.NotNil(t, after.ActualCheckIn) {
		assert.True(t, after.ActualCheckIn.Equal(fixtureStart))
	}
	assert.Equal(t, roomdomain.RoomStatusOccupied, f.roomStatus(room.ID))
}

func TestCheckInAcceptsLegacyReserved(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(businessdomain.RoleReceptionist)
	room := f.newRoom(50000)

	// Rows imported from the old channel manager still carry RESERVED.
	legacy := bookingdomain.Booking{
		ID:           f.node.Generate(),
		BusinessID:   f.businessID,
		RoomID:       room.ID,
		FolioNumber:  "FOL-202503-000099",
		GuestName:    "Pak Budi",
		Origin:       bookingdomain.OriginLegacy,
		Status:       bookingdomain.BookingStatusReserved,
		CheckInDate:  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		CheckOutDate: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		Nights:       2,
		RoomRate:     decimal.NewFromInt(50000),
		RoomCharge:   decimal.NewFromInt(100000),
		TotalAmount:  decimal.NewFromInt(100000),
		Currency:     "IDR",
		CreatedAt:    f.clk.Now(),
		UpdatedAt:    f.clk.Now(),
	}
	if err := f.db.Create(&legacy).Error; err != nil {
		t.Fatalf("seed legacy booking: %v", err)
	}

	after, err := f.svc.CheckIn(ctx, legacy.ID.String())
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	assert.Equal(t, bookingdomain.BookingStatusCheckedIn, after.Status)
	assert.Equal(t, roomdomain.RoomStatusOccupied, f.roomStatus(room.ID))
}

func TestCheckInGuards(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(businessdomain.RoleReceptionist)

	req := stayRequest(f.newRoom(50000))
	req.ImmediateCheckIn = true
	departed := f.createBooking(ctx, req)
	if _, err := f.svc.CheckOut(ctx, departed.ID.String()); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	_, err := f.svc.CheckIn(ctx, departed.ID.String())
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidTransition)

	_, err = f.svc.CheckIn(ctx, f.node.Generate().String())
	assert.ErrorIs(t, err, bookingdomain.ErrBookingNotFound)

	_, err = f.svc.CheckIn(ctx, "not-a-snowflake")
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidBooking)
}

func TestCheckOutStampsActualDeparture(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(businessdomain.RoleReceptionist)
	room := f.newRoom(50000)

	req := stayRequest(room)
	req.ImmediateCheckIn = true
	created := f.createBooking(ctx, req)

	// Guest leaves mid-morning two days later, not at the planned date.
	f.clk.Advance(48*time.Hour + 3*time.Hour)
	departure := f.clk.Now()

	after, err := f.svc.CheckOut(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("check out: %v", err)
	}

	assert.Equal(t, bookingdomain.BookingStatusCheckedOut, after.Status)
	if assert.NotNil(t, after.ActualCheckOut) {
		assert.True(t, after.ActualCheckOut.Equal(departure))
	}
	assert.Equal(t, roomdomain.RoomStatusUnderMaintenance, f.roomStatus(room.ID))
}

func TestCheckOutRequiresCheckedIn(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(businessdomain.RoleReceptionist)
	created := f.createBooking(ctx, stayRequest(f.newRoom(50000)))

	_, err := f.svc.CheckOut(ctx, created.ID.String())
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidTransition)
}

func TestCancelReleasesRoom(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(businessdomain.RoleReceptionist)
	room := f.newRoom(50000)
	created := f.createBooking(ctx, stayRequest(room))

	after, err := f.svc.CancelBooking(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	assert.Equal(t, bookingdomain.BookingStatusCancelled, after.Status)
	assert.Equal(t, roomdomain.RoomStatusVacant, f.roomStatus(room.ID))
}

func TestCancelRejectsCheckedInGuest(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(businessdomain.RoleReceptionist)
	room := f.newRoom(50000)

	req := stayRequest(room)
	req.ImmediateCheckIn = true
	created := f.createBooking(ctx, req)

	_, err := f.svc.CancelBooking(ctx, created.ID.String())
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidTransition)
	assert.Equal(t, roomdomain.RoomStatusOccupied, f.roomStatus(room.ID))
}

func TestChangeRoomWhileCheckedIn(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(businessdomain.RoleReceptionist)
	oldRoom := f.newRoom(50000)
	newRoom := f.newRoom(50000)

	req := stayRequest(oldRoom)
	req.ImmediateCheckIn = true
	created := f.createBooking(ctx, req)

	after, err := f.svc.ChangeRoom(ctx, bookingdomain.ChangeRoomRequest{
		BookingID: created.ID.String(),
		NewRoomID: newRoom.ID.String(),
	})
	if err != nil {
		t.Fatalf("change room: %v", err)
	}

	assert.Equal(t, newRoom.ID, after.RoomID)
	assert.Equal(t, roomdomain.RoomStatusVacant, f.roomStatus(oldRoom.ID))
	assert.Equal(t, roomdomain.RoomStatusOccupied, f.roomStatus(newRoom.ID))
}

func TestChangeRoomBeforeCheckIn(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(businessdomain.RoleReceptionist)
	oldRoom := f.newRoom(50000)
	newRoom := f.newRoom(50000)
	created := f.createBooking(ctx, stayRequest(oldRoom))

	after, err := f.svc.ChangeRoom(ctx, bookingdomain.ChangeRoomRequest{
		BookingID: created.ID.String(),
		NewRoomID: newRoom.ID.String(),
	})
	if err != nil {
		t.Fatalf("change room: %v", err)
	}

	assert.Equal(t, newRoom.ID, after.RoomID)
	assert.Equal(t, roomdomain.RoomStatusVacant, f.roomStatus(oldRoom.ID))
	assert.Equal(t, roomdomain.RoomStatusReserved, f.roomStatus(newRoom.ID))
}

func TestChangeRoomGuards(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(businessdomain.RoleReceptionist)
	oldRoom := f.newRoom(50000)
	takenRoom := f.newRoom(50000)

	req := stayRequest(oldRoom)
	req.ImmediateCheckIn = true
	created := f.createBooking(ctx, req)

	other := stayRequest(takenRoom)
	other.ImmediateCheckIn = true
	f.createBooking(ctx, other)

	_, err := f.svc.ChangeRoom(ctx, bookingdomain.ChangeRoomRequest{
		BookingID: created.ID.String(),
		NewRoomID: oldRoom.ID.String(),
	})
	assert.ErrorIs(t, err, bookingdomain.ErrSameRoom)

	_, err = f.svc.ChangeRoom(ctx, bookingdomain.ChangeRoomRequest{
		BookingID: created.ID.String(),
		NewRoomID: takenRoom.ID.String(),
	})
	assert.ErrorIs(t, err, roomdomain.ErrRoomNotVacant)
	// The failed move rolls back: the guest stays where they were.
	assert.Equal(t, roomdomain.RoomStatusOccupied, f.roomStatus(oldRoom.ID))

	_, err = f.svc.ChangeRoom(ctx, bookingdomain.ChangeRoomRequest{
		BookingID: created.ID.String(),
		NewRoomID: f.node.Generate().String(),
	})
	assert.ErrorIs(t, err, roomdomain.ErrRoomNotFound)
}

func TestExtendStayRecomputesTotal(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(businessdomain.RoleReceptionist)
	room := f.newRoom(50000)

	req := stayRequest(room)
	req.ImmediateCheckIn = true
	req.PaymentMode = strptr("CASH")
	created := f.createBooking(ctx, req)

	// A room-service charge posted during the stay counts into the total.
	minibar := revenuedomain.OtherRevenue{
		ID:          f.node.Generate(),
		BusinessID:  f.businessID,
		BookingID:   &created.ID,
		Category:    "room_service",
		Description: strptr("minibar"),
		Amount:      decimal.NewFromInt(25000),
		Currency:    "IDR",
		OccurredAt:  f.clk.Now(),
		CreatedAt:   f.clk.Now(),
	}
	if err := f.db.Create(&minibar).Error; err != nil {
		t.Fatalf("seed other revenue: %v", err)
	}

	after, err := f.svc.ExtendStay(ctx, bookingdomain.ExtendStayRequest{
		BookingID:       created.ID.String(),
		NewCheckOutDate: "2025-03-15",
	})
	if err != nil {
		t.Fatalf("extend stay: %v", err)
	}

	assert.Equal(t, 5, after.Nights)
	assert.Equal(t, "2025-03-15", after.CheckOutDate.Format(bookingdomain.DateLayout))
	assert.True(t, after.RoomCharge.Equal(decimal.NewFromInt(250000)),
		"room charge 5 × 50000, got %s", after.RoomCharge)
	assert.True(t, after.TotalAmount.Equal(decimal.NewFromInt(275000)),
		"total includes the 25000 ancillary, got %s", after.TotalAmount)

	// Extending never rewrites the ledger or the room; the folio simply
	// shows a balance again.
	assert.Equal(t, int64(1), f.paymentCount(created.ID))
	assert.Equal(t, roomdomain.RoomStatusOccupied, f.roomStatus(room.ID))

	reloaded, err := f.svc.GetBooking(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	assert.Equal(t, foliodomain.PaymentStatusPartiallyPaid, reloaded.Folio.Status)
	assert.True(t, reloaded.Folio.Balance.Equal(decimal.NewFromInt(125000)))
}

func TestExtendStayRejectsEarlierOrEqualDate(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(businessdomain.RoleReceptionist)

	req := stayRequest(f.newRoom(50000))
	req.ImmediateCheckIn = true
	created := f.createBooking(ctx, req)

	_, err := f.svc.ExtendStay(ctx, bookingdomain.ExtendStayRequest{
		BookingID:       created.ID.String(),
		NewCheckOutDate: "2025-03-13",
	})
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidExtension)

	_, err = f.svc.ExtendStay(ctx, bookingdomain.ExtendStayRequest{
		BookingID:       created.ID.String(),
		NewCheckOutDate: "2025-03-12",
	})
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidExtension)
}

func TestExtendStayRequiresCheckedIn(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(businessdomain.RoleReceptionist)
	created := f.createBooking(ctx, stayRequest(f.newRoom(50000)))

	_, err := f.svc.ExtendStay(ctx, bookingdomain.ExtendStayRequest{
		BookingID:       created.ID.String(),
		NewCheckOutDate: "2025-03-20",
	})
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidTransition)
}

func TestOverrideStatusIsManagerOnly(t *testing.T) {
	f := newFixture(t)
	created := f.createBooking(f.ctx(businessdomain.RoleReceptionist), stayRequest(f.newRoom(50000)))

	_, err := f.svc.OverrideStatus(f.ctx(businessdomain.RoleReceptionist), bookingdomain.OverrideStatusRequest{
		BookingID: created.ID.String(),
		Status:    "CHECKED_OUT",
	})
	assert.ErrorIs(t, err, bookingdomain.ErrStatusOverrideDenied)
}

func TestOverrideStatusForcesCheckout(t *testing.T) {
	f := newFixture(t)
	room := f.newRoom(50000)
	created := f.createBooking(f.ctx(businessdomain.RoleReceptionist), stayRequest(room))

	after, err := f.svc.OverrideStatus(f.ctx(businessdomain.RoleManager), bookingdomain.OverrideStatusRequest{
		BookingID: created.ID.String(),
		Status:    "checked_out",
		Reason:    strptr("guest never arrived, folio closed by manager"),
	})
	if err != nil {
		t.Fatalf("override: %v", err)
	}

	assert.Equal(t, bookingdomain.BookingStatusCheckedOut, after.Status)
	assert.NotNil(t, after.ActualCheckOut)
	assert.Equal(t, roomdomain.RoomStatusUnderMaintenance, f.roomStatus(room.ID))
}

func TestOverrideStatusCancelAfterCheckInKeepsRoom(t *testing.T) {
	f := newFixture(t)
	room := f.newRoom(50000)

	req := stayRequest(room)
	req.ImmediateCheckIn = true
	created := f.createBooking(f.ctx(businessdomain.RoleReceptionist), req)

	after, err := f.svc.OverrideStatus(f.ctx(businessdomain.RoleManager), bookingdomain.OverrideStatusRequest{
		BookingID: created.ID.String(),
		Status:    "CANCELLED",
	})
	if err != nil {
		t.Fatalf("override: %v", err)
	}

	assert.Equal(t, bookingdomain.BookingStatusCancelled, after.Status)
	// The room was physically occupied; housekeeping decides when it is
	// sellable again, not the override.
	assert.Equal(t, roomdomain.RoomStatusOccupied, f.roomStatus(room.ID))
}

func TestOverrideStatusNormalizesReserved(t *testing.T) {
	f := newFixture(t)
	room := f.newRoom(50000)

	req := stayRequest(room)
	req.ImmediateCheckIn = true
	created := f.createBooking(f.ctx(businessdomain.RoleReceptionist), req)

	// Rewinding a mistaken check-in lands on CONFIRMED, never on the
	// legacy alias.
	after, err := f.svc.OverrideStatus(f.ctx(businessdomain.RoleManager), bookingdomain.OverrideStatusRequest{
		BookingID: created.ID.String(),
		Status:    "RESERVED",
	})
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	assert.Equal(t, bookingdomain.BookingStatusConfirmed, after.Status)
	assert.Equal(t, roomdomain.RoomStatusReserved, f.roomStatus(room.ID))

	_, err = f.svc.OverrideStatus(f.ctx(businessdomain.RoleManager), bookingdomain.OverrideStatusRequest{
		BookingID: created.ID.String(),
		Status:    "NO_SHOW",
	})
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidStatus)
}

func TestOverrideStatusSameStatusIsNoOp(t *testing.T) {
	f := newFixture(t)
	room := f.newRoom(50000)
	created := f.createBooking(f.ctx(businessdomain.RoleReceptionist), stayRequest(room))

	after, err := f.svc.OverrideStatus(f.ctx(businessdomain.RoleManager), bookingdomain.OverrideStatusRequest{
		BookingID: created.ID.String(),
		Status:    "CONFIRMED",
	})
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	assert.Equal(t, bookingdomain.BookingStatusConfirmed, after.Status)
	assert.Equal(t, roomdomain.RoomStatusReserved, f.roomStatus(room.ID))
}

func TestListBookingsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(businessdomain.RoleReceptionist)

	roomA := f.newRoom(50000)
	roomB := f.newRoom(60000)

	f.createBooking(ctx, stayRequest(roomA))
	f.clk.Advance(time.Minute)

	arrived := stayRequest(roomB)
	arrived.ImmediateCheckIn = true
	arrived.CheckInDate = "2025-03-20"
	arrived.CheckOutDate = "2025-03-22"
	checkedIn := f.createBooking(ctx, arrived)

	byStatus, err := f.svc.ListBookings(ctx, bookingdomain.ListBookingRequest{Status: "checked_in"})
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if assert.Len(t, byStatus.Bookings, 1) {
		assert.Equal(t, checkedIn.ID, byStatus.Bookings[0].ID)
	}

	byRoom, err := f.svc.ListBookings(ctx, bookingdomain.ListBookingRequest{RoomID: roomA.ID.String()})
	if err != nil {
		t.Fatalf("list by room: %v", err)
	}
	assert.Len(t, byRoom.Bookings, 1)

	byDate, err := f.svc.ListBookings(ctx, bookingdomain.ListBookingRequest{
		FromDate: "2025-03-15",
		ToDate:   "2025-03-25",
	})
	if err != nil {
		t.Fatalf("list by date: %v", err)
	}
	if assert.Len(t, byDate.Bookings, 1) {
		assert.Equal(t, checkedIn.ID, byDate.Bookings[0].ID)
	}

	_, err = f.svc.ListBookings(ctx, bookingdomain.ListBookingRequest{Status: "NO_SHOW"})
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidStatus)

	_, err = f.svc.ListBookings(ctx, bookingdomain.ListBookingRequest{
		FromDate: "2025-03-25",
		ToDate:   "2025-03-15",
	})
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidDateRange)

	badToken := bookingdomain.ListBookingRequest{}
	badToken.PageToken = "%%%"
	_, err = f.svc.ListBookings(ctx, badToken)
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidPageToken)
}

func TestListBookingsPaginatesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(businessdomain.RoleReceptionist)

	var ids []string
	for i := 0; i < 5; i++ {
		created := f.createBooking(ctx, stayRequest(f.newRoom(50000)))
		ids = append(ids, created.ID.String())
		f.clk.Advance(time.Minute)
	}

	var seen []string
	req := bookingdomain.ListBookingRequest{Pagination: pagination.Pagination{PageSize: 2}}
	for {
		page, err := f.svc.ListBookings(ctx, req)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		assert.LessOrEqual(t, len(page.Bookings), 2)
		for _, b := range page.Bookings {
			seen = append(seen, b.ID.String())
		}
		if !page.PageInfo.HasMore {
			break
		}
		req.PageToken = page.PageInfo.NextPageToken
	}

	if assert.Len(t, seen, 5, "pagination must walk every booking exactly once") {
		for i := range ids {
			assert.Equal(t, ids[len(ids)-1-i], seen[i], "newest first")
		}
	}
}

func TestNightsBetween(t *testing.T) {
	day := func(d int, hour int) time.Time {
		return time.Date(2025, 3, d, hour, 0, 0, 0, time.UTC)
	}

	assert.Equal(t, 3, nightsBetween(day(10, 0), day(13, 0)))
	assert.Equal(t, 1, nightsBetween(day(10, 0), day(11, 0)))
	// Times of day never change the count; only the calendar dates do.
	assert.Equal(t, 3, nightsBetween(day(10, 22), day(13, 9)))
}
