package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/staypoint/internal/audit/domain"
	bookingdomain "github.com/smallbiznis/staypoint/internal/booking/domain"
	foliodomain "github.com/smallbiznis/staypoint/internal/folio/domain"
	roomdomain "github.com/smallbiznis/staypoint/internal/room/domain"
)

type fakeBookingService struct {
	createCalls   int
	lastCreateReq bookingdomain.CreateBookingRequest

	paymentCalls   int
	lastPaymentReq bookingdomain.AddPaymentRequest

	checkInCalls int
	lastCheckIn  string

	err error
}

func (f *fakeBookingService) sample() bookingdomain.Booking {
	return bookingdomain.Booking{
		ID:           snowflake.ID(1001),
		BusinessID:   snowflake.ID(7),
		RoomID:       snowflake.ID(42),
		FolioNumber:  "F-2025-000017",
		GuestName:    "Rudi Hartono",
		Origin:       "front_desk",
		Status:       bookingdomain.BookingStatusConfirmed,
		CheckInDate:  time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		CheckOutDate: time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
		Nights:       2,
		RoomRate:     decimal.RequireFromString("350000"),
		RoomCharge:   decimal.RequireFromString("700000"),
		TotalAmount:  decimal.RequireFromString("700000"),
		Currency:     "IDR",
	}
}

func (f *fakeBookingService) sampleWithFolio() bookingdomain.BookingWithFolio {
	return bookingdomain.BookingWithFolio{
		Booking: f.sample(),
		Folio: foliodomain.Summary{
			Paid:    decimal.RequireFromString("200000"),
			Balance: decimal.RequireFromString("500000"),
			Status:  foliodomain.PaymentStatusPartiallyPaid,
		},
	}
}

func (f *fakeBookingService) CreateBooking(ctx context.Context, req bookingdomain.CreateBookingRequest) (bookingdomain.BookingWithFolio, error) {
	f.createCalls++
	f.lastCreateReq = req
	_ = ctx
	if f.err != nil {
		return bookingdomain.BookingWithFolio{}, f.err
	}
	return f.sampleWithFolio(), nil
}

func (f *fakeBookingService) GetBooking(ctx context.Context, bookingID string) (bookingdomain.BookingWithFolio, error) {
	_ = ctx
	_ = bookingID
	if f.err != nil {
		return bookingdomain.BookingWithFolio{}, f.err
	}
	return f.sampleWithFolio(), nil
}

func (f *fakeBookingService) ListBookings(ctx context.Context, req bookingdomain.ListBookingRequest) (bookingdomain.ListBookingResponse, error) {
	_ = ctx
	_ = req
	if f.err != nil {
		return bookingdomain.ListBookingResponse{}, f.err
	}
	return bookingdomain.ListBookingResponse{Bookings: []bookingdomain.Booking{f.sample()}}, nil
}

func (f *fakeBookingService) AddPayment(ctx context.Context, req bookingdomain.AddPaymentRequest) (bookingdomain.BookingWithFolio, error) {
	f.paymentCalls++
	f.lastPaymentReq = req
	_ = ctx
	if f.err != nil {
		return bookingdomain.BookingWithFolio{}, f.err
	}
	return f.sampleWithFolio(), nil
}

func (f *fakeBookingService) CheckIn(ctx context.Context, bookingID string) (bookingdomain.Booking, error) {
	f.checkInCalls++
	f.lastCheckIn = bookingID
	_ = ctx
	if f.err != nil {
		return bookingdomain.Booking{}, f.err
	}
	booking := f.sample()
	booking.Status = bookingdomain.BookingStatusCheckedIn
	return booking, nil
}

func (f *fakeBookingService) CheckOut(ctx context.Context, bookingID string) (bookingdomain.Booking, error) {
	_ = ctx
	_ = bookingID
	if f.err != nil {
		return bookingdomain.Booking{}, f.err
	}
	booking := f.sample()
	booking.Status = bookingdomain.BookingStatusCheckedOut
	return booking, nil
}

func (f *fakeBookingService) CancelBooking(ctx context.Context, bookingID string) (bookingdomain.Booking, error) {
	_ = ctx
	_ = bookingID
	if f.err != nil {
		return bookingdomain.Booking{}, f.err
	}
	booking := f.sample()
	booking.Status = bookingdomain.BookingStatusCancelled
	return booking, nil
}

func (f *fakeBookingService) ChangeRoom(ctx context.Context, req bookingdomain.ChangeRoomRequest) (bookingdomain.Booking, error) {
	_ = ctx
	_ = req
	if f.err != nil {
		return bookingdomain.Booking{}, f.err
	}
	return f.sample(), nil
}

func (f *fakeBookingService) ExtendStay(ctx context.Context, req bookingdomain.ExtendStayRequest) (bookingdomain.Booking, error) {
	_ = ctx
	_ = req
	if f.err != nil {
		return bookingdomain.Booking{}, f.err
	}
	return f.sample(), nil
}

func (f *fakeBookingService) OverrideStatus(ctx context.Context, req bookingdomain.OverrideStatusRequest) (bookingdomain.Booking, error) {
	_ = ctx
	_ = req
	if f.err != nil {
		return bookingdomain.Booking{}, f.err
	}
	return f.sample(), nil
}

type auditCall struct {
	action     string
	targetType string
	targetID   *string
	metadata   map[string]any
}

type fakeAuditService struct {
	calls []auditCall
}

func (f *fakeAuditService) AuditLog(ctx context.Context, businessID snowflake.ID, action, targetType string, targetID *string, metadata map[string]any) error {
	_ = ctx
	_ = businessID
	f.calls = append(f.calls, auditCall{action: action, targetType: targetType, targetID: targetID, metadata: metadata})
	return nil
}

func (f *fakeAuditService) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	_ = ctx
	_ = req
	return auditdomain.ListAuditLogResponse{}, nil
}

func TestCreateBookingHandlerAuditsAndWrapsResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	bookingSvc := &fakeBookingService{}
	auditSvc := &fakeAuditService{}
	srv := &Server{bookingSvc: bookingSvc, auditSvc: auditSvc}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/v1/bookings", srv.CreateBooking)

	body := `{"room_id":"42","guest_name":"Rudi Hartono","check_in_date":"2025-06-02","check_out_date":"2025-06-04"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if bookingSvc.createCalls != 1 {
		t.Fatalf("expected one create call, got %d", bookingSvc.createCalls)
	}
	if bookingSvc.lastCreateReq.GuestName != "Rudi Hartono" {
		t.Fatalf("expected guest name to reach the service, got %q", bookingSvc.lastCreateReq.GuestName)
	}

	var envelope struct {
		Data bookingdomain.BookingWithFolio `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.FolioNumber != "F-2025-000017" {
		t.Fatalf("expected folio number in envelope, got %q", envelope.Data.FolioNumber)
	}

	if len(auditSvc.calls) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(auditSvc.calls))
	}
	if auditSvc.calls[0].action != "booking.created" {
		t.Fatalf("expected action booking.created, got %q", auditSvc.calls[0].action)
	}
	if auditSvc.calls[0].metadata["folio_number"] != "F-2025-000017" {
		t.Fatalf("expected folio number in audit metadata, got %v", auditSvc.calls[0].metadata["folio_number"])
	}
}

func TestCreateBookingHandlerRejectsMalformedJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)

	bookingSvc := &fakeBookingService{}
	srv := &Server{bookingSvc: bookingSvc}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/v1/bookings", srv.CreateBooking)

	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", bytes.NewBufferString(`{"guest_name": `))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if bookingSvc.createCalls != 0 {
		t.Fatal("expected service not to be called on a malformed body")
	}
}

func TestCreateBookingHandlerMapsConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)

	bookingSvc := &fakeBookingService{err: roomdomain.ErrRoomNotVacant}
	auditSvc := &fakeAuditService{}
	srv := &Server{bookingSvc: bookingSvc, auditSvc: auditSvc}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/v1/bookings", srv.CreateBooking)

	body := `{"room_id":"42","guest_name":"Rudi Hartono","check_in_date":"2025-06-02","check_out_date":"2025-06-04"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	if len(auditSvc.calls) != 0 {
		t.Fatal("expected no audit entry on a failed create")
	}
}

func TestAddBookingPaymentHandlerTakesIDFromPath(t *testing.T) {
	gin.SetMode(gin.TestMode)

	bookingSvc := &fakeBookingService{}
	auditSvc := &fakeAuditService{}
	srv := &Server{bookingSvc: bookingSvc, auditSvc: auditSvc}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/v1/bookings/:id/payments", srv.AddBookingPayment)

	req := httptest.NewRequest(http.MethodPost, "/v1/bookings/1001/payments", bytes.NewBufferString(`{"amount":"200000","mode":"cash"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if bookingSvc.lastPaymentReq.BookingID != "1001" {
		t.Fatalf("expected booking id from path, got %q", bookingSvc.lastPaymentReq.BookingID)
	}
	if len(auditSvc.calls) != 1 || auditSvc.calls[0].action != "booking.payment_recorded" {
		t.Fatalf("expected booking.payment_recorded audit entry, got %+v", auditSvc.calls)
	}
	if auditSvc.calls[0].metadata["balance"] != "500000" {
		t.Fatalf("expected running balance in audit metadata, got %v", auditSvc.calls[0].metadata["balance"])
	}
}

func TestCheckInBookingHandlerAudits(t *testing.T) {
	gin.SetMode(gin.TestMode)

	bookingSvc := &fakeBookingService{}
	auditSvc := &fakeAuditService{}
	srv := &Server{bookingSvc: bookingSvc, auditSvc: auditSvc}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/v1/bookings/:id/check-in", srv.CheckInBooking)

	req := httptest.NewRequest(http.MethodPost, "/v1/bookings/1001/check-in", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if bookingSvc.lastCheckIn != "1001" {
		t.Fatalf("expected check-in id from path, got %q", bookingSvc.lastCheckIn)
	}
	if len(auditSvc.calls) != 1 || auditSvc.calls[0].action != "booking.checked_in" {
		t.Fatalf("expected booking.checked_in audit entry, got %+v", auditSvc.calls)
	}
}
