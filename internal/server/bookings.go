package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	bookingdomain "github.com/smallbiznis/staypoint/internal/booking/domain"
	foliodomain "github.com/smallbiznis/staypoint/internal/folio/domain"
)

func (s *Server) CreateBooking(c *gin.Context) {
	var req bookingdomain.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.bookingSvc.CreateBooking(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "booking.created", "booking", &targetID, map[string]any{
			"folio_number":   resp.FolioNumber,
			"room_id":        resp.RoomID.String(),
			"guest_name":     resp.GuestName,
			"check_in_date":  resp.CheckInDate.Format("2006-01-02"),
			"check_out_date": resp.CheckOutDate.Format("2006-01-02"),
			"total_amount":   resp.TotalAmount.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListBookings(c *gin.Context) {
	var query bookingdomain.ListBookingRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.bookingSvc.ListBookings(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBookingByID(c *gin.Context) {
	resp, err := s.bookingSvc.GetBooking(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddBookingPayment(c *gin.Context) {
	var req bookingdomain.AddPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.BookingID = strings.TrimSpace(c.Param("id"))

	resp, err := s.bookingSvc.AddPayment(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "booking.payment_recorded", "booking", &targetID, map[string]any{
			"folio_number": resp.FolioNumber,
			"amount":       req.Amount.String(),
			"mode":         strings.TrimSpace(req.Mode),
			"balance":      resp.Folio.Balance.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CheckInBooking(c *gin.Context) {
	resp, err := s.bookingSvc.CheckIn(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "booking.checked_in", "booking", &targetID, map[string]any{
			"folio_number": resp.FolioNumber,
			"room_id":      resp.RoomID.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CheckOutBooking(c *gin.Context) {
	resp, err := s.bookingSvc.CheckOut(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "booking.checked_out", "booking", &targetID, map[string]any{
			"folio_number": resp.FolioNumber,
			"room_id":      resp.RoomID.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelBooking(c *gin.Context) {
	resp, err := s.bookingSvc.CancelBooking(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "booking.cancelled", "booking", &targetID, map[string]any{
			"folio_number": resp.FolioNumber,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ChangeBookingRoom(c *gin.Context) {
	var req bookingdomain.ChangeRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.BookingID = strings.TrimSpace(c.Param("id"))

	resp, err := s.bookingSvc.ChangeRoom(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "booking.room_changed", "booking", &targetID, map[string]any{
			"folio_number": resp.FolioNumber,
			"new_room_id":  resp.RoomID.String(),
			"total_amount": resp.TotalAmount.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExtendBookingStay(c *gin.Context) {
	var req bookingdomain.ExtendStayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.BookingID = strings.TrimSpace(c.Param("id"))

	resp, err := s.bookingSvc.ExtendStay(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "booking.extended", "booking", &targetID, map[string]any{
			"folio_number":   resp.FolioNumber,
			"check_out_date": resp.CheckOutDate.Format("2006-01-02"),
			"nights":         resp.Nights,
			"total_amount":   resp.TotalAmount.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) OverrideBookingStatus(c *gin.Context) {
	var req bookingdomain.OverrideStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.BookingID = strings.TrimSpace(c.Param("id"))

	resp, err := s.bookingSvc.OverrideStatus(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		metadata := map[string]any{
			"folio_number": resp.FolioNumber,
			"status":       string(resp.Status),
		}
		if req.Reason != nil {
			metadata["reason"] = strings.TrimSpace(*req.Reason)
		}
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "booking.status_overridden", "booking", &targetID, metadata)
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isBookingValidationError(err error) bool {
	switch err {
	case bookingdomain.ErrInvalidBooking,
		bookingdomain.ErrInvalidGuestName,
		bookingdomain.ErrInvalidStayDates,
		bookingdomain.ErrInvalidStatus,
		bookingdomain.ErrInvalidOrigin,
		bookingdomain.ErrInvalidExtension,
		bookingdomain.ErrInvalidDateRange,
		bookingdomain.ErrInvalidPageToken:
		return true
	default:
		return false
	}
}

func isFolioValidationError(err error) bool {
	switch err {
	case foliodomain.ErrInvalidAmount,
		foliodomain.ErrInvalidPaymentMode:
		return true
	default:
		return false
	}
}
