package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	revenuedomain "github.com/smallbiznis/staypoint/internal/revenue/domain"
)

func (s *Server) CreateBarSale(c *gin.Context) {
	var req revenuedomain.CreateBarSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Source = revenuedomain.SourceManual

	resp, err := s.revenueSvc.CreateBarSale(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "bar_sale.recorded", "bar_sale", &targetID, map[string]any{
			"outlet":       resp.Outlet,
			"total_amount": resp.TotalAmount.String(),
			"payment_mode": resp.PaymentMode,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// IngestBarSale is the machine variant of CreateBarSale. The source is
// forced to pos so reports can split desk entries from till traffic.
func (s *Server) IngestBarSale(c *gin.Context) {
	var req revenuedomain.CreateBarSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Source = revenuedomain.SourcePOS

	resp, err := s.revenueSvc.CreateBarSale(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		metadata := map[string]any{
			"outlet":       resp.Outlet,
			"total_amount": resp.TotalAmount.String(),
			"payment_mode": resp.PaymentMode,
		}
		if resp.DedupeKey != nil {
			metadata["dedupe_key"] = *resp.DedupeKey
		}
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "bar_sale.ingested", "bar_sale", &targetID, metadata)
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListBarSales(c *gin.Context) {
	var query revenuedomain.ListRevenueRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.revenueSvc.ListBarSales(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateExpense(c *gin.Context) {
	var req revenuedomain.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.revenueSvc.CreateExpense(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "expense.recorded", "expense", &targetID, map[string]any{
			"category": resp.Category,
			"amount":   resp.Amount.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListExpenses(c *gin.Context) {
	var query revenuedomain.ListRevenueRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.revenueSvc.ListExpenses(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateOtherRevenue(c *gin.Context) {
	var req revenuedomain.CreateOtherRevenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.revenueSvc.CreateOtherRevenue(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		metadata := map[string]any{
			"category": resp.Category,
			"amount":   resp.Amount.String(),
		}
		if resp.BookingID != nil {
			metadata["booking_id"] = resp.BookingID.String()
		}
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "other_revenue.recorded", "other_revenue", &targetID, metadata)
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOtherRevenues(c *gin.Context) {
	var query revenuedomain.ListRevenueRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.revenueSvc.ListOtherRevenues(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isRevenueValidationError(err error) bool {
	switch err {
	case revenuedomain.ErrInvalidBarSale,
		revenuedomain.ErrInvalidExpense,
		revenuedomain.ErrInvalidOtherRevenue,
		revenuedomain.ErrInvalidAmount,
		revenuedomain.ErrInvalidItems,
		revenuedomain.ErrInvalidCategory,
		revenuedomain.ErrInvalidPaymentMode,
		revenuedomain.ErrInvalidSource,
		revenuedomain.ErrInvalidDateRange,
		revenuedomain.ErrInvalidPageToken:
		return true
	default:
		return false
	}
}
