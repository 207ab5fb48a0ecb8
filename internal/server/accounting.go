package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	accountingdomain "github.com/smallbiznis/staypoint/internal/accounting/domain"
	"github.com/smallbiznis/staypoint/internal/audit/masking"
)

func (s *Server) GetAccountingStatus(c *gin.Context) {
	resp, err := s.accountingSvc.Status(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ConnectAccounting(c *gin.Context) {
	var req accountingdomain.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.accountingSvc.Connect(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.RealmID
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "accounting.connected", "accounting", &targetID, map[string]any{
			"provider":      resp.Provider,
			"realm_id":      resp.RealmID,
			"masked_fields": masking.MaskJSON(map[string]any{"code": req.Code}),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DisconnectAccounting(c *gin.Context) {
	if err := s.accountingSvc.Disconnect(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "accounting.disconnected", "accounting", nil, nil)
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListAccountingSyncLogs(c *gin.Context) {
	var query accountingdomain.ListSyncLogRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.accountingSvc.History(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ResyncAccounting(c *gin.Context) {
	resp, err := s.accountingSvc.Resync(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "accounting.resynced", "accounting", nil, map[string]any{
			"attempted": resp.Attempted,
			"succeeded": resp.Succeeded,
			"failed":    resp.Failed,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isAccountingValidationError(err error) bool {
	switch err {
	case accountingdomain.ErrInvalidConnectCode,
		accountingdomain.ErrInvalidRealm,
		accountingdomain.ErrInvalidEntityType,
		accountingdomain.ErrInvalidSyncOutcome,
		accountingdomain.ErrInvalidPageToken:
		return true
	default:
		return false
	}
}
