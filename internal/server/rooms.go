package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	roomdomain "github.com/smallbiznis/staypoint/internal/room/domain"
)

func (s *Server) ListRooms(c *gin.Context) {
	var query roomdomain.ListRoomRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.roomSvc.ListRooms(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRoomByID(c *gin.Context) {
	resp, err := s.roomSvc.GetRoom(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateRoom(c *gin.Context) {
	var req roomdomain.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.roomSvc.CreateRoom(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "room.created", "room", &targetID, map[string]any{
			"room_number": resp.RoomNumber,
			"category_id": resp.CategoryID.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateRoom(c *gin.Context) {
	var req roomdomain.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.RoomID = strings.TrimSpace(c.Param("id"))

	resp, err := s.roomSvc.UpdateRoom(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "room.updated", "room", &targetID, map[string]any{
			"room_number": resp.RoomNumber,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MarkRoomMaintenance(c *gin.Context) {
	resp, err := s.roomSvc.MarkMaintenance(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "room.maintenance_marked", "room", &targetID, map[string]any{
			"room_number": resp.RoomNumber,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReleaseRoomMaintenance(c *gin.Context) {
	resp, err := s.roomSvc.ReleaseMaintenance(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "room.maintenance_released", "room", &targetID, map[string]any{
			"room_number": resp.RoomNumber,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListRoomCategories(c *gin.Context) {
	resp, err := s.roomSvc.ListCategories(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateRoomCategory(c *gin.Context) {
	var req roomdomain.CreateRoomCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.roomSvc.CreateCategory(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "room_category.created", "room_category", &targetID, map[string]any{
			"code": resp.Code,
			"name": resp.Name,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateRoomCategory(c *gin.Context) {
	var req roomdomain.UpdateRoomCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.CategoryID = strings.TrimSpace(c.Param("id"))

	resp, err := s.roomSvc.UpdateCategory(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), 0, "room_category.updated", "room_category", &targetID, map[string]any{
			"code": resp.Code,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isRoomValidationError(err error) bool {
	switch err {
	case roomdomain.ErrInvalidRoom,
		roomdomain.ErrInvalidCategory,
		roomdomain.ErrInvalidRoomNumber,
		roomdomain.ErrInvalidCategoryCode,
		roomdomain.ErrInvalidCategoryName,
		roomdomain.ErrInvalidBaseRate,
		roomdomain.ErrInvalidStatus:
		return true
	default:
		return false
	}
}
