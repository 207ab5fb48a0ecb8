package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditcontext "github.com/smallbiznis/staypoint/internal/auditcontext"
	"github.com/smallbiznis/staypoint/internal/bizcontext"
)

// Staff identity arrives from the gateway as trusted headers. The gateway
// authenticates the user; this service only resolves the membership role.
const (
	HeaderBusiness   = "X-Business-ID"
	HeaderUser       = "X-User-ID"
	HeaderWorkerID   = "X-Worker-ID"
	HeaderWorkerName = "X-Worker-Name"
)

const (
	contextAuthTypeKey     = "auth_type"
	contextAPIKeyIDKey     = "api_key_id"
	contextAPIKeyScopesKey = "api_key_scopes"
)

// StaffContext binds the staff caller to a business. The user must be a
// member of the business named in the header; the membership role drives
// both the route gates and the manager checks inside the services.
func (s *Server) StaffContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessID, err := snowflakeHeader(c, HeaderBusiness)
		if err != nil || businessID == 0 {
			AbortWithError(c, ErrBusinessRequired)
			return
		}

		userID, err := snowflakeHeader(c, HeaderUser)
		if err != nil || userID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		role, err := s.memberRole(c, businessID, userID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if role == "" {
			AbortWithError(c, ErrForbidden)
			return
		}

		ctx := bizcontext.WithBusinessID(c.Request.Context(), int64(businessID))
		ctx = auditcontext.WithActor(ctx, auditcontext.Actor{
			Type:       auditcontext.ActorTypeUser,
			ID:         userID.String(),
			Role:       strings.ToUpper(role),
			WorkerID:   strings.TrimSpace(c.GetHeader(HeaderWorkerID)),
			WorkerName: strings.TrimSpace(c.GetHeader(HeaderWorkerName)),
		})

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole gates a route on the staff membership role. Machine callers
// never pass; they are scoped, not role-bearing.
func (s *Server) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := auditcontext.ActorFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if actor.Type != auditcontext.ActorTypeUser {
			AbortWithError(c, ErrForbidden)
			return
		}
		for _, role := range roles {
			if strings.EqualFold(actor.Role, role) {
				c.Next()
				return
			}
		}
		AbortWithError(c, ErrForbidden)
	}
}

func (s *Server) memberRole(c *gin.Context, businessID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(c.Request.Context()).Raw(
		`SELECT role
		 FROM business_members
		 WHERE business_id = ? AND user_id = ?
		 LIMIT 1`,
		businessID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}
	return strings.TrimSpace(row.Role), nil
}

func snowflakeHeader(c *gin.Context, header string) (snowflake.ID, error) {
	value := strings.TrimSpace(c.GetHeader(header))
	if value == "" {
		return 0, nil
	}
	return snowflake.ParseString(value)
}
