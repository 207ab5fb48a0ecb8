package server

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	apikeydomain "github.com/smallbiznis/staypoint/internal/apikey/domain"
	auditcontext "github.com/smallbiznis/staypoint/internal/auditcontext"
	"github.com/smallbiznis/staypoint/internal/bizcontext"
)

// lastUsedResolution throttles the last_used_at write so steady POS traffic
// does not turn every authenticated request into an update.
const lastUsedResolution = time.Minute

// APIKeyRequired authenticates machine requests with an API key only.
// Business identity is derived solely from the api_keys table; requests
// that also carry staff identity headers are rejected outright.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if requestHasStaffIdentity(c) {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		hash := apikeydomain.HashAPIKey(parts[1])
		now := time.Now().UTC()

		var record struct {
			ID         snowflake.ID   `gorm:"column:id"`
			BusinessID snowflake.ID   `gorm:"column:business_id"`
			KeyHash    string         `gorm:"column:key_hash"`
			Scopes     pq.StringArray `gorm:"column:scopes"`
			LastUsedAt *time.Time     `gorm:"column:last_used_at"`
		}

		if err := s.db.WithContext(c.Request.Context()).Raw(
			`SELECT id, business_id, key_hash, scopes, last_used_at
			 FROM api_keys
			 WHERE key_hash = ?
			   AND is_active = true
			   AND (expires_at IS NULL OR expires_at > ?)
			 LIMIT 1`,
			hash,
			now,
		).Scan(&record).Error; err != nil {
			AbortWithError(c, err)
			return
		}

		if record.ID == 0 || subtle.ConstantTimeCompare([]byte(record.KeyHash), []byte(hash)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if record.LastUsedAt == nil || now.Sub(*record.LastUsedAt) >= lastUsedResolution {
			_ = s.db.WithContext(c.Request.Context()).Exec(
				`UPDATE api_keys SET last_used_at = ? WHERE id = ?`, now, record.ID,
			).Error
		}

		ctx := c.Request.Context()
		scopes := make([]string, 0, len(record.Scopes))
		scopes = append(scopes, record.Scopes...)
		ctx = context.WithValue(ctx, contextAuthTypeKey, string(ActorAPIKey))
		ctx = context.WithValue(ctx, contextAPIKeyIDKey, int64(record.ID))
		ctx = context.WithValue(ctx, contextAPIKeyScopesKey, scopes)
		ctx = bizcontext.WithBusinessID(ctx, int64(record.BusinessID))
		ctx = auditcontext.WithActor(ctx, auditcontext.Actor{
			Type: auditcontext.ActorTypeAPIKey,
			ID:   record.ID.String(),
		})

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requestHasStaffIdentity(c *gin.Context) bool {
	if strings.TrimSpace(c.GetHeader(HeaderBusiness)) != "" {
		return true
	}
	if strings.TrimSpace(c.GetHeader(HeaderUser)) != "" {
		return true
	}
	if value, ok := c.GetQuery("business_id"); ok && strings.TrimSpace(value) != "" {
		return true
	}
	return false
}
