package server

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/staypoint/internal/bizcontext"
	"github.com/smallbiznis/staypoint/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/staypoint/internal/observability/metrics"
	"github.com/smallbiznis/staypoint/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	rateLimitReasonBusinessRate = "business-rate"
	rateLimitReasonAPIKeyRate   = "api-key-rate"
)

// BarSaleIngestRateLimit throttles POS ingest per business and per API key.
// OSS installs run without redis, so a nil limiter lets everything through.
func (s *Server) BarSaleIngestRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.ingestLimiter == nil || !s.ingestLimiter.Enabled() {
			c.Next()
			return
		}

		businessID, ok := bizcontext.BusinessIDFromContext(c.Request.Context())
		if !ok || businessID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		endpoint := normalizeRateLimitEndpoint(c)
		ctx := c.Request.Context()

		result, err := s.ingestLimiter.AllowBusiness(ctx, businessID.String())
		if err != nil {
			logger.FromContext(ctx).Warn("bar sale ingest business rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !result.Allowed {
			denyBarSaleIngest(c, endpoint, businessID.String(), rateLimitReasonBusinessRate, result, s.obsMetrics)
			return
		}

		if keyID, ok := apiKeyIDFromContext(ctx); ok {
			result, err = s.ingestLimiter.AllowAPIKey(ctx, keyID.String())
			if err != nil {
				logger.FromContext(ctx).Warn("bar sale ingest api key rate limit check failed", zap.Error(err))
				AbortWithError(c, ErrServiceUnavailable)
				return
			}
			if !result.Allowed {
				denyBarSaleIngest(c, endpoint, businessID.String(), rateLimitReasonAPIKeyRate, result, s.obsMetrics)
				return
			}
		}

		recordRateLimitAllowed(ctx, endpoint, businessID.String(), s.obsMetrics)
		c.Next()
	}
}

func denyBarSaleIngest(c *gin.Context, endpoint, businessID, reason string, result ratelimit.Result, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("bar sale ingest rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, businessID, reason, metrics)

	c.Header("Retry-After", retryAfterSeconds(result))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func retryAfterSeconds(result ratelimit.Result) string {
	seconds := int64(math.Ceil(result.RetryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.FormatInt(seconds, 10)
}

func recordRateLimitAllowed(ctx context.Context, endpoint, businessID string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, businessID, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, businessID, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, businessID, endpoint, reason)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
