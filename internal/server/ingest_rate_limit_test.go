package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/staypoint/internal/ratelimit"
)

func TestBarSaleIngestRateLimitPassesWithoutLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &Server{}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/api/bar-sales", srv.BarSaleIngestRateLimit(), okProbe)

	req := httptest.NewRequest(http.MethodPost, "/api/bar-sales", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	cases := []struct {
		name  string
		after time.Duration
		want  string
	}{
		{"zero floors to one", 0, "1"},
		{"negative floors to one", -3 * time.Second, "1"},
		{"sub-second rounds up", 300 * time.Millisecond, "1"},
		{"fractional rounds up", 1500 * time.Millisecond, "2"},
		{"whole seconds pass through", 30 * time.Second, "30"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := retryAfterSeconds(ratelimit.Result{RetryAfter: tc.after})
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
