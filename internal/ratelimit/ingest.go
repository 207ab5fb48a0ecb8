package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/staypoint/internal/config"
)

const (
	keyIngestBusiness = "staypoint:ingest:business:%s"
	keyIngestAPIKey   = "staypoint:ingest:key:%s"
	keySyncLock       = "staypoint:sync:%s:%s:%s"
)

// IngestLimiter throttles machine traffic (POS bar-sale ingest) per business
// and per API key, and hands out the per-entity sync locks. A nil limiter
// allows everything, so OSS installs without redis keep working.
type IngestLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	businessRate  float64
	businessBurst int
	apiKeyRate    float64
	apiKeyBurst   int
	lockTTL       time.Duration
}

func NewIngestLimiter(cfg config.Config) (*IngestLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.BusinessRate <= 0 || limitCfg.BusinessBurst <= 0 {
		return nil, errors.New("business rate limit must be positive")
	}
	if limitCfg.APIKeyRate <= 0 || limitCfg.APIKeyBurst <= 0 {
		return nil, errors.New("api key rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
	})

	return &IngestLimiter{
		enabled:       true,
		bucket:        NewTokenBucket(client),
		locker:        NewLocker(client),
		businessRate:  limitCfg.BusinessRate,
		businessBurst: limitCfg.BusinessBurst,
		apiKeyRate:    limitCfg.APIKeyRate,
		apiKeyBurst:   limitCfg.APIKeyBurst,
		lockTTL:       time.Duration(limitCfg.LockTTLSeconds) * time.Second,
	}, nil
}

func (l *IngestLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *IngestLimiter) AllowBusiness(ctx context.Context, businessID string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyIngestBusiness, strings.TrimSpace(businessID)), l.businessRate, l.businessBurst)
}

func (l *IngestLimiter) AllowAPIKey(ctx context.Context, keyID string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyIngestAPIKey, strings.TrimSpace(keyID)), l.apiKeyRate, l.apiKeyBurst)
}

// TryLockSync guards one accounting-bridge entity so concurrent hooks cannot
// both create external documents. Callers must Release with the token.
func (l *IngestLimiter) TryLockSync(ctx context.Context, businessID, entityType, entityID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	key := fmt.Sprintf(
		keySyncLock,
		strings.TrimSpace(businessID),
		strings.TrimSpace(entityType),
		strings.TrimSpace(entityID),
	)
	return l.locker.TryLock(ctx, key, l.lockTTL)
}

func (l *IngestLimiter) ReleaseSync(ctx context.Context, businessID, entityType, entityID, token string) error {
	if !l.Enabled() {
		return nil
	}
	key := fmt.Sprintf(
		keySyncLock,
		strings.TrimSpace(businessID),
		strings.TrimSpace(entityType),
		strings.TrimSpace(entityID),
	)
	return l.locker.Release(ctx, key, token)
}
