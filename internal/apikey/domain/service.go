package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	List(ctx context.Context) ([]Response, error)
	Create(ctx context.Context, req CreateRequest) (*SecretResponse, error)
	Revoke(ctx context.Context, id string) error
}

type CreateRequest struct {
	Name      string     `json:"name"`
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type Response struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	Scopes     []string   `json:"scopes"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// SecretResponse carries the plain key. It is returned exactly once, at
// creation; afterwards only the hash exists.
type SecretResponse struct {
	ID     string `json:"id"`
	APIKey string `json:"api_key"`
}

var (
	ErrInvalidBusiness  = errors.New("invalid_business")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidKeyID     = errors.New("invalid_key_id")
	ErrInvalidExpiry    = errors.New("invalid_expiry")
	ErrKeyNotFound      = errors.New("api_key_not_found")
	ErrPermissionDenied = errors.New("permission_denied")
)
