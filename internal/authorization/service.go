// Package authorization enforces role capabilities per business using a
// casbin RBAC-with-domains model persisted next to the tenant data.
package authorization

import (
	"context"
	"errors"

	"go.uber.org/fx"
)

type Service interface {
	// Authorize checks that actor may perform action on object within the
	// business identified by businessID. Actor values are "user:<id>",
	// "api_key:<id>", or "system".
	Authorize(ctx context.Context, actor string, businessID string, object string, action string) error
}

var (
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidActor    = errors.New("invalid_actor")
	ErrInvalidBusiness = errors.New("invalid_business")
	ErrInvalidObject   = errors.New("invalid_object")
	ErrInvalidAction   = errors.New("invalid_action")
)

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)
