// Package scope names the capabilities an API key may carry. Machine
// callers (POS tills, channel managers) authenticate with a key and are
// gated by these scopes instead of the staff role policy.
package scope

import (
	"errors"
	"strings"

	"github.com/smallbiznis/staypoint/internal/authorization"
)

type Scope string

var ErrInvalidScope = errors.New("invalid_scope")

const (
	ScopeRoomView    Scope = "room:view"
	ScopeBookingView Scope = "booking:view"

	ScopeBarSaleView   Scope = "bar_sale:view"
	ScopeBarSaleCreate Scope = "bar_sale:create"
	ScopeBarSaleIngest Scope = "bar_sale:ingest"

	ScopeOtherRevenueCreate Scope = "other_revenue:create"
)

type authzKey struct {
	object string
	action string
}

var authzScopeMap = map[authzKey]Scope{
	{normalize(authorization.ObjectRoom), normalize(authorization.ActionRoomView)}:       ScopeRoomView,
	{normalize(authorization.ObjectBooking), normalize(authorization.ActionBookingView)}: ScopeBookingView,

	{normalize(authorization.ObjectBarSale), normalize(authorization.ActionBarSaleView)}:   ScopeBarSaleView,
	{normalize(authorization.ObjectBarSale), normalize(authorization.ActionBarSaleCreate)}: ScopeBarSaleCreate,
	{normalize(authorization.ObjectBarSale), normalize(authorization.ActionBarSaleIngest)}: ScopeBarSaleIngest,

	{normalize(authorization.ObjectOtherRevenue), normalize(authorization.ActionOtherRevenueCreate)}: ScopeOtherRevenueCreate,
}

var allScopes = []Scope{
	ScopeRoomView,
	ScopeBookingView,
	ScopeBarSaleView,
	ScopeBarSaleCreate,
	ScopeBarSaleIngest,
	ScopeOtherRevenueCreate,
}

var validScopes = func() map[string]struct{} {
	lookup := make(map[string]struct{}, len(allScopes))
	for _, scope := range allScopes {
		lookup[normalize(string(scope))] = struct{}{}
	}
	return lookup
}()

func All() []string {
	values := make([]string, len(allScopes))
	for i, scope := range allScopes {
		values[i] = string(scope)
	}
	return values
}

// Default is the scope set for keys created without an explicit list:
// ingest-only, the POS till use case.
func Default() []string {
	return []string{string(ScopeBarSaleIngest)}
}

// FromAuthz maps an authorization object/action pair to the scope a machine
// caller must hold for it. Unknown pairs map to the empty scope, which no
// key satisfies.
func FromAuthz(object string, action string) Scope {
	key := authzKey{object: normalize(object), action: normalize(action)}
	if scope, ok := authzScopeMap[key]; ok {
		return scope
	}
	return ""
}

func Has(scopes []string, required Scope) bool {
	requiredScope := normalize(string(required))
	if requiredScope == "" {
		return false
	}

	requiredObject := strings.SplitN(requiredScope, ":", 2)[0]

	for _, scope := range scopes {
		normalized := normalize(scope)
		if normalized == "" {
			continue
		}
		if normalized == "*" {
			return true
		}
		if normalized == requiredScope {
			return true
		}
		if requiredObject != "" && normalized == requiredObject+":*" {
			return true
		}
	}
	return false
}

func Normalize(scopes []string) []string {
	seen := make(map[string]struct{}, len(scopes))
	normalized := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		value := normalize(scope)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		normalized = append(normalized, value)
	}
	return normalized
}

func IsValid(scope string) bool {
	_, ok := validScopes[normalize(scope)]
	return ok
}

func Validate(scopes []string) error {
	for _, scope := range Normalize(scopes) {
		if IsValid(scope) {
			continue
		}
		if scope == "*" || strings.HasSuffix(scope, ":*") {
			continue
		}
		return ErrInvalidScope
	}
	return nil
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
