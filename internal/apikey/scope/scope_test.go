package scope

import (
	"reflect"
	"testing"

	"github.com/smallbiznis/staypoint/internal/authorization"
)

func TestFromAuthz(t *testing.T) {
	cases := []struct {
		name   string
		object string
		action string
		want   Scope
	}{
		{"bar sale ingest", authorization.ObjectBarSale, authorization.ActionBarSaleIngest, ScopeBarSaleIngest},
		{"bar sale view", authorization.ObjectBarSale, authorization.ActionBarSaleView, ScopeBarSaleView},
		{"room view", authorization.ObjectRoom, authorization.ActionRoomView, ScopeRoomView},
		{"booking view", authorization.ObjectBooking, authorization.ActionBookingView, ScopeBookingView},
		{"other revenue create", authorization.ObjectOtherRevenue, authorization.ActionOtherRevenueCreate, ScopeOtherRevenueCreate},
		{"case and spacing normalized", " Bar_Sale ", " BAR_SALE.INGEST ", ScopeBarSaleIngest},
		{"staff-only action has no scope", authorization.ObjectBooking, authorization.ActionBookingOverride, ""},
		{"unknown object", "minibar", "minibar.view", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FromAuthz(tc.object, tc.action); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestHas(t *testing.T) {
	cases := []struct {
		name     string
		scopes   []string
		required Scope
		want     bool
	}{
		{"exact match", []string{"bar_sale:ingest"}, ScopeBarSaleIngest, true},
		{"case insensitive", []string{"BAR_SALE:INGEST"}, ScopeBarSaleIngest, true},
		{"global wildcard", []string{"*"}, ScopeBookingView, true},
		{"object wildcard", []string{"bar_sale:*"}, ScopeBarSaleIngest, true},
		{"object wildcard other object", []string{"bar_sale:*"}, ScopeRoomView, false},
		{"missing scope", []string{"room:view"}, ScopeBarSaleIngest, false},
		{"empty list", nil, ScopeBarSaleIngest, false},
		{"empty requirement never satisfied", []string{"*"}, Scope(""), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Has(tc.scopes, tc.required); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize([]string{" Bar_Sale:Ingest ", "bar_sale:ingest", "", "ROOM:VIEW"})
	want := []string{"bar_sale:ingest", "room:view"}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate([]string{"bar_sale:ingest", "room:view"}); err != nil {
		t.Fatalf("expected known scopes to validate, got %v", err)
	}
	if err := Validate([]string{"*"}); err != nil {
		t.Fatalf("expected global wildcard to validate, got %v", err)
	}
	if err := Validate([]string{"bar_sale:*"}); err != nil {
		t.Fatalf("expected object wildcard to validate, got %v", err)
	}
	if err := Validate(nil); err != nil {
		t.Fatalf("expected empty list to validate, got %v", err)
	}
	if err := Validate([]string{"minibar:open"}); err != ErrInvalidScope {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}
}

func TestDefaultIsIngestOnly(t *testing.T) {
	got := Default()
	if len(got) != 1 || got[0] != string(ScopeBarSaleIngest) {
		t.Fatalf("expected ingest-only default, got %v", got)
	}
}

func TestAllScopesAreValid(t *testing.T) {
	all := All()
	if len(all) == 0 {
		t.Fatal("expected a non-empty scope catalog")
	}
	if err := Validate(all); err != nil {
		t.Fatalf("expected catalog to validate, got %v", err)
	}
}
