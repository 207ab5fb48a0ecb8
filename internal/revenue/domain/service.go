package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/staypoint/pkg/pagination"
)

type CreateBarSaleRequest struct {
	Outlet string        `json:"outlet,omitempty"`
	Items  []BarSaleItem `json:"items,omitempty"`
	// TotalAmount defaults to the item sum when zero.
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaymentMode string          `json:"payment_mode"`
	SoldAt      *time.Time      `json:"sold_at,omitempty"`
	DedupeKey   *string         `json:"dedupe_key,omitempty"`
	// Source is set by the handler, not the client: manual for the desk,
	// pos for API-key ingest.
	Source string `json:"-"`
}

type CreateExpenseRequest struct {
	Category    string          `json:"category"`
	Description *string         `json:"description,omitempty"`
	VendorName  *string         `json:"vendor_name,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	IncurredAt  *time.Time      `json:"incurred_at,omitempty"`
}

type CreateOtherRevenueRequest struct {
	BookingID   *string         `json:"booking_id,omitempty"`
	Category    string          `json:"category"`
	Description *string         `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  *time.Time      `json:"occurred_at,omitempty"`
}

type ListRevenueRequest struct {
	pagination.Pagination
	From *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To   *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

type ListBarSaleResponse struct {
	pagination.PageInfo
	BarSales []BarSale `json:"bar_sales"`
}

type ListExpenseResponse struct {
	pagination.PageInfo
	Expenses []Expense `json:"expenses"`
}

type ListOtherRevenueResponse struct {
	pagination.PageInfo
	OtherRevenues []OtherRevenue `json:"other_revenues"`
}

// Service records revenue and expense rows. Each successful create hands its
// accounting hook to the detached runner; POS bar sales dedupe on the
// client-supplied key so at-least-once delivery still yields one row.
type Service interface {
	CreateBarSale(ctx context.Context, req CreateBarSaleRequest) (BarSale, error)
	ListBarSales(ctx context.Context, req ListRevenueRequest) (ListBarSaleResponse, error)

	CreateExpense(ctx context.Context, req CreateExpenseRequest) (Expense, error)
	ListExpenses(ctx context.Context, req ListRevenueRequest) (ListExpenseResponse, error)

	CreateOtherRevenue(ctx context.Context, req CreateOtherRevenueRequest) (OtherRevenue, error)
	ListOtherRevenues(ctx context.Context, req ListRevenueRequest) (ListOtherRevenueResponse, error)
}
