package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/staypoint/pkg/pagination"
)

type ConnectRequest struct {
	Code        string `json:"code"`
	RealmID     string `json:"realm_id"`
	RedirectURI string `json:"redirect_uri"`
}

type StatusView struct {
	Connected bool       `json:"connected"`
	Provider  string     `json:"provider,omitempty"`
	RealmID   string     `json:"realm_id,omitempty"`
	Since     *time.Time `json:"connected_since,omitempty"`
	LastSync  *SyncLog   `json:"last_sync,omitempty"`
}

type ListSyncLogRequest struct {
	pagination.Pagination
	EntityType string `form:"entity_type"`
	Outcome    string `form:"outcome"`
}

type ListSyncLogResponse struct {
	pagination.PageInfo
	SyncLogs []SyncLog `json:"sync_logs"`
}

type ResyncResponse struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Service is the accounting bridge. The Sync* hooks are invoked from
// detached tasks after the primary transaction commits; each one no-ops when
// the business has no live connection or the entity already synced, logs
// FAILED and returns the error otherwise. Callers behind the task runner
// never observe these errors.
type Service interface {
	SyncBooking(ctx context.Context, businessID, bookingID snowflake.ID) error
	SyncPayment(ctx context.Context, businessID, paymentID snowflake.ID) error
	SyncBarSale(ctx context.Context, businessID, saleID snowflake.ID) error
	SyncExpense(ctx context.Context, businessID, expenseID snowflake.ID) error
	SyncOtherRevenue(ctx context.Context, businessID, revenueID snowflake.ID) error

	Connect(ctx context.Context, req ConnectRequest) (StatusView, error)
	Disconnect(ctx context.Context) error
	Status(ctx context.Context) (StatusView, error)
	History(ctx context.Context, req ListSyncLogRequest) (ListSyncLogResponse, error)
	// Resync re-fires every entity whose latest sync attempt failed.
	Resync(ctx context.Context) (ResyncResponse, error)
}
