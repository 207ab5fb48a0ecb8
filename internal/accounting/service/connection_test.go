package service

import (
	"context"
	"errors"
	"testing"
	"time"

	accountingdomain "github.com/smallbiznis/staypoint/internal/accounting/domain"
	"github.com/smallbiznis/staypoint/pkg/pagination"
	"github.com/stretchr/testify/assert"
)

func TestConnectStoresConnection(t *testing.T) {
	f := newFixture(t)

	view, err := f.svc.Connect(f.ctx("MANAGER"), accountingdomain.ConnectRequest{
		Code:        "auth-code-1",
		RealmID:     fixtureRealm,
		RedirectURI: "https://app.staypoint.id/accounting/callback",
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	assert.True(t, view.Connected)
	assert.Equal(t, "quickbooks", view.Provider)
	assert.Equal(t, fixtureRealm, view.RealmID)
	assert.NotNil(t, view.Since)
	assert.Equal(t, []string{"auth-code-1"}, f.qbo.exchangedCodes)

	conn := f.reloadConnection()
	assert.Equal(t, accountingdomain.ConnectionStatusConnected, conn.Status)
	assert.Equal(t, "granted-access", conn.AccessToken)
	assert.Equal(t, "granted-refresh", conn.RefreshToken)
	assert.True(t, conn.AccessTokenExpiresAt.Equal(fixtureStart.Add(3600*time.Second)))
	assert.NotNil(t, conn.RefreshTokenExpiresAt)
	assert.NotNil(t, conn.ConnectedBy)
}

func TestConnectGuards(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Connect(context.Background(), accountingdomain.ConnectRequest{Code: "c", RealmID: "r"})
	assert.ErrorIs(t, err, accountingdomain.ErrNotConnected, "no business in context")

	_, err = f.svc.Connect(f.ctx("RECEPTIONIST"), accountingdomain.ConnectRequest{Code: "c", RealmID: "r"})
	assert.ErrorIs(t, err, accountingdomain.ErrPermissionDenied)

	_, err = f.svc.Connect(f.ctx("MANAGER"), accountingdomain.ConnectRequest{RealmID: "r"})
	assert.ErrorIs(t, err, accountingdomain.ErrInvalidConnectCode)

	_, err = f.svc.Connect(f.ctx("MANAGER"), accountingdomain.ConnectRequest{Code: "c"})
	assert.ErrorIs(t, err, accountingdomain.ErrInvalidRealm)

	f.qbo.exchangeErr = errors.New("invalid_grant")
	_, err = f.svc.Connect(f.ctx("MANAGER"), accountingdomain.ConnectRequest{Code: "expired", RealmID: "r"})
	assert.ErrorIs(t, err, accountingdomain.ErrInvalidConnectCode, "a rejected code reads as invalid")
}

func TestConnectRejectsDifferentRealmWhileLive(t *testing.T) {
	f := newFixture(t)
	seeded := f.connect()

	_, err := f.svc.Connect(f.ctx("MANAGER"), accountingdomain.ConnectRequest{
		Code:    "auth-code-2",
		RealmID: "5550001111222233",
	})
	assert.ErrorIs(t, err, accountingdomain.ErrAlreadyConnected)

	// A re-grant against the same realm rotates the tokens in place.
	f.clk.Advance(time.Hour)
	view, err := f.svc.Connect(f.ctx("MANAGER"), accountingdomain.ConnectRequest{
		Code:    "auth-code-3",
		RealmID: fixtureRealm,
	})
	if err != nil {
		t.Fatalf("same-realm re-grant: %v", err)
	}
	assert.True(t, view.Connected)

	conn := f.reloadConnection()
	assert.Equal(t, seeded.ID, conn.ID)
	assert.True(t, conn.CreatedAt.Equal(seeded.CreatedAt), "re-grant keeps the original connection date")
	assert.Equal(t, "granted-access", conn.AccessToken)
}

func TestConnectReplacesDisconnectedRow(t *testing.T) {
	f := newFixture(t)
	f.connect()
	if err := f.svc.Disconnect(f.ctx("MANAGER")); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	// After a disconnect any realm may be granted, including a new one.
	view, err := f.svc.Connect(f.ctx("MANAGER"), accountingdomain.ConnectRequest{
		Code:    "auth-code-4",
		RealmID: "5550001111222233",
	})
	if err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	assert.True(t, view.Connected)
	assert.Equal(t, "5550001111222233", f.reloadConnection().RealmID)
}

func TestDisconnectRevokesConnection(t *testing.T) {
	f := newFixture(t)
	f.connect()

	assert.ErrorIs(t, f.svc.Disconnect(f.ctx("RECEPTIONIST")), accountingdomain.ErrPermissionDenied)

	if err := f.svc.Disconnect(f.ctx("MANAGER")); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	conn := f.reloadConnection()
	assert.Equal(t, accountingdomain.ConnectionStatusDisconnected, conn.Status)
	assert.Empty(t, conn.AccessToken)
	assert.Empty(t, conn.RefreshToken)

	booking := f.seedBooking(nil)
	if err := f.svc.SyncBooking(context.Background(), f.businessID, booking.ID); err != nil {
		t.Fatalf("sync after disconnect: %v", err)
	}
	assert.Empty(t, f.qbo.invoices, "a revoked connection stops mirroring")

	assert.ErrorIs(t, f.svc.Disconnect(f.ctx("MANAGER")), accountingdomain.ErrNotConnected)
}

func TestStatusReflectsConnectionAndLastSync(t *testing.T) {
	f := newFixture(t)

	view, err := f.svc.Status(f.ctx("RECEPTIONIST"))
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	assert.False(t, view.Connected)
	assert.Nil(t, view.Since)
	assert.Nil(t, view.LastSync)

	f.connect()
	booking := f.seedBooking(nil)
	if err := f.svc.SyncBooking(context.Background(), f.businessID, booking.ID); err != nil {
		t.Fatalf("sync booking: %v", err)
	}

	view, err = f.svc.Status(f.ctx("RECEPTIONIST"))
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	assert.True(t, view.Connected)
	assert.Equal(t, "quickbooks", view.Provider)
	assert.Equal(t, fixtureRealm, view.RealmID)
	if assert.NotNil(t, view.Since) {
		assert.True(t, view.Since.Equal(fixtureStart))
	}
	if assert.NotNil(t, view.LastSync) {
		assert.Equal(t, accountingdomain.EntityTypeBooking, view.LastSync.EntityType)
		assert.Equal(t, accountingdomain.SyncOutcomeSuccess, view.LastSync.Outcome)
	}

	// History survives a disconnect even though the link shows down.
	if err := f.svc.Disconnect(f.ctx("MANAGER")); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	view, err = f.svc.Status(f.ctx("RECEPTIONIST"))
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	assert.False(t, view.Connected)
	assert.NotNil(t, view.LastSync)
}

func TestHistoryFiltersAndPaginates(t *testing.T) {
	f := newFixture(t)
	f.connect()

	first := f.seedBooking(nil)
	if err := f.svc.SyncBooking(context.Background(), f.businessID, first.ID); err != nil {
		t.Fatalf("sync first booking: %v", err)
	}

	f.clk.Advance(time.Minute)
	second := f.seedBooking(nil)
	f.qbo.invoiceErr = errors.New("ValidationFault")
	if err := f.svc.SyncBooking(context.Background(), f.businessID, second.ID); err == nil {
		t.Fatal("expected sync failure")
	}
	f.qbo.invoiceErr = nil

	f.clk.Advance(time.Minute)
	sale := f.seedBarSale()
	if err := f.svc.SyncBarSale(context.Background(), f.businessID, sale.ID); err != nil {
		t.Fatalf("sync sale: %v", err)
	}

	ctx := f.ctx("RECEPTIONIST")

	page, err := f.svc.History(ctx, accountingdomain.ListSyncLogRequest{
		Pagination: pagination.Pagination{PageSize: 2},
	})
	if err != nil {
		t.Fatalf("history page 1: %v", err)
	}
	if assert.Len(t, page.SyncLogs, 2, "newest first") {
		assert.Equal(t, accountingdomain.EntityTypeBarSale, page.SyncLogs[0].EntityType)
		assert.Equal(t, accountingdomain.SyncOutcomeFailed, page.SyncLogs[1].Outcome)
	}
	assert.True(t, page.HasMore)

	rest, err := f.svc.History(ctx, accountingdomain.ListSyncLogRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: page.NextPageToken},
	})
	if err != nil {
		t.Fatalf("history page 2: %v", err)
	}
	if assert.Len(t, rest.SyncLogs, 1) {
		assert.Equal(t, first.ID, rest.SyncLogs[0].EntityID)
	}
	assert.False(t, rest.HasMore)

	failed, err := f.svc.History(ctx, accountingdomain.ListSyncLogRequest{Outcome: "failed"})
	if err != nil {
		t.Fatalf("history failed filter: %v", err)
	}
	if assert.Len(t, failed.SyncLogs, 1) {
		assert.Equal(t, second.ID, failed.SyncLogs[0].EntityID)
	}

	sales, err := f.svc.History(ctx, accountingdomain.ListSyncLogRequest{EntityType: "bar_sale"})
	if err != nil {
		t.Fatalf("history entity filter: %v", err)
	}
	assert.Len(t, sales.SyncLogs, 1)

	_, err = f.svc.History(ctx, accountingdomain.ListSyncLogRequest{EntityType: "INVOICE"})
	assert.ErrorIs(t, err, accountingdomain.ErrInvalidEntityType)

	_, err = f.svc.History(ctx, accountingdomain.ListSyncLogRequest{Outcome: "PENDING"})
	assert.ErrorIs(t, err, accountingdomain.ErrInvalidSyncOutcome)

	_, err = f.svc.History(ctx, accountingdomain.ListSyncLogRequest{
		Pagination: pagination.Pagination{PageToken: "!!not-a-cursor!!"},
	})
	assert.ErrorIs(t, err, accountingdomain.ErrInvalidPageToken)
}

func TestResyncRetriesFailedEntities(t *testing.T) {
	f := newFixture(t)
	f.connect()

	booking := f.seedBooking(nil)
	f.qbo.invoiceErr = errors.New("ValidationFault")
	_ = f.svc.SyncBooking(context.Background(), f.businessID, booking.ID)

	sale := f.seedBarSale()
	f.qbo.receiptErr = errors.New("ValidationFault")
	_ = f.svc.SyncBarSale(context.Background(), f.businessID, sale.ID)

	expense := f.seedExpense(nil, "repairs", 75000)
	f.qbo.billErr = errors.New("ValidationFault")
	_ = f.svc.SyncExpense(context.Background(), f.businessID, expense.ID)

	_, err := f.svc.Resync(f.ctx("RECEPTIONIST"))
	assert.ErrorIs(t, err, accountingdomain.ErrPermissionDenied)

	// The invoice and receipt recover; the bill keeps failing.
	f.qbo.invoiceErr = nil
	f.qbo.receiptErr = nil

	resp, err := f.svc.Resync(f.ctx("MANAGER"))
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	assert.Equal(t, accountingdomain.ResyncResponse{Attempted: 3, Succeeded: 2, Failed: 1}, resp)
	assert.Len(t, f.qbo.invoices, 1)
	assert.Len(t, f.qbo.receipts, 1)
	assert.NotNil(t, f.reloadBooking(booking.ID).ExternalInvoiceID)

	f.qbo.billErr = nil
	resp, err = f.svc.Resync(f.ctx("MANAGER"))
	if err != nil {
		t.Fatalf("second resync: %v", err)
	}
	assert.Equal(t, accountingdomain.ResyncResponse{Attempted: 1, Succeeded: 1, Failed: 0}, resp)
	assert.Len(t, f.qbo.bills, 1)

	resp, err = f.svc.Resync(f.ctx("MANAGER"))
	if err != nil {
		t.Fatalf("third resync: %v", err)
	}
	assert.Equal(t, accountingdomain.ResyncResponse{}, resp, "nothing left to retry")
}

func TestResyncRequiresLiveConnection(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Resync(f.ctx("MANAGER"))
	assert.ErrorIs(t, err, accountingdomain.ErrNotConnected)
}
