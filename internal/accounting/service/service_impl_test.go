package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountingdomain "github.com/smallbiznis/staypoint/internal/accounting/domain"
	"github.com/smallbiznis/staypoint/internal/accounting/quickbooks"
	"github.com/smallbiznis/staypoint/internal/auditcontext"
	"github.com/smallbiznis/staypoint/internal/bizcontext"
	bookingdomain "github.com/smallbiznis/staypoint/internal/booking/domain"
	"github.com/smallbiznis/staypoint/internal/clock"
	foliodomain "github.com/smallbiznis/staypoint/internal/folio/domain"
	revenuedomain "github.com/smallbiznis/staypoint/internal/revenue/domain"
	"github.com/smallbiznis/staypoint/pkg/db"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// fakeQBOClient keeps the provider's state in maps so lookup-or-create
// behaves like the real company file across calls.
type fakeQBOClient struct {
	mu sync.Mutex

	customers    map[string]string
	vendors      map[string]string
	items        map[string]string
	accounts     map[string]string
	accountTypes map[string]string

	seq int

	invoices []quickbooks.Invoice
	payments []quickbooks.Payment
	receipts []quickbooks.SalesReceipt
	bills    []quickbooks.Bill

	exchangeErr error
	refreshErr  error
	invoiceErr  error
	paymentErr  error
	receiptErr  error
	billErr     error

	exchangedCodes []string
	refreshCalls   int
	lastAuth       quickbooks.Auth
}

func newFakeQBOClient() *fakeQBOClient {
	return &fakeQBOClient{
		customers:    map[string]string{},
		vendors:      map[string]string{},
		items:        map[string]string{},
		accounts:     map[string]string{},
		accountTypes: map[string]string{},
	}
}

func (f *fakeQBOClient) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeQBOClient) ExchangeCode(ctx context.Context, code, redirectURI string) (quickbooks.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exchangeErr != nil {
		return quickbooks.TokenPair{}, f.exchangeErr
	}
	f.exchangedCodes = append(f.exchangedCodes, code)
	return quickbooks.TokenPair{
		AccessToken:      "granted-access",
		RefreshToken:     "granted-refresh",
		ExpiresIn:        3600,
		RefreshExpiresIn: 8640000,
	}, nil
}

func (f *fakeQBOClient) RefreshToken(ctx context.Context, refreshToken string) (quickbooks.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return quickbooks.TokenPair{}, f.refreshErr
	}
	return quickbooks.TokenPair{
		AccessToken:      fmt.Sprintf("refreshed-access-%d", f.refreshCalls),
		RefreshToken:     fmt.Sprintf("refreshed-refresh-%d", f.refreshCalls),
		ExpiresIn:        3600,
		RefreshExpiresIn: 8640000,
	}, nil
}

func (f *fakeQBOClient) find(auth quickbooks.Auth, registry map[string]string, name string) (*quickbooks.EntityRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAuth = auth
	if id, ok := registry[name]; ok {
		return &quickbooks.EntityRef{ID: id, Name: name}, nil
	}
	return nil, nil
}

func (f *fakeQBOClient) create(auth quickbooks.Auth, registry map[string]string, name, prefix string) (*quickbooks.EntityRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAuth = auth
	id := f.nextID(prefix)
	registry[name] = id
	return &quickbooks.EntityRef{ID: id, Name: name}, nil
}

func (f *fakeQBOClient) FindCustomer(ctx context.Context, auth quickbooks.Auth, name string) (*quickbooks.EntityRef, error) {
	return f.find(auth, f.customers, name)
}

func (f *fakeQBOClient) CreateCustomer(ctx context.Context, auth quickbooks.Auth, name string) (*quickbooks.EntityRef, error) {
	return f.create(auth, f.customers, name, "cust")
}

func (f *fakeQBOClient) FindVendor(ctx context.Context, auth quickbooks.Auth, name string) (*quickbooks.EntityRef, error) {
	return f.find(auth, f.vendors, name)
}

func (f *fakeQBOClient) CreateVendor(ctx context.Context, auth quickbooks.Auth, name string) (*quickbooks.EntityRef, error) {
	return f.create(auth, f.vendors, name, "vend")
}

func (f *fakeQBOClient) FindItem(ctx context.Context, auth quickbooks.Auth, name string) (*quickbooks.EntityRef, error) {
	return f.find(auth, f.items, name)
}

func (f *fakeQBOClient) CreateItem(ctx context.Context, auth quickbooks.Auth, item quickbooks.Item) (*quickbooks.EntityRef, error) {
	return f.create(auth, f.items, item.Name, "item")
}

func (f *fakeQBOClient) FindAccount(ctx context.Context, auth quickbooks.Auth, name string) (*quickbooks.EntityRef, error) {
	return f.find(auth, f.accounts, name)
}

func (f *fakeQBOClient) CreateAccount(ctx context.Context, auth quickbooks.Auth, account quickbooks.Account) (*quickbooks.EntityRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAuth = auth
	id := f.nextID("acct")
	f.accounts[account.Name] = id
	f.accountTypes[account.Name] = account.AccountType
	return &quickbooks.EntityRef{ID: id, Name: account.Name}, nil
}

func (f *fakeQBOClient) CreateInvoice(ctx context.Context, auth quickbooks.Auth, invoice quickbooks.Invoice) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAuth = auth
	if f.invoiceErr != nil {
		return "", f.invoiceErr
	}
	f.invoices = append(f.invoices, invoice)
	return f.nextID("inv"), nil
}

func (f *fakeQBOClient) CreatePayment(ctx context.Context, auth quickbooks.Auth, payment quickbooks.Payment) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAuth = auth
	if f.paymentErr != nil {
		return "", f.paymentErr
	}
	f.payments = append(f.payments, payment)
	return f.nextID("pay"), nil
}

func (f *fakeQBOClient) CreateSalesReceipt(ctx context.Context, auth quickbooks.Auth, receipt quickbooks.SalesReceipt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAuth = auth
	if f.receiptErr != nil {
		return "", f.receiptErr
	}
	f.receipts = append(f.receipts, receipt)
	return f.nextID("rcpt"), nil
}

func (f *fakeQBOClient) CreateBill(ctx context.Context, auth quickbooks.Auth, bill quickbooks.Bill) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAuth = auth
	if f.billErr != nil {
		return "", f.billErr
	}
	f.bills = append(f.bills, bill)
	return f.nextID("bill"), nil
}

type fakeAccountingRepo struct{}

func (fakeAccountingRepo) UpsertConnection(ctx context.Context, db *gorm.DB, conn *accountingdomain.Connection) error {
	var existing accountingdomain.Connection
	err := db.WithContext(ctx).Where("business_id = ?", conn.BusinessID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.WithContext(ctx).Create(conn).Error
	}
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Model(&accountingdomain.Connection{}).
		Where("business_id = ?", conn.BusinessID).
		Updates(map[string]any{
			"provider":                 conn.Provider,
			"realm_id":                 conn.RealmID,
			"access_token":             conn.AccessToken,
			"refresh_token":            conn.RefreshToken,
			"access_token_expires_at":  conn.AccessTokenExpiresAt,
			"refresh_token_expires_at": conn.RefreshTokenExpiresAt,
			"status":                   conn.Status,
			"connected_by":             conn.ConnectedBy,
			"updated_at":               conn.UpdatedAt,
		}).Error
}

func (fakeAccountingRepo) FindConnection(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (*accountingdomain.Connection, error) {
	var conn accountingdomain.Connection
	err := db.WithContext(ctx).Where("business_id = ?", businessID).First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (fakeAccountingRepo) UpdateTokens(ctx context.Context, db *gorm.DB, conn *accountingdomain.Connection) error {
	return db.WithContext(ctx).Model(&accountingdomain.Connection{}).
		Where("business_id = ?", conn.BusinessID).
		Updates(map[string]any{
			"access_token":             conn.AccessToken,
			"refresh_token":            conn.RefreshToken,
			"access_token_expires_at":  conn.AccessTokenExpiresAt,
			"refresh_token_expires_at": conn.RefreshTokenExpiresAt,
			"updated_at":               conn.UpdatedAt,
		}).Error
}

func (fakeAccountingRepo) Disconnect(ctx context.Context, db *gorm.DB, businessID snowflake.ID) error {
	return db.WithContext(ctx).Model(&accountingdomain.Connection{}).
		Where("business_id = ?", businessID).
		Updates(map[string]any{
			"status":        accountingdomain.ConnectionStatusDisconnected,
			"access_token":  "",
			"refresh_token": "",
		}).Error
}

func (fakeAccountingRepo) InsertSyncLog(ctx context.Context, db *gorm.DB, entry *accountingdomain.SyncLog) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (fakeAccountingRepo) HasSuccess(ctx context.Context, db *gorm.DB, businessID snowflake.ID, entityType accountingdomain.EntityType, entityID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&accountingdomain.SyncLog{}).
		Where("business_id = ? AND entity_type = ? AND entity_id = ? AND outcome = ?",
			businessID, entityType, entityID, accountingdomain.SyncOutcomeSuccess).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (fakeAccountingRepo) LastSyncLog(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (*accountingdomain.SyncLog, error) {
	var entry accountingdomain.SyncLog
	err := db.WithContext(ctx).Where("business_id = ?", businessID).
		Order("created_at desc, id desc").First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (fakeAccountingRepo) ListSyncLogs(ctx context.Context, db *gorm.DB, filter accountingdomain.SyncLogFilter) ([]accountingdomain.SyncLog, error) {
	var entries []accountingdomain.SyncLog
	stmt := db.WithContext(ctx).Model(&accountingdomain.SyncLog{}).
		Where("business_id = ?", filter.BusinessID)
	if filter.EntityType != "" {
		stmt = stmt.Where("entity_type = ?", filter.EntityType)
	}
	if filter.Outcome != "" {
		stmt = stmt.Where("outcome = ?", filter.Outcome)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID)
	}
	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (fakeAccountingRepo) ListUnresolvedFailures(ctx context.Context, db *gorm.DB, businessID snowflake.ID, limit int) ([]accountingdomain.SyncLog, error) {
	var all []accountingdomain.SyncLog
	err := db.WithContext(ctx).Where("business_id = ?", businessID).
		Order("id asc").Find(&all).Error
	if err != nil {
		return nil, err
	}
	latest := map[string]accountingdomain.SyncLog{}
	for _, entry := range all {
		latest[string(entry.EntityType)+":"+entry.EntityID.String()] = entry
	}
	var failures []accountingdomain.SyncLog
	for _, entry := range latest {
		if entry.Outcome == accountingdomain.SyncOutcomeFailed {
			failures = append(failures, entry)
		}
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].ID < failures[j].ID })
	if limit > 0 && len(failures) > limit {
		failures = failures[:limit]
	}
	return failures, nil
}

type fakeBookingRepo struct{}

func (fakeBookingRepo) Insert(ctx context.Context, db *gorm.DB, booking *bookingdomain.Booking) error {
	return db.WithContext(ctx).Create(booking).Error
}

func (fakeBookingRepo) FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*bookingdomain.Booking, error) {
	var booking bookingdomain.Booking
	err := db.WithContext(ctx).Where("business_id = ? AND id = ?", businessID, id).First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (f fakeBookingRepo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*bookingdomain.Booking, error) {
	return f.FindByID(ctx, db, businessID, id)
}

func (fakeBookingRepo) UpdateLifecycle(ctx context.Context, db *gorm.DB, booking *bookingdomain.Booking) error {
	return nil
}

func (fakeBookingRepo) UpdateStay(ctx context.Context, db *gorm.DB, booking *bookingdomain.Booking) error {
	return nil
}

func (fakeBookingRepo) SetExternalInvoiceID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID, externalID string) error {
	return db.WithContext(ctx).Model(&bookingdomain.Booking{}).
		Where("business_id = ? AND id = ?", businessID, id).
		Update("external_invoice_id", externalID).Error
}

func (fakeBookingRepo) List(ctx context.Context, db *gorm.DB, filter bookingdomain.ListFilter) ([]bookingdomain.Booking, error) {
	return nil, nil
}

type fakeFolioRepo struct{}

func (fakeFolioRepo) Insert(ctx context.Context, db *gorm.DB, payment *foliodomain.FolioPayment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (fakeFolioRepo) FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*foliodomain.FolioPayment, error) {
	var payment foliodomain.FolioPayment
	err := db.WithContext(ctx).Where("business_id = ? AND id = ?", businessID, id).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (fakeFolioRepo) ListByBooking(ctx context.Context, db *gorm.DB, businessID, bookingID snowflake.ID) ([]foliodomain.FolioPayment, error) {
	return nil, nil
}

func (fakeFolioRepo) SumByBooking(ctx context.Context, db *gorm.DB, businessID, bookingID snowflake.ID) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (fakeFolioRepo) NextSequence(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (int64, error) {
	return 1, nil
}

type fakeRevenueRepo struct{}

func (fakeRevenueRepo) InsertBarSale(ctx context.Context, db *gorm.DB, sale *revenuedomain.BarSale) error {
	return db.WithContext(ctx).Create(sale).Error
}

func (fakeRevenueRepo) FindBarSaleByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*revenuedomain.BarSale, error) {
	var sale revenuedomain.BarSale
	err := db.WithContext(ctx).Where("business_id = ? AND id = ?", businessID, id).First(&sale).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (fakeRevenueRepo) FindBarSaleByDedupeKey(ctx context.Context, db *gorm.DB, businessID snowflake.ID, dedupeKey string) (*revenuedomain.BarSale, error) {
	return nil, nil
}

func (fakeRevenueRepo) ListBarSales(ctx context.Context, db *gorm.DB, filter revenuedomain.RangeFilter) ([]revenuedomain.BarSale, error) {
	return nil, nil
}

func (fakeRevenueRepo) InsertExpense(ctx context.Context, db *gorm.DB, expense *revenuedomain.Expense) error {
	return db.WithContext(ctx).Create(expense).Error
}

func (fakeRevenueRepo) FindExpenseByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*revenuedomain.Expense, error) {
	var expense revenuedomain.Expense
	err := db.WithContext(ctx).Where("business_id = ? AND id = ?", businessID, id).First(&expense).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

func (fakeRevenueRepo) ListExpenses(ctx context.Context, db *gorm.DB, filter revenuedomain.RangeFilter) ([]revenuedomain.Expense, error) {
	return nil, nil
}

func (fakeRevenueRepo) InsertOtherRevenue(ctx context.Context, db *gorm.DB, revenue *revenuedomain.OtherRevenue) error {
	return db.WithContext(ctx).Create(revenue).Error
}

func (fakeRevenueRepo) FindOtherRevenueByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*revenuedomain.OtherRevenue, error) {
	var revenue revenuedomain.OtherRevenue
	err := db.WithContext(ctx).Where("business_id = ? AND id = ?", businessID, id).First(&revenue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &revenue, nil
}

func (fakeRevenueRepo) ListOtherRevenues(ctx context.Context, db *gorm.DB, filter revenuedomain.RangeFilter) ([]revenuedomain.OtherRevenue, error) {
	return nil, nil
}

func (fakeRevenueRepo) SumForBooking(ctx context.Context, db *gorm.DB, businessID, bookingID snowflake.ID) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type fixture struct {
	t          *testing.T
	db         *gorm.DB
	svc        accountingdomain.Service
	qbo        *fakeQBOClient
	clk        *clock.FakeClock
	node       *snowflake.Node
	businessID snowflake.ID
}

var fixtureStart = time.Date(2025, 5, 6, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.AutoMigrate(
		&accountingdomain.Connection{},
		&accountingdomain.SyncLog{},
		&bookingdomain.Booking{},
		&foliodomain.FolioPayment{},
		&revenuedomain.BarSale{},
		&revenuedomain.Expense{},
		&revenuedomain.OtherRevenue{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	clk := clock.NewFakeClock(fixtureStart)
	qbo := newFakeQBOClient()
	svc := NewService(ServiceParam{
		DB:          conn,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Repo:        fakeAccountingRepo{},
		BookingRepo: fakeBookingRepo{},
		FolioRepo:   fakeFolioRepo{},
		RevenueRepo: fakeRevenueRepo{},
		Client:      qbo,
	})

	return &fixture{
		t:          t,
		db:         conn,
		svc:        svc,
		qbo:        qbo,
		clk:        clk,
		node:       node,
		businessID: node.Generate(),
	}
}

func (f *fixture) ctx(role string) context.Context {
	ctx := bizcontext.WithBusinessID(context.Background(), int64(f.businessID))
	return auditcontext.WithActor(ctx, auditcontext.Actor{
		Type:       auditcontext.ActorTypeUser,
		ID:         f.node.Generate().String(),
		Role:       role,
		WorkerName: "Sari",
	})
}

const fixtureRealm = "9130351234567890"

func (f *fixture) connect() accountingdomain.Connection {
	return f.connectExpiring(time.Hour)
}

func (f *fixture) connectExpiring(in time.Duration) accountingdomain.Connection {
	f.t.Helper()
	conn := accountingdomain.Connection{
		ID:                   f.node.Generate(),
		BusinessID:           f.businessID,
		Provider:             "quickbooks",
		RealmID:              fixtureRealm,
		AccessToken:          "stored-access",
		RefreshToken:         "stored-refresh",
		AccessTokenExpiresAt: f.clk.Now().Add(in),
		Status:               accountingdomain.ConnectionStatusConnected,
		CreatedAt:            f.clk.Now(),
		UpdatedAt:            f.clk.Now(),
	}
	if err := f.db.Create(&conn).Error; err != nil {
		f.t.Fatalf("seed connection: %v", err)
	}
	return conn
}

func (f *fixture) seedBooking(externalInvoiceID *string) bookingdomain.Booking {
	f.t.Helper()
	booking := bookingdomain.Booking{
		ID:                f.node.Generate(),
		BusinessID:        f.businessID,
		RoomID:            f.node.Generate(),
		FolioNumber:       "FOL-202505-000001",
		GuestName:         "Putri Ayu",
		Origin:            bookingdomain.OriginFrontDesk,
		Status:            bookingdomain.BookingStatusCheckedIn,
		CheckInDate:       time.Date(2025, 5, 4, 0, 0, 0, 0, time.UTC),
		CheckOutDate:      time.Date(2025, 5, 7, 0, 0, 0, 0, time.UTC),
		Nights:            3,
		RoomRate:          decimal.NewFromInt(50000),
		RoomCharge:        decimal.NewFromInt(150000),
		TotalAmount:       decimal.NewFromInt(150000),
		Currency:          "IDR",
		ExternalInvoiceID: externalInvoiceID,
		CreatedAt:         f.clk.Now(),
		UpdatedAt:         f.clk.Now(),
	}
	if err := f.db.Create(&booking).Error; err != nil {
		f.t.Fatalf("seed booking: %v", err)
	}
	return booking
}

func (f *fixture) seedPayment(bookingID snowflake.ID, amount int64) foliodomain.FolioPayment {
	f.t.Helper()
	payment := foliodomain.FolioPayment{
		ID:         f.node.Generate(),
		BusinessID: f.businessID,
		BookingID:  bookingID,
		Amount:     decimal.NewFromInt(amount),
		Mode:       "CASH",
		CreatedAt:  f.clk.Now(),
	}
	if err := f.db.Create(&payment).Error; err != nil {
		f.t.Fatalf("seed payment: %v", err)
	}
	return payment
}

func (f *fixture) seedBarSale() revenuedomain.BarSale {
	f.t.Helper()
	raw, err := json.Marshal([]revenuedomain.BarSaleItem{
		{Name: "Bintang", Quantity: 2, UnitPrice: decimal.NewFromInt(15000)},
		{Name: "Nasi Goreng", Quantity: 1, UnitPrice: decimal.NewFromInt(20000)},
	})
	if err != nil {
		f.t.Fatalf("marshal items: %v", err)
	}
	sale := revenuedomain.BarSale{
		ID:          f.node.Generate(),
		BusinessID:  f.businessID,
		Outlet:      "bar",
		Items:       datatypes.JSON(raw),
		TotalAmount: decimal.NewFromInt(50000),
		Currency:    "IDR",
		PaymentMode: "CASH",
		Source:      revenuedomain.SourceManual,
		SoldAt:      f.clk.Now(),
		CreatedAt:   f.clk.Now(),
	}
	if err := f.db.Create(&sale).Error; err != nil {
		f.t.Fatalf("seed bar sale: %v", err)
	}
	return sale
}

func (f *fixture) seedExpense(vendor *string, category string, amount int64) revenuedomain.Expense {
	f.t.Helper()
	expense := revenuedomain.Expense{
		ID:         f.node.Generate(),
		BusinessID: f.businessID,
		Category:   category,
		VendorName: vendor,
		Amount:     decimal.NewFromInt(amount),
		Currency:   "IDR",
		IncurredAt: f.clk.Now(),
		CreatedAt:  f.clk.Now(),
	}
	if err := f.db.Create(&expense).Error; err != nil {
		f.t.Fatalf("seed expense: %v", err)
	}
	return expense
}

func (f *fixture) seedOtherRevenue(bookingID *snowflake.ID, category string, description *string, amount int64) revenuedomain.OtherRevenue {
	f.t.Helper()
	revenue := revenuedomain.OtherRevenue{
		ID:          f.node.Generate(),
		BusinessID:  f.businessID,
		BookingID:   bookingID,
		Category:    category,
		Description: description,
		Amount:      decimal.NewFromInt(amount),
		Currency:    "IDR",
		OccurredAt:  f.clk.Now(),
		CreatedAt:   f.clk.Now(),
	}
	if err := f.db.Create(&revenue).Error; err != nil {
		f.t.Fatalf("seed other revenue: %v", err)
	}
	return revenue
}

func (f *fixture) syncLogs() []accountingdomain.SyncLog {
	f.t.Helper()
	var logs []accountingdomain.SyncLog
	if err := f.db.Where("business_id = ?", f.businessID).Order("id asc").Find(&logs).Error; err != nil {
		f.t.Fatalf("load sync logs: %v", err)
	}
	return logs
}

func (f *fixture) reloadBooking(id snowflake.ID) bookingdomain.Booking {
	f.t.Helper()
	var booking bookingdomain.Booking
	if err := f.db.Where("business_id = ? AND id = ?", f.businessID, id).First(&booking).Error; err != nil {
		f.t.Fatalf("reload booking: %v", err)
	}
	return booking
}

func (f *fixture) reloadConnection() accountingdomain.Connection {
	f.t.Helper()
	var conn accountingdomain.Connection
	if err := f.db.Where("business_id = ?", f.businessID).First(&conn).Error; err != nil {
		f.t.Fatalf("reload connection: %v", err)
	}
	return conn
}

func strptr(s string) *string { return &s }

func TestSyncBookingCreatesInvoice(t *testing.T) {
	f := newFixture(t)
	f.connect()
	booking := f.seedBooking(nil)

	if err := f.svc.SyncBooking(context.Background(), f.businessID, booking.ID); err != nil {
		t.Fatalf("sync booking: %v", err)
	}

	if len(f.qbo.invoices) != 1 {
		t.Fatalf("expected one invoice, got %d", len(f.qbo.invoices))
	}
	invoice := f.qbo.invoices[0]
	assert.Equal(t, booking.FolioNumber, invoice.DocNumber)
	assert.Equal(t, "2025-05-04", invoice.TxnDate)
	assert.Equal(t, f.qbo.customers["Putri Ayu"], invoice.CustomerID)
	if assert.Len(t, invoice.Lines, 1) {
		assert.Equal(t, 150000.0, invoice.Lines[0].Amount)
		assert.Contains(t, invoice.Lines[0].Description, booking.ID.String())
		assert.Equal(t, f.qbo.items["Room Revenue"], invoice.Lines[0].ItemID)
	}
	assert.Equal(t, "Income", f.qbo.accountTypes["Room Revenue"])

	reloaded := f.reloadBooking(booking.ID)
	if reloaded.ExternalInvoiceID == nil {
		t.Fatal("external invoice id not persisted")
	}

	logs := f.syncLogs()
	if assert.Len(t, logs, 1) {
		assert.Equal(t, accountingdomain.EntityTypeBooking, logs[0].EntityType)
		assert.Equal(t, accountingdomain.SyncOutcomeSuccess, logs[0].Outcome)
		if assert.NotNil(t, logs[0].ExternalID) {
			assert.Equal(t, *reloaded.ExternalInvoiceID, *logs[0].ExternalID)
		}
	}
}

func TestSyncBookingWithoutConnectionIsNoOp(t *testing.T) {
	f := newFixture(t)
	booking := f.seedBooking(nil)

	if err := f.svc.SyncBooking(context.Background(), f.businessID, booking.ID); err != nil {
		t.Fatalf("sync booking: %v", err)
	}
	assert.Empty(t, f.qbo.invoices)
	assert.Empty(t, f.syncLogs())

	// A disconnected row behaves the same as no row.
	conn := f.connect()
	err := f.db.Model(&accountingdomain.Connection{}).Where("id = ?", conn.ID).
		Update("status", accountingdomain.ConnectionStatusDisconnected).Error
	if err != nil {
		t.Fatalf("disconnect row: %v", err)
	}
	if err := f.svc.SyncBooking(context.Background(), f.businessID, booking.ID); err != nil {
		t.Fatalf("sync booking: %v", err)
	}
	assert.Empty(t, f.qbo.invoices)
	assert.Empty(t, f.syncLogs())
}

func TestSyncBookingIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.connect()
	booking := f.seedBooking(nil)

	if err := f.svc.SyncBooking(context.Background(), f.businessID, booking.ID); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if err := f.svc.SyncBooking(context.Background(), f.businessID, booking.ID); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	assert.Len(t, f.qbo.invoices, 1, "replay must not create a second invoice")
	assert.Len(t, f.syncLogs(), 1)
}

func TestSyncBookingRefreshesExpiringToken(t *testing.T) {
	f := newFixture(t)
	f.connectExpiring(30 * time.Second)
	booking := f.seedBooking(nil)

	if err := f.svc.SyncBooking(context.Background(), f.businessID, booking.ID); err != nil {
		t.Fatalf("sync booking: %v", err)
	}

	assert.Equal(t, 1, f.qbo.refreshCalls)
	assert.Len(t, f.qbo.invoices, 1)
	assert.Equal(t, "refreshed-access-1", f.qbo.lastAuth.AccessToken)
	assert.Equal(t, fixtureRealm, f.qbo.lastAuth.RealmID)

	conn := f.reloadConnection()
	assert.Equal(t, "refreshed-access-1", conn.AccessToken)
	assert.Equal(t, "refreshed-refresh-1", conn.RefreshToken)
	assert.True(t, conn.AccessTokenExpiresAt.Equal(fixtureStart.Add(3600*time.Second)),
		"expiry from the new pair, got %s", conn.AccessTokenExpiresAt)
}

func TestSyncBookingKeepsFreshToken(t *testing.T) {
	f := newFixture(t)
	f.connectExpiring(refreshWindow)
	booking := f.seedBooking(nil)

	if err := f.svc.SyncBooking(context.Background(), f.businessID, booking.ID); err != nil {
		t.Fatalf("sync booking: %v", err)
	}

	assert.Equal(t, 0, f.qbo.refreshCalls, "a token exactly a minute out is still usable")
	assert.Equal(t, "stored-access", f.qbo.lastAuth.AccessToken)
}

func TestSyncBookingRefreshFailureSkipsQuietly(t *testing.T) {
	f := newFixture(t)
	f.connectExpiring(30 * time.Second)
	booking := f.seedBooking(nil)
	f.qbo.refreshErr = errors.New("invalid_grant")

	if err := f.svc.SyncBooking(context.Background(), f.businessID, booking.ID); err != nil {
		t.Fatalf("refresh failure must not surface: %v", err)
	}

	assert.Equal(t, 1, f.qbo.refreshCalls)
	assert.Empty(t, f.qbo.invoices)
	assert.Empty(t, f.syncLogs(), "disconnected-for-this-call leaves no failure record")

	conn := f.reloadConnection()
	assert.Equal(t, "stored-access", conn.AccessToken, "stored pair stays untouched")
	assert.Equal(t, accountingdomain.ConnectionStatusConnected, conn.Status)
}

func TestSyncBookingFailureWritesFailedLog(t *testing.T) {
	f := newFixture(t)
	f.connect()
	booking := f.seedBooking(nil)
	f.qbo.invoiceErr = errors.New("Required parameter Line is missing")

	err := f.svc.SyncBooking(context.Background(), f.businessID, booking.ID)
	assert.EqualError(t, err, "Required parameter Line is missing")

	logs := f.syncLogs()
	if assert.Len(t, logs, 1) {
		assert.Equal(t, accountingdomain.SyncOutcomeFailed, logs[0].Outcome)
		if assert.NotNil(t, logs[0].ErrorMessage) {
			assert.Contains(t, *logs[0].ErrorMessage, "Required parameter")
		}
	}
	reloaded := f.reloadBooking(booking.ID)
	assert.Nil(t, reloaded.ExternalInvoiceID)
}

func TestSyncPaymentLinksInvoice(t *testing.T) {
	f := newFixture(t)
	f.connect()
	booking := f.seedBooking(strptr("inv-77"))
	payment := f.seedPayment(booking.ID, 50000)

	if err := f.svc.SyncPayment(context.Background(), f.businessID, payment.ID); err != nil {
		t.Fatalf("sync payment: %v", err)
	}

	assert.Empty(t, f.qbo.invoices, "existing invoice must be reused")
	if assert.Len(t, f.qbo.payments, 1) {
		doc := f.qbo.payments[0]
		assert.Equal(t, "inv-77", doc.InvoiceID)
		assert.Equal(t, 50000.0, doc.TotalAmount)
		assert.Equal(t, f.qbo.customers["Putri Ayu"], doc.CustomerID)
		assert.Equal(t, f.qbo.accounts["Undeposited Funds"], doc.DepositToAccountID)
		assert.Equal(t, "2025-05-06", doc.TxnDate)
	}
	assert.Equal(t, "Other Current Asset", f.qbo.accountTypes["Undeposited Funds"])

	logs := f.syncLogs()
	if assert.Len(t, logs, 1) {
		assert.Equal(t, accountingdomain.EntityTypePayment, logs[0].EntityType)
		assert.Equal(t, accountingdomain.SyncOutcomeSuccess, logs[0].Outcome)
	}
}

func TestSyncPaymentPrefersExistingDepositAccount(t *testing.T) {
	f := newFixture(t)
	f.connect()
	booking := f.seedBooking(strptr("inv-77"))
	payment := f.seedPayment(booking.ID, 50000)

	// Newer company files ship without "Undeposited Funds".
	f.qbo.accounts["Payments to deposit"] = "acct-900"

	if err := f.svc.SyncPayment(context.Background(), f.businessID, payment.ID); err != nil {
		t.Fatalf("sync payment: %v", err)
	}

	if assert.Len(t, f.qbo.payments, 1) {
		assert.Equal(t, "acct-900", f.qbo.payments[0].DepositToAccountID)
	}
	_, created := f.qbo.accounts["Undeposited Funds"]
	assert.False(t, created, "no new account when a preferred one exists")
}

func TestSyncPaymentBackfillsMissingInvoice(t *testing.T) {
	f := newFixture(t)
	f.connect()
	booking := f.seedBooking(nil)
	payment := f.seedPayment(booking.ID, 150000)

	if err := f.svc.SyncPayment(context.Background(), f.businessID, payment.ID); err != nil {
		t.Fatalf("sync payment: %v", err)
	}

	assert.Len(t, f.qbo.invoices, 1, "payment sync creates the missing invoice first")
	reloaded := f.reloadBooking(booking.ID)
	if reloaded.ExternalInvoiceID == nil {
		t.Fatal("external invoice id not persisted")
	}
	if assert.Len(t, f.qbo.payments, 1) {
		assert.Equal(t, *reloaded.ExternalInvoiceID, f.qbo.payments[0].InvoiceID)
	}

	logs := f.syncLogs()
	if assert.Len(t, logs, 2) {
		assert.Equal(t, accountingdomain.EntityTypeBooking, logs[0].EntityType)
		assert.Equal(t, accountingdomain.SyncOutcomeSuccess, logs[0].Outcome)
		assert.Equal(t, accountingdomain.EntityTypePayment, logs[1].EntityType)
		assert.Equal(t, accountingdomain.SyncOutcomeSuccess, logs[1].Outcome)
	}
}

func TestSyncBarSaleCreatesReceipt(t *testing.T) {
	f := newFixture(t)
	f.connect()
	sale := f.seedBarSale()

	if err := f.svc.SyncBarSale(context.Background(), f.businessID, sale.ID); err != nil {
		t.Fatalf("sync bar sale: %v", err)
	}

	if assert.Len(t, f.qbo.receipts, 1) {
		receipt := f.qbo.receipts[0]
		assert.Equal(t, sale.ID.String(), receipt.DocNumber)
		assert.Equal(t, f.qbo.customers["Walk-in Guest"], receipt.CustomerID)
		assert.Equal(t, f.qbo.accounts["Undeposited Funds"], receipt.DepositToAccountID)
		if assert.Len(t, receipt.Lines, 1) {
			assert.Equal(t, 50000.0, receipt.Lines[0].Amount)
			assert.Equal(t, "2x Bintang, 1x Nasi Goreng", receipt.Lines[0].Description)
			assert.Equal(t, f.qbo.items["Bar Sales"], receipt.Lines[0].ItemID)
		}
		assert.Contains(t, receipt.PrivateNote, sale.ID.String())
	}
	assert.Equal(t, "Income", f.qbo.accountTypes["Bar Sales"])

	logs := f.syncLogs()
	if assert.Len(t, logs, 1) {
		assert.Equal(t, accountingdomain.EntityTypeBarSale, logs[0].EntityType)
		assert.Equal(t, accountingdomain.SyncOutcomeSuccess, logs[0].Outcome)
	}
}

func TestSyncExpenseCreatesBill(t *testing.T) {
	f := newFixture(t)
	f.connect()
	expense := f.seedExpense(strptr("PT Sumber Makmur"), "kitchen_supplies", 320000)

	if err := f.svc.SyncExpense(context.Background(), f.businessID, expense.ID); err != nil {
		t.Fatalf("sync expense: %v", err)
	}

	if assert.Len(t, f.qbo.bills, 1) {
		bill := f.qbo.bills[0]
		assert.Equal(t, f.qbo.vendors["PT Sumber Makmur"], bill.VendorID)
		if assert.Len(t, bill.Lines, 1) {
			assert.Equal(t, 320000.0, bill.Lines[0].Amount)
			assert.Equal(t, f.qbo.accounts["Kitchen Supplies"], bill.Lines[0].AccountID)
		}
	}
	assert.Equal(t, "Expense", f.qbo.accountTypes["Kitchen Supplies"])

	// Expenses without a vendor bill against the fallback.
	second := f.seedExpense(nil, "utilities", 90000)
	if err := f.svc.SyncExpense(context.Background(), f.businessID, second.ID); err != nil {
		t.Fatalf("sync expense: %v", err)
	}
	if assert.Len(t, f.qbo.bills, 2) {
		assert.Equal(t, f.qbo.vendors["Miscellaneous"], f.qbo.bills[1].VendorID)
	}
}

func TestSyncOtherRevenueBillsGuestWhenLinked(t *testing.T) {
	f := newFixture(t)
	f.connect()
	booking := f.seedBooking(nil)
	linked := f.seedOtherRevenue(&booking.ID, "room_service", strptr("minibar"), 25000)

	if err := f.svc.SyncOtherRevenue(context.Background(), f.businessID, linked.ID); err != nil {
		t.Fatalf("sync other revenue: %v", err)
	}

	if assert.Len(t, f.qbo.receipts, 1) {
		receipt := f.qbo.receipts[0]
		assert.Equal(t, f.qbo.customers["Putri Ayu"], receipt.CustomerID)
		if assert.Len(t, receipt.Lines, 1) {
			assert.Equal(t, 25000.0, receipt.Lines[0].Amount)
			assert.Equal(t, "minibar", receipt.Lines[0].Description)
			assert.Equal(t, f.qbo.items["Room Service"], receipt.Lines[0].ItemID)
		}
	}

	// Without a booking link the receipt goes to the walk-in customer and
	// the category supplies the description.
	unlinked := f.seedOtherRevenue(nil, "laundry", nil, 30000)
	if err := f.svc.SyncOtherRevenue(context.Background(), f.businessID, unlinked.ID); err != nil {
		t.Fatalf("sync other revenue: %v", err)
	}
	if assert.Len(t, f.qbo.receipts, 2) {
		assert.Equal(t, f.qbo.customers["Walk-in Guest"], f.qbo.receipts[1].CustomerID)
		assert.Equal(t, "Laundry", f.qbo.receipts[1].Lines[0].Description)
	}
}

func TestSyncOtherRevenueChecksPriorSuccess(t *testing.T) {
	f := newFixture(t)
	f.connect()
	revenue := f.seedOtherRevenue(nil, "parking", nil, 10000)

	if err := f.svc.SyncOtherRevenue(context.Background(), f.businessID, revenue.ID); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if err := f.svc.SyncOtherRevenue(context.Background(), f.businessID, revenue.ID); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	assert.Len(t, f.qbo.receipts, 1, "prior success must stop a second receipt")
	assert.Len(t, f.syncLogs(), 1)
}

func TestSyncUnknownEntityRecordsFailure(t *testing.T) {
	f := newFixture(t)
	f.connect()

	missing := f.node.Generate()
	err := f.svc.SyncBarSale(context.Background(), f.businessID, missing)
	assert.ErrorIs(t, err, accountingdomain.ErrEntityNotFound)

	logs := f.syncLogs()
	if assert.Len(t, logs, 1) {
		assert.Equal(t, accountingdomain.SyncOutcomeFailed, logs[0].Outcome)
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"room_service":     "Room Service",
		"kitchen-supplies": "Kitchen Supplies",
		" spa ":            "Spa",
		"BAR":              "Bar",
		"":                 "",
	}
	for raw, want := range cases {
		if got := displayName(raw); got != want {
			t.Errorf("displayName(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestSaleDescriptionFallsBack(t *testing.T) {
	sale := &revenuedomain.BarSale{Outlet: "restaurant", Items: datatypes.JSON([]byte(`[]`))}
	if got := saleDescription(sale); got != "Restaurant sale" {
		t.Errorf("empty items: got %q", got)
	}
	sale.Items = datatypes.JSON([]byte(`{broken`))
	if got := saleDescription(sale); got != "Restaurant sale" {
		t.Errorf("bad json: got %q", got)
	}
}

func TestTruncatedErrorMessage(t *testing.T) {
	long := strings.Repeat("x", maxErrorLength+100)
	message := truncated(errors.New(long))
	assert.Len(t, *message, maxErrorLength)
}
