package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountingdomain "github.com/smallbiznis/staypoint/internal/accounting/domain"
	"github.com/smallbiznis/staypoint/internal/accounting/quickbooks"
	"github.com/smallbiznis/staypoint/internal/auditcontext"
	"github.com/smallbiznis/staypoint/internal/bizcontext"
	bookingdomain "github.com/smallbiznis/staypoint/internal/booking/domain"
	businessdomain "github.com/smallbiznis/staypoint/internal/business/domain"
	"github.com/smallbiznis/staypoint/internal/clock"
	foliodomain "github.com/smallbiznis/staypoint/internal/folio/domain"
	obsmetrics "github.com/smallbiznis/staypoint/internal/observability/metrics"
	"github.com/smallbiznis/staypoint/internal/ratelimit"
	revenuedomain "github.com/smallbiznis/staypoint/internal/revenue/domain"
	"github.com/smallbiznis/staypoint/pkg/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	providerQuickBooks = "quickbooks"

	// refreshWindow is how close to expiry the access token may get before
	// the bridge refreshes it ahead of a call.
	refreshWindow = 60 * time.Second

	// resyncBatch caps how many failed entities one manual resync sweeps.
	resyncBatch = 50

	maxErrorLength = 500

	walkInCustomer    = "Walk-in Guest"
	defaultVendorName = "Miscellaneous"
	roomRevenueItem   = "Room Revenue"

	accountTypeIncome            = "Income"
	accountTypeExpense           = "Expense"
	accountTypeOtherCurrentAsset = "Other Current Asset"
)

// depositAccountNames is the lookup preference for the holding account
// payments land in. Older company files call it "Undeposited Funds", newer
// ones "Payments to deposit".
var depositAccountNames = []string{"Undeposited Funds", "Payments to deposit"}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock

	repo        accountingdomain.Repository
	bookingRepo bookingdomain.Repository
	folioRepo   foliodomain.Repository
	revenueRepo revenuedomain.Repository

	client  quickbooks.Client
	limiter *ratelimit.IngestLimiter
	metrics *obsmetrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock

	Repo        accountingdomain.Repository
	BookingRepo bookingdomain.Repository
	FolioRepo   foliodomain.Repository
	RevenueRepo revenuedomain.Repository

	Client  quickbooks.Client
	Limiter *ratelimit.IngestLimiter `optional:"true"`
	Metrics *obsmetrics.Metrics      `optional:"true"`
}

func NewService(p ServiceParam) accountingdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("accounting.service"),

		genID: p.GenID,
		clock: p.Clock,

		repo:        p.Repo,
		bookingRepo: p.BookingRepo,
		folioRepo:   p.FolioRepo,
		revenueRepo: p.RevenueRepo,

		client:  p.Client,
		limiter: p.Limiter,
		metrics: p.Metrics,
	}
}

func (s *Service) SyncBooking(ctx context.Context, businessID, bookingID snowflake.ID) error {
	return s.runSync(ctx, businessID, accountingdomain.EntityTypeBooking, bookingID,
		func(ctx context.Context, auth quickbooks.Auth) (string, error) {
			booking, err := s.loadBooking(ctx, businessID, bookingID)
			if err != nil {
				return "", err
			}
			return s.createBookingInvoice(ctx, auth, booking)
		})
}

func (s *Service) SyncPayment(ctx context.Context, businessID, paymentID snowflake.ID) error {
	return s.runSync(ctx, businessID, accountingdomain.EntityTypePayment, paymentID,
		func(ctx context.Context, auth quickbooks.Auth) (string, error) {
			payment, err := s.folioRepo.FindByID(ctx, s.db, businessID, paymentID)
			if err != nil {
				return "", err
			}
			if payment == nil {
				return "", accountingdomain.ErrEntityNotFound
			}
			booking, err := s.loadBooking(ctx, businessID, payment.BookingID)
			if err != nil {
				return "", err
			}

			invoiceID := ""
			if booking.ExternalInvoiceID != nil {
				invoiceID = strings.TrimSpace(*booking.ExternalInvoiceID)
			}
			if invoiceID == "" {
				// The payment event incidentally retries the booking
				// invoice when an earlier sync never produced one.
				invoiceID, err = s.createBookingInvoice(ctx, auth, booking)
				if err != nil {
					return "", err
				}
				s.recordSuccess(ctx, businessID, accountingdomain.EntityTypeBooking, booking.ID, invoiceID)
			}

			customer, err := s.ensureCustomer(ctx, auth, booking.GuestName)
			if err != nil {
				return "", err
			}
			deposit, err := s.resolveDepositAccount(ctx, auth)
			if err != nil {
				return "", err
			}

			return s.client.CreatePayment(ctx, auth, quickbooks.Payment{
				CustomerID:         customer.ID,
				InvoiceID:          invoiceID,
				DepositToAccountID: deposit.ID,
				TxnDate:            dateString(payment.CreatedAt),
				TotalAmount:        payment.Amount.InexactFloat64(),
			})
		})
}

func (s *Service) SyncBarSale(ctx context.Context, businessID, saleID snowflake.ID) error {
	return s.runSync(ctx, businessID, accountingdomain.EntityTypeBarSale, saleID,
		func(ctx context.Context, auth quickbooks.Auth) (string, error) {
			sale, err := s.revenueRepo.FindBarSaleByID(ctx, s.db, businessID, saleID)
			if err != nil {
				return "", err
			}
			if sale == nil {
				return "", accountingdomain.ErrEntityNotFound
			}

			customer, err := s.ensureCustomer(ctx, auth, walkInCustomer)
			if err != nil {
				return "", err
			}
			item, err := s.ensureItem(ctx, auth, displayName(sale.Outlet)+" Sales")
			if err != nil {
				return "", err
			}
			deposit, err := s.resolveDepositAccount(ctx, auth)
			if err != nil {
				return "", err
			}

			return s.client.CreateSalesReceipt(ctx, auth, quickbooks.SalesReceipt{
				CustomerID:         customer.ID,
				DocNumber:          sale.ID.String(),
				TxnDate:            dateString(sale.SoldAt),
				DepositToAccountID: deposit.ID,
				Lines: []quickbooks.Line{{
					Amount:      sale.TotalAmount.InexactFloat64(),
					Description: saleDescription(sale),
					ItemID:      item.ID,
				}},
				PrivateNote: "staypoint bar sale " + sale.ID.String(),
			})
		})
}

func (s *Service) SyncExpense(ctx context.Context, businessID, expenseID snowflake.ID) error {
	return s.runSync(ctx, businessID, accountingdomain.EntityTypeExpense, expenseID,
		func(ctx context.Context, auth quickbooks.Auth) (string, error) {
			expense, err := s.revenueRepo.FindExpenseByID(ctx, s.db, businessID, expenseID)
			if err != nil {
				return "", err
			}
			if expense == nil {
				return "", accountingdomain.ErrEntityNotFound
			}

			vendorName := defaultVendorName
			if expense.VendorName != nil && strings.TrimSpace(*expense.VendorName) != "" {
				vendorName = strings.TrimSpace(*expense.VendorName)
			}
			vendor, err := s.ensureVendor(ctx, auth, vendorName)
			if err != nil {
				return "", err
			}
			account, err := s.ensureAccount(ctx, auth, displayName(expense.Category), accountTypeExpense)
			if err != nil {
				return "", err
			}

			description := displayName(expense.Category)
			if expense.Description != nil && strings.TrimSpace(*expense.Description) != "" {
				description = strings.TrimSpace(*expense.Description)
			}

			return s.client.CreateBill(ctx, auth, quickbooks.Bill{
				VendorID: vendor.ID,
				TxnDate:  dateString(expense.IncurredAt),
				Lines: []quickbooks.BillLine{{
					Amount:      expense.Amount.InexactFloat64(),
					Description: description,
					AccountID:   account.ID,
				}},
				PrivateNote: "staypoint expense " + expense.ID.String(),
			})
		})
}

func (s *Service) SyncOtherRevenue(ctx context.Context, businessID, revenueID snowflake.ID) error {
	return s.runSync(ctx, businessID, accountingdomain.EntityTypeOtherRevenue, revenueID,
		func(ctx context.Context, auth quickbooks.Auth) (string, error) {
			revenue, err := s.revenueRepo.FindOtherRevenueByID(ctx, s.db, businessID, revenueID)
			if err != nil {
				return "", err
			}
			if revenue == nil {
				return "", accountingdomain.ErrEntityNotFound
			}

			// Ancillary charges linked to a stay bill against the guest;
			// everything else is a walk-in receipt.
			customerName := walkInCustomer
			if revenue.BookingID != nil {
				booking, err := s.bookingRepo.FindByID(ctx, s.db, businessID, *revenue.BookingID)
				if err != nil {
					return "", err
				}
				if booking != nil {
					customerName = booking.GuestName
				}
			}

			customer, err := s.ensureCustomer(ctx, auth, customerName)
			if err != nil {
				return "", err
			}
			item, err := s.ensureItem(ctx, auth, displayName(revenue.Category))
			if err != nil {
				return "", err
			}
			deposit, err := s.resolveDepositAccount(ctx, auth)
			if err != nil {
				return "", err
			}

			description := displayName(revenue.Category)
			if revenue.Description != nil && strings.TrimSpace(*revenue.Description) != "" {
				description = strings.TrimSpace(*revenue.Description)
			}

			return s.client.CreateSalesReceipt(ctx, auth, quickbooks.SalesReceipt{
				CustomerID:         customer.ID,
				DocNumber:          revenue.ID.String(),
				TxnDate:            dateString(revenue.OccurredAt),
				DepositToAccountID: deposit.ID,
				Lines: []quickbooks.Line{{
					Amount:      revenue.Amount.InexactFloat64(),
					Description: description,
					ItemID:      item.ID,
				}},
				PrivateNote: "staypoint other revenue " + revenue.ID.String(),
			})
		})
}

func (s *Service) Connect(ctx context.Context, req accountingdomain.ConnectRequest) (accountingdomain.StatusView, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return accountingdomain.StatusView{}, accountingdomain.ErrNotConnected
	}
	if !s.managerial(ctx) {
		return accountingdomain.StatusView{}, accountingdomain.ErrPermissionDenied
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return accountingdomain.StatusView{}, accountingdomain.ErrInvalidConnectCode
	}
	realmID := strings.TrimSpace(req.RealmID)
	if realmID == "" {
		return accountingdomain.StatusView{}, accountingdomain.ErrInvalidRealm
	}

	existing, err := s.repo.FindConnection(ctx, s.db, businessID)
	if err != nil {
		return accountingdomain.StatusView{}, err
	}
	// Switching company files requires an explicit disconnect first. A
	// re-grant against the same realm just rotates the token pair.
	if existing.Live() && existing.RealmID != realmID {
		return accountingdomain.StatusView{}, accountingdomain.ErrAlreadyConnected
	}

	pair, err := s.client.ExchangeCode(ctx, code, strings.TrimSpace(req.RedirectURI))
	if err != nil {
		s.log.Warn("authorization code exchange failed",
			zap.String("business_id", businessID.String()),
			zap.Error(err))
		return accountingdomain.StatusView{}, accountingdomain.ErrInvalidConnectCode
	}

	now := s.clock.Now()
	conn := &accountingdomain.Connection{
		ID:          s.genID.Generate(),
		BusinessID:  businessID,
		Provider:    providerQuickBooks,
		RealmID:     realmID,
		Status:      accountingdomain.ConnectionStatusConnected,
		ConnectedBy: s.actorID(ctx),
		CreatedAt:   now,
	}
	if existing != nil {
		conn.ID = existing.ID
		conn.CreatedAt = existing.CreatedAt
	}
	applyTokenPair(conn, pair, now)

	if err := s.repo.UpsertConnection(ctx, s.db, conn); err != nil {
		return accountingdomain.StatusView{}, err
	}

	s.log.Info("accounting connected",
		zap.String("business_id", businessID.String()),
		zap.String("realm_id", realmID))
	return s.statusView(ctx, businessID, conn)
}

func (s *Service) Disconnect(ctx context.Context) error {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return accountingdomain.ErrNotConnected
	}
	if !s.managerial(ctx) {
		return accountingdomain.ErrPermissionDenied
	}

	existing, err := s.repo.FindConnection(ctx, s.db, businessID)
	if err != nil {
		return err
	}
	if !existing.Live() {
		return accountingdomain.ErrNotConnected
	}

	if err := s.repo.Disconnect(ctx, s.db, businessID); err != nil {
		return err
	}

	s.log.Info("accounting disconnected", zap.String("business_id", businessID.String()))
	return nil
}

func (s *Service) Status(ctx context.Context) (accountingdomain.StatusView, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return accountingdomain.StatusView{}, accountingdomain.ErrNotConnected
	}

	conn, err := s.repo.FindConnection(ctx, s.db, businessID)
	if err != nil {
		return accountingdomain.StatusView{}, err
	}
	return s.statusView(ctx, businessID, conn)
}

func (s *Service) History(ctx context.Context, req accountingdomain.ListSyncLogRequest) (accountingdomain.ListSyncLogResponse, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return accountingdomain.ListSyncLogResponse{}, accountingdomain.ErrNotConnected
	}

	filter := accountingdomain.SyncLogFilter{BusinessID: businessID}

	if value := strings.ToUpper(strings.TrimSpace(req.EntityType)); value != "" {
		entityType := accountingdomain.EntityType(value)
		if !validEntityType(entityType) {
			return accountingdomain.ListSyncLogResponse{}, accountingdomain.ErrInvalidEntityType
		}
		filter.EntityType = entityType
	}
	if value := strings.ToUpper(strings.TrimSpace(req.Outcome)); value != "" {
		outcome := accountingdomain.SyncOutcome(value)
		if outcome != accountingdomain.SyncOutcomeSuccess && outcome != accountingdomain.SyncOutcomeFailed {
			return accountingdomain.ListSyncLogResponse{}, accountingdomain.ErrInvalidSyncOutcome
		}
		filter.Outcome = outcome
	}
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return accountingdomain.ListSyncLogResponse{}, accountingdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return accountingdomain.ListSyncLogResponse{}, accountingdomain.ErrInvalidPageToken
		}
		filter.Cursor = &accountingdomain.SyncLogCursor{ID: id, CreatedAt: decoded.CreatedAt}
	}

	page := req.Pagination.Normalize()
	filter.Limit = page.PageSize

	entries, err := s.repo.ListSyncLogs(ctx, s.db, filter)
	if err != nil {
		return accountingdomain.ListSyncLogResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(entries, page.PageSize, func(entry accountingdomain.SyncLog) string {
		return encodeSyncCursor(entry.ID, entry.CreatedAt)
	})
	if pageInfo.HasMore && len(entries) > page.PageSize {
		entries = entries[:page.PageSize]
	}

	return accountingdomain.ListSyncLogResponse{PageInfo: pageInfo, SyncLogs: entries}, nil
}

func (s *Service) Resync(ctx context.Context) (accountingdomain.ResyncResponse, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return accountingdomain.ResyncResponse{}, accountingdomain.ErrNotConnected
	}
	if !s.managerial(ctx) {
		return accountingdomain.ResyncResponse{}, accountingdomain.ErrPermissionDenied
	}

	conn, err := s.repo.FindConnection(ctx, s.db, businessID)
	if err != nil {
		return accountingdomain.ResyncResponse{}, err
	}
	if !conn.Live() {
		return accountingdomain.ResyncResponse{}, accountingdomain.ErrNotConnected
	}

	failures, err := s.repo.ListUnresolvedFailures(ctx, s.db, businessID, resyncBatch)
	if err != nil {
		return accountingdomain.ResyncResponse{}, err
	}

	var resp accountingdomain.ResyncResponse
	for _, entry := range failures {
		resp.Attempted++
		if err := s.syncEntity(ctx, businessID, entry.EntityType, entry.EntityID); err != nil {
			resp.Failed++
			continue
		}
		resp.Succeeded++
	}
	return resp, nil
}

func (s *Service) syncEntity(ctx context.Context, businessID snowflake.ID, entityType accountingdomain.EntityType, entityID snowflake.ID) error {
	switch entityType {
	case accountingdomain.EntityTypeBooking:
		return s.SyncBooking(ctx, businessID, entityID)
	case accountingdomain.EntityTypePayment:
		return s.SyncPayment(ctx, businessID, entityID)
	case accountingdomain.EntityTypeBarSale:
		return s.SyncBarSale(ctx, businessID, entityID)
	case accountingdomain.EntityTypeExpense:
		return s.SyncExpense(ctx, businessID, entityID)
	case accountingdomain.EntityTypeOtherRevenue:
		return s.SyncOtherRevenue(ctx, businessID, entityID)
	default:
		return accountingdomain.ErrInvalidEntityType
	}
}

// runSync is the shared scaffold around every bridge hook: connection gate,
// per-entity lock, idempotency check, token freshness, then the document
// creation, with the outcome recorded either way.
func (s *Service) runSync(ctx context.Context, businessID snowflake.ID, entityType accountingdomain.EntityType, entityID snowflake.ID, create func(ctx context.Context, auth quickbooks.Auth) (string, error)) error {
	if businessID == 0 || entityID == 0 {
		return accountingdomain.ErrEntityNotFound
	}

	conn, err := s.repo.FindConnection(ctx, s.db, businessID)
	if err != nil {
		return err
	}
	if !conn.Live() {
		// Accounting is optional; businesses without a live connection
		// skip mirroring entirely.
		return nil
	}

	lockToken, acquired := s.lockSync(ctx, businessID, entityType, entityID)
	if !acquired {
		// Another hook is already syncing this entity.
		return nil
	}
	defer s.unlockSync(ctx, businessID, entityType, entityID, lockToken)

	synced, err := s.hasSynced(ctx, businessID, entityType, entityID)
	if err != nil {
		return s.recordFailure(ctx, businessID, entityType, entityID, err)
	}
	if synced {
		return nil
	}

	auth, err := s.ensureFreshToken(ctx, conn)
	if err != nil {
		if errors.Is(err, accountingdomain.ErrTokenRefreshFailed) {
			// Disconnected for this call only. The stored pair is
			// untouched and the next event retries the refresh.
			return nil
		}
		return s.recordFailure(ctx, businessID, entityType, entityID, err)
	}

	externalID, err := create(ctx, auth)
	if err != nil {
		return s.recordFailure(ctx, businessID, entityType, entityID, err)
	}

	s.recordSuccess(ctx, businessID, entityType, entityID, externalID)
	return nil
}

// hasSynced is the uniform idempotency check. Bookings carry their external
// invoice id on the row; every other entity type consults the sync log.
func (s *Service) hasSynced(ctx context.Context, businessID snowflake.ID, entityType accountingdomain.EntityType, entityID snowflake.ID) (bool, error) {
	if entityType == accountingdomain.EntityTypeBooking {
		booking, err := s.bookingRepo.FindByID(ctx, s.db, businessID, entityID)
		if err != nil {
			return false, err
		}
		if booking == nil {
			return false, accountingdomain.ErrEntityNotFound
		}
		return booking.ExternalInvoiceID != nil && strings.TrimSpace(*booking.ExternalInvoiceID) != "", nil
	}
	return s.repo.HasSuccess(ctx, s.db, businessID, entityType, entityID)
}

// ensureFreshToken returns call auth, exchanging the refresh token for a new
// pair when the access token is within a minute of expiry. The stored pair
// is only replaced after a successful exchange.
func (s *Service) ensureFreshToken(ctx context.Context, conn *accountingdomain.Connection) (quickbooks.Auth, error) {
	now := s.clock.Now()
	if conn.AccessTokenExpiresAt.Sub(now) >= refreshWindow {
		return quickbooks.Auth{AccessToken: conn.AccessToken, RealmID: conn.RealmID}, nil
	}

	pair, err := s.client.RefreshToken(ctx, conn.RefreshToken)
	if err != nil {
		s.log.Warn("token refresh failed",
			zap.String("business_id", conn.BusinessID.String()),
			zap.Error(err))
		return quickbooks.Auth{}, accountingdomain.ErrTokenRefreshFailed
	}

	applyTokenPair(conn, pair, now)
	if err := s.repo.UpdateTokens(ctx, s.db, conn); err != nil {
		return quickbooks.Auth{}, err
	}
	return quickbooks.Auth{AccessToken: conn.AccessToken, RealmID: conn.RealmID}, nil
}

func (s *Service) lockSync(ctx context.Context, businessID snowflake.ID, entityType accountingdomain.EntityType, entityID snowflake.ID) (string, bool) {
	token, ok, err := s.limiter.TryLockSync(ctx, businessID.String(), string(entityType), entityID.String())
	if err != nil {
		// Redis trouble must not stall the bridge; run unguarded like an
		// install without redis.
		s.log.Warn("sync lock unavailable", zap.Error(err))
		return "", true
	}
	return token, ok
}

func (s *Service) unlockSync(ctx context.Context, businessID snowflake.ID, entityType accountingdomain.EntityType, entityID snowflake.ID, token string) {
	if token == "" {
		return
	}
	if err := s.limiter.ReleaseSync(ctx, businessID.String(), string(entityType), entityID.String(), token); err != nil {
		s.log.Warn("sync lock release failed", zap.Error(err))
	}
}

func (s *Service) recordSuccess(ctx context.Context, businessID snowflake.ID, entityType accountingdomain.EntityType, entityID snowflake.ID, externalID string) {
	entry := &accountingdomain.SyncLog{
		ID:         s.genID.Generate(),
		BusinessID: businessID,
		EntityType: entityType,
		EntityID:   entityID,
		Outcome:    accountingdomain.SyncOutcomeSuccess,
		CreatedAt:  s.clock.Now(),
	}
	if externalID != "" {
		entry.ExternalID = &externalID
	}
	if err := s.repo.InsertSyncLog(ctx, s.db, entry); err != nil {
		s.log.Error("sync log write failed",
			zap.String("entity_type", string(entityType)),
			zap.String("entity_id", entityID.String()),
			zap.Error(err))
	}
	s.metrics.RecordSync(ctx, string(entityType), string(accountingdomain.SyncOutcomeSuccess))
}

func (s *Service) recordFailure(ctx context.Context, businessID snowflake.ID, entityType accountingdomain.EntityType, entityID snowflake.ID, cause error) error {
	entry := &accountingdomain.SyncLog{
		ID:           s.genID.Generate(),
		BusinessID:   businessID,
		EntityType:   entityType,
		EntityID:     entityID,
		Outcome:      accountingdomain.SyncOutcomeFailed,
		ErrorMessage: truncated(cause),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.InsertSyncLog(ctx, s.db, entry); err != nil {
		s.log.Error("sync log write failed",
			zap.String("entity_type", string(entityType)),
			zap.String("entity_id", entityID.String()),
			zap.Error(err))
	}
	s.metrics.RecordSync(ctx, string(entityType), string(accountingdomain.SyncOutcomeFailed))
	s.log.Warn("accounting sync failed",
		zap.String("entity_type", string(entityType)),
		zap.String("entity_id", entityID.String()),
		zap.Error(cause))
	return cause
}

// createBookingInvoice creates the guest invoice and persists its external
// id on the booking row, which is the booking's idempotency record.
func (s *Service) createBookingInvoice(ctx context.Context, auth quickbooks.Auth, booking *bookingdomain.Booking) (string, error) {
	customer, err := s.ensureCustomer(ctx, auth, booking.GuestName)
	if err != nil {
		return "", err
	}
	item, err := s.ensureItem(ctx, auth, roomRevenueItem)
	if err != nil {
		return "", err
	}

	invoiceID, err := s.client.CreateInvoice(ctx, auth, quickbooks.Invoice{
		CustomerID: customer.ID,
		DocNumber:  booking.FolioNumber,
		TxnDate:    dateString(booking.CheckInDate),
		Lines: []quickbooks.Line{{
			Amount: booking.TotalAmount.InexactFloat64(),
			Description: fmt.Sprintf("Stay %s to %s, booking %s",
				dateString(booking.CheckInDate), dateString(booking.CheckOutDate), booking.ID),
			ItemID: item.ID,
		}},
	})
	if err != nil {
		return "", err
	}

	if err := s.bookingRepo.SetExternalInvoiceID(ctx, s.db, booking.BusinessID, booking.ID, invoiceID); err != nil {
		return "", err
	}
	return invoiceID, nil
}

func (s *Service) ensureCustomer(ctx context.Context, auth quickbooks.Auth, name string) (*quickbooks.EntityRef, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = walkInCustomer
	}
	found, err := s.client.FindCustomer(ctx, auth, name)
	if err != nil {
		return nil, err
	}
	if found != nil {
		return found, nil
	}
	return s.client.CreateCustomer(ctx, auth, name)
}

func (s *Service) ensureVendor(ctx context.Context, auth quickbooks.Auth, name string) (*quickbooks.EntityRef, error) {
	found, err := s.client.FindVendor(ctx, auth, name)
	if err != nil {
		return nil, err
	}
	if found != nil {
		return found, nil
	}
	return s.client.CreateVendor(ctx, auth, name)
}

// ensureItem resolves a sales item by name, creating it together with its
// income account on first use.
func (s *Service) ensureItem(ctx context.Context, auth quickbooks.Auth, name string) (*quickbooks.EntityRef, error) {
	found, err := s.client.FindItem(ctx, auth, name)
	if err != nil {
		return nil, err
	}
	if found != nil {
		return found, nil
	}
	account, err := s.ensureAccount(ctx, auth, name, accountTypeIncome)
	if err != nil {
		return nil, err
	}
	return s.client.CreateItem(ctx, auth, quickbooks.Item{
		Name:            name,
		IncomeAccountID: account.ID,
	})
}

func (s *Service) ensureAccount(ctx context.Context, auth quickbooks.Auth, name, accountType string) (*quickbooks.EntityRef, error) {
	found, err := s.client.FindAccount(ctx, auth, name)
	if err != nil {
		return nil, err
	}
	if found != nil {
		return found, nil
	}
	return s.client.CreateAccount(ctx, auth, quickbooks.Account{
		Name:        name,
		AccountType: accountType,
	})
}

func (s *Service) resolveDepositAccount(ctx context.Context, auth quickbooks.Auth) (*quickbooks.EntityRef, error) {
	for _, name := range depositAccountNames {
		found, err := s.client.FindAccount(ctx, auth, name)
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
	}
	return s.client.CreateAccount(ctx, auth, quickbooks.Account{
		Name:        depositAccountNames[0],
		AccountType: accountTypeOtherCurrentAsset,
	})
}

func (s *Service) loadBooking(ctx context.Context, businessID, id snowflake.ID) (*bookingdomain.Booking, error) {
	booking, err := s.bookingRepo.FindByID(ctx, s.db, businessID, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, accountingdomain.ErrEntityNotFound
	}
	return booking, nil
}

func (s *Service) statusView(ctx context.Context, businessID snowflake.ID, conn *accountingdomain.Connection) (accountingdomain.StatusView, error) {
	var view accountingdomain.StatusView
	if conn != nil {
		view.Connected = conn.Live()
		view.Provider = conn.Provider
		view.RealmID = conn.RealmID
		if conn.Live() {
			since := conn.CreatedAt
			view.Since = &since
		}
	}

	last, err := s.repo.LastSyncLog(ctx, s.db, businessID)
	if err != nil {
		return accountingdomain.StatusView{}, err
	}
	view.LastSync = last
	return view, nil
}

func (s *Service) managerial(ctx context.Context) bool {
	actor, ok := auditcontext.ActorFromContext(ctx)
	if !ok {
		return false
	}
	if actor.Type == auditcontext.ActorTypeSystem {
		return true
	}
	return businessdomain.Managerial(strings.ToUpper(actor.Role))
}

func (s *Service) actorID(ctx context.Context) *snowflake.ID {
	actor, ok := auditcontext.ActorFromContext(ctx)
	if !ok || actor.Type != auditcontext.ActorTypeUser {
		return nil
	}
	if id, err := snowflake.ParseString(strings.TrimSpace(actor.ID)); err == nil && id != 0 {
		return &id
	}
	return nil
}

func applyTokenPair(conn *accountingdomain.Connection, pair quickbooks.TokenPair, now time.Time) {
	conn.AccessToken = pair.AccessToken
	if pair.RefreshToken != "" {
		conn.RefreshToken = pair.RefreshToken
	}
	conn.AccessTokenExpiresAt = now.Add(time.Duration(pair.ExpiresIn) * time.Second)
	if pair.RefreshExpiresIn > 0 {
		expiry := now.Add(time.Duration(pair.RefreshExpiresIn) * time.Second)
		conn.RefreshTokenExpiresAt = &expiry
	}
	conn.UpdatedAt = now
}

func validEntityType(value accountingdomain.EntityType) bool {
	switch value {
	case accountingdomain.EntityTypeBooking, accountingdomain.EntityTypePayment,
		accountingdomain.EntityTypeBarSale, accountingdomain.EntityTypeExpense,
		accountingdomain.EntityTypeOtherRevenue:
		return true
	default:
		return false
	}
}

func saleDescription(sale *revenuedomain.BarSale) string {
	var items []revenuedomain.BarSaleItem
	if err := json.Unmarshal(sale.Items, &items); err != nil || len(items) == 0 {
		return displayName(sale.Outlet) + " sale"
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%dx %s", item.Quantity, item.Name))
	}
	return strings.Join(parts, ", ")
}

// displayName turns an internal snake_case key into the provider-facing
// name ("room_service" becomes "Room Service").
func displayName(raw string) string {
	fields := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(raw)), func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	if len(fields) == 0 {
		return strings.TrimSpace(raw)
	}
	for i, field := range fields {
		fields[i] = strings.ToUpper(field[:1]) + field[1:]
	}
	return strings.Join(fields, " ")
}

func dateString(t time.Time) string {
	return t.Format("2006-01-02")
}

func truncated(err error) *string {
	message := strings.TrimSpace(err.Error())
	if len(message) > maxErrorLength {
		message = message[:maxErrorLength]
	}
	return &message
}

func encodeSyncCursor(id snowflake.ID, createdAt time.Time) string {
	token, err := pagination.EncodeCursor(pagination.Cursor{ID: id.String(), CreatedAt: createdAt})
	if err != nil {
		return ""
	}
	return token
}
