package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountingdomain "github.com/smallbiznis/staypoint/internal/accounting/domain"
	"github.com/smallbiznis/staypoint/internal/auditcontext"
	"github.com/smallbiznis/staypoint/internal/bizcontext"
	bookingdomain "github.com/smallbiznis/staypoint/internal/booking/domain"
	"github.com/smallbiznis/staypoint/internal/clock"
	"github.com/smallbiznis/staypoint/internal/config"
	obsmetrics "github.com/smallbiznis/staypoint/internal/observability/metrics"
	revenuedomain "github.com/smallbiznis/staypoint/internal/revenue/domain"
	"github.com/smallbiznis/staypoint/internal/tasks"
	"github.com/smallbiznis/staypoint/pkg/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	cfg   *config.FrontdeskConfigHolder

	repo        revenuedomain.Repository
	bookingRepo bookingdomain.Repository

	tasks   *tasks.Runner
	bridge  accountingdomain.Service
	metrics *obsmetrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config *config.FrontdeskConfigHolder

	Repo        revenuedomain.Repository
	BookingRepo bookingdomain.Repository

	Tasks   *tasks.Runner            `optional:"true"`
	Bridge  accountingdomain.Service `optional:"true"`
	Metrics *obsmetrics.Metrics      `optional:"true"`
}

func NewService(p ServiceParam) revenuedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("revenue.service"),

		genID: p.GenID,
		clock: p.Clock,
		cfg:   p.Config,

		repo:        p.Repo,
		bookingRepo: p.BookingRepo,

		tasks:   p.Tasks,
		bridge:  p.Bridge,
		metrics: p.Metrics,
	}
}

func (s *Service) CreateBarSale(ctx context.Context, req revenuedomain.CreateBarSaleRequest) (revenuedomain.BarSale, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return revenuedomain.BarSale{}, revenuedomain.ErrInvalidBarSale
	}

	source := strings.ToLower(strings.TrimSpace(req.Source))
	if source == "" {
		source = revenuedomain.SourceManual
	}
	if source != revenuedomain.SourceManual && source != revenuedomain.SourcePOS {
		return revenuedomain.BarSale{}, revenuedomain.ErrInvalidSource
	}

	cfg := s.cfg.Get()
	mode := strings.ToUpper(strings.TrimSpace(req.PaymentMode))
	if !cfg.AllowsPaymentMode(mode) {
		return revenuedomain.BarSale{}, revenuedomain.ErrInvalidPaymentMode
	}

	itemTotal := decimal.Zero
	for _, item := range req.Items {
		if strings.TrimSpace(item.Name) == "" || item.Quantity <= 0 || item.UnitPrice.IsNegative() {
			return revenuedomain.BarSale{}, revenuedomain.ErrInvalidItems
		}
		itemTotal = itemTotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	total := req.TotalAmount
	if total.IsZero() {
		total = itemTotal
	}
	if !total.IsPositive() {
		return revenuedomain.BarSale{}, revenuedomain.ErrInvalidAmount
	}

	items, err := json.Marshal(req.Items)
	if err != nil {
		return revenuedomain.BarSale{}, revenuedomain.ErrInvalidItems
	}

	outlet := strings.TrimSpace(req.Outlet)
	if outlet == "" {
		outlet = "bar"
	}

	now := s.clock.Now()
	soldAt := now
	if req.SoldAt != nil {
		soldAt = *req.SoldAt
	}

	recordedBy, workerID, workerName := s.attribution(ctx)

	sale := revenuedomain.BarSale{
		ID:          s.genID.Generate(),
		BusinessID:  businessID,
		Outlet:      outlet,
		Items:       datatypes.JSON(items),
		TotalAmount: total,
		Currency:    cfg.Currency,
		PaymentMode: mode,
		Source:      source,
		DedupeKey:   normalizeKey(req.DedupeKey),
		SoldAt:      soldAt,
		RecordedBy:  recordedBy,
		WorkerID:    workerID,
		WorkerName:  workerName,
		CreatedAt:   now,
	}

	if err := s.repo.InsertBarSale(ctx, s.db, &sale); err != nil {
		return revenuedomain.BarSale{}, err
	}

	// A deduped replay inserts nothing; the first delivery's row wins and
	// goes back to the caller unchanged.
	if sale.DedupeKey != nil {
		existing, err := s.repo.FindBarSaleByDedupeKey(ctx, s.db, businessID, *sale.DedupeKey)
		if err != nil {
			return revenuedomain.BarSale{}, err
		}
		if existing != nil && existing.ID != sale.ID {
			return *existing, nil
		}
	}

	s.metrics.RecordRevenueEntry(ctx, "bar_sale", source)
	s.enqueueSync(ctx, "accounting.sync_bar_sale", func(c context.Context) error {
		return s.bridge.SyncBarSale(c, businessID, sale.ID)
	})

	return sale, nil
}

func (s *Service) ListBarSales(ctx context.Context, req revenuedomain.ListRevenueRequest) (revenuedomain.ListBarSaleResponse, error) {
	filter, page, err := s.rangeFilter(ctx, req, revenuedomain.ErrInvalidBarSale)
	if err != nil {
		return revenuedomain.ListBarSaleResponse{}, err
	}

	items, err := s.repo.ListBarSales(ctx, s.db, filter)
	if err != nil {
		return revenuedomain.ListBarSaleResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, page.PageSize, func(item revenuedomain.BarSale) string {
		return encodeRevenueCursor(item.ID, item.CreatedAt)
	})
	if pageInfo.HasMore && len(items) > page.PageSize {
		items = items[:page.PageSize]
	}

	return revenuedomain.ListBarSaleResponse{PageInfo: pageInfo, BarSales: items}, nil
}

func (s *Service) CreateExpense(ctx context.Context, req revenuedomain.CreateExpenseRequest) (revenuedomain.Expense, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return revenuedomain.Expense{}, revenuedomain.ErrInvalidExpense
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		return revenuedomain.Expense{}, revenuedomain.ErrInvalidCategory
	}
	if !req.Amount.IsPositive() {
		return revenuedomain.Expense{}, revenuedomain.ErrInvalidAmount
	}

	now := s.clock.Now()
	incurredAt := now
	if req.IncurredAt != nil {
		incurredAt = *req.IncurredAt
	}

	recordedBy, _, _ := s.attribution(ctx)

	expense := revenuedomain.Expense{
		ID:          s.genID.Generate(),
		BusinessID:  businessID,
		Category:    category,
		Description: normalizeKey(req.Description),
		VendorName:  normalizeKey(req.VendorName),
		Amount:      req.Amount,
		Currency:    s.cfg.Get().Currency,
		IncurredAt:  incurredAt,
		RecordedBy:  recordedBy,
		CreatedAt:   now,
	}

	if err := s.repo.InsertExpense(ctx, s.db, &expense); err != nil {
		return revenuedomain.Expense{}, err
	}

	s.metrics.RecordRevenueEntry(ctx, "expense", revenuedomain.SourceManual)
	s.enqueueSync(ctx, "accounting.sync_expense", func(c context.Context) error {
		return s.bridge.SyncExpense(c, businessID, expense.ID)
	})

	return expense, nil
}

func (s *Service) ListExpenses(ctx context.Context, req revenuedomain.ListRevenueRequest) (revenuedomain.ListExpenseResponse, error) {
	filter, page, err := s.rangeFilter(ctx, req, revenuedomain.ErrInvalidExpense)
	if err != nil {
		return revenuedomain.ListExpenseResponse{}, err
	}

	items, err := s.repo.ListExpenses(ctx, s.db, filter)
	if err != nil {
		return revenuedomain.ListExpenseResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, page.PageSize, func(item revenuedomain.Expense) string {
		return encodeRevenueCursor(item.ID, item.CreatedAt)
	})
	if pageInfo.HasMore && len(items) > page.PageSize {
		items = items[:page.PageSize]
	}

	return revenuedomain.ListExpenseResponse{PageInfo: pageInfo, Expenses: items}, nil
}

func (s *Service) CreateOtherRevenue(ctx context.Context, req revenuedomain.CreateOtherRevenueRequest) (revenuedomain.OtherRevenue, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return revenuedomain.OtherRevenue{}, revenuedomain.ErrInvalidOtherRevenue
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		return revenuedomain.OtherRevenue{}, revenuedomain.ErrInvalidCategory
	}
	if !req.Amount.IsPositive() {
		return revenuedomain.OtherRevenue{}, revenuedomain.ErrInvalidAmount
	}

	var bookingID *snowflake.ID
	if req.BookingID != nil && strings.TrimSpace(*req.BookingID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(*req.BookingID))
		if err != nil || id == 0 {
			return revenuedomain.OtherRevenue{}, bookingdomain.ErrInvalidBooking
		}
		booking, err := s.bookingRepo.FindByID(ctx, s.db, businessID, id)
		if err != nil {
			return revenuedomain.OtherRevenue{}, err
		}
		if booking == nil {
			return revenuedomain.OtherRevenue{}, bookingdomain.ErrBookingNotFound
		}
		bookingID = &id
	}

	now := s.clock.Now()
	occurredAt := now
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	recordedBy, _, _ := s.attribution(ctx)

	revenue := revenuedomain.OtherRevenue{
		ID:          s.genID.Generate(),
		BusinessID:  businessID,
		BookingID:   bookingID,
		Category:    category,
		Description: normalizeKey(req.Description),
		Amount:      req.Amount,
		Currency:    s.cfg.Get().Currency,
		OccurredAt:  occurredAt,
		RecordedBy:  recordedBy,
		CreatedAt:   now,
	}

	if err := s.repo.InsertOtherRevenue(ctx, s.db, &revenue); err != nil {
		return revenuedomain.OtherRevenue{}, err
	}

	s.metrics.RecordRevenueEntry(ctx, "other_revenue", revenuedomain.SourceManual)
	s.enqueueSync(ctx, "accounting.sync_other_revenue", func(c context.Context) error {
		return s.bridge.SyncOtherRevenue(c, businessID, revenue.ID)
	})

	return revenue, nil
}

func (s *Service) ListOtherRevenues(ctx context.Context, req revenuedomain.ListRevenueRequest) (revenuedomain.ListOtherRevenueResponse, error) {
	filter, page, err := s.rangeFilter(ctx, req, revenuedomain.ErrInvalidOtherRevenue)
	if err != nil {
		return revenuedomain.ListOtherRevenueResponse{}, err
	}

	items, err := s.repo.ListOtherRevenues(ctx, s.db, filter)
	if err != nil {
		return revenuedomain.ListOtherRevenueResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, page.PageSize, func(item revenuedomain.OtherRevenue) string {
		return encodeRevenueCursor(item.ID, item.CreatedAt)
	})
	if pageInfo.HasMore && len(items) > page.PageSize {
		items = items[:page.PageSize]
	}

	return revenuedomain.ListOtherRevenueResponse{PageInfo: pageInfo, OtherRevenues: items}, nil
}

func (s *Service) rangeFilter(ctx context.Context, req revenuedomain.ListRevenueRequest, invalidErr error) (revenuedomain.RangeFilter, pagination.Pagination, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return revenuedomain.RangeFilter{}, pagination.Pagination{}, invalidErr
	}

	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		return revenuedomain.RangeFilter{}, pagination.Pagination{}, revenuedomain.ErrInvalidDateRange
	}

	filter := revenuedomain.RangeFilter{
		BusinessID: businessID,
		From:       req.From,
		To:         req.To,
	}

	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return revenuedomain.RangeFilter{}, pagination.Pagination{}, revenuedomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return revenuedomain.RangeFilter{}, pagination.Pagination{}, revenuedomain.ErrInvalidPageToken
		}
		filter.Cursor = &revenuedomain.RevenueCursor{ID: id, CreatedAt: decoded.CreatedAt}
	}

	page := req.Pagination.Normalize()
	filter.Limit = page.PageSize
	return filter, page, nil
}

func (s *Service) attribution(ctx context.Context) (recordedBy, workerID *snowflake.ID, workerName *string) {
	actor, ok := auditcontext.ActorFromContext(ctx)
	if !ok {
		return nil, nil, nil
	}
	if actor.Type == auditcontext.ActorTypeUser {
		if id, err := snowflake.ParseString(strings.TrimSpace(actor.ID)); err == nil && id != 0 {
			recordedBy = &id
		}
	}
	if id, err := snowflake.ParseString(strings.TrimSpace(actor.WorkerID)); err == nil && id != 0 {
		workerID = &id
	}
	if name := strings.TrimSpace(actor.WorkerName); name != "" {
		workerName = &name
	}
	return recordedBy, workerID, workerName
}

func (s *Service) enqueueSync(ctx context.Context, name string, fn func(ctx context.Context) error) {
	if s.tasks == nil || s.bridge == nil {
		return
	}
	s.tasks.Go(ctx, name, fn)
}

func normalizeKey(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func encodeRevenueCursor(id snowflake.ID, createdAt time.Time) string {
	token, err := pagination.EncodeCursor(pagination.Cursor{
		ID:        id.String(),
		CreatedAt: createdAt,
	})
	if err != nil {
		return ""
	}
	return token
}
