package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	revenuedomain "github.com/smallbiznis/staypoint/internal/revenue/domain"
	"github.com/smallbiznis/staypoint/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() revenuedomain.Repository {
	return &repo{}
}

const barSaleColumns = `id, business_id, outlet, items, total_amount, currency, payment_mode,
	source, dedupe_key, sold_at, recorded_by, worker_id, worker_name, created_at`

// InsertBarSale relies on the partial unique index over (business_id,
// dedupe_key): a replayed POS sale conflicts and inserts nothing.
func (r *repo) InsertBarSale(ctx context.Context, db *gorm.DB, sale *revenuedomain.BarSale) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bar_sales (
			id, business_id, outlet, items, total_amount, currency, payment_mode,
			source, dedupe_key, sold_at, recorded_by, worker_id, worker_name, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (business_id, dedupe_key) WHERE dedupe_key IS NOT NULL DO NOTHING`,
		sale.ID,
		sale.BusinessID,
		sale.Outlet,
		sale.Items,
		sale.TotalAmount,
		sale.Currency,
		sale.PaymentMode,
		sale.Source,
		sale.DedupeKey,
		sale.SoldAt,
		sale.RecordedBy,
		sale.WorkerID,
		sale.WorkerName,
		sale.CreatedAt,
	).Error
}

func (r *repo) FindBarSaleByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*revenuedomain.BarSale, error) {
	var sale revenuedomain.BarSale
	err := db.WithContext(ctx).Raw(
		`SELECT `+barSaleColumns+` FROM bar_sales WHERE business_id = ? AND id = ?`,
		businessID,
		id,
	).Scan(&sale).Error
	if err != nil {
		return nil, err
	}
	if sale.ID == 0 {
		return nil, nil
	}
	return &sale, nil
}

func (r *repo) FindBarSaleByDedupeKey(ctx context.Context, db *gorm.DB, businessID snowflake.ID, dedupeKey string) (*revenuedomain.BarSale, error) {
	var sale revenuedomain.BarSale
	err := db.WithContext(ctx).Raw(
		`SELECT `+barSaleColumns+` FROM bar_sales WHERE business_id = ? AND dedupe_key = ?`,
		businessID,
		dedupeKey,
	).Scan(&sale).Error
	if err != nil {
		return nil, err
	}
	if sale.ID == 0 {
		return nil, nil
	}
	return &sale, nil
}

func (r *repo) ListBarSales(ctx context.Context, db *gorm.DB, filter revenuedomain.RangeFilter) ([]revenuedomain.BarSale, error) {
	var sales []revenuedomain.BarSale
	stmt := rangeQuery(ctx, db, &revenuedomain.BarSale{}, "sold_at", filter)
	if err := stmt.Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *repo) InsertExpense(ctx context.Context, db *gorm.DB, expense *revenuedomain.Expense) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO expenses (
			id, business_id, category, description, vendor_name, amount, currency,
			incurred_at, recorded_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID,
		expense.BusinessID,
		expense.Category,
		expense.Description,
		expense.VendorName,
		expense.Amount,
		expense.Currency,
		expense.IncurredAt,
		expense.RecordedBy,
		expense.CreatedAt,
	).Error
}

func (r *repo) FindExpenseByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*revenuedomain.Expense, error) {
	var expense revenuedomain.Expense
	err := db.WithContext(ctx).Raw(
		`SELECT id, business_id, category, description, vendor_name, amount, currency,
			incurred_at, recorded_by, created_at
		 FROM expenses WHERE business_id = ? AND id = ?`,
		businessID,
		id,
	).Scan(&expense).Error
	if err != nil {
		return nil, err
	}
	if expense.ID == 0 {
		return nil, nil
	}
	return &expense, nil
}

func (r *repo) ListExpenses(ctx context.Context, db *gorm.DB, filter revenuedomain.RangeFilter) ([]revenuedomain.Expense, error) {
	var expenses []revenuedomain.Expense
	stmt := rangeQuery(ctx, db, &revenuedomain.Expense{}, "incurred_at", filter)
	if err := stmt.Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *repo) InsertOtherRevenue(ctx context.Context, db *gorm.DB, revenue *revenuedomain.OtherRevenue) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO other_revenues (
			id, business_id, booking_id, category, description, amount, currency,
			occurred_at, recorded_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		revenue.ID,
		revenue.BusinessID,
		revenue.BookingID,
		revenue.Category,
		revenue.Description,
		revenue.Amount,
		revenue.Currency,
		revenue.OccurredAt,
		revenue.RecordedBy,
		revenue.CreatedAt,
	).Error
}

func (r *repo) FindOtherRevenueByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*revenuedomain.OtherRevenue, error) {
	var revenue revenuedomain.OtherRevenue
	err := db.WithContext(ctx).Raw(
		`SELECT id, business_id, booking_id, category, description, amount, currency,
			occurred_at, recorded_by, created_at
		 FROM other_revenues WHERE business_id = ? AND id = ?`,
		businessID,
		id,
	).Scan(&revenue).Error
	if err != nil {
		return nil, err
	}
	if revenue.ID == 0 {
		return nil, nil
	}
	return &revenue, nil
}

func (r *repo) ListOtherRevenues(ctx context.Context, db *gorm.DB, filter revenuedomain.RangeFilter) ([]revenuedomain.OtherRevenue, error) {
	var revenues []revenuedomain.OtherRevenue
	stmt := rangeQuery(ctx, db, &revenuedomain.OtherRevenue{}, "occurred_at", filter)
	if err := stmt.Find(&revenues).Error; err != nil {
		return nil, err
	}
	return revenues, nil
}

func (r *repo) SumForBooking(ctx context.Context, db *gorm.DB, businessID, bookingID snowflake.ID) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) AS total
		 FROM other_revenues
		 WHERE business_id = ? AND booking_id = ?`,
		businessID,
		bookingID,
	).Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

// rangeQuery applies the shared listing shape: tenant scope, optional bounds
// on the domain's own time column, cursor over created_at.
func rangeQuery(ctx context.Context, db *gorm.DB, model any, timeColumn string, filter revenuedomain.RangeFilter) *gorm.DB {
	stmt := db.WithContext(ctx).Model(model).
		Where("business_id = ?", filter.BusinessID)

	conds := make([]option.Condition, 0, 2)
	if filter.From != nil {
		conds = append(conds, option.Condition{Field: timeColumn, Operator: option.GTE, Value: *filter.From})
	}
	if filter.To != nil {
		conds = append(conds, option.Condition{Field: timeColumn, Operator: option.LTE, Value: *filter.To})
	}
	stmt = option.ApplyOperator(conds...).Apply(stmt)

	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	return stmt
}
