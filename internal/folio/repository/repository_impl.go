package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	foliodomain "github.com/smallbiznis/staypoint/internal/folio/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() foliodomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *foliodomain.FolioPayment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO folio_payments (
			id, business_id, booking_id, amount, mode, reference, recorded_by, worker_id, worker_name, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.BusinessID,
		payment.BookingID,
		payment.Amount,
		payment.Mode,
		payment.Reference,
		payment.RecordedBy,
		payment.WorkerID,
		payment.WorkerName,
		payment.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*foliodomain.FolioPayment, error) {
	var payment foliodomain.FolioPayment
	err := db.WithContext(ctx).Raw(
		`SELECT id, business_id, booking_id, amount, mode, reference, recorded_by, worker_id, worker_name, created_at
		 FROM folio_payments
		 WHERE business_id = ? AND id = ?`,
		businessID,
		id,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) ListByBooking(ctx context.Context, db *gorm.DB, businessID, bookingID snowflake.ID) ([]foliodomain.FolioPayment, error) {
	var payments []foliodomain.FolioPayment
	err := db.WithContext(ctx).Raw(
		`SELECT id, business_id, booking_id, amount, mode, reference, recorded_by, worker_id, worker_name, created_at
		 FROM folio_payments
		 WHERE business_id = ? AND booking_id = ?
		 ORDER BY created_at DESC, id DESC`,
		businessID,
		bookingID,
	).Scan(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) SumByBooking(ctx context.Context, db *gorm.DB, businessID, bookingID snowflake.ID) (decimal.Decimal, error) {
	var row struct {
		Paid decimal.Decimal `gorm:"column:paid"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) AS paid
		 FROM folio_payments
		 WHERE business_id = ? AND booking_id = ?`,
		businessID,
		bookingID,
	).Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Paid, nil
}

func (r *repo) NextSequence(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (int64, error) {
	var row struct {
		Allocated int64 `gorm:"column:allocated"`
	}
	err := db.WithContext(ctx).Raw(
		`INSERT INTO folio_sequences (business_id, next_number, updated_at)
		 VALUES (?, 2, ?)
		 ON CONFLICT (business_id)
		 DO UPDATE SET next_number = folio_sequences.next_number + 1, updated_at = ?
		 RETURNING next_number - 1 AS allocated`,
		businessID,
		time.Now().UTC(),
		time.Now().UTC(),
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Allocated, nil
}
