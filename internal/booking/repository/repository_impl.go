package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/staypoint/internal/booking/domain"
	"github.com/smallbiznis/staypoint/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() bookingdomain.Repository {
	return &repo{}
}

const bookingColumns = `id, business_id, room_id, folio_number, guest_name, guest_phone, origin, status,
	check_in_date, check_out_date, actual_check_in, actual_check_out, nights,
	room_rate, room_charge, total_amount, currency, payment_mode, notes,
	created_by, worker_id, worker_name, external_invoice_id, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, booking *bookingdomain.Booking) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bookings (
			id, business_id, room_id, folio_number, guest_name, guest_phone, origin, status,
			check_in_date, check_out_date, actual_check_in, actual_check_out, nights,
			room_rate, room_charge, total_amount, currency, payment_mode, notes,
			created_by, worker_id, worker_name, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID,
		booking.BusinessID,
		booking.RoomID,
		booking.FolioNumber,
		booking.GuestName,
		booking.GuestPhone,
		booking.Origin,
		booking.Status,
		booking.CheckInDate,
		booking.CheckOutDate,
		booking.ActualCheckIn,
		booking.ActualCheckOut,
		booking.Nights,
		booking.RoomRate,
		booking.RoomCharge,
		booking.TotalAmount,
		booking.Currency,
		booking.PaymentMode,
		booking.Notes,
		booking.CreatedBy,
		booking.WorkerID,
		booking.WorkerName,
		booking.CreatedAt,
		booking.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*bookingdomain.Booking, error) {
	var booking bookingdomain.Booking
	err := db.WithContext(ctx).Raw(
		`SELECT `+bookingColumns+` FROM bookings WHERE business_id = ? AND id = ?`,
		businessID,
		id,
	).Scan(&booking).Error
	if err != nil {
		return nil, err
	}
	if booking.ID == 0 {
		return nil, nil
	}
	return &booking, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*bookingdomain.Booking, error) {
	var booking bookingdomain.Booking
	err := db.WithContext(ctx).Raw(
		`SELECT `+bookingColumns+` FROM bookings WHERE business_id = ? AND id = ? FOR UPDATE`,
		businessID,
		id,
	).Scan(&booking).Error
	if err != nil {
		return nil, err
	}
	if booking.ID == 0 {
		return nil, nil
	}
	return &booking, nil
}

func (r *repo) UpdateLifecycle(ctx context.Context, db *gorm.DB, booking *bookingdomain.Booking) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bookings
		 SET status = ?, room_id = ?, actual_check_in = ?, actual_check_out = ?, updated_at = ?
		 WHERE business_id = ? AND id = ?`,
		booking.Status,
		booking.RoomID,
		booking.ActualCheckIn,
		booking.ActualCheckOut,
		booking.UpdatedAt,
		booking.BusinessID,
		booking.ID,
	).Error
}

func (r *repo) UpdateStay(ctx context.Context, db *gorm.DB, booking *bookingdomain.Booking) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bookings
		 SET check_out_date = ?, nights = ?, room_charge = ?, total_amount = ?, updated_at = ?
		 WHERE business_id = ? AND id = ?`,
		booking.CheckOutDate,
		booking.Nights,
		booking.RoomCharge,
		booking.TotalAmount,
		booking.UpdatedAt,
		booking.BusinessID,
		booking.ID,
	).Error
}

func (r *repo) SetExternalInvoiceID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID, externalID string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bookings SET external_invoice_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE business_id = ? AND id = ?`,
		externalID,
		businessID,
		id,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter bookingdomain.ListFilter) ([]bookingdomain.Booking, error) {
	var bookings []bookingdomain.Booking
	stmt := db.WithContext(ctx).Model(&bookingdomain.Booking{}).
		Where("business_id = ?", filter.BusinessID)

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.RoomID != 0 {
		stmt = stmt.Where("room_id = ?", filter.RoomID)
	}

	conds := make([]option.Condition, 0, 2)
	if filter.FromDate != nil {
		conds = append(conds, option.Condition{Field: "check_in_date", Operator: option.GTE, Value: dateOnly(*filter.FromDate)})
	}
	if filter.ToDate != nil {
		conds = append(conds, option.Condition{Field: "check_in_date", Operator: option.LTE, Value: dateOnly(*filter.ToDate)})
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

	if err := stmt.Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
