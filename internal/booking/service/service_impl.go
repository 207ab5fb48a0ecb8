package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountingdomain "github.com/smallbiznis/staypoint/internal/accounting/domain"
	"github.com/smallbiznis/staypoint/internal/auditcontext"
	"github.com/smallbiznis/staypoint/internal/bizcontext"
	bookingdomain "github.com/smallbiznis/staypoint/internal/booking/domain"
	businessdomain "github.com/smallbiznis/staypoint/internal/business/domain"
	"github.com/smallbiznis/staypoint/internal/clock"
	"github.com/smallbiznis/staypoint/internal/config"
	foliodomain "github.com/smallbiznis/staypoint/internal/folio/domain"
	foliofmt "github.com/smallbiznis/staypoint/internal/folio/format"
	obsmetrics "github.com/smallbiznis/staypoint/internal/observability/metrics"
	revenuedomain "github.com/smallbiznis/staypoint/internal/revenue/domain"
	roomdomain "github.com/smallbiznis/staypoint/internal/room/domain"
	"github.com/smallbiznis/staypoint/internal/tasks"
	"github.com/smallbiznis/staypoint/pkg/pagination"
	"github.com/smallbiznis/staypoint/pkg/rls"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	cfg   *config.FrontdeskConfigHolder

	repo        bookingdomain.Repository
	roomRepo    roomdomain.Repository
	folioRepo   foliodomain.Repository
	revenueRepo revenuedomain.Repository

	roomSvc roomdomain.Service
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

	Repo        bookingdomain.Repository
	RoomRepo    roomdomain.Repository
	FolioRepo   foliodomain.Repository
	RevenueRepo revenuedomain.Repository

	RoomSvc roomdomain.Service       `optional:"true"`
	Tasks   *tasks.Runner            `optional:"true"`
	Bridge  accountingdomain.Service `optional:"true"`
	Metrics *obsmetrics.Metrics      `optional:"true"`
}

func NewService(p ServiceParam) bookingdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("booking.service"),

		genID: p.GenID,
		clock: p.Clock,
		cfg:   p.Config,

		repo:        p.Repo,
		roomRepo:    p.RoomRepo,
		folioRepo:   p.FolioRepo,
		revenueRepo: p.RevenueRepo,

		roomSvc: p.RoomSvc,
		tasks:   p.Tasks,
		bridge:  p.Bridge,
		metrics: p.Metrics,
	}
}

func (s *Service) CreateBooking(ctx context.Context, req bookingdomain.CreateBookingRequest) (bookingdomain.BookingWithFolio, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return bookingdomain.BookingWithFolio{}, bookingdomain.ErrInvalidBooking
	}

	roomID, err := s.parseID(req.RoomID, roomdomain.ErrInvalidRoom)
	if err != nil {
		return bookingdomain.BookingWithFolio{}, err
	}

	guestName := strings.TrimSpace(req.GuestName)
	if guestName == "" {
		return bookingdomain.BookingWithFolio{}, bookingdomain.ErrInvalidGuestName
	}

	checkIn, err := parseStayDate(req.CheckInDate)
	if err != nil {
		return bookingdomain.BookingWithFolio{}, err
	}
	checkOut, err := parseStayDate(req.CheckOutDate)
	if err != nil {
		return bookingdomain.BookingWithFolio{}, err
	}
	if !checkOut.After(checkIn) {
		return bookingdomain.BookingWithFolio{}, bookingdomain.ErrInvalidStayDates
	}

	nights := req.Nights
	if nights <= 0 {
		nights = nightsBetween(checkIn, checkOut)
	}
	if nights < 1 {
		return bookingdomain.BookingWithFolio{}, bookingdomain.ErrInvalidStayDates
	}

	origin, err := normalizeOrigin(req.Origin)
	if err != nil {
		return bookingdomain.BookingWithFolio{}, err
	}

	cfg := s.cfg.Get()

	if req.TotalOverride != nil {
		if !s.managerial(ctx) {
			return bookingdomain.BookingWithFolio{}, bookingdomain.ErrRateOverrideDenied
		}
		if req.TotalOverride.IsNegative() {
			return bookingdomain.BookingWithFolio{}, foliodomain.ErrInvalidAmount
		}
	}

	var paymentMode string
	if req.PaymentMode != nil {
		paymentMode = strings.ToUpper(strings.TrimSpace(*req.PaymentMode))
		if !cfg.AllowsPaymentMode(paymentMode) {
			return bookingdomain.BookingWithFolio{}, foliodomain.ErrInvalidPaymentMode
		}
	}
	if req.InitialPayment != nil && paymentMode == "" {
		return bookingdomain.BookingWithFolio{}, foliodomain.ErrInvalidPaymentMode
	}

	createdBy, workerID, workerName := s.attribution(ctx)
	now := s.clock.Now()

	var booking bookingdomain.Booking
	var payments []foliodomain.FolioPayment

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, int64(businessID)); err != nil {
			return err
		}

		room, err := s.roomRepo.FindWithRateForUpdate(ctx, tx, businessID, roomID)
		if err != nil {
			return err
		}
		if room == nil {
			return roomdomain.ErrRoomNotFound
		}
		if room.Status != roomdomain.RoomStatusVacant {
			return roomdomain.ErrRoomNotVacant
		}

		roomCharge := room.NightlyRate.Mul(decimal.NewFromInt(int64(nights)))
		total := roomCharge
		if req.TotalOverride != nil {
			total = *req.TotalOverride
		}

		// Pay-at-booking policy: a supplied mode without an explicit amount
		// settles the full total; an explicit amount is a partial payment.
		var initialAmount decimal.Decimal
		appendPayment := false
		switch {
		case req.InitialPayment != nil:
			initialAmount = *req.InitialPayment
			appendPayment = true
		case paymentMode != "" && total.IsPositive():
			initialAmount = total
			appendPayment = true
		}
		if appendPayment {
			if err := foliodomain.ValidateAppend(total, decimal.Zero, initialAmount); err != nil {
				return err
			}
		}

		seq, err := s.folioRepo.NextSequence(ctx, tx, businessID)
		if err != nil {
			return err
		}
		folioNumber, err := foliofmt.FormatFolioNumber(cfg.FolioNumberTemplate, now, seq)
		if err != nil {
			return err
		}

		status := bookingdomain.BookingStatusConfirmed
		roomStatus := roomdomain.RoomStatusReserved
		var actualCheckIn *time.Time
		if req.ImmediateCheckIn {
			status = bookingdomain.BookingStatusCheckedIn
			roomStatus = roomdomain.RoomStatusOccupied
			arrived := now
			actualCheckIn = &arrived
		}

		booking = bookingdomain.Booking{
			ID:            s.genID.Generate(),
			BusinessID:    businessID,
			RoomID:        room.ID,
			FolioNumber:   folioNumber,
			GuestName:     guestName,
			GuestPhone:    normalizePointer(req.GuestPhone),
			Origin:        origin,
			Status:        status,
			CheckInDate:   checkIn,
			CheckOutDate:  checkOut,
			ActualCheckIn: actualCheckIn,
			Nights:        nights,
			RoomRate:      room.NightlyRate,
			RoomCharge:    roomCharge,
			TotalAmount:   total,
			Currency:      cfg.Currency,
			Notes:         normalizePointer(req.Notes),
			CreatedBy:     createdBy,
			WorkerID:      workerID,
			WorkerName:    workerName,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if paymentMode != "" {
			booking.PaymentMode = &paymentMode
		}

		if err := s.repo.Insert(ctx, tx, &booking); err != nil {
			return err
		}
		if err := s.roomRepo.UpdateStatus(ctx, tx, businessID, room.ID, roomStatus); err != nil {
			return err
		}

		if appendPayment {
			payment := foliodomain.FolioPayment{
				ID:         s.genID.Generate(),
				BusinessID: businessID,
				BookingID:  booking.ID,
				Amount:     initialAmount,
				Mode:       paymentMode,
				RecordedBy: createdBy,
				WorkerID:   workerID,
				WorkerName: workerName,
				CreatedAt:  now,
			}
			if err := s.folioRepo.Insert(ctx, tx, &payment); err != nil {
				return err
			}
			payments = append(payments, payment)
		}

		return nil
	})
	if err != nil {
		return bookingdomain.BookingWithFolio{}, err
	}

	s.metrics.RecordBookingTransition(ctx, "create")
	s.invalidateRooms(businessID)
	s.enqueueSync(ctx, "accounting.sync_booking", func(c context.Context) error {
		return s.bridge.SyncBooking(c, businessID, booking.ID)
	})
	if len(payments) > 0 {
		s.metrics.RecordLedgerEntry(ctx, paymentMode)
		paymentID := payments[0].ID
		s.enqueueSync(ctx, "accounting.sync_payment", func(c context.Context) error {
			return s.bridge.SyncPayment(c, businessID, paymentID)
		})
	}

	return bookingdomain.BookingWithFolio{
		Booking:  booking,
		Folio:    foliodomain.Summarize(booking.TotalAmount, payments),
		Payments: payments,
	}, nil
}

func (s *Service) GetBooking(ctx context.Context, bookingID string) (bookingdomain.BookingWithFolio, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return bookingdomain.BookingWithFolio{}, bookingdomain.ErrInvalidBooking
	}

	id, err := s.parseID(bookingID, bookingdomain.ErrInvalidBooking)
	if err != nil {
		return bookingdomain.BookingWithFolio{}, err
	}

	booking, err := s.repo.FindByID(ctx, s.db, businessID, id)
	if err != nil {
		return bookingdomain.BookingWithFolio{}, err
	}
	if booking == nil {
		return bookingdomain.BookingWithFolio{}, bookingdomain.ErrBookingNotFound
	}

	payments, err := s.folioRepo.ListByBooking(ctx, s.db, businessID, booking.ID)
	if err != nil {
		return bookingdomain.BookingWithFolio{}, err
	}

	return bookingdomain.BookingWithFolio{
		Booking:  *booking,
		Folio:    foliodomain.Summarize(booking.TotalAmount, payments),
		Payments: payments,
	}, nil
}

func (s *Service) ListBookings(ctx context.Context, req bookingdomain.ListBookingRequest) (bookingdomain.ListBookingResponse, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return bookingdomain.ListBookingResponse{}, bookingdomain.ErrInvalidBooking
	}

	filter := bookingdomain.ListFilter{BusinessID: businessID}

	if status := strings.ToUpper(strings.TrimSpace(req.Status)); status != "" {
		if !bookingdomain.ValidStatus(bookingdomain.BookingStatus(status)) {
			return bookingdomain.ListBookingResponse{}, bookingdomain.ErrInvalidStatus
		}
		filter.Status = bookingdomain.BookingStatus(status)
	}
	if strings.TrimSpace(req.RoomID) != "" {
		roomID, err := s.parseID(req.RoomID, roomdomain.ErrInvalidRoom)
		if err != nil {
			return bookingdomain.ListBookingResponse{}, err
		}
		filter.RoomID = roomID
	}
	if strings.TrimSpace(req.FromDate) != "" {
		from, err := parseStayDate(req.FromDate)
		if err != nil {
			return bookingdomain.ListBookingResponse{}, err
		}
		filter.FromDate = &from
	}
	if strings.TrimSpace(req.ToDate) != "" {
		to, err := parseStayDate(req.ToDate)
		if err != nil {
			return bookingdomain.ListBookingResponse{}, err
		}
		filter.ToDate = &to
	}
	if filter.FromDate != nil && filter.ToDate != nil && filter.FromDate.After(*filter.ToDate) {
		return bookingdomain.ListBookingResponse{}, bookingdomain.ErrInvalidDateRange
	}

	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return bookingdomain.ListBookingResponse{}, bookingdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return bookingdomain.ListBookingResponse{}, bookingdomain.ErrInvalidPageToken
		}
		filter.Cursor = &bookingdomain.BookingCursor{ID: id, CreatedAt: decoded.CreatedAt}
	}

	page := req.Pagination.Normalize()
	filter.Limit = page.PageSize

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return bookingdomain.ListBookingResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, page.PageSize, func(item bookingdomain.Booking) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt,
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore && len(items) > page.PageSize {
		items = items[:page.PageSize]
	}

	return bookingdomain.ListBookingResponse{
		PageInfo: pageInfo,
		Bookings: items,
	}, nil
}

func (s *Service) AddPayment(ctx context.Context, req bookingdomain.AddPaymentRequest) (bookingdomain.BookingWithFolio, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return bookingdomain.BookingWithFolio{}, bookingdomain.ErrInvalidBooking
	}

	id, err := s.parseID(req.BookingID, bookingdomain.ErrInvalidBooking)
	if err != nil {
		return bookingdomain.BookingWithFolio{}, err
	}

	mode := strings.ToUpper(strings.TrimSpace(req.Mode))
	if !s.cfg.Get().AllowsPaymentMode(mode) {
		return bookingdomain.BookingWithFolio{}, foliodomain.ErrInvalidPaymentMode
	}

	createdBy, workerID, workerName := s.attribution(ctx)
	now := s.clock.Now()

	var booking bookingdomain.Booking
	var payment foliodomain.FolioPayment

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, int64(businessID)); err != nil {
			return err
		}

		found, err := s.repo.FindByIDForUpdate(ctx, tx, businessID, id)
		if err != nil {
			return err
		}
		if found == nil {
			return bookingdomain.ErrBookingNotFound
		}
		if bookingdomain.Terminal(found.Status) {
			return bookingdomain.ErrInvalidTransition
		}

		paid, err := s.folioRepo.SumByBooking(ctx, tx, businessID, found.ID)
		if err != nil {
			return err
		}
		if err := foliodomain.ValidateAppend(found.TotalAmount, paid, req.Amount); err != nil {
			return err
		}

		payment = foliodomain.FolioPayment{
			ID:         s.genID.Generate(),
			BusinessID: businessID,
			BookingID:  found.ID,
			Amount:     req.Amount,
			Mode:       mode,
			Reference:  normalizePointer(req.Reference),
			RecordedBy: createdBy,
			WorkerID:   workerID,
			WorkerName: workerName,
			CreatedAt:  now,
		}
		if err := s.folioRepo.Insert(ctx, tx, &payment); err != nil {
			return err
		}

		booking = *found
		return nil
	})
	if err != nil {
		return bookingdomain.BookingWithFolio{}, err
	}

	s.metrics.RecordLedgerEntry(ctx, mode)
	s.enqueueSync(ctx, "accounting.sync_payment", func(c context.Context) error {
		return s.bridge.SyncPayment(c, businessID, payment.ID)
	})

	payments, err := s.folioRepo.ListByBooking(ctx, s.db, businessID, booking.ID)
	if err != nil {
		return bookingdomain.BookingWithFolio{}, err
	}

	return bookingdomain.BookingWithFolio{
		Booking:  booking,
		Folio:    foliodomain.Summarize(booking.TotalAmount, payments),
		Payments: payments,
	}, nil
}

func (s *Service) CheckIn(ctx context.Context, bookingID string) (bookingdomain.Booking, error) {
	return s.transition(ctx, bookingID, "check_in", func(booking *bookingdomain.Booking, tx *gorm.DB, now time.Time) error {
		if !bookingdomain.PreCheckIn(booking.Status) {
			return bookingdomain.ErrInvalidTransition
		}
		booking.Status = bookingdomain.BookingStatusCheckedIn
		booking.ActualCheckIn = &now
		return s.roomRepo.UpdateStatus(ctx, tx, booking.BusinessID, booking.RoomID, roomdomain.RoomStatusOccupied)
	})
}

func (s *Service) CheckOut(ctx context.Context, bookingID string) (bookingdomain.Booking, error) {
	// The checkout timestamp is the actual departure, not the planned date.
	// The room needs cleaning before resale, hence UNDER_MAINTENANCE.
	return s.transition(ctx, bookingID, "check_out", func(booking *bookingdomain.Booking, tx *gorm.DB, now time.Time) error {
		if booking.Status != bookingdomain.BookingStatusCheckedIn {
			return bookingdomain.ErrInvalidTransition
		}
		booking.Status = bookingdomain.BookingStatusCheckedOut
		booking.ActualCheckOut = &now
		return s.roomRepo.UpdateStatus(ctx, tx, booking.BusinessID, booking.RoomID, roomdomain.RoomStatusUnderMaintenance)
	})
}

func (s *Service) CancelBooking(ctx context.Context, bookingID string) (bookingdomain.Booking, error) {
	// Checked-in guests cannot be cancelled away; the desk must check them
	// out so the room goes through maintenance.
	return s.transition(ctx, bookingID, "cancel", func(booking *bookingdomain.Booking, tx *gorm.DB, now time.Time) error {
		if !bookingdomain.PreCheckIn(booking.Status) {
			return bookingdomain.ErrInvalidTransition
		}
		booking.Status = bookingdomain.BookingStatusCancelled
		return s.roomRepo.UpdateStatus(ctx, tx, booking.BusinessID, booking.RoomID, roomdomain.RoomStatusVacant)
	})
}

func (s *Service) ChangeRoom(ctx context.Context, req bookingdomain.ChangeRoomRequest) (bookingdomain.Booking, error) {
	newRoomID, err := s.parseID(req.NewRoomID, roomdomain.ErrInvalidRoom)
	if err != nil {
		return bookingdomain.Booking{}, err
	}

	return s.transition(ctx, req.BookingID, "change_room", func(booking *bookingdomain.Booking, tx *gorm.DB, now time.Time) error {
		if !bookingdomain.PreCheckIn(booking.Status) && booking.Status != bookingdomain.BookingStatusCheckedIn {
			return bookingdomain.ErrInvalidTransition
		}
		if booking.RoomID == newRoomID {
			return bookingdomain.ErrSameRoom
		}

		newRoom, err := s.roomRepo.FindByIDForUpdate(ctx, tx, booking.BusinessID, newRoomID)
		if err != nil {
			return err
		}
		if newRoom == nil {
			return roomdomain.ErrRoomNotFound
		}
		if newRoom.Status != roomdomain.RoomStatusVacant {
			return roomdomain.ErrRoomNotVacant
		}

		newStatus := roomdomain.RoomStatusReserved
		if booking.Status == bookingdomain.BookingStatusCheckedIn {
			newStatus = roomdomain.RoomStatusOccupied
		}

		oldRoomID := booking.RoomID
		booking.RoomID = newRoom.ID

		if err := s.roomRepo.UpdateStatus(ctx, tx, booking.BusinessID, oldRoomID, roomdomain.RoomStatusVacant); err != nil {
			return err
		}
		return s.roomRepo.UpdateStatus(ctx, tx, booking.BusinessID, newRoom.ID, newStatus)
	})
}

func (s *Service) ExtendStay(ctx context.Context, req bookingdomain.ExtendStayRequest) (bookingdomain.Booking, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return bookingdomain.Booking{}, bookingdomain.ErrInvalidBooking
	}

	id, err := s.parseID(req.BookingID, bookingdomain.ErrInvalidBooking)
	if err != nil {
		return bookingdomain.Booking{}, err
	}

	newCheckOut, err := parseStayDate(req.NewCheckOutDate)
	if err != nil {
		return bookingdomain.Booking{}, err
	}

	var booking bookingdomain.Booking

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, int64(businessID)); err != nil {
			return err
		}

		found, err := s.repo.FindByIDForUpdate(ctx, tx, businessID, id)
		if err != nil {
			return err
		}
		if found == nil {
			return bookingdomain.ErrBookingNotFound
		}
		if found.Status != bookingdomain.BookingStatusCheckedIn {
			return bookingdomain.ErrInvalidTransition
		}
		if !newCheckOut.After(dateOnly(found.CheckOutDate)) {
			return bookingdomain.ErrInvalidExtension
		}

		nights := nightsBetween(found.CheckInDate, newCheckOut)
		roomCharge := found.RoomRate.Mul(decimal.NewFromInt(int64(nights)))

		ancillary, err := s.revenueRepo.SumForBooking(ctx, tx, businessID, found.ID)
		if err != nil {
			return err
		}

		found.CheckOutDate = newCheckOut
		found.Nights = nights
		found.RoomCharge = roomCharge
		found.TotalAmount = roomCharge.Add(ancillary)
		found.UpdatedAt = s.clock.Now()

		if err := s.repo.UpdateStay(ctx, tx, found); err != nil {
			return err
		}

		booking = *found
		return nil
	})
	if err != nil {
		return bookingdomain.Booking{}, err
	}

	s.metrics.RecordBookingTransition(ctx, "extend_stay")
	return booking, nil
}

func (s *Service) OverrideStatus(ctx context.Context, req bookingdomain.OverrideStatusRequest) (bookingdomain.Booking, error) {
	if !s.managerial(ctx) {
		return bookingdomain.Booking{}, bookingdomain.ErrStatusOverrideDenied
	}

	target := bookingdomain.BookingStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !bookingdomain.ValidStatus(target) {
		return bookingdomain.Booking{}, bookingdomain.ErrInvalidStatus
	}
	if target == bookingdomain.BookingStatusReserved {
		target = bookingdomain.BookingStatusConfirmed
	}

	return s.transition(ctx, req.BookingID, "override", func(booking *bookingdomain.Booking, tx *gorm.DB, now time.Time) error {
		if booking.Status == target {
			return nil
		}

		prior := booking.Status
		booking.Status = target

		switch target {
		case bookingdomain.BookingStatusCheckedIn:
			if booking.ActualCheckIn == nil {
				booking.ActualCheckIn = &now
			}
			return s.roomRepo.UpdateStatus(ctx, tx, booking.BusinessID, booking.RoomID, roomdomain.RoomStatusOccupied)
		case bookingdomain.BookingStatusCheckedOut:
			booking.ActualCheckOut = &now
			return s.roomRepo.UpdateStatus(ctx, tx, booking.BusinessID, booking.RoomID, roomdomain.RoomStatusUnderMaintenance)
		case bookingdomain.BookingStatusCancelled:
			if bookingdomain.PreCheckIn(prior) {
				return s.roomRepo.UpdateStatus(ctx, tx, booking.BusinessID, booking.RoomID, roomdomain.RoomStatusVacant)
			}
			return nil
		case bookingdomain.BookingStatusConfirmed:
			return s.roomRepo.UpdateStatus(ctx, tx, booking.BusinessID, booking.RoomID, roomdomain.RoomStatusReserved)
		default:
			return nil
		}
	})
}

// transition wraps the shared shape of a lifecycle change: lock the booking
// row, apply the mutation, persist booking and room together.
func (s *Service) transition(
	ctx context.Context,
	bookingID string,
	name string,
	mutate func(booking *bookingdomain.Booking, tx *gorm.DB, now time.Time) error,
) (bookingdomain.Booking, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return bookingdomain.Booking{}, bookingdomain.ErrInvalidBooking
	}

	id, err := s.parseID(bookingID, bookingdomain.ErrInvalidBooking)
	if err != nil {
		return bookingdomain.Booking{}, err
	}

	now := s.clock.Now()
	var booking bookingdomain.Booking

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, int64(businessID)); err != nil {
			return err
		}

		found, err := s.repo.FindByIDForUpdate(ctx, tx, businessID, id)
		if err != nil {
			return err
		}
		if found == nil {
			return bookingdomain.ErrBookingNotFound
		}

		if err := mutate(found, tx, now); err != nil {
			return err
		}

		found.UpdatedAt = now
		if err := s.repo.UpdateLifecycle(ctx, tx, found); err != nil {
			return err
		}

		booking = *found
		return nil
	})
	if err != nil {
		return bookingdomain.Booking{}, err
	}

	s.metrics.RecordBookingTransition(ctx, name)
	s.invalidateRooms(businessID)
	return booking, nil
}

func (s *Service) parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
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

// attribution extracts who is acting for the created_by/worker columns.
func (s *Service) attribution(ctx context.Context) (createdBy, workerID *snowflake.ID, workerName *string) {
	actor, ok := auditcontext.ActorFromContext(ctx)
	if !ok {
		return nil, nil, nil
	}
	if actor.Type == auditcontext.ActorTypeUser {
		if id, err := snowflake.ParseString(strings.TrimSpace(actor.ID)); err == nil && id != 0 {
			createdBy = &id
		}
	}
	if id, err := snowflake.ParseString(strings.TrimSpace(actor.WorkerID)); err == nil && id != 0 {
		workerID = &id
	}
	if name := strings.TrimSpace(actor.WorkerName); name != "" {
		workerName = &name
	}
	return createdBy, workerID, workerName
}

func (s *Service) invalidateRooms(businessID snowflake.ID) {
	if s.roomSvc != nil {
		s.roomSvc.InvalidateListing(businessID)
	}
}

func (s *Service) enqueueSync(ctx context.Context, name string, fn func(ctx context.Context) error) {
	if s.tasks == nil || s.bridge == nil {
		return
	}
	s.tasks.Go(ctx, name, fn)
}

func normalizeOrigin(origin string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(origin)) {
	case "":
		return bookingdomain.OriginFrontDesk, nil
	case bookingdomain.OriginFrontDesk:
		return bookingdomain.OriginFrontDesk, nil
	case bookingdomain.OriginChannel:
		return bookingdomain.OriginChannel, nil
	case bookingdomain.OriginLegacy:
		return bookingdomain.OriginLegacy, nil
	default:
		return "", bookingdomain.ErrInvalidOrigin
	}
}

func normalizePointer(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func parseStayDate(value string) (time.Time, error) {
	parsed, err := time.Parse(bookingdomain.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, bookingdomain.ErrInvalidStayDates
	}
	return parsed, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// nightsBetween rounds partial days up so a late checkout never undercounts.
func nightsBetween(checkIn, checkOut time.Time) int {
	span := dateOnly(checkOut).Sub(dateOnly(checkIn))
	return int(math.Ceil(span.Hours() / 24))
}
