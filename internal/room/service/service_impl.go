package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/lib/pq"
	"github.com/smallbiznis/staypoint/internal/bizcontext"
	"github.com/smallbiznis/staypoint/internal/clock"
	roomdomain "github.com/smallbiznis/staypoint/internal/room/domain"
	"github.com/smallbiznis/staypoint/pkg/rls"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const listCacheTTL = 15 * time.Second

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  roomdomain.Repository

	listCache *listingCache
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  roomdomain.Repository
}

func NewService(p ServiceParam) roomdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("room.service"),

		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,

		listCache: newListingCache(listCacheTTL),
	}
}

func (s *Service) CreateRoom(ctx context.Context, req roomdomain.CreateRoomRequest) (roomdomain.Room, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return roomdomain.Room{}, roomdomain.ErrInvalidRoom
	}

	categoryID, err := s.parseID(req.CategoryID, roomdomain.ErrInvalidCategory)
	if err != nil {
		return roomdomain.Room{}, err
	}

	roomNumber := strings.TrimSpace(req.RoomNumber)
	if roomNumber == "" {
		return roomdomain.Room{}, roomdomain.ErrInvalidRoomNumber
	}

	category, err := s.repo.FindCategoryByID(ctx, s.db, businessID, categoryID)
	if err != nil {
		return roomdomain.Room{}, err
	}
	if category == nil {
		return roomdomain.Room{}, roomdomain.ErrCategoryNotFound
	}

	existing, err := s.repo.FindByNumber(ctx, s.db, businessID, roomNumber)
	if err != nil {
		return roomdomain.Room{}, err
	}
	if existing != nil {
		return roomdomain.Room{}, roomdomain.ErrDuplicateRoomNumber
	}

	now := s.clock.Now()
	room := roomdomain.Room{
		ID:         s.genID.Generate(),
		BusinessID: businessID,
		CategoryID: categoryID,
		RoomNumber: roomNumber,
		Floor:      req.Floor,
		Status:     roomdomain.RoomStatusVacant,
		Notes:      req.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, &room); err != nil {
		return roomdomain.Room{}, err
	}

	s.listCache.Invalidate(businessID)
	return room, nil
}

func (s *Service) UpdateRoom(ctx context.Context, req roomdomain.UpdateRoomRequest) (roomdomain.Room, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return roomdomain.Room{}, roomdomain.ErrInvalidRoom
	}

	roomID, err := s.parseID(req.RoomID, roomdomain.ErrInvalidRoom)
	if err != nil {
		return roomdomain.Room{}, err
	}

	room, err := s.repo.FindByID(ctx, s.db, businessID, roomID)
	if err != nil {
		return roomdomain.Room{}, err
	}
	if room == nil {
		return roomdomain.Room{}, roomdomain.ErrRoomNotFound
	}

	if req.CategoryID != nil {
		categoryID, err := s.parseID(*req.CategoryID, roomdomain.ErrInvalidCategory)
		if err != nil {
			return roomdomain.Room{}, err
		}
		category, err := s.repo.FindCategoryByID(ctx, s.db, businessID, categoryID)
		if err != nil {
			return roomdomain.Room{}, err
		}
		if category == nil {
			return roomdomain.Room{}, roomdomain.ErrCategoryNotFound
		}
		room.CategoryID = categoryID
	}
	if req.RoomNumber != nil {
		roomNumber := strings.TrimSpace(*req.RoomNumber)
		if roomNumber == "" {
			return roomdomain.Room{}, roomdomain.ErrInvalidRoomNumber
		}
		if roomNumber != room.RoomNumber {
			existing, err := s.repo.FindByNumber(ctx, s.db, businessID, roomNumber)
			if err != nil {
				return roomdomain.Room{}, err
			}
			if existing != nil {
				return roomdomain.Room{}, roomdomain.ErrDuplicateRoomNumber
			}
		}
		room.RoomNumber = roomNumber
	}
	if req.Floor != nil {
		room.Floor = req.Floor
	}
	if req.Notes != nil {
		room.Notes = req.Notes
	}
	room.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, room); err != nil {
		return roomdomain.Room{}, err
	}

	s.listCache.Invalidate(businessID)
	return *room, nil
}

func (s *Service) GetRoom(ctx context.Context, roomID string) (roomdomain.Room, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return roomdomain.Room{}, roomdomain.ErrInvalidRoom
	}

	id, err := s.parseID(roomID, roomdomain.ErrInvalidRoom)
	if err != nil {
		return roomdomain.Room{}, err
	}

	room, err := s.repo.FindByID(ctx, s.db, businessID, id)
	if err != nil {
		return roomdomain.Room{}, err
	}
	if room == nil {
		return roomdomain.Room{}, roomdomain.ErrRoomNotFound
	}
	return *room, nil
}

func (s *Service) ListRooms(ctx context.Context, req roomdomain.ListRoomRequest) (roomdomain.ListRoomResponse, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return roomdomain.ListRoomResponse{}, roomdomain.ErrInvalidRoom
	}

	filter := roomdomain.ListRoomFilter{}
	if status := strings.TrimSpace(req.Status); status != "" {
		normalized := roomdomain.RoomStatus(strings.ToUpper(status))
		if !roomdomain.ValidStatus(normalized) {
			return roomdomain.ListRoomResponse{}, roomdomain.ErrInvalidStatus
		}
		filter.Status = normalized
	}
	if req.CategoryID != "" {
		categoryID, err := s.parseID(req.CategoryID, roomdomain.ErrInvalidCategory)
		if err != nil {
			return roomdomain.ListRoomResponse{}, err
		}
		filter.CategoryID = categoryID
	}

	if rooms, ok := s.listCache.Get(businessID, filter); ok {
		return roomdomain.ListRoomResponse{Rooms: rooms}, nil
	}

	rooms, err := s.repo.List(ctx, s.db, businessID, filter)
	if err != nil {
		return roomdomain.ListRoomResponse{}, err
	}

	s.listCache.Set(businessID, filter, rooms)
	return roomdomain.ListRoomResponse{Rooms: rooms}, nil
}

func (s *Service) MarkMaintenance(ctx context.Context, roomID string) (roomdomain.Room, error) {
	return s.flipMaintenance(ctx, roomID, roomdomain.RoomStatusVacant, roomdomain.RoomStatusUnderMaintenance, roomdomain.ErrRoomNotVacant)
}

func (s *Service) ReleaseMaintenance(ctx context.Context, roomID string) (roomdomain.Room, error) {
	return s.flipMaintenance(ctx, roomID, roomdomain.RoomStatusUnderMaintenance, roomdomain.RoomStatusVacant, roomdomain.ErrRoomNotInMaintenance)
}

func (s *Service) flipMaintenance(ctx context.Context, roomID string, from, to roomdomain.RoomStatus, guardErr error) (roomdomain.Room, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return roomdomain.Room{}, roomdomain.ErrInvalidRoom
	}

	id, err := s.parseID(roomID, roomdomain.ErrInvalidRoom)
	if err != nil {
		return roomdomain.Room{}, err
	}

	var updated roomdomain.Room
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithTenant(tx, int64(businessID)); err != nil {
			return err
		}

		room, err := s.repo.FindByIDForUpdate(ctx, tx, businessID, id)
		if err != nil {
			return err
		}
		if room == nil {
			return roomdomain.ErrRoomNotFound
		}
		if room.Status != from {
			return guardErr
		}
		if err := s.repo.UpdateStatus(ctx, tx, businessID, id, to); err != nil {
			return err
		}
		room.Status = to
		updated = *room
		return nil
	})
	if err != nil {
		return roomdomain.Room{}, err
	}

	s.listCache.Invalidate(businessID)
	return updated, nil
}

func (s *Service) CreateCategory(ctx context.Context, req roomdomain.CreateRoomCategoryRequest) (roomdomain.RoomCategory, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return roomdomain.RoomCategory{}, roomdomain.ErrInvalidCategory
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return roomdomain.RoomCategory{}, roomdomain.ErrInvalidCategoryName
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = name
	}
	code = slug.Make(code)
	if code == "" {
		return roomdomain.RoomCategory{}, roomdomain.ErrInvalidCategoryCode
	}

	if req.BaseRate.IsNegative() {
		return roomdomain.RoomCategory{}, roomdomain.ErrInvalidBaseRate
	}

	existing, err := s.repo.FindCategoryByCode(ctx, s.db, businessID, code)
	if err != nil {
		return roomdomain.RoomCategory{}, err
	}
	if existing != nil {
		return roomdomain.RoomCategory{}, roomdomain.ErrDuplicateCategoryCode
	}

	capacity := req.Capacity
	if capacity <= 0 {
		capacity = 2
	}

	now := s.clock.Now()
	category := roomdomain.RoomCategory{
		ID:          s.genID.Generate(),
		BusinessID:  businessID,
		Code:        code,
		Name:        name,
		Description: req.Description,
		BaseRate:    req.BaseRate,
		Capacity:    capacity,
		Amenities:   pq.StringArray(req.Amenities),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertCategory(ctx, s.db, &category); err != nil {
		return roomdomain.RoomCategory{}, err
	}
	return category, nil
}

func (s *Service) UpdateCategory(ctx context.Context, req roomdomain.UpdateRoomCategoryRequest) (roomdomain.RoomCategory, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return roomdomain.RoomCategory{}, roomdomain.ErrInvalidCategory
	}

	categoryID, err := s.parseID(req.CategoryID, roomdomain.ErrInvalidCategory)
	if err != nil {
		return roomdomain.RoomCategory{}, err
	}

	category, err := s.repo.FindCategoryByID(ctx, s.db, businessID, categoryID)
	if err != nil {
		return roomdomain.RoomCategory{}, err
	}
	if category == nil {
		return roomdomain.RoomCategory{}, roomdomain.ErrCategoryNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return roomdomain.RoomCategory{}, roomdomain.ErrInvalidCategoryName
		}
		category.Name = name
	}
	if req.Description != nil {
		category.Description = req.Description
	}
	if req.BaseRate != nil {
		if req.BaseRate.IsNegative() {
			return roomdomain.RoomCategory{}, roomdomain.ErrInvalidBaseRate
		}
		category.BaseRate = *req.BaseRate
	}
	if req.Capacity != nil && *req.Capacity > 0 {
		category.Capacity = *req.Capacity
	}
	if req.Amenities != nil {
		category.Amenities = pq.StringArray(req.Amenities)
	}
	category.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateCategory(ctx, s.db, category); err != nil {
		return roomdomain.RoomCategory{}, err
	}

	// Rate changes affect booking math going forward only; cached listings
	// carry category ids, not rates, so no invalidation here.
	return *category, nil
}

func (s *Service) ListCategories(ctx context.Context) (roomdomain.ListRoomCategoryResponse, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return roomdomain.ListRoomCategoryResponse{}, roomdomain.ErrInvalidCategory
	}

	categories, err := s.repo.ListCategories(ctx, s.db, businessID)
	if err != nil {
		return roomdomain.ListRoomCategoryResponse{}, err
	}
	return roomdomain.ListRoomCategoryResponse{Categories: categories}, nil
}

func (s *Service) InvalidateListing(businessID snowflake.ID) {
	s.listCache.Invalidate(businessID)
}

func (s *Service) parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}
