// Package seed bootstraps the default business and optional demo property.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	businessdomain "github.com/smallbiznis/staypoint/internal/business/domain"
	foliodomain "github.com/smallbiznis/staypoint/internal/folio/domain"
	roomdomain "github.com/smallbiznis/staypoint/internal/room/domain"
	"github.com/smallbiznis/staypoint/pkg/repository"
	"gorm.io/gorm"
)

const (
	defaultBusinessName = "Main"
	defaultBusinessSlug = "main"
)

// EnsureMainBusiness seeds the default business for startup bootstrap.
func EnsureMainBusiness(db *gorm.DB) error {
	return ensureMainBusiness(db, 0)
}

// EnsureMainBusinessWithID seeds the default business under a fixed ID so
// gateway-issued business headers stay stable across environments.
func EnsureMainBusinessWithID(db *gorm.DB, businessID int64) error {
	return ensureMainBusiness(db, snowflake.ID(businessID))
}

func ensureMainBusiness(db *gorm.DB, businessID snowflake.ID) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	businesses := repository.ProvideStore[businessdomain.Business](db)
	sequences := repository.ProvideStore[foliodomain.FolioSequence](db)

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		business, err := ensureMainBusinessTx(ctx, businesses.WithTrx(tx), node, businessID)
		if err != nil {
			return err
		}
		return ensureFolioSequenceTx(ctx, sequences.WithTrx(tx), business.ID)
	})
}

func ensureMainBusinessTx(ctx context.Context, store repository.Repository[businessdomain.Business], node *snowflake.Node, businessID snowflake.ID) (businessdomain.Business, error) {
	existing, err := store.FindOne(ctx, &businessdomain.Business{Slug: defaultBusinessSlug})
	if err != nil {
		return businessdomain.Business{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	if businessID == 0 {
		businessID = node.Generate()
	}
	now := time.Now().UTC()
	business := businessdomain.Business{
		ID:        businessID,
		Name:      defaultBusinessName,
		Slug:      defaultBusinessSlug,
		Timezone:  "UTC",
		Currency:  "IDR",
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.Create(ctx, &business); err != nil {
		return businessdomain.Business{}, err
	}
	return business, nil
}

func ensureFolioSequenceTx(ctx context.Context, store repository.Repository[foliodomain.FolioSequence], businessID snowflake.ID) error {
	existing, err := store.FindOne(ctx, &foliodomain.FolioSequence{BusinessID: businessID})
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	seq := foliodomain.FolioSequence{
		BusinessID: businessID,
		NextNumber: 1,
		UpdatedAt:  time.Now().UTC(),
	}
	return store.Create(ctx, &seq)
}

// EnsureDemoProperty seeds a small set of categories and rooms so a fresh
// OSS install has something to book against.
func EnsureDemoProperty(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	businesses := repository.ProvideStore[businessdomain.Business](db)
	categories := repository.ProvideStore[roomdomain.RoomCategory](db)
	rooms := repository.ProvideStore[roomdomain.Room](db)

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		business, err := businesses.WithTrx(tx).FindOne(ctx, &businessdomain.Business{Slug: defaultBusinessSlug})
		if err != nil {
			return err
		}
		if business == nil {
			return errors.New("seed demo property requires the main business")
		}

		demos := []demoCategory{
			{
				Code:      "standard",
				Name:      "Standard",
				Rate:      "350000",
				Capacity:  2,
				Amenities: []string{"wifi", "ac"},
				Rooms:     []string{"101", "102", "103"},
			},
			{
				Code:      "deluxe",
				Name:      "Deluxe",
				Rate:      "500000",
				Capacity:  2,
				Amenities: []string{"wifi", "ac", "breakfast"},
				Rooms:     []string{"201", "202"},
			},
			{
				Code:      "family-suite",
				Name:      "Family Suite",
				Rate:      "850000",
				Capacity:  4,
				Amenities: []string{"wifi", "ac", "breakfast", "kitchenette"},
				Rooms:     []string{"301"},
			},
		}

		now := time.Now().UTC()
		for _, demo := range demos {
			category, err := ensureDemoCategoryTx(ctx, categories.WithTrx(tx), node, business.ID, demo, now)
			if err != nil {
				return err
			}
			for _, roomNumber := range demo.Rooms {
				floor := fmt.Sprintf("%d", roomFloor(roomNumber))
				if err := ensureDemoRoomTx(ctx, rooms.WithTrx(tx), node, business.ID, category.ID, roomNumber, floor, now); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func roomFloor(roomNumber string) int {
	if roomNumber == "" {
		return 1
	}
	return int(roomNumber[0] - '0')
}

type demoCategory struct {
	Code      string
	Name      string
	Rate      string
	Capacity  int
	Amenities []string
	Rooms     []string
}

func ensureDemoCategoryTx(ctx context.Context, store repository.Repository[roomdomain.RoomCategory], node *snowflake.Node, businessID snowflake.ID, demo demoCategory, now time.Time) (roomdomain.RoomCategory, error) {
	existing, err := store.FindOne(ctx, &roomdomain.RoomCategory{BusinessID: businessID, Code: demo.Code})
	if err != nil {
		return roomdomain.RoomCategory{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	baseRate, err := decimal.NewFromString(demo.Rate)
	if err != nil {
		return roomdomain.RoomCategory{}, err
	}
	category := roomdomain.RoomCategory{
		ID:         node.Generate(),
		BusinessID: businessID,
		Code:       demo.Code,
		Name:       demo.Name,
		BaseRate:   baseRate,
		Capacity:   demo.Capacity,
		Amenities:  pq.StringArray(demo.Amenities),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := store.Create(ctx, &category); err != nil {
		return roomdomain.RoomCategory{}, err
	}
	return category, nil
}

func ensureDemoRoomTx(ctx context.Context, store repository.Repository[roomdomain.Room], node *snowflake.Node, businessID, categoryID snowflake.ID, roomNumber, floor string, now time.Time) error {
	existing, err := store.FindOne(ctx, &roomdomain.Room{BusinessID: businessID, RoomNumber: roomNumber})
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	room := roomdomain.Room{
		ID:         node.Generate(),
		BusinessID: businessID,
		CategoryID: categoryID,
		RoomNumber: roomNumber,
		Floor:      &floor,
		Status:     roomdomain.RoomStatusVacant,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return store.Create(ctx, &room)
}
