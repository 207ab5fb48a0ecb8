package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/staypoint/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is the generic persistence surface for simple record types that
// need no hand-written SQL. Domain packages with richer queries keep their own
// repositories.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, filter *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, record *T) error
	BatchCreate(ctx context.Context, records []*T) error
	Update(ctx context.Context, recordID string, values any) error
	Count(ctx context.Context, filter *T) (int64, error)
}

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	return &store[T]{db: tx}
}

func (s *store[T]) Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]*T, error) {
	var records []*T
	if err := s.query(ctx, filter, opts...).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindOne returns (nil, nil) when no row matches; absence is not an error at
// this layer.
func (s *store[T]) FindOne(ctx context.Context, filter *T, opts ...option.QueryOption) (*T, error) {
	var record T
	err := s.query(ctx, filter, opts...).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (s *store[T]) Create(ctx context.Context, record *T) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *store[T]) BatchCreate(ctx context.Context, records []*T) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(records).Error
}

func (s *store[T]) Update(ctx context.Context, recordID string, values any) error {
	return s.db.WithContext(ctx).Model(new(T)).Where("id = ?", recordID).Updates(values).Error
}

func (s *store[T]) Count(ctx context.Context, filter *T) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(new(T)).Where(filter).Count(&count).Error
	return count, err
}

func (s *store[T]) query(ctx context.Context, filter *T, opts ...option.QueryOption) *gorm.DB {
	stmt := s.db.WithContext(ctx).Where(filter)
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	return stmt
}
