package store

import (
	"context"
	"errors"
	"fmt"

	perrors "github.com/abgdnv/productcatalog/internal/product/errors"
	"gorm.io/gorm"
)

// GormStore implements ProductStore on top of GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new instance of ProductStore using a GORM handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) available(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&Product{}).Where("available = ?", true)
}

// Create inserts a new product. The product is always stored as available.
func (s *GormStore) Create(ctx context.Context, product *Product) (*Product, error) {
	p := *product
	p.ID = 0
	p.Available = true
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &p, nil
}

// CountAvailable counts available products.
func (s *GormStore) CountAvailable(ctx context.Context) (int64, error) {
	var total int64
	if err := s.available(ctx).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}

// FindAllAvailable retrieves a page of available products ordered by ID.
// It returns a slice of products, which may be empty if no products exist.
func (s *GormStore) FindAllAvailable(ctx context.Context, offset, limit int) ([]Product, error) {
	products := make([]Product, 0, min(limit, 100))
	if err := s.available(ctx).Order("id").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	return products, nil
}

// FindAvailableByID retrieves an available product by its unique identifier.
// Returns ErrProductNotFound if no available product exists with the given ID.
func (s *GormStore) FindAvailableByID(ctx context.Context, id int64) (*Product, error) {
	var product Product
	if err := s.available(ctx).Where("id = ?", id).Take(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return &product, nil
}

// UpdatePartial updates the given columns and reloads the product in one transaction.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *GormStore) UpdatePartial(ctx context.Context, id int64, fields map[string]any) (*Product, error) {
	var product Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(fields) > 0 {
			res := tx.Model(&Product{}).Where("id = ?", id).Updates(fields)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return perrors.ErrProductNotFound
			}
		}
		return tx.Take(&product, id).Error
	})
	if err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &product, nil
}

// SetAvailability flips the available flag and reloads the product in one transaction.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *GormStore) SetAvailability(ctx context.Context, id int64, available bool) (*Product, error) {
	var product Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Product{}).Where("id = ?", id).Update("available", available)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return perrors.ErrProductNotFound
		}
		return tx.Take(&product, id).Error
	})
	if err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to set product availability: %w", err)
	}
	return &product, nil
}
