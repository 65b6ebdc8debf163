// Package store provides the persistence layer for products.
package store

import (
	"context"
	"time"
)

// Product is a persisted catalog product. Available=false marks a soft-deleted product.
type Product struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Name        string    `gorm:"size:255;not null"`
	Description string    `gorm:"type:text;not null;default:''"`
	Price       float64   `gorm:"not null"`
	Available   bool      `gorm:"not null;default:true;index"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// Updatable columns accepted by UpdatePartial.
const (
	ColumnName        = "name"
	ColumnDescription = "description"
	ColumnPrice       = "price"
)

// ProductStore is an interface for product storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type ProductStore interface {
	// Create inserts a new available product and returns it with its generated ID.
	Create(ctx context.Context, product *Product) (*Product, error)

	// CountAvailable returns the number of available products.
	CountAvailable(ctx context.Context) (int64, error)

	// FindAllAvailable returns up to limit available products ordered by ID, skipping offset.
	// Returns an empty slice if no products match.
	FindAllAvailable(ctx context.Context, offset, limit int) ([]Product, error)

	// FindAvailableByID retrieves an available product by its ID.
	// Returns ErrProductNotFound if no available product exists with the given ID.
	FindAvailableByID(ctx context.Context, id int64) (*Product, error)

	// UpdatePartial sets the given columns of a product and returns the stored product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	UpdatePartial(ctx context.Context, id int64, fields map[string]any) (*Product, error)

	// SetAvailability sets only the available flag of a product and returns the stored product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	SetAvailability(ctx context.Context, id int64, available bool) (*Product, error)
}
