// Package service provides the implementation of product-related business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	perrors "github.com/abgdnv/productcatalog/internal/product/errors"
	"github.com/abgdnv/productcatalog/internal/product/store"
)

// Default pagination values applied when a request omits them.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// ProductService defines the methods for managing products.
// It abstracts the underlying business logic and data access.
type ProductService interface {
	// Create adds a new, available product.
	Create(ctx context.Context, dto ProductCreateDto) (*ProductDto, error)

	// FindAll returns one page of available products ordered by ID together with the paging metadata.
	FindAll(ctx context.Context, pagination PaginationDto) (*PageDto, error)

	// FindByID retrieves a single available product.
	// Returns a NotFound error if no available product exists with the given ID.
	FindByID(ctx context.Context, id int64) (*ProductDto, error)

	// Update replaces the supplied fields of an available product.
	// Returns the NotFound error of FindByID unchanged, in which case nothing is written.
	Update(ctx context.Context, dto ProductUpdateDto) (*ProductDto, error)

	// Remove marks an available product as unavailable and returns it.
	Remove(ctx context.Context, id int64) (*ProductDto, error)
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProductCreateDto is the input of Create.
type ProductCreateDto struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
}

// ProductUpdateDto is the input of Update. Nil fields are left untouched.
type ProductUpdateDto struct {
	ID          int64    `json:"id" validate:"gte=0"`
	Name        *string  `json:"name" validate:"omitnil,min=1,max=255"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" validate:"omitnil,gte=0"`
}

// PaginationDto selects a page of products. Both values fit in an int32, as on the REST query string.
type PaginationDto struct {
	Page  int `json:"page" validate:"gte=1,lte=2147483647"`
	Limit int `json:"limit" validate:"gte=1,lte=2147483647"`
}

// NewPaginationDto returns a PaginationDto holding the defaults.
func NewPaginationDto() PaginationDto {
	return PaginationDto{Page: DefaultPage, Limit: DefaultLimit}
}

// PageMeta describes where a page sits among the available products.
type PageMeta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	LastPage int   `json:"lastPage"`
}

// PageDto is the result of FindAll.
type PageDto struct {
	Data []ProductDto `json:"data"`
	Meta PageMeta     `json:"meta"`
}

// service implements ProductService and provides methods to manage products.
type service struct {
	store  store.ProductStore
	logger *slog.Logger
}

// NewService creates a new instance of ProductService with the provided store.
func NewService(store store.ProductStore, logger *slog.Logger) ProductService {
	return &service{
		store:  store,
		logger: logger.With("component", "product_service"),
	}
}

// Create creates a new product and returns it as a ProductDto.
func (s *service) Create(ctx context.Context, dto ProductCreateDto) (*ProductDto, error) {
	p, err := s.store.Create(ctx, &store.Product{
		Name:        dto.Name,
		Description: dto.Description,
		Price:       dto.Price,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.logger.DebugContext(ctx, "product created", "product_id", p.ID)
	return toDto(p), nil
}

// FindAll retrieves a page of available products.
// The count and the page are two separate reads, so under concurrent writes the total may be slightly stale.
func (s *service) FindAll(ctx context.Context, pagination PaginationDto) (*PageDto, error) {
	total, err := s.store.CountAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	var products []store.Product
	if offset, ok := pageOffset(pagination.Page, pagination.Limit); ok {
		products, err = s.store.FindAllAvailable(ctx, offset, pagination.Limit)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch products: %w", err)
		}
	}

	data := make([]ProductDto, len(products))
	for i := range products {
		data[i] = *toDto(&products[i])
	}
	return &PageDto{
		Data: data,
		Meta: PageMeta{
			Total:    total,
			Page:     pagination.Page,
			LastPage: LastPage(total, pagination.Limit),
		},
	}, nil
}

// FindByID retrieves an available product by its ID and returns it as a ProductDto.
func (s *service) FindByID(ctx context.Context, id int64) (*ProductDto, error) {
	p, err := s.store.FindAvailableByID(ctx, id)
	if err != nil {
		return nil, s.storeError(id, "failed to fetch product", err)
	}
	return toDto(p), nil
}

// Update applies the non-nil fields of dto to the product.
func (s *service) Update(ctx context.Context, dto ProductUpdateDto) (*ProductDto, error) {
	if _, err := s.FindByID(ctx, dto.ID); err != nil {
		return nil, err
	}

	fields := make(map[string]any, 3)
	if dto.Name != nil {
		fields[store.ColumnName] = *dto.Name
	}
	if dto.Description != nil {
		fields[store.ColumnDescription] = *dto.Description
	}
	if dto.Price != nil {
		fields[store.ColumnPrice] = *dto.Price
	}

	p, err := s.store.UpdatePartial(ctx, dto.ID, fields)
	if err != nil {
		return nil, s.storeError(dto.ID, "failed to update product", err)
	}
	s.logger.DebugContext(ctx, "product updated", "product_id", p.ID, "fields", len(fields))
	return toDto(p), nil
}

// Remove soft deletes an available product.
func (s *service) Remove(ctx context.Context, id int64) (*ProductDto, error) {
	if _, err := s.FindByID(ctx, id); err != nil {
		return nil, err
	}

	p, err := s.store.SetAvailability(ctx, id, false)
	if err != nil {
		return nil, s.storeError(id, "failed to remove product", err)
	}
	s.logger.DebugContext(ctx, "product removed", "product_id", p.ID)
	return toDto(p), nil
}

// storeError turns the store sentinel into a NotFound error and wraps anything else.
func (s *service) storeError(id int64, msg string, err error) error {
	if errors.Is(err, perrors.ErrProductNotFound) {
		return perrors.NotFound(id)
	}
	return fmt.Errorf("%s %d: %w", msg, id, err)
}

// pageOffset returns limit*(page-1). ok is false when the page cannot hold any row
// because the offset does not fit in an int.
func pageOffset(page, limit int) (offset int, ok bool) {
	if page < 1 || limit < 1 || page-1 > math.MaxInt/limit {
		return 0, false
	}
	return limit * (page - 1), true
}

// LastPage returns ceil(total/limit), 0 when there is nothing to page through.
func LastPage(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	l := int64(limit)
	last := total / l
	if total%l != 0 {
		last++
	}
	return int(last)
}

// toDto converts a store.Product to a ProductDto.
func toDto(p *store.Product) *ProductDto {
	return &ProductDto{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Available:   p.Available,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
