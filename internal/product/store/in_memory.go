package store

import (
	"context"
	"sort"
	"sync"
	"time"

	perrors "github.com/abgdnv/productcatalog/internal/product/errors"
)

// InMemory implements ProductStore using an in-memory map.
// It mirrors the GORM store semantics and backs service level tests.
type InMemory struct {
	mu       sync.RWMutex
	products map[int64]Product
	nextID   int64
	now      func() time.Time
}

// NewInMemoryStore creates a new instance of ProductStore
func NewInMemoryStore() *InMemory {
	return &InMemory{
		products: make(map[int64]Product),
		nextID:   1,
		now:      time.Now,
	}
}

func (m *InMemory) Create(_ context.Context, product *Product) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := *product
	p.ID = m.nextID
	p.Available = true
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	m.products[p.ID] = p
	m.nextID++
	return &p, nil
}

func (m *InMemory) CountAvailable(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for _, p := range m.products {
		if p.Available {
			total++
		}
	}
	return total, nil
}

func (m *InMemory) FindAllAvailable(_ context.Context, offset, limit int) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	available := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		if p.Available {
			available = append(available, p)
		}
	}
	sort.Slice(available, func(i, j int) bool { return available[i].ID < available[j].ID })

	if offset < 0 || offset >= len(available) {
		return []Product{}, nil
	}
	end := len(available)
	if limit < end-offset {
		end = offset + limit
	}
	return available[offset:end], nil
}

func (m *InMemory) FindAvailableByID(_ context.Context, id int64) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok || !p.Available {
		return nil, perrors.ErrProductNotFound
	}
	return &p, nil
}

func (m *InMemory) UpdatePartial(_ context.Context, id int64, fields map[string]any) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, perrors.ErrProductNotFound
	}
	if len(fields) == 0 {
		return &p, nil
	}
	for column, value := range fields {
		switch column {
		case ColumnName:
			p.Name = value.(string)
		case ColumnDescription:
			p.Description = value.(string)
		case ColumnPrice:
			p.Price = value.(float64)
		}
	}
	p.UpdatedAt = m.now()
	m.products[id] = p
	return &p, nil
}

func (m *InMemory) SetAvailability(_ context.Context, id int64, available bool) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, perrors.ErrProductNotFound
	}
	p.Available = available
	p.UpdatedAt = m.now()
	m.products[id] = p
	return &p, nil
}
