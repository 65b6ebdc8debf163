package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	perrors "github.com/abgdnv/productcatalog/internal/product/errors"
	"github.com/abgdnv/productcatalog/internal/product/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProductStore is a mock implementation of the ProductStore interface
type mockProductStore struct {
	products []store.Product
	product  store.Product
	total    int64
	error    error

	// recorded calls
	offset, limit int
	fetches       int
	writes        int
	fields        map[string]any
}

func (m *mockProductStore) Create(_ context.Context, p *store.Product) (*store.Product, error) {
	m.writes++
	if m.error != nil {
		return nil, m.error
	}
	created := *p
	created.ID = m.product.ID
	created.Available = true
	return &created, nil
}

func (m *mockProductStore) CountAvailable(_ context.Context) (int64, error) {
	return m.total, m.error
}

func (m *mockProductStore) FindAllAvailable(_ context.Context, offset, limit int) ([]store.Product, error) {
	m.fetches++
	m.offset, m.limit = offset, limit
	return m.products, m.error
}

func (m *mockProductStore) FindAvailableByID(_ context.Context, _ int64) (*store.Product, error) {
	if m.error != nil {
		return nil, m.error
	}
	return &m.product, nil
}

func (m *mockProductStore) UpdatePartial(_ context.Context, _ int64, fields map[string]any) (*store.Product, error) {
	m.writes++
	m.fields = fields
	return &m.product, m.error
}

func (m *mockProductStore) SetAvailability(_ context.Context, _ int64, available bool) (*store.Product, error) {
	m.writes++
	p := m.product
	p.Available = available
	return &p, m.error
}

func newTestService(s store.ProductStore) ProductService {
	return NewService(s, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func Test_LastPage(t *testing.T) {
	testCases := []struct {
		total    int64
		limit    int
		expected int
	}{
		{total: 0, limit: 10, expected: 0},
		{total: 1, limit: 10, expected: 1},
		{total: 10, limit: 10, expected: 1},
		{total: 11, limit: 10, expected: 2},
		{total: 25, limit: 10, expected: 3},
		{total: 25, limit: 1, expected: 25},
		{total: 5, limit: 100, expected: 1},
		{total: math.MaxInt64, limit: 1, expected: math.MaxInt64},
		{total: math.MaxInt64, limit: math.MaxInt64, expected: 1},
		{total: math.MaxInt64, limit: 2, expected: 1 << 62},
		{total: 25, limit: math.MaxInt32, expected: 1},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, LastPage(tc.total, tc.limit), "total=%d limit=%d", tc.total, tc.limit)
	}
}

func Test_ProductService_FindAll(t *testing.T) {
	ErrStoreError := errors.New("store error")
	testCases := []struct {
		name           string
		mockStore      *mockProductStore
		pagination     PaginationDto
		expectedOffset int
		expectedMeta   PageMeta
		expectedLen    int
		expectNoFetch  bool
		expectError    error
	}{
		{
			name: "Success - first page",
			mockStore: &mockProductStore{
				products: []store.Product{{ID: 1, Name: "Toy"}, {ID: 2, Name: "Ball"}},
				total:    12,
			},
			pagination:     PaginationDto{Page: 1, Limit: 10},
			expectedOffset: 0,
			expectedMeta:   PageMeta{Total: 12, Page: 1, LastPage: 2},
			expectedLen:    2,
		},
		{
			name:           "Success - page beyond the last one",
			mockStore:      &mockProductStore{products: []store.Product{}, total: 12},
			pagination:     PaginationDto{Page: 5, Limit: 10},
			expectedOffset: 40,
			expectedMeta:   PageMeta{Total: 12, Page: 5, LastPage: 2},
			expectedLen:    0,
		},
		{
			name:          "Success - offset past the int range yields an empty page",
			mockStore:     &mockProductStore{products: []store.Product{{ID: 1}}, total: 25},
			pagination:    PaginationDto{Page: 1<<62 + 1, Limit: 4},
			expectedMeta:  PageMeta{Total: 25, Page: 1<<62 + 1, LastPage: 7},
			expectedLen:   0,
			expectNoFetch: true,
		},
		{
			name:           "Success - no products",
			mockStore:      &mockProductStore{products: []store.Product{}},
			pagination:     PaginationDto{Page: 1, Limit: 10},
			expectedOffset: 0,
			expectedMeta:   PageMeta{Total: 0, Page: 1, LastPage: 0},
			expectedLen:    0,
		},
		{
			name:        "Error - store error",
			mockStore:   &mockProductStore{error: ErrStoreError},
			pagination:  PaginationDto{Page: 1, Limit: 10},
			expectError: ErrStoreError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			service := newTestService(tc.mockStore)
			// when
			page, err := service.FindAll(context.Background(), tc.pagination)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Equal(t, perrors.KindInfrastructure, perrors.KindOf(err))
				assert.Nil(t, page)
				return
			}
			require.NoError(t, err)
			if tc.expectNoFetch {
				assert.Zero(t, tc.mockStore.fetches)
			} else {
				assert.Equal(t, tc.expectedOffset, tc.mockStore.offset)
				assert.Equal(t, tc.pagination.Limit, tc.mockStore.limit)
			}
			assert.Equal(t, tc.expectedMeta, page.Meta)
			assert.NotNil(t, page.Data)
			assert.Len(t, page.Data, tc.expectedLen)
		})
	}
}

func Test_ProductService_FindByID(t *testing.T) {
	ErrStoreError := errors.New("connection refused")
	testCases := []struct {
		name        string
		mockStore   *mockProductStore
		productID   int64
		expected    *ProductDto
		expectKind  perrors.Kind
		expectError error
	}{
		{
			name:      "Success - product found",
			mockStore: &mockProductStore{product: store.Product{ID: 1, Name: "Toy", Available: true}},
			productID: 1,
			expected:  &ProductDto{ID: 1, Name: "Toy", Available: true},
		},
		{
			name:        "Error - product not found",
			mockStore:   &mockProductStore{error: perrors.ErrProductNotFound},
			productID:   2,
			expectKind:  perrors.KindNotFound,
			expectError: perrors.ErrProductNotFound,
		},
		{
			name:        "Error - store error",
			mockStore:   &mockProductStore{error: ErrStoreError},
			productID:   3,
			expectKind:  perrors.KindInfrastructure,
			expectError: ErrStoreError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			service := newTestService(tc.mockStore)
			// when
			found, err := service.FindByID(context.Background(), tc.productID)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Equal(t, tc.expectKind, perrors.KindOf(err))
				assert.Nil(t, found)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, found)
		})
	}
}

func Test_ProductService_FindByID_NotFoundMessage(t *testing.T) {
	service := newTestService(&mockProductStore{error: perrors.ErrProductNotFound})

	_, err := service.FindByID(context.Background(), 42)

	status, message, _ := perrors.Public(err)
	assert.Equal(t, 400, status)
	assert.Equal(t, "Product #42 not found", message)
}

func Test_ProductService_Create(t *testing.T) {
	// given
	mock := &mockProductStore{product: store.Product{ID: 7}}
	service := newTestService(mock)

	// when
	created, err := service.Create(context.Background(), ProductCreateDto{Name: "Lamp", Description: "desk", Price: 12.5})

	// then
	require.NoError(t, err)
	assert.Equal(t, &ProductDto{ID: 7, Name: "Lamp", Description: "desk", Price: 12.5, Available: true}, created)
	assert.Equal(t, 1, mock.writes)
}

func Test_ProductService_Update(t *testing.T) {
	name := "Desk Lamp"
	price := 0.0
	testCases := []struct {
		name           string
		mockStore      *mockProductStore
		dto            ProductUpdateDto
		expectedFields map[string]any
		expectedWrites int
		expectKind     perrors.Kind
		expectError    bool
	}{
		{
			name:           "Success - only supplied fields",
			mockStore:      &mockProductStore{product: store.Product{ID: 1, Name: "Lamp"}},
			dto:            ProductUpdateDto{ID: 1, Name: &name, Price: &price},
			expectedFields: map[string]any{store.ColumnName: name, store.ColumnPrice: price},
			expectedWrites: 1,
		},
		{
			name:           "Success - nothing to change",
			mockStore:      &mockProductStore{product: store.Product{ID: 1, Name: "Lamp"}},
			dto:            ProductUpdateDto{ID: 1},
			expectedFields: map[string]any{},
			expectedWrites: 1,
		},
		{
			name:           "Error - missing product is not written",
			mockStore:      &mockProductStore{error: perrors.ErrProductNotFound},
			dto:            ProductUpdateDto{ID: 9, Name: &name},
			expectedWrites: 0,
			expectKind:     perrors.KindNotFound,
			expectError:    true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			service := newTestService(tc.mockStore)
			// when
			updated, err := service.Update(context.Background(), tc.dto)
			// then
			assert.Equal(t, tc.expectedWrites, tc.mockStore.writes)
			if tc.expectError {
				require.Error(t, err)
				assert.Equal(t, tc.expectKind, perrors.KindOf(err))
				assert.Nil(t, updated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedFields, tc.mockStore.fields)
		})
	}
}

func Test_ProductService_Remove(t *testing.T) {
	t.Run("Success - flag cleared", func(t *testing.T) {
		mock := &mockProductStore{product: store.Product{ID: 3, Name: "Chair", Available: true}}
		service := newTestService(mock)

		removed, err := service.Remove(context.Background(), 3)

		require.NoError(t, err)
		assert.False(t, removed.Available)
		assert.Equal(t, "Chair", removed.Name)
		assert.Equal(t, 1, mock.writes)
	})

	t.Run("Error - missing product is not written", func(t *testing.T) {
		mock := &mockProductStore{error: perrors.ErrProductNotFound}
		service := newTestService(mock)

		_, err := service.Remove(context.Background(), 3)

		assert.ErrorIs(t, err, perrors.ErrProductNotFound)
		assert.Equal(t, 0, mock.writes)
	})
}

// The scenarios below run against the in-memory store.

func Test_Scenario_Pagination(t *testing.T) {
	// given
	ctx := context.Background()
	service := newTestService(store.NewInMemoryStore())
	for i := range 25 {
		_, err := service.Create(ctx, ProductCreateDto{Name: "Product", Price: float64(i)})
		require.NoError(t, err)
	}

	for page, expectedLen := range map[int]int{1: 10, 2: 10, 3: 5, 4: 0} {
		// when
		result, err := service.FindAll(ctx, PaginationDto{Page: page, Limit: 10})

		// then
		require.NoError(t, err)
		assert.Len(t, result.Data, expectedLen, "page %d", page)
		assert.Equal(t, PageMeta{Total: 25, Page: page, LastPage: 3}, result.Meta)
	}
}

func Test_Scenario_CreateThenGet(t *testing.T) {
	// given
	ctx := context.Background()
	service := newTestService(store.NewInMemoryStore())
	created, err := service.Create(ctx, ProductCreateDto{Name: "Headphones", Description: "over-ear", Price: 129})
	require.NoError(t, err)

	// when
	found, err := service.FindByID(ctx, created.ID)

	// then
	require.NoError(t, err)
	assert.Equal(t, created, found)
}

func Test_Scenario_RemoveThenList(t *testing.T) {
	// given
	ctx := context.Background()
	service := newTestService(store.NewInMemoryStore())
	var ids []int64
	for range 3 {
		p, err := service.Create(ctx, ProductCreateDto{Name: "Item", Price: 1})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	// when
	_, err := service.Remove(ctx, ids[1])
	require.NoError(t, err)
	page, err := service.FindAll(ctx, NewPaginationDto())

	// then
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Meta.Total)
	for _, p := range page.Data {
		assert.NotEqual(t, ids[1], p.ID)
	}
	_, err = service.FindByID(ctx, ids[1])
	assert.Equal(t, perrors.KindNotFound, perrors.KindOf(err))
	_, err = service.Remove(ctx, ids[1])
	assert.Equal(t, perrors.KindNotFound, perrors.KindOf(err))
}
