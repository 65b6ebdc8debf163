package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newSQLiteDB opens an isolated in-memory sqlite database with the products table.
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "open sqlite")
	require.NoError(t, db.AutoMigrate(&Product{}), "migrate products")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestGormStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) ProductStore {
		return NewGormStore(newSQLiteDB(t))
	})
}

func TestGormStore_ClosedDatabase(t *testing.T) {
	// given
	db := newSQLiteDB(t)
	s := NewGormStore(db)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	ctx := context.Background()

	// when
	_, errCount := s.CountAvailable(ctx)
	_, errList := s.FindAllAvailable(ctx, 0, 10)
	_, errFind := s.FindAvailableByID(ctx, 1)

	// then
	for _, err := range []error{errCount, errList, errFind} {
		require.Error(t, err)
		assert.False(t, errors.Is(err, gorm.ErrRecordNotFound))
	}
	assert.Contains(t, errCount.Error(), "failed to count products")
}
