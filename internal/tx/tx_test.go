package tx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type item struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&item{}))
	return db
}

func count(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&item{}).Count(&n).Error)
	return n
}

func TestRun_CommitsAndFiresAfterCommit(t *testing.T) {
	db := newDB(t)
	fired := 0

	err := Run(context.Background(), db, func(ctx context.Context) error {
		_, ok := From(ctx)
		assert.True(t, ok)
		AfterCommit(ctx, func() { fired++ })
		return DB(ctx, db).Create(&item{Name: "a"}).Error
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), count(t, db))
	assert.Equal(t, 1, fired)
}

func TestRun_RollsBackAndDropsCallbacks(t *testing.T) {
	db := newDB(t)
	errBoom := errors.New("boom")
	fired := false

	err := Run(context.Background(), db, func(ctx context.Context) error {
		AfterCommit(ctx, func() { fired = true })
		require.NoError(t, DB(ctx, db).Create(&item{Name: "a"}).Error)
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	assert.Zero(t, count(t, db))
	assert.False(t, fired)
}

func TestRun_NestedJoinsOuter(t *testing.T) {
	db := newDB(t)
	errOuter := errors.New("outer")
	fired := false

	err := Run(context.Background(), db, func(ctx context.Context) error {
		outer, _ := From(ctx)
		innerErr := Run(ctx, db, func(ctx context.Context) error {
			inner, _ := From(ctx)
			assert.Same(t, outer, inner)
			AfterCommit(ctx, func() { fired = true })
			return DB(ctx, db).Create(&item{Name: "inner"}).Error
		})
		require.NoError(t, innerErr)
		assert.False(t, fired, "callbacks wait for the outermost commit")
		return errOuter
	})
	assert.ErrorIs(t, err, errOuter)

	assert.Zero(t, count(t, db))
	assert.False(t, fired)
}

func TestWithTx_CommittedFiresCallbacks(t *testing.T) {
	db := newDB(t)
	fired := 0

	txDB := db.Begin()
	ctx := WithTx(context.Background(), txDB)
	require.NoError(t, Run(ctx, db, func(ctx context.Context) error {
		AfterCommit(ctx, func() { fired++ })
		return DB(ctx, db).Create(&item{Name: "a"}).Error
	}))
	assert.Zero(t, fired)

	require.NoError(t, txDB.Commit().Error)
	Committed(ctx)
	Committed(ctx)
	assert.Equal(t, 1, fired)
	assert.Equal(t, int64(1), count(t, db))
}

func TestAfterCommit_WithoutTransactionRunsNow(t *testing.T) {
	fired := false
	AfterCommit(context.Background(), func() { fired = true })
	assert.True(t, fired)

	_, ok := From(context.Background())
	assert.False(t, ok)
}
