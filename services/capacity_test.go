package services

import (
	"context"
	"testing"
	"time"

	"festival-ticketing/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCheckCapacity(t *testing.T) {
	ctx := context.Background()

	t.Run("unlimited without setting", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newTestCapacity(db)
		createRegistration(t, db, "fg", map[string]interface{}{"category": "Lomba foto"}, "", models.StatusPending)

		res := svc.CheckCapacity(ctx, "FG", "Lomba foto")
		assert.True(t, res.Available)
		assert.True(t, res.Unlimited)
		assert.Equal(t, UnlimitedLimit, res.Limit)
		assert.Equal(t, UnlimitedRemaining, res.Remaining)
		assert.Equal(t, 1, res.Sold)
	})

	t.Run("unlimited category still reports sold seats", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newTestCapacity(db)
		createRegistration(t, db, "konser", map[string]interface{}{"category": "Umum", "quantity": "4"}, "", models.StatusPending)
		createRegistration(t, db, "konser", map[string]interface{}{"category": "Umum", "quantity": "2"}, "", models.StatusRejected)

		res := svc.CheckCapacity(ctx, "konser", "Umum")
		assert.True(t, res.Unlimited)
		assert.True(t, res.Available)
		assert.False(t, res.Degraded)
		assert.Equal(t, 4, res.Sold)
	})

	t.Run("full category", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newTestCapacity(db)
		setLimit(t, db, "fg", "Lomba foto", 2)
		createRegistration(t, db, "fg", map[string]interface{}{"category": "Lomba foto", "quantity": "1"}, "", models.StatusPending)
		createRegistration(t, db, "fg", map[string]interface{}{"category": "Lomba foto", "quantity": "1"}, "", models.StatusPending)

		res := svc.CheckCapacity(ctx, "fg", "Lomba foto")
		assert.False(t, res.Available)
		assert.Equal(t, 2, res.Sold)
		assert.Equal(t, 2, res.Limit)
		assert.Equal(t, 0, res.Remaining)
	})

	t.Run("rejected registrations are not counted", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newTestCapacity(db)
		setLimit(t, db, "fg", "Lomba foto", 2)
		createRegistration(t, db, "fg", map[string]interface{}{"category": "Lomba foto"}, "", models.StatusVerified)
		reg := createRegistration(t, db, "fg", map[string]interface{}{"category": "Lomba foto"}, "", models.StatusPending)
		require.NoError(t, db.Model(&reg).Update("status", models.StatusRejected).Error)

		res := svc.CheckCapacity(ctx, "fg", "Lomba foto")
		assert.True(t, res.Available)
		assert.Equal(t, 1, res.Sold)
		assert.Equal(t, 1, res.Remaining)
	})

	t.Run("sums quantities and defaults malformed ones to one", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newTestCapacity(db)
		setLimit(t, db, "konser", "Sesi 1 - VIP", 10)
		createRegistration(t, db, "konser", map[string]interface{}{"sesi": "Sesi 1", "category": "VIP", "quantity": "3"}, "", models.StatusPending)
		createRegistration(t, db, "konser", map[string]interface{}{"sesi": "Sesi 1", "category": "VIP", "quantity": "banyak"}, "", models.StatusVerified)
		createRegistration(t, db, "konser", map[string]interface{}{"sesi": "Sesi 2", "category": "VIP", "quantity": "5"}, "", models.StatusPending)

		res := svc.CheckCapacity(ctx, "konser", "Sesi 1 - VIP")
		assert.Equal(t, 4, res.Sold)
		assert.Equal(t, 6, res.Remaining)
		assert.True(t, res.Available)
	})

	t.Run("category match is case sensitive", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newTestCapacity(db)
		setLimit(t, db, "fg", "Lomba foto", 1)
		createRegistration(t, db, "fg", map[string]interface{}{"category": "lomba foto"}, "", models.StatusPending)

		res := svc.CheckCapacity(ctx, "fg", "Lomba foto")
		assert.Equal(t, 0, res.Sold)
		assert.True(t, res.Available)
	})

	t.Run("closed outside registration window", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newTestCapacity(db)
		end := testNow.Add(-time.Hour)
		require.NoError(t, db.Create(&models.UnitSetting{
			ID: uuid.NewString(), UnitKey: "tesas", CategoryName: "Monolog", Limit: 10, EndDate: &end,
		}).Error)

		res := svc.CheckCapacity(ctx, "tesas", "Monolog")
		assert.False(t, res.Available)
		assert.True(t, res.Closed)
		assert.Equal(t, 10, res.Remaining)
	})

	t.Run("fails open when the store is unavailable", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newTestCapacity(db)
		sqlDB, err := db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())

		res := svc.CheckCapacity(ctx, "fg", "Lomba foto")
		assert.True(t, res.Available)
		assert.True(t, res.Degraded)
		assert.Equal(t, DegradedRemaining, res.Remaining)
	})
}

func TestListAvailability(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestCapacity(db)
	setLimit(t, db, "fg", "Lomba foto", 5)
	setLimit(t, db, "fg", "Pameran", 1)
	setLimit(t, db, "psm", "Paduan suara", 3)
	createRegistration(t, db, "fg", map[string]interface{}{"category": "Lomba foto", "quantity": 2.0}, "", models.StatusPending)
	createRegistration(t, db, "fg", map[string]interface{}{"category": "Pameran"}, "", models.StatusVerified)

	res, err := svc.ListAvailability(context.Background(), "fg")
	require.NoError(t, err)
	require.Len(t, res, 2)

	assert.Equal(t, "Lomba foto", res[0].Category)
	assert.Equal(t, 2, res[0].Sold)
	assert.Equal(t, 3, res[0].Remaining)
	assert.True(t, res[0].Available)

	assert.Equal(t, "Pameran", res[1].Category)
	assert.False(t, res[1].Available)
}

func TestReserve(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestCapacity(db)
	setLimit(t, db, "fg", "Lomba foto", 3)
	createRegistration(t, db, "fg", map[string]interface{}{"category": "Lomba foto", "quantity": "2"}, "", models.StatusPending)

	err := db.Transaction(func(tx *gorm.DB) error {
		assert.Equal(t, Reserved, svc.Reserve(tx, "fg", "Lomba foto", 1).Status)
		assert.Equal(t, CapacityExceeded, svc.Reserve(tx, "fg", "Lomba foto", 2).Status)
		assert.Equal(t, Reserved, svc.Reserve(tx, "fg", "Tanpa batas", 50).Status)
		return nil
	})
	require.NoError(t, err)
}
