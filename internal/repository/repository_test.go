package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"casecraft_echo/internal/models"
)

// openTestDB connects to TEST_DATABASE_URL and skips the test when it is unset.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedUserAndConfiguration(t *testing.T, db *gorm.DB) (*models.User, *models.Configuration) {
	t.Helper()
	ctx := context.Background()

	user, err := NewUserRepository(db).Upsert(ctx, &models.User{
		FirebaseUID: "uid-" + uuid.NewString(),
		Email:       "buyer@example.com",
		Name:        "Buyer",
	})
	require.NoError(t, err)

	cfg := &models.Configuration{Model: "iphone13", Material: "silicone", Finish: "smooth", ImageURL: "https://img/x.png"}
	require.NoError(t, NewConfigurationRepository(db).Create(ctx, cfg))
	return user, cfg
}

func TestUserRepository_Upsert(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	uid := "uid-" + uuid.NewString()

	first, err := repo.Upsert(ctx, &models.User{FirebaseUID: uid, Email: "a@example.com", Name: "Alice"})
	require.NoError(t, err)

	second, err := repo.Upsert(ctx, &models.User{FirebaseUID: uid, Email: "b@example.com"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "b@example.com", second.Email)
	assert.Equal(t, "Alice", second.Name)
}

func TestOrderRepository_InsertOpenConverges(t *testing.T) {
	db := openTestDB(t)
	repo := NewOrderRepository(db)
	user, cfg := seedUserAndConfiguration(t, db)
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = repo.InsertOpen(ctx, &models.Order{
				UserID:          user.ID,
				ConfigurationID: cfg.ID,
				Amount:          1400,
				Currency:        "usd",
				Status:          models.OrderStatusAwaitingShipment,
			})
		}(i)
	}
	wg.Wait()

	inserted := 0
	for _, err := range results {
		if err == nil {
			inserted++
			continue
		}
		assert.ErrorIs(t, err, ErrOpenOrderExists)
	}
	assert.Equal(t, 1, inserted)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).
		Where("user_id = ? AND configuration_id = ? AND is_paid = ?", user.ID, cfg.ID, false).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestOrderRepository_PaidLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewOrderRepository(db)
	user, cfg := seedUserAndConfiguration(t, db)
	ctx := context.Background()

	order := &models.Order{UserID: user.ID, ConfigurationID: cfg.ID, Amount: 1400, Currency: "usd", Status: models.OrderStatusAwaitingShipment}
	require.NoError(t, repo.InsertOpen(ctx, order))

	require.NoError(t, repo.AttachSession(ctx, order.ID, &models.PaymentSession{
		UserID:         user.ID,
		PaymentGateway: models.PaymentGatewayStripe,
		SessionID:      "cs_" + uuid.NewString(),
		RedirectURL:    "https://pay.example/1",
	}))

	changed, err := repo.MarkPaid(ctx, order.ID, PaidDetails{
		PaidAt:          time.Now(),
		ShippingAddress: &models.Address{Name: "Buyer", Street: "Main 1", City: "Berlin", PostalCode: "10115", Country: "DE"},
	})
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkPaid(ctx, order.ID, PaidDetails{PaidAt: time.Now()})
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := repo.FindForUser(ctx, order.ID, user.FirebaseUID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	require.NotNil(t, got.ShippingAddress)
	assert.Equal(t, "Berlin", got.ShippingAddress.City)
	assert.Equal(t, cfg.ID, got.Configuration.ID)

	_, err = repo.FindForUser(ctx, order.ID, "someone-else")
	assert.ErrorIs(t, err, ErrNotFound)

	// A paid order frees the slot for a new open order.
	next := &models.Order{UserID: user.ID, ConfigurationID: cfg.ID, Amount: 1400, Currency: "usd", Status: models.OrderStatusAwaitingShipment}
	require.NoError(t, repo.InsertOpen(ctx, next))

	require.NoError(t, repo.UpdateStatus(ctx, order.ID, models.OrderStatusAwaitingShipment, models.OrderStatusShipped))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, order.ID, models.OrderStatusAwaitingShipment, models.OrderStatusShipped), ErrConflict)
}

func TestCallbackRepository_RecordDedupes(t *testing.T) {
	db := openTestDB(t)
	repo := NewCallbackRepository(db)
	ctx := context.Background()
	eventID := "evt_" + uuid.NewString()

	require.NoError(t, repo.Record(ctx, &models.PaymentCallbackHistory{PaymentGateway: models.PaymentGatewayStripe, EventID: eventID}))
	err := repo.Record(ctx, &models.PaymentCallbackHistory{PaymentGateway: models.PaymentGatewayStripe, EventID: eventID})
	assert.ErrorIs(t, err, ErrDuplicateEvent)

	stored, err := repo.FindEvent(ctx, models.PaymentGatewayStripe, eventID)
	require.NoError(t, err)
	assert.Nil(t, stored.ProcessedAt)

	require.NoError(t, repo.MarkProcessed(ctx, stored.ID, errors.New("db timeout")))
	stored, err = repo.FindEvent(ctx, models.PaymentGatewayStripe, eventID)
	require.NoError(t, err)
	assert.Equal(t, "db timeout", stored.ProcessingError)

	require.NoError(t, repo.MarkProcessed(ctx, stored.ID, nil))
	stored, err = repo.FindEvent(ctx, models.PaymentGatewayStripe, eventID)
	require.NoError(t, err)
	assert.Empty(t, stored.ProcessingError)
	assert.NotNil(t, stored.ProcessedAt)

	_, err = repo.FindEvent(ctx, models.PaymentGatewayMidtrans, eventID)
	assert.ErrorIs(t, err, ErrNotFound)
}
