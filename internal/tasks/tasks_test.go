package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"casecraft_echo/internal/models"
	"casecraft_echo/internal/services"
)

type mockSyncer struct {
	mock.Mock
}

func (m *mockSyncer) SyncOrder(ctx context.Context, orderID uuid.UUID) (*services.StatusResult, error) {
	args := m.Called(ctx, orderID)
	r, _ := args.Get(0).(*services.StatusResult)
	return r, args.Error(1)
}

func (m *mockSyncer) SyncPending(ctx context.Context, since time.Time, limit int) (services.SyncSummary, error) {
	args := m.Called(ctx, since, limit)
	return args.Get(0).(services.SyncSummary), args.Error(1)
}

type fakeOrders map[uuid.UUID]*models.Order

func (f fakeOrders) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	o, ok := f[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return o, nil
}

type fakeMailer struct {
	to      []string
	subject string
	body    string
	err     error
}

func (f *fakeMailer) SendEmail(to []string, subject, body string) error {
	f.to, f.subject, f.body = to, subject, body
	return f.err
}

func TestSyncPendingPaymentsTask(t *testing.T) {
	ctx := context.Background()
	syncer := &mockSyncer{}
	syncer.On("SyncPending", ctx, mock.MatchedBy(func(since time.Time) bool {
		return time.Since(since) > 47*time.Hour && time.Since(since) < 49*time.Hour
	}), 10).Return(services.SyncSummary{Checked: 3, Paid: 1, Failed: 1, Errors: 1}, nil)

	def := NewSyncPendingPaymentsTask(syncer)
	task, err := def.CreateTask(SyncPendingPaymentsArgs{WindowHours: 48, Limit: 10}, time.Now(), DefaultSyncRule)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduledTaskTypeRecurring, task.TaskType)
	assert.Equal(t, DefaultSyncRule, *task.RecurringInterval)

	result, err := def.HandleExecution(ctx, *task)
	require.NoError(t, err)
	assert.Equal(t, 3, result["checked"])
	assert.Equal(t, 1, result["paid"])
	syncer.AssertExpectations(t)
}

func TestSyncPendingPaymentsTask_Defaults(t *testing.T) {
	ctx := context.Background()
	syncer := &mockSyncer{}
	syncer.On("SyncPending", ctx, mock.Anything, 100).Return(services.SyncSummary{}, nil)

	def := NewSyncPendingPaymentsTask(syncer)
	_, err := def.HandleExecution(ctx, models.ScheduledTask{TaskName: def.TaskID()})
	require.NoError(t, err)
	syncer.AssertExpectations(t)
}

func TestSyncOrderPaymentTask(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()
	syncer := &mockSyncer{}
	syncer.On("SyncOrder", ctx, orderID).Return(&services.StatusResult{State: services.PaymentStatePaid}, nil)

	def := NewSyncOrderPaymentTask(syncer)
	task, err := def.CreateTask(orderID, time.Now())
	require.NoError(t, err)

	result, err := def.HandleExecution(ctx, *task)
	require.NoError(t, err)
	assert.Equal(t, "paid", result["state"])

	_, err = def.HandleExecution(ctx, models.ScheduledTask{Arguments: map[string]interface{}{"order_id": "nope"}})
	assert.ErrorContains(t, err, "order_id")
}

func TestSendOrderConfirmationTask(t *testing.T) {
	ctx := context.Background()
	paid := &models.Order{
		ID:       uuid.New(),
		UserID:   1,
		Amount:   2900,
		Currency: "usd",
		IsPaid:   true,
		User:     models.User{Email: "a@example.com", Name: "Alice"},
		Configuration: models.Configuration{
			Model: "iphone13", Material: "polycarbonate", Finish: "textured",
		},
	}
	unpaid := &models.Order{ID: uuid.New(), User: models.User{Email: "b@example.com"}}
	orders := fakeOrders{paid.ID: paid, unpaid.ID: unpaid}

	t.Run("sends to owner", func(t *testing.T) {
		mailer := &fakeMailer{}
		def := NewSendOrderConfirmationTask(orders, mailer, "https://shop.test")
		task, err := def.CreateTask(paid.ID)
		require.NoError(t, err)

		result, err := def.HandleExecution(ctx, *task)
		require.NoError(t, err)
		assert.Equal(t, "sent", result["status"])
		assert.Equal(t, []string{"a@example.com"}, mailer.to)
		assert.Contains(t, mailer.body, "Hi Alice")
		assert.Contains(t, mailer.body, "29.00 USD")
		assert.Contains(t, mailer.body, "https://shop.test/thank-you?orderId="+paid.ID.String())
	})

	t.Run("skips unpaid order", func(t *testing.T) {
		mailer := &fakeMailer{}
		def := NewSendOrderConfirmationTask(orders, mailer, "https://shop.test")
		task, err := def.CreateTask(unpaid.ID)
		require.NoError(t, err)

		result, err := def.HandleExecution(ctx, *task)
		require.NoError(t, err)
		assert.Equal(t, "skipped", result["status"])
		assert.Empty(t, mailer.to)
	})

	t.Run("mail failure is returned for retry", func(t *testing.T) {
		mailer := &fakeMailer{err: errors.New("smtp down")}
		def := NewSendOrderConfirmationTask(orders, mailer, "https://shop.test")
		task, err := def.CreateTask(paid.ID)
		require.NoError(t, err)

		_, err = def.HandleExecution(ctx, *task)
		assert.ErrorContains(t, err, "smtp down")
	})
}

func TestConfirmationScheduler(t *testing.T) {
	store := newMemTaskStore()
	scheduler := NewConfirmationScheduler(store, NewSendOrderConfirmationTask(nil, nil, ""))
	orderID := uuid.New()

	require.NoError(t, scheduler.ScheduleOrderConfirmation(context.Background(), orderID))
	require.Len(t, store.created, 1)
	assert.Equal(t, "send_order_confirmation", store.created[0].TaskName)
	assert.Equal(t, orderID.String(), store.created[0].Arguments["order_id"])
	assert.Equal(t, models.ScheduledTaskStatusActive, store.created[0].Status)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "14.00 USD", formatAmount(1400, "usd"))
	assert.Equal(t, "0.05 EUR", formatAmount(5, "eur"))
	assert.Equal(t, "297000 IDR", formatAmount(297000, "idr"))
}
