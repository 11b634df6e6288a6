package services

import (
	"context"
	"net/http"
	"sync"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"casecraft_echo/internal/models"
	"casecraft_echo/internal/repository"
)

// memStore is an in-memory stand-in for the repositories. It enforces the
// same uniqueness rules as the database schema.
type memStore struct {
	mu         sync.Mutex
	nextUserID uint
	nextID     uint
	users      map[string]*models.User
	configs    map[uuid.UUID]*models.Configuration
	orders     map[uuid.UUID]*models.Order
	sessions   []models.PaymentSession
	callbacks  map[string]*models.PaymentCallbackHistory
	addresses  []models.Address

	insertErr error
	markErr   error
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[string]*models.User),
		configs:   make(map[uuid.UUID]*models.Configuration),
		orders:    make(map[uuid.UUID]*models.Order),
		callbacks: make(map[string]*models.PaymentCallbackHistory),
	}
}

func copyOrder(o *models.Order) *models.Order {
	c := *o
	if o.PaymentSessionID != nil {
		id := *o.PaymentSessionID
		c.PaymentSessionID = &id
	}
	return &c
}

func (s *memStore) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.FirebaseUID]
	if !ok {
		s.nextUserID++
		u := *user
		u.ID = s.nextUserID
		s.users[user.FirebaseUID] = &u
		c := u
		return &c, nil
	}
	existing.Email = user.Email
	if user.Name != "" {
		existing.Name = user.Name
	}
	c := *existing
	return &c, nil
}

func (s *memStore) GetByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[firebaseUID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (s *memStore) Create(ctx context.Context, cfg *models.Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	c := *cfg
	s.configs[cfg.ID] = &c
	return nil
}

func (s *memStore) Get(ctx context.Context, id uuid.UUID) (*models.Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *cfg
	return &c, nil
}

func (s *memStore) FindOpen(ctx context.Context, userID uint, configurationID uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.UserID == userID && o.ConfigurationID == configurationID && !o.IsPaid {
			return copyOrder(o), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) InsertOpen(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, o := range s.orders {
		if o.UserID == order.UserID && o.ConfigurationID == order.ConfigurationID && !o.IsPaid {
			return repository.ErrOpenOrderExists
		}
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	s.orders[order.ID] = copyOrder(order)
	return nil
}

func (s *memStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyOrder(o), nil
}

func (s *memStore) FindForUser(ctx context.Context, id uuid.UUID, firebaseUID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u, ok := s.users[firebaseUID]
	if !ok || u.ID != o.UserID {
		return nil, repository.ErrNotFound
	}
	c := copyOrder(o)
	c.User = *u
	if cfg, ok := s.configs[o.ConfigurationID]; ok {
		c.Configuration = *cfg
	}
	return c, nil
}

func (s *memStore) FindBySessionID(ctx context.Context, gateway models.PaymentGateway, sessionID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.PaymentGateway == gateway && o.PaymentSessionID != nil && *o.PaymentSessionID == sessionID {
			return copyOrder(o), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) AttachSession(ctx context.Context, orderID uuid.UUID, session *models.PaymentSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.IsPaid {
		return repository.ErrConflict
	}
	id := session.SessionID
	o.PaymentSessionID = &id
	o.PaymentGateway = session.PaymentGateway
	o.UpdatedAt = time.Now()
	for i := range s.sessions {
		if s.sessions[i].OrderID == orderID {
			s.sessions[i].IsActive = false
		}
	}
	session.OrderID = orderID
	session.IsActive = true
	s.sessions = append(s.sessions, *session)
	return nil
}

func (s *memStore) MarkPaid(ctx context.Context, orderID uuid.UUID, details repository.PaidDetails) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return false, s.markErr
	}
	o, ok := s.orders[orderID]
	if !ok || o.IsPaid {
		return false, nil
	}
	o.IsPaid = true
	paidAt := details.PaidAt
	o.PaidAt = &paidAt
	if details.ShippingAddress != nil {
		s.addresses = append(s.addresses, *details.ShippingAddress)
		o.ShippingAddress = details.ShippingAddress
	}
	if details.BillingAddress != nil {
		s.addresses = append(s.addresses, *details.BillingAddress)
		o.BillingAddress = details.BillingAddress
	}
	return true, nil
}

func (s *memStore) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || !o.IsPaid || o.Status != from {
		return repository.ErrConflict
	}
	o.Status = to
	return nil
}

func (s *memStore) ListPendingWithSessions(ctx context.Context, since time.Time, limit int) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if !o.IsPaid && o.HasSession() && !o.UpdatedAt.Before(since) && len(out) < limit {
			out = append(out, *copyOrder(o))
		}
	}
	return out, nil
}

func (s *memStore) Record(ctx context.Context, history *models.PaymentCallbackHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := string(history.PaymentGateway) + "/" + history.EventID
	if _, ok := s.callbacks[key]; ok {
		return repository.ErrDuplicateEvent
	}
	s.nextID++
	history.ID = s.nextID
	c := *history
	s.callbacks[key] = &c
	return nil
}

func (s *memStore) FindEvent(ctx context.Context, gateway models.PaymentGateway, eventID string) (*models.PaymentCallbackHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.callbacks[string(gateway)+"/"+eventID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *h
	return &c, nil
}

func (s *memStore) MarkProcessed(ctx context.Context, id uint, processingErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.callbacks {
		if h.ID == id {
			now := time.Now()
			h.ProcessedAt = &now
			h.ProcessingError = ""
			if processingErr != nil {
				h.ProcessingError = processingErr.Error()
			}
		}
	}
	return nil
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) openOrders(userID uint, configurationID uuid.UUID) []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.UserID == userID && o.ConfigurationID == configurationID && !o.IsPaid {
			out = append(out, *copyOrder(o))
		}
	}
	return out
}

type mockIdentity struct {
	mock.Mock
}

func (m *mockIdentity) Verify(ctx context.Context, cred Credential) (*Identity, error) {
	args := m.Called(ctx, cred)
	id, _ := args.Get(0).(*Identity)
	return id, args.Error(1)
}

func (m *mockIdentity) VerifyMatches(ctx context.Context, cred Credential, expectedSubjectID string) (*Identity, error) {
	args := m.Called(ctx, cred, expectedSubjectID)
	id, _ := args.Get(0).(*Identity)
	return id, args.Error(1)
}

type mockGateway struct {
	mock.Mock
	name models.PaymentGateway
}

func (m *mockGateway) Name() models.PaymentGateway {
	return m.name
}

func (m *mockGateway) CreateSession(ctx context.Context, req SessionRequest) (*SessionResult, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*SessionResult)
	return r, args.Error(1)
}

func (m *mockGateway) SessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	args := m.Called(ctx, sessionID)
	r, _ := args.Get(0).(*SessionStatus)
	return r, args.Error(1)
}

func (m *mockGateway) ParseNotification(ctx context.Context, body []byte, header http.Header) (*Notification, error) {
	args := m.Called(ctx, body, header)
	r, _ := args.Get(0).(*Notification)
	return r, args.Error(1)
}

type mockFirebaseAuth struct {
	mock.Mock
}

func (m *mockFirebaseAuth) VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error) {
	args := m.Called(ctx, idToken)
	t, _ := args.Get(0).(*auth.Token)
	return t, args.Error(1)
}

func (m *mockFirebaseAuth) VerifySessionCookieAndCheckRevoked(ctx context.Context, sessionCookie string) (*auth.Token, error) {
	args := m.Called(ctx, sessionCookie)
	t, _ := args.Get(0).(*auth.Token)
	return t, args.Error(1)
}

func (m *mockFirebaseAuth) SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	args := m.Called(ctx, idToken, expiresIn)
	return args.String(0), args.Error(1)
}

func (m *mockFirebaseAuth) RevokeRefreshTokens(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

func (m *mockFirebaseAuth) GetUser(ctx context.Context, uid string) (*auth.UserRecord, error) {
	args := m.Called(ctx, uid)
	u, _ := args.Get(0).(*auth.UserRecord)
	return u, args.Error(1)
}

type recordingScheduler struct {
	mu     sync.Mutex
	orders []uuid.UUID
}

func (r *recordingScheduler) ScheduleOrderConfirmation(ctx context.Context, orderID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, orderID)
	return nil
}

func (r *recordingScheduler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}
