package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// IdentityVerifier verifies credentials presented with a request.
type IdentityVerifier interface {
	Verify(ctx context.Context, cred Credential) (*Identity, error)
	VerifyMatches(ctx context.Context, cred Credential, expectedSubjectID string) (*Identity, error)
}

type CheckoutRequest struct {
	ConfigurationID uuid.UUID
	Credential      Credential
	// ClaimedUserID is the subject the client believes it is. When set, the
	// credential must belong to it.
	ClaimedUserID string
}

type CheckoutResult struct {
	URL       string
	OrderID   uuid.UUID
	SessionID string
}

type CheckoutOptions struct {
	AppURL           string
	AllowedCountries []string
}

type CheckoutService struct {
	identity       IdentityVerifier
	users          *UserService
	configurations *ConfigurationService
	orders         *OrderService
	gateway        PaymentGateway
	locker         Locker
	opts           CheckoutOptions
}

func NewCheckoutService(
	identity IdentityVerifier,
	users *UserService,
	configurations *ConfigurationService,
	orders *OrderService,
	gateway PaymentGateway,
	locker Locker,
	opts CheckoutOptions,
) *CheckoutService {
	if locker == nil {
		locker = NoopLocker{}
	}
	return &CheckoutService{
		identity:       identity,
		users:          users,
		configurations: configurations,
		orders:         orders,
		gateway:        gateway,
		locker:         locker,
		opts:           opts,
	}
}

// CreateCheckoutSession turns a configuration into a hosted payment session
// for the authenticated caller and returns the URL to redirect to. The order
// is reused across attempts; a failed provider call leaves it without a
// session reference and is not retried here.
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	identity, err := s.verify(ctx, req)
	if err != nil {
		return nil, err
	}

	cfg, err := s.configurations.Get(ctx, req.ConfigurationID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.EnsureUser(ctx, identity)
	if err != nil {
		return nil, err
	}

	quote, err := s.configurations.Quote(cfg)
	if err != nil {
		log.Error().Err(err).
			Str("user_id", identity.SubjectID).
			Str("configuration_id", cfg.ID.String()).
			Msg("configuration cannot be priced")
		return nil, err
	}

	order, _, err := s.orders.GetOrCreateOpenOrder(ctx, user.ID, cfg.ID, quote.Total, quote.Currency)
	if err != nil {
		return nil, err
	}

	logger := log.With().
		Str("order_id", order.ID.String()).
		Str("user_id", identity.SubjectID).
		Str("configuration_id", cfg.ID.String()).
		Logger()

	unlock, err := s.locker.Lock(ctx, "checkout:order:"+order.ID.String())
	if err != nil {
		logger.Error().Err(err).Msg("failed to lock order for checkout")
		return nil, newError(ErrInternal, err)
	}
	defer unlock()

	sessionReq := SessionRequest{
		OrderID:  order.ID.String(),
		Currency: order.Currency,
		Items: []LineItem{{
			ID:         cfg.ID.String(),
			Name:       fmt.Sprintf("Custom %s Case", cfg.Model),
			ImageURL:   cfg.ImageURL,
			UnitAmount: order.Amount,
			Quantity:   1,
		}},
		Customer:   Customer{Email: user.Email, Name: user.Name},
		SuccessURL: fmt.Sprintf("%s/thank-you?orderId=%s", s.opts.AppURL, order.ID),
		CancelURL:  fmt.Sprintf("%s/configure/preview?id=%s", s.opts.AppURL, cfg.ID),
		Metadata: map[string]string{
			MetadataOrderID:         order.ID.String(),
			MetadataUserID:          identity.SubjectID,
			MetadataConfigurationID: cfg.ID.String(),
		},
		AllowedCountries: s.opts.AllowedCountries,
	}

	result, err := s.gateway.CreateSession(ctx, sessionReq)
	if err != nil {
		logger.Error().Err(err).Str("gateway", string(s.gateway.Name())).Msg("failed to create payment session")
		return nil, newError(ErrPaymentProvider, err)
	}

	if err := s.orders.AttachSession(ctx, order, s.gateway.Name(), result); err != nil {
		return nil, err
	}

	logger.Info().Str("session_id", result.SessionID).Msg("checkout session created")
	return &CheckoutResult{
		URL:       result.RedirectURL,
		OrderID:   order.ID,
		SessionID: result.SessionID,
	}, nil
}

func (s *CheckoutService) verify(ctx context.Context, req CheckoutRequest) (*Identity, error) {
	if req.ClaimedUserID != "" {
		return s.identity.VerifyMatches(ctx, req.Credential, req.ClaimedUserID)
	}
	return s.identity.Verify(ctx, req.Credential)
}
