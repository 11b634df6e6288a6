package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"casecraft_echo/internal/models"
)

// StripeService creates Stripe Checkout sessions in payment mode.
type StripeService struct {
	api           *client.API
	webhookSecret string
}

func NewStripeService(secretKey, webhookSecret string) *StripeService {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeService{api: api, webhookSecret: webhookSecret}
}

func (s *StripeService) Name() models.PaymentGateway {
	return models.PaymentGatewayStripe
}

func (s *StripeService) CreateSession(ctx context.Context, req SessionRequest) (*SessionResult, error) {
	params := buildCheckoutParams(req)
	params.Context = ctx

	session, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create checkout session error: %w", err)
	}
	if session.URL == "" {
		return nil, fmt.Errorf("stripe returned no url for session %s", session.ID)
	}

	reqBytes, _ := json.Marshal(params)
	respBytes, _ := json.Marshal(session)
	return &SessionResult{
		SessionID:   session.ID,
		RedirectURL: session.URL,
		Request:     reqBytes,
		Response:    respBytes,
	}, nil
}

func (s *StripeService) SessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	session, err := s.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get checkout session error: %w", err)
	}
	status := stripeSessionStatus(session)
	return &status, nil
}

func (s *StripeService) ParseNotification(ctx context.Context, body []byte, header http.Header) (*Notification, error) {
	event, err := webhook.ConstructEventWithOptions(body, header.Get("Stripe-Signature"), s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	n := &Notification{EventID: event.ID, Payload: body}
	if !strings.HasPrefix(string(event.Type), "checkout.session.") || event.Data == nil {
		n.Status.State = PaymentStatePending
		return n, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	n.Status = stripeSessionStatus(&session)

	switch string(event.Type) {
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		n.Status.State = PaymentStateFailed
	}
	return n, nil
}

func buildCheckoutParams(req SessionRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		ClientReferenceID:  stripe.String(req.OrderID),
	}
	if req.Customer.Email != "" {
		params.CustomerEmail = stripe.String(req.Customer.Email)
	}
	if len(req.AllowedCountries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(req.AllowedCountries),
		}
	}

	for _, item := range req.Items {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.ImageURL != "" {
			product.Images = stripe.StringSlice([]string{item.ImageURL})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}

func stripeSessionStatus(session *stripe.CheckoutSession) SessionStatus {
	status := SessionStatus{
		SessionID: session.ID,
		State:     PaymentStatePending,
		Metadata:  session.Metadata,
	}
	switch {
	case session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		status.State = PaymentStatePaid
		status.PaidAt = time.Now()
	case session.Status == stripe.CheckoutSessionStatusExpired:
		status.State = PaymentStateFailed
	}

	if session.ShippingDetails != nil && session.ShippingDetails.Address != nil {
		status.ShippingAddress = stripeAddress(session.ShippingDetails.Name, session.ShippingDetails.Phone, session.ShippingDetails.Address)
	}
	if session.CustomerDetails != nil && session.CustomerDetails.Address != nil {
		status.BillingAddress = stripeAddress(session.CustomerDetails.Name, session.CustomerDetails.Phone, session.CustomerDetails.Address)
	}
	return status
}

func stripeAddress(name, phone string, a *stripe.Address) *models.Address {
	street := a.Line1
	if a.Line2 != "" {
		street += ", " + a.Line2
	}
	return &models.Address{
		Name:       name,
		Street:     street,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		State:      a.State,
		Phone:      phone,
	}
}
