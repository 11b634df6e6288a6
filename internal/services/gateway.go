package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"casecraft_echo/internal/models"
)

// PaymentState is the provider-independent outcome of a payment session.
type PaymentState string

const (
	PaymentStatePending PaymentState = "pending"
	PaymentStatePaid    PaymentState = "paid"
	PaymentStateFailed  PaymentState = "failed"
)

var (
	ErrInvalidSignature    = errors.New("invalid notification signature")
	ErrUnsupportedCurrency = errors.New("currency not supported by payment gateway")
)

// Metadata keys attached to every provider session.
const (
	MetadataOrderID         = "order_id"
	MetadataUserID          = "user_id"
	MetadataConfigurationID = "configuration_id"
)

type LineItem struct {
	ID         string
	Name       string
	ImageURL   string
	UnitAmount int64
	Quantity   int64
}

type Customer struct {
	Email string
	Name  string
}

// SessionRequest describes the hosted checkout session to create.
type SessionRequest struct {
	OrderID          string
	Currency         string
	Items            []LineItem
	Customer         Customer
	SuccessURL       string
	CancelURL        string
	Metadata         map[string]string
	AllowedCountries []string
}

// Total is the sum of all line items.
func (r SessionRequest) Total() int64 {
	var total int64
	for _, item := range r.Items {
		total += item.UnitAmount * item.Quantity
	}
	return total
}

type SessionResult struct {
	SessionID   string
	RedirectURL string
	Request     json.RawMessage
	Response    json.RawMessage
}

// SessionStatus is what the provider currently reports for a session.
type SessionStatus struct {
	SessionID       string
	State           PaymentState
	PaidAt          time.Time
	Metadata        map[string]string
	ShippingAddress *models.Address
	BillingAddress  *models.Address
}

// Notification is a verified asynchronous event from the provider.
type Notification struct {
	EventID string
	Status  SessionStatus
	Payload json.RawMessage
}

type PaymentGateway interface {
	Name() models.PaymentGateway
	CreateSession(ctx context.Context, req SessionRequest) (*SessionResult, error)
	SessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error)
	// ParseNotification verifies and decodes a webhook body. It returns
	// ErrInvalidSignature when the payload was not sent by the provider.
	ParseNotification(ctx context.Context, body []byte, header http.Header) (*Notification, error)
}

// CurrencyRestricted is implemented by gateways that only settle some currencies.
type CurrencyRestricted interface {
	SupportsCurrency(currency string) bool
}

// SupportsCurrency reports whether g can charge amounts in currency.
func SupportsCurrency(g PaymentGateway, currency string) bool {
	if r, ok := g.(CurrencyRestricted); ok {
		return r.SupportsCurrency(currency)
	}
	return true
}
