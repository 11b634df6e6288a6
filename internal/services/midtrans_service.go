package services

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"

	"casecraft_echo/internal/models"
)

const (
	midtransTimeLayout = "2006-01-02 15:04:05"
	midtransCurrency   = "idr"
)

var jakarta = time.FixedZone("WIB", 7*60*60)

// MidtransService creates Snap sessions and reads transaction status through
// the Core API. The Midtrans order id doubles as the session id.
type MidtransService struct {
	serverKey  string
	snapClient snap.Client
	coreClient coreapi.Client
}

func NewMidtransService(serverKey string, isProduction bool) *MidtransService {
	env := midtrans.Sandbox
	if isProduction {
		env = midtrans.Production
	}

	var s snap.Client
	s.New(serverKey, env)

	var c coreapi.Client
	c.New(serverKey, env)

	return &MidtransService{
		serverKey:  serverKey,
		snapClient: s,
		coreClient: c,
	}
}

func (s *MidtransService) Name() models.PaymentGateway {
	return models.PaymentGatewayMidtrans
}

func (s *MidtransService) CreateSession(ctx context.Context, req SessionRequest) (*SessionResult, error) {
	snapReq, err := buildSnapRequest(req, time.Now())
	if err != nil {
		return nil, err
	}

	resp, mErr := s.snapClient.CreateTransaction(snapReq)
	if mErr != nil {
		return nil, fmt.Errorf("midtrans create transaction error: %s", mErr.Error())
	}
	if resp.RedirectURL == "" {
		return nil, fmt.Errorf("midtrans returned no redirect url: %v", resp.ErrorMessages)
	}

	reqBytes, _ := json.Marshal(snapReq)
	respBytes, _ := json.Marshal(resp)
	return &SessionResult{
		SessionID:   snapReq.TransactionDetails.OrderID,
		RedirectURL: resp.RedirectURL,
		Request:     reqBytes,
		Response:    respBytes,
	}, nil
}

func (s *MidtransService) SessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	resp, mErr := s.coreClient.CheckTransaction(sessionID)
	if mErr != nil {
		return nil, fmt.Errorf("midtrans check transaction error: %s", mErr.Error())
	}

	status := &SessionStatus{
		SessionID: sessionID,
		State:     midtransState(resp.TransactionStatus, resp.FraudStatus),
	}
	if status.State == PaymentStatePaid {
		status.PaidAt = parseMidtransTime(resp.SettlementTime, resp.TransactionTime)
	}
	return status, nil
}

// midtransNotification is the body Midtrans posts to the notification URL.
type midtransNotification struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	TransactionTime   string `json:"transaction_time"`
	SettlementTime    string `json:"settlement_time"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	CustomField1      string `json:"custom_field1"`
	CustomField2      string `json:"custom_field2"`
	CustomField3      string `json:"custom_field3"`
}

func (s *MidtransService) ParseNotification(ctx context.Context, body []byte, header http.Header) (*Notification, error) {
	var n midtransNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("failed to decode midtrans notification: %w", err)
	}
	if !s.VerifySignature(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey) {
		return nil, ErrInvalidSignature
	}

	status := SessionStatus{
		SessionID: n.OrderID,
		State:     midtransState(n.TransactionStatus, n.FraudStatus),
		Metadata: map[string]string{
			MetadataOrderID:         n.CustomField1,
			MetadataUserID:          n.CustomField2,
			MetadataConfigurationID: n.CustomField3,
		},
	}
	if status.State == PaymentStatePaid {
		status.PaidAt = parseMidtransTime(n.SettlementTime, n.TransactionTime)
	}

	return &Notification{
		EventID: n.TransactionID + ":" + n.TransactionStatus,
		Status:  status,
		Payload: body,
	}, nil
}

// VerifySignature checks signature = SHA512(order_id + status_code + gross_amount + server_key).
func (s *MidtransService) VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool {
	expected := midtransSignature(orderID, statusCode, grossAmount, s.serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signatureKey)) == 1
}

func midtransSignature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// SupportsCurrency is true for IDR only; Snap amounts are whole rupiah.
func (s *MidtransService) SupportsCurrency(currency string) bool {
	return strings.EqualFold(currency, midtransCurrency)
}

func buildSnapRequest(req SessionRequest, now time.Time) (*snap.Request, error) {
	if !strings.EqualFold(req.Currency, midtransCurrency) {
		return nil, fmt.Errorf("%w: midtrans charges %s, got %q", ErrUnsupportedCurrency, midtransCurrency, req.Currency)
	}

	items := make([]midtrans.ItemDetails, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, midtrans.ItemDetails{
			ID:    item.ID,
			Name:  truncate(item.Name, 50),
			Price: item.UnitAmount,
			Qty:   int32(item.Quantity),
		})
	}

	return &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  fmt.Sprintf("order-%s-%d", req.OrderID, now.Unix()),
			GrossAmt: req.Total(),
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.Customer.Name,
			Email: req.Customer.Email,
		},
		Items: &items,
		Callbacks: &snap.Callbacks{
			Finish: req.SuccessURL,
		},
		CustomField1: req.Metadata[MetadataOrderID],
		CustomField2: req.Metadata[MetadataUserID],
		CustomField3: req.Metadata[MetadataConfigurationID],
	}, nil
}

func midtransState(transactionStatus, fraudStatus string) PaymentState {
	switch transactionStatus {
	case "settlement":
		return PaymentStatePaid
	case "capture":
		if fraudStatus == "" || fraudStatus == "accept" {
			return PaymentStatePaid
		}
		return PaymentStatePending
	case "deny", "expire", "cancel", "failure":
		return PaymentStateFailed
	default:
		return PaymentStatePending
	}
}

func parseMidtransTime(values ...string) time.Time {
	for _, v := range values {
		if v == "" {
			continue
		}
		if t, err := time.ParseInLocation(midtransTimeLayout, v, jakarta); err == nil {
			return t
		}
	}
	return time.Now()
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
