package payment

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fleetrent/backend/internal/domain/billing"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// WompiAdapter implements the PaymentGateway port against Wompi's hosted
// checkout and event webhooks.
type WompiAdapter struct {
	publicKey       string
	integritySecret string
	eventsSecret    string
	checkoutBaseURL string
	logger          *zap.Logger
}

// NewWompiAdapter creates a new Wompi gateway adapter
func NewWompiAdapter(cfg config.GatewayConfig, logger *zap.Logger) *WompiAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WompiAdapter{
		publicKey:       cfg.PublicKey,
		integritySecret: cfg.IntegritySecret,
		eventsSecret:    cfg.EventsSecret,
		checkoutBaseURL: cfg.CheckoutBaseURL,
		logger:          logger,
	}
}

// Name identifies the provider
func (a *WompiAdapter) Name() string {
	return "wompi"
}

// CheckoutURL builds the hosted checkout URL. Wompi expects the amount in
// cents and an integrity signature over reference, amount and currency.
func (a *WompiAdapter) CheckoutURL(_ context.Context, req billing.CheckoutRequest) (string, error) {
	if req.Reference == "" {
		return "", shared.NewDomainError("VALIDATION_ERROR", "Checkout reference is required")
	}
	if !req.Amount.IsPositive() {
		return "", shared.NewDomainError("VALIDATION_ERROR", "Checkout amount must be positive")
	}

	amountInCents := req.Amount.Cents()
	currency := string(req.Amount.Currency())

	q := url.Values{}
	q.Set("public-key", a.publicKey)
	q.Set("currency", currency)
	q.Set("amount-in-cents", strconv.FormatInt(amountInCents, 10))
	q.Set("reference", req.Reference)
	if req.RedirectURL != "" {
		q.Set("redirect-url", req.RedirectURL)
	}
	q.Set("signature:integrity", a.integritySignature(req.Reference, amountInCents, currency))

	return a.checkoutBaseURL + "?" + q.Encode(), nil
}

// wompiEvent mirrors the webhook body Wompi posts on transaction updates
type wompiEvent struct {
	Event string `json:"event"`
	Data  struct {
		Transaction struct {
			ID            string `json:"id"`
			Status        string `json:"status"`
			Reference     string `json:"reference"`
			AmountInCents int64  `json:"amount_in_cents"`
			Currency      string `json:"currency"`
			FinalizedAt   string `json:"finalized_at"`
		} `json:"transaction"`
	} `json:"data"`
	Timestamp int64 `json:"timestamp"`
	Signature struct {
		Properties []string `json:"properties"`
		Checksum   string   `json:"checksum"`
	} `json:"signature"`
}

// ParseEvent verifies the event checksum and extracts the transaction.
// The checksum is SHA-256 over the signed property values, the event
// timestamp and the events secret, in that order.
func (a *WompiAdapter) ParseEvent(_ context.Context, payload []byte) (billing.GatewayEvent, error) {
	var event wompiEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return billing.GatewayEvent{}, shared.NewDomainError("VALIDATION_ERROR", "Malformed gateway event payload")
	}

	if !a.verifyChecksum(&event) {
		a.logger.Warn("Gateway event checksum mismatch",
			zap.String("transaction_id", event.Data.Transaction.ID),
			zap.String("reference", event.Data.Transaction.Reference))
		return billing.GatewayEvent{}, shared.NewDomainError("UNAUTHORIZED", "Invalid gateway event signature")
	}

	tx := event.Data.Transaction
	var finalizedAt time.Time
	if tx.FinalizedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, tx.FinalizedAt); err == nil {
			finalizedAt = parsed
		}
	}

	return billing.GatewayEvent{
		TransactionID: tx.ID,
		Reference:     tx.Reference,
		Status:        tx.Status,
		AmountInCents: tx.AmountInCents,
		Currency:      tx.Currency,
		FinalizedAt:   finalizedAt,
	}, nil
}

func (a *WompiAdapter) verifyChecksum(event *wompiEvent) bool {
	if event.Signature.Checksum == "" {
		return false
	}

	var sb strings.Builder
	for _, prop := range event.Signature.Properties {
		value, ok := a.propertyValue(event, prop)
		if !ok {
			return false
		}
		sb.WriteString(value)
	}
	sb.WriteString(strconv.FormatInt(event.Timestamp, 10))
	sb.WriteString(a.eventsSecret)

	sum := sha256.Sum256([]byte(sb.String()))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(event.Signature.Checksum)), []byte(expected)) == 1
}

// propertyValue resolves paths like "transaction.id" against the event data
func (a *WompiAdapter) propertyValue(event *wompiEvent, prop string) (string, bool) {
	switch prop {
	case "transaction.id":
		return event.Data.Transaction.ID, true
	case "transaction.status":
		return event.Data.Transaction.Status, true
	case "transaction.reference":
		return event.Data.Transaction.Reference, true
	case "transaction.amount_in_cents":
		return strconv.FormatInt(event.Data.Transaction.AmountInCents, 10), true
	case "transaction.currency":
		return event.Data.Transaction.Currency, true
	default:
		return "", false
	}
}

// integritySignature signs checkout parameters so the hosted page cannot be
// tampered with
func (a *WompiAdapter) integritySignature(reference string, amountInCents int64, currency string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s%d%s%s", reference, amountInCents, currency, a.integritySecret)))
	return hex.EncodeToString(sum[:])
}

var _ billing.PaymentGateway = (*WompiAdapter)(nil)
