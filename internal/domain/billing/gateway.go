package billing

import (
	"context"
	"time"

	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
)

// Gateway transaction statuses as reported by the provider callback
const (
	GatewayStatusApproved = "APPROVED"
	GatewayStatusDeclined = "DECLINED"
	GatewayStatusVoided   = "VOIDED"
	GatewayStatusError    = "ERROR"
)

// CheckoutRequest carries what the gateway needs to build a hosted
// checkout session for one debt
type CheckoutRequest struct {
	Reference   string
	Amount      valueobject.Money
	Description string
	RedirectURL string
}

// GatewayEvent is a provider callback after signature verification.
// Reference correlates back to the debt that initiated the checkout.
type GatewayEvent struct {
	TransactionID string
	Reference     string
	Status        string
	AmountInCents int64
	Currency      string
	FinalizedAt   time.Time
}

// IsApproved returns true when the provider settled the transaction
func (e GatewayEvent) IsApproved() bool {
	return e.Status == GatewayStatusApproved
}

// PaymentGateway abstracts the hosted-checkout provider
type PaymentGateway interface {
	// Name identifies the provider, e.g. "wompi"
	Name() string
	// CheckoutURL builds the hosted checkout URL the driver is redirected to
	CheckoutURL(ctx context.Context, req CheckoutRequest) (string, error)
	// ParseEvent verifies the callback signature and extracts the event.
	// A checksum mismatch returns an UNAUTHORIZED domain error.
	ParseEvent(ctx context.Context, payload []byte) (GatewayEvent, error)
}
