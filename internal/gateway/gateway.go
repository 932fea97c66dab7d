package gateway

import (
	"context"
	"errors"
)

// Hold statuses reported by the payment gateway.
const (
	HoldStatusSucceeded = "succeeded"
	HoldStatusPending   = "pending"
	HoldStatusFailed    = "failed"
	HoldStatusCancelled = "cancelled"
)

// ErrUnavailable is returned when the gateway is unconfigured or unreachable.
// Callers treat it as a collaborator failure and compensate for any local
// side effects already committed.
var ErrUnavailable = errors.New("payment gateway unavailable")

// CustomerMetadata travels with the hold so the gateway can attach receipts.
type CustomerMetadata struct {
	Name    string
	Email   string
	OrderID string
}

type Hold struct {
	HoldID       string
	ClientSecret string
	Status       string
}

type HoldStatus struct {
	HoldID         string
	Status         string
	AmountCaptured float64
}

type RefundResult struct {
	RefundID string
	Status   string
}

// Gateway is the external payment collaborator consumed by the settlement and
// cancellation coordinators. Implementations must bound every call with their
// own timeout; a timeout is surfaced as ErrUnavailable.
type Gateway interface {
	// OpenHold opens a payment intent for the given amount. The hold is not
	// captured yet; the customer completes payment out of band.
	OpenHold(ctx context.Context, amount float64, customer CustomerMetadata) (*Hold, error)

	// GetHoldStatus reports the current verdict for a hold.
	GetHoldStatus(ctx context.Context, holdID string) (*HoldStatus, error)

	// Refund reverses a captured payment. When the underlying charge never
	// succeeded the gateway substitutes a hold cancellation.
	Refund(ctx context.Context, transactionID string) (*RefundResult, error)
}
