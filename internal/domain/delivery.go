package domain

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/mock_delivery.go -package=mocks github.com/lzcjsyr/email-bulk-sender/internal/domain DeliveryHistory,SuppressionList

// DeliveryStatus tracks one message through its delivery lifecycle.
type DeliveryStatus string

const (
	// StatusPending means no attempt has been made yet.
	StatusPending DeliveryStatus = "pending"

	// StatusAttempting means a transmission is in flight.
	StatusAttempting DeliveryStatus = "attempting"

	// StatusRetrying means the last attempt failed and the engine is
	// waiting out the decided delay.
	StatusRetrying DeliveryStatus = "retrying"

	// StatusSuccess is terminal: the server accepted the message.
	StatusSuccess DeliveryStatus = "success"

	// StatusFailed is terminal: non-retryable failure, hard bounce, or
	// attempt budget exhausted.
	StatusFailed DeliveryStatus = "failed"
)

// Terminal reports whether the status ends the lifecycle.
func (s DeliveryStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// DeliveryRecord is the terminal outcome of one recipient's delivery,
// persisted for reporting.
type DeliveryRecord struct {
	ID        string
	Recipient string
	MessageID string
	Subject   string
	Status    DeliveryStatus
	Attempts  int

	// Failure details; empty on success.
	ErrorKind    string
	ErrorMessage string
	BounceType   string
	BounceReason string

	CompletedAt time.Time
}

// Suppression is one address barred from future sends, usually after a
// hard bounce.
type Suppression struct {
	Email     string
	Reason    string
	Code      int
	CreatedAt time.Time
}

// DeliveryHistory records terminal delivery outcomes.
type DeliveryHistory interface {
	RecordDelivery(ctx context.Context, record *DeliveryRecord) error
}

// SuppressionList tracks addresses that must not be mailed again.
type SuppressionList interface {
	Suppress(ctx context.Context, suppression *Suppression) error
	IsSuppressed(ctx context.Context, email string) (bool, error)
}
