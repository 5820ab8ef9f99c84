package delivery

import "fmt"

// ErrorCode represents specific error conditions in the delivery engine
type ErrorCode string

const (
	// Connection related errors
	ErrCodeDialFailed ErrorCode = "DIAL_FAILED"
	ErrCodePoolClosed ErrorCode = "POOL_CLOSED"
	ErrCodeAuthFailed ErrorCode = "AUTH_FAILED"

	// Message preparation errors
	ErrCodeTemplateRender ErrorCode = "TEMPLATE_RENDER_FAILED"
	ErrCodeMessageBuild   ErrorCode = "MESSAGE_BUILD_FAILED"

	// Sending related errors
	ErrCodeSendFailed   ErrorCode = "SEND_FAILED"
	ErrCodeNoRecipients ErrorCode = "NO_RECIPIENTS"
	ErrCodeCanceled     ErrorCode = "CANCELED"
)

// DeliveryError represents an error in the delivery engine with context
type DeliveryError struct {
	Code      ErrorCode
	Message   string
	Recipient string
	Retryable bool
	Err       error
}

// Error implements the error interface
func (e *DeliveryError) Error() string {
	if e.Err != nil {
		if e.Recipient != "" {
			return fmt.Sprintf("[%s] %s (recipient: %s): %v", e.Code, e.Message, e.Recipient, e.Err)
		}
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	// Fallback when Err is nil
	if e.Recipient != "" {
		return fmt.Sprintf("[%s] %s (recipient: %s)", e.Code, e.Message, e.Recipient)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// NewDeliveryError creates a new delivery error
func NewDeliveryError(code ErrorCode, message string, retryable bool, err error) *DeliveryError {
	return &DeliveryError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Err:       err,
	}
}

// NewDeliveryErrorForRecipient creates a new delivery error tied to one recipient
func NewDeliveryErrorForRecipient(code ErrorCode, message string, recipient string, retryable bool, err error) *DeliveryError {
	return &DeliveryError{
		Code:      code,
		Message:   message,
		Recipient: recipient,
		Retryable: retryable,
		Err:       err,
	}
}

// IsRetryable returns whether the error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*DeliveryError); ok {
		return e.Retryable
	}
	return false
}
