package delivery

import (
	"time"

	"github.com/lzcjsyr/email-bulk-sender/pkg/backoff"
	"github.com/lzcjsyr/email-bulk-sender/pkg/smtperror"
)

// rateLimitFloor is the minimum wait before retrying a rate-limited send,
// regardless of what the classifier or backoff schedule suggests
const rateLimitFloor = time.Minute

// Decision is the outcome of evaluating a failed delivery attempt
type Decision struct {
	// Retry reports whether another attempt should be made
	Retry bool

	// Delay is how long to wait before the next attempt, zero when Retry
	// is false
	Delay time.Duration

	// Reason is a human-readable sentence explaining the decision,
	// suitable for logs and reports
	Reason string

	// Kind is the error classification for the failed attempt
	Kind smtperror.Kind

	// Bounce carries the bounce verdict when the failure was a server
	// reply, nil otherwise
	Bounce *smtperror.BounceRecord
}

// RetryHandler decides whether and when a failed attempt is retried
type RetryHandler struct {
	maxAttempts int
	classifier  *smtperror.Classifier
	backoff     backoff.Policy
}

// NewRetryHandler creates a handler allowing maxAttempts total attempts,
// using policy to space out retries without a classifier-suggested delay
func NewRetryHandler(maxAttempts int, policy backoff.Policy) *RetryHandler {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryHandler{
		maxAttempts: maxAttempts,
		classifier:  smtperror.NewClassifier(),
		backoff:     policy,
	}
}

// Decide evaluates the error from a failed attempt. attempt is the
// zero-based index of the attempt that just failed, so the last allowed
// attempt has index maxAttempts-1 and is never retried. The returned
// decision always carries the classification and bounce verdict, even
// when no retry will happen.
func (h *RetryHandler) Decide(err error, attempt int) Decision {
	classification := h.classifier.Classify(err)
	decision := Decision{
		Kind:   classification.Kind,
		Bounce: smtperror.InterpretBounce(err),
	}

	// Attempt budget exhausted
	if attempt >= h.maxAttempts-1 {
		decision.Reason = "max attempts reached"
		return decision
	}

	if !classification.Retryable {
		decision.Reason = smtperror.Message(classification.Kind)
		return decision
	}

	// A hard bounce is final, whatever the classification said
	if decision.Bounce != nil && decision.Bounce.Type == smtperror.BounceHard {
		decision.Reason = "hard bounce: " + decision.Bounce.Reason
		return decision
	}

	decision.Retry = true
	decision.Reason = smtperror.Message(classification.Kind)
	if classification.Delay > 0 {
		decision.Delay = classification.Delay
	} else {
		decision.Delay = h.backoff.Delay(attempt)
	}
	if decision.Kind == smtperror.KindRateLimit && decision.Delay < rateLimitFloor {
		decision.Delay = rateLimitFloor
	}

	return decision
}

// MaxAttempts returns the total attempt budget
func (h *RetryHandler) MaxAttempts() int {
	return h.maxAttempts
}
