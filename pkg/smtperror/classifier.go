// Package smtperror classifies SMTP delivery failures into retry semantics.
//
// The classifier is a total function over an ordered rule table: structured
// reply codes first, then typed transport errors, then message-text
// heuristics, then a retryable unknown default. It never fails to produce
// a classification.
package smtperror

import (
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
	"time"
)

// Suggested delays per kind. Zero means the caller's backoff schedule
// decides.
const (
	rateLimitDelay  = 60 * time.Second
	temporaryDelay  = 10 * time.Second
	connectionDelay = 15 * time.Second
	unknownDelay    = 10 * time.Second
)

// Classification is the result of classifying one failure. It is computed
// fresh on every call and carries no identity beyond it.
type Classification struct {
	// Kind is the semantic failure kind.
	Kind Kind

	// Retryable reports whether another attempt can succeed.
	Retryable bool

	// Delay is the suggested wait before the next attempt. Zero when not
	// retryable, or when the generic backoff schedule should decide.
	Delay time.Duration
}

// Classifier maps raw delivery failures to classifications
type Classifier struct{}

// NewClassifier creates a new failure classifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify analyzes a failure and returns its classification. The rules are
// checked in priority order:
//
//  1. reply code 530/535 -> authentication
//  2. reply code in the permanent set -> permanent
//  3. reply code in the rate-limit set, or a coded reply whose text carries
//     a rate/quota phrase -> rate limit
//  4. reply code in the temporary set -> temporary
//  5. typed transport failure -> connection; typed *AuthError -> authentication
//  6. message-text fallback (auth, connection, rate, recipient phrases)
//  7. unknown, retryable
func (c *Classifier) Classify(err error) Classification {
	if err == nil {
		return Classification{Kind: KindUnknown, Retryable: true, Delay: unknownDelay}
	}

	errStr := err.Error()

	if resp, ok := ResponseFromError(err); ok {
		switch {
		case authCodes[resp.Code]:
			return Classification{Kind: KindAuthentication}
		case permanentCodes[resp.Code]:
			return Classification{Kind: KindPermanent}
		case rateLimitCodes[resp.Code] || containsAny(errStr, rateLimitPhrases):
			return Classification{Kind: KindRateLimit, Retryable: true, Delay: rateLimitDelay}
		case temporaryCodes[resp.Code]:
			return Classification{Kind: KindTemporary, Retryable: true, Delay: temporaryDelay}
		}
		// A code outside every table falls through to the text rules.
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return Classification{Kind: KindAuthentication}
	}

	if isTransportError(err) {
		return Classification{Kind: KindConnection, Retryable: true, Delay: connectionDelay}
	}

	switch {
	case containsAny(errStr, authTextPatterns):
		return Classification{Kind: KindAuthentication}
	case containsAny(errStr, connectionTextPatterns):
		return Classification{Kind: KindConnection, Retryable: true, Delay: connectionDelay}
	case containsAny(errStr, rateTextPatterns):
		return Classification{Kind: KindRateLimit, Retryable: true, Delay: rateLimitDelay}
	case containsAny(errStr, recipientTextPatterns):
		return Classification{Kind: KindPermanent}
	}

	return Classification{Kind: KindUnknown, Retryable: true, Delay: unknownDelay}
}

// isTransportError reports whether the failure happened at the transport
// level: dial refused, reset, timeout, or the server dropping the session.
func isTransportError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	return false
}

// containsAny checks if the error string contains any of the patterns (case-insensitive)
func containsAny(errStr string, patterns []string) bool {
	errLower := strings.ToLower(errStr)
	for _, pattern := range patterns {
		if strings.Contains(errLower, pattern) {
			return true
		}
	}
	return false
}
