package smtperror

import (
	"errors"
	"fmt"
	"net/textproto"
	"strconv"
)

// ResponseError is a structured SMTP protocol response carried as an error.
// The transport layer usually surfaces *textproto.Error for these; this type
// exists so tests and callers outside the transport can tag a failure with
// an explicit reply code.
type ResponseError struct {
	// Code is the three-digit SMTP reply code.
	Code int

	// Message is the server's reply text.
	Message string
}

// Error implements the error interface in the server-reply form "550 text".
func (e *ResponseError) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

// AuthError tags a failure as authentication-shaped when the caller knows
// the credentials were the problem, independent of any reply code.
type AuthError struct {
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// Unwrap returns the underlying error for errors.Is/As compatibility
func (e *AuthError) Unwrap() error {
	return e.Err
}

// ResponseFromError extracts the SMTP protocol response from a failure, if
// it carries one. It looks for a *ResponseError or *textproto.Error anywhere
// in the chain, then falls back to scanning the error text for a reply code
// (transport wrappers often flatten the server reply into a string).
func ResponseFromError(err error) (*ResponseError, bool) {
	if err == nil {
		return nil, false
	}

	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr, true
	}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return &ResponseError{Code: protoErr.Code, Message: protoErr.Msg}, true
	}

	if code := extractReplyCode(err.Error()); code > 0 {
		return &ResponseError{Code: code, Message: err.Error()}, true
	}
	return nil, false
}

// extractReplyCode attempts to extract an SMTP reply code from error text
func extractReplyCode(errStr string) int {
	// Try the raw server-reply form first
	if matches := replyCodeRegex.FindStringSubmatch(errStr); len(matches) >= 2 {
		if code, err := strconv.Atoi(matches[1]); err == nil {
			return code
		}
	}

	// Try annotated forms
	if matches := labeledCodeRegex.FindStringSubmatch(errStr); len(matches) >= 2 {
		if code, err := strconv.Atoi(matches[1]); err == nil {
			return code
		}
	}

	return 0
}
