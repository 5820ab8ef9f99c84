package smtperror

// Kind classifies an SMTP delivery failure for retry decisions
type Kind string

const (
	// KindPermanent indicates a permanent rejection (bad mailbox, policy
	// refusal). Retrying cannot succeed.
	KindPermanent Kind = "permanent"

	// KindTemporary indicates a transient server-side condition. Retrying
	// after a short wait is expected to succeed.
	KindTemporary Kind = "temporary"

	// KindRateLimit indicates the server is throttling the sender.
	// Retryable, but only after a substantial wait.
	KindRateLimit Kind = "rate_limit"

	// KindConnection indicates a transport-level failure (refused, reset,
	// timeout, disconnect) before or during the protocol exchange.
	KindConnection Kind = "connection"

	// KindAuthentication indicates the server rejected the credentials.
	// Never retryable: the credentials are wrong for every recipient.
	KindAuthentication Kind = "authentication"

	// KindUnknown is the fallback for anything the rule table cannot place.
	// Treated as retryable for safety.
	KindUnknown Kind = "unknown"
)

var kindMessages = map[Kind]string{
	KindPermanent:      "permanent failure: recipient rejected or mailbox does not exist",
	KindTemporary:      "temporary failure: server busy or unavailable",
	KindRateLimit:      "rate limited: sending too fast for the server",
	KindConnection:     "connection failure: network problem or server disconnect",
	KindAuthentication: "authentication failed: check username and password",
	KindUnknown:        "unknown error",
}

// Message returns the human-readable sentence for a kind, suitable for
// logs and reports. Unmapped kinds fall back to "unknown error".
func Message(kind Kind) string {
	if msg, ok := kindMessages[kind]; ok {
		return msg
	}
	return "unknown error"
}
