package delivery

import (
	"context"
	"fmt"

	"github.com/lzcjsyr/email-bulk-sender/internal/domain"
	"github.com/lzcjsyr/email-bulk-sender/pkg/logger"
)

// Session is a single live, authenticated SMTP session
type Session interface {
	// Send transmits one message over the session
	Send(ctx context.Context, env *domain.Envelope) error

	// Close terminates the session with a QUIT
	Close() error
}

// Dialer establishes new SMTP sessions
type Dialer interface {
	// Dial connects and authenticates, returning a live session
	Dial(ctx context.Context) (Session, error)
}

// Handle wraps a live session together with its usage counter
type Handle struct {
	session      Session
	messagesSent int
}

// MessagesSent returns how many messages this session has carried
func (h *Handle) MessagesSent() int {
	return h.messagesSent
}

// Pool owns at most one live SMTP session and reuses it across sends,
// replacing it after maxMessagesPerSession messages so long-running jobs
// don't trip server limits on messages per connection.
//
// A pool is single-owner and not safe for concurrent use. Parallel runs
// give each worker its own pool.
type Pool struct {
	dialer                Dialer
	maxMessagesPerSession int
	logger                logger.Logger

	handle *Handle
	closed bool
}

// NewPool creates a pool using dialer for session establishment
func NewPool(dialer Dialer, maxMessagesPerSession int, log logger.Logger) *Pool {
	if maxMessagesPerSession < 1 {
		maxMessagesPerSession = 1
	}
	return &Pool{
		dialer:                dialer,
		maxMessagesPerSession: maxMessagesPerSession,
		logger:                log,
	}
}

// Get returns the live session handle, dialing a new one when none exists
// or when the current session has reached the rotation threshold. The
// returned handle stays valid until the next failed send, rotation, or
// Close.
func (p *Pool) Get(ctx context.Context) (*Handle, error) {
	if p.closed {
		return nil, NewDeliveryError(ErrCodePoolClosed, "pool is closed", false, nil)
	}

	if p.handle != nil && p.handle.messagesSent >= p.maxMessagesPerSession {
		p.logger.WithFields(map[string]interface{}{
			"messages_sent": p.handle.messagesSent,
			"max":           p.maxMessagesPerSession,
		}).Debug("Rotating SMTP session")
		p.dropHandle()
	}

	if p.handle == nil {
		session, err := p.dialer.Dial(ctx)
		if err != nil {
			return nil, NewDeliveryError(ErrCodeDialFailed, "failed to establish SMTP session", true, err)
		}
		p.handle = &Handle{session: session}
		p.logger.Debug("SMTP session established")
	}

	return p.handle, nil
}

// Send transmits one message over the pooled session. On failure the
// session is discarded so the next Get dials a fresh one, and the failure
// is returned to the caller unchanged; the pool itself never retries.
func (p *Pool) Send(ctx context.Context, env *domain.Envelope) error {
	handle, err := p.Get(ctx)
	if err != nil {
		return err
	}

	if err := handle.session.Send(ctx, env); err != nil {
		p.Invalidate()
		return err
	}

	handle.messagesSent++
	return nil
}

// Invalidate discards the live session without dialing a replacement.
// Safe to call when no session is live.
func (p *Pool) Invalidate() {
	if p.handle == nil {
		return
	}
	p.logger.WithField("messages_sent", p.handle.messagesSent).Debug("Discarding SMTP session")
	p.dropHandle()
}

// Close terminates the live session and marks the pool closed. Calling
// Close again is a no-op.
func (p *Pool) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if p.handle != nil {
		p.dropHandle()
	}
	return nil
}

// Verify dials and authenticates a session, then closes it without
// sending anything. It leaves the pooled session untouched.
func (p *Pool) Verify(ctx context.Context) error {
	session, err := p.dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify SMTP connection: %w", err)
	}
	if err := session.Close(); err != nil {
		p.logger.WithField("error", err.Error()).Debug("Failed to close verification session")
	}
	return nil
}

// dropHandle closes the current session best-effort and forgets it. The
// session may already be dead, so close errors are only logged.
func (p *Pool) dropHandle() {
	if err := p.handle.session.Close(); err != nil {
		p.logger.WithField("error", err.Error()).Debug("Failed to close SMTP session")
	}
	p.handle = nil
}
