package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/lzcjsyr/email-bulk-sender/internal/domain"
)

// fakeSession is a scripted SMTP session handed out by fakeDialer
type fakeSession struct {
	dialer   *fakeDialer
	id       int
	closed   int
	closeErr error
}

func (s *fakeSession) Send(ctx context.Context, env *domain.Envelope) error {
	return s.dialer.recordSend(env)
}

func (s *fakeSession) Close() error {
	s.closed++
	return s.closeErr
}

// fakeDialer hands out fake sessions and scripts dial and send outcomes.
// Dial errors are consumed per call; sendErr scripts every send across
// all sessions by global call index.
type fakeDialer struct {
	mu       sync.Mutex
	dialErrs []error
	sendErr  func(call int, env *domain.Envelope) error

	dials     int
	sendCalls int
	sessions  []*fakeSession
	sent      []*domain.Envelope
}

func (d *fakeDialer) Dial(ctx context.Context) (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	call := d.dials
	d.dials++
	if call < len(d.dialErrs) && d.dialErrs[call] != nil {
		return nil, d.dialErrs[call]
	}

	session := &fakeSession{dialer: d, id: call}
	d.sessions = append(d.sessions, session)
	return session, nil
}

func (d *fakeDialer) recordSend(env *domain.Envelope) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	call := d.sendCalls
	d.sendCalls++
	d.sent = append(d.sent, env)
	if d.sendErr != nil {
		return d.sendErr(call, env)
	}
	return nil
}

func (d *fakeDialer) sentTo() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	recipients := make([]string, len(d.sent))
	for i, env := range d.sent {
		recipients[i] = env.To
	}
	return recipients
}

// fakeClock is a TimeProvider whose sleeps complete instantly while
// advancing the clock, so waits can be asserted without real delays
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	onSleep func(d time.Duration)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	onSleep := c.onSleep
	c.mu.Unlock()

	if onSleep != nil {
		onSleep(d)
	}
	return ctx.Err()
}

func (c *fakeClock) recordedSleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	sleeps := make([]time.Duration, len(c.sleeps))
	copy(sleeps, c.sleeps)
	return sleeps
}

// newTestEnvelope builds a minimal deliverable envelope
func newTestEnvelope(to string) *domain.Envelope {
	return &domain.Envelope{
		From:    domain.Address{Name: "Newsletter", Email: "news@example.com"},
		To:      to,
		Subject: "Hello",
		Headers: []domain.Header{
			{Name: "Message-ID", Value: "<test-id@example.com>"},
		},
		BodyParts: []domain.BodyPart{
			{ContentType: domain.ContentTypeText, Content: "Hello there"},
		},
	}
}
