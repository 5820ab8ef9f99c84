package delivery

import (
	"context"
	"net/textproto"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lzcjsyr/email-bulk-sender/internal/domain"
	"github.com/lzcjsyr/email-bulk-sender/pkg/backoff"
	"github.com/lzcjsyr/email-bulk-sender/pkg/logger"
	"github.com/lzcjsyr/email-bulk-sender/pkg/smtperror"
)

func newTestEngine(dialer *fakeDialer, config *Config) (*Engine, *fakeClock) {
	if config == nil {
		config = DefaultConfig()
	}
	clock := newFakeClock()
	pool := NewPool(dialer, config.MaxMessagesPerSession, logger.NewMockLogger())
	retry := NewRetryHandler(config.MaxAttempts, backoff.Policy{
		Base:   config.RetryBaseDelay,
		Max:    config.RetryMaxDelay,
		Jitter: false,
	})
	return NewEngine(pool, retry, config, logger.NewMockLogger(), clock), clock
}

func TestDeliverFirstAttemptSuccess(t *testing.T) {
	dialer := &fakeDialer{}
	engine, clock := newTestEngine(dialer, nil)

	result := engine.Deliver(context.Background(), newTestEnvelope("a@example.com"))

	assert.Equal(t, domain.StatusSuccess, result.Status)
	assert.Equal(t, 1, result.Attempts)
	assert.NoError(t, result.Err)
	assert.Empty(t, clock.recordedSleeps())
	assert.Equal(t, 1, dialer.sendCalls)
}

func TestDeliverRetriesTemporaryFailure(t *testing.T) {
	dialer := &fakeDialer{
		sendErr: func(call int, env *domain.Envelope) error {
			if call == 0 {
				return &textproto.Error{Code: 455, Msg: "4.5.1 server busy, try later"}
			}
			return nil
		},
	}
	engine, clock := newTestEngine(dialer, nil)

	result := engine.Deliver(context.Background(), newTestEnvelope("a@example.com"))

	assert.Equal(t, domain.StatusSuccess, result.Status)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, []time.Duration{10 * time.Second}, clock.recordedSleeps())
}

func TestDeliverPermanentFailsWithoutRetry(t *testing.T) {
	dialer := &fakeDialer{
		sendErr: func(call int, env *domain.Envelope) error {
			return &textproto.Error{Code: 550, Msg: "5.1.1 no such user"}
		},
	}
	engine, clock := newTestEngine(dialer, nil)

	result := engine.Deliver(context.Background(), newTestEnvelope("gone@example.com"))

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, smtperror.KindPermanent, result.Kind)
	assert.Empty(t, clock.recordedSleeps())

	require.NotNil(t, result.Bounce)
	assert.Equal(t, smtperror.BounceHard, result.Bounce.Type)
	assert.Equal(t, 550, result.Bounce.Code)

	var deliveryErr *DeliveryError
	require.ErrorAs(t, result.Err, &deliveryErr)
	assert.Equal(t, ErrCodeSendFailed, deliveryErr.Code)
	assert.Equal(t, "gone@example.com", deliveryErr.Recipient)
}

func TestDeliverExhaustsAttemptsOnRateLimit(t *testing.T) {
	dialer := &fakeDialer{
		sendErr: func(call int, env *domain.Envelope) error {
			return &textproto.Error{Code: 421, Msg: "4.7.0 rate limit exceeded"}
		},
	}
	engine, clock := newTestEngine(dialer, nil)

	result := engine.Deliver(context.Background(), newTestEnvelope("a@example.com"))

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, smtperror.KindRateLimit, result.Kind)
	assert.Equal(t, []time.Duration{time.Minute, time.Minute}, clock.recordedSleeps())
	assert.Equal(t, 3, dialer.sendCalls)
}

func TestDeliverRedialsAfterConnectionDrop(t *testing.T) {
	dialer := &fakeDialer{
		sendErr: func(call int, env *domain.Envelope) error {
			if call < 2 {
				return syscall.ECONNRESET
			}
			return nil
		},
	}
	engine, clock := newTestEngine(dialer, nil)

	result := engine.Deliver(context.Background(), newTestEnvelope("a@example.com"))

	assert.Equal(t, domain.StatusSuccess, result.Status)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, []time.Duration{15 * time.Second, 15 * time.Second}, clock.recordedSleeps())
	assert.Equal(t, 3, dialer.dials, "each dropped connection forces a fresh dial")
}

func TestDeliverDryRunSkipsTransport(t *testing.T) {
	dialer := &fakeDialer{}
	config := DefaultConfig()
	config.DryRun = true
	engine, _ := newTestEngine(dialer, config)

	result := engine.Deliver(context.Background(), newTestEnvelope("a@example.com"))

	assert.Equal(t, domain.StatusSuccess, result.Status)
	assert.Equal(t, 0, result.Attempts)
	assert.Equal(t, 0, dialer.dials)
}

func TestDeliverCanceledContextIsTerminal(t *testing.T) {
	dialer := &fakeDialer{
		sendErr: func(call int, env *domain.Envelope) error {
			return &textproto.Error{Code: 451, Msg: "4.3.0 try again"}
		},
	}
	engine, clock := newTestEngine(dialer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := engine.Deliver(ctx, newTestEnvelope("a@example.com"))

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, 1, result.Attempts)
	assert.Empty(t, clock.recordedSleeps(), "no retry wait after cancellation")

	var deliveryErr *DeliveryError
	require.ErrorAs(t, result.Err, &deliveryErr)
	assert.Equal(t, ErrCodeCanceled, deliveryErr.Code)
}

func TestDeliverCancellationDuringRetryWait(t *testing.T) {
	dialer := &fakeDialer{
		sendErr: func(call int, env *domain.Envelope) error {
			return &textproto.Error{Code: 451, Msg: "4.3.0 try again"}
		},
	}
	engine, clock := newTestEngine(dialer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	clock.onSleep = func(time.Duration) { cancel() }

	result := engine.Deliver(ctx, newTestEnvelope("a@example.com"))

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, dialer.sendCalls, "no second attempt after interrupted wait")

	var deliveryErr *DeliveryError
	require.ErrorAs(t, result.Err, &deliveryErr)
	assert.Equal(t, ErrCodeCanceled, deliveryErr.Code)
}
