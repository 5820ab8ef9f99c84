package delivery

import (
	"context"

	"github.com/lzcjsyr/email-bulk-sender/internal/domain"
	"github.com/lzcjsyr/email-bulk-sender/pkg/logger"
	"github.com/lzcjsyr/email-bulk-sender/pkg/smtperror"
)

// Result describes the outcome of delivering a single message
type Result struct {
	// Status is the terminal delivery state, success or failed
	Status domain.DeliveryStatus

	// Attempts is how many transmission attempts were made
	Attempts int

	// Kind classifies the final error when Status is failed
	Kind smtperror.Kind

	// Bounce carries the bounce verdict for server rejections, nil
	// otherwise
	Bounce *smtperror.BounceRecord

	// Err is the final error when Status is failed
	Err error
}

// Engine drives a message through attempts, classification and retries
// until it either lands or fails for good.
//
// A message moves from pending to attempting, then on failure either to
// retrying (and back to attempting after the wait) or to failed; a
// delivered message ends in success.
type Engine struct {
	pool   *Pool
	retry  *RetryHandler
	config *Config
	logger logger.Logger
	clock  TimeProvider
}

// NewEngine creates an engine sending through pool with retry decisions
// from retry
func NewEngine(pool *Pool, retry *RetryHandler, config *Config, log logger.Logger, clock TimeProvider) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if clock == nil {
		clock = NewRealTimeProvider()
	}
	return &Engine{
		pool:   pool,
		retry:  retry,
		config: config,
		logger: log,
		clock:  clock,
	}
}

// Deliver sends one envelope, retrying per the handler's decisions. It
// always returns a terminal result; inspect Result.Err for the failure
// cause and Result.Kind for its classification.
func (e *Engine) Deliver(ctx context.Context, env *domain.Envelope) Result {
	startTime := e.clock.Now()
	result := Result{Status: domain.StatusPending}

	defer func() {
		e.logger.WithFields(map[string]interface{}{
			"duration_ms": e.clock.Since(startTime).Milliseconds(),
			"recipient":   env.To,
			"attempts":    result.Attempts,
			"status":      string(result.Status),
		}).Debug("Delivery completed")
	}()

	if e.config.DryRun {
		e.logger.WithFields(map[string]interface{}{
			"recipient": env.To,
			"subject":   env.Subject,
		}).Info("Dry run, skipping transmission")
		result.Status = domain.StatusSuccess
		return result
	}

	for attempt := 0; attempt < e.retry.MaxAttempts(); attempt++ {
		result.Status = domain.StatusAttempting
		result.Attempts = attempt + 1

		err := e.pool.Send(ctx, env)
		if err == nil {
			result.Status = domain.StatusSuccess
			return result
		}

		decision := e.retry.Decide(err, attempt)
		result.Kind = decision.Kind
		result.Bounce = decision.Bounce

		e.logger.WithFields(map[string]interface{}{
			"recipient":    env.To,
			"attempt":      attempt + 1,
			"max_attempts": e.retry.MaxAttempts(),
			"kind":         string(decision.Kind),
			"reason":       decision.Reason,
			"retry":        decision.Retry,
			"delay_ms":     decision.Delay.Milliseconds(),
			"error":        err.Error(),
		}).Warn("Delivery attempt failed")

		// Cancellation is terminal no matter what the decision said
		if ctx.Err() != nil {
			result.Status = domain.StatusFailed
			result.Err = NewDeliveryErrorForRecipient(ErrCodeCanceled, "delivery canceled", env.To, false, err)
			return result
		}

		if !decision.Retry {
			result.Status = domain.StatusFailed
			result.Err = NewDeliveryErrorForRecipient(ErrCodeSendFailed, decision.Reason, env.To, false, err)
			return result
		}

		result.Status = domain.StatusRetrying
		if err := e.clock.Sleep(ctx, decision.Delay); err != nil {
			result.Status = domain.StatusFailed
			result.Err = NewDeliveryErrorForRecipient(ErrCodeCanceled, "delivery canceled while waiting to retry", env.To, false, err)
			return result
		}
	}

	// Unreachable as long as Decide stops at the attempt budget, kept as
	// a terminal fallback
	result.Status = domain.StatusFailed
	return result
}

// Verify checks that the SMTP server accepts a connection and the
// configured credentials without sending a message
func (e *Engine) Verify(ctx context.Context) error {
	return e.pool.Verify(ctx)
}

// Close releases the engine's SMTP session
func (e *Engine) Close() error {
	return e.pool.Close()
}
