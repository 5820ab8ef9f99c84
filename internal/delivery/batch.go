package delivery

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lzcjsyr/email-bulk-sender/internal/domain"
	"github.com/lzcjsyr/email-bulk-sender/internal/message"
	"github.com/lzcjsyr/email-bulk-sender/pkg/backoff"
	"github.com/lzcjsyr/email-bulk-sender/pkg/logger"
	"github.com/lzcjsyr/email-bulk-sender/pkg/smtperror"
)

// Job is one delivery run: a template personalized and sent to each
// recipient
type Job struct {
	Recipients []domain.Recipient
	Template   message.Template

	// Headers are added to every message after the builder's defaults
	Headers []domain.Header

	// Attachments are attached to every message, before any files the
	// recipient carries individually
	Attachments []domain.Attachment
}

// Report summarizes a completed delivery run
type Report struct {
	Total    int
	Sent     int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// Runner drives a delivery job: it personalizes the template for each
// recipient, builds the message and hands it to an engine, pacing sends
// and recording outcomes along the way.
//
// Each worker owns its engine and SMTP session, so recipients are split
// into contiguous chunks and pacing applies per worker.
type Runner struct {
	dialer      Dialer
	builder     *message.Builder
	renderer    *message.Renderer
	config      *Config
	logger      logger.Logger
	clock       TimeProvider
	history     domain.DeliveryHistory
	suppression domain.SuppressionList
	unsubscribe string
}

// RunnerOption configures optional runner collaborators
type RunnerOption func(*Runner)

// WithHistory records every terminal delivery outcome to history
func WithHistory(history domain.DeliveryHistory) RunnerOption {
	return func(r *Runner) {
		r.history = history
	}
}

// WithSuppressionList skips suppressed recipients and adds hard bounces
// to the list
func WithSuppressionList(list domain.SuppressionList) RunnerOption {
	return func(r *Runner) {
		r.suppression = list
	}
}

// WithUnsubscribeAddress appends unsubscribe footers to message bodies
func WithUnsubscribeAddress(email string) RunnerOption {
	return func(r *Runner) {
		r.unsubscribe = email
	}
}

// WithTimeProvider overrides the clock, for tests
func WithTimeProvider(clock TimeProvider) RunnerOption {
	return func(r *Runner) {
		r.clock = clock
	}
}

// NewRunner creates a runner sending through sessions dialed by dialer
func NewRunner(dialer Dialer, builder *message.Builder, renderer *message.Renderer, config *Config, log logger.Logger, opts ...RunnerOption) *Runner {
	if config == nil {
		config = DefaultConfig()
	}
	runner := &Runner{
		dialer:   dialer,
		builder:  builder,
		renderer: renderer,
		config:   config,
		logger:   log,
		clock:    NewRealTimeProvider(),
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// runState carries the shared counters for one run
type runState struct {
	total     int
	started   time.Time
	processed atomic.Int64
	sent      atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
}

// Run delivers the job and returns a report of what happened. The run
// stops early on context cancellation or when the server rejects the
// configured credentials, since no later send could succeed either; the
// report still covers everything processed up to that point.
func (r *Runner) Run(ctx context.Context, job *Job) (*Report, error) {
	if job == nil || len(job.Recipients) == 0 {
		return &Report{}, NewDeliveryError(ErrCodeNoRecipients, "no recipients to deliver to", false, nil)
	}

	workers := r.config.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(job.Recipients) {
		workers = len(job.Recipients)
	}

	state := &runState{
		total:   len(job.Recipients),
		started: r.clock.Now(),
	}

	r.logger.WithFields(map[string]interface{}{
		"recipients": len(job.Recipients),
		"workers":    workers,
		"dry_run":    r.config.DryRun,
	}).Info("Starting delivery run")

	group, groupCtx := errgroup.WithContext(ctx)
	for _, chunk := range chunkRecipients(job.Recipients, workers) {
		chunk := chunk
		group.Go(func() error {
			return r.runWorker(groupCtx, job, chunk, state)
		})
	}
	err := group.Wait()

	report := &Report{
		Total:    state.total,
		Sent:     int(state.sent.Load()),
		Failed:   int(state.failed.Load()),
		Skipped:  int(state.skipped.Load()),
		Duration: r.clock.Since(state.started),
	}

	r.logger.WithFields(map[string]interface{}{
		"total":       report.Total,
		"sent":        report.Sent,
		"failed":      report.Failed,
		"skipped":     report.Skipped,
		"duration_ms": report.Duration.Milliseconds(),
	}).Info("Delivery run completed")

	return report, err
}

// Verify dials the SMTP server once to confirm connectivity and
// credentials without sending anything
func (r *Runner) Verify(ctx context.Context) error {
	engine := r.newEngine()
	defer func() {
		if err := engine.Close(); err != nil {
			r.logger.WithField("error", err.Error()).Debug("Failed to close verification engine")
		}
	}()
	return engine.Verify(ctx)
}

// newEngine builds a per-worker engine with its own session pool
func (r *Runner) newEngine() *Engine {
	pool := NewPool(r.dialer, r.config.MaxMessagesPerSession, r.logger)
	retry := NewRetryHandler(r.config.MaxAttempts, backoff.Policy{
		Base:   r.config.RetryBaseDelay,
		Max:    r.config.RetryMaxDelay,
		Jitter: r.config.RetryJitter,
	})
	return NewEngine(pool, retry, r.config, r.logger, r.clock)
}

// runWorker delivers one contiguous chunk of recipients over a single
// engine, pacing between messages and pausing at batch boundaries
func (r *Runner) runWorker(ctx context.Context, job *Job, recipients []domain.Recipient, state *runState) error {
	engine := r.newEngine()
	defer func() {
		if err := engine.Close(); err != nil {
			r.logger.WithField("error", err.Error()).Debug("Failed to close worker engine")
		}
	}()

	for i, recipient := range recipients {
		select {
		case <-ctx.Done():
			return NewDeliveryError(ErrCodeCanceled, "delivery run canceled", false, ctx.Err())
		default:
		}

		if i > 0 && !r.config.DryRun {
			pause := r.config.MessageInterval
			if r.config.BatchSize > 0 && i%r.config.BatchSize == 0 {
				pause = r.config.BatchInterval
				r.logger.WithFields(map[string]interface{}{
					"completed": i,
					"total":     len(recipients),
				}).Info("Batch complete, pausing before next batch")
			}
			if err := r.clock.Sleep(ctx, pause); err != nil {
				return NewDeliveryError(ErrCodeCanceled, "delivery run canceled", false, err)
			}
		}

		if err := r.deliverRecipient(ctx, engine, job, recipient, state); err != nil {
			return err
		}

		r.logProgress(state)
	}

	return nil
}

// deliverRecipient takes one recipient through suppression check,
// personalization, build and delivery. Preparation failures and delivery
// failures are tallied and recorded; only conditions that doom the whole
// run are returned as errors.
func (r *Runner) deliverRecipient(ctx context.Context, engine *Engine, job *Job, recipient domain.Recipient, state *runState) error {
	if r.suppression != nil {
		suppressed, err := r.suppression.IsSuppressed(ctx, recipient.Email)
		if err != nil {
			r.logger.WithFields(map[string]interface{}{
				"recipient": recipient.Email,
				"error":     err.Error(),
			}).Warn("Suppression lookup failed, sending anyway")
		} else if suppressed {
			state.skipped.Add(1)
			r.logger.WithField("recipient", recipient.Email).Info("Recipient suppressed, skipping")
			return nil
		}
	}

	env, err := r.prepare(job, recipient)
	if err != nil {
		state.failed.Add(1)
		r.logger.WithFields(map[string]interface{}{
			"recipient": recipient.Email,
			"error":     err.Error(),
		}).Error("Failed to prepare message")
		r.record(ctx, &domain.DeliveryRecord{
			ID:           uuid.New().String(),
			Recipient:    recipient.Email,
			Status:       domain.StatusFailed,
			ErrorMessage: fmt.Sprintf("%.255s", err.Error()),
			CompletedAt:  r.clock.Now().UTC(),
		})
		return nil
	}

	result := engine.Deliver(ctx, env)
	if result.Status == domain.StatusSuccess {
		state.sent.Add(1)
	} else {
		state.failed.Add(1)
	}

	messageID, _ := env.GetHeader("Message-ID")
	record := &domain.DeliveryRecord{
		ID:          uuid.New().String(),
		Recipient:   recipient.Email,
		MessageID:   messageID,
		Subject:     env.Subject,
		Status:      result.Status,
		Attempts:    result.Attempts,
		CompletedAt: r.clock.Now().UTC(),
	}
	if result.Err != nil {
		record.ErrorKind = string(result.Kind)
		record.ErrorMessage = fmt.Sprintf("%.255s", result.Err.Error())
	}
	if result.Bounce != nil && result.Bounce.IsBounce {
		record.BounceType = string(result.Bounce.Type)
		record.BounceReason = result.Bounce.Reason
	}
	r.record(ctx, record)

	if result.Bounce != nil && result.Bounce.Type == smtperror.BounceHard {
		r.suppressHardBounce(ctx, recipient.Email, result.Bounce)
	}

	// An authentication rejection dooms every later send on this account
	if result.Status == domain.StatusFailed && result.Kind == smtperror.KindAuthentication {
		return NewDeliveryError(ErrCodeAuthFailed, "authentication rejected, aborting run", false, result.Err)
	}

	return nil
}

// prepare renders the template for one recipient, appends unsubscribe
// footers and builds the envelope
func (r *Runner) prepare(job *Job, recipient domain.Recipient) (*domain.Envelope, error) {
	bindings := make(map[string]interface{}, len(recipient.Vars)+2)
	for key, value := range recipient.Vars {
		bindings[key] = value
	}
	bindings["email"] = recipient.Email
	bindings["name"] = recipient.Name

	rendered, err := r.renderer.RenderTemplate(job.Template, bindings)
	if err != nil {
		return nil, NewDeliveryErrorForRecipient(ErrCodeTemplateRender, "failed to render template", recipient.Email, false, err)
	}

	textBody := rendered.Text
	htmlBody := rendered.HTML
	if r.unsubscribe != "" {
		// An empty text body is derived from the HTML later, footer
		// included, so only append to text that exists
		if textBody != "" {
			textBody = message.AppendPlainFooter(textBody, r.unsubscribe)
		}
		if htmlBody != "" {
			withFooter, err := message.AppendHTMLFooter(htmlBody, r.unsubscribe)
			if err != nil {
				r.logger.WithFields(map[string]interface{}{
					"recipient": recipient.Email,
					"error":     err.Error(),
				}).Warn("Failed to append HTML footer, using body as rendered")
			} else {
				htmlBody = withFooter
			}
		}
	}

	// Job-level attachments go to everyone; the recipient's own files
	// (the per-row certificate case) are appended after them
	attachments := job.Attachments
	if len(recipient.Attachments) > 0 {
		attachments = make([]domain.Attachment, 0, len(job.Attachments)+len(recipient.Attachments))
		attachments = append(attachments, job.Attachments...)
		attachments = append(attachments, recipient.Attachments...)
	}

	env, err := r.builder.Build(message.Input{
		To:          recipient.Email,
		Subject:     rendered.Subject,
		TextBody:    textBody,
		HTMLBody:    htmlBody,
		Headers:     job.Headers,
		Attachments: attachments,
	})
	if err != nil {
		return nil, NewDeliveryErrorForRecipient(ErrCodeMessageBuild, "failed to build message", recipient.Email, false, err)
	}

	return env, nil
}

// record writes one history row best-effort; a failed write never fails
// the run
func (r *Runner) record(ctx context.Context, record *domain.DeliveryRecord) {
	if r.history == nil || r.config.DryRun {
		return
	}
	if err := r.history.RecordDelivery(ctx, record); err != nil {
		r.logger.WithFields(map[string]interface{}{
			"recipient":  record.Recipient,
			"message_id": record.MessageID,
			"error":      err.Error(),
		}).Warn("Failed to record delivery history")
	}
}

// suppressHardBounce adds a hard-bounced address to the suppression list
// so later runs skip it
func (r *Runner) suppressHardBounce(ctx context.Context, email string, bounce *smtperror.BounceRecord) {
	if r.suppression == nil || r.config.DryRun {
		return
	}
	entry := &domain.Suppression{
		Email:     email,
		Reason:    bounce.Reason,
		Code:      bounce.Code,
		CreatedAt: r.clock.Now().UTC(),
	}
	if err := r.suppression.Suppress(ctx, entry); err != nil {
		r.logger.WithFields(map[string]interface{}{
			"recipient": email,
			"error":     err.Error(),
		}).Warn("Failed to add hard bounce to suppression list")
		return
	}
	r.logger.WithFields(map[string]interface{}{
		"recipient": email,
		"code":      bounce.Code,
	}).Info("Hard bounce added to suppression list")
}

// logProgress bumps the processed counter and logs a progress line every
// ProgressLogInterval recipients and at the end of the run
func (r *Runner) logProgress(state *runState) {
	processed := state.processed.Add(1)
	interval := int64(r.config.ProgressLogInterval)
	if interval <= 0 {
		return
	}
	if processed%interval != 0 && processed != int64(state.total) {
		return
	}

	elapsed := r.clock.Since(state.started)
	fields := map[string]interface{}{
		"processed": processed,
		"total":     state.total,
		"sent":      state.sent.Load(),
		"failed":    state.failed.Load(),
		"skipped":   state.skipped.Load(),
		"elapsed":   elapsed.Round(time.Second).String(),
	}
	if remaining := int64(state.total) - processed; remaining > 0 && elapsed > 0 {
		eta := time.Duration(int64(elapsed) / processed * remaining)
		fields["eta"] = eta.Round(time.Second).String()
	}
	r.logger.WithFields(fields).Info("Delivery progress")
}

// chunkRecipients splits recipients into up to workers contiguous chunks
// of near-equal size
func chunkRecipients(recipients []domain.Recipient, workers int) [][]domain.Recipient {
	chunkSize := (len(recipients) + workers - 1) / workers
	chunks := make([][]domain.Recipient, 0, workers)
	for start := 0; start < len(recipients); start += chunkSize {
		end := start + chunkSize
		if end > len(recipients) {
			end = len(recipients)
		}
		chunks = append(chunks, recipients[start:end])
	}
	return chunks
}
