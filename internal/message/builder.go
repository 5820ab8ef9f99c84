// Package message assembles deliverability-correct envelopes: stable
// headers receiving systems expect, multipart alternative bodies, and
// per-recipient personalization.
package message

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lzcjsyr/email-bulk-sender/internal/domain"
	"github.com/lzcjsyr/email-bulk-sender/pkg/logger"
)

// Builder assembles envelopes for one sender identity.
type Builder struct {
	sender      domain.Address
	replyTo     string
	unsubscribe string
	xMailer     string
	logger      logger.Logger

	// Injected for deterministic tests.
	now   func() time.Time
	newID func() string
}

// Option configures a Builder.
type Option func(*Builder)

// WithReplyTo sets the Reply-To address. It is only emitted when it
// differs from the sender address.
func WithReplyTo(addr string) Option {
	return func(b *Builder) { b.replyTo = addr }
}

// WithUnsubscribe enables the List-Unsubscribe headers pointing at the
// given mailbox.
func WithUnsubscribe(addr string) Option {
	return func(b *Builder) { b.unsubscribe = addr }
}

// WithXMailer overrides the X-Mailer header value. Empty disables the
// header.
func WithXMailer(value string) Option {
	return func(b *Builder) { b.xMailer = value }
}

// NewBuilder creates a builder for the given sender.
func NewBuilder(sender domain.Address, log logger.Logger, opts ...Option) *Builder {
	b := &Builder{
		sender:  sender,
		xMailer: "bulkmailer",
		logger:  log,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Input is the per-message material for Build.
type Input struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string

	// Headers are applied after the defaults and may overwrite them.
	Headers []domain.Header

	Attachments []domain.Attachment
}

// Build assembles the envelope. Headers are written in a fixed order:
// Message-ID, Date, MIME-Version, Reply-To (when it differs from the
// sender), the List-Unsubscribe pair (when configured), Precedence,
// X-Mailer, then the caller's extra headers. The body always carries
// exactly one plain part; HTML, when present, is CSS-inlined best-effort
// and appended after it so readers that understand multipart/alternative
// prefer it. A missing plain body is derived from the HTML.
func (b *Builder) Build(input Input) (*domain.Envelope, error) {
	if input.To == "" {
		return nil, fmt.Errorf("recipient address is required")
	}
	if input.TextBody == "" && input.HTMLBody == "" {
		return nil, fmt.Errorf("message body is empty")
	}

	env := &domain.Envelope{
		From:    b.sender,
		To:      input.To,
		Subject: input.Subject,
	}

	env.SetHeader("Message-ID", b.messageID())
	env.SetHeader("Date", b.now().Format(time.RFC1123Z))
	env.SetHeader("MIME-Version", "1.0")
	if b.replyTo != "" && !strings.EqualFold(b.replyTo, b.sender.Email) {
		env.SetHeader("Reply-To", b.replyTo)
	}
	if b.unsubscribe != "" {
		env.SetHeader("List-Unsubscribe", fmt.Sprintf("<mailto:%s?subject=unsubscribe>", b.unsubscribe))
		env.SetHeader("List-Unsubscribe-Post", "List-Unsubscribe=One-Click")
	}
	env.SetHeader("Precedence", "bulk")
	if b.xMailer != "" {
		env.SetHeader("X-Mailer", b.xMailer)
	}
	for _, h := range input.Headers {
		env.SetHeader(h.Name, h.Value)
	}

	plain := input.TextBody
	if plain == "" {
		plain = HTMLToPlain(input.HTMLBody)
	}
	env.BodyParts = append(env.BodyParts, domain.BodyPart{
		ContentType: domain.ContentTypeText,
		Content:     plain,
	})
	if input.HTMLBody != "" {
		env.BodyParts = append(env.BodyParts, domain.BodyPart{
			ContentType: domain.ContentTypeHTML,
			Content:     b.inlineCSS(input.HTMLBody),
		})
	}

	env.Attachments = input.Attachments
	return env, nil
}

// messageID returns a globally unique Message-ID scoped to the sender's
// domain, so receiving systems can tie the message to the sending domain.
func (b *Builder) messageID() string {
	domainPart := "localhost"
	if at := strings.LastIndex(b.sender.Email, "@"); at >= 0 && at < len(b.sender.Email)-1 {
		domainPart = b.sender.Email[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", b.newID(), domainPart)
}

// inlineCSS is best-effort: a document premailer cannot process is sent
// with its original markup.
func (b *Builder) inlineCSS(html string) string {
	inlined, err := InlineCSS(html)
	if err != nil {
		b.logger.WithField("error", err.Error()).Warn("CSS inlining failed, sending original HTML")
		return html
	}
	return inlined
}
