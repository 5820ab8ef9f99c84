package delivery

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/lzcjsyr/email-bulk-sender/config"
	"github.com/lzcjsyr/email-bulk-sender/internal/domain"
	"github.com/lzcjsyr/email-bulk-sender/pkg/logger"
)

// SMTPDialer establishes authenticated SMTP sessions for a single account
type SMTPDialer struct {
	cfg    config.SMTPConfig
	logger logger.Logger
}

// NewSMTPDialer creates a dialer from SMTP account settings
func NewSMTPDialer(cfg config.SMTPConfig, log logger.Logger) *SMTPDialer {
	return &SMTPDialer{
		cfg:    cfg,
		logger: log,
	}
}

// Dial connects to the configured server and authenticates, returning a
// session that stays open until closed or invalidated
func (d *SMTPDialer) Dial(ctx context.Context) (Session, error) {
	client, err := d.createSMTPClient()
	if err != nil {
		return nil, err
	}

	if err := client.DialWithContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s:%d: %w", d.cfg.Host, d.cfg.Port, err)
	}

	d.logger.WithFields(map[string]interface{}{
		"host": d.cfg.Host,
		"port": d.cfg.Port,
	}).Debug("SMTP session established")

	return &smtpSession{client: client}, nil
}

// createSMTPClient creates and configures a new SMTP client
func (d *SMTPDialer) createSMTPClient() (*mail.Client, error) {
	// Build client options
	clientOptions := []mail.Option{
		mail.WithPort(d.cfg.Port),
		mail.WithTLSPolicy(tlsPolicy(d.cfg.TLSPolicy)),
	}
	if d.cfg.Timeout > 0 {
		clientOptions = append(clientOptions, mail.WithTimeout(d.cfg.Timeout))
	}

	// Only add authentication if username and password are provided
	// This allows for unauthenticated SMTP servers (e.g., local relays, port 25)
	if d.cfg.Username != "" && d.cfg.Password != "" {
		clientOptions = append(clientOptions,
			mail.WithUsername(d.cfg.Username),
			mail.WithPassword(d.cfg.Password),
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
		)
	}

	client, err := mail.NewClient(d.cfg.Host, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	return client, nil
}

// tlsPolicy maps the configured policy name to a go-mail TLS policy
func tlsPolicy(policy string) mail.TLSPolicy {
	switch policy {
	case config.TLSMandatory:
		return mail.TLSMandatory
	case config.TLSNone:
		return mail.NoTLS
	default:
		return mail.TLSOpportunistic
	}
}

// smtpSession adapts a dialed go-mail client to the Session interface
type smtpSession struct {
	client *mail.Client
}

// Send transmits one message over the open session. The client applies
// its own per-command timeout, so a hung server cannot block forever.
func (s *smtpSession) Send(ctx context.Context, env *domain.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := envelopeToMsg(env)
	if err != nil {
		return err
	}

	if err := s.client.Send(msg); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", env.To, err)
	}

	return nil
}

// Close terminates the session with a QUIT
func (s *smtpSession) Close() error {
	return s.client.Close()
}

// envelopeToMsg converts a built envelope into a go-mail message.
// go-mail writes its own MIME-Version header, so that one is skipped to
// avoid a duplicate; Date and Message-ID from the envelope take
// precedence over generated ones.
func envelopeToMsg(env *domain.Envelope) (*mail.Msg, error) {
	msg := mail.NewMsg(mail.WithNoDefaultUserAgent())

	if err := msg.FromFormat(env.From.Name, env.From.Email); err != nil {
		return nil, fmt.Errorf("failed to set sender address: %w", err)
	}
	if err := msg.To(env.To); err != nil {
		return nil, fmt.Errorf("failed to set recipient address: %w", err)
	}
	msg.Subject(env.Subject)

	for _, header := range env.Headers {
		if strings.EqualFold(header.Name, "MIME-Version") {
			continue
		}
		msg.SetGenHeader(mail.Header(header.Name), header.Value)
	}

	for i, part := range env.BodyParts {
		if i == 0 {
			msg.SetBodyString(mail.ContentType(part.ContentType), part.Content)
			continue
		}
		msg.AddAlternativeString(mail.ContentType(part.ContentType), part.Content)
	}

	for _, attachment := range env.Attachments {
		contentType := attachment.ContentType
		if contentType == "" {
			contentType = mime.TypeByExtension(filepath.Ext(attachment.Filename))
		}
		if contentType == "" {
			contentType = string(mail.TypeAppOctetStream)
		}
		err := msg.AttachReader(attachment.Filename, bytes.NewReader(attachment.Data),
			mail.WithFileContentType(mail.ContentType(contentType)))
		if err != nil {
			return nil, fmt.Errorf("failed to attach %s: %w", attachment.Filename, err)
		}
	}

	return msg, nil
}
