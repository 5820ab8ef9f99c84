package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/lzcjsyr/email-bulk-sender/config"
	"github.com/lzcjsyr/email-bulk-sender/internal/delivery"
	"github.com/lzcjsyr/email-bulk-sender/internal/domain"
	"github.com/lzcjsyr/email-bulk-sender/internal/message"
	"github.com/lzcjsyr/email-bulk-sender/internal/repository"
	"github.com/lzcjsyr/email-bulk-sender/pkg/logger"
)

// osExit is a variable to allow mocking os.Exit in tests
var osExit = os.Exit

func main() {
	var (
		recipientsPath = flag.String("recipients", "", "recipient list: one address or JSON object per line (required)")
		subject        = flag.String("subject", "", "subject template (required unless -verify)")
		textPath       = flag.String("text", "", "plain-text body template file")
		htmlPath       = flag.String("html", "", "HTML body template file")
		attachmentsDir = flag.String("attachments", "", "directory whose files are attached to every message")
		envFile        = flag.String("env", ".env", "environment file to load")
		verifyOnly     = flag.Bool("verify", false, "verify the SMTP connection and exit")
	)
	flag.Parse()

	cfg, err := config.LoadWithOptions(config.LoadOptions{EnvFile: *envFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		osExit(1)
		return
	}

	log := logger.NewConsoleLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, runOptions{
		recipientsPath: *recipientsPath,
		subject:        *subject,
		textPath:       *textPath,
		htmlPath:       *htmlPath,
		attachmentsDir: *attachmentsDir,
		verifyOnly:     *verifyOnly,
	}); err != nil {
		log.WithField("error", err.Error()).Error("Run failed")
		osExit(1)
	}
}

type runOptions struct {
	recipientsPath string
	subject        string
	textPath       string
	htmlPath       string
	attachmentsDir string
	verifyOnly     bool
}

// run wires the configured collaborators together and drives the
// delivery job
func run(ctx context.Context, cfg *config.Config, log logger.Logger, opts runOptions) error {
	runner, cleanup, err := buildRunner(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := runner.Verify(ctx); err != nil {
		return fmt.Errorf("SMTP verification failed: %w", err)
	}
	log.Info("SMTP connection verified")
	if opts.verifyOnly {
		return nil
	}

	job, err := loadJob(opts)
	if err != nil {
		return err
	}

	report, err := runner.Run(ctx, job)
	if report != nil {
		fmt.Printf("Delivered %d of %d messages (%d failed, %d skipped) in %s\n",
			report.Sent, report.Total, report.Failed, report.Skipped,
			report.Duration.Round(time.Second))
	}
	return err
}

// buildRunner assembles the delivery runner from configuration. The
// returned cleanup closes the database connection, if one was opened.
func buildRunner(ctx context.Context, cfg *config.Config, log logger.Logger) (*delivery.Runner, func(), error) {
	sender := domain.Address{Name: cfg.Sender.Name, Email: cfg.Sender.Email}
	builder := message.NewBuilder(sender, log,
		message.WithReplyTo(cfg.Sender.ReplyTo),
		message.WithUnsubscribe(cfg.Sender.UnsubscribeEmail),
		message.WithXMailer(cfg.XMailer()),
	)
	dialer := delivery.NewSMTPDialer(cfg.SMTP, log)

	deliveryCfg := &delivery.Config{
		MaxAttempts:           cfg.Delivery.MaxAttempts,
		RetryBaseDelay:        cfg.Delivery.RetryBaseDelay,
		RetryMaxDelay:         cfg.Delivery.RetryMaxDelay,
		RetryJitter:           cfg.Delivery.RetryJitter,
		MaxMessagesPerSession: cfg.Delivery.MaxMessagesPerConnection,
		MessageInterval:       cfg.Delivery.MessageInterval,
		BatchSize:             cfg.Delivery.BatchSize,
		BatchInterval:         cfg.Delivery.BatchInterval,
		Workers:               cfg.Delivery.Workers,
		ProgressLogInterval:   delivery.DefaultConfig().ProgressLogInterval,
		DryRun:                cfg.DryRun,
	}

	runnerOpts := []delivery.RunnerOption{
		delivery.WithUnsubscribeAddress(cfg.Sender.UnsubscribeEmail),
	}
	cleanup := func() {}

	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		repo := repository.NewDeliveryRepository(db)
		if err := repo.InitSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		runnerOpts = append(runnerOpts,
			delivery.WithHistory(repo),
			delivery.WithSuppressionList(repo),
		)
		cleanup = func() { db.Close() }
		log.Info("Delivery history and suppression tracking enabled")
	}

	runner := delivery.NewRunner(dialer, builder, message.NewRenderer(), deliveryCfg, log, runnerOpts...)
	return runner, cleanup, nil
}

// loadJob reads the recipient list, templates and attachments into a job
func loadJob(opts runOptions) (*delivery.Job, error) {
	if opts.recipientsPath == "" {
		return nil, fmt.Errorf("-recipients is required")
	}
	if opts.subject == "" {
		return nil, fmt.Errorf("-subject is required")
	}
	if opts.textPath == "" && opts.htmlPath == "" {
		return nil, fmt.Errorf("at least one of -text or -html is required")
	}

	file, err := os.Open(opts.recipientsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open recipient list: %w", err)
	}
	defer file.Close()

	recipients, err := domain.ParseRecipients(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recipient list: %w", err)
	}
	if err := resolveRecipientAttachments(recipients, opts.attachmentsDir); err != nil {
		return nil, err
	}

	template := message.Template{Subject: opts.subject}
	if opts.textPath != "" {
		body, err := os.ReadFile(opts.textPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read text template: %w", err)
		}
		template.Text = string(body)
	}
	if opts.htmlPath != "" {
		body, err := os.ReadFile(opts.htmlPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read HTML template: %w", err)
		}
		template.HTML = string(body)
	}

	referenced := make(map[string]bool)
	for _, recipient := range recipients {
		for _, attachment := range recipient.Attachments {
			referenced[attachment.Filename] = true
		}
	}

	attachments, err := loadAttachments(opts.attachmentsDir, referenced)
	if err != nil {
		return nil, err
	}

	return &delivery.Job{
		Recipients:  recipients,
		Template:    template,
		Attachments: attachments,
	}, nil
}

// resolveRecipientAttachments reads the contents of files named in the
// recipient list. Names are resolved against the attachments directory
// when one is given; a missing file fails the load before any send.
func resolveRecipientAttachments(recipients []domain.Recipient, dir string) error {
	for i := range recipients {
		for j := range recipients[i].Attachments {
			name := recipients[i].Attachments[j].Filename
			path := name
			if dir != "" {
				path = filepath.Join(dir, name)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read attachment %s for %s: %w",
					name, recipients[i].Email, err)
			}
			recipients[i].Attachments[j].Filename = filepath.Base(name)
			recipients[i].Attachments[j].Data = data
		}
	}
	return nil
}

// loadAttachments reads every regular file in dir except those named by
// individual recipients, which ride with their recipient instead.
// Content types are guessed from filenames at send time.
func loadAttachments(dir string, skip map[string]bool) ([]domain.Attachment, error) {
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachments directory: %w", err)
	}

	var attachments []domain.Attachment
	for _, entry := range entries {
		if entry.IsDir() || skip[entry.Name()] {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment %s: %w", entry.Name(), err)
		}
		attachments = append(attachments, domain.Attachment{
			Filename: entry.Name(),
			Data:     data,
		})
	}
	return attachments, nil
}
