package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/spf13/viper"
)

const VERSION = "2.1.0"

// TLS policy names accepted in SMTP_TLS_POLICY.
const (
	TLSOpportunistic = "opportunistic"
	TLSMandatory     = "mandatory"
	TLSNone          = "none"
)

type Config struct {
	SMTP     SMTPConfig
	Sender   SenderConfig
	Delivery DeliveryConfig
	Database DatabaseConfig
	DryRun   bool
	LogLevel string
	Version  string
}

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Timeout   time.Duration
	TLSPolicy string
}

type SenderConfig struct {
	Email            string
	Name             string
	ReplyTo          string
	UnsubscribeEmail string
}

type DeliveryConfig struct {
	// Retry settings
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	RetryJitter    bool

	// Connection rotation
	MaxMessagesPerConnection int

	// Pacing between messages and between batches
	MessageInterval time.Duration
	BatchSize       int
	BatchInterval   time.Duration

	// Parallel campaign workers; each worker owns its own connection
	Workers int
}

type DatabaseConfig struct {
	// URL is the Postgres connection string. Empty disables delivery
	// history and suppression tracking.
	URL string
}

type LoadOptions struct {
	EnvFile string // Optional environment file to load (e.g., ".env", ".env.test")
}

// Load loads the configuration with default options
func Load() (*Config, error) {
	// Try to load .env file but don't require it
	return LoadWithOptions(LoadOptions{EnvFile: ".env"})
}

// LoadWithOptions loads the configuration with the specified options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_TIMEOUT", "30s")
	v.SetDefault("SMTP_TLS_POLICY", TLSOpportunistic)
	v.SetDefault("SENDER_NAME", "")
	v.SetDefault("REPLY_TO_EMAIL", "")
	v.SetDefault("UNSUBSCRIBE_EMAIL", "")
	v.SetDefault("MAX_RETRY_ATTEMPTS", 3)
	v.SetDefault("RETRY_BASE_DELAY", "10s")
	v.SetDefault("RETRY_MAX_DELAY", "5m")
	v.SetDefault("RETRY_JITTER", true)
	v.SetDefault("MAX_EMAILS_PER_CONNECTION", 50)
	v.SetDefault("DELAY_BETWEEN_EMAILS", "1s")
	v.SetDefault("EMAILS_PER_BATCH", 50)
	v.SetDefault("BATCH_INTERVAL", "60s")
	v.SetDefault("WORKERS", 1)
	v.SetDefault("DRY_RUN", false)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("LOG_LEVEL", "info")

	// Load environment file if specified
	if opts.EnvFile != "" {
		v.SetConfigName(opts.EnvFile)
		v.SetConfigType("env")

		currentPath, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("error getting current directory: %w", err)
		}

		v.AddConfigPath(currentPath)

		if err := v.ReadInConfig(); err != nil {
			// It's okay if config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	// Read environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Validate required configuration
	senderEmail := v.GetString("SENDER_EMAIL")
	if senderEmail == "" {
		return nil, fmt.Errorf("SENDER_EMAIL is required")
	}
	if !govalidator.IsEmail(senderEmail) {
		return nil, fmt.Errorf("SENDER_EMAIL %q is not a valid address", senderEmail)
	}
	if v.GetString("SMTP_SERVER") == "" {
		return nil, fmt.Errorf("SMTP_SERVER is required")
	}

	// The SMTP account defaults to the sender address when credentials
	// are in use. An empty password means an unauthenticated relay.
	username := v.GetString("SMTP_USERNAME")
	if username == "" && v.GetString("SENDER_PASSWORD") != "" {
		username = senderEmail
	}

	tlsPolicy := strings.ToLower(v.GetString("SMTP_TLS_POLICY"))
	switch tlsPolicy {
	case TLSOpportunistic, TLSMandatory, TLSNone:
	default:
		return nil, fmt.Errorf("SMTP_TLS_POLICY must be one of %s, %s, %s", TLSOpportunistic, TLSMandatory, TLSNone)
	}

	cfg := &Config{
		SMTP: SMTPConfig{
			Host:      v.GetString("SMTP_SERVER"),
			Port:      v.GetInt("SMTP_PORT"),
			Username:  username,
			Password:  v.GetString("SENDER_PASSWORD"),
			Timeout:   v.GetDuration("SMTP_TIMEOUT"),
			TLSPolicy: tlsPolicy,
		},
		Sender: SenderConfig{
			Email:            senderEmail,
			Name:             v.GetString("SENDER_NAME"),
			ReplyTo:          v.GetString("REPLY_TO_EMAIL"),
			UnsubscribeEmail: v.GetString("UNSUBSCRIBE_EMAIL"),
		},
		Delivery: DeliveryConfig{
			MaxAttempts:              v.GetInt("MAX_RETRY_ATTEMPTS"),
			RetryBaseDelay:           v.GetDuration("RETRY_BASE_DELAY"),
			RetryMaxDelay:            v.GetDuration("RETRY_MAX_DELAY"),
			RetryJitter:              v.GetBool("RETRY_JITTER"),
			MaxMessagesPerConnection: v.GetInt("MAX_EMAILS_PER_CONNECTION"),
			MessageInterval:          v.GetDuration("DELAY_BETWEEN_EMAILS"),
			BatchSize:                v.GetInt("EMAILS_PER_BATCH"),
			BatchInterval:            v.GetDuration("BATCH_INTERVAL"),
			Workers:                  v.GetInt("WORKERS"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("DATABASE_URL"),
		},
		DryRun:   v.GetBool("DRY_RUN"),
		LogLevel: v.GetString("LOG_LEVEL"),

		// The build version is a constant, never environment-driven
		Version: VERSION,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		return fmt.Errorf("SMTP_PORT %d is out of range", c.SMTP.Port)
	}
	if c.Delivery.MaxAttempts < 1 {
		return fmt.Errorf("MAX_RETRY_ATTEMPTS must be at least 1")
	}
	if c.Delivery.MaxMessagesPerConnection < 1 {
		return fmt.Errorf("MAX_EMAILS_PER_CONNECTION must be at least 1")
	}
	if c.Delivery.BatchSize < 1 {
		return fmt.Errorf("EMAILS_PER_BATCH must be at least 1")
	}
	if c.Delivery.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1")
	}
	if c.Sender.ReplyTo != "" && !govalidator.IsEmail(c.Sender.ReplyTo) {
		return fmt.Errorf("REPLY_TO_EMAIL %q is not a valid address", c.Sender.ReplyTo)
	}
	if c.Sender.UnsubscribeEmail != "" && !govalidator.IsEmail(c.Sender.UnsubscribeEmail) {
		return fmt.Errorf("UNSUBSCRIBE_EMAIL %q is not a valid address", c.Sender.UnsubscribeEmail)
	}
	return nil
}

// XMailer returns the X-Mailer header value for outgoing messages.
func (c *Config) XMailer() string {
	return "bulkmailer/" + c.Version
}
