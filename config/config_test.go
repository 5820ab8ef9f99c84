package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test,
// restoring the original directory on cleanup (t.Chdir needs Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(oldWd); err != nil {
			t.Errorf("restoring working directory: %v", err)
		}
	})
}

func setRequiredEnv(t *testing.T) {
	t.Setenv("SENDER_EMAIL", "sender@example.com")
	t.Setenv("SMTP_SERVER", "smtp.example.com")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadWithOptions(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, 30*time.Second, cfg.SMTP.Timeout)
	assert.Equal(t, TLSOpportunistic, cfg.SMTP.TLSPolicy)
	assert.Empty(t, cfg.SMTP.Username)
	assert.Empty(t, cfg.SMTP.Password)

	assert.Equal(t, "sender@example.com", cfg.Sender.Email)
	assert.Empty(t, cfg.Sender.Name)
	assert.Empty(t, cfg.Sender.ReplyTo)
	assert.Empty(t, cfg.Sender.UnsubscribeEmail)

	assert.Equal(t, 3, cfg.Delivery.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Delivery.RetryBaseDelay)
	assert.Equal(t, 5*time.Minute, cfg.Delivery.RetryMaxDelay)
	assert.True(t, cfg.Delivery.RetryJitter)
	assert.Equal(t, 50, cfg.Delivery.MaxMessagesPerConnection)
	assert.Equal(t, time.Second, cfg.Delivery.MessageInterval)
	assert.Equal(t, 50, cfg.Delivery.BatchSize)
	assert.Equal(t, 60*time.Second, cfg.Delivery.BatchInterval)
	assert.Equal(t, 1, cfg.Delivery.Workers)

	assert.False(t, cfg.DryRun)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, VERSION, cfg.Version)
}

func TestLoadVersionIgnoresEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("VERSION", "99.0.0")

	cfg, err := LoadWithOptions(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, VERSION, cfg.Version)
	assert.Equal(t, "bulkmailer/"+VERSION, cfg.XMailer())
}

func TestLoadRequiredSenderEmail(t *testing.T) {
	t.Setenv("SENDER_EMAIL", "")
	t.Setenv("SMTP_SERVER", "smtp.example.com")

	_, err := LoadWithOptions(LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SENDER_EMAIL")
}

func TestLoadRejectsMalformedSenderEmail(t *testing.T) {
	t.Setenv("SENDER_EMAIL", "not-an-address")
	t.Setenv("SMTP_SERVER", "smtp.example.com")

	_, err := LoadWithOptions(LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid address")
}

func TestLoadRequiredSMTPServer(t *testing.T) {
	t.Setenv("SENDER_EMAIL", "sender@example.com")
	t.Setenv("SMTP_SERVER", "")

	_, err := LoadWithOptions(LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP_SERVER")
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SENDER_PASSWORD", "secret")
	t.Setenv("SENDER_NAME", "Newsletter")
	t.Setenv("REPLY_TO_EMAIL", "replies@example.com")
	t.Setenv("UNSUBSCRIBE_EMAIL", "unsubscribe@example.com")
	t.Setenv("MAX_RETRY_ATTEMPTS", "5")
	t.Setenv("RETRY_BASE_DELAY", "2s")
	t.Setenv("RETRY_JITTER", "false")
	t.Setenv("MAX_EMAILS_PER_CONNECTION", "10")
	t.Setenv("DELAY_BETWEEN_EMAILS", "250ms")
	t.Setenv("EMAILS_PER_BATCH", "20")
	t.Setenv("BATCH_INTERVAL", "90s")
	t.Setenv("WORKERS", "4")
	t.Setenv("DRY_RUN", "true")
	t.Setenv("DATABASE_URL", "postgres://mailer:pw@localhost/mailer?sslmode=disable")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadWithOptions(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.Equal(t, "secret", cfg.SMTP.Password)
	assert.Equal(t, "Newsletter", cfg.Sender.Name)
	assert.Equal(t, "replies@example.com", cfg.Sender.ReplyTo)
	assert.Equal(t, "unsubscribe@example.com", cfg.Sender.UnsubscribeEmail)
	assert.Equal(t, 5, cfg.Delivery.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Delivery.RetryBaseDelay)
	assert.False(t, cfg.Delivery.RetryJitter)
	assert.Equal(t, 10, cfg.Delivery.MaxMessagesPerConnection)
	assert.Equal(t, 250*time.Millisecond, cfg.Delivery.MessageInterval)
	assert.Equal(t, 20, cfg.Delivery.BatchSize)
	assert.Equal(t, 90*time.Second, cfg.Delivery.BatchInterval)
	assert.Equal(t, 4, cfg.Delivery.Workers)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "postgres://mailer:pw@localhost/mailer?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadUsernameDefaultsToSenderWhenAuthenticated(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SENDER_PASSWORD", "secret")

	cfg, err := LoadWithOptions(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "sender@example.com", cfg.SMTP.Username)
}

func TestLoadExplicitUsernameWins(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SENDER_PASSWORD", "secret")
	t.Setenv("SMTP_USERNAME", "relay-account")

	cfg, err := LoadWithOptions(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "relay-account", cfg.SMTP.Username)
}

func TestLoadTLSPolicy(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
	}{
		{"opportunistic", false},
		{"mandatory", false},
		{"none", false},
		{"MANDATORY", false},
		{"starttls-maybe", true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("SMTP_TLS_POLICY", tt.value)

			cfg, err := LoadWithOptions(LoadOptions{})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, cfg.SMTP.TLSPolicy)
		})
	}
}

func TestLoadValidationBounds(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero attempts", "MAX_RETRY_ATTEMPTS", "0"},
		{"port out of range", "SMTP_PORT", "70000"},
		{"zero connection budget", "MAX_EMAILS_PER_CONNECTION", "0"},
		{"zero batch size", "EMAILS_PER_BATCH", "0"},
		{"zero workers", "WORKERS", "0"},
		{"bad reply-to", "REPLY_TO_EMAIL", "nope"},
		{"bad unsubscribe", "UNSUBSCRIBE_EMAIL", "also nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadWithOptions(LoadOptions{})
			require.Error(t, err)
		})
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env.test")
	content := "SENDER_EMAIL=file@example.com\nSMTP_SERVER=smtp.file.example.com\nSMTP_PORT=2526\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))
	chdir(t, dir)

	cfg, err := LoadWithOptions(LoadOptions{EnvFile: ".env.test"})
	require.NoError(t, err)

	assert.Equal(t, "file@example.com", cfg.Sender.Email)
	assert.Equal(t, "smtp.file.example.com", cfg.SMTP.Host)
	assert.Equal(t, 2526, cfg.SMTP.Port)
}

func TestLoadMissingEnvFileIsTolerated(t *testing.T) {
	setRequiredEnv(t)
	chdir(t, t.TempDir())

	_, err := LoadWithOptions(LoadOptions{EnvFile: ".env"})
	require.NoError(t, err)
}

func TestXMailer(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadWithOptions(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "bulkmailer/"+VERSION, cfg.XMailer())
}
