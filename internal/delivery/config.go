package delivery

import "time"

// Config contains configuration for the delivery engine
type Config struct {
	// Retry settings
	MaxAttempts    int           `json:"max_attempts"`
	RetryBaseDelay time.Duration `json:"retry_base_delay"`
	RetryMaxDelay  time.Duration `json:"retry_max_delay"`
	RetryJitter    bool          `json:"retry_jitter"`

	// Connection reuse
	MaxMessagesPerSession int `json:"max_messages_per_session"`

	// Pacing between messages and between batches
	MessageInterval time.Duration `json:"message_interval"`
	BatchSize       int           `json:"batch_size"`
	BatchInterval   time.Duration `json:"batch_interval"`

	// Concurrency settings
	Workers int `json:"workers"`

	// Logging and metrics
	ProgressLogInterval int `json:"progress_log_interval"` // Log progress every N recipients

	// DryRun renders and builds messages without opening an SMTP session
	DryRun bool `json:"dry_run"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:           3,
		RetryBaseDelay:        10 * time.Second,
		RetryMaxDelay:         5 * time.Minute,
		RetryJitter:           true,
		MaxMessagesPerSession: 50,
		MessageInterval:       1 * time.Second,
		BatchSize:             50,
		BatchInterval:         60 * time.Second,
		Workers:               1,
		ProgressLogInterval:   10,
	}
}
