package session

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	// DefaultIdleTimeout is the inactivity threshold before forced logout.
	DefaultIdleTimeout = 30 * time.Minute
	// DefaultCheckInterval is how often the idle evaluation runs.
	DefaultCheckInterval = time.Minute
)

// Config holds session manager tunables.
type Config struct {
	// IdleTimeout is the inactivity gap that forces a logout.
	IdleTimeout time.Duration
	// CheckInterval is the idle evaluation period, independent of activity
	// events.
	CheckInterval time.Duration
	// ActivityThrottle gates how often raw activity events are turned into
	// dispatches. Zero means every event stamps.
	ActivityThrottle time.Duration
	// KeyPrefix namespaces the persisted record in the storage backend.
	KeyPrefix string
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:   DefaultIdleTimeout,
		CheckInterval: DefaultCheckInterval,
		KeyPrefix:     DefaultKeyPrefix,
	}
}

// Validate will run validation rules
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.IdleTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.CheckInterval, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.ActivityThrottle, validation.Min(time.Duration(0))),
		validation.Field(&c.KeyPrefix, validation.Required),
	)
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = def.CheckInterval
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = def.KeyPrefix
	}
	return c
}
