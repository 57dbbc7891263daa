package config

import (
	"fmt"
	"time"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the %s driver", DriverPostgres)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be %s or %s (got %q)", DriverPostgres, DriverMemory, c.Database.Driver)
	}

	if _, err := time.LoadLocation(c.Server.DefaultTimezone); err != nil {
		return fmt.Errorf("server.default_timezone: unknown timezone %q", c.Server.DefaultTimezone)
	}

	if err := c.Extraction.validate(); err != nil {
		return fmt.Errorf("extraction: %w", err)
	}

	if c.Cache.PrefetchWindow < 0 {
		return fmt.Errorf("cache.prefetch_window must be >= 0 (got %d)", c.Cache.PrefetchWindow)
	}
	if c.Capture.FinalTranscriptTimeout <= 0 {
		return fmt.Errorf("capture.final_transcript_timeout must be > 0 (got %s)", c.Capture.FinalTranscriptTimeout)
	}
	if c.Reconcile.SaveWatchdog <= 0 {
		return fmt.Errorf("reconcile.save_watchdog must be > 0 (got %s)", c.Reconcile.SaveWatchdog)
	}
	if c.RateLimit.LogPerMinute <= 0 {
		return fmt.Errorf("ratelimit.log_per_minute must be > 0 (got %d)", c.RateLimit.LogPerMinute)
	}
	if c.RateLimit.CleanupInterval <= 0 {
		return fmt.Errorf("ratelimit.cleanup_interval must be > 0 (got %s)", c.RateLimit.CleanupInterval)
	}

	return nil
}

func (e *ExtractionConfig) validate() error {
	if e.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1 (got %d)", e.MaxAttempts)
	}
	if e.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be > 0 (got %s)", e.InitialBackoff)
	}
	if e.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff_multiplier must be >= 1 (got %v)", e.BackoffMultiplier)
	}
	if e.AttemptTimeout <= 0 {
		return fmt.Errorf("attempt_timeout must be > 0 (got %s)", e.AttemptTimeout)
	}
	if e.PriorDays < 0 {
		return fmt.Errorf("prior_days must be >= 0 (got %d)", e.PriorDays)
	}
	if e.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be > 0 (got %d)", e.MaxTokens)
	}
	return nil
}
