package config

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing every problem found.
func Validate(cfg *Config) error {
	var errs []error

	switch cfg.Mode {
	case ModeDevelopment, ModePackaged:
	default:
		errs = append(errs, ValidationError{
			Field:   "mode",
			Message: fmt.Sprintf("must be %q or %q, got %q", ModeDevelopment, ModePackaged, cfg.Mode),
		})
	}

	if cfg.Mode == ModePackaged && cfg.ResourceDir == "" {
		errs = append(errs, ValidationError{
			Field:   "resource_dir",
			Message: "required in packaged mode",
		})
	}

	if cfg.SweepInterval <= 0 {
		errs = append(errs, ValidationError{
			Field:   "sweep_interval",
			Message: "must be positive",
		})
	}

	if cfg.SettleDelay < 0 {
		errs = append(errs, ValidationError{
			Field:   "settle_delay",
			Message: "must not be negative",
		})
	}

	for _, d := range []struct {
		field string
		value time.Duration
	}{
		{"probe_timeout", cfg.ProbeTimeout},
		{"sync_timeout", cfg.SyncTimeout},
		{"init_timeout", cfg.InitTimeout},
	} {
		if d.value <= 0 {
			errs = append(errs, ValidationError{
				Field:   d.field,
				Message: "must be positive",
			})
		}
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be json or text, got %q", cfg.LogFormat),
		})
	}

	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			errs = append(errs, ValidationError{
				Field:   "metrics_addr",
				Message: fmt.Sprintf("invalid listen address: %v", err),
			})
		}
	}

	return errors.Join(errs...)
}
