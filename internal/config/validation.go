package config

import (
	"fmt"
	"strings"

	friendlyerrors "github.com/jxwalker/cfcore/internal/errors"
)

// ValidationError represents a detailed config validation error
type ValidationError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Config validation error in '%s': %s", e.Field, e.Message)
}

// ValidateDetailed reports soft problems that Validate tolerates but a user should fix.
func (c *Config) ValidateDetailed() []ValidationError {
	var errs []ValidationError

	if c.APIKey() == "" {
		errs = append(errs, ValidationError{
			Field:      "api.key_env",
			Value:      c.API.KeyEnv,
			Message:    fmt.Sprintf("No API key: %s is not set and api.key is empty", c.API.KeyEnv),
			Suggestion: fmt.Sprintf("export %s=...\nGet one at: https://console.curseforge.com/#/api-keys", c.API.KeyEnv),
		})
	}

	if c.Network.MaxRedirects > 30 {
		errs = append(errs, ValidationError{
			Field:      "network.max_redirects",
			Value:      c.Network.MaxRedirects,
			Message:    "Unusually high redirect bound",
			Suggestion: "Download URLs redirect once or twice; 10 is plenty",
		})
	}

	if c.Network.TimeoutSeconds > 3600 {
		errs = append(errs, ValidationError{
			Field:      "network.timeout_seconds",
			Value:      c.Network.TimeoutSeconds,
			Message:    "Very long timeout (>1 hour)",
			Suggestion: "Consider reducing to 30-300 seconds",
		})
	}

	if c.Network.MaxBytesPerSecond > 0 && c.Network.MaxBytesPerSecond < 1024 {
		errs = append(errs, ValidationError{
			Field:      "network.max_bytes_per_second",
			Value:      c.Network.MaxBytesPerSecond,
			Message:    "Bandwidth cap below 1 KiB/s",
			Suggestion: "Use 0 for unlimited",
		})
	}

	if c.Concurrency.DependencyWorkers > 8 {
		errs = append(errs, ValidationError{
			Field:      "concurrency.dependency_workers",
			Value:      c.Concurrency.DependencyWorkers,
			Message:    "High lookup concurrency may trip API rate limits",
			Suggestion: "Recommended: 1-4",
		})
	}

	return errs
}

// ValidateWithFriendlyErrors returns a user-friendly validation error
func (c *Config) ValidateWithFriendlyErrors() error {
	if err := c.Validate(); err != nil {
		return err
	}

	errs := c.ValidateDetailed()
	if len(errs) == 0 {
		return nil
	}

	var msg strings.Builder
	for i, err := range errs {
		msg.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
		if err.Value != nil {
			msg.WriteString(fmt.Sprintf("   Current value: %v\n", err.Value))
		}
		for _, line := range strings.Split(err.Suggestion, "\n") {
			if line != "" {
				msg.WriteString(fmt.Sprintf("   → %s\n", line))
			}
		}
	}

	return friendlyerrors.NewFriendlyError("Config validation found problems", msg.String())
}
