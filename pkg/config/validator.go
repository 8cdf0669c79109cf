package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "generation service base URL is required",
		})
	}

	if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid generation service base URL",
		})
	}

	if c.LLM.MaxTokens < 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be positive",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	// Validate converter config
	if c.Converter.Command == "" {
		errors = append(errors, ValidationError{
			Field:   "converter.command",
			Message: "converter command is required",
		})
	}

	if !strings.HasPrefix(c.Converter.OutputExt, ".") {
		errors = append(errors, ValidationError{
			Field:   "converter.output_ext",
			Message: fmt.Sprintf("invalid extension format: %s", c.Converter.OutputExt),
		})
	}

	if c.Converter.TimeoutSec < 0 {
		errors = append(errors, ValidationError{
			Field:   "converter.timeout_sec",
			Message: "timeout_sec cannot be negative",
		})
	}

	// Validate gate config
	if c.Gate.TempThresholdC < 1 {
		errors = append(errors, ValidationError{
			Field:   "gate.temp_threshold_c",
			Message: "temp_threshold_c must be positive",
		})
	}

	if c.Gate.MinFreeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "gate.min_free_mb",
			Message: "min_free_mb cannot be negative",
		})
	}

	if c.Gate.PollIntervalSec < 1 {
		errors = append(errors, ValidationError{
			Field:   "gate.poll_interval_sec",
			Message: "poll_interval_sec must be positive",
		})
	}

	if c.Gate.WaitTimeoutSec < c.Gate.PollIntervalSec {
		errors = append(errors, ValidationError{
			Field:   "gate.wait_timeout_sec",
			Message: "wait_timeout_sec must be at least poll_interval_sec",
		})
	}

	// Validate database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	return errors
}
