package config

import "fmt"

// ConfigError names the environment variable that stops the bot from
// starting. Missing is set when the variable is absent rather than invalid.
type ConfigError struct {
	Field   string
	Message string
	Missing bool
}

// NewConfigError reports an environment variable with an unusable value
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// newMissingError reports a required environment variable that is unset.
func newMissingError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
		Missing: true,
	}
}

func (e *ConfigError) Error() string {
	if e.Missing {
		return fmt.Sprintf("config: %s is not set: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config: %s is invalid: %s", e.Field, e.Message)
}
