package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvValidator handles validation and typed lookup of environment variables
type EnvValidator struct{}

// NewEnvValidator creates a new environment validator instance
func NewEnvValidator() *EnvValidator {
	return &EnvValidator{}
}

// ValidateRequired validates that all required environment variables are present
// Returns an error if any required variables are missing
func (e *EnvValidator) ValidateRequired() error {
	requiredVars := []string{EnvLibraryRoot}

	var missingVars []string
	for _, varName := range requiredVars {
		if value := strings.TrimSpace(os.Getenv(varName)); value == "" {
			missingVars = append(missingVars, varName)
		}
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v. Please set these variables in your .env file or environment", missingVars)
	}

	return nil
}

// GetString returns the trimmed value of key, or fallback when unset or blank
func (e *EnvValidator) GetString(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

// GetInt returns the integer value of key, or fallback when unset
func (e *EnvValidator) GetInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer, got: %s", key, raw)
	}
	return value, nil
}

// GetBool returns the boolean value of key, or fallback when unset.
// Accepts the forms understood by strconv.ParseBool plus yes/no.
func (e *EnvValidator) GetBool(key string, fallback bool) (bool, error) {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch raw {
	case "":
		return fallback, nil
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got: %s", key, raw)
	}
	return value, nil
}

// GetDuration returns the duration value of key, or fallback when unset
func (e *EnvValidator) GetDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration (e.g. 30s, 2m), got: %s", key, raw)
	}
	return value, nil
}
