package config

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/hay-kot/criterio"

	"github.com/JohanCodinha/tuido/internal/logger"
)

// Validate checks the configuration and reports every invalid field.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("database", c.Database, notEmpty),
		criterio.Run("log.level", c.Log.Level, validLogLevel),
		c.validateSync(),
		c.validateBackend(),
	)
}

func (c *Config) validateSync() error {
	var errs criterio.FieldErrorsBuilder

	if !slices.Contains([]string{BackendNone, BackendCalDAV, BackendGoogle}, c.Sync.Backend) {
		errs = errs.Append("sync.backend", fmt.Errorf("must be one of %s, %s, %s", BackendNone, BackendCalDAV, BackendGoogle))
	}
	if c.Sync.WindowBack < 0 {
		errs = errs.Append("sync.window_back", fmt.Errorf("must not be negative"))
	}
	if c.Sync.WindowAhead < 0 {
		errs = errs.Append("sync.window_ahead", fmt.Errorf("must not be negative"))
	}
	if c.Sync.RetryAttempts < 1 {
		errs = errs.Append("sync.retry_attempts", fmt.Errorf("must be at least 1"))
	}
	if c.Sync.RetryWait < 0 {
		errs = errs.Append("sync.retry_wait", fmt.Errorf("must not be negative"))
	}

	return errs.ToError()
}

func (c *Config) validateBackend() error {
	switch c.Sync.Backend {
	case BackendCalDAV:
		return criterio.ValidateStruct(
			criterio.Run("caldav.url", c.CalDAV.URL, httpURL),
			criterio.Run("caldav.username", c.CalDAV.Username, notEmpty),
		)
	case BackendGoogle:
		return criterio.ValidateStruct(
			criterio.Run("google.credentials_file", c.Google.CredentialsFile, notEmpty),
			criterio.Run("google.token_file", c.Google.TokenFile, notEmpty),
		)
	}
	return nil
}

func notEmpty(s string) error {
	if s == "" {
		return fmt.Errorf("is required")
	}
	return nil
}

func validLogLevel(s string) error {
	_, err := logger.ParseLevel(s)
	return err
}

func httpURL(s string) error {
	if s == "" {
		return fmt.Errorf("is required")
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
