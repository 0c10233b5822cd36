// internal/config/validator.go
package config

import (
	"errors"
	"fmt"

	"github.com/avivl/kvkeeper/internal/observability"
)

// validateSettings checks the settings this module itself depends on. Store
// connection parameters are not checked here; a missing host or port is
// reported when connecting.
func validateSettings(s *Settings) error {
	if s == nil {
		return errors.New("configuration cannot be nil")
	}

	if !isKnownBackend(s.Backend.Type) {
		return fmt.Errorf("unknown backend type %q", s.Backend.Type)
	}

	if s.ServerAddress == "" {
		return errors.New("server address is required")
	}
	if s.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got %s", s.ConnectTimeout)
	}
	if s.ProbeInterval <= 0 {
		return fmt.Errorf("probe interval must be positive, got %s", s.ProbeInterval)
	}

	switch s.Logger.Level {
	case "", observability.LogLevelDebug, observability.LogLevelInfo,
		observability.LogLevelWarn, observability.LogLevelError:
	default:
		return fmt.Errorf("unknown log level %q", s.Logger.Level)
	}

	if s.Observability.Enabled {
		if s.Observability.ServiceName == "" {
			return errors.New("service name is required")
		}
		if s.Observability.OTelEndpoint == "" {
			return errors.New("OpenTelemetry endpoint is required")
		}
	}

	return nil
}
