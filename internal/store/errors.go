// internal/store/errors.go
package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrConfigMissing is returned when host or port of a backend cannot be resolved.
	ErrConfigMissing = errors.New("store config not found")
	// ErrNotConnected is returned by data operations issued before a successful connect.
	ErrNotConnected = errors.New("store not connected")
	// ErrNotReady is returned when the readiness probe of a new connection fails.
	ErrNotReady = errors.New("store not ready")
	// ErrConnectTimeout is returned when the readiness probe does not settle in time.
	ErrConnectTimeout = errors.New("store readiness probe timed out")
	// ErrNoMembers is returned by SAdd when called without members.
	ErrNoMembers = errors.New("at least one member is required")
)

// OpError records the operation that failed against the store.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// InvalidConfigurationError is thrown when the type of the configuration is not supported by a store.
type InvalidConfigurationError struct {
	Store  string
	Config any
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("%s: invalid configuration type: %T", e.Store, e.Config)
}

// UnknownConstructorError is thrown when a requested store is not registered.
type UnknownConstructorError struct {
	Store string
}

func (e UnknownConstructorError) Error() string {
	return fmt.Sprintf("unknown constructor %q (forgotten import?)", e.Store)
}

// ConnectOutcome classifies the result of a connect attempt.
type ConnectOutcome int

const (
	OutcomeConnected ConnectOutcome = iota
	OutcomeConfigMissing
	OutcomeFailed
	OutcomeTimeout
)

func (o ConnectOutcome) String() string {
	switch o {
	case OutcomeConnected:
		return "connected"
	case OutcomeConfigMissing:
		return "config_missing"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "failed"
	}
}

// Classify maps a connect error onto a ConnectOutcome. A nil error is OutcomeConnected.
func Classify(err error) ConnectOutcome {
	switch {
	case err == nil:
		return OutcomeConnected
	case errors.Is(err, ErrConfigMissing):
		return OutcomeConfigMissing
	case errors.Is(err, ErrConnectTimeout), errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeFailed
	}
}
