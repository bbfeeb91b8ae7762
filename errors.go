package scanner

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/zero-day-ai/scanner/store"
)

// Sentinel errors for common scanner error conditions.
// These errors can be used with errors.Is() for error checking.
//
// Conditions the probe pipeline reports (disabled integration, rate limit,
// open breaker) surface as structured ProbeResult records, not Go errors,
// and therefore have no sentinel here.
var (
	// ErrProbeNotFound indicates the requested probe is not exposed by any
	// enabled integration.
	ErrProbeNotFound = errors.New("probe not found")

	// ErrIntegrationNotFound indicates the named integration is not
	// registered with the engine.
	ErrIntegrationNotFound = errors.New("integration not found")

	// ErrScanNotFound indicates the requested scan does not exist in the
	// store.
	ErrScanNotFound = store.ErrNotFound

	// ErrInvalidConfig indicates the provided configuration is invalid or
	// incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidTransition indicates a scan status change that the
	// lifecycle state machine does not allow.
	ErrInvalidTransition = store.ErrInvalidTransition
)

// Error kinds categorize errors by their type.
const (
	// KindNotFound represents errors where a resource was not found.
	KindNotFound = "not_found"

	// KindValidation represents errors related to input validation.
	KindValidation = "validation"

	// KindConfiguration represents errors related to configuration,
	// including disabled integrations and missing required model settings.
	// Configuration errors are reported, never retried.
	KindConfiguration = "configuration"

	// KindProvider represents transient model provider failures. These are
	// retried and feed the circuit breaker.
	KindProvider = "provider"

	// KindTimeout represents probe executions that exceeded their
	// wall-clock budget. Timeouts are retried but do not feed the breaker.
	KindTimeout = "timeout"

	// KindRateLimit represents local rate limit rejections, surfaced
	// immediately without retrying.
	KindRateLimit = "rate_limit"

	// KindCircuitOpen represents calls blocked by an open circuit breaker.
	KindCircuitOpen = "circuit_open"

	// KindExecution represents probe logic failures during execution.
	KindExecution = "execution"

	// KindStorage represents scan store failures.
	KindStorage = "storage"

	// KindInternal represents internal scanner errors.
	KindInternal = "internal"
)

// ScannerError is a structured error type that wraps underlying errors with
// the operation that failed and the category of failure.
//
// ScannerError implements the error interface and supports error
// unwrapping, making it compatible with errors.Is() and errors.As().
//
// Example usage:
//
//	err := &ScannerError{
//		Op:   "Engine.RunProbe",
//		Kind: KindNotFound,
//		Err:  ErrProbeNotFound,
//	}
type ScannerError struct {
	// Op is the operation that failed (e.g., "Engine.RunProbe",
	// "Orchestrator.ExecuteScan").
	Op string

	// Kind categorizes the error (e.g., KindNotFound, KindTimeout).
	Kind string

	// Err is the underlying error that caused this error.
	Err error

	// Context provides additional context about the error (optional),
	// such as probe names, scan IDs, or integration names.
	Context map[string]any
}

// Error implements the error interface, returning a formatted error message
// that includes the operation, kind, and underlying error.
func (e *ScannerError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("scanner: %s: %s", e.Op, e.Kind)
	}

	if len(e.Context) > 0 {
		return fmt.Sprintf("scanner: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}

	return fmt.Sprintf("scanner: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error, allowing errors.Is() and errors.As()
// to work correctly with wrapped errors.
func (e *ScannerError) Unwrap() error {
	return e.Err
}

// Is implements error matching for ScannerError, allowing comparison based
// on the underlying error or a kind-only target.
func (e *ScannerError) Is(target error) bool {
	if target == nil {
		return false
	}

	if t, ok := target.(*ScannerError); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}

	return errors.Is(e.Err, target)
}

// WithContext returns a copy of the error with the provided context added.
func (e *ScannerError) WithContext(ctx map[string]any) *ScannerError {
	newErr := *e
	if newErr.Context == nil {
		newErr.Context = make(map[string]any)
	}
	for k, v := range ctx {
		newErr.Context[k] = v
	}
	return &newErr
}

// NewNotFoundError creates a new ScannerError with KindNotFound.
func NewNotFoundError(op string, err error) *ScannerError {
	return &ScannerError{Op: op, Kind: KindNotFound, Err: err}
}

// NewValidationError creates a new ScannerError with KindValidation.
func NewValidationError(op string, err error) *ScannerError {
	return &ScannerError{Op: op, Kind: KindValidation, Err: err}
}

// NewConfigurationError creates a new ScannerError with KindConfiguration.
func NewConfigurationError(op string, err error) *ScannerError {
	return &ScannerError{Op: op, Kind: KindConfiguration, Err: err}
}

// NewProviderError creates a new ScannerError with KindProvider.
func NewProviderError(op string, err error) *ScannerError {
	return &ScannerError{Op: op, Kind: KindProvider, Err: err}
}

// NewTimeoutError creates a new ScannerError with KindTimeout.
func NewTimeoutError(op string, err error) *ScannerError {
	return &ScannerError{Op: op, Kind: KindTimeout, Err: err}
}

// NewExecutionError creates a new ScannerError with KindExecution.
func NewExecutionError(op string, err error) *ScannerError {
	return &ScannerError{Op: op, Kind: KindExecution, Err: err}
}

// NewStorageError creates a new ScannerError with KindStorage.
func NewStorageError(op string, err error) *ScannerError {
	return &ScannerError{Op: op, Kind: KindStorage, Err: err}
}

// NewInternalError creates a new ScannerError with KindInternal.
func NewInternalError(op string, err error) *ScannerError {
	return &ScannerError{Op: op, Kind: KindInternal, Err: err}
}

// CloseWithLog attempts to close the provided resource and logs any error
// at warning level. Intended for defer statements so cleanup errors are not
// silently ignored.
//
// The name parameter should describe the resource being closed (e.g.,
// "report file", "redis connection"). If logger is nil, slog.Default() is
// used.
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := closer.Close(); err != nil {
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
