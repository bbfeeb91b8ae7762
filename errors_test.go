package scanner

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/zero-day-ai/scanner/store"
)

// TestSentinelErrors verifies that all sentinel errors are defined correctly.
func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "ErrProbeNotFound",
			err:  ErrProbeNotFound,
			want: "probe not found",
		},
		{
			name: "ErrIntegrationNotFound",
			err:  ErrIntegrationNotFound,
			want: "integration not found",
		},
		{
			name: "ErrScanNotFound",
			err:  ErrScanNotFound,
			want: "scan not found",
		},
		{
			name: "ErrInvalidConfig",
			err:  ErrInvalidConfig,
			want: "invalid configuration",
		},
		{
			name: "ErrInvalidTransition",
			err:  ErrInvalidTransition,
			want: "invalid status transition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatalf("sentinel error %s is nil", tt.name)
			}
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("error message = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestSentinelAliases verifies the store-facing sentinels are the store's
// own values, so errors.Is works on errors from either package.
func TestSentinelAliases(t *testing.T) {
	if !errors.Is(fmt.Errorf("scan abc: %w", store.ErrNotFound), ErrScanNotFound) {
		t.Error("ErrScanNotFound does not match store.ErrNotFound")
	}
	if !errors.Is(fmt.Errorf("scan abc: running -> pending: %w", store.ErrInvalidTransition), ErrInvalidTransition) {
		t.Error("ErrInvalidTransition does not match store.ErrInvalidTransition")
	}
}

// TestScannerErrorError verifies the Error() method formatting.
func TestScannerErrorError(t *testing.T) {
	tests := []struct {
		name string
		err  *ScannerError
		want string
	}{
		{
			name: "basic error",
			err: &ScannerError{
				Op:   "Engine.RunProbe",
				Kind: KindNotFound,
				Err:  ErrProbeNotFound,
			},
			want: "scanner: Engine.RunProbe (not_found): probe not found",
		},
		{
			name: "error with context",
			err: &ScannerError{
				Op:   "Orchestrator.ExecuteScan",
				Kind: KindStorage,
				Err:  ErrScanNotFound,
				Context: map[string]any{
					"scan_id": "abc-123",
				},
			},
			want: "scanner: Orchestrator.ExecuteScan (storage): scan not found [context:",
		},
		{
			name: "error without underlying error",
			err: &ScannerError{
				Op:   "Scan.Validate",
				Kind: KindValidation,
			},
			want: "scanner: Scan.Validate: validation",
		},
		{
			name: "error with wrapped error",
			err: &ScannerError{
				Op:   "scanner.New",
				Kind: KindConfiguration,
				Err:  fmt.Errorf("failed to load config: %w", ErrInvalidConfig),
			},
			want: "scanner: scanner.New (configuration): failed to load config: invalid configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if !strings.Contains(got, tt.want) {
				t.Errorf("Error() = %q, want to contain %q", got, tt.want)
			}
		})
	}
}

// TestScannerErrorUnwrap verifies the Unwrap() method.
func TestScannerErrorUnwrap(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := &ScannerError{
		Op:   "Test.Operation",
		Kind: KindExecution,
		Err:  underlyingErr,
	}

	if unwrapped := err.Unwrap(); unwrapped != underlyingErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, underlyingErr)
	}

	errNil := &ScannerError{
		Op:   "Test.Operation",
		Kind: KindExecution,
	}
	if unwrapped := errNil.Unwrap(); unwrapped != nil {
		t.Errorf("Unwrap() with nil Err = %v, want nil", unwrapped)
	}
}

// TestScannerErrorIs verifies the Is() method and errors.Is() compatibility.
func TestScannerErrorIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{
			name: "matches underlying sentinel error",
			err: &ScannerError{
				Op:   "Engine.RunProbe",
				Kind: KindNotFound,
				Err:  ErrProbeNotFound,
			},
			target: ErrProbeNotFound,
			want:   true,
		},
		{
			name: "matches wrapped error",
			err: &ScannerError{
				Op:   "Store.Get",
				Kind: KindStorage,
				Err:  fmt.Errorf("wrapped: %w", ErrScanNotFound),
			},
			target: ErrScanNotFound,
			want:   true,
		},
		{
			name: "matches ScannerError by kind",
			err: &ScannerError{
				Op:   "Engine.RunProbe",
				Kind: KindTimeout,
				Err:  errors.New("deadline exceeded"),
			},
			target: &ScannerError{Kind: KindTimeout},
			want:   true,
		},
		{
			name: "matches ScannerError by kind and op",
			err: &ScannerError{
				Op:   "Engine.RunProbe",
				Kind: KindTimeout,
				Err:  errors.New("deadline exceeded"),
			},
			target: &ScannerError{
				Op:   "Engine.RunProbe",
				Kind: KindTimeout,
			},
			want: true,
		},
		{
			name: "does not match different kind",
			err: &ScannerError{
				Op:   "Engine.RunProbe",
				Kind: KindTimeout,
				Err:  errors.New("deadline exceeded"),
			},
			target: &ScannerError{Kind: KindValidation},
			want:   false,
		},
		{
			name: "does not match different underlying error",
			err: &ScannerError{
				Op:   "Engine.RunProbe",
				Kind: KindNotFound,
				Err:  ErrProbeNotFound,
			},
			target: ErrScanNotFound,
			want:   false,
		},
		{
			name: "does not match nil",
			err: &ScannerError{
				Op:   "Engine.RunProbe",
				Kind: KindNotFound,
				Err:  ErrProbeNotFound,
			},
			target: nil,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestScannerErrorAs verifies errors.As() compatibility.
func TestScannerErrorAs(t *testing.T) {
	originalErr := &ScannerError{
		Op:   "Orchestrator.ExecuteScan",
		Kind: KindExecution,
		Err:  errors.New("probe exploded"),
		Context: map[string]any{
			"scan_id": "abc-123",
		},
	}

	wrappedErr := fmt.Errorf("outer error: %w", originalErr)

	var scanErr *ScannerError
	if !errors.As(wrappedErr, &scanErr) {
		t.Fatal("errors.As() failed to extract ScannerError")
	}

	if scanErr.Op != originalErr.Op {
		t.Errorf("Op = %q, want %q", scanErr.Op, originalErr.Op)
	}
	if scanErr.Kind != originalErr.Kind {
		t.Errorf("Kind = %q, want %q", scanErr.Kind, originalErr.Kind)
	}
	if scanErr.Context["scan_id"] != "abc-123" {
		t.Errorf("Context[scan_id] = %v, want abc-123", scanErr.Context["scan_id"])
	}
}

// TestScannerErrorWithContext verifies the WithContext() method.
func TestScannerErrorWithContext(t *testing.T) {
	original := &ScannerError{
		Op:   "Engine.RunProbe",
		Kind: KindExecution,
		Err:  errors.New("probe exploded"),
	}

	withCtx := original.WithContext(map[string]any{
		"probe":   "llm01_prompt_injection",
		"attempt": 2,
	})

	if withCtx.Context["probe"] != "llm01_prompt_injection" {
		t.Errorf("Context[probe] = %v, want llm01_prompt_injection", withCtx.Context["probe"])
	}
	if withCtx.Context["attempt"] != 2 {
		t.Errorf("Context[attempt] = %v, want 2", withCtx.Context["attempt"])
	}

	if original.Context != nil {
		t.Error("original error Context was modified")
	}

	withMoreCtx := withCtx.WithContext(map[string]any{
		"integration": "llmtop10",
	})
	if withMoreCtx.Context["probe"] != "llm01_prompt_injection" {
		t.Error("probe context was lost")
	}
	if withMoreCtx.Context["integration"] != "llmtop10" {
		t.Error("integration context was not added")
	}
}

// TestNewErrorFunctions verifies all the New*Error() constructor functions.
func TestNewErrorFunctions(t *testing.T) {
	tests := []struct {
		name     string
		fn       func(string, error) *ScannerError
		wantKind string
	}{
		{"NewNotFoundError", NewNotFoundError, KindNotFound},
		{"NewValidationError", NewValidationError, KindValidation},
		{"NewConfigurationError", NewConfigurationError, KindConfiguration},
		{"NewProviderError", NewProviderError, KindProvider},
		{"NewTimeoutError", NewTimeoutError, KindTimeout},
		{"NewExecutionError", NewExecutionError, KindExecution},
		{"NewStorageError", NewStorageError, KindStorage},
		{"NewInternalError", NewInternalError, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := "Test.Operation"
			underlyingErr := errors.New("test error")

			err := tt.fn(op, underlyingErr)

			if err.Op != op {
				t.Errorf("Op = %q, want %q", err.Op, op)
			}
			if err.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", err.Kind, tt.wantKind)
			}
			if !errors.Is(err, underlyingErr) {
				t.Error("underlying error not preserved")
			}
		})
	}
}

// TestErrorChaining verifies that error chains work correctly.
func TestErrorChaining(t *testing.T) {
	baseErr := errors.New("base error")
	wrappedErr := fmt.Errorf("wrapped: %w", baseErr)
	scanErr := &ScannerError{
		Op:   "Engine.RunScan",
		Kind: KindExecution,
		Err:  wrappedErr,
	}
	outerErr := fmt.Errorf("outer: %w", scanErr)

	if !errors.Is(outerErr, baseErr) {
		t.Error("failed to find base error in chain")
	}

	var extracted *ScannerError
	if !errors.As(outerErr, &extracted) {
		t.Error("failed to extract scanner error from chain")
	}

	if extracted.Op != "Engine.RunScan" {
		t.Errorf("extracted scanner error has wrong Op: %q", extracted.Op)
	}
}
