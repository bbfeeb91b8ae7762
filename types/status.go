package types

import "fmt"

// ScanStatus represents the lifecycle state of a scan.
type ScanStatus string

// Scan lifecycle states. Transitions are one-directional: pending moves to
// running, running moves to exactly one terminal state. Cancellation is the
// only externally driven transition and is honored from pending or running.
const (
	ScanStatusPending   ScanStatus = "pending"
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
	ScanStatusCancelled ScanStatus = "cancelled"
)

// IsValid returns true if the status is one of the defined states.
func (s ScanStatus) IsValid() bool {
	switch s {
	case ScanStatusPending, ScanStatusRunning, ScanStatusCompleted,
		ScanStatusFailed, ScanStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s ScanStatus) String() string { return string(s) }

// IsTerminal returns true if the status is completed, failed, or cancelled.
func (s ScanStatus) IsTerminal() bool {
	switch s {
	case ScanStatusCompleted, ScanStatusFailed, ScanStatusCancelled:
		return true
	}
	return false
}

// CanCancel returns true if a scan in this status may be cancelled.
func (s ScanStatus) CanCancel() bool {
	return s == ScanStatusPending || s == ScanStatusRunning
}

// CanTransitionTo reports whether the lifecycle permits moving from s to next.
func (s ScanStatus) CanTransitionTo(next ScanStatus) bool {
	switch s {
	case ScanStatusPending:
		return next == ScanStatusRunning || next == ScanStatusCancelled || next == ScanStatusFailed
	case ScanStatusRunning:
		return next.IsTerminal()
	default:
		return false
	}
}

// ScannerType identifies which probe source a scan targets.
type ScannerType string

// Scanner types. ScannerAll runs every enabled integration.
const (
	ScannerBuiltin     ScannerType = "builtin"
	ScannerGarak       ScannerType = "garak"
	ScannerLLMTopTen   ScannerType = "llmtop10"
	ScannerAgentTopTen ScannerType = "agenttop10"
	ScannerCounterfit  ScannerType = "counterfit"
	ScannerART         ScannerType = "art"
	ScannerAll         ScannerType = "all"
)

// IsValid returns true if the scanner type is one of the defined sources.
func (t ScannerType) IsValid() bool {
	switch t {
	case ScannerBuiltin, ScannerGarak, ScannerLLMTopTen, ScannerAgentTopTen,
		ScannerCounterfit, ScannerART, ScannerAll:
		return true
	}
	return false
}

// String returns the string representation of the scanner type.
func (t ScannerType) String() string { return string(t) }

// ParseScannerType converts a string into a ScannerType.
func ParseScannerType(s string) (ScannerType, error) {
	t := ScannerType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid scanner type: %q", s)
	}
	return t, nil
}

// ModelType identifies the provider family of a target model.
type ModelType string

// Supported target model providers.
const (
	ModelOpenAI      ModelType = "openai"
	ModelAnthropic   ModelType = "anthropic"
	ModelHuggingFace ModelType = "huggingface"
	ModelLocal       ModelType = "local"
)

// IsValid returns true if the model type is a supported provider.
func (t ModelType) IsValid() bool {
	switch t {
	case ModelOpenAI, ModelAnthropic, ModelHuggingFace, ModelLocal:
		return true
	}
	return false
}

// String returns the string representation of the model type.
func (t ModelType) String() string { return string(t) }

// ParseModelType converts a string into a ModelType.
func ParseModelType(s string) (ModelType, error) {
	t := ModelType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid model type: %q", s)
	}
	return t, nil
}

// ComplianceStatus is the judgment of one framework requirement for one scan.
type ComplianceStatus string

// Compliance judgments.
const (
	ComplianceCompliant    ComplianceStatus = "compliant"
	CompliancePartial      ComplianceStatus = "partial"
	ComplianceNonCompliant ComplianceStatus = "non_compliant"
	ComplianceNotAssessed  ComplianceStatus = "not_assessed"
)

// IsValid returns true if the status is one of the defined judgments.
func (s ComplianceStatus) IsValid() bool {
	switch s {
	case ComplianceCompliant, CompliancePartial, ComplianceNonCompliant, ComplianceNotAssessed:
		return true
	}
	return false
}

// String returns the string representation of the compliance status.
func (s ComplianceStatus) String() string { return string(s) }

// Framework identifies a built-in compliance framework.
type Framework string

// Built-in compliance frameworks.
const (
	FrameworkNISTAIRMF  Framework = "nist_ai_rmf"
	FrameworkISO42001   Framework = "iso_42001"
	FrameworkEUAIAct    Framework = "eu_ai_act"
	FrameworkIndiaDPDP  Framework = "india_dpdp"
	FrameworkTelecomIoT Framework = "telecom_iot"
)

// IsValid returns true if the framework is one of the built-in frameworks.
func (f Framework) IsValid() bool {
	switch f {
	case FrameworkNISTAIRMF, FrameworkISO42001, FrameworkEUAIAct,
		FrameworkIndiaDPDP, FrameworkTelecomIoT:
		return true
	}
	return false
}

// String returns the string representation of the framework.
func (f Framework) String() string { return string(f) }

// AllFrameworks returns the built-in frameworks in declaration order.
func AllFrameworks() []Framework {
	return []Framework{
		FrameworkNISTAIRMF,
		FrameworkISO42001,
		FrameworkEUAIAct,
		FrameworkIndiaDPDP,
		FrameworkTelecomIoT,
	}
}
