package probe

import (
	"context"

	"github.com/zero-day-ai/scanner/llm"
	"github.com/zero-day-ai/scanner/types"
)

// Descriptor is the immutable metadata of a probe. Descriptors are shared
// read-only once the registry is built.
type Descriptor struct {
	// Name uniquely identifies the probe (e.g. "llm01_prompt_injection").
	Name string `json:"name"`

	// OWASPID is the OWASP identifier when applicable (e.g. "LLM01", "AA03").
	OWASPID string `json:"owasp_id,omitempty"`

	// Category groups related probes ("Prompt Injection", "Data Leakage").
	// Compliance requirements match on this value.
	Category string `json:"category"`

	// Goal states what the probe tries to make the model do.
	Goal string `json:"goal"`

	// Description explains the vulnerability class being tested.
	Description string `json:"description,omitempty"`

	// Tags classify the probe for filtering.
	Tags []string `json:"tags,omitempty"`

	// Prompts is the attack prompt set.
	Prompts []string `json:"prompts"`

	// PrimaryDetector names the detector to pair with this probe. It is
	// resolved through the detector package's constructor map; an empty or
	// unknown value falls back to the probe-integrated detector.
	PrimaryDetector string `json:"primary_detector,omitempty"`
}

// MatchesCategory reports whether the descriptor belongs to the category,
// matching the category field and tags. An empty category matches all.
func (d Descriptor) MatchesCategory(category string) bool {
	if category == "" || category == "all" {
		return true
	}
	if d.Category == category {
		return true
	}
	for _, t := range d.Tags {
		if t == category {
			return true
		}
	}
	return false
}

// Detector scores one attempt's outputs. Implementations live in the
// detector package; the interface is declared here so probes and detectors
// do not import each other.
//
// Detect returns one score in [0, 1] per output, where 1.0 means a
// vulnerability was found. ScoreMissing marks outputs that could not be
// scored (failed generations or language filter mismatches).
type Detector interface {
	// Name identifies the detector in Attempt.DetectorResults.
	Name() string

	// Lang is the BCP-47 language filter, or "*" for all languages.
	Lang() string

	// Detect scores the attempt's outputs.
	Detect(ctx context.Context, attempt *Attempt) ([]float64, error)
}

// Prober is the garak-style probe contract: drive the generator with each
// prompt and return scored attempts. Probes are pure functions of their
// inputs aside from logging; they must not mutate shared state.
type Prober interface {
	// Info returns the probe's descriptor.
	Info() Descriptor

	// Probe runs every prompt through the generator, scores the outputs
	// with the detector, and returns one Attempt per prompt.
	Probe(ctx context.Context, g llm.Generator, d Detector) ([]*Attempt, error)
}

// Tester is the legacy probe contract: score a single model response
// directly. Integrations fall back to this path when Probe fails, calling
// Test once per prompt.
type Tester interface {
	Test(ctx context.Context, modelResponse, userQuery string) (*types.TestResult, error)
}
