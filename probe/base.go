package probe

import (
	"context"
	"fmt"

	"github.com/zero-day-ai/scanner/llm"
)

// Base implements the shared Probe loop over a descriptor's prompt set.
// Concrete probes embed Base and add their Test heuristics for the
// probe-integrated detector.
type Base struct {
	desc Descriptor
}

// NewBase creates a Base carrying the given descriptor.
func NewBase(desc Descriptor) Base {
	return Base{desc: desc}
}

// Info returns the probe's descriptor.
func (b *Base) Info() Descriptor {
	return b.desc
}

// Probe runs every prompt through the generator, requests one generation
// per prompt, scores the outputs with the detector, and stores the scores
// under the detector's name.
func (b *Base) Probe(ctx context.Context, g llm.Generator, d Detector) ([]*Attempt, error) {
	if g == nil {
		return nil, fmt.Errorf("probe %s: generator is required", b.desc.Name)
	}
	if d == nil {
		return nil, fmt.Errorf("probe %s: detector is required", b.desc.Name)
	}

	attempts := make([]*Attempt, 0, len(b.desc.Prompts))
	for seq, prompt := range b.desc.Prompts {
		if err := ctx.Err(); err != nil {
			return attempts, err
		}

		attempt := NewAttempt(b.desc.Name, prompt, seq)
		outputs, err := g.Generate(ctx, llm.NewConversation(prompt), 1)
		if err != nil {
			return attempts, fmt.Errorf("probe %s prompt %d: %w", b.desc.Name, seq, err)
		}
		attempt.Outputs = outputs

		scores, err := d.Detect(ctx, attempt)
		if err != nil {
			return attempts, fmt.Errorf("probe %s prompt %d: detect: %w", b.desc.Name, seq, err)
		}
		attempt.DetectorResults[d.Name()] = scores
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}
