package probe

import "github.com/zero-day-ai/scanner/llm"

// ScoreMissing marks an output that a detector could not score, either
// because generation failed or the output's language did not match the
// detector's filter. Valid scores lie in [0, 1].
const ScoreMissing = -1.0

// Attempt records one probe prompt, the outputs it produced, and the
// detector scores for those outputs. Attempts are transient; they exist
// only while a probe execution is being evaluated.
type Attempt struct {
	// Prompt is the attack prompt sent to the generator.
	Prompt string `json:"prompt"`

	// Outputs are the generated responses; nil entries mark failed
	// generations.
	Outputs []*llm.Message `json:"outputs"`

	// ProbeName is the probe that produced this attempt.
	ProbeName string `json:"probe_name"`

	// Seq is the prompt's position within the probe's prompt set.
	Seq int `json:"seq"`

	// DetectorResults maps detector name to one score per output.
	DetectorResults map[string][]float64 `json:"detector_results"`
}

// NewAttempt creates an attempt for one prompt of a probe.
func NewAttempt(probeName, prompt string, seq int) *Attempt {
	return &Attempt{
		Prompt:          prompt,
		ProbeName:       probeName,
		Seq:             seq,
		DetectorResults: make(map[string][]float64),
	}
}

// FirstOutputText returns the text of the first non-nil output, or "".
func (a *Attempt) FirstOutputText() string {
	for _, out := range a.Outputs {
		if out != nil {
			return out.Text
		}
	}
	return ""
}

// MaxScore returns the highest valid detector score recorded on the
// attempt, or 0 when nothing scored positive.
func (a *Attempt) MaxScore() float64 {
	max := 0.0
	for _, scores := range a.DetectorResults {
		for _, s := range scores {
			if s > max {
				max = s
			}
		}
	}
	return max
}
