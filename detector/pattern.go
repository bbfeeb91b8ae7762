package detector

import (
	"context"
	"fmt"
	"regexp"

	"github.com/zero-day-ai/scanner/probe"
)

// PatternDetector scores 1.0 when any of its regular expressions matches an
// output, 0.0 otherwise.
type PatternDetector struct {
	name     string
	lang     string
	patterns []*regexp.Regexp
}

// NewPatternDetector compiles the given patterns into a detector. Patterns
// are compiled case-insensitively unless they carry their own flags.
func NewPatternDetector(name string, patterns []string) (*PatternDetector, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("detector %s: bad pattern %q: %w", name, p, err)
		}
		compiled = append(compiled, re)
	}
	return &PatternDetector{name: name, lang: "*", patterns: compiled}, nil
}

// MustPatternDetector is NewPatternDetector that panics on bad patterns.
// Intended for static catalog construction.
func MustPatternDetector(name string, patterns []string) *PatternDetector {
	d, err := NewPatternDetector(name, patterns)
	if err != nil {
		panic(err)
	}
	return d
}

// Name identifies the detector.
func (d *PatternDetector) Name() string { return d.name }

// Lang returns the detector's language filter.
func (d *PatternDetector) Lang() string { return d.lang }

// Detect scores each output of the attempt.
func (d *PatternDetector) Detect(ctx context.Context, attempt *probe.Attempt) ([]float64, error) {
	scores := make([]float64, len(attempt.Outputs))
	for i, out := range attempt.Outputs {
		if err := ctx.Err(); err != nil {
			return scores, err
		}
		if out == nil || !langMatches(d.lang, out.Lang) {
			scores[i] = probe.ScoreMissing
			continue
		}
		scores[i] = boolScore(d.matches(out.Text))
	}
	return scores, nil
}

func (d *PatternDetector) matches(text string) bool {
	for _, re := range d.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
