package detector

import (
	"context"
	"regexp"
	"strings"

	"github.com/zero-day-ai/scanner/probe"
)

// MatchType selects how StringDetector matches its substrings.
type MatchType string

const (
	// MatchSubstring matches anywhere in the output.
	MatchSubstring MatchType = "str"

	// MatchWord matches on word boundaries only.
	MatchWord MatchType = "word"
)

// StringDetector scores 1.0 when any of its substrings appears in an
// output, 0.0 otherwise.
type StringDetector struct {
	name          string
	lang          string
	substrings    []string
	matchType     MatchType
	caseSensitive bool
}

// StringOption configures a StringDetector.
type StringOption func(*StringDetector)

// WithMatchType sets the match mode (substring or word boundary).
func WithMatchType(mt MatchType) StringOption {
	return func(d *StringDetector) { d.matchType = mt }
}

// WithCaseSensitive enables case-sensitive matching.
func WithCaseSensitive() StringOption {
	return func(d *StringDetector) { d.caseSensitive = true }
}

// WithStringLang restricts the detector to outputs with a matching BCP-47
// language tag.
func WithStringLang(lang string) StringOption {
	return func(d *StringDetector) { d.lang = lang }
}

// NewStringDetector creates a substring detector.
func NewStringDetector(name string, substrings []string, opts ...StringOption) *StringDetector {
	d := &StringDetector{
		name:       name,
		lang:       "*",
		substrings: substrings,
		matchType:  MatchSubstring,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name identifies the detector.
func (d *StringDetector) Name() string { return d.name }

// Lang returns the detector's language filter.
func (d *StringDetector) Lang() string { return d.lang }

// Detect scores each output of the attempt.
func (d *StringDetector) Detect(ctx context.Context, attempt *probe.Attempt) ([]float64, error) {
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

func (d *StringDetector) matches(text string) bool {
	haystack := text
	for _, sub := range d.substrings {
		needle := sub
		if !d.caseSensitive {
			haystack = strings.ToLower(text)
			needle = strings.ToLower(sub)
		}
		switch d.matchType {
		case MatchWord:
			if matchesWord(haystack, needle) {
				return true
			}
		default:
			if strings.Contains(haystack, needle) {
				return true
			}
		}
	}
	return false
}

func matchesWord(haystack, needle string) bool {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(needle) + `\b`)
	if err != nil {
		return strings.Contains(haystack, needle)
	}
	return re.MatchString(haystack)
}

// langMatches reports whether an output's language tag passes the filter.
// Untagged outputs always pass.
func langMatches(filter, lang string) bool {
	return filter == "*" || filter == "" || lang == "" || filter == lang
}

func boolScore(hit bool) float64 {
	if hit {
		return 1.0
	}
	return 0.0
}
