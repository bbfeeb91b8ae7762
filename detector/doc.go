// Package detector provides scorers for probe attempts. A detector examines
// the outputs of one attempt and returns a vulnerability score in [0, 1]
// per output.
//
// Three families exist: StringDetector matches substring sets,
// PatternDetector evaluates regular expressions, and ProbeIntegratedDetector
// delegates to a probe's own Test heuristics and reduces the structured
// verdict to a score.
package detector
