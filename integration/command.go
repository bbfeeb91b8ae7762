package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zero-day-ai/scanner/exec"
	"github.com/zero-day-ai/scanner/parser"
	"github.com/zero-day-ai/scanner/probe"
	"github.com/zero-day-ai/scanner/types"
)

// CommandSpec describes an external toolkit CLI used as the probe execution
// step for a framework integration.
type CommandSpec struct {
	// Binary is the toolkit executable (required).
	Binary string

	// Args are fixed command-line arguments prepended to every invocation.
	Args []string

	// WorkDir is the working directory for the toolkit process.
	WorkDir string

	// Env replaces the process environment; nil inherits. Model credentials
	// travel on stdin, never through the environment.
	Env []string

	// Timeout bounds one invocation. Zero relies on the probe timeout alone.
	Timeout time.Duration
}

// commandRequest is the invocation payload written to the toolkit's stdin.
type commandRequest struct {
	Probe     string         `json:"probe"`
	Model     string         `json:"model"`
	ModelType string         `json:"model_type"`
	Config    map[string]any `json:"config,omitempty"`
}

// NewCommandExecutor returns an ExecFunc that shells out to a toolkit CLI.
// The CLI receives the probe name and model config as JSON on stdin and
// must print its verdict on stdout in one of three shapes: a single
// TestResult object, a JSON array of findings, or newline-delimited
// finding records.
func NewCommandExecutor(spec CommandSpec) ExecFunc {
	return func(ctx context.Context, p probe.Prober, model Model) (*types.TestResult, error) {
		name := p.Info().Name

		stdin, err := json.Marshal(commandRequest{
			Probe:     name,
			Model:     model.Name,
			ModelType: model.Type.String(),
			Config:    model.Config,
		})
		if err != nil {
			return nil, fmt.Errorf("probe %s: encoding toolkit request: %w", name, err)
		}

		res, err := exec.Run(ctx, exec.Config{
			Command:   spec.Binary,
			Args:      append(append([]string{}, spec.Args...), name),
			WorkDir:   spec.WorkDir,
			Env:       spec.Env,
			Timeout:   spec.Timeout,
			StdinData: stdin,
		})
		if err != nil {
			return nil, fmt.Errorf("probe %s: %w", name, err)
		}
		if res.ExitCode != 0 {
			return nil, fmt.Errorf("probe %s: %s exited with code %d: %s",
				name, spec.Binary, res.ExitCode, strings.TrimSpace(string(res.Stderr)))
		}
		return decodeVerdict(p, res.Stdout)
	}
}

// decodeVerdict turns toolkit stdout into a TestResult. A single-line JSON
// object is a complete TestResult; an array or multiple lines are finding
// records reduced through a scorecard.
func decodeVerdict(p probe.Prober, stdout []byte) (*types.TestResult, error) {
	name := p.Info().Name
	body := bytes.TrimSpace(stdout)
	if len(body) == 0 {
		return nil, fmt.Errorf("probe %s: toolkit produced no output", name)
	}

	switch {
	case body[0] == '[':
		findings, err := parser.ParseJSONArray[types.Finding](body)
		if err != nil {
			return nil, fmt.Errorf("probe %s: %w", name, err)
		}
		return resultFromFindings(p, findings), nil
	case bytes.ContainsRune(body, '\n'):
		findings, err := parser.ParseJSONLines[types.Finding](body)
		if err != nil {
			return nil, fmt.Errorf("probe %s: %w", name, err)
		}
		return resultFromFindings(p, findings), nil
	default:
		result, err := parser.ParseJSON[types.TestResult](body)
		if err != nil {
			return nil, fmt.Errorf("probe %s: %w", name, err)
		}
		if result.ProbeName == "" {
			result.ProbeName = name
		}
		if result.ProbeCategory == "" {
			result.ProbeCategory = p.Info().Category
		}
		return result, nil
	}
}

func resultFromFindings(p probe.Prober, findings []types.Finding) *types.TestResult {
	var card probe.Scorecard
	for _, f := range findings {
		card.Add(f, deltaForSeverity[f.Severity])
	}
	return card.Result(p.Info())
}
