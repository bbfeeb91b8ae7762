package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/scanner/types"
)

func TestParseJSON(t *testing.T) {
	data := []byte(`{"passed":false,"risk_level":"high","findings":[{"type":"pii_leakage","severity":"high"}]}`)

	result, err := ParseJSON[types.TestResult](data)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, types.SeverityHigh, result.RiskLevel)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "pii_leakage", result.Findings[0].Type)
}

func TestParseJSON_Malformed(t *testing.T) {
	_, err := ParseJSON[types.TestResult]([]byte(`{"passed":`))
	require.Error(t, err)
}

func TestParseJSONLines(t *testing.T) {
	data := []byte(`{"type":"jailbreak","severity":"high"}

{"type":"system_prompt_reveal","severity":"critical"}
`)
	findings, err := ParseJSONLines[types.Finding](data)
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "jailbreak", findings[0].Type)
	assert.Equal(t, types.SeverityCritical, findings[1].Severity)
}

func TestParseJSONLines_BadLine(t *testing.T) {
	data := []byte("{\"type\":\"ok\"}\nnot json\n")
	_, err := ParseJSONLines[types.Finding](data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseJSONArray(t *testing.T) {
	data := []byte(`[{"type":"jailbreak","severity":"low"},{"type":"pii_leakage","severity":"medium"}]`)
	findings, err := ParseJSONArray[types.Finding](data)
	require.NoError(t, err)
	require.Len(t, findings, 2)
}
