package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/scanner/types"
)

// newRedisTestStore connects a RedisStore to a miniredis instance.
func newRedisTestStore(t *testing.T) ScanStore {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(RedisOptions{
		URL: fmt.Sprintf("redis://%s", mr.Addr()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// stores enumerates the implementations under test so the whole contract
// suite runs against each.
func stores() map[string]func(t *testing.T) ScanStore {
	return map[string]func(t *testing.T) ScanStore{
		"memory": func(t *testing.T) ScanStore { return NewMemoryStore() },
		"redis":  newRedisTestStore,
	}
}

func testScan(name string) *types.Scan {
	scan := types.NewScan(name, "gpt-4o-mini", types.ModelOpenAI, types.ScannerLLMTopTen)
	scan.ModelConfig = map[string]any{
		"temperature": 0.7,
		"api_key":     "sk-secret",
	}
	return scan
}

func TestScanStore_CreateAndGet(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			scan := testScan("create-get")
			require.NoError(t, s.CreateScan(ctx, scan))

			got, err := s.GetScan(ctx, scan.ID)
			require.NoError(t, err)
			assert.Equal(t, scan.ID, got.ID)
			assert.Equal(t, "create-get", got.Name)
			assert.Equal(t, types.ScanStatusPending, got.Status)

			_, err = s.GetScan(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestScanStore_CreateStripsSecrets(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			scan := testScan("secrets")
			scan.ModelConfig["OPENAI_ACCESS_TOKEN"] = "tok"
			scan.ModelConfig["client_secret"] = "shh"
			require.NoError(t, s.CreateScan(ctx, scan))

			got, err := s.GetScan(ctx, scan.ID)
			require.NoError(t, err)
			assert.Equal(t, map[string]any{"temperature": 0.7}, got.ModelConfig)

			// The caller's copy keeps its secrets for in-memory use.
			assert.Contains(t, scan.ModelConfig, "api_key")
		})
	}
}

func TestScanStore_CreateDuplicate(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			scan := testScan("dup")
			require.NoError(t, s.CreateScan(ctx, scan))
			assert.ErrorIs(t, s.CreateScan(ctx, scan), ErrAlreadyExists)
		})
	}
}

func TestScanStore_UpdateScan(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			scan := testScan("update")
			require.NoError(t, s.CreateScan(ctx, scan))

			scan.Progress = 42.5
			require.NoError(t, s.UpdateScan(ctx, scan))

			got, err := s.GetScan(ctx, scan.ID)
			require.NoError(t, err)
			assert.Equal(t, 42.5, got.Progress)

			missing := testScan("missing")
			assert.ErrorIs(t, s.UpdateScan(ctx, missing), ErrNotFound)
		})
	}
}

func TestScanStore_UpdateScanStatus(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			scan := testScan("lifecycle")
			require.NoError(t, s.CreateScan(ctx, scan))

			started := time.Now().UTC()
			got, err := s.UpdateScanStatus(ctx, scan.ID, types.ScanStatusRunning, func(sc *types.Scan) {
				sc.StartedAt = &started
			})
			require.NoError(t, err)
			assert.Equal(t, types.ScanStatusRunning, got.Status)
			require.NotNil(t, got.StartedAt)

			got, err = s.UpdateScanStatus(ctx, scan.ID, types.ScanStatusCompleted, func(sc *types.Scan) {
				sc.Progress = 100
				sc.RiskScore = 61.5
			})
			require.NoError(t, err)
			assert.Equal(t, types.ScanStatusCompleted, got.Status)
			assert.Equal(t, 100.0, got.Progress)
			assert.Equal(t, 61.5, got.RiskScore)
		})
	}
}

func TestScanStore_UpdateScanProgress(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			scan := testScan("progress")
			require.NoError(t, s.CreateScan(ctx, scan))

			// Pending scans are not running: the write is skipped.
			require.NoError(t, s.UpdateScanProgress(ctx, scan.ID, 10))
			got, err := s.GetScan(ctx, scan.ID)
			require.NoError(t, err)
			assert.Equal(t, 0.0, got.Progress)

			_, err = s.UpdateScanStatus(ctx, scan.ID, types.ScanStatusRunning, nil)
			require.NoError(t, err)
			require.NoError(t, s.UpdateScanProgress(ctx, scan.ID, 33.3))
			got, err = s.GetScan(ctx, scan.ID)
			require.NoError(t, err)
			assert.Equal(t, 33.3, got.Progress)

			// A progress write cannot resurrect a cancelled scan.
			_, err = s.UpdateScanStatus(ctx, scan.ID, types.ScanStatusCancelled, func(sc *types.Scan) {
				sc.Progress = 100
			})
			require.NoError(t, err)
			require.NoError(t, s.UpdateScanProgress(ctx, scan.ID, 66.6))
			got, err = s.GetScan(ctx, scan.ID)
			require.NoError(t, err)
			assert.Equal(t, types.ScanStatusCancelled, got.Status)
			assert.Equal(t, 100.0, got.Progress)

			assert.ErrorIs(t, s.UpdateScanProgress(ctx, "missing", 1), ErrNotFound)
		})
	}
}

func TestScanStore_UpdateScanStatus_InvalidTransition(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			scan := testScan("terminal")
			require.NoError(t, s.CreateScan(ctx, scan))

			_, err := s.UpdateScanStatus(ctx, scan.ID, types.ScanStatusRunning, nil)
			require.NoError(t, err)
			_, err = s.UpdateScanStatus(ctx, scan.ID, types.ScanStatusCancelled, nil)
			require.NoError(t, err)

			// Terminal states are written exactly once.
			_, err = s.UpdateScanStatus(ctx, scan.ID, types.ScanStatusCompleted, nil)
			assert.ErrorIs(t, err, ErrInvalidTransition)

			got, err := s.GetScan(ctx, scan.ID)
			require.NoError(t, err)
			assert.Equal(t, types.ScanStatusCancelled, got.Status)
		})
	}
}

func TestScanStore_UpdateScanStatus_MutateCannotOverrideStatus(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			scan := testScan("override")
			require.NoError(t, s.CreateScan(ctx, scan))

			got, err := s.UpdateScanStatus(ctx, scan.ID, types.ScanStatusRunning, func(sc *types.Scan) {
				sc.Status = types.ScanStatusCompleted
			})
			require.NoError(t, err)
			assert.Equal(t, types.ScanStatusRunning, got.Status)
		})
	}
}

func TestScanStore_ListScans(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			older := testScan("older")
			older.CreatedAt = time.Now().UTC().Add(-time.Hour)
			require.NoError(t, s.CreateScan(ctx, older))

			newer := testScan("newer")
			newer.ModelName = "claude-3-opus"
			newer.ModelType = types.ModelAnthropic
			require.NoError(t, s.CreateScan(ctx, newer))

			all, err := s.ListScans(ctx, Filter{})
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "newer", all[0].Name)
			assert.Equal(t, "older", all[1].Name)

			byModel, err := s.ListScans(ctx, Filter{ModelName: "claude-3-opus"})
			require.NoError(t, err)
			require.Len(t, byModel, 1)
			assert.Equal(t, "newer", byModel[0].Name)

			limited, err := s.ListScans(ctx, Filter{Limit: 1})
			require.NoError(t, err)
			require.Len(t, limited, 1)

			byStatus, err := s.ListScans(ctx, Filter{Status: types.ScanStatusRunning})
			require.NoError(t, err)
			assert.Empty(t, byStatus)
		})
	}
}

func TestScanStore_Vulnerabilities(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			scan := testScan("vulns")
			require.NoError(t, s.CreateScan(ctx, scan))

			first := types.NewVulnerability(scan.ID, "Prompt Injection - DAN Jailbreak", types.SeverityHigh)
			first.ProbeName = "llm01_prompt_injection"
			first.CVSSScore = 7.5
			require.NoError(t, s.AddVulnerability(ctx, first))

			second := types.NewVulnerability(scan.ID, "Data Leakage - Prompt Leak", types.SeverityCritical)
			second.ProbeName = "builtin_prompt_leak"
			second.CVSSScore = 9.1
			require.NoError(t, s.AddVulnerability(ctx, second))

			vulns, err := s.ListVulnerabilities(ctx, scan.ID)
			require.NoError(t, err)
			require.Len(t, vulns, 2)
			assert.Equal(t, first.ID, vulns[0].ID)
			assert.Equal(t, second.ID, vulns[1].ID)

			orphan := types.NewVulnerability("missing", "x", types.SeverityLow)
			assert.ErrorIs(t, s.AddVulnerability(ctx, orphan), ErrNotFound)
		})
	}
}

func TestScanStore_ComplianceMappings(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			scan := testScan("compliance")
			require.NoError(t, s.CreateScan(ctx, scan))

			m := types.NewComplianceMapping(scan.ID, types.FrameworkEUAIAct, "ART-10", "Data and data governance")
			m.Status = types.ComplianceNonCompliant
			m.VulnerabilityIDs = []string{"v1", "v2"}
			require.NoError(t, s.AddComplianceMapping(ctx, m))

			mappings, err := s.ListComplianceMappings(ctx, scan.ID)
			require.NoError(t, err)
			require.Len(t, mappings, 1)
			assert.Equal(t, types.FrameworkEUAIAct, mappings[0].Framework)
			assert.Equal(t, []string{"v1", "v2"}, mappings[0].VulnerabilityIDs)
		})
	}
}

func TestScanStore_DeleteScanCascades(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			scan := testScan("delete")
			require.NoError(t, s.CreateScan(ctx, scan))

			v := types.NewVulnerability(scan.ID, "t", types.SeverityMedium)
			require.NoError(t, s.AddVulnerability(ctx, v))
			m := types.NewComplianceMapping(scan.ID, types.FrameworkNISTAIRMF, "GOV-1", "Governance")
			require.NoError(t, s.AddComplianceMapping(ctx, m))

			require.NoError(t, s.DeleteScan(ctx, scan.ID))

			_, err := s.GetScan(ctx, scan.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.ListVulnerabilities(ctx, scan.ID)
			assert.ErrorIs(t, err, ErrNotFound)

			all, err := s.ListScans(ctx, Filter{})
			require.NoError(t, err)
			assert.Empty(t, all)

			assert.ErrorIs(t, s.DeleteScan(ctx, scan.ID), ErrNotFound)
		})
	}
}

func TestScanStore_ReturnedScansAreCopies(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			scan := testScan("copies")
			require.NoError(t, s.CreateScan(ctx, scan))

			got, err := s.GetScan(ctx, scan.ID)
			require.NoError(t, err)
			got.Name = "mutated"
			got.ModelConfig["temperature"] = 0.0

			again, err := s.GetScan(ctx, scan.ID)
			require.NoError(t, err)
			assert.Equal(t, "copies", again.Name)
			assert.Equal(t, 0.7, again.ModelConfig["temperature"])
		})
	}
}

func TestMemoryStore_ConcurrentStatusTransitions(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	scan := testScan("race")
	require.NoError(t, s.CreateScan(ctx, scan))
	_, err := s.UpdateScanStatus(ctx, scan.ID, types.ScanStatusRunning, nil)
	require.NoError(t, err)

	// Exactly one terminal transition may win.
	terminals := []types.ScanStatus{
		types.ScanStatusCompleted,
		types.ScanStatusFailed,
		types.ScanStatusCancelled,
	}
	var wg sync.WaitGroup
	wins := make(chan types.ScanStatus, len(terminals))
	for _, status := range terminals {
		wg.Add(1)
		go func(status types.ScanStatus) {
			defer wg.Done()
			if _, err := s.UpdateScanStatus(ctx, scan.ID, status, nil); err == nil {
				wins <- status
			}
		}(status)
	}
	wg.Wait()
	close(wins)

	var winners []types.ScanStatus
	for w := range wins {
		winners = append(winners, w)
	}
	require.Len(t, winners, 1)

	got, err := s.GetScan(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, winners[0], got.Status)
}
