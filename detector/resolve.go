package detector

import (
	"log/slog"
	"sync"

	"github.com/zero-day-ai/scanner/probe"
)

// Constructor builds a named detector. The registry maps the
// primary_detector identifiers found in probe descriptors to constructors;
// reflection is never used.
type Constructor func() probe.Detector

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// RegisterConstructor makes a named detector available to Resolve.
// Later registrations replace earlier ones.
func RegisterConstructor(name string, c Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = c
}

// Resolve returns the detector named by a probe's primary_detector field.
// Unknown or empty names fall back to the probe-integrated detector so
// every probe can always be scored.
func Resolve(name string, probeName string, tester probe.Tester, logger *slog.Logger) probe.Detector {
	if logger == nil {
		logger = slog.Default()
	}

	if name != "" {
		registryMu.RLock()
		c, ok := registry[name]
		registryMu.RUnlock()
		if ok {
			return c()
		}
		logger.Debug("unknown primary detector, using probe-integrated fallback",
			"detector", name,
			"probe", probeName)
	}
	return NewProbeIntegratedDetector(probeName, tester, logger)
}
