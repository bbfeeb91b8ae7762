package agenttop10

import "github.com/zero-day-ai/scanner/probe"

// Category tags every probe in this catalog.
const Category = "owasp_agentic_top10"

// Register adds the full OWASP Agentic AI Top 10 probe set to the registry.
func Register(reg *probe.Registry) error {
	probes := []probe.Prober{
		NewAgentGoalHijack(),
		NewToolMisuse(),
		NewIdentityPrivilegeAbuse(),
		NewModelIsolationFailure(),
		NewUnauthorizedToolAccess(),
		NewResourceExhaustion(),
		NewOrchestrationManipulation(),
		NewInsecureCommunication(),
		NewInadequateSandboxing(),
		NewInsufficientMonitoring(),
	}
	for _, p := range probes {
		if err := reg.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry builds a registry pre-populated with the catalog.
func NewRegistry() *probe.Registry {
	reg := probe.NewRegistry()
	if err := Register(reg); err != nil {
		panic(err)
	}
	return reg
}
