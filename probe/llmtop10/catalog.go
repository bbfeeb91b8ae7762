package llmtop10

import "github.com/zero-day-ai/scanner/probe"

// Category tags every probe in this catalog.
const Category = "owasp_llm_top10"

// Register adds the full OWASP LLM Top 10 probe set to the registry.
func Register(reg *probe.Registry) error {
	probes := []probe.Prober{
		NewPromptInjection(),
		NewInsecureOutputHandling(),
		NewTrainingDataPoisoning(),
		NewModelDenialOfService(),
		NewSupplyChainVulnerabilities(),
		NewSensitiveInformationDisclosure(),
		NewInsecurePluginDesign(),
		NewExcessiveAgency(),
		NewOverreliance(),
		NewModelTheft(),
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
