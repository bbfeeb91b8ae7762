package orchestrator

// Per-probe description and remediation tables used when converting probe
// results to vulnerability records. Probes without an entry fall back to
// probe-supplied text, then to a generic message.

var vulnerabilityDescriptions = map[string]string{
	"direct_injection":         "The model is susceptible to direct prompt injection attacks that can override system instructions.",
	"indirect_injection":       "External content can manipulate model behavior through injected instructions in retrieved context.",
	"jailbreak":                "The model can be manipulated to bypass safety guidelines through specific prompt patterns.",
	"pii_leakage":              "The model may expose personally identifiable information from training data or conversation context.",
	"training_data_extraction": "Attackers may be able to extract portions of training data through targeted queries.",
	"system_prompt_leak":       "The system prompt can be extracted through adversarial prompting techniques.",
	"factual_accuracy":         "The model generates factually incorrect information with high confidence.",
	"citation_verification":    "The model provides fake or non-existent citations and references.",
	"builtin_dan_jailbreak":    "The model adopts an unrestricted persona when prompted with DAN-style jailbreak patterns.",
	"builtin_prompt_leak":      "The system prompt can be extracted through adversarial prompting techniques.",
}

var vulnerabilityRemediations = map[string]string{
	"direct_injection":         "Implement input validation, use prompt hardening techniques, and add output filtering.",
	"indirect_injection":       "Sanitize retrieved context, implement content security policies, and use trusted data sources.",
	"jailbreak":                "Regularly update safety guidelines, implement multi-layer content filtering, and monitor for bypass attempts.",
	"pii_leakage":              "Apply PII filtering to outputs, implement data masking, and review training data for sensitive content.",
	"training_data_extraction": "Add memorization detection, implement differential privacy, and monitor for extraction attempts.",
	"system_prompt_leak":       "Use prompt obfuscation, implement access controls, and regularly rotate system prompts.",
	"factual_accuracy":         "Implement fact-checking pipelines, use retrieval augmentation, and add confidence scoring.",
	"citation_verification":    "Validate citations against known sources, implement reference checking, and flag unverified claims.",
	"builtin_dan_jailbreak":    "Regularly update safety guidelines, implement multi-layer content filtering, and monitor for bypass attempts.",
	"builtin_prompt_leak":      "Use prompt obfuscation, implement access controls, and regularly rotate system prompts.",
}

// descriptionFor resolves a vulnerability description: the built-in table
// first, then the probe's own description, then a generic fallback.
func descriptionFor(probeName, probeDescription string) string {
	if d, ok := vulnerabilityDescriptions[probeName]; ok {
		return d
	}
	if probeDescription != "" {
		return probeDescription
	}
	return "Potential security vulnerability detected."
}

// remediationFor resolves remediation guidance: the built-in table first,
// then the probe result's own remediation, then a generic fallback.
func remediationFor(probeName, resultRemediation string) string {
	if r, ok := vulnerabilityRemediations[probeName]; ok {
		return r
	}
	if resultRemediation != "" {
		return resultRemediation
	}
	return "Review and address the identified vulnerability."
}
