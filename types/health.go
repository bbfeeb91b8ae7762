package types

// HealthState classifies the operational state of an integration.
type HealthState string

// Health states, from fully operational to not operational.
const (
	HealthHealthy   HealthState = "healthy"
	HealthDegraded  HealthState = "degraded"
	HealthUnhealthy HealthState = "unhealthy"
)

// String returns the string representation of the health state.
func (s HealthState) String() string { return string(s) }

// HealthStatus reports the health of a scanner integration: the classified
// state plus diagnostic detail (circuit breaker state, cache stats, success
// rates).
type HealthStatus struct {
	// Status is the classified health state.
	Status HealthState `json:"status"`

	// Scanner names the integration reporting.
	Scanner string `json:"scanner,omitempty"`

	// Message is a human-readable summary.
	Message string `json:"message,omitempty"`

	// Details carries diagnostic context such as breaker state, recent
	// success rate, and cache statistics.
	Details map[string]any `json:"details,omitempty"`
}

// IsHealthy returns true if the status is HealthHealthy.
func (h HealthStatus) IsHealthy() bool { return h.Status == HealthHealthy }

// Healthy builds a healthy status for the named scanner.
func Healthy(scanner, message string) HealthStatus {
	return HealthStatus{Status: HealthHealthy, Scanner: scanner, Message: message}
}

// Degraded builds a degraded status with diagnostic details.
func Degraded(scanner, message string, details map[string]any) HealthStatus {
	return HealthStatus{Status: HealthDegraded, Scanner: scanner, Message: message, Details: details}
}

// Unhealthy builds an unhealthy status with diagnostic details.
func Unhealthy(scanner, message string, details map[string]any) HealthStatus {
	return HealthStatus{Status: HealthUnhealthy, Scanner: scanner, Message: message, Details: details}
}
