// Package types defines the shared data model of the scanner: scans,
// vulnerabilities, compliance mappings, probe results, and the enumerations
// (severity, status, scanner type, model type, framework) that tie them
// together.
//
// Types in this package carry no behavior beyond validation, parsing, and
// small derived values (severity weights, CVSS ranges). They are safe to
// share across goroutines once constructed; the scan orchestrator is the
// single writer of a Scan record during execution.
package types
