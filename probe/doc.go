// Package probe defines security probes: named test cases that bundle a
// prompt set, a primary detector, and metadata, plus the Attempt record
// produced by running them against a generator.
//
// Probes are registered at build time in a Registry; there is no runtime
// discovery. The subpackages llmtop10 and agenttop10 carry the first-party
// probe catalogs.
package probe
