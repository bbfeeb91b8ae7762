// Package parser decodes external toolkit reports. Adversarial-ML CLIs
// emit either a single JSON document or newline-delimited JSON records;
// the generic helpers here turn both into typed values.
package parser
