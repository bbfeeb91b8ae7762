// Package llm models conversations with a target language model and
// provides the Generator abstraction probes use to drive it.
//
// A Generator sends a Conversation to one provider family (OpenAI,
// Anthropic, HuggingFace, or a local HTTP endpoint) and returns the
// requested number of response messages. Per-generation failures come back
// as nil messages rather than errors so that a partial batch remains
// useful to detectors.
package llm
