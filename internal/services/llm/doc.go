// Package llm provides a JSON-only completion client for the draft model.
//
// Two API dialects are supported: the Anthropic Messages API (default) and the
// OpenAI-compatible chat completions API served by OpenRouter. Callers see one
// surface regardless of provider.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive JSON response.
// Client.HealthCheck: verify API key and model availability.
// DecodeLLMJSON: decode model output, tolerating code fences and prose.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions and network
// timeouts with exponential backoff (base 1s, max 10s, up to 3 attempts by
// default). Context cancellation aborts retries immediately.
package llm
