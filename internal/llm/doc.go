// Package llm implements the LLM Client: a provider-agnostic
// async completion interface that resolves credentials by provider, streams
// text/thinking/tool-call deltas to a sink, and returns the final assembled
// assistant message. Anthropic and OpenAI are the two wired backends; each
// talks to its provider's own Go SDK directly — there is no shared
// request/response abstraction library standing between this package and
// the wire format, matching how the rest of the pack's agent runtimes do it.
package llm
