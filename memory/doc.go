// Package memory gives the IRC agent long-term memory: it decides which
// utterances are worth keeping, persists them as vector-indexed records,
// and recalls the most relevant ones for a new conversational turn.
//
// Pipeline:
//   - Evaluator: asks a Judge (LLM call) to score an utterance 1-10; only
//     scores at or above the configured threshold are kept.
//   - Store: persistent vector index plus structured metadata, with the
//     embedding capability injected at construction (chromem-go for the
//     local agent, same contract for a server-backed index).
//   - Service: the caller-facing surface (Store, Recall, FormatForPrompt,
//     Profile). It owns the Store, the Evaluator, and the scoring
//     constants, so concurrent agent instances never share hidden state.
//
// Recall ranks semantic neighbors by similarity x decay x value, where decay
// is an exponential half-life anchored at a 30-day grace period and value is
// the stored 1-10 judgment score normalized to [0.1, 1.0].
//
// Failure policy: this subsystem sits on the reply-generation path, so it
// never surfaces errors to callers. A failed judgment means "do not store",
// a failed query means "no memories". Both are logged and swallowed.
package memory
