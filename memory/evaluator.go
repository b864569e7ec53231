package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"strings"

	"github.com/dgraph-io/ristretto"
)

// Evaluation is the judge's verdict on a single utterance.
type Evaluation struct {
	// Score is the judged importance, an integer in [1, 10].
	Score int `json:"score"`

	// Reason is a one-line explanation of the score.
	Reason string `json:"reason"`

	// Tags are 2-5 short keyword labels for the utterance.
	Tags []string `json:"tags"`
}

// Evaluator decides whether an utterance is worth remembering. It builds
// the rubric prompt, delegates to a Judge, and parses the JSON verdict.
//
// Every failure path (transport error, malformed JSON, out-of-range score)
// collapses to "no judgment": Evaluate returns nil and the caller treats
// that the same as a below-threshold score. The Evaluator never guesses.
type Evaluator struct {
	judge Judge
	cache *ristretto.Cache
}

// NewEvaluator wraps a Judge. Successful verdicts are cached per
// (user, message, recent context), so a verbatim re-sent utterance does not
// cost a second judgment call while the same words under different context
// still get a fresh judgment. The cache does not deduplicate storage, a
// repeated passing verdict still gets persisted again by the writer.
func NewEvaluator(judge Judge) *Evaluator {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		// Static config above cannot fail; run uncached if it ever does.
		log.Printf("[EVAL] judgment cache disabled: %v", err)
		cache = nil
	}
	return &Evaluator{judge: judge, cache: cache}
}

// Evaluate judges one utterance in its recent context. A nil result means
// "no judgment": the call failed, the response was unusable, or the verdict
// broke an invariant. Failures are logged here and never propagated.
func (e *Evaluator) Evaluate(ctx context.Context, user, message string, recentContext []string) *Evaluation {
	key := cacheKey(user, message, recentContext)
	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			if ev, ok := v.(*Evaluation); ok {
				return ev
			}
		}
	}

	raw, err := e.judge.Judge(ctx, JudgePrompt(user, message, recentContext))
	if err != nil {
		log.Printf("[EVAL] judgment call failed: %v", err)
		return nil
	}

	ev, err := ParseEvaluation(raw)
	if err != nil {
		log.Printf("[EVAL] unusable judgment: %v", err)
		return nil
	}

	if e.cache != nil {
		e.cache.Set(key, ev, 1)
		e.cache.Wait()
	}
	return ev
}

// cacheKey folds the judged inputs into one cache key. The context lines
// feed the judgment, so only the tail the prompt actually carries is
// digested; earlier lines never change the verdict.
func cacheKey(user, message string, recentContext []string) string {
	tail := recentContext
	if len(tail) > 3 {
		tail = tail[len(tail)-3:]
	}
	h := fnv.New64a()
	for _, line := range tail {
		h.Write([]byte(line))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%s\x00%s\x00%x", user, message, h.Sum64())
}

// JudgePrompt builds the judgment prompt for one utterance. The rubric pins
// the score bands so different judge models stay roughly comparable.
func JudgePrompt(user, message string, recentContext []string) string {
	contextText := "(no context)"
	if len(recentContext) > 0 {
		tail := recentContext
		if len(tail) > 3 {
			tail = tail[len(tail)-3:]
		}
		contextText = strings.Join(tail, "\n")
	}

	return fmt.Sprintf(`You judge which chat messages are worth remembering long term.

Message:
%s: %s

Context (last 3 messages):
%s

Scoring rubric:
- 9-10: key decisions, strong preferences, core opinions, personal facts
  e.g. "We decided on PostgreSQL", "I'm a Python developer"
- 7-8: valuable factual statements, clear attitudes, technical discussion
  e.g. "I think microservices fit us better", "Our company runs K8s"
- 4-6: general discussion, explorations, exchanges of opinion
  e.g. "this approach has trade-offs", "we could build it that way"
- 1-3: small talk, greetings, repetition, noise
  e.g. "hello", "you there?", "haha"

Reply with a JSON object and nothing else:
{"score": <integer 1-10>, "reason": "<one sentence>", "tags": ["<keyword>", "<keyword>"]}

Use 2-5 short keyword tags.`, user, message, contextText)
}

// ParseEvaluation parses a judge response into a verdict. The response may
// be wrapped in a fenced code block, with or without a language tag; the
// fence is stripped before the strict JSON parse. Any other deviation is an
// error, there is no strip-until-it-parses fallback.
func ParseEvaluation(raw string) (*Evaluation, error) {
	text := stripCodeFence(strings.TrimSpace(raw))
	if text == "" {
		return nil, fmt.Errorf("empty judgment response")
	}

	var ev Evaluation
	if err := json.Unmarshal([]byte(text), &ev); err != nil {
		return nil, fmt.Errorf("parse judgment: %w", err)
	}
	if ev.Score < 1 || ev.Score > 10 {
		return nil, fmt.Errorf("judgment score %d out of range", ev.Score)
	}

	tags := make([]string, 0, len(ev.Tags))
	for _, tag := range ev.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("judgment carries no tags")
	}
	if len(tags) > 5 {
		tags = tags[:5]
	}
	ev.Tags = tags

	return &ev, nil
}

// stripCodeFence removes one surrounding ``` fence, tolerating a language
// tag on the opening line. Unfenced input passes through untouched.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
