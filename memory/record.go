package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// idNamespace salts the deterministic memory IDs so they cannot collide
// with UUIDs minted elsewhere in the agent.
var idNamespace = uuid.MustParse("8f3b7c1a-92d4-4e6b-a1c5-0d9e2f4b6a83")

// Memory is an immutable persisted record of a judged-valuable utterance.
// Records are created by the Service once an evaluation clears the score
// threshold and are never updated afterwards.
type Memory struct {
	// ID is derived deterministically from (User, Channel, Timestamp).
	ID string

	// User is the speaker's identity.
	User string

	// Channel is the conversational channel the utterance came from.
	Channel string

	// Content is the raw utterance text; it is also the text that gets
	// embedded, once, at insert time.
	Content string

	// Timestamp is the creation instant on the local clock.
	Timestamp time.Time

	// Score is the evaluator's judged importance, an integer in [1, 10].
	Score int

	// Tags are 2-5 short keywords supplied by the evaluator.
	Tags []string

	// Context snapshots up to the 3 most recent prior utterances at
	// creation time. Audit only; it is never embedded.
	Context string

	// Reason is the evaluator's one-line justification for the score.
	Reason string
}

// NewID derives the record key for a memory created at the given instant.
// The same (user, channel, instant) always yields the same ID, so a single
// process cannot accidentally mint colliding keys.
func NewID(user, channel string, at time.Time) string {
	seed := fmt.Sprintf("%s|%s|%d", user, channel, at.UnixNano())
	return uuid.NewSHA1(idNamespace, []byte(seed)).String()
}

// AgeDays returns the whole days elapsed since the memory was created.
func (m *Memory) AgeDays(now time.Time) int {
	age := int(now.Sub(m.Timestamp).Hours() / 24)
	if age < 0 {
		return 0
	}
	return age
}

// RankedMemory is a recalled memory with its combined relevance score.
type RankedMemory struct {
	Memory

	// Relevance is similarity x decay x value, the sort key for recall.
	Relevance float64

	// AgeDays is the memory's age at recall time.
	AgeDays int
}
