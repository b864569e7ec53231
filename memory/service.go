package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// Service is the caller-facing memory surface. It owns the Store, the
// Evaluator, and the scoring configuration, so each agent instance carries
// its own explicitly constructed pipeline with no shared globals.
//
// Store runs one judgment call, which is an out-of-process LLM request;
// callers on a latency-critical message loop should run it in its own
// goroutine and bound it with a context deadline. A deadline hit behaves
// like any other judgment failure: nothing is stored.
type Service struct {
	store Store
	eval  *Evaluator
	cfg   *Config
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the service clock. Tests use this to age memories.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService wires a store and an evaluator into a memory service.
// A nil config means DefaultConfig.
func NewService(store Store, eval *Evaluator, cfg *Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Service{
		store: store,
		eval:  eval,
		cfg:   cfg,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store judges one utterance and persists it if the verdict clears the
// threshold. It reports whether a memory was stored; evaluation failures
// and insert errors both come back as false, never as a panic or error.
//
// Restating the same fact verbatim stores it again. There is no dedup
// check before insert; retention is the persistent store's problem.
func (s *Service) Store(ctx context.Context, user, channel, message string, recentContext []string) bool {
	ev := s.eval.Evaluate(ctx, user, message, recentContext)
	if ev == nil || ev.Score < s.cfg.ScoreThreshold {
		return false
	}

	now := s.now()
	mem := &Memory{
		ID:        NewID(user, channel, now),
		User:      user,
		Channel:   channel,
		Content:   message,
		Timestamp: now,
		Score:     ev.Score,
		Tags:      ev.Tags,
		Context:   contextSnapshot(recentContext),
		Reason:    ev.Reason,
	}

	if err := s.store.Insert(ctx, mem); err != nil {
		log.Printf("[MEMORY] insert failed for %s in %s: %v", user, channel, err)
		return false
	}

	log.Printf("[MEMORY] stored [%d] %s: %s", ev.Score, user, truncateLog(message, 50))
	return true
}

// Recall returns the memories most relevant to the query, filtered to the
// given user and/or channel when non-empty. It over-fetches 2x topK
// semantic neighbors, re-scores each as similarity x decay x value, and
// keeps the topK best. Ties keep the store's result order.
//
// topK <= 0 selects the configured default. Any store failure yields an
// empty result; recall sits on the reply path and must never raise.
func (s *Service) Recall(ctx context.Context, query, user, channel string, topK int) []RankedMemory {
	if topK <= 0 {
		topK = s.cfg.MaxRecall
	}

	neighbors, err := s.store.Query(ctx, query, Filter{User: user, Channel: channel}, topK*2)
	if err != nil {
		log.Printf("[MEMORY] recall query failed: %v", err)
		return nil
	}
	if len(neighbors) == 0 {
		return nil
	}

	now := s.now()
	ranked := make([]RankedMemory, 0, len(neighbors))
	for _, n := range neighbors {
		age := n.Memory.AgeDays(now)
		similarity := 1 - n.Distance
		ranked = append(ranked, RankedMemory{
			Memory:    *n.Memory,
			Relevance: similarity * s.cfg.Decay(age) * Value(n.Memory.Score),
			AgeDays:   age,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Relevance > ranked[j].Relevance
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	log.Printf("[MEMORY] recalled %d memories for query: %s", len(ranked), truncateLog(query, 50))
	return ranked
}

// FormatForPrompt renders recalled memories as a text block for injection
// into a generation prompt: a header line, then one bullet per memory in
// relevance order. An empty input produces an empty string, which callers
// treat as "no memory context", not as an error.
func (s *Service) FormatForPrompt(memories []RankedMemory) string {
	if len(memories) == 0 {
		return ""
	}

	lines := make([]string, 0, len(memories)+1)
	lines = append(lines, "[Relevant long-term memories]")
	for _, mem := range memories {
		age := "recently"
		if mem.AgeDays >= 7 {
			age = fmt.Sprintf("%d days ago", mem.AgeDays)
		}
		lines = append(lines, fmt.Sprintf("• %s %s said: %s [tags: %s]",
			age, mem.User, mem.Content, strings.Join(mem.Tags, ", ")))
	}
	return strings.Join(lines, "\n")
}

// Profile summarizes a user from their high-value memories: the most
// frequent tags across records scoring ProfileMinScore or better, plus a
// count of those records. No decay or similarity weighting applies; the
// aggregate is a plain frequency count over at most ProfileLimit records.
func (s *Service) Profile(ctx context.Context, user, channel string) string {
	filter := Filter{User: user, Channel: channel, MinScore: s.cfg.ProfileMinScore}
	records, err := s.store.Scan(ctx, filter, s.cfg.ProfileLimit)
	if err != nil {
		log.Printf("[MEMORY] profile scan failed for %s: %v", user, err)
		records = nil
	}
	if len(records) == 0 {
		return fmt.Sprintf("[No memories recorded for %s]", user)
	}

	counts := make(map[string]int)
	var order []string
	for _, rec := range records {
		for _, tag := range rec.Tags {
			if counts[tag] == 0 {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > s.cfg.ProfileTags {
		order = order[:s.cfg.ProfileTags]
	}

	return fmt.Sprintf("[Memory profile for %s]\n• Key interests: %s\n• High-value memories: %d",
		user, strings.Join(order, ", "), len(records))
}

// contextSnapshot keeps the last 3 context lines as free text for audit.
func contextSnapshot(recentContext []string) string {
	if len(recentContext) > 3 {
		recentContext = recentContext[len(recentContext)-3:]
	}
	return strings.Join(recentContext, "\n")
}

// truncateLog truncates text for logging.
func truncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
