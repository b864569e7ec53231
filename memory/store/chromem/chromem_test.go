package chromem

import (
	"context"
	"testing"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/lemonhall/irc-agent/memory"
	"github.com/lemonhall/irc-agent/memory/embedder/mock"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(Config{}, mock.New())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleMemory(user, channel, content string) *memory.Memory {
	ts := time.Date(2026, 8, 29, 14, 30, 45, 0, time.Local)
	return &memory.Memory{
		ID:        memory.NewID(user, channel, ts),
		User:      user,
		Channel:   channel,
		Content:   content,
		Timestamp: ts,
		Score:     8,
		Tags:      []string{"database", "postgresql"},
		Context:   "bob: what should the stack look like?",
		Reason:    "clear stack preference",
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	mem := sampleMemory("alice", "#eng", "PostgreSQL is enough")

	meta, err := encodeMetadata(mem)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got := meta["timestamp"]; got != "2026-08-29T14:30:45" {
		t.Errorf("timestamp = %q, want zone-free ISO-8601", got)
	}

	back, err := decodeResult(mem.ID, mem.Content, meta)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.User != mem.User || back.Channel != mem.Channel || back.Score != mem.Score {
		t.Errorf("decoded %+v, want %+v", back, mem)
	}
	if !back.Timestamp.Equal(mem.Timestamp) {
		t.Errorf("timestamp = %v, want %v", back.Timestamp, mem.Timestamp)
	}
	if len(back.Tags) != 2 || back.Tags[0] != "database" {
		t.Errorf("tags = %v", back.Tags)
	}
	if back.Context != mem.Context || back.Reason != mem.Reason {
		t.Errorf("audit fields lost: %q / %q", back.Context, back.Reason)
	}
}

func TestDecodeResultRejectsCorruptMetadata(t *testing.T) {
	good, _ := encodeMetadata(sampleMemory("alice", "#eng", "x"))

	corrupt := func(key, val string) map[string]string {
		m := make(map[string]string, len(good))
		for k, v := range good {
			m[k] = v
		}
		m[key] = val
		return m
	}
	tests := []struct {
		name string
		meta map[string]string
	}{
		{"bad score", corrupt("score", "high")},
		{"bad timestamp", corrupt("timestamp", "yesterday")},
		{"bad tags", corrupt("tags", "database, postgresql")},
	}
	for _, tt := range tests {
		if mem, err := decodeResult("id", "x", tt.meta); err == nil {
			t.Errorf("%s: decoded to %+v, want error", tt.name, mem)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 8, 29, 14, 30, 45, 0, time.Local)

	got, err := parseTimestamp("2026-08-29T14:30:45")
	if err != nil || !got.Equal(want) {
		t.Errorf("naive layout: got %v, %v", got, err)
	}

	// Records from the previous storage schema carry fractional seconds.
	got, err = parseTimestamp("2026-08-29T14:30:45.123456")
	if err != nil || !got.Truncate(time.Second).Equal(want) {
		t.Errorf("fractional seconds: got %v, %v", got, err)
	}

	if _, err := parseTimestamp("2026-08-29T14:30:45Z"); err != nil {
		t.Errorf("rfc3339 fallback: %v", err)
	}
}

func TestNormalizeDistance(t *testing.T) {
	tests := []struct {
		similarity float32
		want       float64
	}{
		{1, 0},
		{0, 0.5},
		{-1, 1},
		{1.2, 0},  // float error past the cosine range still clamps
		{-1.2, 1},
	}
	for _, tt := range tests {
		if got := normalizeDistance(tt.similarity); got != tt.want {
			t.Errorf("normalizeDistance(%v) = %v, want %v", tt.similarity, got, tt.want)
		}
	}
}

func TestInsertQueryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	mem := sampleMemory("alice", "#eng", "I think PostgreSQL and Redis are enough")
	if err := store.Insert(ctx, mem); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.Query(ctx, "PostgreSQL and Redis", memory.Filter{}, 3)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("query returned %d neighbors, want 1", len(got))
	}
	if got[0].Memory.ID != mem.ID {
		t.Errorf("neighbor ID = %s, want %s", got[0].Memory.ID, mem.ID)
	}
	if d := got[0].Distance; d < 0 || d > 1 {
		t.Errorf("distance %v outside [0, 1]", d)
	}
}

func TestQueryEmptyCollection(t *testing.T) {
	store := newTestStore(t)
	got, err := store.Query(context.Background(), "anything", memory.Filter{}, 3)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("query on empty collection = %v, want empty", got)
	}
}

func TestQueryTopNLargerThanCollection(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if err := store.Insert(ctx, sampleMemory("alice", "#eng", "only record")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.Query(ctx, "record", memory.Filter{}, 50)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("query returned %d neighbors, want 1", len(got))
	}
}

func TestQueryFilterShrinksResultWindow(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if err := store.Insert(ctx, sampleMemory("alice", "#eng", "alice's record")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Insert(ctx, sampleMemory("bob", "#eng", "bob's record")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// topN 2 but the user filter leaves a single document; the query must
	// retry with a smaller window instead of failing.
	got, err := store.Query(ctx, "record", memory.Filter{User: "alice"}, 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].Memory.User != "alice" {
		t.Errorf("filtered query = %v, want alice's single record", got)
	}
}

func TestQuerySkipsCorruptRecord(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	good := sampleMemory("alice", "#eng", "PostgreSQL stays the primary store")
	if err := store.Insert(ctx, good); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Write a document with unparsable metadata straight into the
	// collection, standing in for a record mangled outside this process.
	meta, err := encodeMetadata(sampleMemory("bob", "#eng", "mangled record"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	meta["score"] = "high"
	err = store.col.AddDocument(ctx, chromem.Document{
		ID:       "mangled",
		Content:  "mangled record",
		Metadata: meta,
	})
	if err != nil {
		t.Fatalf("add corrupt document: %v", err)
	}

	got, err := store.Query(ctx, "record", memory.Filter{}, 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].Memory.ID != good.ID {
		t.Errorf("query = %v, want only the intact record", got)
	}
}

func TestScanMinScore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	low := sampleMemory("alice", "#eng", "low value note")
	low.Score = 7
	high := sampleMemory("alice", "#ops", "high value note")
	high.Score = 9
	for _, mem := range []*memory.Memory{low, high} {
		if err := store.Insert(ctx, mem); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := store.Scan(ctx, memory.Filter{User: "alice", MinScore: 8}, 20)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 1 || got[0].Score != 9 {
		t.Errorf("scan = %v, want only the score-9 record", got)
	}
}
