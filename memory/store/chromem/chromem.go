// Package chromem implements the memory.Store contract on chromem-go, an
// embedded, pure-Go vector database. One collection holds every memory;
// user and channel isolation happens through metadata filters, matching
// how the persisted schema is keyed.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/lemonhall/irc-agent/memory"
)

// timestampLayout is ISO-8601 without a zone: memory timestamps follow the
// local clock. Parsing accepts a trailing fractional-seconds field, so
// records written by the earlier agent remain readable.
const timestampLayout = "2006-01-02T15:04:05"

// Config configures the store.
type Config struct {
	// Path is the on-disk database directory. Empty keeps everything in
	// memory, which is what the tests use.
	Path string

	// Collection names the chromem collection. Default: "irc_memories".
	Collection string
}

// Store wraps one chromem collection. The embedding function is fixed at
// construction and handed to chromem, which embeds document content on
// insert and query text on search; the same model must back the collection
// for its whole life or stored vectors stop being comparable.
//
// chromem serializes writes internally, so concurrent Insert and Query
// calls need no locking here.
type Store struct {
	db  *chromem.DB
	col *chromem.Collection
}

// New opens (or creates) the collection backing the store.
func New(cfg Config, embedder memory.Embedder) (*Store, error) {
	var db *chromem.DB
	var err error
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("open vector db: %w", err)
		}
	}

	name := cfg.Collection
	if name == "" {
		name = "irc_memories"
	}

	col, err := db.GetOrCreateCollection(name,
		map[string]string{"description": "IRC agent long-term memories"},
		chromem.EmbeddingFunc(embedder.Embed),
	)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Store{db: db, col: col}, nil
}

// Insert embeds the memory's content and writes vector plus metadata as a
// single document. chromem writes the full document or fails; there is no
// partial record to clean up after an error.
func (s *Store) Insert(ctx context.Context, mem *memory.Memory) error {
	meta, err := encodeMetadata(mem)
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:       mem.ID,
		Content:  mem.Content,
		Metadata: meta,
	}
	if err := s.col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Query returns up to topN nearest neighbors of text. Records whose
// metadata no longer parses are skipped one by one rather than failing
// the whole read.
func (s *Store) Query(ctx context.Context, text string, filter memory.Filter, topN int) ([]memory.Neighbor, error) {
	if topN <= 0 {
		return nil, nil
	}
	n := topN
	if count := s.col.Count(); n > count {
		n = count
	}
	if n == 0 {
		return nil, nil
	}

	results, err := s.query(ctx, text, n, whereClause(filter))
	if err != nil {
		return nil, err
	}

	neighbors := make([]memory.Neighbor, 0, len(results))
	for i, res := range results {
		mem, err := decodeResult(res.ID, res.Content, res.Metadata)
		if err != nil {
			log.Printf("[CHROMEM] skipping result #%d: %v", i+1, err)
			continue
		}
		neighbors = append(neighbors, memory.Neighbor{
			Memory:   mem,
			Distance: normalizeDistance(res.Similarity),
		})
	}
	return neighbors, nil
}

// Scan is the non-similarity bulk read behind profiles. chromem has no
// metadata-only listing, so this runs a collection-wide query and filters
// the hits; profile reads are capped small, which keeps that affordable.
func (s *Store) Scan(ctx context.Context, filter memory.Filter, limit int) ([]*memory.Memory, error) {
	if limit <= 0 {
		return nil, nil
	}
	n := s.col.Count()
	if n == 0 {
		return nil, nil
	}

	probe := filter.User
	if probe == "" {
		probe = "profile"
	}
	results, err := s.query(ctx, probe, n, whereClause(filter))
	if err != nil {
		return nil, err
	}

	records := make([]*memory.Memory, 0, limit)
	for i, res := range results {
		mem, err := decodeResult(res.ID, res.Content, res.Metadata)
		if err != nil {
			log.Printf("[CHROMEM] skipping record #%d: %v", i+1, err)
			continue
		}
		if mem.Score < filter.MinScore {
			continue
		}
		records = append(records, mem)
		if len(records) == limit {
			break
		}
	}
	return records, nil
}

// Close releases resources. chromem persists on every write, so there is
// nothing to flush.
func (s *Store) Close() error {
	return nil
}

// query retries with shrinking limits: chromem rejects nResults larger
// than the number of documents that survive the where filter.
func (s *Store) query(ctx context.Context, text string, n int, where map[string]string) ([]chromem.Result, error) {
	for ; n >= 1; n-- {
		results, err := s.col.Query(ctx, text, n, where, nil)
		if err == nil {
			return results, nil
		}
		if !isInsufficientDocsError(err) {
			return nil, fmt.Errorf("query collection: %w", err)
		}
	}
	return nil, nil
}

func whereClause(filter memory.Filter) map[string]string {
	where := make(map[string]string, 2)
	if filter.User != "" {
		where["user"] = filter.User
	}
	if filter.Channel != "" {
		where["channel"] = filter.Channel
	}
	if len(where) == 0 {
		return nil
	}
	return where
}

// encodeMetadata flattens a memory into chromem's scalar metadata map.
// Tags ride along as JSON text because metadata values are plain strings.
func encodeMetadata(mem *memory.Memory) (map[string]string, error) {
	tags, err := json.Marshal(mem.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	return map[string]string{
		"user":      mem.User,
		"channel":   mem.Channel,
		"timestamp": mem.Timestamp.Format(timestampLayout),
		"score":     strconv.Itoa(mem.Score),
		"tags":      string(tags),
		"context":   mem.Context,
		"reason":    mem.Reason,
	}, nil
}

// decodeResult rebuilds a memory from a stored document. Any field that no
// longer parses makes the whole record undecodable; callers skip it.
func decodeResult(id, content string, meta map[string]string) (*memory.Memory, error) {
	score, err := strconv.Atoi(meta["score"])
	if err != nil {
		return nil, fmt.Errorf("record %s: bad score %q", id, meta["score"])
	}
	ts, err := parseTimestamp(meta["timestamp"])
	if err != nil {
		return nil, fmt.Errorf("record %s: bad timestamp %q", id, meta["timestamp"])
	}
	var tags []string
	if err := json.Unmarshal([]byte(meta["tags"]), &tags); err != nil {
		return nil, fmt.Errorf("record %s: bad tags %q", id, meta["tags"])
	}

	return &memory.Memory{
		ID:        id,
		User:      meta["user"],
		Channel:   meta["channel"],
		Content:   content,
		Timestamp: ts,
		Score:     score,
		Tags:      tags,
		Context:   meta["context"],
		Reason:    meta["reason"],
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(timestampLayout, s, time.Local); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// normalizeDistance maps chromem's cosine similarity in [-1, 1] to the
// store contract's distance in [0, 1], where 0 means identical.
func normalizeDistance(similarity float32) float64 {
	d := (1 - float64(similarity)) / 2
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}

func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
