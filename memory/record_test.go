package memory_test

import (
	"testing"
	"time"

	"github.com/lemonhall/irc-agent/memory"
)

func TestNewIDDeterministic(t *testing.T) {
	at := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	a := memory.NewID("alice", "#eng", at)
	b := memory.NewID("alice", "#eng", at)
	if a != b {
		t.Errorf("same inputs produced different IDs: %s vs %s", a, b)
	}

	if c := memory.NewID("alice", "#ops", at); c == a {
		t.Errorf("different channel produced the same ID %s", c)
	}
	if d := memory.NewID("bob", "#eng", at); d == a {
		t.Errorf("different user produced the same ID %s", d)
	}
	if e := memory.NewID("alice", "#eng", at.Add(time.Nanosecond)); e == a {
		t.Errorf("different instant produced the same ID %s", e)
	}
}

func TestAgeDays(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		ts   time.Time
		want int
	}{
		{"same instant", now, 0},
		{"under a day", now.Add(-23 * time.Hour), 0},
		{"five days", now.Add(-5 * 24 * time.Hour), 5},
		{"five days and change", now.Add(-(5*24 + 23) * time.Hour), 5},
		{"clock skew into the future", now.Add(48 * time.Hour), 0},
	}
	for _, tt := range tests {
		m := &memory.Memory{Timestamp: tt.ts}
		if got := m.AgeDays(now); got != tt.want {
			t.Errorf("%s: AgeDays = %d, want %d", tt.name, got, tt.want)
		}
	}
}
