package memory_test

import (
	"math"
	"testing"

	"github.com/lemonhall/irc-agent/memory"
)

func TestDecayInsideGracePeriod(t *testing.T) {
	cfg := memory.DefaultConfig()
	for age := 0; age <= 30; age++ {
		if got := cfg.Decay(age); got != 1.0 {
			t.Errorf("Decay(%d) = %v, want 1.0", age, got)
		}
	}
}

func TestDecayHalfLifeAnchors(t *testing.T) {
	cfg := memory.DefaultConfig()
	anchors := map[int]float64{
		60:  0.5,
		90:  0.25,
		120: 0.125,
	}
	for age, want := range anchors {
		if got := cfg.Decay(age); math.Abs(got-want) > 1e-9 {
			t.Errorf("Decay(%d) = %v, want %v", age, got, want)
		}
	}
}

func TestDecayStrictlyDecreasingPastGrace(t *testing.T) {
	cfg := memory.DefaultConfig()
	prev := 1.0
	for age := 31; age <= 365; age++ {
		cur := cfg.Decay(age)
		if cur >= prev {
			t.Fatalf("Decay(%d) = %v, not below Decay(%d) = %v", age, cur, age-1, prev)
		}
		prev = cur
	}
}

func TestValueNormalizesScore(t *testing.T) {
	prev := 0.0
	for score := 1; score <= 10; score++ {
		got := memory.Value(score)
		if want := float64(score) / 10; got != want {
			t.Errorf("Value(%d) = %v, want %v", score, got, want)
		}
		if got <= prev {
			t.Errorf("Value(%d) = %v, not above Value(%d) = %v", score, got, score-1, prev)
		}
		prev = got
	}
}

// A memory with score 9, age 95 days, and similarity 0.9 ranks at
// 0.9 * 0.5^((95-30)/30) * 0.9.
func TestRelevanceFormula(t *testing.T) {
	cfg := memory.DefaultConfig()
	got := 0.9 * cfg.Decay(95) * memory.Value(9)
	const want = 0.1804073
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("relevance = %v, want %v", got, want)
	}
}

func TestDecayIsParameterized(t *testing.T) {
	cfg := memory.DefaultConfig()
	cfg.GraceDays = 10
	cfg.HalfLifeDays = 10
	if got := cfg.Decay(10); got != 1.0 {
		t.Errorf("Decay(10) = %v, want 1.0", got)
	}
	if got := cfg.Decay(20); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Decay(20) = %v, want 0.5", got)
	}
}
