package budget

import (
	"testing"
	"time"
)

func TestPeriod_Start(t *testing.T) {
	at := time.Date(2026, 10, 18, 15, 4, 5, 0, time.FixedZone("X", 3*3600))

	if got, want := Daily.Start(at), time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("daily start = %v, want %v", got, want)
	}
	if got, want := Monthly.Start(at), time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("monthly start = %v, want %v", got, want)
	}
}

func TestPeriod_Key(t *testing.T) {
	at := time.Date(2026, 10, 18, 23, 30, 0, 0, time.UTC)

	if got := Daily.Key("openai", at); got != "docassist:budget:openai:daily:2026-10-18" {
		t.Errorf("daily key = %q", got)
	}
	if got := Monthly.Key("openai", at); got != "docassist:budget:openai:monthly:2026-10" {
		t.Errorf("monthly key = %q", got)
	}
}

func TestParseAction(t *testing.T) {
	for in, want := range map[string]Action{"": ActionWarn, "warn": ActionWarn, "reject": ActionReject} {
		got, err := ParseAction(in)
		if err != nil || got != want {
			t.Errorf("ParseAction(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseAction("block"); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestStatus(t *testing.T) {
	reset := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	s := NewStatus("openai", Daily, 100, 40, reset)
	if s.Remaining() != 60 || s.Exhausted() {
		t.Errorf("remaining = %d, exhausted = %v", s.Remaining(), s.Exhausted())
	}
	if !s.ResetsAt().Equal(reset) || s.Provider() != "openai" || s.Period() != Daily {
		t.Errorf("unexpected snapshot %+v", s)
	}

	over := NewStatus("openai", Daily, 100, 140, reset)
	if over.Remaining() != 0 || !over.Exhausted() {
		t.Errorf("overdrawn: remaining = %d, exhausted = %v", over.Remaining(), over.Exhausted())
	}

	unlimited := NewStatus("openai", Monthly, 0, 1_000_000, reset)
	if unlimited.Remaining() != -1 || unlimited.Exhausted() {
		t.Errorf("unlimited: remaining = %d, exhausted = %v", unlimited.Remaining(), unlimited.Exhausted())
	}
}
