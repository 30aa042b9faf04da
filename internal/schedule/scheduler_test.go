package schedule

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestCurrentSlot(t *testing.T) {
	slots := DefaultSlots()

	tests := []struct {
		name string
		hour int
		want string
	}{
		{name: "midnight falls back to earliest slot", hour: 0, want: "morning"},
		{name: "before first slot falls back to earliest", hour: 3, want: "morning"},
		{name: "exactly at morning hour", hour: 8, want: "morning"},
		{name: "between morning and afternoon", hour: 12, want: "morning"},
		{name: "exactly at afternoon hour", hour: 14, want: "afternoon"},
		{name: "evening before night slot", hour: 20, want: "afternoon"},
		{name: "late night", hour: 23, want: "night"},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			now := time.Date(2026, 3, 1, testCase.hour, 30, 0, 0, time.UTC)
			got, err := CurrentSlot(slots, now)
			if err != nil {
				t.Fatalf("current slot failed: %v", err)
			}
			if got.Name != testCase.want {
				t.Fatalf("slot = %q, want %q", got.Name, testCase.want)
			}
		})
	}
}

func TestCurrentSlotHandlesUnsortedSlots(t *testing.T) {
	t.Parallel()

	slots := []Slot{
		{Name: "late", Hour: 20},
		{Name: "early", Hour: 6},
	}

	got, err := CurrentSlot(slots, time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("current slot failed: %v", err)
	}
	if got.Name != "early" {
		t.Fatalf("slot = %q, want %q", got.Name, "early")
	}

	// The pre-first-slot fallback also respects sorting order, not slice order.
	got, err = CurrentSlot(slots, time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("current slot failed: %v", err)
	}
	if got.Name != "early" {
		t.Fatalf("fallback slot = %q, want %q", got.Name, "early")
	}
}

func TestCurrentSlotEmptySchedule(t *testing.T) {
	t.Parallel()

	if _, err := CurrentSlot(nil, time.Now()); err == nil {
		t.Fatal("expected error")
	}
}

func TestCurrentSlotUsesUTC(t *testing.T) {
	t.Parallel()

	slots := DefaultSlots()

	// 23:00 in UTC+9 is 14:00 UTC, exactly the afternoon slot.
	local := time.FixedZone("UTC+9", 9*60*60)
	now := time.Date(2026, 3, 1, 23, 0, 0, 0, local)

	got, err := CurrentSlot(slots, now)
	if err != nil {
		t.Fatalf("current slot failed: %v", err)
	}
	if got.Name != "afternoon" {
		t.Fatalf("slot = %q, want %q", got.Name, "afternoon")
	}
}

func TestNewPosterValidation(t *testing.T) {
	t.Parallel()

	post := func(context.Context, Slot) {}

	if _, err := NewPoster(nil, post); err == nil {
		t.Fatal("expected error for empty schedule")
	}
	if _, err := NewPoster(DefaultSlots(), nil); err == nil {
		t.Fatal("expected error for nil post func")
	}
	if _, err := NewPoster([]Slot{{Name: "bad", Hour: 24}}, post); err == nil {
		t.Fatal("expected error for out-of-range hour")
	}
	if _, err := NewPoster(DefaultSlots(), post); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPosterStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	poster, err := NewPoster(DefaultSlots(), func(context.Context, Slot) {})
	if err != nil {
		t.Fatalf("new poster failed: %v", err)
	}

	if err := poster.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		poster.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
