package sync

import (
	"testing"
	"time"
)

func TestDayLabel(t *testing.T) {
	now := time.Date(2026, time.March, 12, 15, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		ts   time.Time
		want string
	}{
		{"same day morning", time.Date(2026, time.March, 12, 1, 0, 0, 0, time.Local), "Today"},
		{"yesterday late", time.Date(2026, time.March, 11, 23, 59, 0, 0, time.Local), "Yesterday"},
		{"three days ago", time.Date(2026, time.March, 9, 10, 0, 0, 0, time.Local), "Monday"},
		{"six days ago", time.Date(2026, time.March, 6, 10, 0, 0, 0, time.Local), "Friday"},
		{"one week ago", time.Date(2026, time.March, 5, 10, 0, 0, 0, time.Local), "Mar 5"},
		{"previous year", time.Date(2025, time.December, 31, 10, 0, 0, 0, time.Local), "Dec 31, 2025"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DayLabel(tt.ts, now); got != tt.want {
				t.Errorf("DayLabel(%v) = %q, want %q", tt.ts, got, tt.want)
			}
		})
	}
}

func TestGroupByDay(t *testing.T) {
	now := time.Date(2026, time.March, 12, 15, 0, 0, 0, time.Local)
	msgs := []Message{
		{ID: "m1", Timestamp: time.Date(2026, time.March, 11, 9, 0, 0, 0, time.Local)},
		{ID: "m2", Timestamp: time.Date(2026, time.March, 11, 10, 0, 0, 0, time.Local)},
		{ID: "m3", Timestamp: time.Date(2026, time.March, 12, 8, 0, 0, 0, time.Local)},
	}

	sections := GroupByDay(msgs, now)
	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(sections))
	}
	if sections[0].Label != "Yesterday" || len(sections[0].Messages) != 2 {
		t.Errorf("section[0] = %s with %d messages, want Yesterday with 2", sections[0].Label, len(sections[0].Messages))
	}
	if sections[1].Label != "Today" || len(sections[1].Messages) != 1 {
		t.Errorf("section[1] = %s with %d messages, want Today with 1", sections[1].Label, len(sections[1].Messages))
	}
	if sections[1].Messages[0].ID != "m3" {
		t.Errorf("today's message = %s, want m3", sections[1].Messages[0].ID)
	}
}

func TestGroupByDayEmpty(t *testing.T) {
	if got := GroupByDay(nil, time.Now()); len(got) != 0 {
		t.Errorf("got %d sections for empty input, want 0", len(got))
	}
}
