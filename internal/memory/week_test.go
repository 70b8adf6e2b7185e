package memory_test

import (
	"testing"
	"time"

	"github.com/keepsake-ai/keepsake/internal/memory"
)

func TestWeekID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{
			name: "mid-year week",
			date: time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
			want: "2026-W35",
		},
		{
			name: "single-digit week zero-padded",
			date: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
			want: "2026-W06",
		},
		{
			name: "january 1st belonging to previous ISO year",
			date: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
			want: "2026-W53",
		},
		{
			name: "late december belonging to next ISO year",
			date: time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC),
			want: "2025-W01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := memory.WeekID(tt.date); got != tt.want {
				t.Errorf("WeekID(%s) = %q, want %q", tt.date.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}
