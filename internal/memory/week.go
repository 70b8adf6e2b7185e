package memory

import (
	"fmt"
	"time"
)

// WeekID returns the ISO year-week identifier for t, e.g. "2026-W35".
// The ISO year may differ from the calendar year at year boundaries.
func WeekID(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
