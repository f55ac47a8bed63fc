package almanac

import (
	"fmt"
	"time"
)

// Dimension identifies one of the two record families the cache keeps
// per date: the day-level record or the twelve-period hour record.
type Dimension string

const (
	DimensionDay  Dimension = "day"
	DimensionHour Dimension = "hour"
)

// DayRecord holds the day-level almanac attributes for one civil date
// (stem-branch cycle, five elements, auspicious/inauspicious activities,
// spirits, directions). The cache treats it as an opaque mapping.
type DayRecord map[string]any

// HourRecord holds the same category of attributes broken into the
// twelve traditional two-hour periods. Also opaque to the cache.
type HourRecord map[string]any

// Date is a pure civil date with no timezone semantics. Its string form
// YYYY-MM-DD is the sole cache key.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// NewDate validates the triple against the civil calendar.
func NewDate(year, month, day int) (Date, error) {
	d := Date{Year: year, Month: month, Day: day}
	if !d.valid() {
		return Date{}, fmt.Errorf("invalid calendar date %d-%d-%d", year, month, day)
	}
	return d, nil
}

// ParseDate parses the canonical YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}, nil
}

func (d Date) valid() bool {
	t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	return t.Year() == d.Year && int(t.Month()) == d.Month && t.Day() == d.Day
}

// String returns the zero-padded YYYY-MM-DD cache key.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Info is the combined payload returned to callers: both record
// families for a single date. It is never partial; retrieval either
// yields both dimensions or fails.
type Info struct {
	Date     string     `json:"date"`
	DayInfo  DayRecord  `json:"day_info"`
	HourInfo HourRecord `json:"hour_info"`
}
