// Package lunar defines the calendar bridge the birthday engine consumes and
// its implementation over the Chinese lunisolar calendar.
package lunar

import (
	"cmp"
	"fmt"
	"time"

	"github.com/tartampluch/go-lunar-birthday/internal/config"
)

// SolarDate is a Gregorian calendar date without time of day.
type SolarDate struct {
	Year  int
	Month int // 1-12
	Day   int
}

// SolarFromTime returns the calendar date of t in t's own location.
func SolarFromTime(t time.Time) SolarDate {
	y, m, d := t.Date()
	return SolarDate{Year: y, Month: int(m), Day: d}
}

// Midnight returns the date at 00:00 UTC. UTC has no DST gaps, so day
// differences between two midnights are always whole multiples of 24h.
func (d SolarDate) Midnight() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// Compare orders dates by year, then month, then day.
func (d SolarDate) Compare(o SolarDate) int {
	switch {
	case d.Year != o.Year:
		return cmp.Compare(d.Year, o.Year)
	case d.Month != o.Month:
		return cmp.Compare(d.Month, o.Month)
	default:
		return cmp.Compare(d.Day, o.Day)
	}
}

// Before reports whether d is strictly earlier than o.
func (d SolarDate) Before(o SolarDate) bool { return d.Compare(o) < 0 }

// Equal reports whether d and o are the same calendar day.
func (d SolarDate) Equal(o SolarDate) bool { return d.Compare(o) == 0 }

// DaysUntil returns the signed number of whole days from d to o.
func (d SolarDate) DaysUntil(o SolarDate) int {
	return int(o.Midnight().Sub(d.Midnight()).Hours() / 24)
}

// AddDays returns the date n days after d.
func (d SolarDate) AddDays(n int) SolarDate {
	return SolarFromTime(d.Midnight().AddDate(0, 0, n))
}

// Compact renders YYYYMMDD.
func (d SolarDate) Compact() string {
	return fmt.Sprintf(config.DateFormatCompact, d.Year, d.Month, d.Day)
}

// ISO renders YYYY-MM-DD.
func (d SolarDate) ISO() string {
	return fmt.Sprintf(config.DateFormatISO, d.Year, d.Month, d.Day)
}

// Display renders the unpadded Y-M-D form used in the message header.
func (d SolarDate) Display() string {
	return fmt.Sprintf(config.DateFormatDisplay, d.Year, d.Month, d.Day)
}

func (d SolarDate) String() string { return d.ISO() }

// LunisolarDate is a date in the Chinese lunisolar calendar.
// Leap marks the intercalary (闰) month that repeats Month.
type LunisolarDate struct {
	Year  int
	Month int // 1-12
	Day   int // 1-30
	Leap  bool
}

func (d LunisolarDate) String() string {
	if d.Leap {
		return fmt.Sprintf(config.FallbackLeapDate, d.Year, d.Month, d.Day)
	}
	return fmt.Sprintf(config.FallbackLunarDate, d.Year, d.Month, d.Day)
}

// Numerals holds the Chinese numeral rendering of a lunisolar date,
// e.g. 一九九〇 / 正 / 十五 (or 闰四 for a leap fourth month).
type Numerals struct {
	Year  string
	Month string
	Day   string
}
