package engine

import (
	"fmt"

	"github.com/tartampluch/go-lunar-birthday/internal/lunar"
)

// Person is one roster entry with a parsed lunisolar birth date.
// Birth is not validated until the Calculator sees it.
type Person struct {
	Name  string
	Birth lunar.LunisolarDate
}

// BirthdayResult is the countdown computed for one Person.
type BirthdayResult struct {
	Name string

	// LunarBirthDisplay is the localized rendering of the birth date.
	LunarBirthDisplay string

	// Age is the current lunisolar year minus the birth lunisolar year.
	Age int

	// DaysUntilNextBirthday is 0 when the birthday is today, never negative.
	DaysUntilNextBirthday int

	// NextOccurrence is the solar date the countdown points at.
	NextOccurrence lunar.SolarDate

	// NextLunar is the (normalized) lunisolar date of NextOccurrence.
	NextLunar lunar.LunisolarDate
}

// EntryError describes a roster entry that was skipped.
// Index is the position within Source, or -1 when the whole source failed.
type EntryError struct {
	Source string
	Index  int
	Name   string
	Err    error
}

func (e EntryError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %v", e.Source, e.Err)
	}
	if e.Name == "" {
		return fmt.Sprintf("%s[%d]: %v", e.Source, e.Index, e.Err)
	}
	return fmt.Sprintf("%s[%d] %q: %v", e.Source, e.Index, e.Name, e.Err)
}

func (e EntryError) Unwrap() error { return e.Err }

// Report is the outcome of one countdown run.
type Report struct {
	TodaySolar        lunar.SolarDate
	TodayLunar        lunar.LunisolarDate
	TodayLunarDisplay string
	Results           []BirthdayResult
	Failures          []EntryError
}
