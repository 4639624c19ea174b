package lunar

import (
	"errors"
	"fmt"

	"github.com/6tail/lunar-go/calendar"
	"github.com/tartampluch/go-lunar-birthday/internal/config"
)

// ErrInvalidDate is returned when a lunisolar date does not exist or a
// conversion cannot be performed.
var ErrInvalidDate = errors.New(config.ErrLunarInvalid)

// Bridge converts between the lunisolar and solar calendars.
// Implementations are side-effect free and safe for concurrent use.
type Bridge interface {
	// FromSolar returns the lunisolar date falling on the given solar date.
	FromSolar(d SolarDate) (LunisolarDate, error)
	// FromLunisolarYmd validates a lunisolar date strictly.
	FromLunisolarYmd(year, month, day int, leap bool) (LunisolarDate, error)
	// Anniversary maps month/day onto year, normalizing dates the year lacks.
	Anniversary(year, month, day int, leap bool) (LunisolarDate, error)
	// ToSolar returns the solar date of a lunisolar date.
	ToSolar(d LunisolarDate) (SolarDate, error)
	// Numerals renders the Chinese numerals of a lunisolar date.
	Numerals(d LunisolarDate) (Numerals, error)
}

// Chinese implements Bridge over github.com/6tail/lunar-go.
type Chinese struct{}

// NewChinese returns the Chinese lunisolar bridge.
func NewChinese() Chinese { return Chinese{} }

// lunar-go encodes a leap month as a negative month number.
func libMonth(month int, leap bool) int {
	if leap {
		return -month
	}
	return month
}

// guard converts a library panic on out-of-table input into ErrInvalidDate.
func guard(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %s: %v", ErrInvalidDate, config.ErrLunarConvert, r)
	}
}

func (Chinese) FromSolar(d SolarDate) (out LunisolarDate, err error) {
	defer guard(&err)
	if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 31 {
		return LunisolarDate{}, fmt.Errorf("%w: solar %s", ErrInvalidDate, d)
	}
	l := calendar.NewSolarFromYmd(d.Year, d.Month, d.Day).GetLunar()
	return fromLib(l), nil
}

func (Chinese) FromLunisolarYmd(year, month, day int, leap bool) (out LunisolarDate, err error) {
	defer guard(&err)
	m, ok := findMonth(year, month, leap)
	if !ok {
		return LunisolarDate{}, fmt.Errorf("%w: %s", ErrInvalidDate, LunisolarDate{year, month, day, leap})
	}
	if day < 1 || day > m.GetDayCount() {
		return LunisolarDate{}, fmt.Errorf("%w: %s has %d days", ErrInvalidDate, LunisolarDate{year, month, day, leap}, m.GetDayCount())
	}
	return LunisolarDate{Year: year, Month: month, Day: day, Leap: leap}, nil
}

// Anniversary falls back to the ordinary month when year has no such leap
// month, and clamps day 30 onto a 29-day month.
func (c Chinese) Anniversary(year, month, day int, leap bool) (out LunisolarDate, err error) {
	defer guard(&err)
	m, ok := findMonth(year, month, leap)
	if !ok && leap {
		leap = false
		m, ok = findMonth(year, month, false)
	}
	if !ok {
		return LunisolarDate{}, fmt.Errorf("%w: month %d in year %d", ErrInvalidDate, month, year)
	}
	if day < 1 {
		return LunisolarDate{}, fmt.Errorf("%w: day %d", ErrInvalidDate, day)
	}
	if n := m.GetDayCount(); day > n {
		day = n
	}
	return LunisolarDate{Year: year, Month: month, Day: day, Leap: leap}, nil
}

func (Chinese) ToSolar(d LunisolarDate) (out SolarDate, err error) {
	defer guard(&err)
	if _, ok := findMonth(d.Year, d.Month, d.Leap); !ok {
		return SolarDate{}, fmt.Errorf("%w: %s", ErrInvalidDate, d)
	}
	s := calendar.NewLunarFromYmd(d.Year, libMonth(d.Month, d.Leap), d.Day).GetSolar()
	return SolarDate{Year: s.GetYear(), Month: s.GetMonth(), Day: s.GetDay()}, nil
}

func (Chinese) Numerals(d LunisolarDate) (out Numerals, err error) {
	defer guard(&err)
	if _, ok := findMonth(d.Year, d.Month, d.Leap); !ok {
		return Numerals{}, fmt.Errorf("%w: %s", ErrInvalidDate, d)
	}
	l := calendar.NewLunarFromYmd(d.Year, libMonth(d.Month, d.Leap), d.Day)
	return Numerals{
		Year:  l.GetYearInChinese(),
		Month: l.GetMonthInChinese(),
		Day:   l.GetDayInChinese(),
	}, nil
}

func findMonth(year, month int, leap bool) (*calendar.LunarMonth, bool) {
	if month < 1 || month > 12 {
		return nil, false
	}
	m := calendar.NewLunarYear(year).GetMonth(libMonth(month, leap))
	return m, m != nil
}

func fromLib(l *calendar.Lunar) LunisolarDate {
	month := l.GetMonth()
	leap := month < 0
	if leap {
		month = -month
	}
	return LunisolarDate{Year: l.GetYear(), Month: month, Day: l.GetDay(), Leap: leap}
}
