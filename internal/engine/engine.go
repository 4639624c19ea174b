// Package engine computes lunar birthday countdowns and the matching
// iCalendar feed.
package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"go.uber.org/zap"

	"github.com/tartampluch/go-lunar-birthday/internal/config"
	"github.com/tartampluch/go-lunar-birthday/internal/lunar"
)

// Calculator turns a roster into per-person countdowns.
type Calculator struct {
	Clock  Clock
	Bridge lunar.Bridge
	Log    *zap.Logger

	// FormatLunar renders a lunisolar date for display. The report package
	// injects a localized implementation.
	FormatLunar func(d lunar.LunisolarDate, n lunar.Numerals) string

	// FormatSummary renders the title of a feed event.
	FormatSummary func(name string, age int) string
}

// NewCalculator returns a Calculator over the Chinese calendar reading "today" in loc.
func NewCalculator(loc *time.Location, log *zap.Logger) *Calculator {
	return &Calculator{
		Clock:  RealClock{Location: loc},
		Bridge: lunar.NewChinese(),
		Log:    log,
	}
}

func (c *Calculator) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log.With(zap.String(config.LogKeyComponent, config.CompEngine))
}

func (c *Calculator) now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock.Now()
}

// Today returns the current solar date in the clock's zone.
func (c *Calculator) Today() lunar.SolarDate {
	return lunar.SolarFromTime(c.now())
}

// Calculate runs the countdown for "today" as given by the Clock.
func (c *Calculator) Calculate(ctx context.Context, people []Person) (Report, error) {
	return c.CalculateAt(ctx, c.Today(), people)
}

// CalculateAt produces one result per valid person, in roster order.
// Persons whose birth date the bridge rejects are listed in Report.Failures.
// An error is returned only when today itself cannot be converted or ctx ends.
func (c *Calculator) CalculateAt(ctx context.Context, today lunar.SolarDate, people []Person) (Report, error) {
	log := c.logger()

	todayLunar, err := c.Bridge.FromSolar(today)
	if err != nil {
		return Report{}, fmt.Errorf("%s: today %s: %w", config.ErrLunarConvert, today, err)
	}

	report := Report{
		TodaySolar:        today,
		TodayLunar:        todayLunar,
		TodayLunarDisplay: c.display(todayLunar),
		Results:           make([]BirthdayResult, 0, len(people)),
	}

	for i, p := range people {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}

		res, err := c.cycle(today, todayLunar, p)
		if err != nil {
			log.Warn(config.MsgEntryFailed,
				zap.Int(config.LogKeyIndex, i),
				zap.String(config.LogKeyName, p.Name),
				zap.Stringer(config.LogKeyBirth, p.Birth),
				zap.Error(err))
			report.Failures = append(report.Failures, EntryError{Source: config.CompEngine, Index: i, Name: p.Name, Err: err})
			continue
		}
		if res.DaysUntilNextBirthday == 0 {
			log.Info(config.MsgBdayToday, zap.String(config.LogKeyName, p.Name), zap.Int(config.LogKeyDays, 0))
		}
		report.Results = append(report.Results, res)
	}

	log.Info(config.MsgCalcDone,
		zap.Stringer(config.LogKeyToday, today),
		zap.Stringer(config.LogKeyLunar, todayLunar),
		zap.Int(config.LogKeyCount, len(report.Results)),
		zap.Int(config.LogKeyFailed, len(report.Failures)))
	return report, nil
}

// cycle computes one person's countdown.
func (c *Calculator) cycle(today lunar.SolarDate, todayLunar lunar.LunisolarDate, p Person) (BirthdayResult, error) {
	birth, err := c.Bridge.FromLunisolarYmd(p.Birth.Year, p.Birth.Month, p.Birth.Day, p.Birth.Leap)
	if err != nil {
		return BirthdayResult{}, err
	}

	nextLunar, nextSolar, err := nextOccurrence(c.Bridge, today, todayLunar.Year, birth)
	if err != nil {
		return BirthdayResult{}, err
	}

	return BirthdayResult{
		Name:                  p.Name,
		LunarBirthDisplay:     c.display(birth),
		Age:                   todayLunar.Year - birth.Year,
		DaysUntilNextBirthday: today.DaysUntil(nextSolar),
		NextOccurrence:        nextSolar,
		NextLunar:             nextLunar,
	}, nil
}

// nextOccurrence returns the first occurrence of birth's month and day on or
// after today. The occurrence in the current lunisolar year is used unless it
// is strictly before today, in which case the next year's is.
func nextOccurrence(b lunar.Bridge, today lunar.SolarDate, lunarYear int, birth lunar.LunisolarDate) (lunar.LunisolarDate, lunar.SolarDate, error) {
	for _, year := range []int{lunarYear, lunarYear + 1} {
		anniv, err := b.Anniversary(year, birth.Month, birth.Day, birth.Leap)
		if err != nil {
			return lunar.LunisolarDate{}, lunar.SolarDate{}, err
		}
		solar, err := b.ToSolar(anniv)
		if err != nil {
			return lunar.LunisolarDate{}, lunar.SolarDate{}, err
		}
		if !solar.Before(today) {
			return anniv, solar, nil
		}
	}
	// The next year's occurrence always lies after today.
	return lunar.LunisolarDate{}, lunar.SolarDate{}, fmt.Errorf("%w: no occurrence of %s after %s", lunar.ErrInvalidDate, birth, today)
}

func (c *Calculator) display(d lunar.LunisolarDate) string {
	if c.FormatLunar == nil {
		return d.String()
	}
	n, err := c.Bridge.Numerals(d)
	if err != nil {
		return d.String()
	}
	return c.FormatLunar(d, n)
}

func (c *Calculator) summary(name string, age int) string {
	if c.FormatSummary == nil {
		return fmt.Sprintf(config.FallbackSummary, name, age)
	}
	return c.FormatSummary(name, age)
}

// Calendar builds an iCalendar feed with one all-day event per person for the
// previous, current and next lunisolar years. Years before birth are skipped.
// A non-empty trigger (e.g. "-P1D") adds a display alarm to every event.
func (c *Calculator) Calendar(ctx context.Context, today lunar.SolarDate, people []Person, trigger string) ([]byte, error) {
	log := c.logger()

	todayLunar, err := c.Bridge.FromSolar(today)
	if err != nil {
		return nil, fmt.Errorf("%s: today %s: %w", config.ErrLunarConvert, today, err)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	refresh := ical.NewProp(config.PropRefresh)
	refresh.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refresh)

	stamp := ical.NewProp(config.PropDTStamp)
	stamp.SetDateTime(c.now().UTC())

	for i, p := range people {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		birth, err := c.Bridge.FromLunisolarYmd(p.Birth.Year, p.Birth.Month, p.Birth.Day, p.Birth.Leap)
		if err != nil {
			log.Debug(config.MsgEntryFailed, zap.Int(config.LogKeyIndex, i), zap.String(config.LogKeyName, p.Name), zap.Error(err))
			continue
		}

		hash := sha256.Sum256([]byte(fmt.Sprintf(config.FormatHashInput, p.Name, birth.String(), config.UIDSalt)))
		uidBase := fmt.Sprintf("%x", hash[:config.UIDHashLength])

		for _, year := range []int{todayLunar.Year - 1, todayLunar.Year, todayLunar.Year + 1} {
			if year < birth.Year {
				continue
			}
			event, err := c.event(p.Name, birth, year, uidBase, trigger)
			if err != nil {
				log.Debug(config.MsgEntryFailed, zap.String(config.LogKeyName, p.Name), zap.Error(err))
				continue
			}
			event.Props.Set(stamp)
			cal.Children = append(cal.Children, event.Component)
		}
	}

	// go-ical refuses to encode a calendar without components.
	if len(cal.Children) == 0 {
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	return buf.Bytes(), nil
}

func (c *Calculator) event(name string, birth lunar.LunisolarDate, year int, uidBase, trigger string) (*ical.Event, error) {
	anniv, err := c.Bridge.Anniversary(year, birth.Month, birth.Day, birth.Leap)
	if err != nil {
		return nil, err
	}
	solar, err := c.Bridge.ToSolar(anniv)
	if err != nil {
		return nil, err
	}

	summary := c.summary(name, year-birth.Year)

	event := ical.NewEvent()
	event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, uidBase, year, config.ICalDomain))
	event.Props.SetText(config.PropSummary, summary)
	event.Props.SetText(config.PropDescription, c.display(anniv))

	start := ical.NewProp(config.PropDTStart)
	start.SetDate(solar.Midnight())
	event.Props.Set(start)

	if trigger != "" {
		addAlarm(event, trigger, summary)
	}
	return event, nil
}

// addAlarm appends a DISPLAY alarm. TRIGGER is set raw to avoid a VALUE=TEXT param.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}
