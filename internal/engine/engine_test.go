package engine_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-lunar-birthday/internal/config"
	"github.com/tartampluch/go-lunar-birthday/internal/engine"
	"github.com/tartampluch/go-lunar-birthday/internal/lunar"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockClock controls time for deterministic testing.
type MockClock struct {
	CurrentTime time.Time
}

func (m MockClock) Now() time.Time {
	return m.CurrentTime
}

// MockBridge lets a test decide which conversions fail.
type MockBridge struct {
	mock.Mock
}

func (m *MockBridge) FromSolar(d lunar.SolarDate) (lunar.LunisolarDate, error) {
	args := m.Called(d)
	return args.Get(0).(lunar.LunisolarDate), args.Error(1)
}

func (m *MockBridge) FromLunisolarYmd(year, month, day int, leap bool) (lunar.LunisolarDate, error) {
	args := m.Called(year, month, day, leap)
	return args.Get(0).(lunar.LunisolarDate), args.Error(1)
}

func (m *MockBridge) Anniversary(year, month, day int, leap bool) (lunar.LunisolarDate, error) {
	args := m.Called(year, month, day, leap)
	return args.Get(0).(lunar.LunisolarDate), args.Error(1)
}

func (m *MockBridge) ToSolar(d lunar.LunisolarDate) (lunar.SolarDate, error) {
	args := m.Called(d)
	return args.Get(0).(lunar.SolarDate), args.Error(1)
}

func (m *MockBridge) Numerals(d lunar.LunisolarDate) (lunar.Numerals, error) {
	args := m.Called(d)
	return args.Get(0).(lunar.Numerals), args.Error(1)
}

func day(y, m, d int) lunar.SolarDate { return lunar.SolarDate{Year: y, Month: m, Day: d} }

func newCalculator(now time.Time) *engine.Calculator {
	return &engine.Calculator{
		Clock:  MockClock{CurrentTime: now},
		Bridge: lunar.NewChinese(),
		Log:    zap.NewNop(),
	}
}

var zhangSan = engine.Person{Name: "张三", Birth: lunar.LunisolarDate{Year: 1990, Month: 1, Day: 15}}

// -----------------------------------------------------------------------------
// Countdown
// -----------------------------------------------------------------------------

// TestCalculate_SpringFestivalScenario: on 2024-02-10 (正月初一 2024) a person
// born on 1990 正月十五 is 34 and has 14 days left.
func TestCalculate_SpringFestivalScenario(t *testing.T) {
	calc := newCalculator(time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC))

	report, err := calc.Calculate(context.Background(), []engine.Person{zhangSan})
	require.NoError(t, err)

	assert.Equal(t, day(2024, 2, 10), report.TodaySolar)
	assert.Equal(t, lunar.LunisolarDate{Year: 2024, Month: 1, Day: 1}, report.TodayLunar)
	require.Len(t, report.Results, 1)

	r := report.Results[0]
	assert.Equal(t, "张三", r.Name)
	assert.Equal(t, 34, r.Age)
	assert.Equal(t, 14, r.DaysUntilNextBirthday)
	assert.Equal(t, day(2024, 2, 24), r.NextOccurrence)
	assert.Empty(t, report.Failures)
}

func TestCalculate_SameDayIsZero(t *testing.T) {
	report, err := newCalculator(time.Time{}).CalculateAt(context.Background(), day(2024, 2, 24), []engine.Person{zhangSan})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, 0, report.Results[0].DaysUntilNextBirthday)
	assert.Equal(t, day(2024, 2, 24), report.Results[0].NextOccurrence)
}

func TestCalculate_PassedOccurrenceTargetsNextYear(t *testing.T) {
	report, err := newCalculator(time.Time{}).CalculateAt(context.Background(), day(2024, 3, 1), []engine.Person{zhangSan})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	r := report.Results[0]
	assert.Equal(t, day(2025, 2, 12), r.NextOccurrence)
	assert.Equal(t, lunar.LunisolarDate{Year: 2025, Month: 1, Day: 15}, r.NextLunar)
	assert.Equal(t, 348, r.DaysUntilNextBirthday)
	assert.Equal(t, 34, r.Age, "Age follows today's lunar year, not the target's")
}

// TestCalculate_DailyProperties walks 800 consecutive days and checks that the
// distance is bounded, decreases by exactly one per day except when it rolls
// over from zero, and that age only changes at Spring Festival.
func TestCalculate_DailyProperties(t *testing.T) {
	calc := newCalculator(time.Time{})
	bridge := lunar.NewChinese()
	people := []engine.Person{
		zhangSan,
		{Name: "闰月", Birth: lunar.LunisolarDate{Year: 2023, Month: 2, Day: 10, Leap: true}},
		{Name: "腊月三十", Birth: lunar.LunisolarDate{Year: 2023, Month: 12, Day: 30}},
	}

	start := day(2024, 1, 1)
	var prev *engine.Report
	for i := 0; i < 800; i++ {
		today := start.AddDays(i)
		report, err := calc.CalculateAt(context.Background(), today, people)
		require.NoError(t, err, today.ISO())
		require.Len(t, report.Results, len(people), today.ISO())

		for j, r := range report.Results {
			require.GreaterOrEqual(t, r.DaysUntilNextBirthday, 0, "%s %s", today, r.Name)
			require.Less(t, r.DaysUntilNextBirthday, config.MaxLunarYearDays, "%s %s", today, r.Name)
			require.Equal(t, today.AddDays(r.DaysUntilNextBirthday), r.NextOccurrence)

			if prev == nil {
				continue
			}
			before := prev.Results[j]
			if before.DaysUntilNextBirthday == 0 {
				require.Positive(t, r.DaysUntilNextBirthday, "%s %s rolls over", today, r.Name)
			} else {
				require.Equal(t, before.DaysUntilNextBirthday-1, r.DaysUntilNextBirthday, "%s %s", today, r.Name)
			}

			if prev.TodayLunar.Year == report.TodayLunar.Year {
				require.Equal(t, before.Age, r.Age, "%s %s", today, r.Name)
			}
		}

		// The occurrence is a real anniversary of the birth month and day.
		back, err := bridge.ToSolar(report.Results[0].NextLunar)
		require.NoError(t, err)
		require.Equal(t, report.Results[0].NextOccurrence, back)

		prev = &report
	}
}

func TestCalculate_InvalidBirthIsSkipped(t *testing.T) {
	people := []engine.Person{
		{Name: "无闰", Birth: lunar.LunisolarDate{Year: 2024, Month: 2, Day: 10, Leap: true}},
		zhangSan,
		{Name: "十三月", Birth: lunar.LunisolarDate{Year: 1990, Month: 13, Day: 1}},
	}

	core, logs := observer.New(zap.WarnLevel)
	calc := newCalculator(time.Time{})
	calc.Log = zap.New(core)

	report, err := calc.CalculateAt(context.Background(), day(2024, 2, 10), people)
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, "张三", report.Results[0].Name)

	require.Len(t, report.Failures, 2)
	assert.Equal(t, 0, report.Failures[0].Index)
	assert.Equal(t, "十三月", report.Failures[1].Name)
	for _, f := range report.Failures {
		assert.ErrorIs(t, f, lunar.ErrInvalidDate)
	}
	assert.Equal(t, 2, logs.FilterMessage(config.MsgEntryFailed).Len())
}

func TestCalculate_PreservesRosterOrder(t *testing.T) {
	people := []engine.Person{
		{Name: "后", Birth: lunar.LunisolarDate{Year: 1980, Month: 12, Day: 1}},
		{Name: "先", Birth: lunar.LunisolarDate{Year: 1980, Month: 1, Day: 2}},
		{Name: "后", Birth: lunar.LunisolarDate{Year: 1980, Month: 12, Day: 1}},
	}
	report, err := newCalculator(time.Time{}).CalculateAt(context.Background(), day(2024, 2, 10), people)
	require.NoError(t, err)

	var names []string
	for _, r := range report.Results {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"后", "先", "后"}, names)
}

func TestCalculate_EmptyRoster(t *testing.T) {
	report, err := newCalculator(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)).Calculate(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Empty(t, report.Failures)
	assert.Equal(t, day(2024, 2, 10), report.TodaySolar)
}

func TestCalculate_FormatLunarIsInjected(t *testing.T) {
	calc := newCalculator(time.Time{})
	calc.FormatLunar = func(d lunar.LunisolarDate, n lunar.Numerals) string {
		return n.Year + "|" + n.Month + "|" + n.Day
	}

	report, err := calc.CalculateAt(context.Background(), day(2024, 2, 10), []engine.Person{zhangSan})
	require.NoError(t, err)
	assert.Equal(t, "二〇二四|正|初一", report.TodayLunarDisplay)
	assert.Equal(t, "一九九〇|正|十五", report.Results[0].LunarBirthDisplay)
}

func TestCalculate_FallbackDisplay(t *testing.T) {
	report, err := newCalculator(time.Time{}).CalculateAt(context.Background(), day(2024, 2, 10), []engine.Person{zhangSan})
	require.NoError(t, err)
	assert.Equal(t, "2024-1-1 (lunar)", report.TodayLunarDisplay)
	assert.Equal(t, "1990-1-15 (lunar)", report.Results[0].LunarBirthDisplay)
}

func TestCalculate_TodayConversionFails(t *testing.T) {
	bridge := new(MockBridge)
	bridge.On("FromSolar", mock.Anything).Return(lunar.LunisolarDate{}, lunar.ErrInvalidDate)

	calc := &engine.Calculator{Clock: MockClock{CurrentTime: time.Now()}, Bridge: bridge}
	_, err := calc.Calculate(context.Background(), []engine.Person{zhangSan})
	assert.ErrorIs(t, err, lunar.ErrInvalidDate)
	bridge.AssertNotCalled(t, "FromLunisolarYmd", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCalculate_ConversionErrorAfterValidation(t *testing.T) {
	boom := errors.New("table exhausted")
	today := lunar.LunisolarDate{Year: 2024, Month: 1, Day: 1}
	birth := zhangSan.Birth

	bridge := new(MockBridge)
	bridge.On("FromSolar", day(2024, 2, 10)).Return(today, nil)
	bridge.On("FromLunisolarYmd", 1990, 1, 15, false).Return(birth, nil)
	bridge.On("Anniversary", 2024, 1, 15, false).Return(lunar.LunisolarDate{Year: 2024, Month: 1, Day: 15}, nil)
	bridge.On("ToSolar", mock.Anything).Return(lunar.SolarDate{}, boom)

	calc := &engine.Calculator{Bridge: bridge}
	report, err := calc.CalculateAt(context.Background(), day(2024, 2, 10), []engine.Person{zhangSan})
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0], boom)
	bridge.AssertExpectations(t)
}

func TestCalculate_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newCalculator(time.Time{}).CalculateAt(ctx, day(2024, 2, 10), []engine.Person{zhangSan})
	assert.ErrorIs(t, err, context.Canceled)
}

// -----------------------------------------------------------------------------
// Calendar feed
// -----------------------------------------------------------------------------

func TestCalendar_GeneratesLunarYearRange(t *testing.T) {
	calc := newCalculator(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))

	ics, err := calc.Calendar(context.Background(), day(2024, 2, 10), []engine.Person{zhangSan}, "")
	require.NoError(t, err)

	icsStr := string(ics)
	assert.Contains(t, icsStr, "BEGIN:VCALENDAR")
	assert.Contains(t, icsStr, "DTSTART;VALUE=DATE:20230205", "Previous lunar year")
	assert.Contains(t, icsStr, "DTSTART;VALUE=DATE:20240224", "Current lunar year")
	assert.Contains(t, icsStr, "DTSTART;VALUE=DATE:20250212", "Next lunar year")
	assert.Equal(t, 3, strings.Count(icsStr, "BEGIN:VEVENT"))
	assert.Contains(t, icsStr, "SUMMARY:Birthday: 张三 (34)")
	assert.NotContains(t, icsStr, "BEGIN:VALARM")
}

func TestCalendar_WithReminders(t *testing.T) {
	calc := newCalculator(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))
	calc.FormatSummary = func(name string, age int) string { return fmt.Sprintf("%s %d岁生日", name, age) }

	ics, err := calc.Calendar(context.Background(), day(2024, 2, 10), []engine.Person{zhangSan}, "-P1D")
	require.NoError(t, err)

	icsStr := string(ics)
	assert.Equal(t, 3, strings.Count(icsStr, "BEGIN:VALARM"))
	assert.Contains(t, icsStr, "TRIGGER:-P1D")
	assert.Contains(t, icsStr, "ACTION:DISPLAY")
	assert.Contains(t, icsStr, "SUMMARY:张三 34岁生日")
}

func TestCalendar_SkipsYearsBeforeBirth(t *testing.T) {
	baby := engine.Person{Name: "Baby", Birth: lunar.LunisolarDate{Year: 2024, Month: 3, Day: 1}}
	future := engine.Person{Name: "Future", Birth: lunar.LunisolarDate{Year: 2030, Month: 1, Day: 1}}
	calc := newCalculator(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))

	ics, err := calc.Calendar(context.Background(), day(2024, 2, 10), []engine.Person{baby, future}, "")
	require.NoError(t, err)

	icsStr := string(ics)
	assert.Equal(t, 2, strings.Count(icsStr, "BEGIN:VEVENT"), "2024 and 2025 only")
	assert.Contains(t, icsStr, "SUMMARY:Birthday: Baby (0)")
	assert.Contains(t, icsStr, "SUMMARY:Birthday: Baby (1)")
	assert.NotContains(t, icsStr, "Future")
}

func TestCalendar_StableUIDs(t *testing.T) {
	calc := newCalculator(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))

	first, err := calc.Calendar(context.Background(), day(2024, 2, 10), []engine.Person{zhangSan}, "")
	require.NoError(t, err)
	calc.Clock = MockClock{CurrentTime: time.Date(2024, 2, 11, 0, 0, 0, 0, time.UTC)}
	second, err := calc.Calendar(context.Background(), day(2024, 2, 11), []engine.Person{zhangSan}, "")
	require.NoError(t, err)

	uids := func(ics []byte) []string {
		var out []string
		for _, line := range strings.Split(string(ics), "\r\n") {
			if strings.HasPrefix(line, "UID:") {
				out = append(out, line)
			}
		}
		return out
	}
	require.Len(t, uids(first), 3)
	assert.Equal(t, uids(first), uids(second))
	assert.Contains(t, uids(first)[1], "-2024@"+config.ICalDomain)
}

func TestCalendar_EmptyRosterReturnsStub(t *testing.T) {
	ics, err := newCalculator(time.Now()).Calendar(context.Background(), day(2024, 2, 10), nil, "-P1D")
	require.NoError(t, err)
	assert.Equal(t, config.StubVCalendar, string(ics))
}

func TestCalendar_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newCalculator(time.Now()).Calendar(ctx, day(2024, 2, 10), []engine.Person{zhangSan}, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRealClock_UsesLocation(t *testing.T) {
	loc := time.FixedZone("CST", 8*60*60)
	assert.Equal(t, loc, engine.RealClock{Location: loc}.Now().Location())
}
