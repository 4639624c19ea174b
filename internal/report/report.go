// Package report renders countdown results as the notification message.
package report

import (
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/tartampluch/go-lunar-birthday/internal/config"
	"github.com/tartampluch/go-lunar-birthday/internal/engine"
	"github.com/tartampluch/go-lunar-birthday/internal/lunar"
)

//go:embed locales/*.json
var localeFS embed.FS

// Formatter renders reports in one language. It is safe for concurrent use.
type Formatter struct {
	lang      string
	localizer *i18n.Localizer
	log       *zap.Logger
}

// NewFormatter loads the embedded locales and selects lang.
func NewFormatter(lang string, log *zap.Logger) (*Formatter, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String(config.LogKeyComponent, config.CompI18n), zap.String(config.LogKeyLang, lang))

	if !slices.Contains(config.SupportedLanguages, lang) {
		return nil, fmt.Errorf("%s: %q", config.ErrLanguage, lang)
	}

	bundle, err := loadBundle(log)
	if err != nil {
		return nil, err
	}
	return &Formatter{
		lang:      lang,
		localizer: i18n.NewLocalizer(bundle, lang),
		log:       log,
	}, nil
}

func loadBundle(log *zap.Logger) (*i18n.Bundle, error) {
	bundle := i18n.NewBundle(language.Chinese)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrLocalesAccess, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			log.Debug(config.MsgLocaleSkip, zap.String(config.LogKeyFile, name))
			continue
		}
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			return nil, fmt.Errorf("%s %s: %w", config.ErrLocaleLoad, name, err)
		}
		log.Debug(config.MsgLocaleLoaded, zap.String(config.LogKeyFile, name))
	}
	return bundle, nil
}

// Language returns the selected language code.
func (f *Formatter) Language() string { return f.lang }

func (f *Formatter) localize(id string, data map[string]any, count any, fallback string) string {
	msg, err := f.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
		PluralCount:  count,
	})
	if err != nil {
		f.log.Debug(config.MsgTransMissing, zap.String(config.LogKeyKey, id), zap.Error(err))
		return fallback
	}
	return msg
}

// Title is the notification title.
func (f *Formatter) Title() string {
	return f.localize(config.TKeyTitle, nil, nil, config.FallbackTitle)
}

// LunarDate renders d using its Chinese numerals, e.g. 一九九〇年，正月，十五日.
func (f *Formatter) LunarDate(d lunar.LunisolarDate, n lunar.Numerals) string {
	key := config.TKeyLunarDate
	if d.Leap {
		key = config.TKeyLunarLeap
	}
	return f.localize(key, map[string]any{
		"Year": n.Year, "Month": n.Month, "Day": n.Day,
		"Y": d.Year, "M": d.Month, "D": d.Day,
	}, nil, d.String())
}

// EventSummary is the title of a calendar feed event.
func (f *Formatter) EventSummary(name string, age int) string {
	return f.localize(config.TKeyEvtSummary, map[string]any{"Name": name, "Age": age}, nil,
		fmt.Sprintf(config.FallbackSummary, name, age))
}

// Body renders the message: a header with today's dates, then one section
// per result in the given order. No results yields the header alone.
func (f *Formatter) Body(todaySolar lunar.SolarDate, todayLunarDisplay string, results []engine.BirthdayResult) string {
	var b strings.Builder

	b.WriteString(f.localize(config.TKeyHeader, map[string]any{
		"Solar": todaySolar.Display(),
		"Lunar": todayLunarDisplay,
	}, nil, todaySolar.Display()+" "+todayLunarDisplay))
	b.WriteString("\n")

	for _, r := range results {
		b.WriteString("\n")
		b.WriteString(f.localize(config.TKeyPerson, map[string]any{"Name": r.Name}, nil, r.Name))
		b.WriteString("\n")
		b.WriteString(f.localize(config.TKeyBirthAge, map[string]any{"Birth": r.LunarBirthDisplay, "Age": r.Age}, nil,
			fmt.Sprintf("%s, %d", r.LunarBirthDisplay, r.Age)))
		b.WriteString("\n")
		b.WriteString(f.localize(config.TKeyCountdown, map[string]any{"Days": r.DaysUntilNextBirthday}, r.DaysUntilNextBirthday,
			fmt.Sprint(r.DaysUntilNextBirthday)))
		b.WriteString("\n")
	}
	return b.String()
}

// Render is Body for a whole engine.Report.
func (f *Formatter) Render(r engine.Report) string {
	return f.Body(r.TodaySolar, r.TodayLunarDisplay, r.Results)
}
