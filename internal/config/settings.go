package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	_ "time/tzdata" // BIRTHDAY_TZ must resolve in images without a zoneinfo database

	"github.com/kelseyhightower/envconfig"
	"github.com/zalando/go-keyring"
)

// Settings holds the run configuration loaded from environment variables.
// It is built once in main and passed down by value.
type Settings struct {
	Births     string `envconfig:"BIRTHS"`      // JSON or YAML list of {name, birth, leap}
	BirthsFile string `envconfig:"BIRTHS_FILE"` // same document, from a file

	VCardPath string `envconfig:"VCARD_PATH"`
	VCardURL  string `envconfig:"VCARD_URL"`
	VCardUser string `envconfig:"VCARD_USER"`
	VCardPass string `envconfig:"VCARD_PASS"` // falls back to the keyring when VCardUser is set

	NotifyToken     string        `envconfig:"NOTIFY"`                              // falls back to the keyring
	NotifyChannel   string        `envconfig:"NOTIFY_CHANNEL" default:"serverchan"` // serverchan|telegram
	NotifyURL       string        `envconfig:"NOTIFY_URL" default:"https://sctapi.ftqq.com/%s.send"`
	NotifyTimeout   time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"5s"`
	TelegramChatID  int64         `envconfig:"TELEGRAM_CHAT_ID"`
	TelegramAPIBase string        `envconfig:"TELEGRAM_API_ENDPOINT"` // empty: library default

	Language string `envconfig:"REPORT_LANGUAGE" default:"zh"`
	Timezone string `envconfig:"BIRTHDAY_TZ" default:"Asia/Shanghai"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error

	ServerBind      string        `envconfig:"SERVER_BIND" default:"127.0.0.1"`
	ServerPort      string        `envconfig:"SERVER_PORT" default:"18080"`
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"1h"`
	ReminderTrigger string        `envconfig:"REMINDER_TRIGGER" default:"-P1D"` // ISO8601 duration, empty disables
}

// Load reads environment variables into Settings and validates them.
func Load() (Settings, error) {
	var s Settings
	if err := envconfig.Process("", &s); err != nil {
		return s, fmt.Errorf("%s: %w", ErrSettings, err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Validate rejects settings that would make every run fail the same way.
// Roster and token problems are not validated here: they degrade at run time.
func (s Settings) Validate() error {
	var errs []error
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("%s %q: %w", ErrTimezone, s.Timezone, err))
	}
	switch s.NotifyChannel {
	case ChannelServerChan:
		// Empty falls back to DefaultNotifyURL in the dispatcher.
		if s.NotifyURL != "" && strings.Count(s.NotifyURL, "%s") != 1 {
			errs = append(errs, fmt.Errorf("%s: %q", ErrNotifyURL, s.NotifyURL))
		}
	case ChannelTelegram:
		if s.TelegramChatID == 0 {
			errs = append(errs, errors.New(ErrTelegramChat))
		}
	default:
		errs = append(errs, fmt.Errorf("%s: %q", ErrChannel, s.NotifyChannel))
	}
	if !slices.Contains(SupportedLanguages, s.Language) {
		errs = append(errs, fmt.Errorf("%s: %q", ErrLanguage, s.Language))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s: %w", ErrSettings, errors.Join(errs...))
	}
	return nil
}

// Location returns the zone that defines "today". Validate guarantees it loads.
func (s Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NotifyWait returns the bound on the outbound notification call.
func (s Settings) NotifyWait() time.Duration {
	if s.NotifyTimeout <= 0 {
		return DefaultNotifyWait
	}
	return s.NotifyTimeout
}

// ResolveToken returns the delivery token from the environment, then the keyring.
// A missing token is not an error: it only disables dispatch.
func (s Settings) ResolveToken() string {
	if s.NotifyToken != "" {
		return s.NotifyToken
	}
	token, err := keyring.Get(KeyringService, KeyringTokenUser)
	if err != nil {
		return ""
	}
	return token
}

// ResolveVCardPass returns the vCard password from the environment, then the keyring.
func (s Settings) ResolveVCardPass() string {
	if s.VCardPass != "" || s.VCardUser == "" {
		return s.VCardPass
	}
	pass, err := keyring.Get(KeyringService, s.VCardUser)
	if err != nil {
		return ""
	}
	return pass
}

// StoreToken saves the delivery token in the OS keyring.
func StoreToken(token string) error {
	if token == "" {
		return errors.New(ErrTokenEmpty)
	}
	if err := keyring.Set(KeyringService, KeyringTokenUser, token); err != nil {
		return fmt.Errorf("%s: %w", ErrKeyring, err)
	}
	return nil
}

// ClearToken removes the delivery token from the OS keyring. Clearing an absent token succeeds.
func ClearToken() error {
	err := keyring.Delete(KeyringService, KeyringTokenUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%s: %w", ErrKeyring, err)
	}
	return nil
}
