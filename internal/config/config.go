package config

import (
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Go-Lunar-Birthday/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go Lunar Birthday"
	AppCommand        = "go-lunar-birthday"
	KeyringService    = "com.github.tartampluch.go-lunar-birthday"
	KeyringTokenUser  = "notify-token"
	LocalhostBindAddr = "127.0.0.1"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	ExitCodeConfig  = 2
)

// -----------------------------------------------------------------------------
// CLI Commands & Descriptions
// -----------------------------------------------------------------------------

const (
	CmdShortRoot     = "Lunar birthday countdown notifier"
	CmdLongRoot      = "Computes the days left until each person's next lunar birthday and sends one notification.\nAll configuration is read from the environment."
	CmdUsePreview    = "preview"
	CmdShortPreview  = "Print the notification to stdout without sending it"
	CmdUseServe      = "serve"
	CmdShortServe    = "Serve the lunar birthday calendar feed and latest report over HTTP"
	CmdUseToken      = "token"
	CmdShortToken    = "Manage the delivery token stored in the OS keyring"
	CmdUseTokenSet   = "set [token]"
	CmdShortTokenSet = "Store the delivery token in the OS keyring"
	CmdUseTokenClear = "clear"
	CmdShortTokenClr = "Remove the delivery token from the OS keyring"
	CmdUseVersion    = "version"
	CmdShortVersion  = "Show application version and exit"
	MsgVersionOutput = "%s version %s (%s, %s) %s/%s\n"
	MsgTokenStored   = "Delivery token stored in the OS keyring."
	MsgTokenCleared  = "Delivery token removed from the OS keyring."
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	ChannelServerChan = "serverchan"
	ChannelTelegram   = "telegram"

	DefaultLanguage        = "zh"
	DefaultTimezone        = "Asia/Shanghai"
	DefaultPort            = "18080"
	DefaultNotifyURL       = "https://sctapi.ftqq.com/%s.send"
	DefaultReminderTrigger = "-P1D"

	// MaxLunarYearDays bounds the distance to the next occurrence: a lunisolar
	// year with a leap month lasts at most 385 days.
	MaxLunarYearDays = 385

	// LeapMarker prefixes the month of a leap-month birth in the compact roster form (1990-L04-12).
	LeapMarker = "L"

	// BirthSeparator splits the "YYYY-MM-DD" roster birth field.
	BirthSeparator  = "-"
	BirthFieldCount = 3
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	ICalVersion   = "2.0"
	ICalProdid    = "-//Go Lunar Birthday//Engine//EN"
	ICalCalName   = "Lunar Birthdays"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "golunarbirthday"

	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDescription = "DESCRIPTION"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	VCardBDAY       = "BDAY"
	VCardLunarBDAY  = "X-LUNAR-BDAY"
	VCardLunarLeap  = "X-LUNAR-LEAP"
	VCardFN         = "FN"
	VCardParamScale = "CALSCALE"
	VCardScaleLunar = "chinese"

	DefaultICalRefresh = 1 * time.Hour

	UIDHashLength   = 16
	UIDSalt         = "go-lunar-birthday-v1-"
	FormatHashInput = "%s|%s|%s"
	FormatUID       = "%s-%d@%s"

	// StubVCalendar is the minimal valid iCalendar object used when no events are found.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Date Formats
// -----------------------------------------------------------------------------

const (
	DateFormatCompact = "%04d%02d%02d"
	DateFormatISO     = "%04d-%02d-%02d"
	// DateFormatDisplay keeps the unpadded form of the original message header (2024-2-10).
	DateFormatDisplay = "%d-%d-%d"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	DefaultNotifyWait   = 5 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 16 * 1024 * 1024
	MaxRosterFileSize   = 1 * 1024 * 1024
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	RouteRoot           = "/"
	RouteReport         = "/report"
	RouteHealth         = "/healthz"
	AddrSeparator       = ":"
	ChannelBufferSize   = 1
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeJSON            = "application/json"
	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeTextMarkdown    = "text/markdown; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyTitle      = "report_title"
	TKeyHeader     = "report_header"    // Requires Solar, Lunar
	TKeyPerson     = "report_person"    // Requires Name
	TKeyBirthAge   = "report_birth_age" // Requires Birth, Age
	TKeyCountdown  = "report_countdown" // Requires Days, plural
	TKeyLunarDate  = "lunar_date"       // Requires Year, Month, Day (+ numeric Y, M, D)
	TKeyLunarLeap  = "lunar_date_leap"  // Same as lunar_date for a leap month
	TKeyEvtSummary = "event_summary"    // Requires Name, Age
)

// SupportedLanguages lists the embedded report locales (ISO 639-1).
var SupportedLanguages = []string{"zh", "en"}

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrSettings        = "invalid settings"
	ErrTimezone        = "unknown time zone"
	ErrChannel         = "unsupported notification channel"
	ErrTelegramChat    = "telegram channel requires TELEGRAM_CHAT_ID"
	ErrNotifyURL       = "NOTIFY_URL must contain exactly one %s for the token"
	ErrLanguage        = "unsupported report language"
	ErrRosterMalformed = "malformed roster document"
	ErrBirthMalformed  = "malformed birth date"
	ErrNameMissing     = "roster entry has no name"
	ErrRosterRead      = "failed to read roster file"
	ErrLunarInvalid    = "invalid lunisolar date"
	ErrLunarConvert    = "calendar conversion failed"
	ErrDelivery        = "notification delivery failed"
	ErrDeliveryStatus  = "notification endpoint returned unexpected status"
	ErrInvalidURL      = "invalid URL structure"
	ErrProtocol        = "unsupported protocol scheme (http/https only)"
	ErrFetcherMissing  = "internal error: network fetcher is not initialized"
	ErrFetchRequest    = "failed to build vCard request"
	ErrFetchNetwork    = "network error during vCard fetch"
	ErrFetchStatus     = "address book server answered"
	ErrFetchTooLarge   = "vCard document exceeds size limit"
	ErrVCardParse      = "failed to parse vCard stream"
	ErrICalEncode      = "failed to encode iCalendar data"
	ErrServerStartup   = "server startup failed"
	ErrServerShutdown  = "server shutdown failed"
	ErrPortRequired    = "server port is required"
	ErrLocalesAccess   = "failed to access embedded locales"
	ErrLocaleLoad      = "failed to load locale file"
	ErrAppFailed       = "application failed unexpectedly"
	ErrKeyring         = "keyring operation failed"
	ErrTokenEmpty      = "token must not be empty"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Calendar initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Fallbacks & Log Messages
// -----------------------------------------------------------------------------

const (
	FallbackTitle     = "Lunar birthdays"
	FallbackLunarDate = "%d-%d-%d (lunar)"
	FallbackLeapDate  = "%d-L%d-%d (lunar)"
	FallbackSummary   = "Birthday: %s (%d)"
	FallbackName      = "Unknown"

	MsgAppStarting    = "Starting application"
	MsgAppStop        = "Application finished"
	MsgRosterLoaded   = "Roster loaded"
	MsgRosterSkip     = "Skipping roster entry"
	MsgRosterSource   = "Roster source unusable, contributing no entries"
	MsgSkippedCard    = "Skipping malformed vCard"
	MsgSkippedDate    = "Skipping vCard without lunar birthday"
	MsgEntryFailed    = "Skipping person, calendar conversion failed"
	MsgCalcDone       = "Birthday countdown computed"
	MsgBdayToday      = "Lunar birthday today"
	MsgNotifySkip     = "Notification skipped: token or content empty"
	MsgNotifySending  = "Sending notification"
	MsgNotifyStatus   = "Notification endpoint responded"
	MsgNotifyFailed   = "Notification delivery failed"
	MsgNotifyDone     = "Notification delivered"
	MsgPassFail       = "Keyring lookup failed (might be empty)"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgCacheUpdated   = "Feed cache updated"
	MsgWorkerStart    = "Refresh worker started"
	MsgWorkerStop     = "Refresh worker stopping"
	MsgRefreshFailed  = "Feed refresh failed"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgLocaleLoaded   = "Locale loaded successfully"
	MsgTransMissing   = "Missing translation key"
	MsgFetchStart     = "Initiating vCard download"
	MsgFetchBadStatus = "Server returned error status"
	MsgFetchDone      = "vCards downloaded"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeySource    = "source"
	LogKeyChannel   = "channel"
	LogKeyIndex     = "index"
	LogKeyName      = "name"
	LogKeyBirth     = "birth"
	LogKeyDays      = "days"
	LogKeyCount     = "count"
	LogKeyFailed    = "failed"
	LogKeyToday     = "today"
	LogKeyLunar     = "lunar_today"
	LogKeyInterval  = "interval"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyUser      = "user"
	LogKeyDuration  = "duration_ms"
	LogKeyVersion   = "version"
	LogKeyGoVer     = "go_version"
	LogKeyOS        = "os"
	LogKeyArch      = "arch"
	LogKeyPID       = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompMain     = "main"
	CompApp      = "app"
	CompRoster   = "roster"
	CompFetcher  = "fetcher"
	CompEngine   = "engine"
	CompNotifier = "notifier"
	CompServer   = "server"
	CompWorker   = "worker"
	CompI18n     = "i18n"
)
