package roster

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/tartampluch/go-lunar-birthday/internal/config"
)

// Credentials authenticate against a CardDAV-style address book.
// The zero value sends no Authorization header.
type Credentials struct {
	User string
	Pass string
}

func (c Credentials) empty() bool { return c.User == "" && c.Pass == "" }

// VCardFetcher retrieves a remote vCard document.
type VCardFetcher interface {
	Fetch(ctx context.Context, target string, cred Credentials) ([]byte, error)
}

// StatusError is returned when the server answers outside 2xx.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s", config.ErrFetchStatus, e.Status)
}

// HTTPFetcher downloads address books over HTTP(S).
type HTTPFetcher struct {
	Client   *http.Client
	Log      *zap.Logger
	MaxBytes int64
}

// NewHTTPFetcher returns a fetcher bounded by config.HTTPTimeout and
// config.MaxHTTPResponseSize.
func NewHTTPFetcher(log *zap.Logger) *HTTPFetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPFetcher{
		Client:   &http.Client{Timeout: config.HTTPTimeout},
		Log:      log,
		MaxBytes: config.MaxHTTPResponseSize,
	}
}

// Fetch returns the whole document. Only scheme, host and path are logged:
// address book links often carry tokens in the query string.
func (f *HTTPFetcher) Fetch(ctx context.Context, target string, cred Credentials) ([]byte, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	switch u.Scheme {
	case config.SchemeHTTP, config.SchemeHTTPS:
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrProtocol, u.Scheme)
	}

	log := f.Log.With(
		zap.String(config.LogKeyComponent, config.CompFetcher),
		zap.String(config.LogKeyURL, (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}).String()),
	)
	if !cred.empty() {
		log = log.With(zap.String(config.LogKeyUser, cred.User))
	}
	log.Debug(config.MsgFetchStart)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFetchRequest, err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	if !cred.empty() {
		req.SetBasicAuth(cred.User, cred.Pass)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFetchNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn(config.MsgFetchBadStatus, zap.Int(config.LogKeyStatus, resp.StatusCode))
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = config.MaxHTTPResponseSize
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFetchNetwork, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s: %d bytes", config.ErrFetchTooLarge, limit)
	}

	log.Debug(config.MsgFetchDone, zap.Int(config.LogKeySizeBytes, len(data)))
	return data, nil
}
