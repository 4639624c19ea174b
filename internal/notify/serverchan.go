package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/tartampluch/go-lunar-birthday/internal/config"
)

// ServerChan posts to a ServerChan-compatible endpoint. The token is spliced
// into URLTemplate and also sent in the body.
type ServerChan struct {
	URLTemplate string
	Client      *http.Client
	Log         *zap.Logger
}

// NewServerChan returns a dispatcher for urlTemplate, e.g. "https://sctapi.ftqq.com/%s.send".
func NewServerChan(urlTemplate string, log *zap.Logger) *ServerChan {
	if urlTemplate == "" {
		urlTemplate = config.DefaultNotifyURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ServerChan{
		URLTemplate: urlTemplate,
		Client:      &http.Client{Timeout: config.HTTPTimeout},
		Log:         log.With(zap.String(config.LogKeyComponent, config.CompNotifier), zap.String(config.LogKeyChannel, config.ChannelServerChan)),
	}
}

type serverChanRequest struct {
	Token string `json:"token"`
	Title string `json:"title"`
	Desp  string `json:"desp"`
}

// Send delivers p. Any non-2xx status is a DeliveryError.
func (s *ServerChan) Send(ctx context.Context, p Payload, token string) error {
	if skip(s.Log, p, token) {
		return nil
	}

	target := fmt.Sprintf(s.URLTemplate, url.PathEscape(token))
	u, err := url.Parse(target)
	if err != nil {
		return &DeliveryError{Channel: config.ChannelServerChan, Err: fmt.Errorf("%s: %w", config.ErrInvalidURL, err)}
	}
	// The path carries the token.
	log := s.Log.With(zap.String(config.LogKeyURL, u.Scheme+"://"+u.Host))

	body, err := json.Marshal(serverChanRequest{Token: token, Title: p.Title, Desp: p.Body})
	if err != nil {
		return &DeliveryError{Channel: config.ChannelServerChan, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Channel: config.ChannelServerChan, Err: err}
	}
	req.Header.Set(config.HeaderContentType, config.MimeJSON)
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)

	log.Info(config.MsgNotifySending)
	resp, err := s.Client.Do(req)
	if err != nil {
		return &DeliveryError{Channel: config.ChannelServerChan, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, config.MaxHTTPResponseSize))

	log.Info(config.MsgNotifyStatus, zap.Int(config.LogKeyStatus, resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DeliveryError{
			Channel:    config.ChannelServerChan,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s: %s", config.ErrDeliveryStatus, resp.Status),
		}
	}
	return nil
}
