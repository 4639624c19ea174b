package notify

import (
	"context"
	"errors"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/tartampluch/go-lunar-birthday/internal/config"
)

// Telegram sends the report as a plain text message from a bot. The token
// passed to Send is the bot token.
type Telegram struct {
	ChatID   int64
	Endpoint string // tgbotapi.APIEndpoint when empty
	Client   *http.Client
	Log      *zap.Logger
}

// NewTelegram returns a dispatcher posting to chatID.
func NewTelegram(chatID int64, endpoint string, log *zap.Logger) *Telegram {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Telegram{
		ChatID:   chatID,
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: config.HTTPTimeout},
		Log:      log.With(zap.String(config.LogKeyComponent, config.CompNotifier), zap.String(config.LogKeyChannel, config.ChannelTelegram)),
	}
}

// ctxClient binds every bot API request to ctx, since tgbotapi builds
// requests without one.
type ctxClient struct {
	ctx    context.Context
	client *http.Client
}

func (c ctxClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}

// Send delivers p. API errors carry Telegram's error code as StatusCode.
func (t *Telegram) Send(ctx context.Context, p Payload, token string) error {
	if skip(t.Log, p, token) {
		return nil
	}

	t.Log.Info(config.MsgNotifySending)
	bot, err := tgbotapi.NewBotAPIWithClient(token, t.Endpoint, ctxClient{ctx: ctx, client: t.Client})
	if err != nil {
		return t.deliveryError(err)
	}

	text := p.Title
	if p.Body != "" {
		text += "\n\n" + p.Body
	}
	if _, err := bot.Send(tgbotapi.NewMessage(t.ChatID, text)); err != nil {
		return t.deliveryError(err)
	}
	t.Log.Info(config.MsgNotifyStatus, zap.Int(config.LogKeyStatus, http.StatusOK))
	return nil
}

func (t *Telegram) deliveryError(err error) error {
	de := &DeliveryError{Channel: config.ChannelTelegram, Err: err}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		de.StatusCode = apiErr.Code
	}
	return de
}
