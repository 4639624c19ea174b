// Package notify delivers the rendered report to a push channel.
package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tartampluch/go-lunar-birthday/internal/config"
)

// Payload is one notification.
type Payload struct {
	Title string
	Body  string
}

// Empty reports whether there is nothing to send.
func (p Payload) Empty() bool {
	return strings.TrimSpace(p.Title) == "" && strings.TrimSpace(p.Body) == ""
}

// Dispatcher sends a payload authenticated by token. An empty token or an
// empty payload is a no-op that returns nil.
type Dispatcher interface {
	Send(ctx context.Context, p Payload, token string) error
}

// DeliveryError reports a failed or rejected delivery. Callers log it;
// it never aborts a run.
type DeliveryError struct {
	Channel    string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%s, status %d): %v", config.ErrDelivery, e.Channel, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", config.ErrDelivery, e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// New returns the dispatcher selected by settings.NotifyChannel.
func New(s config.Settings, log *zap.Logger) (Dispatcher, error) {
	switch s.NotifyChannel {
	case config.ChannelServerChan, "":
		return NewServerChan(s.NotifyURL, log), nil
	case config.ChannelTelegram:
		return NewTelegram(s.TelegramChatID, s.TelegramAPIBase, log), nil
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrChannel, s.NotifyChannel)
	}
}

func skip(log *zap.Logger, p Payload, token string) bool {
	if token == "" || p.Empty() {
		log.Info(config.MsgNotifySkip)
		return true
	}
	return false
}
