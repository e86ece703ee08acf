// Package telegram adapts the telego Bot API client to gateway.Gateway.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hamed0406/uptimebot/internal/domain"
	"github.com/hamed0406/uptimebot/internal/gateway"
)

var _ gateway.Gateway = (*Client)(nil)

const DefaultAPIBase = "https://api.telegram.org"

type Config struct {
	APIBase string
	Token   string
	// Timeout bounds one request; long polls get LongPoll added on top.
	Timeout  time.Duration
	LongPoll time.Duration
	// SendRatePerSec caps sendMessage calls; <= 0 disables the limiter.
	SendRatePerSec float64
}

type Client struct {
	bot      *telego.Bot
	http     *http.Client
	token    string
	longPoll time.Duration
	limiter  *rate.Limiter
	log      *zap.Logger
}

// New fails only when the token is malformed; it does not call the API.
func New(cfg Config, log *zap.Logger) (*Client, error) {
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = DefaultAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	hc := &http.Client{Timeout: cfg.Timeout + cfg.LongPoll}

	bot, err := telego.NewBot(cfg.Token,
		telego.WithAPIServer(base),
		telego.WithHTTPClient(hc),
		telego.WithDiscardLogger(),
	)
	if err != nil {
		// telego's token errors never echo the token
		return nil, fmt.Errorf("telegram bot: %w", err)
	}

	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.SendRatePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.SendRatePerSec), 1)
	}
	return &Client{
		bot:      bot,
		http:     hc,
		token:    cfg.Token,
		longPoll: cfg.LongPoll,
		limiter:  lim,
		log:      log,
	}, nil
}

// FetchUpdates asks for updates after offset; Telegram's offset is inclusive.
func (c *Client) FetchUpdates(ctx context.Context, offset int64) ([]gateway.Update, error) {
	params := &telego.GetUpdatesParams{Offset: int(offset + 1)}
	if c.longPoll > 0 {
		params.Timeout = int(c.longPoll / time.Second)
	}
	ups, err := c.bot.GetUpdates(ctx, params)
	if err != nil {
		return nil, &domain.TransientNetworkError{Op: "getUpdates", Err: c.redact(err)}
	}
	out := make([]gateway.Update, 0, len(ups))
	for _, u := range ups {
		out = append(out, fromTelego(u))
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &domain.TransientNetworkError{Op: "sendMessage", Err: fmt.Errorf("rate limit wait: %w", err)}
	}
	_, err := c.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   text,
	})
	if err != nil {
		return &domain.TransientNetworkError{Op: "sendMessage", Err: c.redact(err)}
	}
	c.log.Debug("telegram_sent", zap.Int64("chat_id", chatID))
	return nil
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// fromTelego keeps the fields the command parser reads. A zero chat id means
// the update had no chat.
func fromTelego(u telego.Update) gateway.Update {
	out := gateway.Update{ID: int64(u.UpdateID)}
	m := u.Message
	if m == nil {
		return out
	}
	out.Message = &gateway.Message{Text: m.Text}
	if m.From != nil {
		out.Message.From = &gateway.User{
			ID:        m.From.ID,
			FirstName: m.From.FirstName,
			LastName:  m.From.LastName,
			Username:  m.From.Username,
		}
	}
	if m.Chat.ID != 0 {
		out.Message.Chat = &gateway.Chat{ID: m.Chat.ID}
	}
	return out
}

// redact strips the bot token, which transport errors carry in the request URL.
func (c *Client) redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		err = fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	if c.token != "" && strings.Contains(err.Error(), c.token) {
		return errors.New(strings.ReplaceAll(err.Error(), c.token, "<token>"))
	}
	return err
}
