package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rileyhilliard/nekowatch/internal/errors"
	"golang.org/x/time/rate"
)

// DefaultTelegramAPI is the public Bot API endpoint.
const DefaultTelegramAPI = "https://api.telegram.org"

// TelegramConfig configures a Telegram bot sink.
type TelegramConfig struct {
	APIBase string
	Token   string
	ChatID  string
	// Rate is messages per second, Burst the bucket size.
	Rate  float64
	Burst int
}

// Telegram sends notifications through the Bot API sendMessage method.
type Telegram struct {
	cfg     TelegramConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewTelegram creates a Telegram sink. A nil client gets a 10s timeout client.
func NewTelegram(cfg TelegramConfig, client *http.Client) *Telegram {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultTelegramAPI
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Telegram{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
	}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) Notify(ctx context.Context, msg string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return errors.WrapWithCode(err, errors.ErrAgent, "Telegram rate limit wait aborted", "")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.cfg.APIBase, "/"), t.cfg.Token)
	form := url.Values{"chat_id": {t.cfg.ChatID}, "text": {msg}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrAgent, "Failed to build Telegram request", "")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrAgent, "Telegram request failed", "")
	}
	defer resp.Body.Close()

	var body telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return errors.WrapWithCode(err, errors.ErrAgent,
			fmt.Sprintf("Telegram returned unreadable response (HTTP %d)", resp.StatusCode), "")
	}
	if !body.OK {
		return errors.New(errors.ErrAgent,
			fmt.Sprintf("Telegram rejected message: %s", body.Description),
			"Check notify.telegram.token and notify.telegram.chat_id")
	}
	return nil
}
