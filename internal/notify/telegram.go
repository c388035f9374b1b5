package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"jobwatch/internal/logger"
)

const (
	DefaultTelegramBaseURL = "https://api.telegram.org"
	defaultTimeout         = 10 * time.Second
)

type TelegramConfig struct {
	BaseURL string
	Token   string
	ChatID  string
	Timeout time.Duration

	// MinInterval spaces consecutive sends; Telegram throttles bursts to one chat.
	MinInterval time.Duration
}

type Telegram struct {
	cfg     TelegramConfig
	client  *resty.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

// sendMessage response envelope from the Bot API.
type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	ErrorCode   int    `json:"error_code"`
}

func NewTelegram(cfg TelegramConfig, log *logger.Logger) *Telegram {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTelegramBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.ChatID = strings.TrimSpace(cfg.ChatID)

	log = log.Component("telegram")

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetLogger(restyLogger{log: log, secret: cfg.Token}).
		SetHeader("User-Agent", "jobwatch/1.0")

	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.MinInterval > 0 {
		lim = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}

	return &Telegram{cfg: cfg, client: client, limiter: lim, log: log}
}

// Validate reports missing credentials without touching the network.
func (t *Telegram) Validate() error {
	if t.cfg.Token == "" {
		return &Error{Kind: KindMissingConfig, Err: ErrMissingToken}
	}
	if t.cfg.ChatID == "" {
		return &Error{Kind: KindMissingConfig, Err: ErrMissingChatID}
	}
	return nil
}

func (t *Telegram) Notify(ctx context.Context, msg Message) error {
	if err := t.Validate(); err != nil {
		return err
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return &Error{Kind: classifyTransport(err), Err: err}
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"chat_id":                  t.cfg.ChatID,
			"text":                     FormatMessage(msg),
			"disable_web_page_preview": "false",
		}).
		Post("/bot" + t.cfg.Token + "/sendMessage")
	if err != nil {
		return &Error{Kind: classifyTransport(err), Err: redact(err, t.cfg.Token)}
	}

	body := resp.Body()
	if resp.IsError() {
		return &Error{
			Kind:       KindHTTP,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("telegram returned %s: %s", resp.Status(), snippet(body, 300)),
		}
	}

	var out telegramResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return &Error{Kind: KindMalformed, StatusCode: resp.StatusCode(), Err: fmt.Errorf("decode sendMessage response: %w", err)}
	}
	if !out.OK {
		desc := out.Description
		if desc == "" {
			desc = "unknown Telegram API error"
		}
		return &Error{Kind: KindAPI, StatusCode: resp.StatusCode(), Err: errors.New(desc)}
	}

	t.log.Info("sent message", "title", msg.Title, "company", msg.Company)
	return nil
}

func snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// restyLogger routes resty's internal messages through our logger.
type restyLogger struct {
	log    *logger.Logger
	secret string
}

func (l restyLogger) Errorf(format string, v ...any) { l.debug(format, v...) }
func (l restyLogger) Warnf(format string, v ...any)  { l.debug(format, v...) }
func (l restyLogger) Debugf(format string, v ...any) { l.debug(format, v...) }

func (l restyLogger) debug(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	if l.secret != "" {
		msg = strings.ReplaceAll(msg, l.secret, "<redacted>")
	}
	l.log.Debug(msg, "source", "resty")
}
