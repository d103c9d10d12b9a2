// Package command handles remote control of the bot over Telegram.
package command

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"marlin/internal/logger"

	"github.com/tidwall/gjson"
)

// Hooks are the only operations remote commands may perform. Status-style
// hooks return display text from read-only snapshots; Pause and Resume flip
// the trader's pause flag and nothing else.
type Hooks struct {
	Status   func() string
	Balance  func() string
	Daily    func() string
	Position func() string
	Pause    func() string
	Resume   func() string
}

// Config wires the Telegram poller.
type Config struct {
	BotToken     string
	ChatID       string
	BaseURL      string
	PollTimeout  time.Duration
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.telegram.org"
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 25 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	return c
}

// Poller long-polls Telegram's getUpdates and dispatches /commands to the
// hooks. Messages from any chat other than the configured one are ignored.
type Poller struct {
	cfg    Config
	hooks  Hooks
	client *http.Client
	offset int64
}

func NewPoller(cfg Config, hooks Hooks) (*Poller, error) {
	final := cfg.withDefaults()
	if final.BotToken == "" || final.ChatID == "" {
		return nil, fmt.Errorf("command poller requires bot token and chat id")
	}
	return &Poller{
		cfg:    final,
		hooks:  hooks,
		client: &http.Client{Timeout: final.PollTimeout + 10*time.Second},
	}, nil
}

// Run polls until ctx is canceled. Transient errors are logged and retried.
func (p *Poller) Run(ctx context.Context) error {
	logger.Infof("command: telegram poller started for chat %s", p.cfg.ChatID)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := p.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warnf("command: polling failed: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(5 * time.Second):
			}
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.cfg.PollInterval):
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) error {
	q := url.Values{}
	q.Set("timeout", strconv.Itoa(int(p.cfg.PollTimeout.Seconds())))
	if p.offset > 0 {
		q.Set("offset", strconv.FormatInt(p.offset, 10))
	}
	endpoint := fmt.Sprintf("%s/bot%s/getUpdates?%s", p.cfg.BaseURL, p.cfg.BotToken, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("telegram getUpdates status=%d", resp.StatusCode)
	}

	doc := gjson.ParseBytes(body)
	if !doc.Get("ok").Bool() {
		return fmt.Errorf("telegram getUpdates not ok: %s", doc.Get("description").String())
	}
	for _, update := range doc.Get("result").Array() {
		p.offset = update.Get("update_id").Int() + 1
		chatID := update.Get("message.chat.id").String()
		text := update.Get("message.text").String()
		if text == "" {
			continue
		}
		if chatID != p.cfg.ChatID {
			logger.Warnf("command: ignoring %q from unauthorized chat %s", text, chatID)
			continue
		}
		if reply := p.dispatch(text); reply != "" {
			p.sendReply(ctx, reply)
		}
	}
	return nil
}

func (p *Poller) dispatch(text string) string {
	run := func(hook func() string) string {
		if hook == nil {
			return "command not available"
		}
		return hook()
	}
	switch text {
	case "/status":
		return run(p.hooks.Status)
	case "/balance":
		return run(p.hooks.Balance)
	case "/daily":
		return run(p.hooks.Daily)
	case "/position":
		return run(p.hooks.Position)
	case "/pause":
		return run(p.hooks.Pause)
	case "/resume":
		return run(p.hooks.Resume)
	case "/help", "/start":
		return "Commands: /status /balance /daily /position /pause /resume"
	default:
		logger.Debugf("command: unknown command %q", text)
		return ""
	}
}

func (p *Poller) sendReply(ctx context.Context, text string) {
	q := url.Values{}
	q.Set("chat_id", p.cfg.ChatID)
	q.Set("text", text)
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage?%s", p.cfg.BaseURL, p.cfg.BotToken, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return
	}
	resp, err := p.client.Do(req)
	if err != nil {
		logger.Warnf("command: sending reply failed: %v", err)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
