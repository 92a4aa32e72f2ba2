package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	apperrors "TailHedge/internal/errors"
	"TailHedge/internal/market"
)

const defaultAPIURL = "https://api.telegram.org"

// Notifier delivers a finished report.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	BaseURL  string
	Client   *http.Client

	retrier *market.Retrier
	log     zerolog.Logger
}

// NewTelegramNotifier creates a notifier with optional proxy support.
// Failed sends are retried with the given retrier.
func NewTelegramNotifier(botToken, chatID, proxyURL string, retrier *market.Retrier, logger zerolog.Logger) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		BaseURL:  defaultAPIURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		retrier: retrier,
		log:     logger.With().Str("component", "telegram").Logger(),
	}
}

func (t *TelegramNotifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.BaseURL, t.BotToken, method)
}

// Send sends a message to the configured chat. Failures are classified so
// rate limits and transport errors can be retried.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id": t.ChatID,
		"text":    text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperrors.NewFetchError(apperrors.KindTransport, "telegram", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		kind := apperrors.KindOther
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			kind = apperrors.KindRateLimited
		case resp.StatusCode >= http.StatusInternalServerError:
			kind = apperrors.KindTransport
		}
		return apperrors.NewFetchError(kind, "telegram",
			fmt.Errorf("status %d, body: %s", resp.StatusCode, string(respBody)))
	}
	return nil
}

// Notify sends text, retrying rate limits and transport failures.
func (t *TelegramNotifier) Notify(ctx context.Context, text string) error {
	if t.retrier == nil {
		return t.Send(ctx, text)
	}
	_, err := market.Retry(ctx, t.retrier, "telegram.send", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.Send(ctx, text)
	})
	if err != nil {
		return fmt.Errorf("telegram notify: %w", err)
	}
	return nil
}
