// Package telegram delivers rendered messages through the Telegram bot API.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"OutageNotifier/internal/ports"
)

const defaultBaseURL = "https://api.telegram.org"

// Sender posts messages to Telegram channels via bot API.
type Sender struct {
	botToken string
	baseURL  string
	client   *http.Client
}

var _ ports.ChannelSender = (*Sender)(nil)

// NewSender registers the bot token.
func NewSender(botToken string) *Sender {
	return &Sender{
		botToken: botToken,
		baseURL:  defaultBaseURL,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// apiError is the error envelope of the bot API. Parameters carries the
// flow-control hint on 429 responses.
type apiError struct {
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Send posts one MarkdownV2 message to the channel. Rate limiting surfaces
// as *ports.RateLimitedError with the wait Telegram asked for; network and
// server-side failures surface as *ports.TransientError.
func (s *Sender) Send(ctx context.Context, channelID, text string) error {
	if s.botToken == "" || channelID == "" {
		return fmt.Errorf("telegram sender misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)
	form := url.Values{}
	form.Set("chat_id", channelID)
	form.Set("text", text)
	form.Set("parse_mode", "MarkdownV2")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return &ports.TransientError{Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode == http.StatusTooManyRequests {
		return &ports.RateLimitedError{RetryAfter: retryAfter(body)}
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return &ports.TransientError{Err: fmt.Errorf("telegram error: %s", resp.Status)}
	}
	return fmt.Errorf("telegram error: %s: %s", resp.Status, strings.TrimSpace(string(body)))
}

func retryAfter(body []byte) time.Duration {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil && e.Parameters.RetryAfter > 0 {
		return time.Duration(e.Parameters.RetryAfter) * time.Second
	}
	// Telegram did not say how long; a short fixed wait beats hammering.
	return 5 * time.Second
}
