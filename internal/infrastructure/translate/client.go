// Package translate maps notice text between the supported languages using
// an external translation API, fronted by a Redis cache so repeated notices
// do not burn quota.
package translate

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"OutageNotifier/internal/domain"
	"OutageNotifier/internal/ports"
)

// Client calls a LibreTranslate-compatible endpoint.
type Client struct {
	http *resty.Client
}

var _ ports.Translator = (*Client)(nil)

// NewClient configures the HTTP client for the given endpoint.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	http := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	if apiKey != "" {
		http.SetQueryParam("api_key", apiKey)
	}
	return &Client{http: http}
}

type translateRequest struct {
	Text   string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate converts text from one language to another. Same-language calls
// short-circuit without a network round trip.
func (c *Client) Translate(ctx context.Context, text string, from, to domain.Language) (string, error) {
	if from == to || text == "" {
		return text, nil
	}

	var out translateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(translateRequest{Text: text, Source: string(from), Target: string(to)}).
		SetResult(&out).
		Post("/translate")
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("translate %s to %s: %s", from, to, resp.Status())
	}
	if out.TranslatedText == "" {
		return "", fmt.Errorf("translate %s to %s: empty response", from, to)
	}
	return out.TranslatedText, nil
}
