package scrape

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"OutageNotifier/internal/domain"
	"OutageNotifier/internal/ports"
)

// plannedMarker appears in headings of scheduled (non-emergency) notices.
const plannedMarker = "Պլանային"

// PanelScraper reads free-text announcement panels, the layout shared by
// the water and gas providers. Panels are published newest-first and carry
// no structured address fields; the body text is the whole payload.
type PanelScraper struct {
	client    *http.Client
	pageURL   string
	eventType domain.EventType
}

var _ ports.SourceFeed = (*PanelScraper)(nil)

// NewPanelScraper wires an HTTP client for one provider page.
func NewPanelScraper(client *http.Client, pageURL string, t domain.EventType) *PanelScraper {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &PanelScraper{client: client, pageURL: pageURL, eventType: t}
}

// Type identifies the feed inside the registry.
func (s *PanelScraper) Type() domain.EventType {
	return s.eventType
}

// Fetch returns one row per panel, newest first, heading and body joined.
// The provider publishes in the source language only, so lang is ignored.
func (s *PanelScraper) Fetch(ctx context.Context, _ domain.Language) ([]ports.SourceRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "OutageNotifier/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	var rows []ports.SourceRow
	doc.Find("div.panel").Each(func(_ int, panel *goquery.Selection) {
		heading := strings.TrimSpace(panel.Find("div.panel-heading").Text())
		body := strings.TrimSpace(panel.Find("div.panel-body").Text())
		text := strings.TrimSpace(heading + " " + body)
		if text == "" {
			return
		}
		rows = append(rows, ports.SourceRow{
			Body:    text,
			Planned: strings.Contains(heading, plannedMarker),
		})
	})

	return rows, nil
}
