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

const powerTableSelector = "table#ctl00_ContentPlaceHolder1_vtarayin"

// PowerScraper crawls the electricity provider's emergency-outage table.
// The page exists per language; the URL template takes the numeric
// language code.
type PowerScraper struct {
	client      *http.Client
	urlTemplate string
}

var _ ports.SourceFeed = (*PowerScraper)(nil)

// NewPowerScraper wires an HTTP client; urlTemplate must contain one %d verb.
func NewPowerScraper(client *http.Client, urlTemplate string) *PowerScraper {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &PowerScraper{client: client, urlTemplate: urlTemplate}
}

// Type identifies the feed inside the registry.
func (s *PowerScraper) Type() domain.EventType {
	return domain.EventPower
}

// Fetch returns one row per table entry: column 0 is the start time,
// column 1 the free-text address.
func (s *PowerScraper) Fetch(ctx context.Context, lang domain.Language) ([]ports.SourceRow, error) {
	pageURL := fmt.Sprintf(s.urlTemplate, lang.Code())

	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	table := doc.Find(powerTableSelector)
	if table.Length() == 0 {
		return nil, fmt.Errorf("outage table not found at %s", pageURL)
	}

	var rows []ports.SourceRow
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		rows = append(rows, ports.SourceRow{
			StartTime: strings.TrimSpace(cells.Eq(0).Text()),
			Address:   strings.TrimSpace(cells.Eq(1).Text()),
		})
	})

	return rows, nil
}

func (s *PowerScraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
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

	return doc, nil
}
