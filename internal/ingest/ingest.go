// Package ingest turns scraped source rows into deduplicated raw events.
// Scraping is not idempotent — every poll returns mostly rows we have seen
// before — so the content hash plus the store's unique constraint is the
// sole idempotence guarantee.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"OutageNotifier/internal/domain"
	"OutageNotifier/internal/identity"
	"OutageNotifier/internal/normalize"
	"OutageNotifier/internal/ports"
)

const startTimeLayout = "02.01.2006 15:04"

// maxEventAge filters stale rows the provider keeps listing.
const maxEventAge = 24 * time.Hour

// PowerIngestor ingests the structured emergency power feed for every
// supported language.
type PowerIngestor struct {
	feed   ports.SourceFeed
	store  ports.EventStore
	langs  []domain.Language
	logger *slog.Logger
	now    func() time.Time
}

// NewPowerIngestor wires the power feed with the event store.
func NewPowerIngestor(feed ports.SourceFeed, store ports.EventStore, langs []domain.Language, logger *slog.Logger) *PowerIngestor {
	return &PowerIngestor{
		feed:   feed,
		store:  store,
		langs:  langs,
		logger: logger,
		now:    time.Now,
	}
}

// Run polls the feed once per language and stores unseen sightings. A
// failing language poll is logged and skipped; it never aborts the others.
func (i *PowerIngestor) Run(ctx context.Context) error {
	for _, lang := range i.langs {
		if err := ctx.Err(); err != nil {
			return err
		}

		rows, err := i.feed.Fetch(ctx, lang)
		if err != nil {
			i.logger.Error("power feed fetch failed", "language", lang, "error", err)
			continue
		}

		var inserted, duplicates, stale, blank int
		for _, row := range rows {
			switch i.ingestRow(ctx, lang, row) {
			case rowInserted:
				inserted++
			case rowDuplicate:
				duplicates++
			case rowStale:
				stale++
			case rowBlank:
				blank++
			}
		}

		i.logger.Info("power ingestion cycle done",
			"language", lang, "rows", len(rows),
			"inserted", inserted, "duplicates", duplicates, "stale", stale, "blank", blank)
	}
	return nil
}

type rowOutcome int

const (
	rowInserted rowOutcome = iota
	rowDuplicate
	rowStale
	rowBlank
	rowFailed
)

func (i *PowerIngestor) ingestRow(ctx context.Context, lang domain.Language, row ports.SourceRow) rowOutcome {
	startTime := normalize.Field(row.StartTime)
	if !i.fresh(startTime) {
		return rowStale
	}

	// A blank address carries nothing to aggregate on or notify about, so
	// it is counted and dropped here instead of sitting unprocessed in the
	// store forever.
	address := normalize.Field(row.Address)
	if address == "" {
		i.logger.Warn("blank address, skipping row", "start_time", startTime)
		return rowBlank
	}

	// A malformed address still yields an event with the whole string as
	// the area; a real outage notice is never dropped for parse reasons.
	area, district, houseNumbers := normalize.SplitAddress(address)

	event := &domain.RawEvent{
		Type:         domain.EventPower,
		Language:     lang,
		Area:         area,
		District:     district,
		HouseNumbers: houseNumbers,
		StartTime:    startTime,
		Planned:      false,
		Hash: identity.EventHash(
			domain.EventPower, area, district, houseNumbers, startTime, lang, false),
		FirstSeen: i.now(),
	}

	ok, err := i.store.InsertRawEvent(ctx, event)
	if err != nil {
		i.logger.Error("insert raw event failed", "hash", event.Hash, "error", err)
		return rowFailed
	}
	if !ok {
		i.logger.Debug("duplicate sighting", "hash", event.Hash, "area", area)
		return rowDuplicate
	}
	return rowInserted
}

func (i *PowerIngestor) fresh(startTime string) bool {
	parsed, err := time.ParseInLocation(startTimeLayout, startTime, time.Local)
	if err != nil {
		i.logger.Warn("unparseable start time, skipping row", "start_time", startTime)
		return false
	}
	return i.now().Sub(parsed) <= maxEventAge
}

// BodyIngestor ingests free-text announcement feeds (water, gas). Panels
// arrive newest-first; scanning stops at the first already-seen panel and
// the remainder is stored oldest-first so ids follow publication order.
type BodyIngestor struct {
	feed   ports.SourceFeed
	store  ports.EventStore
	logger *slog.Logger
	now    func() time.Time
}

// NewBodyIngestor wires a free-text feed with the event store.
func NewBodyIngestor(feed ports.SourceFeed, store ports.EventStore, logger *slog.Logger) *BodyIngestor {
	return &BodyIngestor{feed: feed, store: store, logger: logger, now: time.Now}
}

// Run polls the feed once and stores unseen notices in the source language.
func (i *BodyIngestor) Run(ctx context.Context) error {
	rows, err := i.feed.Fetch(ctx, domain.LangHY)
	if err != nil {
		i.logger.Error("body feed fetch failed", "type", i.feed.Type(), "error", err)
		return nil
	}

	var fresh []*domain.RawEvent
	for _, row := range rows {
		hash := identity.TextHash(row.Body)

		seen, err := i.store.HasEventHash(ctx, hash)
		if err != nil {
			i.logger.Error("hash lookup failed", "hash", hash, "error", err)
			break
		}
		if seen {
			i.logger.Debug("known notice reached, stopping scan", "hash", hash)
			break
		}

		fresh = append(fresh, &domain.RawEvent{
			Type:      i.feed.Type(),
			Language:  domain.LangHY,
			Text:      row.Body,
			Planned:   row.Planned,
			Hash:      hash,
			FirstSeen: i.now(),
		})
	}

	// Oldest first, so storage order matches publication order.
	var inserted int
	for idx := len(fresh) - 1; idx >= 0; idx-- {
		ok, err := i.store.InsertRawEvent(ctx, fresh[idx])
		if err != nil {
			i.logger.Error("insert raw event failed", "hash", fresh[idx].Hash, "error", err)
			continue
		}
		if ok {
			inserted++
		}
	}

	i.logger.Info("body ingestion cycle done",
		"type", i.feed.Type(), "rows", len(rows), "inserted", inserted)
	return nil
}
