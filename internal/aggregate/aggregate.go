// Package aggregate folds raw event sightings into aggregated outages.
// Power events sharing a grouping key merge their house numbers; free-text
// water/gas notices pass through one-to-one, fanned out per language.
package aggregate

import (
	"context"
	"log/slog"

	"OutageNotifier/internal/area"
	"OutageNotifier/internal/compose"
	"OutageNotifier/internal/domain"
	"OutageNotifier/internal/normalize"
	"OutageNotifier/internal/ports"
)

// Aggregator drives the dedup-to-outage stage of the pipeline.
type Aggregator struct {
	events     ports.EventStore
	outages    ports.OutageStore
	messages   ports.MessageStore
	areas      *area.Resolver
	translator ports.Translator
	composer   *compose.Composer
	langs      []domain.Language
	logger     *slog.Logger
}

// Deps wires the collaborating stores and capabilities.
type Deps struct {
	Events     ports.EventStore
	Outages    ports.OutageStore
	Messages   ports.MessageStore
	Areas      *area.Resolver
	Translator ports.Translator
	Composer   *compose.Composer
	Languages  []domain.Language
	Logger     *slog.Logger
}

// New constructs the aggregator.
func New(deps Deps) *Aggregator {
	return &Aggregator{
		events:     deps.Events,
		outages:    deps.Outages,
		messages:   deps.Messages,
		areas:      deps.Areas,
		translator: deps.Translator,
		composer:   deps.Composer,
		langs:      deps.Languages,
		logger:     deps.Logger,
	}
}

// ProcessPower merges unprocessed emergency power events into aggregated
// outages. Each group is one unit of work: the merge and the processed-flag
// flip commit together, so a crash between groups re-runs safely and the
// key's unique constraint makes re-runs converge instead of duplicating.
func (a *Aggregator) ProcessPower(ctx context.Context) error {
	events, err := a.events.UnprocessedEmergencyPower(ctx)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	groups := map[domain.OutageKey][]domain.RawEvent{}
	for _, e := range events {
		key := domain.OutageKey{
			StartTime: e.StartTime,
			Area:      e.Area,
			District:  e.District,
			Language:  e.Language,
			Type:      e.Type,
			Planned:   e.Planned,
		}
		groups[key] = append(groups[key], e)
	}

	var merged, failed int
	for key, group := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.mergeGroup(ctx, key, group); err != nil {
			a.logger.Error("outage merge failed",
				"area", key.Area, "district", key.District, "error", err)
			failed++
			continue
		}
		merged++
	}

	a.logger.Info("power aggregation cycle done",
		"events", len(events), "groups", len(groups), "merged", merged, "failed", failed)
	return nil
}

func (a *Aggregator) mergeGroup(ctx context.Context, key domain.OutageKey, group []domain.RawEvent) error {
	var houseNumbers []string
	eventIDs := make([]int64, 0, len(group))
	for _, e := range group {
		houseNumbers = normalize.MergeHouseNumbers(houseNumbers, normalize.SplitHouseNumbers(e.HouseNumbers))
		eventIDs = append(eventIDs, e.ID)
	}

	existing, err := a.outages.FindOutage(ctx, key)
	if err != nil {
		return err
	}
	if existing != nil {
		houseNumbers = normalize.MergeHouseNumbers(existing.HouseNumbers, houseNumbers)
		eventIDs = unionIDs(existing.EventIDs, eventIDs)
	}

	areaID, err := a.areas.Resolve(ctx, key.Area, key.Language)
	if err != nil {
		// An unresolved area never blocks the outage itself.
		a.logger.Warn("area resolution failed", "area", key.Area, "error", err)
		areaID = 0
	}

	return a.outages.MergeOutage(ctx, key, houseNumbers, eventIDs, areaID)
}

// ProcessBody passes unprocessed free-text events of one type through to
// the outbound queue, one message per supported language. Translation
// failures degrade to the original text; each event is its own unit of
// work so one bad record cannot block the rest.
func (a *Aggregator) ProcessBody(ctx context.Context, t domain.EventType) error {
	events, err := a.events.UnprocessedBodyEvents(ctx, t)
	if err != nil {
		return err
	}

	var queued, failed int
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return err
		}

		msgs := make([]domain.OutboundMessage, 0, len(a.langs))
		for _, lang := range a.langs {
			text := e.Text
			if lang != e.Language {
				translated, err := a.translator.Translate(ctx, e.Text, e.Language, lang)
				if err != nil {
					a.logger.Warn("body translation failed, using original text",
						"event", e.ID, "target", lang, "error", err)
				} else {
					text = translated
				}
			}

			m := a.composer.Single(e, lang, text)
			msgs = append(msgs, domain.OutboundMessage{
				Language: m.Language,
				Text:     m.Text,
				EventIDs: m.EventIDs,
			})
		}

		if err := a.messages.EnqueueEventMessages(ctx, []int64{e.ID}, msgs); err != nil {
			a.logger.Error("enqueue body messages failed", "event", e.ID, "error", err)
			failed++
			continue
		}
		queued++
	}

	if len(events) > 0 {
		a.logger.Info("body passthrough cycle done",
			"type", t, "events", len(events), "queued", queued, "failed", failed)
	}
	return nil
}

func unionIDs(existing, incoming []int64) []int64 {
	seen := make(map[int64]struct{}, len(existing)+len(incoming))
	union := make([]int64, 0, len(existing)+len(incoming))
	for _, list := range [][]int64{existing, incoming} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			union = append(union, id)
		}
	}
	return union
}
