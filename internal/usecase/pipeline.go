// Package usecase orchestrates the outage pipeline: ingestion, aggregation,
// message composition and retention, driven by recurring schedulers.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"OutageNotifier/internal/aggregate"
	"OutageNotifier/internal/compose"
	"OutageNotifier/internal/domain"
	"OutageNotifier/internal/ingest"
	"OutageNotifier/internal/ports"
)

// PipelineDeps wires the pipeline stages and their stores.
type PipelineDeps struct {
	Power      *ingest.PowerIngestor
	Bodies     map[domain.EventType]*ingest.BodyIngestor
	Aggregator *aggregate.Aggregator
	Events     ports.EventStore
	Outages    ports.OutageStore
	Messages   ports.MessageStore
	Composer   *compose.Composer
	Languages  []domain.Language
	Retention  time.Duration
	Logger     *slog.Logger
}

// Pipeline implements the recurring outage-processing workflow. Stages are
// independent: a failing stage is logged and the cycle moves on, because
// every stage re-derives its work queue from the store on the next run.
type Pipeline struct {
	power     *ingest.PowerIngestor
	bodies    map[domain.EventType]*ingest.BodyIngestor
	agg       *aggregate.Aggregator
	events    ports.EventStore
	outages   ports.OutageStore
	messages  ports.MessageStore
	composer  *compose.Composer
	langs     []domain.Language
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		power:     deps.Power,
		bodies:    deps.Bodies,
		agg:       deps.Aggregator,
		events:    deps.Events,
		outages:   deps.Outages,
		messages:  deps.Messages,
		composer:  deps.Composer,
		langs:     deps.Languages,
		retention: deps.Retention,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// IngestPower polls the structured power feed once.
func (p *Pipeline) IngestPower(ctx context.Context) error {
	if p.power == nil {
		return nil
	}
	return p.power.Run(ctx)
}

// IngestBody polls one free-text feed once.
func (p *Pipeline) IngestBody(ctx context.Context, t domain.EventType) error {
	ing, ok := p.bodies[t]
	if !ok {
		return fmt.Errorf("no ingestor for %s", t)
	}
	return ing.Run(ctx)
}

// Process runs the store-driven stages: aggregation, composition of armed
// outages into queued messages, and retention cleanup.
func (p *Pipeline) Process(ctx context.Context) error {
	if err := p.agg.ProcessPower(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		p.logger.Error("power aggregation failed", "error", err)
	}

	for t := range p.bodies {
		if err := p.agg.ProcessBody(ctx, t); err != nil {
			if ctx.Err() != nil {
				return err
			}
			p.logger.Error("body passthrough failed", "type", t, "error", err)
		}
	}

	if err := p.composeOutages(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		p.logger.Error("outage composition failed", "error", err)
	}

	p.purge(ctx)
	return ctx.Err()
}

// Cycle runs one full pass: every feed, then the processing stages. Used
// for one-shot runs; the schedulers drive the stages separately otherwise.
func (p *Pipeline) Cycle(ctx context.Context, _ time.Time) error {
	if err := p.IngestPower(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		p.logger.Error("power ingestion failed", "error", err)
	}
	for t := range p.bodies {
		if err := p.IngestBody(ctx, t); err != nil {
			if ctx.Err() != nil {
				return err
			}
			p.logger.Error("body ingestion failed", "type", t, "error", err)
		}
	}
	return p.Process(ctx)
}

// composeOutages renders armed outages per language and enqueues the
// resulting messages, clearing the resend flags in the same transaction.
func (p *Pipeline) composeOutages(ctx context.Context) error {
	for _, lang := range p.langs {
		outages, err := p.outages.OutagesNeedingSend(ctx, lang)
		if err != nil {
			return fmt.Errorf("load outages for %s: %w", lang, err)
		}
		if len(outages) == 0 {
			continue
		}

		rendered := p.composer.Grouped(outages)

		msgs := make([]domain.OutboundMessage, 0, len(rendered))
		var outageIDs []int64
		for _, m := range rendered {
			msgs = append(msgs, domain.OutboundMessage{
				Language: m.Language,
				Text:     m.Text,
				EventIDs: m.EventIDs,
			})
			outageIDs = append(outageIDs, m.OutageIDs...)
		}

		if err := p.messages.EnqueueOutageMessages(ctx, outageIDs, msgs); err != nil {
			return fmt.Errorf("enqueue outage messages for %s: %w", lang, err)
		}
		p.logger.Info("outage messages queued",
			"language", lang, "outages", len(outages), "messages", len(msgs))
	}
	return nil
}

func (p *Pipeline) purge(ctx context.Context) {
	if p.retention <= 0 {
		return
	}
	cutoff := p.now().Add(-p.retention)
	removed, err := p.events.PurgeProcessedBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("retention purge failed", "error", err)
		return
	}
	if removed > 0 {
		p.logger.Info("stale events purged", "removed", removed, "cutoff", cutoff)
	}
}
