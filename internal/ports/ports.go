package ports

import (
	"context"
	"fmt"
	"time"

	"OutageNotifier/internal/domain"
)

// SourceRow is one untyped row scraped from a provider page. Power feeds
// fill StartTime and Address; water/gas feeds fill Body and Planned.
type SourceRow struct {
	StartTime string
	Address   string
	Body      string
	Planned   bool
}

// SourceFeed pulls raw outage rows for one utility type.
type SourceFeed interface {
	Type() domain.EventType
	Fetch(ctx context.Context, lang domain.Language) ([]SourceRow, error)
}

// Translator maps text between supported languages. Implementations are
// fallible and slow; callers degrade to the original text on error.
type Translator interface {
	Translate(ctx context.Context, text string, from, to domain.Language) (string, error)
}

// ChannelSender delivers a rendered message to a channel. A nil error means
// the message was accepted; rate limiting and transport failures surface as
// *RateLimitedError and *TransientError, anything else is fatal for the
// message being sent.
type ChannelSender interface {
	Send(ctx context.Context, channelID, text string) error
}

// RateLimitedError carries the flow-control signal from the transport.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// TransientError marks a network-class failure worth retrying on the next
// scheduling cycle.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient delivery failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// EventStore persists raw event sightings with hash-based dedup.
type EventStore interface {
	// InsertRawEvent stores the event unless its hash is already known.
	// A dedup hit returns (false, nil), not an error.
	InsertRawEvent(ctx context.Context, e *domain.RawEvent) (bool, error)
	// HasEventHash reports whether a sighting with this hash exists.
	HasEventHash(ctx context.Context, hash string) (bool, error)
	// UnprocessedEmergencyPower lists unplanned power events awaiting
	// aggregation that carry at least one address component.
	UnprocessedEmergencyPower(ctx context.Context) ([]domain.RawEvent, error)
	// UnprocessedBodyEvents lists unprocessed free-text events of the given
	// type in the source language.
	UnprocessedBodyEvents(ctx context.Context, t domain.EventType) ([]domain.RawEvent, error)
	// PurgeProcessedBefore removes processed events older than cutoff whose
	// derived messages have all been sent. Returns rows removed.
	PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OutageStore persists aggregated outages keyed by their OutageKey.
type OutageStore interface {
	FindOutage(ctx context.Context, key domain.OutageKey) (*domain.AggregatedOutage, error)
	// MergeOutage upserts the outage for key with the already-merged house
	// numbers and event ids, re-arms its resend flag, and marks the listed
	// raw events processed, all in one transaction.
	MergeOutage(ctx context.Context, key domain.OutageKey, houseNumbers []string, eventIDs []int64, areaID int64) error
	// OutagesNeedingSend lists outages whose resend flag is armed, for one
	// language, ordered by start time.
	OutagesNeedingSend(ctx context.Context, lang domain.Language) ([]domain.AggregatedOutage, error)
}

// AreaStore persists canonical language-scoped area names.
type AreaStore interface {
	FindArea(ctx context.Context, name string, lang domain.Language) (*domain.Area, error)
	// CreateArea inserts the area or, on a concurrent insert of the same
	// (name, language), fetches the winner. The bool reports whether this
	// call created the row.
	CreateArea(ctx context.Context, name string, lang domain.Language) (*domain.Area, bool, error)
}

// MessageStore is the durable outbound queue.
type MessageStore interface {
	// EnqueueOutageMessages inserts the rendered messages and clears the
	// resend flag of the covered outages in one transaction.
	EnqueueOutageMessages(ctx context.Context, outageIDs []int64, msgs []domain.OutboundMessage) error
	// EnqueueEventMessages inserts the rendered messages and marks the
	// covered raw events processed in one transaction.
	EnqueueEventMessages(ctx context.Context, eventIDs []int64, msgs []domain.OutboundMessage) error
	// PendingMessages lists unsent, non-failed messages FIFO by creation
	// time.
	PendingMessages(ctx context.Context, limit int) ([]domain.OutboundMessage, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	// MarkFailed quarantines a message the transport fatally rejected so
	// it leaves the pending scan instead of being re-sent every cycle.
	MarkFailed(ctx context.Context, id int64, at time.Time) error
}

// Scheduler controls when recurring pipeline tasks execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
