package domain

import "time"

// EventType enumerates the utility services a notice can refer to.
type EventType string

const (
	EventPower EventType = "power"
	EventWater EventType = "water"
	EventGas   EventType = "gas"
)

// Language identifies one of the supported announcement languages.
type Language string

const (
	LangHY Language = "hy"
	LangRU Language = "ru"
	LangEN Language = "en"
)

// Code maps a language to the numeric code used by provider URLs.
func (l Language) Code() int {
	switch l {
	case LangHY:
		return 1
	case LangEN:
		return 2
	case LangRU:
		return 3
	}
	return 0
}

// RawEvent is one ingested sighting of an outage notice. String fields use
// the empty string for absent values; the same convention feeds hashing.
type RawEvent struct {
	ID           int64
	Type         EventType
	Language     Language
	Area         string
	District     string
	HouseNumbers string
	StartTime    string
	EndTime      string
	Text         string
	Planned      bool
	Hash         string
	Processed    bool
	FirstSeen    time.Time
}

// OutageKey is the grouping identity of an aggregated outage.
type OutageKey struct {
	StartTime string
	Area      string
	District  string
	Language  Language
	Type      EventType
	Planned   bool
}

// AggregatedOutage is the merged view of one real-world outage. Exactly one
// row exists per OutageKey; re-ingestion extends HouseNumbers and EventIDs
// and re-arms NeedsResend.
type AggregatedOutage struct {
	ID           int64
	StartTime    string
	Area         string
	District     string
	Language     Language
	Type         EventType
	Planned      bool
	HouseNumbers []string
	EventIDs     []int64
	AreaID       int64
	NeedsResend  bool
	UpdatedAt    time.Time
}

// Key returns the grouping identity of the outage.
func (o AggregatedOutage) Key() OutageKey {
	return OutageKey{
		StartTime: o.StartTime,
		Area:      o.Area,
		District:  o.District,
		Language:  o.Language,
		Type:      o.Type,
		Planned:   o.Planned,
	}
}

// Area is a canonical place name scoped by language. Names are immutable
// once created so issued notifications keep referring to the same entity.
type Area struct {
	ID       int64
	Name     string
	Language Language
}

// OutboundMessage is a rendered, size-bounded unit queued for delivery.
// EventIDs carries every raw event the text covers so the delivery layer
// can account for exactly those ids. A message is pending while both
// SentAt and FailedAt are nil; FailedAt quarantines transport rejects.
type OutboundMessage struct {
	ID        int64
	Language  Language
	Text      string
	EventIDs  []int64
	CreatedAt time.Time
	SentAt    *time.Time
	FailedAt  *time.Time
}
