// Package scrape implements the Source Feed collaborators: goquery-based
// scrapers over the utility providers' announcement pages.
package scrape

import (
	"fmt"

	"OutageNotifier/internal/domain"
	"OutageNotifier/internal/ports"
)

// Registry keeps a mapping from outage types to their feed implementations.
type Registry struct {
	feeds map[domain.EventType]ports.SourceFeed
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{feeds: map[domain.EventType]ports.SourceFeed{}}
}

// Register adds or replaces the feed for its outage type.
func (r *Registry) Register(feed ports.SourceFeed) {
	if r.feeds == nil {
		r.feeds = map[domain.EventType]ports.SourceFeed{}
	}
	r.feeds[feed.Type()] = feed
}

// Resolve returns the feed for an outage type or an error if it is absent.
func (r *Registry) Resolve(t domain.EventType) (ports.SourceFeed, error) {
	if feed, ok := r.feeds[t]; ok {
		return feed, nil
	}
	return nil, fmt.Errorf("no source feed registered for %s", t)
}
