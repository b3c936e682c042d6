// Package area resolves free-text area names to canonical, language-scoped
// Area entities, creating them on first sight.
package area

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"OutageNotifier/internal/domain"
	"OutageNotifier/internal/normalize"
	"OutageNotifier/internal/ports"
)

const translateTimeout = 30 * time.Second

// Resolver looks areas up by (cleaned name, language) and creates missing
// ones. On first creation it requests name translations into every other
// supported language in the background, best-effort.
type Resolver struct {
	store      ports.AreaStore
	translator ports.Translator
	langs      []domain.Language
	logger     *slog.Logger

	wg sync.WaitGroup
}

// NewResolver wires the area store with the translator capability.
func NewResolver(store ports.AreaStore, translator ports.Translator, langs []domain.Language, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, translator: translator, langs: langs, logger: logger}
}

// Resolve returns the canonical area id for a raw name, or 0 when the name
// cleans down to nothing. Two concurrent resolutions of the same new name
// converge on one row: the insert detects the conflict and fetches the
// winner instead of erroring.
func (r *Resolver) Resolve(ctx context.Context, rawName string, lang domain.Language) (int64, error) {
	name := normalize.CleanAreaName(rawName)
	if name == "" {
		r.logger.Warn("area name empty after cleaning, skipping resolution", "raw", rawName)
		return 0, nil
	}

	existing, err := r.store.FindArea(ctx, name, lang)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	created, fresh, err := r.store.CreateArea(ctx, name, lang)
	if err != nil {
		return 0, err
	}

	if fresh {
		r.wg.Add(1)
		go r.createSiblings(name, lang)
	}

	return created.ID, nil
}

// Wait blocks until in-flight sibling translations finish. Used by
// shutdown and tests.
func (r *Resolver) Wait() {
	r.wg.Wait()
}

// createSiblings translates the new name into the other supported
// languages and creates those Area rows. Failures leave the sibling absent;
// a later resolution in that language creates it independently.
func (r *Resolver) createSiblings(name string, lang domain.Language) {
	defer r.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), translateTimeout)
	defer cancel()

	for _, target := range r.langs {
		if target == lang {
			continue
		}

		translated, err := r.translator.Translate(ctx, name, lang, target)
		if err != nil {
			r.logger.Warn("sibling area translation failed",
				"name", name, "target", target, "error", err)
			continue
		}

		cleaned := normalize.CleanAreaName(translated)
		if cleaned == "" {
			continue
		}

		if _, _, err := r.store.CreateArea(ctx, cleaned, target); err != nil {
			r.logger.Warn("sibling area creation failed",
				"name", cleaned, "language", target, "error", err)
		}
	}
}
