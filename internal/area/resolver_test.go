package area

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OutageNotifier/internal/domain"
)

type fakeAreaStore struct {
	mu     sync.Mutex
	nextID int64
	areas  map[string]*domain.Area
}

func newFakeAreaStore() *fakeAreaStore {
	return &fakeAreaStore{areas: map[string]*domain.Area{}}
}

func key(name string, lang domain.Language) string {
	return name + "|" + string(lang)
}

func (s *fakeAreaStore) FindArea(_ context.Context, name string, lang domain.Language) (*domain.Area, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.areas[key(name, lang)]; ok {
		return a, nil
	}
	return nil, nil
}

func (s *fakeAreaStore) CreateArea(_ context.Context, name string, lang domain.Language) (*domain.Area, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.areas[key(name, lang)]; ok {
		// Conflict path: hand back the winner.
		return a, false, nil
	}
	s.nextID++
	a := &domain.Area{ID: s.nextID, Name: name, Language: lang}
	s.areas[key(name, lang)] = a
	return a, true, nil
}

type fakeTranslator struct {
	out map[string]string
	err error
}

func (t *fakeTranslator) Translate(_ context.Context, text string, _, to domain.Language) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	if v, ok := t.out[text+"|"+string(to)]; ok {
		return v, nil
	}
	return text, nil
}

var allLangs = []domain.Language{domain.LangHY, domain.LangRU, domain.LangEN}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolveCreatesAreaAndSiblings(t *testing.T) {
	t.Parallel()

	store := newFakeAreaStore()
	tr := &fakeTranslator{out: map[string]string{
		"Yerevan|hy": "Երևան",
		"Yerevan|ru": "Ереван",
	}}
	r := NewResolver(store, tr, allLangs, discard())

	id, err := r.Resolve(context.Background(), "city of Yerevan", domain.LangEN)
	require.NoError(t, err)
	require.NotZero(t, id)
	r.Wait()

	en, _ := store.FindArea(context.Background(), "Yerevan", domain.LangEN)
	require.NotNil(t, en)
	assert.Equal(t, id, en.ID)

	hy, _ := store.FindArea(context.Background(), "Երևան", domain.LangHY)
	assert.NotNil(t, hy)
	ru, _ := store.FindArea(context.Background(), "Ереван", domain.LangRU)
	assert.NotNil(t, ru)
}

func TestResolveReturnsExistingWithoutTranslation(t *testing.T) {
	t.Parallel()

	store := newFakeAreaStore()
	_, _, err := store.CreateArea(context.Background(), "Gyumri", domain.LangEN)
	require.NoError(t, err)

	tr := &fakeTranslator{err: errors.New("translator must not be called")}
	r := NewResolver(store, tr, allLangs, discard())

	id, err := r.Resolve(context.Background(), "GYUMRI", domain.LangEN)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	r.Wait()

	// No siblings were created.
	hy, _ := store.FindArea(context.Background(), "Gyumri", domain.LangHY)
	assert.Nil(t, hy)
}

func TestResolveTranslationFailureIsBestEffort(t *testing.T) {
	t.Parallel()

	store := newFakeAreaStore()
	tr := &fakeTranslator{err: errors.New("upstream down")}
	r := NewResolver(store, tr, allLangs, discard())

	id, err := r.Resolve(context.Background(), "Vanadzor", domain.LangEN)
	require.NoError(t, err)
	assert.NotZero(t, id)
	r.Wait()

	// Primary area exists, siblings do not.
	en, _ := store.FindArea(context.Background(), "Vanadzor", domain.LangEN)
	assert.NotNil(t, en)
	ru, _ := store.FindArea(context.Background(), "Vanadzor", domain.LangRU)
	assert.Nil(t, ru)
}

func TestResolveConcurrentSameName(t *testing.T) {
	t.Parallel()

	store := newFakeAreaStore()
	r := NewResolver(store, &fakeTranslator{}, []domain.Language{domain.LangEN}, discard())

	const goroutines = 8
	ids := make([]int64, goroutines)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			id, err := r.Resolve(context.Background(), "Yerevan", domain.LangEN)
			require.NoError(t, err)
			ids[g] = id
		}(g)
	}
	wg.Wait()
	r.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestResolveEmptyName(t *testing.T) {
	t.Parallel()

	r := NewResolver(newFakeAreaStore(), &fakeTranslator{}, allLangs, discard())
	id, err := r.Resolve(context.Background(), "   ", domain.LangEN)
	require.NoError(t, err)
	assert.Zero(t, id)
}
