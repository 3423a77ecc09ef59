package search

import (
	"context"
	"strings"
	"sync"

	"gamecatalog/internal/domain"
	"gamecatalog/internal/domain/ports"
	"gamecatalog/internal/textnorm"
)

type fakeStore struct {
	mu      sync.Mutex
	games   []domain.Game
	err     error
	calls   int
	queries []ports.TitleQuery
}

func (f *fakeStore) SearchByTitle(_ context.Context, query ports.TitleQuery) ([]domain.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}

	out := make([]domain.Game, 0, len(f.games))
	for _, game := range f.games {
		title := textnorm.Normalize(game.Title)
		hit := false
		for _, token := range query.Tokens {
			if strings.Contains(title, token) {
				hit = true
				break
			}
		}
		if !hit || !platformsIntersect(game.Platforms, query.PlatformNames) {
			continue
		}
		out = append(out, game)
		if query.Limit > 0 && len(out) >= query.Limit {
			break
		}
	}
	return out, nil
}

func platformsIntersect(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, left := range have {
		for _, right := range want {
			if left == right {
				return true
			}
		}
	}
	return false
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeStore) GetGame(context.Context, domain.GameID) (domain.Game, error) {
	return domain.Game{}, domain.ErrNotFound
}

func (f *fakeStore) UpsertGame(context.Context, domain.Game) error { return nil }

func (f *fakeStore) GetOrCreateRelated(_ context.Context, kind domain.RelatedKind, name string) (domain.RelatedEntity, error) {
	return domain.RelatedEntity{ID: name, Kind: kind, Name: name}, nil
}

func (f *fakeStore) LinkRelated(context.Context, domain.RelatedKind, domain.GameID, []string) error {
	return nil
}

func (f *fakeStore) ReplaceScreenshots(context.Context, domain.GameID, []string) error { return nil }

type fakeRemote struct {
	mu      sync.Mutex
	search  func(ctx context.Context, query ports.RemoteQuery) ([]domain.GameResult, error)
	calls   int
	queries []ports.RemoteQuery
}

func (f *fakeRemote) SearchGames(ctx context.Context, query ports.RemoteQuery) ([]domain.GameResult, error) {
	f.mu.Lock()
	f.calls++
	f.queries = append(f.queries, query)
	search := f.search
	f.mu.Unlock()
	if search == nil {
		return nil, nil
	}
	return search(ctx, query)
}

func (f *fakeRemote) GetGame(context.Context, domain.GameID) (domain.RemoteGame, error) {
	return domain.RemoteGame{}, domain.ErrNotFound
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func intPtr(value int) *int { return &value }

func resultIDs(items []domain.GameResult) []domain.GameID {
	ids := make([]domain.GameID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}
