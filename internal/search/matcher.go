package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"gamecatalog/internal/domain"
	"gamecatalog/internal/domain/ports"
	"gamecatalog/internal/textnorm"
)

const (
	// ResultLimit caps each source's contribution to a merged search.
	ResultLimit = 20
)

const (
	scoreExactTitle  = 1000
	scoreTitlePrefix = 600
	scoreTitleInside = 300

	scoreTokenWord       = 30
	scoreTokenWordPrefix = 20
	scoreTokenInside     = 10
)

type scoredCandidate struct {
	game              domain.Game
	sortTitle         string
	score             int
	matchedTokenCount int
}

// LocalMatcher searches the persisted catalog and ranks what it finds.
// Every stored title containing a query token is scored; only the ranked
// output is capped, so a strong match is never cut before scoring.
type LocalMatcher struct {
	store ports.CatalogStore
	limit int
}

func NewLocalMatcher(store ports.CatalogStore) *LocalMatcher {
	return &LocalMatcher{
		store: store,
		limit: ResultLimit,
	}
}

// Match returns ranked stored records for q. A store failure yields no
// results together with the error so the caller can report it.
func (m *LocalMatcher) Match(ctx context.Context, q NormalizedQuery) ([]domain.GameResult, error) {
	if m == nil || m.store == nil || len(q.Tokens) == 0 {
		return []domain.GameResult{}, nil
	}

	candidates, err := m.store.SearchByTitle(ctx, ports.TitleQuery{
		Tokens:        q.Tokens,
		PlatformNames: q.PlatformNames,
	})
	if err != nil {
		slog.Warn("local catalog lookup failed",
			slog.String("query", q.FreeText),
			slog.String("error", err.Error()),
		)
		return []domain.GameResult{}, err
	}

	scored := make([]scoredCandidate, 0, len(candidates))
	for _, game := range candidates {
		if strings.TrimSpace(game.Title) == "" {
			continue
		}
		score, matched := scoreTitle(game.Title, q.FreeText, q.Tokens)
		scored = append(scored, scoredCandidate{
			game:              game,
			sortTitle:         strings.ToLower(game.Title),
			score:             score,
			matchedTokenCount: matched,
		})
	}
	rankCandidates(scored)

	limit := m.limit
	if limit <= 0 || limit > len(scored) {
		limit = len(scored)
	}
	results := make([]domain.GameResult, 0, limit)
	for _, candidate := range scored[:limit] {
		results = append(results, candidate.game.Result())
	}
	return results, nil
}

// scoreTitle scores a stored title against the free-text query and its
// unique tokens. It returns the total score and how many tokens contributed.
func scoreTitle(title, freeText string, tokens []string) (int, int) {
	normalized := textnorm.Normalize(title)
	query := textnorm.Normalize(freeText)

	score := 0
	switch {
	case query == "":
	case normalized == query:
		score += scoreExactTitle
	case strings.HasPrefix(normalized, query):
		score += scoreTitlePrefix
	case strings.Contains(normalized, query):
		score += scoreTitleInside
	}

	words := strings.Fields(normalized)
	matched := 0
	for _, token := range tokens {
		if token == "" {
			continue
		}
		points := tokenScore(normalized, words, token)
		if points > 0 {
			score += points
			matched++
		}
	}
	return score, matched
}

func tokenScore(title string, words []string, token string) int {
	prefix := false
	for _, word := range words {
		if word == token {
			return scoreTokenWord
		}
		if strings.HasPrefix(word, token) {
			prefix = true
		}
	}
	if prefix {
		return scoreTokenWordPrefix
	}
	if strings.Contains(title, token) {
		return scoreTokenInside
	}
	return 0
}

func rankCandidates(items []scoredCandidate) {
	sort.SliceStable(items, func(i, j int) bool {
		left, right := items[i], items[j]
		if cmp := compareInt(left.matchedTokenCount, right.matchedTokenCount); cmp != 0 {
			return cmp > 0
		}
		if cmp := compareInt(left.score, right.score); cmp != 0 {
			return cmp > 0
		}
		if left.sortTitle != right.sortTitle {
			return left.sortTitle < right.sortTitle
		}
		return left.game.ID < right.game.ID
	})
}

func compareInt(left, right int) int {
	switch {
	case left > right:
		return 1
	case left < right:
		return -1
	default:
		return 0
	}
}
