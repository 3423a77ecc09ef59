package ports

import (
	"context"

	"gamecatalog/internal/domain"
)

// TitleQuery selects stored records whose title contains any of Tokens and,
// when PlatformNames is set, that are linked to at least one of them.
// Limit caps the candidate set; zero returns every match.
type TitleQuery struct {
	Tokens        []string
	PlatformNames []string
	Limit         int
}

type CatalogStore interface {
	SearchByTitle(ctx context.Context, query TitleQuery) ([]domain.Game, error)
	GetGame(ctx context.Context, id domain.GameID) (domain.Game, error)
	UpsertGame(ctx context.Context, game domain.Game) error
	GetOrCreateRelated(ctx context.Context, kind domain.RelatedKind, name string) (domain.RelatedEntity, error)
	LinkRelated(ctx context.Context, kind domain.RelatedKind, gameID domain.GameID, entityIDs []string) error
	ReplaceScreenshots(ctx context.Context, gameID domain.GameID, urls []string) error
}

type RemoteQuery struct {
	Text        string
	PlatformIDs []int
	Limit       int
}

type RemoteCatalog interface {
	SearchGames(ctx context.Context, query RemoteQuery) ([]domain.GameResult, error)
	GetGame(ctx context.Context, id domain.GameID) (domain.RemoteGame, error)
}
