package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"gamecatalog/internal/domain"
	"gamecatalog/internal/domain/ports"
	"gamecatalog/internal/imageurl"
	"gamecatalog/internal/metrics"
)

// MaterializeGame copies a remote record into the local store so it can be
// found and referenced locally. Running it twice with the same remote payload
// leaves the same associations and screenshots behind.
type MaterializeGame struct {
	Remote ports.RemoteCatalog
	Store  ports.CatalogStore
	Now    func() time.Time
}

func (uc MaterializeGame) Execute(ctx context.Context, id domain.GameID) (domain.Game, error) {
	game, err := uc.execute(ctx, id)
	metrics.MaterializeTotal.WithLabelValues(materializeStatus(err)).Inc()
	if err != nil {
		slog.Warn("materialize game failed",
			slog.String("gameId", id.String()),
			slog.String("error", err.Error()),
		)
	}
	return game, err
}

func (uc MaterializeGame) execute(ctx context.Context, id domain.GameID) (domain.Game, error) {
	if id <= 0 {
		return domain.Game{}, domain.ErrInvalidID
	}

	now := time.Now
	if uc.Now != nil {
		now = uc.Now
	}

	remote, err := uc.Remote.GetGame(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Game{}, domain.ErrNotFound
		}
		return domain.Game{}, wrapRemote(err)
	}
	title := strings.TrimSpace(remote.Title)
	if title == "" {
		return domain.Game{}, domain.ErrNotFound
	}

	at := now().UTC()
	game := domain.Game{
		ID:          id,
		Title:       title,
		Overview:    strings.TrimSpace(remote.Summary),
		ReleaseYear: domain.ReleaseYearFromUnix(remote.FirstReleaseDate),
		CoverURL:    imageurl.Normalize(remote.CoverRef, imageurl.SizeCoverBig2x),
		Screenshots: imageurl.NormalizeAll(remote.ScreenshotRefs, imageurl.SizeScreenshotBig),
		Platforms:   dedupeNames(remote.PlatformNames),
		Developers:  dedupeNames(companyNames(remote.Companies, func(c domain.CompanyCredit) bool { return c.Developer })),
		Publishers:  dedupeNames(companyNames(remote.Companies, func(c domain.CompanyCredit) bool { return c.Publisher })),
		Category:    domain.CategoryPrimary,
		CreatedAt:   at,
		UpdatedAt:   at,
	}

	if err := uc.Store.UpsertGame(ctx, game); err != nil {
		return domain.Game{}, wrapRepo(err)
	}
	if err := uc.linkRelated(ctx, game); err != nil {
		return domain.Game{}, wrapRepo(err)
	}
	if err := uc.Store.ReplaceScreenshots(ctx, id, game.Screenshots); err != nil {
		return domain.Game{}, wrapRepo(err)
	}

	stored, err := uc.Store.GetGame(ctx, id)
	if err != nil {
		return domain.Game{}, wrapRepo(err)
	}
	return stored, nil
}

// linkRelated resolves each kind's names concurrently. Every kind finishes
// its get-or-create calls before its links are written.
func (uc MaterializeGame) linkRelated(ctx context.Context, game domain.Game) error {
	groups := map[domain.RelatedKind][]string{
		domain.RelatedPlatform:  game.Platforms,
		domain.RelatedDeveloper: game.Developers,
		domain.RelatedPublisher: game.Publishers,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, kind := range domain.RelatedKinds() {
		names := groups[kind]
		if len(names) == 0 {
			continue
		}
		group.Go(func() error {
			ids := make([]string, 0, len(names))
			for _, name := range names {
				entity, err := uc.Store.GetOrCreateRelated(groupCtx, kind, name)
				if err != nil {
					return err
				}
				ids = append(ids, entity.ID)
			}
			return uc.Store.LinkRelated(groupCtx, kind, game.ID, ids)
		})
	}
	return group.Wait()
}

func companyNames(credits []domain.CompanyCredit, keep func(domain.CompanyCredit) bool) []string {
	names := make([]string, 0, len(credits))
	for _, credit := range credits {
		if keep(credit) {
			names = append(names, credit.Name)
		}
	}
	return names
}

// dedupeNames trims names and collapses exact duplicates, keeping case and
// first-seen order.
func dedupeNames(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		name := strings.TrimSpace(value)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func materializeStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidID):
		return "not_found"
	case errors.Is(err, ErrRemote):
		return "remote_error"
	default:
		return "repository_error"
	}
}
