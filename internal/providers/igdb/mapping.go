package igdb

import (
	"strings"

	"gamecatalog/internal/domain"
	"gamecatalog/internal/imageurl"
)

func categoryFromGameType(code *int) (domain.Category, bool) {
	if code == nil {
		return "", false
	}
	switch *code {
	case gameTypeMainGame:
		return domain.CategoryPrimary, true
	case gameTypeRemake:
		return domain.CategoryRemake, true
	case gameTypePort:
		return domain.CategoryPort, true
	default:
		return "", false
	}
}

// mapSearchItems drops items without an id, a usable name or a known game type.
func mapSearchItems(items []gameSearchItem) []domain.GameResult {
	results := make([]domain.GameResult, 0, len(items))
	for _, item := range items {
		if item.ID == nil {
			continue
		}
		title := trimmed(item.Name)
		if title == "" {
			continue
		}
		category, ok := categoryFromGameType(item.GameType)
		if !ok {
			continue
		}
		result := domain.GameResult{
			ID:          domain.GameID(*item.ID),
			Title:       title,
			ReleaseYear: domain.ReleaseYearFromUnix(item.FirstReleaseDate),
			Category:    category,
		}
		if item.Cover != nil {
			if cover := imageurl.Normalize(trimmed(item.Cover.URL), imageurl.SizeCoverBig); cover != "" {
				result.CoverURL = &cover
			}
		}
		results = append(results, result)
	}
	return results
}

// mapDetail keeps raw image references; sizing happens when the record is stored.
func mapDetail(item gameDetail) domain.RemoteGame {
	game := domain.RemoteGame{
		Title:            trimmed(item.Name),
		Summary:          trimmed(item.Summary),
		FirstReleaseDate: item.FirstReleaseDate,
	}
	if item.ID != nil {
		game.ID = domain.GameID(*item.ID)
	}
	if item.Cover != nil {
		game.CoverRef = trimmed(item.Cover.URL)
	}
	for _, shot := range item.Screenshots {
		if ref := trimmed(shot.URL); ref != "" {
			game.ScreenshotRefs = append(game.ScreenshotRefs, ref)
		}
	}
	for _, platform := range item.Platforms {
		if name := trimmed(platform.Name); name != "" {
			game.PlatformNames = append(game.PlatformNames, name)
		}
	}
	for _, credit := range item.InvolvedCompanies {
		if credit.Company == nil {
			continue
		}
		name := trimmed(credit.Company.Name)
		if name == "" {
			continue
		}
		game.Companies = append(game.Companies, domain.CompanyCredit{
			Name:      name,
			Developer: credit.Developer != nil && *credit.Developer,
			Publisher: credit.Publisher != nil && *credit.Publisher,
		})
	}
	return game
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
