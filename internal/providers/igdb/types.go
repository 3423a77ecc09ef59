package igdb

// Wire types for the IGDB v4 API. Every field the API may omit is a pointer
// or a slice and is checked before use.

type imageRef struct {
	URL *string `json:"url"`
}

type namedRef struct {
	Name *string `json:"name"`
}

type involvedCompany struct {
	Company   *namedRef `json:"company"`
	Developer *bool     `json:"developer"`
	Publisher *bool     `json:"publisher"`
}

type gameSearchItem struct {
	ID               *int64    `json:"id"`
	Name             *string   `json:"name"`
	FirstReleaseDate *int64    `json:"first_release_date"`
	Cover            *imageRef `json:"cover"`
	GameType         *int      `json:"game_type"`
}

type gameDetail struct {
	ID                *int64            `json:"id"`
	Name              *string           `json:"name"`
	Summary           *string           `json:"summary"`
	FirstReleaseDate  *int64            `json:"first_release_date"`
	Cover             *imageRef         `json:"cover"`
	Screenshots       []imageRef        `json:"screenshots"`
	Platforms         []namedRef        `json:"platforms"`
	InvolvedCompanies []involvedCompany `json:"involved_companies"`
}

const (
	gameTypeMainGame = 0
	gameTypeRemake   = 8
	gameTypePort     = 11
)

var (
	searchFields = []string{
		"id",
		"name",
		"first_release_date",
		"cover.url",
		"game_type",
	}
	detailFields = []string{
		"id",
		"name",
		"summary",
		"first_release_date",
		"cover.url",
		"screenshots.url",
		"platforms.name",
		"involved_companies.company.name",
		"involved_companies.developer",
		"involved_companies.publisher",
	}
	searchGameTypes = []int{gameTypeMainGame, gameTypeRemake, gameTypePort}
)
