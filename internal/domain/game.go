package domain

import (
	"strconv"
	"strings"
	"time"
)

// GameID is the identity assigned by the remote catalog. It is shared by both
// sources and is the only key used to deduplicate merged results.
type GameID int64

func (id GameID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func ParseGameID(raw string) (GameID, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || value <= 0 {
		return 0, ErrInvalidID
	}
	return GameID(value), nil
}

type Category string

const (
	CategoryPrimary Category = "primary"
	CategoryRemake  Category = "remake"
	CategoryPort    Category = "port"
)

// GameResult is the caller-facing shape of a single search hit.
type GameResult struct {
	ID          GameID   `json:"id"`
	Title       string   `json:"title"`
	ReleaseYear *int     `json:"releaseYear"`
	CoverURL    *string  `json:"coverUrl"`
	Category    Category `json:"category"`
}

// Game is a catalog record owned by the local store.
type Game struct {
	ID          GameID    `json:"id"`
	Title       string    `json:"title"`
	Overview    string    `json:"overview,omitempty"`
	ReleaseYear *int      `json:"releaseYear"`
	CoverURL    string    `json:"coverUrl,omitempty"`
	Screenshots []string  `json:"screenshots,omitempty"`
	Platforms   []string  `json:"platforms,omitempty"`
	Developers  []string  `json:"developers,omitempty"`
	Publishers  []string  `json:"publishers,omitempty"`
	Category    Category  `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Result reduces a stored record to the public result shape. Stored records
// carry no category of their own and are reported as primary releases.
func (g Game) Result() GameResult {
	result := GameResult{
		ID:          g.ID,
		Title:       g.Title,
		ReleaseYear: g.ReleaseYear,
		Category:    CategoryPrimary,
	}
	if cover := strings.TrimSpace(g.CoverURL); cover != "" {
		result.CoverURL = &cover
	}
	return result
}

type RelatedKind string

const (
	RelatedPlatform  RelatedKind = "platform"
	RelatedDeveloper RelatedKind = "developer"
	RelatedPublisher RelatedKind = "publisher"
)

func RelatedKinds() []RelatedKind {
	return []RelatedKind{RelatedPlatform, RelatedDeveloper, RelatedPublisher}
}

// RelatedEntity is a platform, developer or publisher row. Name is the
// natural key.
type RelatedEntity struct {
	ID   string      `json:"id"`
	Kind RelatedKind `json:"kind"`
	Name string      `json:"name"`
}

// CompanyCredit is one involved-company entry of a remote record.
type CompanyCredit struct {
	Name      string
	Developer bool
	Publisher bool
}

// RemoteGame is the full remote record fetched for materialization. Image
// references are kept exactly as the remote catalog returned them.
type RemoteGame struct {
	ID               GameID
	Title            string
	Summary          string
	FirstReleaseDate *int64
	CoverRef         string
	ScreenshotRefs   []string
	PlatformNames    []string
	Companies        []CompanyCredit
}

// ReleaseYearFromUnix converts an epoch-seconds timestamp to a calendar year in UTC.
func ReleaseYearFromUnix(seconds *int64) *int {
	if seconds == nil {
		return nil
	}
	year := time.Unix(*seconds, 0).UTC().Year()
	return &year
}
