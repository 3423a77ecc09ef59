package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo/options"

	"gamecatalog/internal/domain"
	"gamecatalog/internal/domain/ports"
)

// testMongoURI returns the MongoDB connection URI for integration tests.
// Set MONGO_TEST_URI to override the localhost default.
func testMongoURI() string {
	if uri := os.Getenv("MONGO_TEST_URI"); uri != "" {
		return uri
	}
	return "mongodb://localhost:27017"
}

// setupTestRepo uses a throwaway database and skips when MongoDB is unreachable.
func setupTestRepo(t *testing.T) *CatalogRepository {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uri := testMongoURI()
	client, err := Connect(ctx, uri,
		options.Client().SetConnectTimeout(3*time.Second).SetServerSelectionTimeout(3*time.Second))
	if err != nil {
		t.Skipf("MongoDB not available at %s: %v", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		t.Skipf("MongoDB ping failed at %s: %v", uri, err)
	}

	dbName := fmt.Sprintf("catalog_test_%d", time.Now().UnixNano())
	repo := NewCatalogRepository(client, dbName)
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		t.Fatalf("EnsureIndexes: %v", err)
	}

	t.Cleanup(func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = client.Database(dbName).Drop(ctx2)
		_ = client.Disconnect(ctx2)
	})
	return repo
}

func seedGame(t *testing.T, repo *CatalogRepository, id domain.GameID, title string, platforms ...string) {
	t.Helper()
	ctx := context.Background()
	if err := repo.UpsertGame(ctx, domain.Game{ID: id, Title: title}); err != nil {
		t.Fatalf("UpsertGame: %v", err)
	}
	ids := make([]string, 0, len(platforms))
	for _, name := range platforms {
		entity, err := repo.GetOrCreateRelated(ctx, domain.RelatedPlatform, name)
		if err != nil {
			t.Fatalf("GetOrCreateRelated: %v", err)
		}
		ids = append(ids, entity.ID)
	}
	if err := repo.LinkRelated(ctx, domain.RelatedPlatform, id, ids); err != nil {
		t.Fatalf("LinkRelated: %v", err)
	}
}

func TestIntegrationSearchByTitle(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	seedGame(t, repo, 2, "Sonic the Hedgehog 2", "Sega Mega Drive/Genesis")
	seedGame(t, repo, 3, "Sonic Adventure", "Dreamcast")
	seedGame(t, repo, 4, "Streets of Rage", "Sega Mega Drive/Genesis")

	games, err := repo.SearchByTitle(ctx, ports.TitleQuery{Tokens: []string{"sonic"}})
	if err != nil {
		t.Fatalf("SearchByTitle: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(games))
	}
	for _, game := range games {
		if game.Title == "" || game.Category != domain.CategoryPrimary {
			t.Fatalf("projected record lost result fields: %+v", game)
		}
	}

	games, err = repo.SearchByTitle(ctx, ports.TitleQuery{Tokens: []string{"sonic"}, Limit: 1})
	if err != nil {
		t.Fatalf("SearchByTitle: %v", err)
	}
	if len(games) != 1 || games[0].ID != 2 {
		t.Fatalf("explicit limit must keep the lowest id, got %+v", games)
	}

	games, err = repo.SearchByTitle(ctx, ports.TitleQuery{
		Tokens:        []string{"sonic"},
		PlatformNames: []string{"Sega Mega Drive/Genesis"},
	})
	if err != nil {
		t.Fatalf("SearchByTitle: %v", err)
	}
	if len(games) != 1 || games[0].ID != 2 {
		t.Fatalf("expected only the Mega Drive record, got %+v", games)
	}

	games, err = repo.SearchByTitle(ctx, ports.TitleQuery{
		Tokens:        []string{"sonic"},
		PlatformNames: []string{"Virtual Boy"},
	})
	if err != nil || len(games) != 0 {
		t.Fatalf("unknown platform must match nothing, got %v / %v", games, err)
	}
}

func TestIntegrationUpsertIsIdempotent(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	write := func() {
		year := 2015
		if err := repo.UpsertGame(ctx, domain.Game{ID: 1942, Title: "The Witcher 3", Overview: "Geralt.", ReleaseYear: &year}); err != nil {
			t.Fatalf("UpsertGame: %v", err)
		}
		for kind, names := range map[domain.RelatedKind][]string{
			domain.RelatedPlatform:  {"PC (Microsoft Windows)", "PlayStation 4"},
			domain.RelatedDeveloper: {"CD Projekt RED"},
			domain.RelatedPublisher: {"CD Projekt", "Bandai Namco"},
		} {
			ids := make([]string, 0, len(names))
			for _, name := range names {
				entity, err := repo.GetOrCreateRelated(ctx, kind, name)
				if err != nil {
					t.Fatalf("GetOrCreateRelated: %v", err)
				}
				ids = append(ids, entity.ID)
			}
			if err := repo.LinkRelated(ctx, kind, 1942, ids); err != nil {
				t.Fatalf("LinkRelated: %v", err)
			}
		}
		if err := repo.ReplaceScreenshots(ctx, 1942, []string{"https://img/1.jpg", "https://img/2.jpg"}); err != nil {
			t.Fatalf("ReplaceScreenshots: %v", err)
		}
	}

	write()
	first, err := repo.GetGame(ctx, 1942)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	write()
	second, err := repo.GetGame(ctx, 1942)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}

	if !reflect.DeepEqual(first.Platforms, second.Platforms) ||
		!reflect.DeepEqual(first.Developers, second.Developers) ||
		!reflect.DeepEqual(first.Publishers, second.Publishers) ||
		!reflect.DeepEqual(first.Screenshots, second.Screenshots) {
		t.Fatalf("associations changed between runs:\n%+v\n%+v", first, second)
	}
	if !reflect.DeepEqual(second.Publishers, []string{"Bandai Namco", "CD Projekt"}) {
		t.Fatalf("unexpected publishers: %v", second.Publishers)
	}
	if !reflect.DeepEqual(second.Screenshots, []string{"https://img/1.jpg", "https://img/2.jpg"}) {
		t.Fatalf("unexpected screenshots: %v", second.Screenshots)
	}
	if !first.CreatedAt.Equal(second.CreatedAt) {
		t.Fatalf("createdAt must survive updates")
	}
	if second.ReleaseYear == nil || *second.ReleaseYear != 2015 {
		t.Fatalf("unexpected release year: %v", second.ReleaseYear)
	}
}

func TestIntegrationGetOrCreateRelatedConcurrent(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	const workers = 8
	ids := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			entity, err := repo.GetOrCreateRelated(ctx, domain.RelatedDeveloper, "Nintendo EAD")
			ids[index], errs[index] = entity.ID, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("expected a single entity, got %s and %s", ids[0], ids[i])
		}
	}
}

func TestIntegrationGetGameNotFound(t *testing.T) {
	repo := setupTestRepo(t)
	if _, err := repo.GetGame(context.Background(), 404); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
