package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gamecatalog/internal/domain"
	"gamecatalog/internal/domain/ports"
	"gamecatalog/internal/textnorm"
)

const (
	gamesCollection       = "games"
	screenshotsCollection = "screenshots"
)

var ErrUnknownKind = errors.New("unknown related entity kind")

type gameDoc struct {
	ID          int64  `bson:"_id"`
	Title       string `bson:"title"`
	SearchTitle string `bson:"searchTitle"`
	Overview    string `bson:"overview"`
	ReleaseYear *int   `bson:"releaseYear"`
	CoverURL    string `bson:"coverUrl"`
	CreatedAt   int64  `bson:"createdAt"`
	UpdatedAt   int64  `bson:"updatedAt"`
}

type relatedDoc struct {
	ID   primitive.ObjectID `bson:"_id"`
	Name string             `bson:"name"`
}

type linkDoc struct {
	GameID   int64              `bson:"gameId"`
	EntityID primitive.ObjectID `bson:"entityId"`
}

type screenshotDoc struct {
	GameID   int64  `bson:"gameId"`
	URL      string `bson:"url"`
	Position int    `bson:"position"`
}

type relatedCollections struct {
	entities *mongo.Collection
	links    *mongo.Collection
}

// CatalogRepository stores catalog records and their platform, developer,
// publisher and screenshot associations.
type CatalogRepository struct {
	games       *mongo.Collection
	screenshots *mongo.Collection
	related     map[domain.RelatedKind]relatedCollections
	now         func() time.Time
}

var _ ports.CatalogStore = (*CatalogRepository)(nil)

func NewCatalogRepository(client *mongo.Client, dbName string) *CatalogRepository {
	db := client.Database(dbName)
	related := make(map[domain.RelatedKind]relatedCollections, 3)
	for _, kind := range domain.RelatedKinds() {
		entities, links := relatedCollectionNames(kind)
		related[kind] = relatedCollections{
			entities: db.Collection(entities),
			links:    db.Collection(links),
		}
	}
	return &CatalogRepository{
		games:       db.Collection(gamesCollection),
		screenshots: db.Collection(screenshotsCollection),
		related:     related,
		now:         time.Now,
	}
}

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func relatedCollectionNames(kind domain.RelatedKind) (string, string) {
	plural := string(kind) + "s"
	return plural, "game_" + plural
}

func (r *CatalogRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.games == nil {
		return nil
	}
	if _, err := r.games.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "searchTitle", Value: 1}}},
		{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("games indexes: %w", err)
	}
	if _, err := r.screenshots.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "gameId", Value: 1}, {Key: "position", Value: 1}},
	}); err != nil {
		return fmt.Errorf("screenshots indexes: %w", err)
	}
	for _, kind := range domain.RelatedKinds() {
		collections := r.related[kind]
		if _, err := collections.entities.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		}); err != nil {
			return fmt.Errorf("%s indexes: %w", kind, err)
		}
		if _, err := collections.links.Indexes().CreateMany(ctx, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "gameId", Value: 1}, {Key: "entityId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "entityId", Value: 1}}},
		}); err != nil {
			return fmt.Errorf("%s link indexes: %w", kind, err)
		}
	}
	return nil
}

// SearchByTitle returns records whose canonical title contains any of the
// query tokens. Precision is left to the caller's scoring, so without a
// Limit every match comes back, projected down to the result fields.
func (r *CatalogRepository) SearchByTitle(ctx context.Context, query ports.TitleQuery) ([]domain.Game, error) {
	filter := titleFilter(query.Tokens)
	if filter == nil {
		return nil, nil
	}

	if len(query.PlatformNames) > 0 {
		gameIDs, err := r.gameIDsLinkedTo(ctx, domain.RelatedPlatform, query.PlatformNames)
		if err != nil {
			return nil, err
		}
		if len(gameIDs) == 0 {
			return nil, nil
		}
		filter["_id"] = bson.M{"$in": gameIDs}
	}

	opts := options.Find().SetProjection(searchProjection)
	if query.Limit > 0 {
		opts.SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(int64(query.Limit))
	}

	cursor, err := r.games.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []gameDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	games := make([]domain.Game, 0, len(docs))
	for _, doc := range docs {
		games = append(games, fromGameDoc(doc))
	}
	return games, nil
}

var searchProjection = bson.D{
	{Key: "title", Value: 1},
	{Key: "releaseYear", Value: 1},
	{Key: "coverUrl", Value: 1},
}

func titleFilter(tokens []string) bson.M {
	clauses := make(bson.A, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		clauses = append(clauses, bson.M{"searchTitle": bson.M{
			"$regex":   regexp.QuoteMeta(token),
			"$options": "i",
		}})
	}
	if len(clauses) == 0 {
		return nil
	}
	return bson.M{"$or": clauses}
}

func (r *CatalogRepository) gameIDsLinkedTo(ctx context.Context, kind domain.RelatedKind, names []string) ([]int64, error) {
	collections, ok := r.related[kind]
	if !ok {
		return nil, ErrUnknownKind
	}
	cursor, err := collections.entities.Find(ctx, bson.M{"name": bson.M{"$in": names}})
	if err != nil {
		return nil, err
	}
	var entities []relatedDoc
	if err := cursor.All(ctx, &entities); err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, nil
	}
	entityIDs := make([]primitive.ObjectID, 0, len(entities))
	for _, entity := range entities {
		entityIDs = append(entityIDs, entity.ID)
	}

	values, err := collections.links.Distinct(ctx, "gameId", bson.M{"entityId": bson.M{"$in": entityIDs}})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(values))
	for _, value := range values {
		switch typed := value.(type) {
		case int64:
			ids = append(ids, typed)
		case int32:
			ids = append(ids, int64(typed))
		}
	}
	return ids, nil
}

func (r *CatalogRepository) GetGame(ctx context.Context, id domain.GameID) (domain.Game, error) {
	var doc gameDoc
	if err := r.games.FindOne(ctx, bson.M{"_id": int64(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Game{}, domain.ErrNotFound
		}
		return domain.Game{}, err
	}
	game := fromGameDoc(doc)

	for _, kind := range domain.RelatedKinds() {
		names, err := r.relatedNames(ctx, kind, id)
		if err != nil {
			return domain.Game{}, err
		}
		switch kind {
		case domain.RelatedPlatform:
			game.Platforms = names
		case domain.RelatedDeveloper:
			game.Developers = names
		case domain.RelatedPublisher:
			game.Publishers = names
		}
	}

	shots, err := r.screenshotURLs(ctx, id)
	if err != nil {
		return domain.Game{}, err
	}
	game.Screenshots = shots
	return game, nil
}

func (r *CatalogRepository) relatedNames(ctx context.Context, kind domain.RelatedKind, id domain.GameID) ([]string, error) {
	collections := r.related[kind]
	cursor, err := collections.links.Find(ctx, bson.M{"gameId": int64(id)})
	if err != nil {
		return nil, err
	}
	var links []linkDoc
	if err := cursor.All(ctx, &links); err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, nil
	}
	entityIDs := make([]primitive.ObjectID, 0, len(links))
	for _, link := range links {
		entityIDs = append(entityIDs, link.EntityID)
	}

	cursor, err = collections.entities.Find(ctx, bson.M{"_id": bson.M{"$in": entityIDs}})
	if err != nil {
		return nil, err
	}
	var entities []relatedDoc
	if err := cursor.All(ctx, &entities); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entities))
	for _, entity := range entities {
		names = append(names, entity.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *CatalogRepository) screenshotURLs(ctx context.Context, id domain.GameID) ([]string, error) {
	cursor, err := r.screenshots.Find(ctx,
		bson.M{"gameId": int64(id)},
		options.Find().SetSort(bson.D{{Key: "position", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	var docs []screenshotDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	urls := make([]string, 0, len(docs))
	for _, doc := range docs {
		urls = append(urls, doc.URL)
	}
	return urls, nil
}

// UpsertGame writes the base record by identity. createdAt is only set on insert.
func (r *CatalogRepository) UpsertGame(ctx context.Context, game domain.Game) error {
	if game.ID <= 0 {
		return domain.ErrInvalidID
	}
	updatedAt := game.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = r.now().UTC()
	}
	createdAt := game.CreatedAt
	if createdAt.IsZero() {
		createdAt = updatedAt
	}
	doc := toGameDoc(game)
	update := bson.M{
		"$set": bson.M{
			"title":       doc.Title,
			"searchTitle": doc.SearchTitle,
			"overview":    doc.Overview,
			"releaseYear": doc.ReleaseYear,
			"coverUrl":    doc.CoverURL,
			"updatedAt":   updatedAt.Unix(),
		},
		"$setOnInsert": bson.M{
			"createdAt": createdAt.Unix(),
		},
	}
	_, err := r.games.UpdateOne(ctx, bson.M{"_id": doc.ID}, update, options.Update().SetUpsert(true))
	return err
}

// GetOrCreateRelated returns the entity with exactly this name, creating it
// on first use. A concurrent creator losing the unique-index race re-reads.
func (r *CatalogRepository) GetOrCreateRelated(ctx context.Context, kind domain.RelatedKind, name string) (domain.RelatedEntity, error) {
	collections, ok := r.related[kind]
	if !ok {
		return domain.RelatedEntity{}, ErrUnknownKind
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.RelatedEntity{}, fmt.Errorf("%s name is required", kind)
	}

	filter := bson.M{"name": name}
	update := bson.M{"$setOnInsert": bson.M{"createdAt": r.now().UTC().Unix()}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc relatedDoc
	err := collections.entities.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		err = collections.entities.FindOne(ctx, filter).Decode(&doc)
	}
	if err != nil {
		return domain.RelatedEntity{}, err
	}
	return domain.RelatedEntity{ID: doc.ID.Hex(), Kind: kind, Name: doc.Name}, nil
}

// LinkRelated inserts the missing game-to-entity links and leaves existing ones untouched.
func (r *CatalogRepository) LinkRelated(ctx context.Context, kind domain.RelatedKind, gameID domain.GameID, entityIDs []string) error {
	collections, ok := r.related[kind]
	if !ok {
		return ErrUnknownKind
	}
	if len(entityIDs) == 0 {
		return nil
	}

	linkedAt := r.now().UTC().Unix()
	models := make([]mongo.WriteModel, 0, len(entityIDs))
	for _, raw := range entityIDs {
		entityID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return fmt.Errorf("invalid %s id %q: %w", kind, raw, err)
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"gameId": int64(gameID), "entityId": entityID}).
			SetUpdate(bson.M{"$setOnInsert": bson.M{"linkedAt": linkedAt}}).
			SetUpsert(true))
	}
	_, err := collections.links.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return err
}

// ReplaceScreenshots swaps the whole screenshot set of a record.
func (r *CatalogRepository) ReplaceScreenshots(ctx context.Context, gameID domain.GameID, urls []string) error {
	if _, err := r.screenshots.DeleteMany(ctx, bson.M{"gameId": int64(gameID)}); err != nil {
		return err
	}
	if len(urls) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(urls))
	for i, url := range urls {
		docs = append(docs, screenshotDoc{GameID: int64(gameID), URL: url, Position: i})
	}
	_, err := r.screenshots.InsertMany(ctx, docs)
	return err
}

func toGameDoc(game domain.Game) gameDoc {
	return gameDoc{
		ID:          int64(game.ID),
		Title:       strings.TrimSpace(game.Title),
		SearchTitle: textnorm.Normalize(game.Title),
		Overview:    game.Overview,
		ReleaseYear: game.ReleaseYear,
		CoverURL:    game.CoverURL,
		CreatedAt:   game.CreatedAt.Unix(),
		UpdatedAt:   game.UpdatedAt.Unix(),
	}
}

func fromGameDoc(doc gameDoc) domain.Game {
	return domain.Game{
		ID:          domain.GameID(doc.ID),
		Title:       doc.Title,
		Overview:    doc.Overview,
		ReleaseYear: doc.ReleaseYear,
		CoverURL:    doc.CoverURL,
		Category:    domain.CategoryPrimary,
		CreatedAt:   timeFromUnix(doc.CreatedAt),
		UpdatedAt:   timeFromUnix(doc.UpdatedAt),
	}
}

func timeFromUnix(value int64) time.Time {
	return time.Unix(value, 0).UTC()
}
