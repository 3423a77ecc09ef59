package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gamecatalog/internal/providers/igdb"
	mongorepo "gamecatalog/internal/repository/mongo"
	"gamecatalog/internal/search"
	"gamecatalog/internal/usecase"
)

// Stack holds the wired components shared by the server and the CLI.
type Stack struct {
	Aliases     *search.AliasTable
	Repository  *mongorepo.CatalogRepository
	Remote      *igdb.Client
	Search      *search.Service
	Materialize usecase.MaterializeGame

	mongoClient *mongo.Client
	redisClient *redis.Client
}

// Build connects to mongo, optionally to redis, and assembles the search
// service and the materialize use case. Redis and IGDB are optional; mongo is not.
func Build(ctx context.Context, cfg Config, logger *slog.Logger) (*Stack, error) {
	aliases, err := search.LoadAliasTable(cfg.AliasesPath)
	if err != nil {
		return nil, err
	}
	logger.Info("platform aliases loaded",
		slog.Int("aliases", aliases.Len()),
		slog.Bool("custom", strings.TrimSpace(cfg.AliasesPath) != ""),
	)

	mongoClient, err := connectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	repo := mongorepo.NewCatalogRepository(mongoClient, cfg.MongoDatabase)
	indexCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	if err := repo.EnsureIndexes(indexCtx); err != nil {
		logger.Warn("mongo index creation failed", slog.String("error", err.Error()))
	}
	cancel()

	stack := &Stack{
		Aliases:     aliases,
		Repository:  repo,
		mongoClient: mongoClient,
	}

	stack.Remote = buildIGDBClient(cfg, logger)
	serviceOpts := []search.ServiceOption{search.WithRemoteTimeout(cfg.RemoteTimeout)}
	if stack.Remote.Enabled() {
		serviceOpts = append(serviceOpts, search.WithRemote(stack.Remote))
	} else {
		logger.Info("igdb credentials not configured, remote search disabled")
	}
	if !cfg.RemoteCacheDisabled {
		stack.redisClient = connectRedis(ctx, cfg.RedisURL, logger)
		var backend *search.RedisCacheBackend
		if stack.redisClient != nil {
			backend = search.NewRedisCacheBackend(stack.redisClient)
		}
		serviceOpts = append(serviceOpts, search.WithRemoteCache(search.NewRemoteCache(cfg.RemoteCacheTTL, time.Minute, backend)))
	}

	stack.Search = search.NewService(aliases, repo, serviceOpts...)
	stack.Materialize = usecase.MaterializeGame{Remote: stack.Remote, Store: repo}
	return stack, nil
}

func (s *Stack) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	if s.mongoClient != nil {
		return s.mongoClient.Disconnect(ctx)
	}
	return nil
}

func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongorepo.Connect(connectCtx, uri, options.Client().SetMonitor(otelmongo.NewMonitor()))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

func connectRedis(ctx context.Context, rawURL string, logger *slog.Logger) *redis.Client {
	redisURL := strings.TrimSpace(rawURL)
	if redisURL == "" {
		return nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, using in-memory cache only", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(redisOpts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not reachable, using in-memory cache only", slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return client
}

func buildIGDBClient(cfg Config, logger *slog.Logger) *igdb.Client {
	client := igdb.NewClient(igdb.Config{
		BaseURL:           cfg.IGDBBaseURL,
		TokenURL:          cfg.IGDBTokenURL,
		ClientID:          cfg.IGDBClientID,
		ClientSecret:      cfg.IGDBClientSecret,
		AccessToken:       cfg.IGDBAccessToken,
		RequestsPerSecond: cfg.IGDBRequestsPerS,
		Client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	})
	logger.Info("igdb client initialized", slog.Bool("enabled", client.Enabled()))
	return client
}
