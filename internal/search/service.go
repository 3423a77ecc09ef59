package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gamecatalog/internal/domain"
	"gamecatalog/internal/domain/ports"
	"gamecatalog/internal/metrics"
	"gamecatalog/internal/textnorm"
)

const defaultRemoteTimeout = 3 * time.Second

// Service answers free-text catalog searches from the local store and the
// remote catalog.
type Service struct {
	aliases       *AliasTable
	local         *LocalMatcher
	remote        ports.RemoteCatalog
	remoteTimeout time.Duration
	remoteCache   *RemoteCache
	now           func() time.Time

	healthMu    sync.Mutex
	localStats  sourceStats
	remoteStats sourceStats
	breaker     remoteBreaker
}

type ServiceOption func(*Service)

func WithRemote(remote ports.RemoteCatalog) ServiceOption {
	return func(s *Service) {
		s.remote = remote
	}
}

func WithRemoteTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		if timeout > 0 {
			s.remoteTimeout = timeout
		}
	}
}

func WithRemoteCache(c *RemoteCache) ServiceOption {
	return func(s *Service) {
		s.remoteCache = c
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(aliases *AliasTable, store ports.CatalogStore, opts ...ServiceOption) *Service {
	if aliases == nil {
		aliases = NewAliasTable(nil)
	}
	svc := &Service{
		aliases:       aliases,
		remoteTimeout: defaultRemoteTimeout,
		now:           time.Now,
	}
	if store != nil {
		svc.local = NewLocalMatcher(store)
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *Service) Aliases() *AliasTable {
	return s.aliases
}

// Search never fails: a source that errors, times out or is blocked simply
// contributes nothing and is reported in the response's source list.
func (s *Service) Search(ctx context.Context, raw string) domain.SearchResponse {
	startedAt := time.Now()
	query := s.aliases.Resolve(raw)

	response := domain.SearchResponse{
		Query:     query.Canonical,
		FreeText:  query.FreeText,
		Platforms: query.PlatformNames,
		Items:     []domain.GameResult{},
	}

	if textnorm.TooShort(query.Canonical) {
		response.Sources = []domain.SourceStatus{
			skippedStatus(domain.SourceLocal, "query too short"),
			skippedStatus(domain.SourceRemote, "query too short"),
		}
		response.ElapsedMS = time.Since(startedAt).Milliseconds()
		return response
	}
	if query.PlatformOnly() {
		response.PlatformOnly = true
		response.Sources = []domain.SourceStatus{
			skippedStatus(domain.SourceLocal, "platform-only query"),
			skippedStatus(domain.SourceRemote, "platform-only query"),
		}
		response.ElapsedMS = time.Since(startedAt).Milliseconds()
		return response
	}

	var (
		localItems, remoteItems   []domain.GameResult
		localStatus, remoteStatus domain.SourceStatus
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		localItems, localStatus = s.searchLocal(groupCtx, query)
		return nil
	})
	group.Go(func() error {
		remoteItems, remoteStatus = s.searchRemote(groupCtx, query)
		return nil
	})
	_ = group.Wait()

	response.Items = Merge(localItems, remoteItems)
	response.Sources = []domain.SourceStatus{localStatus, remoteStatus}
	response.ElapsedMS = time.Since(startedAt).Milliseconds()
	metrics.SearchResultsTotal.Observe(float64(len(response.Items)))
	return response
}

func (s *Service) searchLocal(ctx context.Context, query NormalizedQuery) ([]domain.GameResult, domain.SourceStatus) {
	if s.local == nil {
		return nil, skippedStatus(domain.SourceLocal, "local catalog not configured")
	}
	startedAt := time.Now()
	items, err := s.local.Match(ctx, query)
	s.observeLocal(query.FreeText, err, time.Since(startedAt))
	if err != nil {
		return nil, domain.SourceStatus{Name: domain.SourceLocal, Error: err.Error()}
	}
	return items, domain.SourceStatus{Name: domain.SourceLocal, OK: true, Count: len(items)}
}

func (s *Service) searchRemote(ctx context.Context, query NormalizedQuery) ([]domain.GameResult, domain.SourceStatus) {
	if s.remote == nil {
		return nil, skippedStatus(domain.SourceRemote, "remote catalog not configured")
	}
	if query.FreeText == "" {
		return nil, skippedStatus(domain.SourceRemote, "no free text")
	}

	request := ports.RemoteQuery{
		Text:        query.FreeText,
		PlatformIDs: query.PlatformIDs,
		Limit:       ResultLimit,
	}
	cacheKey := remoteCacheKey(request)
	if items, ok := s.remoteCache.Get(ctx, cacheKey); ok {
		s.observeRemoteCacheHit()
		return items, domain.SourceStatus{Name: domain.SourceRemote, OK: true, Count: len(items)}
	}

	if until, lastErr, blocked := s.remoteBlocked(); blocked {
		return nil, domain.SourceStatus{
			Name:  domain.SourceRemote,
			Error: fmt.Sprintf("remote catalog temporarily unhealthy until %s: %s", until.UTC().Format(time.RFC3339), lastErr),
		}
	}

	remoteCtx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()

	startedAt := time.Now()
	items, err := s.remote.SearchGames(remoteCtx, request)
	if err != nil && ctx.Err() != nil {
		// caller gave up; not the remote's fault
		return nil, domain.SourceStatus{Name: domain.SourceRemote, Error: ctx.Err().Error()}
	}
	s.observeRemote(request.Text, err, time.Since(startedAt))
	if err != nil {
		slog.Warn("remote catalog search failed",
			slog.String("query", request.Text),
			slog.String("error", err.Error()),
		)
		return nil, domain.SourceStatus{Name: domain.SourceRemote, Error: err.Error()}
	}
	if len(items) > ResultLimit {
		items = items[:ResultLimit]
	}
	s.remoteCache.Set(ctx, cacheKey, items)
	return items, domain.SourceStatus{Name: domain.SourceRemote, OK: true, Count: len(items)}
}

func skippedStatus(name, reason string) domain.SourceStatus {
	return domain.SourceStatus{Name: name, Skipped: true, Reason: reason}
}
