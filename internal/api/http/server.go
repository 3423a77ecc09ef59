package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gamecatalog/internal/domain"
	"gamecatalog/internal/search"
	"gamecatalog/internal/usecase"
)

type SearchService interface {
	Search(ctx context.Context, raw string) domain.SearchResponse
	SourceDiagnostics() []domain.SourceDiagnostics
}

type GameReader interface {
	GetGame(ctx context.Context, id domain.GameID) (domain.Game, error)
}

type Materializer interface {
	Execute(ctx context.Context, id domain.GameID) (domain.Game, error)
}

type Server struct {
	search      SearchService
	games       GameReader
	materialize Materializer
	aliases     *search.AliasTable
	logger      *slog.Logger
	rps         float64
	burst       int
}

type aliasResponse struct {
	Alias         string   `json:"alias"`
	PlatformIDs   []int    `json:"platformIds"`
	PlatformNames []string `json:"platformNames"`
}

const maxQueryLength = 200

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithGameReader(games GameReader) ServerOption {
	return func(s *Server) {
		s.games = games
	}
}

func WithMaterializer(materialize Materializer) ServerOption {
	return func(s *Server) {
		s.materialize = materialize
	}
}

func WithAliases(aliases *search.AliasTable) ServerOption {
	return func(s *Server) {
		s.aliases = aliases
	}
}

func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps > 0 && burst > 0 {
			s.rps = rps
			s.burst = burst
		}
	}
}

func NewServer(searchService SearchService, options ...ServerOption) *Server {
	server := &Server{
		search: searchService,
		logger: slog.Default(),
		rps:    50,
		burst:  100,
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/sources/health", s.handleSourcesHealth)
	mux.HandleFunc("/platforms/aliases", s.handleAliases)
	mux.HandleFunc("/games/search", s.handleSearch)
	mux.HandleFunc("/games/", s.handleGameByID)
	traced := otelhttp.NewHandler(mux, "game-catalog",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + routeLabel(r.URL.Path)
		}),
	)
	limited := rateLimitMiddleware(newClientLimiters(s.rps, s.burst), traced)
	return recoveryMiddleware(s.logger, observeMiddleware(s.logger, limited))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleSourcesHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.search.SourceDiagnostics()})
}

func (s *Server) handleAliases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	entries := s.aliases.Entries()
	items := make([]aliasResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, aliasResponse{
			Alias:         entry.Phrase(),
			PlatformIDs:   entry.PlatformIDs,
			PlatformNames: entry.PlatformNames,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// handleSearch always answers 200; a query that finds nothing yields an empty list.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	query := r.URL.Query().Get("q")
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long (max 200 characters)")
		return
	}
	response := s.search.Search(r.Context(), query)
	if info := requestInfoFrom(r.Context()); info != nil {
		info.searched = true
		info.queryLength = len(query)
		info.results = len(response.Items)
		info.platformOnly = response.PlatformOnly
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleGameByID(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/games/"), "/")
	parts := strings.Split(path, "/")
	if path == "" || len(parts) > 2 {
		http.NotFound(w, r)
		return
	}
	id, err := domain.ParseGameID(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid game id")
		return
	}
	if info := requestInfoFrom(r.Context()); info != nil {
		info.gameID = id
	}

	if len(parts) == 2 {
		if parts[1] != "materialize" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleMaterialize(w, r, id)
		return
	}

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.games == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "catalog store is not configured")
		return
	}
	game, err := s.games.GetGame(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (s *Server) handleMaterialize(w http.ResponseWriter, r *http.Request, id domain.GameID) {
	if s.materialize == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "remote catalog is not configured")
		return
	}
	game, err := s.materialize.Execute(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "game not found")
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, usecase.ErrRemote):
		s.logger.Warn("remote catalog request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "remote_unavailable", "remote catalog request failed")
	default:
		s.logger.Error("catalog request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
