// Package igdb is a client for the IGDB v4 games API.
package igdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"gamecatalog/internal/domain"
	"gamecatalog/internal/domain/ports"
)

const (
	defaultBaseURL           = "https://api.igdb.com/v4"
	defaultTokenURL          = "https://id.twitch.tv/oauth2/token"
	defaultRequestsPerSecond = 4
	defaultPageSize          = 20
	maxResponseBytes         = 2 << 20
)

var ErrNotConfigured = errors.New("igdb credentials are not configured")

type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	// AccessToken skips the client-credentials exchange when set.
	AccessToken       string
	Client            *http.Client
	RequestsPerSecond float64
	Retry             *RetryConfig
}

type Client struct {
	baseURL  string
	clientID string
	http     *http.Client
	tokens   oauth2.TokenSource
	limiter  *rate.Limiter
	retry    RetryConfig
	warnOnce sync.Once
}

var _ ports.RemoteCatalog = (*Client)(nil)

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	retry := DefaultRetryConfig()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	client := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: strings.TrimSpace(cfg.ClientID),
		http:     httpClient,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		retry:    retry,
	}
	if client.clientID != "" {
		client.tokens = newTokenSource(cfg, httpClient)
	}
	return client
}

func (c *Client) Enabled() bool {
	return c != nil && c.clientID != "" && c.tokens != nil
}

// SearchGames runs one search request. Without credentials it returns no
// results and no error.
func (c *Client) SearchGames(ctx context.Context, query ports.RemoteQuery) ([]domain.GameResult, error) {
	if !c.Enabled() {
		c.warnOnce.Do(func() {
			slog.Warn("igdb credentials missing; remote catalog search disabled")
		})
		return nil, nil
	}
	text := strings.TrimSpace(query.Text)
	if text == "" {
		return nil, nil
	}
	limit := query.Limit
	if limit <= 0 || limit > defaultPageSize {
		limit = defaultPageSize
	}

	body := newQuery().
		Search(text).
		Fields(searchFields...).
		Where(inList("game_type", searchGameTypes), inList("platforms", query.PlatformIDs)).
		Limit(limit).
		String()

	var items []gameSearchItem
	if err := c.post(ctx, "/games", body, &items); err != nil {
		return nil, err
	}
	return mapSearchItems(items), nil
}

// GetGame fetches the full record used when a game is stored locally.
func (c *Client) GetGame(ctx context.Context, id domain.GameID) (domain.RemoteGame, error) {
	if !c.Enabled() {
		return domain.RemoteGame{}, ErrNotConfigured
	}
	if id <= 0 {
		return domain.RemoteGame{}, domain.ErrInvalidID
	}

	body := newQuery().
		Fields(detailFields...).
		Where("id = " + id.String()).
		Limit(1).
		String()

	var items []gameDetail
	if err := c.post(ctx, "/games", body, &items); err != nil {
		return domain.RemoteGame{}, err
	}
	if len(items) == 0 {
		return domain.RemoteGame{}, domain.ErrNotFound
	}
	game := mapDetail(items[0])
	if game.ID == 0 {
		game.ID = id
	}
	return game, nil
}

func (c *Client) post(ctx context.Context, endpoint, body string, out any) error {
	return RetryWithBackoff(ctx, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return c.do(ctx, endpoint, body, out)
	})
}

func (c *Client) do(ctx context.Context, endpoint, body string, out any) error {
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("igdb token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode igdb response: %w", err)
	}
	return nil
}
