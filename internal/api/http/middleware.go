package apihttp

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"gamecatalog/internal/domain"
	"gamecatalog/internal/metrics"
)

// requestInfo collects what handlers learn about a request so the access log
// can report it after the response is written.
type requestInfo struct {
	gameID       domain.GameID
	queryLength  int
	searched     bool
	results      int
	platformOnly bool
}

type requestInfoKey struct{}

func requestInfoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(*requestInfo)
	return info
}

func (info *requestInfo) attrs() []slog.Attr {
	var attrs []slog.Attr
	if info.gameID > 0 {
		attrs = append(attrs, slog.String("gameId", info.gameID.String()))
	}
	if info.searched {
		attrs = append(attrs,
			slog.Int("queryLength", info.queryLength),
			slog.Int("results", info.results),
		)
		if info.platformOnly {
			attrs = append(attrs, slog.Bool("platformOnly", true))
		}
	}
	return attrs
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n
	return n, err
}

// observeMiddleware writes one access log line and the request metrics for
// every request, labelled by route rather than raw path.
func observeMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		info := &requestInfo{}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)))

		elapsed := time.Since(start)
		route := routeLabel(r.URL.Path)
		if route != "/metrics" {
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		}

		attrs := append([]slog.Attr{
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", rec.status),
			slog.Int("bytes", rec.bytes),
			slog.Int64("durationMs", elapsed.Milliseconds()),
			slog.String("clientIP", clientIP(r)),
		}, info.attrs()...)
		logger.LogAttrs(r.Context(), requestLogLevel(route, rec.status), "http request", attrs...)
	})
}

func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Error("panic recovered",
					slog.Any("error", recovered),
					slog.String("route", routeLabel(r.URL.Path)),
					slog.String("stack", string(debug.Stack())),
				)
				writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// routeLabel maps a path onto the fixed route set so game ids never become
// metric labels or span names.
func routeLabel(path string) string {
	switch path {
	case "/health", "/metrics", "/games/search", "/platforms/aliases", "/sources/health":
		return path
	}
	rest, ok := strings.CutPrefix(path, "/games/")
	if !ok {
		return "/other"
	}
	rawID, action, _ := strings.Cut(strings.Trim(rest, "/"), "/")
	if _, err := domain.ParseGameID(rawID); err != nil {
		return "/games/{invalid}"
	}
	switch action {
	case "":
		return "/games/{id}"
	case "materialize":
		return "/games/{id}/materialize"
	default:
		return "/other"
	}
}

// requestLogLevel keeps health checks quiet and treats unknown ids or bad queries as
// ordinary traffic; only throttling and server faults stand out.
func requestLogLevel(route string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status == http.StatusTooManyRequests:
		return slog.LevelWarn
	case route == "/health" || route == "/metrics" || route == "/sources/health":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// clientIP prefers proxy headers and is only used for logging.
func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil || host == "" {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

const clientLimiterIdle = 10 * time.Minute

// clientLimiters hands out one token bucket per connecting address. Buckets
// idle for clientLimiterIdle are dropped.
type clientLimiters struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets *cache.Cache
}

func newClientLimiters(rps float64, burst int) *clientLimiters {
	return &clientLimiters{
		limit:   rate.Limit(rps),
		burst:   burst,
		buckets: cache.New(clientLimiterIdle, clientLimiterIdle/2),
	}
}

func (c *clientLimiters) allow(key string) bool {
	c.mu.Lock()
	limiter, ok := c.bucket(key)
	if !ok {
		limiter = rate.NewLimiter(c.limit, c.burst)
	}
	c.buckets.SetDefault(key, limiter)
	c.mu.Unlock()
	return limiter.Allow()
}

func (c *clientLimiters) bucket(key string) (*rate.Limiter, bool) {
	value, ok := c.buckets.Get(key)
	if !ok {
		return nil, false
	}
	limiter, ok := value.(*rate.Limiter)
	return limiter, ok
}

// rateLimitMiddleware throttles each client address separately. The key is the
// connection address, not a forwarded header a client could rotate.
func rateLimitMiddleware(limiters *clientLimiters, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		if !limiters.allow(remoteHost(r)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
