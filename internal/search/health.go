package search

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"gamecatalog/internal/domain"
	"gamecatalog/internal/metrics"
)

const (
	breakerThreshold = 3
	breakerBaseBlock = 2 * time.Minute
	breakerMaxBlock  = 15 * time.Minute
)

// sourceStats is the request history of one source.
type sourceStats struct {
	requests      int64
	failures      int64
	timeouts      int64
	cacheHits     int64
	lastQuery     string
	lastError     string
	lastLatency   time.Duration
	lastSuccessAt time.Time
	lastFailureAt time.Time
}

func (st *sourceStats) observe(query string, err error, latency time.Duration, now time.Time) (timedOut bool) {
	st.requests++
	st.lastQuery = strings.TrimSpace(query)
	st.lastLatency = latency
	if err == nil {
		st.lastError = ""
		st.lastSuccessAt = now
		return false
	}
	st.failures++
	st.lastError = err.Error()
	st.lastFailureAt = now
	if isTimeout(err) {
		st.timeouts++
		return true
	}
	return false
}

func (st *sourceStats) diagnostics(name string, enabled bool) domain.SourceDiagnostics {
	return domain.SourceDiagnostics{
		Name:          name,
		Enabled:       enabled,
		Requests:      st.requests,
		Failures:      st.failures,
		Timeouts:      st.timeouts,
		CacheHits:     st.cacheHits,
		LastQuery:     st.lastQuery,
		LastError:     st.lastError,
		LastLatencyMS: st.lastLatency.Milliseconds(),
		LastSuccessAt: timePtr(st.lastSuccessAt),
		LastFailureAt: timePtr(st.lastFailureAt),
	}
}

// remoteBreaker stops calling the remote catalog after breakerThreshold
// failures in a row. Each further failure doubles the block, up to breakerMaxBlock.
type remoteBreaker struct {
	streak    int
	openUntil time.Time
}

func (b *remoteBreaker) isOpen(now time.Time) bool {
	return !b.openUntil.IsZero() && now.Before(b.openUntil)
}

func (b *remoteBreaker) record(err error, now time.Time) {
	if err == nil {
		b.streak = 0
		b.openUntil = time.Time{}
		return
	}
	b.streak++
	if b.streak >= breakerThreshold {
		b.openUntil = now.Add(breakerBlockDuration(b.streak))
	}
}

func breakerBlockDuration(streak int) time.Duration {
	block := breakerBaseBlock
	for i := breakerThreshold; i < streak; i++ {
		block *= 2
		if block >= breakerMaxBlock {
			return breakerMaxBlock
		}
	}
	return block
}

func (s *Service) observeLocal(query string, err error, latency time.Duration) {
	s.healthMu.Lock()
	timedOut := s.localStats.observe(query, err, latency, s.now())
	s.healthMu.Unlock()
	observeSourceMetrics(domain.SourceLocal, err, timedOut, latency)
}

func (s *Service) observeRemote(query string, err error, latency time.Duration) {
	now := s.now()
	s.healthMu.Lock()
	timedOut := s.remoteStats.observe(query, err, latency, now)
	s.breaker.record(err, now)
	open := s.breaker.isOpen(now)
	s.healthMu.Unlock()

	observeSourceMetrics(domain.SourceRemote, err, timedOut, latency)
	if open {
		metrics.SourceAvailable.WithLabelValues(domain.SourceRemote).Set(0)
	}
}

func (s *Service) observeRemoteCacheHit() {
	s.healthMu.Lock()
	s.remoteStats.cacheHits++
	s.healthMu.Unlock()
}

// remoteBlocked returns when the open breaker closes and the error that opened it.
func (s *Service) remoteBlocked() (time.Time, string, bool) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	if !s.breaker.isOpen(s.now()) {
		return time.Time{}, "", false
	}
	return s.breaker.openUntil, s.remoteStats.lastError, true
}

func observeSourceMetrics(name string, err error, timedOut bool, latency time.Duration) {
	metrics.SourceRequestDuration.WithLabelValues(name).Observe(latency.Seconds())
	switch {
	case err == nil:
		metrics.SourceRequestsTotal.WithLabelValues(name, "ok").Inc()
		metrics.SourceAvailable.WithLabelValues(name).Set(1)
	case timedOut:
		metrics.SourceRequestsTotal.WithLabelValues(name, "timeout").Inc()
	default:
		metrics.SourceRequestsTotal.WithLabelValues(name, "error").Inc()
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// SourceDiagnostics reports the local store first, then the remote catalog.
func (s *Service) SourceDiagnostics() []domain.SourceDiagnostics {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	local := s.localStats.diagnostics(domain.SourceLocal, s.local != nil)
	remote := s.remoteStats.diagnostics(domain.SourceRemote, s.remote != nil)
	remote.Breaker = &domain.BreakerState{
		FailureStreak: s.breaker.streak,
		OpenUntil:     timePtr(s.breaker.openUntil),
	}
	return []domain.SourceDiagnostics{local, remote}
}

func timePtr(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	return &value
}
