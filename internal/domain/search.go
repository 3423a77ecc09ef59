package domain

import "time"

const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

type SourceStatus struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
}

type SearchResponse struct {
	Query        string         `json:"query"`
	FreeText     string         `json:"freeText"`
	Platforms    []string       `json:"platforms,omitempty"`
	PlatformOnly bool           `json:"platformOnly,omitempty"`
	Items        []GameResult   `json:"items"`
	Sources      []SourceStatus `json:"sources"`
	ElapsedMS    int64          `json:"elapsedMs"`
}

// SourceDiagnostics is the request history of one catalog source. Breaker is
// set only for sources that can be blocked.
type SourceDiagnostics struct {
	Name          string        `json:"name"`
	Enabled       bool          `json:"enabled"`
	Requests      int64         `json:"requests"`
	Failures      int64         `json:"failures"`
	Timeouts      int64         `json:"timeouts"`
	CacheHits     int64         `json:"cacheHits,omitempty"`
	LastQuery     string        `json:"lastQuery,omitempty"`
	LastError     string        `json:"lastError,omitempty"`
	LastLatencyMS int64         `json:"lastLatencyMs"`
	LastSuccessAt *time.Time    `json:"lastSuccessAt,omitempty"`
	LastFailureAt *time.Time    `json:"lastFailureAt,omitempty"`
	Breaker       *BreakerState `json:"breaker,omitempty"`
}

type BreakerState struct {
	FailureStreak int        `json:"failureStreak"`
	OpenUntil     *time.Time `json:"openUntil,omitempty"`
}
