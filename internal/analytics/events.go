package analytics

import "time"

type EventType string

const (
	EventSearch        EventType = "search"
	EventContentSearch EventType = "content_search"
	EventRecommend     EventType = "recommend"
)

// SearchEvent describes one executed query.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Domain    string    `json:"domain"`
	Query     string    `json:"query"`
	Language  string    `json:"language,omitempty"`
	Terms     []string  `json:"terms"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Error     string    `json:"error,omitempty"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}
