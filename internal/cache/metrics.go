package cache

import "time"

// Metrics receives cache events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	Hit(key string)
	Miss(key string)
	Coalesced(key string)
	Loaded(key string, d time.Duration, err error)
}

// NoopMetrics is the default when no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) Hit(string)                           {}
func (NoopMetrics) Miss(string)                          {}
func (NoopMetrics) Coalesced(string)                     {}
func (NoopMetrics) Loaded(string, time.Duration, error) {}

var _ Metrics = NoopMetrics{}
