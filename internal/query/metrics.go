package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Hits          prometheus.Counter
	Misses        prometheus.Counter
	Shared        prometheus.Counter
	Stale         prometheus.Counter
	Invalidations prometheus.Counter
	Evictions     prometheus.Counter
}

// NewMetrics registers the cache counters with reg. A nil reg yields
// unregistered counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{
			Namespace: "tokoku",
			Subsystem: "query_cache",
			Name:      name,
			Help:      help,
		})
	}
	return &Metrics{
		Hits:          counter("hits_total", "Queries answered from cache."),
		Misses:        counter("misses_total", "Queries that needed a fetch."),
		Shared:        counter("shared_fetches_total", "Callers that joined an in-flight fetch."),
		Stale:         counter("stale_results_total", "Fetch results dropped because the key was invalidated mid-flight."),
		Invalidations: counter("invalidations_total", "Cache keys invalidated."),
		Evictions:     counter("evictions_total", "Entries dropped to stay within capacity."),
	}
}
