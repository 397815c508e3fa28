// Package metrics exposes draw activity as Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lixenwraith/luckydraw/event"
)

const namespace = "luckydraw"

// Collector holds the draw collectors on a private registry
type Collector struct {
	Registry *prometheus.Registry

	drawsStarted   *prometheus.CounterVec
	drawsSettled   *prometheus.CounterVec
	nearMisses     prometheus.Counter
	undos          prometheus.Counter
	resets         prometheus.Counter
	errors         *prometheus.CounterVec
	chargeComplete prometheus.Counter
	remaining      prometheus.Gauge
	awarded        prometheus.Gauge
	revealDuration prometheus.Histogram
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec

	mu         sync.Mutex
	revealFrom map[uint64]time.Time
	chargeFull int
}

// New registers every collector; chargeFull is the level that completes a charge
func New(chargeFull int) *Collector {
	c := &Collector{
		Registry:   prometheus.NewRegistry(),
		revealFrom: make(map[uint64]time.Time),
		chargeFull: chargeFull,

		drawsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draws_started_total",
			Help:      "Total number of reveals started.",
		}, []string{"final"}),
		drawsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draws_settled_total",
			Help:      "Total number of winner groups committed.",
		}, []string{"final"}),
		nearMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "near_miss_total",
			Help:      "Total number of near-miss beats shown.",
		}),
		undos: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "undo_total",
			Help:      "Total number of undone winner groups.",
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Total number of draw resets.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of rejected commands by kind.",
		}, []string{"kind"}),
		chargeComplete: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charge_completed_total",
			Help:      "Total number of charges held to full.",
		}),
		remaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "remaining_tickets",
			Help:      "Tickets still eligible, including a group being revealed.",
		}),
		awarded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "prizes_awarded",
			Help:      "Winner groups in history.",
		}),
		revealDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reveal_duration_seconds",
			Help:      "Time from draw start to committed result.",
			Buckets:   []float64{1, 2, 4, 6, 8, 12, 16, 20, 30},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}, []string{"method", "path"}),
	}

	c.Registry.MustRegister(
		c.drawsStarted,
		c.drawsSettled,
		c.nearMisses,
		c.undos,
		c.resets,
		c.errors,
		c.chargeComplete,
		c.remaining,
		c.awarded,
		c.revealDuration,
		c.httpRequests,
		c.httpDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return c
}

// Attach counts events published on bus
func (c *Collector) Attach(bus *event.Bus) func() {
	return bus.Subscribe(c.Observe)
}

// Observe updates collectors for one event
func (c *Collector) Observe(ev event.Event) {
	switch p := ev.Payload.(type) {
	case *event.DrawStartedPayload:
		c.drawsStarted.WithLabelValues(strconv.FormatBool(p.Final)).Inc()
		c.mu.Lock()
		c.revealFrom[ev.Session] = ev.Timestamp
		c.mu.Unlock()
	case *event.SettledPayload:
		c.drawsSettled.WithLabelValues(strconv.FormatBool(p.Final)).Inc()
		c.remaining.Set(float64(p.Remaining))
		c.awarded.Inc()
		c.mu.Lock()
		if from, ok := c.revealFrom[ev.Session]; ok {
			c.revealDuration.Observe(ev.Timestamp.Sub(from).Seconds())
			delete(c.revealFrom, ev.Session)
		}
		c.mu.Unlock()
	case *event.NearMissPayload:
		c.nearMisses.Inc()
	case *event.UndonePayload:
		c.undos.Inc()
		c.awarded.Dec()
		c.remaining.Set(float64(p.Remaining))
	case *event.ErrorPayload:
		c.errors.WithLabelValues(p.Kind.String()).Inc()
	case *event.ChargeLevelPayload:
		if p.Level >= c.chargeFull {
			c.chargeComplete.Inc()
		}
	case *event.ConfiguredPayload:
		c.remaining.Set(float64(p.Remaining))
		c.awarded.Set(float64(p.Awarded))
		c.forgetReveals()
	}

	if ev.Type == event.Reset {
		c.resets.Inc()
	}
}

func (c *Collector) forgetReveals() {
	c.mu.Lock()
	clear(c.revealFrom)
	c.mu.Unlock()
}

// Handler returns an HTTP handler exposing the registered collectors
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps next with HTTP request metrics
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" || r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		path := normalizePath(r.URL.Path)
		c.httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		c.httpDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// normalizePath keeps label cardinality bounded
func normalizePath(p string) string {
	if !strings.HasPrefix(p, "/api/") {
		return "other"
	}
	return p
}
