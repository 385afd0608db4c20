package observability

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/envutil"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/logger"
)

// Metrics is the engine's metric set, served in Prometheus text format on
// /metrics. A nil *Metrics is valid and turns every method into a no-op, so
// callers never gate on METRICS_ENABLED themselves.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	readingsProcessed *Counter
	readingsRejected  *Counter
	anomalies         *CounterVec
	confidence        *HistogramVec
	forecastRisk      *HistogramVec
	batchProfiles     *Gauge

	eventsPublished *CounterVec
	eventsDropped   *CounterVec
	busPublished    *Counter
	busErrors       *Counter

	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current returns the singleton, nil until Init has run with metrics enabled.
func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	n := envutil.Int("METRICS_SCRAPE_INTERVAL_SECONDS", 10)
	if n <= 0 {
		n = 10
	}
	return time.Duration(n) * time.Second
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = &Metrics{
			apiRequests: NewCounterVec("pt_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
			apiLatency: NewHistogramVec(
				"pt_api_request_duration_seconds",
				"API request latency distribution in seconds.",
				[]string{"method", "route", "status"},
				[]float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
			),
			apiInflight:       NewGauge("pt_api_inflight_requests", "In-flight API requests."),
			readingsProcessed: NewCounter("pt_readings_processed_total", "Sensor readings accepted and classified."),
			readingsRejected:  NewCounter("pt_readings_rejected_total", "Sensor readings rejected at validation."),
			anomalies:         NewCounterVec("pt_anomalies_total", "Anomalous readings by severity/pattern.", []string{"severity", "pattern"}),
			confidence: NewHistogramVec(
				"pt_verdict_confidence",
				"Verdict confidence distribution by verdict.",
				[]string{"verdict"},
				[]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
			),
			forecastRisk: NewHistogramVec(
				"pt_forecast_risk_level",
				"Forecast risk level distribution.",
				[]string{},
				[]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			),
			batchProfiles:   NewGauge("pt_batch_profiles_active", "Live batch profiles."),
			eventsPublished: NewCounterVec("pt_events_published_total", "Events fanned out by channel.", []string{"channel"}),
			eventsDropped:   NewCounterVec("pt_events_dropped_total", "Events dropped on full subscriber buffers by channel.", []string{"channel"}),
			busPublished:    NewCounter("pt_bus_published_total", "Events republished to the cross-instance bus."),
			busErrors:       NewCounter("pt_bus_errors_total", "Cross-instance bus publish failures."),
			redisUp:         NewGauge("pt_redis_up", "Redis connectivity (1=up, 0=down)."),
			redisPing:       NewGauge("pt_redis_ping_seconds", "Redis ping latency in seconds."),
		}
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

// family is one named series group in the exposition output.
type family interface {
	expose(w io.Writer) error
}

func (m *Metrics) families() []family {
	return []family{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.readingsProcessed, m.readingsRejected, m.anomalies,
		m.confidence, m.forecastRisk, m.batchProfiles,
		m.eventsPublished, m.eventsDropped,
		m.busPublished, m.busErrors,
		m.redisUp, m.redisPing,
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, f := range m.families() {
		if err := f.expose(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveReading records the outcome of one classified reading. Severity and
// pattern follow the wire vocabulary; "none" marks a normal reading.
func (m *Metrics) ObserveReading(severity, pattern string, confidenceScore, riskLevel float64) {
	if m == nil {
		return
	}
	m.readingsProcessed.Inc()
	verdict := "normal"
	if severity != "" && severity != "none" {
		verdict = "anomaly"
		if pattern == "" {
			pattern = "unknown"
		}
		m.anomalies.Inc(severity, pattern)
	}
	m.confidence.Observe(confidenceScore, verdict)
	m.forecastRisk.Observe(riskLevel)
}

func (m *Metrics) IncReadingRejected() {
	if m == nil {
		return
	}
	m.readingsRejected.Inc()
}

func (m *Metrics) SetBatchProfiles(n int) {
	if m == nil {
		return
	}
	m.batchProfiles.Set(float64(n))
}

func (m *Metrics) IncEventPublished(channel string) {
	if m == nil {
		return
	}
	if channel == "" {
		channel = "unknown"
	}
	m.eventsPublished.Inc(channel)
}

func (m *Metrics) IncEventDropped(channel string) {
	if m == nil {
		return
	}
	if channel == "" {
		channel = "unknown"
	}
	m.eventsDropped.Inc(channel)
}

func (m *Metrics) IncBusPublished() {
	if m == nil {
		return
	}
	m.busPublished.Inc()
}

func (m *Metrics) IncBusError() {
	if m == nil {
		return
	}
	m.busErrors.Inc()
}

// StartRedisCollector probes the bus Redis periodically so the dashboard can
// tell a quiet stream from a dead bridge.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	interval := scrapeInterval()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return
			case <-ticker.C:
				m.probeRedis(ctx, rdb, log)
			}
		}
	}()
}

func (m *Metrics) probeRedis(ctx context.Context, rdb *redis.Client, log *logger.Logger) {
	start := time.Now()
	if err := rdb.Ping(ctx).Err(); err != nil {
		m.redisUp.Set(0)
		if log != nil {
			log.Warn("metrics: redis ping failed", "error", err)
		}
		return
	}
	m.redisUp.Set(1)
	m.redisPing.Set(time.Since(start).Seconds())
}

// ---- exposition primitives ----

// sample is one exposition line minus the family name.
type sample struct {
	suffix string
	labels string
	value  string
}

func writeFamily(w io.Writer, name, help, typ string, samples []sample) error {
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, typ); err != nil {
		return err
	}
	for _, s := range samples {
		if _, err := fmt.Fprintf(w, "%s%s%s %s\n", name, s.suffix, s.labels, s.value); err != nil {
			return err
		}
	}
	return nil
}

type Counter struct {
	name string
	help string
	n    atomic.Uint64
}

func NewCounter(name, help string) *Counter {
	return &Counter{name: name, help: help}
}

func (c *Counter) Inc() {
	if c == nil {
		return
	}
	c.n.Add(1)
}

func (c *Counter) expose(w io.Writer) error {
	if c == nil {
		return nil
	}
	return writeFamily(w, c.name, c.help, "counter", []sample{{value: formatUint(c.n.Load())}})
}

type CounterVec struct {
	name   string
	help   string
	labels []string
	mu     sync.Mutex
	counts map[string]uint64
}

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{name: name, help: help, labels: labels, counts: map[string]uint64{}}
}

func (c *CounterVec) Inc(values ...string) {
	if c == nil {
		return
	}
	key := formatLabels(c.labels, values)
	c.mu.Lock()
	c.counts[key]++
	c.mu.Unlock()
}

func (c *CounterVec) expose(w io.Writer) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	samples := make([]sample, 0, len(c.counts))
	for key, n := range c.counts {
		samples = append(samples, sample{labels: key, value: formatUint(n)})
	}
	c.mu.Unlock()
	sort.Slice(samples, func(i, j int) bool { return samples[i].labels < samples[j].labels })
	return writeFamily(w, c.name, c.help, "counter", samples)
}

// Gauge stores the IEEE 754 bits of its value so Set and Inc/Dec stay
// lock-free.
type Gauge struct {
	name string
	help string
	bits atomic.Uint64
}

func NewGauge(name, help string) *Gauge {
	return &Gauge{name: name, help: help}
}

func (g *Gauge) Set(v float64) {
	if g == nil {
		return
	}
	g.bits.Store(math.Float64bits(v))
}

func (g *Gauge) Inc() { g.add(1) }
func (g *Gauge) Dec() { g.add(-1) }

func (g *Gauge) add(delta float64) {
	if g == nil {
		return
	}
	for {
		old := g.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if g.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

func (g *Gauge) expose(w io.Writer) error {
	if g == nil {
		return nil
	}
	v := math.Float64frombits(g.bits.Load())
	return writeFamily(w, g.name, g.help, "gauge", []sample{{value: formatFloat(v)}})
}

// HistogramVec counts per-bucket at observe time and accumulates into the
// cumulative le-series only when exposed.
type HistogramVec struct {
	name    string
	help    string
	labels  []string
	buckets []float64
	mu      sync.Mutex
	series  map[string]*histogram
}

type histogram struct {
	counts []uint64
	sum    float64
	total  uint64
}

func NewHistogramVec(name, help string, labels []string, buckets []float64) *HistogramVec {
	if len(buckets) == 0 {
		buckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}
	}
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)
	return &HistogramVec{name: name, help: help, labels: labels, buckets: sorted, series: map[string]*histogram{}}
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	if h == nil {
		return
	}
	key := formatLabels(h.labels, values)
	idx := sort.SearchFloat64s(h.buckets, v)

	h.mu.Lock()
	s, ok := h.series[key]
	if !ok {
		s = &histogram{counts: make([]uint64, len(h.buckets)+1)}
		h.series[key] = s
	}
	s.counts[idx]++
	s.sum += v
	s.total++
	h.mu.Unlock()
}

func (h *HistogramVec) expose(w io.Writer) error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	keys := make([]string, 0, len(h.series))
	for k := range h.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	samples := make([]sample, 0, len(keys)*(len(h.buckets)+3))
	for _, key := range keys {
		s := h.series[key]
		var cum uint64
		for i, bound := range h.buckets {
			cum += s.counts[i]
			samples = append(samples, sample{
				suffix: "_bucket",
				labels: appendLabel(key, "le", formatFloat(bound)),
				value:  formatUint(cum),
			})
		}
		samples = append(samples,
			sample{suffix: "_bucket", labels: appendLabel(key, "le", "+Inf"), value: formatUint(s.total)},
			sample{suffix: "_sum", labels: key, value: formatFloat(s.sum)},
			sample{suffix: "_count", labels: key, value: formatUint(s.total)},
		)
	}
	h.mu.Unlock()
	return writeFamily(w, h.name, h.help, "histogram", samples)
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// formatLabels renders {k="v",...}; missing values render as "unknown".
func formatLabels(names, values []string) string {
	if len(names) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		v := "unknown"
		if i < len(values) {
			v = values[i]
		}
		b.WriteString(name)
		b.WriteString(`="`)
		b.WriteString(labelEscaper.Replace(v))
		b.WriteString(`"`)
	}
	b.WriteByte('}')
	return b.String()
}

// appendLabel injects one more pair into an already rendered label set.
func appendLabel(labels, name, value string) string {
	pair := name + `="` + labelEscaper.Replace(value) + `"`
	if labels == "" {
		return "{" + pair + "}"
	}
	return strings.TrimSuffix(labels, "}") + "," + pair + "}"
}

func formatUint(n uint64) string {
	return strconv.FormatUint(n, 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
