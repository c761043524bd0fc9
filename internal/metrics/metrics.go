package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// timerSampleLimit bounds how many recent samples a timer keeps for
// percentile calculation.
const timerSampleLimit = 1000

// Counter is a monotonically growing value, optionally split by labels.
type Counter struct {
	Name        string            `json:"name"`
	Value       float64           `json:"value"`
	Labels      map[string]string `json:"labels,omitempty"`
	Description string            `json:"description,omitempty"`
	LastUpdate  time.Time         `json:"last_update"`
}

// Timer aggregates duration measurements in milliseconds.
type Timer struct {
	Count   int64   `json:"count"`
	Sum     float64 `json:"sum_ms"`
	Min     float64 `json:"min_ms"`
	Max     float64 `json:"max_ms"`
	Average float64 `json:"avg_ms"`
	P95     float64 `json:"p95_ms,omitempty"`
	P99     float64 `json:"p99_ms,omitempty"`

	samples []float64
}

// Gauge is a value that moves in both directions.
type Gauge struct {
	Name        string            `json:"name"`
	Value       float64           `json:"value"`
	Labels      map[string]string `json:"labels,omitempty"`
	Description string            `json:"description,omitempty"`
	LastUpdate  time.Time         `json:"last_update"`
}

// Registry holds the in-process metrics served on /metrics. All methods
// are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
	timers   map[string]*Timer
	gauges   map[string]*Gauge
	start    time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]*Counter),
		timers:   make(map[string]*Timer),
		gauges:   make(map[string]*Gauge),
		start:    time.Now(),
	}
}

var defaultRegistry = NewRegistry()

func (r *Registry) IncrementCounter(name string, labels map[string]string, description string) {
	r.AddToCounter(name, 1, labels, description)
}

func (r *Registry) AddToCounter(name string, delta float64, labels map[string]string, description string) {
	key := metricKey(name, labels)

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.counters[key]
	if !ok {
		c = &Counter{Name: name, Labels: cloneLabels(labels), Description: description}
		r.counters[key] = c
	}
	c.Value += delta
	c.LastUpdate = time.Now()
}

func (r *Registry) RecordTimer(name string, d time.Duration, labels map[string]string, description string) {
	key := metricKey(name, labels)
	ms := float64(d.Nanoseconds()) / 1e6

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.timers[key]
	if !ok {
		t = &Timer{Min: ms, Max: ms}
		r.timers[key] = t
	}

	t.Count++
	t.Sum += ms
	t.Average = t.Sum / float64(t.Count)
	if ms < t.Min {
		t.Min = ms
	}
	if ms > t.Max {
		t.Max = ms
	}

	t.samples = append(t.samples, ms)
	if len(t.samples) > timerSampleLimit {
		t.samples = t.samples[len(t.samples)-timerSampleLimit:]
	}
	if len(t.samples) >= 10 {
		t.P95 = percentile(t.samples, 0.95)
		t.P99 = percentile(t.samples, 0.99)
	}
}

func (r *Registry) SetGauge(name string, value float64, labels map[string]string, description string) {
	key := metricKey(name, labels)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.gauges[key] = &Gauge{
		Name:        name,
		Value:       value,
		Labels:      cloneLabels(labels),
		Description: description,
		LastUpdate:  time.Now(),
	}
}

// Snapshot is a point-in-time copy of every registered metric.
type Snapshot struct {
	Counters  map[string]*Counter `json:"counters"`
	Timers    map[string]*Timer   `json:"timers"`
	Gauges    map[string]*Gauge   `json:"gauges"`
	UptimeMs  int64               `json:"uptime_ms"`
	Timestamp int64               `json:"timestamp"`
}

func (r *Registry) GetAllMetrics() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		Counters:  make(map[string]*Counter, len(r.counters)),
		Timers:    make(map[string]*Timer, len(r.timers)),
		Gauges:    make(map[string]*Gauge, len(r.gauges)),
		UptimeMs:  time.Since(r.start).Milliseconds(),
		Timestamp: time.Now().Unix(),
	}
	for k, v := range r.counters {
		snap.Counters[k] = v
	}
	for k, v := range r.timers {
		snap.Timers[k] = v
	}
	for k, v := range r.gauges {
		snap.Gauges[k] = v
	}
	return snap
}

// metricKey joins the name with its labels in sorted order so the same
// label set always maps to the same series.
func metricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteByte('_')
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(labels[k])
	}
	return b.String()
}

func percentile(samples []float64, p float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func cloneLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

// Package-level helpers write to the process-wide registry.

func IncrementCounter(name string, labels map[string]string, description string) {
	defaultRegistry.IncrementCounter(name, labels, description)
}

func AddToCounter(name string, delta float64, labels map[string]string, description string) {
	defaultRegistry.AddToCounter(name, delta, labels, description)
}

func RecordTimer(name string, d time.Duration, labels map[string]string, description string) {
	defaultRegistry.RecordTimer(name, d, labels, description)
}

func SetGauge(name string, value float64, labels map[string]string, description string) {
	defaultRegistry.SetGauge(name, value, labels, description)
}

func GetAllMetrics() Snapshot {
	return defaultRegistry.GetAllMetrics()
}
