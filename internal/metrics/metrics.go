/*
 * NETCAP - Traffic Analysis Framework
 * Copyright (c) 2017-2020 Philipp Mieden <dreadl0ck [at] protonmail [dot] ch>
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package metrics wires the prometheus counters and histograms gated by
// Config.ExportMetrics: the same gate governs whether the dissector and
// tracer update them at all.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the counters/histograms exported by a single process.
// Registering nil-safe wrappers around every call site lets callers pass
// a disabled Metrics value (Enabled == false) without branching at every
// increment.
type Metrics struct {
	Enabled bool

	DissectorRows     *prometheus.CounterVec
	DissectorErrors   *prometheus.CounterVec
	TraceDuration     *prometheus.HistogramVec
	TraceChainsFound  prometheus.Counter
}

// New constructs and registers the metrics against registry. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the global
// default registry across parallel test runs.
func New(enabled bool, registry prometheus.Registerer) *Metrics {
	m := &Metrics{Enabled: enabled}

	if !enabled {
		return m
	}

	m.DissectorRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netlens_dissector_rows_total",
		Help: "Number of field-stream rows read from the dissector, by operation.",
	}, []string{"operation"})

	m.DissectorErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netlens_dissector_errors_total",
		Help: "Number of dissector invocations that failed, by operation.",
	}, []string{"operation"})

	m.TraceDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netlens_trace_duration_seconds",
		Help:    "Wall-clock duration of a single TraceSingle/TraceTwo invocation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	m.TraceChainsFound = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netlens_trace_chains_found_total",
		Help: "Number of session chains assembled across all trace invocations.",
	})

	registry.MustRegister(m.DissectorRows, m.DissectorErrors, m.TraceDuration, m.TraceChainsFound)

	return m
}

// IncRows increments the row counter for operation by n, a no-op when disabled.
func (m *Metrics) IncRows(operation string, n int) {
	if m == nil || !m.Enabled {
		return
	}

	m.DissectorRows.WithLabelValues(operation).Add(float64(n))
}

// IncErrors increments the error counter for operation, a no-op when disabled.
func (m *Metrics) IncErrors(operation string) {
	if m == nil || !m.Enabled {
		return
	}

	m.DissectorErrors.WithLabelValues(operation).Inc()
}

// ObserveTraceDuration records a trace's wall-clock duration in seconds.
func (m *Metrics) ObserveTraceDuration(mode string, seconds float64) {
	if m == nil || !m.Enabled {
		return
	}

	m.TraceDuration.WithLabelValues(mode).Observe(seconds)
}

// AddChainsFound increments the chains-found counter by n.
func (m *Metrics) AddChainsFound(n int) {
	if m == nil || !m.Enabled {
		return
	}

	m.TraceChainsFound.Add(float64(n))
}
