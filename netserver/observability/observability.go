/*
MIT License

Copyright (c) 2019 Nicolas JUHEL

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

// Package observability wires the core's named counters and handler-
// duration histogram into a Prometheus registry, and its three fixed spans
// (accept_loop, dispatch, handler) into OpenTelemetry. The core never picks
// an exporter; it only emits against the global providers, the way the
// teacher's httpserver leaves metric-exporter selection to the embedding
// application.
package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("silent/netserver")

// StartSpan opens one of the core's three fixed spans (accept_loop,
// dispatch, handler) against the globally configured TracerProvider.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

// Metrics holds the named counters and histogram the design requires:
// accept-ok, accept-err, ratelimiter-closed, ratelimiter-timeout,
// handler-ok, handler-err, shutdown-graceful, shutdown-forced, and a
// handler-duration histogram. Every NetServer owns its own Metrics so two
// servers in one process never collide on a shared registry.
type Metrics struct {
	registry *prometheus.Registry

	acceptOK           prometheus.Counter
	acceptErr          prometheus.Counter
	rateLimiterClosed  prometheus.Counter
	rateLimiterTimeout prometheus.Counter
	handlerOK          prometheus.Counter
	handlerErr         prometheus.Counter
	shutdownGraceful   prometheus.Counter
	shutdownForced     prometheus.Counter
	handlerDuration    prometheus.Histogram
}

// New builds a fresh, self-contained Metrics with its own registry.
// Registry exposes it for an embedding application to merge into its own
// exporter.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		acceptOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netserver_accept_ok_total",
			Help: "Connections successfully accepted.",
		}),
		acceptErr: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netserver_accept_err_total",
			Help: "Fatal Accept errors surfaced by a member listener.",
		}),
		rateLimiterClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netserver_ratelimiter_closed_total",
			Help: "Connections dropped because the rate limiter was closed.",
		}),
		rateLimiterTimeout: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netserver_ratelimiter_timeout_total",
			Help: "Connections dropped because no permit arrived within max_wait.",
		}),
		handlerOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netserver_handler_ok_total",
			Help: "Handler invocations that returned a nil error.",
		}),
		handlerErr: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netserver_handler_err_total",
			Help: "Handler invocations that returned a non-nil error.",
		}),
		shutdownGraceful: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netserver_shutdown_graceful_total",
			Help: "Shutdowns that drained every in-flight task before grace_wait expired.",
		}),
		shutdownForced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netserver_shutdown_forced_total",
			Help: "Shutdowns that had to force-cancel remaining in-flight tasks.",
		}),
		handlerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "netserver_handler_duration_seconds",
			Help:    "Wall-clock duration of a single ConnectionService.Call invocation.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.acceptOK, m.acceptErr,
		m.rateLimiterClosed, m.rateLimiterTimeout,
		m.handlerOK, m.handlerErr,
		m.shutdownGraceful, m.shutdownForced,
		m.handlerDuration,
	)

	return m
}

// Registry exposes the underlying Prometheus registry so an embedding
// application can scrape or merge it into its own exporter.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) IncAcceptOK()            { m.acceptOK.Inc() }
func (m *Metrics) IncAcceptErr()           { m.acceptErr.Inc() }
func (m *Metrics) IncRateLimiterClosed()   { m.rateLimiterClosed.Inc() }
func (m *Metrics) IncRateLimiterTimeout()  { m.rateLimiterTimeout.Inc() }
func (m *Metrics) IncHandlerOK()           { m.handlerOK.Inc() }
func (m *Metrics) IncHandlerErr()          { m.handlerErr.Inc() }
func (m *Metrics) IncShutdownGraceful()    { m.shutdownGraceful.Inc() }
func (m *Metrics) IncShutdownForced()      { m.shutdownForced.Inc() }

func (m *Metrics) ObserveHandlerDuration(d time.Duration) {
	m.handlerDuration.Observe(d.Seconds())
}
