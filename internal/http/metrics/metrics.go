package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

// Collector keeps process-wide HTTP counters in Prometheus text format.
type Collector struct {
	requests     uint64
	clientErrors uint64
	errors       uint64
	rateLimited  uint64
	// realtimeClients reports connected websocket sessions when set.
	realtimeClients func() int
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) IncRequests() {
	atomic.AddUint64(&c.requests, 1)
}

func (c *Collector) IncErrors() {
	atomic.AddUint64(&c.errors, 1)
}

func (c *Collector) IncClientErrors() {
	atomic.AddUint64(&c.clientErrors, 1)
}

func (c *Collector) IncRateLimited() {
	atomic.AddUint64(&c.rateLimited, 1)
}

// ObserveStatus classifies a finished response.
func (c *Collector) ObserveStatus(status int) {
	c.IncRequests()
	switch {
	case status == http.StatusTooManyRequests:
		c.IncRateLimited()
		c.IncClientErrors()
	case status >= 500:
		c.IncErrors()
	case status >= 400:
		c.IncClientErrors()
	}
}

func (c *Collector) TrackRealtimeClients(fn func() int) {
	c.realtimeClients = fn
}

type Snapshot struct {
	Requests        uint64
	ClientErrors    uint64
	Errors          uint64
	RateLimited     uint64
	RealtimeClients int
}

func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{
		Requests:     atomic.LoadUint64(&c.requests),
		ClientErrors: atomic.LoadUint64(&c.clientErrors),
		Errors:       atomic.LoadUint64(&c.errors),
		RateLimited:  atomic.LoadUint64(&c.rateLimited),
	}
	if c.realtimeClients != nil {
		s.RealtimeClients = c.realtimeClients()
	}
	return s
}

func (c *Collector) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	s := c.Snapshot()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	writeMetric(w, "internportal_http_requests_total", "counter", "Total number of HTTP requests.", s.Requests)
	writeMetric(w, "internportal_http_client_errors_total", "counter", "Total number of 4xx HTTP responses.", s.ClientErrors)
	writeMetric(w, "internportal_http_errors_total", "counter", "Total number of 5xx HTTP responses.", s.Errors)
	writeMetric(w, "internportal_http_rate_limited_total", "counter", "Requests rejected by rate limiting.", s.RateLimited)
	writeMetric(w, "internportal_realtime_clients", "gauge", "Connected websocket sessions.", uint64(s.RealtimeClients))
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value uint64) {
	_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	_, _ = fmt.Fprintf(w, "%s %d\n", name, value)
}
