/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package metrics is additive server-side instrumentation: it observes the
// transfer/portal packages through a small callback surface, never the
// other way around, so wiring it in cannot change wire behavior. The
// server alone exposes it; the client has no use for a /metrics endpoint.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wenbinhou/xcp/internal/transfer"
)

// Collectors bundles every metric the server records, registered on its
// own registry so a misbehaving default-registry collector elsewhere in
// the process can't leak into /metrics.
type Collectors struct {
	registry *prometheus.Registry

	BytesTransferred   *prometheus.CounterVec
	ActiveChannels     prometheus.Gauge
	BlockSizeChosen    prometheus.Histogram // registered, but nothing records into it, so it stays empty
	TransfersCompleted *prometheus.CounterVec
}

// New registers every collector on a fresh registry and returns the bundle.
func New() *Collectors {
	reg := prometheus.NewRegistry()

	c := &Collectors{
		registry: reg,
		BytesTransferred: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xcp",
			Name:      "bytes_transferred_total",
			Help:      "Bytes moved across all channels, labeled by transfer direction.",
		}, []string{"direction"}),
		ActiveChannels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "xcp",
			Name:      "active_channels",
			Help:      "Number of channel connections currently attached to a transfer.",
		}),
		BlockSizeChosen: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "xcp",
			Name:      "block_size_bytes",
			Help:      "Adaptive block sizer's chosen block size.",
			Buckets:   prometheus.ExponentialBuckets(65536, 2, 15),
		}),
		TransfersCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xcp",
			Name:      "transfers_total",
			Help:      "Completed transfers, labeled by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(c.BytesTransferred, c.ActiveChannels, c.BlockSizeChosen, c.TransfersCompleted)
	return c
}

// ProgressFunc adapts a transfer.ProgressFunc to report cumulative
// progress snapshots as counter deltas, labeled by direction ("send" or
// "receive"). Each call site (one per client-instance transfer) must use
// its own closure, since last is not safe for concurrent snapshots from
// more than one transfer.
func (c *Collectors) ProgressFunc(direction string) transfer.ProgressFunc {
	var last uint64
	counter := c.BytesTransferred.WithLabelValues(direction)
	return func(p transfer.Progress) {
		if p.TransferredSize > last {
			counter.Add(float64(p.TransferredSize - last))
			last = p.TransferredSize
		}
	}
}

// Handler returns the promhttp handler for this bundle's registry.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve runs an HTTP server exposing /metrics on addr until ctx is
// canceled, at which point it shuts down gracefully.
func (c *Collectors) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
