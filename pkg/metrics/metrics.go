// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes the measurements and alert outcomes of the
// monitoring scheduler as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "diskwatch"

// Alert results as used in the "result" label.
const (
	AlertSent       = "sent"
	AlertFailed     = "failed"
	AlertSuppressed = "suppressed"
)

// Recorder collects per-mount metrics.
type Recorder struct {
	registry *prometheus.Registry

	usedPercent  *prometheus.GaugeVec
	freeBytes    *prometheus.GaugeVec
	sampleErrors *prometheus.CounterVec
	alerts       *prometheus.CounterVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		usedPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "used_percent",
			Help:      "Percentage of used capacity as of the last successful sample.",
		}, []string{"mount"}),
		freeBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "free_bytes",
			Help:      "Bytes available as of the last successful sample.",
		}, []string{"mount"}),
		sampleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sample_errors_total",
			Help:      "Number of failed capacity samples.",
		}, []string{"mount"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Number of threshold breaches by alert outcome.",
		}, []string{"mount", "result"}),
	}

	r.registry.MustRegister(r.usedPercent, r.freeBytes, r.sampleErrors, r.alerts)
	return r
}

// Registry returns the registry all metrics are registered with.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveSample records a successful sample.
func (r *Recorder) ObserveSample(mount string, percentUsed int, freeBytes uint64) {
	r.usedPercent.WithLabelValues(mount).Set(float64(percentUsed))
	r.freeBytes.WithLabelValues(mount).Set(float64(freeBytes))
}

// SampleFailed records a failed sample.
func (r *Recorder) SampleFailed(mount string) {
	r.sampleErrors.WithLabelValues(mount).Inc()
}

// AlertOutcome records what happened to an alert for a breached mount.
func (r *Recorder) AlertOutcome(mount, result string) {
	r.alerts.WithLabelValues(mount, result).Inc()
}

// Serve exposes the metrics on /metrics at addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return r.serve(ctx, listener)
}

func (r *Recorder) serve(ctx context.Context, listener net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("Failed to shut down metrics server")
		}
	}()

	logrus.WithField("address", listener.Addr().String()).Info("Serving metrics")
	if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
